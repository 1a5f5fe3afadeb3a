package opl3

import "math"

// Driver owns N chip instances and the length-18*N voice metadata table
// (spec.md §4.1).
type Driver struct {
	chips      []Chip
	voices     []Voice
	sampleRate int
	fourOps    int // total four-op channels configured, across all chips
	ops        OpLookup
}

// OpLookup resolves the operator-table data a Patch/Touch operation needs.
// internal/banks.Table satisfies this without opl3 importing the banks
// package's instrument-metadata types it doesn't need.
type OpLookup interface {
	CarrierE862(i int) uint32
	ModulatorE862(i int) uint32
	CarrierTL(i int) uint8
	ModulatorTL(i int) uint8
	FeedConn(i int) uint8
}

// NewDriver creates a driver over the given chips. fourOpsTotal is the
// number of four-op channels to configure across all chips combined (0..6*N).
func NewDriver(chips []Chip, fourOpsTotal int, ops OpLookup) *Driver {
	d := &Driver{
		chips:   chips,
		voices:  make([]Voice, len(chips)*ChannelsPerChip),
		fourOps: fourOpsTotal,
		ops:     ops,
	}
	return d
}

// Voices exposes the voice metadata table for the allocator.
func (d *Driver) Voices() []Voice { return d.voices }

// Voice returns a pointer to voice v's metadata.
func (d *Driver) Voice(v int) *Voice { return &d.voices[v] }

func (d *Driver) chipAndChannel(v int) (chip int, c int) {
	return v / ChannelsPerChip, v % ChannelsPerChip
}

func (d *Driver) poke(chip int, reg uint16, val uint8) {
	d.chips[chip].WriteReg(reg, val)
}

// Reset initializes every chip at sampleRate, writes the OPL3/four-op boot
// sequence, assigns each voice's FourOpRole, and silences all voices
// (spec.md §4.1 "Reset register sequence").
func (d *Driver) Reset(sampleRate int) {
	d.sampleRate = sampleRate
	numChips := len(d.chips)
	if numChips == 0 {
		return
	}
	perChipFours := distributeFourOps(d.fourOps, numChips)

	for chip := 0; chip < numChips; chip++ {
		d.chips[chip].Init(sampleRate)

		// Pulse timer mask, pulse OPL3 mode bit, enable wave select and
		// melodic mode, then set the four-op enable bitmap.
		d.poke(chip, 0x04, 0x60) // mask timers
		d.poke(chip, 0x04, 0x80) // reset IRQ
		d.poke(chip, 0x105, 0x00) // pulse OPL3 mode bit...
		d.poke(chip, 0x105, 0x01) // ...leaving OPL3 mode enabled
		d.poke(chip, 0x01, 0x20)  // enable wave select, melodic mode
		fours := perChipFours[chip]
		d.poke(chip, 0x104, uint8((1<<uint(fours))-1))

		for c := 0; c < ChannelsPerChip; c++ {
			v := chip*ChannelsPerChip + c
			role := Regular
			for pairIdx, pair := range fourOpPairs {
				if pairIdx >= fours {
					break
				}
				if pair[0] == c {
					role = FourOpMaster
				} else if pair[1] == c {
					role = FourOpSlave
				}
			}
			d.voices[v] = Voice{FourOpRole: role}
		}
	}

	d.Silence()
}

// distributeFourOps spreads a total four-op channel count across numChips
// cards, lower-indexed cards filling first, capped at 6 per card.
func distributeFourOps(total, numChips int) []int {
	out := make([]int, numChips)
	remaining := total
	for i := 0; i < numChips; i++ {
		n := remaining
		if n > 6 {
			n = 6
		}
		if n < 0 {
			n = 0
		}
		out[i] = n
		remaining -= n
	}
	return out
}

// NoteOff clears the key-on bit while preserving the octave/F-number bits.
func (d *Driver) NoteOff(v int) {
	chip, c := d.chipAndChannel(v)
	pit := d.voices[v].PitchWord
	d.poke(chip, 0xB0+Channels[c], pit&0xDF)
}

// NoteOn computes the OPL3 F-number/block pair for hertz and keys the voice
// on (spec.md §4.1).
func (d *Driver) NoteOn(v int, hertz float64) {
	chip, c := d.chipAndChannel(v)

	block := 0
	for hertz >= 1023.5 {
		hertz /= 2
		block++
	}
	fnum := uint32(math.Round(hertz))
	x := 0x2000 + uint32(block)*0x400 + fnum

	lo := uint8(x & 0xFF)
	hi := uint8((x >> 8) & 0xFF)
	d.poke(chip, 0xA0+Channels[c], lo)
	d.poke(chip, 0xB0+Channels[c], hi)
	d.voices[v].PitchWord = hi
}

// TouchReal writes the KSL/TL bytes for both operators of voice v, scaling
// the instrument's 6-bit TL field linearly against vol (0..63) while
// preserving the upper 2 KSL bits (spec.md §4.1).
func (d *Driver) TouchReal(v int, vol int) {
	chip, c := d.chipAndChannel(v)
	op := Operators[c]
	instr := d.voices[v].InstrumentIndex

	carrierTL := d.ops.CarrierTL(instr)
	modulatorTL := d.ops.ModulatorTL(instr)

	d.poke(chip, 0x40+op, attenByte(carrierTL, vol))
	d.poke(chip, 0x43+op, attenByte(modulatorTL, vol))
}

func attenByte(x uint8, vol int) uint8 {
	if vol < 0 {
		vol = 0
	}
	if vol > 63 {
		vol = 63
	}
	ksl := x & 0xC0
	tl := int(x & 0x3F)
	scaled := tl + (63-tl)*(63-vol)/63
	if scaled < 0 {
		scaled = 0
	}
	if scaled > 63 {
		scaled = 63
	}
	return uint8(scaled) | ksl
}

// Touch applies the perceptual volume curve (spec.md §4.1: solves
// V = 127^3 * 2^((A-63.5)/8) for attenuation A) before delegating to
// TouchReal.
func (d *Driver) Touch(v int, vol int) {
	if vol <= 8725 {
		d.TouchReal(v, 0)
		return
	}
	atten := math.Log(float64(vol))*11.541561 - 103.72845
	if atten < 0 {
		atten = 0
	}
	d.TouchReal(v, int(atten))
}

// Patch writes the four operator parameter bytes for carrier and modulator
// from the instrument table entry i (spec.md §4.1).
func (d *Driver) Patch(v int, i int) {
	chip, c := d.chipAndChannel(v)
	op := Operators[c]

	carrier := d.ops.CarrierE862(i)
	modulator := d.ops.ModulatorE862(i)

	d.poke(chip, 0x20+op, byte(carrier))
	d.poke(chip, 0x60+op, byte(carrier>>8))
	d.poke(chip, 0x80+op, byte(carrier>>16))
	d.poke(chip, 0xE0+op, byte(carrier>>24))

	d.poke(chip, 0x23+op, byte(modulator))
	d.poke(chip, 0x63+op, byte(modulator>>8))
	d.poke(chip, 0x83+op, byte(modulator>>16))
	d.poke(chip, 0xE3+op, byte(modulator>>24))

	d.voices[v].InstrumentIndex = i
}

// Pan writes the feedback/algorithm bits plus the 2-bit stereo mask to
// register 0xC0 (spec.md §4.1). encoded is 0x10 (left) | 0x20 (right).
func (d *Driver) Pan(v int, encoded uint8) {
	chip, c := d.chipAndChannel(v)
	feedConn := d.ops.FeedConn(d.voices[v].InstrumentIndex)
	d.poke(chip, 0xC0+Channels[c], feedConn|encoded)
}

// Silence keys off and zeroes the volume of every voice.
func (d *Driver) Silence() {
	for v := range d.voices {
		d.NoteOff(v)
		d.TouchReal(v, 0)
	}
}
