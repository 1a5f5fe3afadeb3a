package player

import (
	"math"

	"github.com/icco/adlplay/internal/opl3"
)

// Hertz converts a MIDI tone number (semitones, fractional for pitch bend)
// to the block-0 F-number scale an opl3.Driver.NoteOn call expects (spec.md
// §4.5): 172.00093 * e^(0.057762265 * tone), the well-known OPL F-number
// constant chosen so tone 0 sits at roughly MIDI note 0 (C-1, about 8.2Hz
// on the OPL3's 49716Hz clock).
func Hertz(tone float64) float64 {
	return 172.00093 * math.Exp(0.057762265*tone)
}

// updateFlags multiplexes which aspects of a sounding note changed, so a
// single controller or pitch-bend message only reprograms what it actually
// touched (spec.md §4.5 NoteUpdate_Sub).
type updateFlags struct {
	off    bool
	patch  bool
	pan    bool
	volume bool
	pitch  bool
}

// NoteUpdate applies flags to every physical voice backing note, calling
// into driver through the allocator's bound opl3.Driver. It is the single
// entry point all controller/pitch-bend/patch-change handlers in Player
// funnel through, so a four-op note's master and slave voices always stay
// in lockstep.
func (p *Player) noteUpdate(ch int, note *ActiveNote, flags updateFlags) {
	p.noteUpdateSub(ch, note.Voice1, note, flags)
	if note.Voice2 != opl3.NoVoice {
		p.noteUpdateSub(ch, note.Voice2, note, flags)
	}
}

func (p *Player) noteUpdateSub(ch, voice int, note *ActiveNote, flags updateFlags) {
	if voice == opl3.NoVoice {
		return
	}
	channel := p.channels[ch]

	if flags.off {
		p.allocator.Release(voice, channel.Sustain)
		return
	}
	if flags.patch {
		p.driver.Patch(voice, p.driver.Voice(voice).InstrumentIndex)
	}
	if flags.pan {
		p.driver.Pan(voice, panEncode(channel.Pan))
	}
	if flags.volume {
		p.driver.Touch(voice, channel.VolumeWord(note.Velocity))
	}
	if flags.pitch {
		tone := float64(note.Tone) + channel.BendOffset()
		p.driver.NoteOn(voice, Hertz(tone))
	}
}

// panEncode maps a 0..127 MIDI pan value to the OPL3 2-bit stereo mask
// (0x10 = left, 0x20 = right; center enables both).
func panEncode(pan uint8) uint8 {
	switch {
	case pan < 32:
		return 0x10
	case pan > 95:
		return 0x20
	default:
		return 0x30
	}
}

// NoteOffSustain keys a voice off at the chip level while leaving it in the
// Sustained bookkeeping state, so the allocator still prefers to steal it
// over a freshly-struck note (spec.md §4.4).
func (p *Player) noteOffSustain(voice int) {
	p.driver.NoteOff(voice)
	p.driver.Voice(voice).State = opl3.Sustained
}
