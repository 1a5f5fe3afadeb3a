// Package opl3 programs one or more emulated OPL3 FM synthesis chips: it
// owns the per-voice metadata table and translates high-level actions
// (note-on, note-off, patch, touch, pan) into the bit-exact register writes
// an OPL3 expects. The chip emulation itself is an external collaborator
// named only by the Chip interface (spec.md §1).
package opl3

// Chip is the external FM chip emulator this driver programs. Init
// configures the chip's internal sample rate, WriteReg performs one
// register write, and Generate renders nsamples of interleaved stereo
// output into buf (len(buf) >= nsamples*2).
type Chip interface {
	Init(sampleRate int)
	WriteReg(addr uint16, val uint8)
	Generate(buf []int16, nsamples int)
}

// ChannelsPerChip is the number of two-op channels one OPL3 chip exposes.
const ChannelsPerChip = 18

// Operators is the fixed OPL3 hardware layout: the operator-register base
// address for each of the 18 chip-local channels (first operator of the
// channel; the second operator is always 3 higher within the same bank).
var Operators = [ChannelsPerChip]uint16{
	0x000, 0x001, 0x002, 0x008, 0x009, 0x00A, 0x010, 0x011, 0x012,
	0x100, 0x101, 0x102, 0x108, 0x109, 0x10A, 0x110, 0x111, 0x112,
}

// Channels is the fixed OPL3 hardware layout: the channel-register base
// address for each of the 18 chip-local channels. The 0x100 high bit
// selects the second OPL3 register bank.
var Channels = [ChannelsPerChip]uint16{
	0x000, 0x001, 0x002, 0x003, 0x004, 0x005, 0x006, 0x007, 0x008,
	0x100, 0x101, 0x102, 0x103, 0x104, 0x105, 0x106, 0x107, 0x108,
}

// fourOpPairs lists the chip-local channel pairs the OPL3 permits to combine
// into a four-op channel, in priority order (spec.md §4.1).
var fourOpPairs = [6][2]int{
	{0, 3}, {1, 4}, {2, 5}, {9, 12}, {10, 13}, {11, 14},
}

// FourOpPairs exposes the chip-local four-op pairing table to callers
// outside this package (the voice allocator needs it to find a master
// voice's paired slave).
func FourOpPairs() [6][2]int { return fourOpPairs }
