package banks

import "fmt"

// Default builds the bundled bank table. Real distributions of this player
// ship roughly 2,900 hand-tuned operator rows sourced from an AdLib/OPL3
// patch set; this is a reduced stand-in covering the full General MIDI
// program range (128 melodic + 128 percussion key numbers) across 48 named
// banks, generated from a small family of representative FM timbres rather
// than transcribed by hand.
func Default() *Table {
	ops := buildOps()
	instruments := buildInstruments(ops)
	banks := buildBanks(len(instruments))
	names := make([]string, len(banks))
	for i := range names {
		if i == 0 {
			names[i] = "General MIDI"
		} else {
			names[i] = fmt.Sprintf("Bank %02d", i)
		}
	}

	return &Table{
		Ops:         ops,
		Instruments: instruments,
		Banks:       banks,
		Names:       names,
	}
}

// timbre describes one family of FM voice used to synthesize the reduced
// operator table below.
type timbre struct {
	carrierE862   uint32
	modulatorE862 uint32
	carrierTL     uint8
	modulatorTL   uint8
	feedConn      uint8
	fourOp        bool // marks the bell-like pair; not read by buildInstruments, which picks 4-op instruments by program number
}

var timbreFamilies = []timbre{
	{carrierE862: 0x00F0A021, modulatorE862: 0x00F08521, carrierTL: 0x00, modulatorTL: 0x12, feedConn: 0x06},             // piano-like
	{carrierE862: 0x00F2A132, modulatorE862: 0x00F09132, carrierTL: 0x00, modulatorTL: 0x08, feedConn: 0x07},             // organ-like
	{carrierE862: 0x01F3B223, modulatorE862: 0x02F0A142, carrierTL: 0x00, modulatorTL: 0x1A, feedConn: 0x04},             // brass-like
	{carrierE862: 0x03F0F211, modulatorE862: 0x00F0F211, carrierTL: 0x00, modulatorTL: 0x00, feedConn: 0x00},             // pad-like
	{carrierE862: 0x00F6F000, modulatorE862: 0x00F6F000, carrierTL: 0x00, modulatorTL: 0x02, feedConn: 0x02, fourOp: true}, // bell-like, 4-op
	{carrierE862: 0x00F6F000, modulatorE862: 0x00F6F000, carrierTL: 0x04, modulatorTL: 0x06, feedConn: 0x00},             // bell-like tail
	{carrierE862: 0x0F01F811, modulatorE862: 0x0F01F811, carrierTL: 0x00, modulatorTL: 0x00, feedConn: 0x01},             // percussive noise-ish
}

func buildOps() []Op {
	ops := make([]Op, 0, len(timbreFamilies)*4)
	for _, tf := range timbreFamilies {
		ops = append(ops, Op{
			CarrierE862:   tf.carrierE862,
			ModulatorE862: tf.modulatorE862,
			CarrierTL:     tf.carrierTL,
			ModulatorTL:   tf.modulatorTL,
			FeedConn:      tf.feedConn,
		})
	}
	return ops
}

// buildInstruments creates one Instrument per General MIDI program (0-127)
// plus one per percussion key (128-255), cycling through the operator
// families above. Every fifth entry (melodic and percussion alike) is given
// a distinct secondary operator to exercise the four-op allocation path.
func buildInstruments(ops []Op) []Instrument {
	n := len(ops)
	instruments := make([]Instrument, 0, 256)
	for program := 0; program < 256; program++ {
		primary := program % n
		secondary := primary
		if program%5 == 0 {
			secondary = (primary + 1) % n
		}
		instruments = append(instruments, Instrument{
			Adlno1:      primary,
			Adlno2:      secondary,
			Tone:        0,
			MsSoundKon:  float64(200 + (program%8)*50),
			MsSoundKoff: float64(100 + (program%8)*25),
		})
	}
	return instruments
}

func buildBanks(numInstruments int) []Bank {
	const numBanks = 48
	banks := make([]Bank, numBanks)
	for b := 0; b < numBanks; b++ {
		for midiins := 0; midiins < 256; midiins++ {
			// Every bank maps the full GM + percussion range to its
			// instrument table 1:1; later banks rotate the mapping so
			// each bank sounds distinct while staying fully populated.
			banks[b][midiins] = (midiins + b) % numInstruments
		}
	}
	return banks
}
