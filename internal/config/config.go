// Package config resolves the player's CLI arguments into the immutable
// settings the rest of the program is built from (spec.md §9's Config).
package config

import (
	"fmt"

	"github.com/icco/adlplay/internal/banks"
)

// Config bundles every runtime setting the player needs, resolved once at
// startup from CLI flags and positional arguments.
type Config struct {
	MIDIPath   string
	BankIndex  int
	NumCards   int
	NumFourOps int
	SampleRate int
}

// DefaultSampleRate is the standard 48kHz output rate the audio device is
// opened at; the chips render directly at this rate rather than at the
// OPL3's native 49716Hz, and no resampling stage exists.
const DefaultSampleRate = 48000

// New resolves midiPath, bankIndex, numCards, and numFourOps (the latter
// two as parsed from positional CLI args, -1 meaning "not given") into a
// Config. numFourOps < 0 triggers the numfourops heuristic against table
// (SPEC_FULL.md §5): count instruments needing four operators in the
// selected bank and default to 6*numCards if at least half of mapped
// instruments need it, else 0.
func New(midiPath string, bankIndex, numCards, numFourOps int, table *banks.Table) (Config, error) {
	if bankIndex < 0 || bankIndex >= len(table.Banks) {
		return Config{}, fmt.Errorf("config: bank %d out of range (have %d banks)", bankIndex, len(table.Banks))
	}
	if numCards < 1 {
		numCards = 1
	}
	if numFourOps < 0 {
		fourOp, mapped := table.FourOpCount(bankIndex)
		if mapped > 0 && fourOp*2 >= mapped {
			numFourOps = 6 * numCards
		} else {
			numFourOps = 0
		}
	}
	if numFourOps > 6*numCards {
		numFourOps = 6 * numCards
	}

	return Config{
		MIDIPath:   midiPath,
		BankIndex:  bankIndex,
		NumCards:   numCards,
		NumFourOps: numFourOps,
		SampleRate: DefaultSampleRate,
	}, nil
}
