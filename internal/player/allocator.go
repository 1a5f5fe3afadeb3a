package player

import "github.com/icco/adlplay/internal/opl3"

// Allocator assigns MIDI notes to physical OPL3 voices, preempting the
// least valuable currently-sounding voice when the pool is full (spec.md
// §4.4). It never owns audio state directly; it only reads and mutates the
// opl3.Driver's voice metadata table and issues NoteOff/Touch calls through
// the driver when preempting.
type Allocator struct {
	driver *opl3.Driver
}

// NewAllocator returns an allocator bound to driver's voice pool.
func NewAllocator(driver *opl3.Driver) *Allocator {
	return &Allocator{driver: driver}
}

// candidate voice indices for a given four-op requirement: four-op notes
// only consider FourOpMaster voices (their paired slave rides along
// silently); two-op notes consider Regular and FourOpMaster voices, never a
// bare FourOpSlave (it cannot sound on its own).
func (a *Allocator) candidates(needFourOp bool) []int {
	voices := a.driver.Voices()
	out := make([]int, 0, len(voices))
	for i, v := range voices {
		switch v.FourOpRole {
		case opl3.FourOpSlave:
			continue
		case opl3.FourOpMaster:
			out = append(out, i)
		case opl3.Regular:
			if !needFourOp {
				out = append(out, i)
			}
		}
	}
	return out
}

// cost scores how preferable voice v is to steal: higher means steal this
// one first (spec.md §4.4). Age dominates; a still-held note is penalized
// against stealing, an already-released (sustained) note is favored, a
// matching patch is favored since no reprogramming is needed, notes on the
// requesting channel are a weak tiebreak, and percussion is a preferred
// eviction target.
func (a *Allocator) cost(v *opl3.Voice, wantChannel, wantInstrument int) float64 {
	cost := v.AgeMs
	switch v.State {
	case opl3.On:
		cost -= 2000
	case opl3.Sustained:
		cost += 2000
	}
	if v.InstrumentMeta == wantInstrument {
		cost += 50
	}
	if v.MidiChannel == wantChannel {
		cost += 1
	}
	if v.Program >= 128 {
		cost += 50
	}
	return cost
}

// Allocate finds a voice (or voice pair, for a four-op instrument) for a new
// note. It returns opl3.NoVoice, opl3.NoVoice if no admissible voice could be
// found or freed — the caller should silently drop the note-on.
func (a *Allocator) Allocate(midiChannel, midiNote, program, instrumentMeta int, needFourOp bool) (v1, v2 int) {
	voices := a.driver.Voices()
	cands := a.candidates(needFourOp)
	if len(cands) == 0 {
		return opl3.NoVoice, opl3.NoVoice
	}

	best := opl3.NoVoice
	for _, idx := range cands {
		if voices[idx].State == opl3.Off {
			best = idx
			break
		}
	}

	if best == opl3.NoVoice {
		// Nothing free: steal whichever busy candidate costs the least to
		// disturb (spec.md §4.4's age-based preemption).
		bestCost := -1.0
		for _, idx := range cands {
			c := a.cost(&voices[idx], midiChannel, instrumentMeta)
			if best == opl3.NoVoice || c > bestCost {
				best = idx
				bestCost = c
			}
		}
	}
	if best == opl3.NoVoice {
		return opl3.NoVoice, opl3.NoVoice
	}

	if voices[best].State != opl3.Off {
		a.driver.NoteOff(best)
	}
	voices[best].Reset()
	voices[best].MidiChannel = midiChannel
	voices[best].MidiNote = midiNote
	voices[best].Program = program
	voices[best].State = opl3.On
	voices[best].AgeMs = 0

	if !needFourOp {
		return best, opl3.NoVoice
	}

	slave := a.slaveOf(best)
	if slave != opl3.NoVoice {
		voices[slave].Reset()
		voices[slave].MidiChannel = midiChannel
		voices[slave].MidiNote = midiNote
		voices[slave].Program = program
		voices[slave].State = opl3.On
		voices[slave].AgeMs = 0
	}
	return best, slave
}

// slaveOf returns the FourOpSlave paired with master voice v, or NoVoice if
// v isn't a configured four-op master.
func (a *Allocator) slaveOf(v int) int {
	voices := a.driver.Voices()
	if voices[v].FourOpRole != opl3.FourOpMaster {
		return opl3.NoVoice
	}
	chip := v / opl3.ChannelsPerChip
	local := v % opl3.ChannelsPerChip
	for _, pair := range opl3.FourOpPairs() {
		if pair[0] == local {
			return chip*opl3.ChannelsPerChip + pair[1]
		}
	}
	return opl3.NoVoice
}

// Release marks a note as no longer held. If sustain is active on its
// channel the voice keeps sounding in the Sustained state; otherwise it is
// keyed off immediately.
func (a *Allocator) Release(v int, sustained bool) {
	if v == opl3.NoVoice {
		return
	}
	voice := a.driver.Voice(v)
	if sustained {
		voice.State = opl3.Sustained
		return
	}
	a.driver.NoteOff(v)
	voice.State = opl3.Off
}

// AgeAll advances every voice's age by elapsedMs, clamping at
// opl3.AgeSentinel so long-running playback never overflows.
func (a *Allocator) AgeAll(elapsedMs float64) {
	for i := range a.driver.Voices() {
		voices := a.driver.Voices()
		voices[i].AgeMs += elapsedMs
		if voices[i].AgeMs > opl3.AgeSentinel {
			voices[i].AgeMs = opl3.AgeSentinel
		}
	}
}
