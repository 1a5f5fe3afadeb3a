package player

import (
	"fmt"

	"github.com/icco/adlplay/internal/banks"
	"github.com/icco/adlplay/internal/opl3"
	"github.com/icco/adlplay/internal/smf"
)

const numMidiChannels = 16

// percussionChannel is the fixed MIDI channel (0-indexed) General MIDI
// reserves for drum kits.
const percussionChannel = 9

// Display receives playback feedback for a terminal front end (spec.md §5).
type Display interface {
	IllustrateNote(voice, tone, instrument int, pressure uint8, bend float64)
	PrintLn(format string, args ...interface{})
}

// nullDisplay discards everything; used when the caller doesn't want one.
type nullDisplay struct{}

func (nullDisplay) IllustrateNote(int, int, int, uint8, float64) {}
func (nullDisplay) PrintLn(string, ...interface{})                {}

// Player wires the scheduler, voice allocator, MIDI channel state machine,
// and FM driver together into one playable song (spec.md §9b Player
// struct). It implements Sink so the Scheduler can drive it directly.
type Player struct {
	driver    *opl3.Driver
	allocator *Allocator
	scheduler *Scheduler
	bankTable *banks.Table
	bankIndex int
	display   Display

	channels [numMidiChannels]*Channel
}

// Config bundles the runtime settings SPEC_FULL.md's config package builds
// from CLI flags.
type Config struct {
	BankIndex  int
	NumCards   int
	NumFourOps int
	SampleRate int
}

// NewPlayer loads file and wires a Player ready to Tick through it. chips
// must have length cfg.NumCards; they are handed to a fresh opl3.Driver.
func NewPlayer(cfg Config, file *smf.File, chips []opl3.Chip, bankTable *banks.Table, display Display) (*Player, error) {
	if display == nil {
		display = nullDisplay{}
	}
	driver := opl3.NewDriver(chips, cfg.NumFourOps, bankTable)
	driver.Reset(cfg.SampleRate)

	p := &Player{
		driver:    driver,
		allocator: NewAllocator(driver),
		bankTable: bankTable,
		bankIndex: cfg.BankIndex,
		display:   display,
	}
	for i := range p.channels {
		p.channels[i] = NewChannel()
	}
	p.scheduler = NewScheduler(file, p)
	return p, nil
}

// Tick advances playback by granularity ticks, returning false once the
// song has reached its end on every track.
func (p *Player) Tick(granularity int64) bool {
	elapsedMs := p.scheduler.Position().TicksToSeconds(granularity) * 1000
	p.allocator.AgeAll(elapsedMs)
	return p.scheduler.Tick(granularity)
}

// AtEnd reports whether the song has finished.
func (p *Player) AtEnd() bool { return p.scheduler.Position().AtEnd }

// SchedulerPosition exposes the scheduler's tempo/loop state so callers
// (the render loop, diagnostics) can read the current tempo without
// reaching into the scheduler directly.
func (p *Player) SchedulerPosition() *Position { return p.scheduler.Position() }

// HandleChannelEvent implements Sink: it decodes one raw channel-voice
// message via gomidi's typed accessors and dispatches to the right
// MidiChannel/allocator operation.
func (p *Player) HandleChannelEvent(trackIndex int, status, data1, data2 byte) {
	msg := DecodeChannelEvent([]byte{status, data1, data2})
	ch := int(status & 0x0F)
	channel := p.channels[ch]

	var chanNum, key, velocity, controller, value, program uint8
	var relBend int16

	switch {
	case msg.GetNoteOn(&chanNum, &key, &velocity):
		if velocity == 0 {
			p.noteOff(ch, int(key))
			return
		}
		p.noteOn(ch, int(key), velocity)

	case msg.GetNoteOff(&chanNum, &key, &velocity):
		p.noteOff(ch, int(key))

	case msg.GetControlChange(&chanNum, &controller, &value):
		p.handleCC(ch, controller, value)

	case msg.GetProgramChange(&chanNum, &program):
		channel.HandleProgramChange(program)

	case msg.GetPitchBend(&chanNum, &relBend, nil):
		channel.HandlePitchBend(relBend)
		p.repitchChannel(ch)
	}
}

func (p *Player) handleCC(ch int, controller, value uint8) {
	channel := p.channels[ch]
	retouch := channel.HandleControlChange(controller, value)

	switch controller {
	case ccAllNotesOff, ccAllSoundOff:
		p.allNotesOff(ch)
		return
	}
	if retouch {
		for _, note := range channel.ActiveNotes {
			p.noteUpdate(ch, note, updateFlags{volume: true, pan: true})
		}
	}
	if controller == ccAllControlsOff {
		p.repitchChannel(ch)
	}
}

func (p *Player) repitchChannel(ch int) {
	channel := p.channels[ch]
	for _, note := range channel.ActiveNotes {
		p.noteUpdate(ch, note, updateFlags{pitch: true})
	}
}

// noteOn resolves the current program/bank to an instrument, allocates one
// or two physical voices, and programs them (spec.md §9's note-on hot path).
func (p *Player) noteOn(ch, key int, velocity uint8) {
	channel := p.channels[ch]

	midiins := channel.Program
	if ch == percussionChannel {
		midiins = 128 + key
	}

	meta, inst, ok := p.bankTable.Lookup(p.bankIndex, midiins)
	if !ok {
		return // unmapped instrument: silently drop, per spec.md §7
	}
	needFourOp := inst.Adlno1 != inst.Adlno2

	v1, v2 := p.allocator.Allocate(ch, key, midiins, meta, needFourOp)
	if v1 == opl3.NoVoice {
		return // pool exhausted and nothing admissible to steal
	}

	tone := key
	if inst.Tone != 0 {
		tone = inst.Tone
	}

	note := &ActiveNote{Voice1: v1, Voice2: v2, Tone: tone, Velocity: velocity}
	channel.ActiveNotes[key] = note

	p.driver.Voice(v1).InstrumentIndex = inst.Adlno1
	p.driver.Voice(v1).InstrumentMeta = meta
	if v2 != opl3.NoVoice {
		p.driver.Voice(v2).InstrumentIndex = inst.Adlno2
		p.driver.Voice(v2).InstrumentMeta = meta
	}

	p.noteUpdate(ch, note, updateFlags{patch: true, pan: true, volume: true, pitch: true})

	bend := channel.BendOffset()
	vol := int(channel.Volume) * int(velocity) / 127
	p.display.IllustrateNote(v1, tone, meta, uint8(vol&0x7F), bend)
}

func (p *Player) noteOff(ch, key int) {
	channel := p.channels[ch]
	note, ok := channel.ActiveNotes[key]
	if !ok {
		return
	}
	delete(channel.ActiveNotes, key)
	p.noteUpdate(ch, note, updateFlags{off: true})
}

func (p *Player) allNotesOff(ch int) {
	channel := p.channels[ch]
	for key, note := range channel.ActiveNotes {
		p.noteUpdate(ch, note, updateFlags{off: true})
		delete(channel.ActiveNotes, key)
	}
}

// HandleTempoChange implements Sink.
func (p *Player) HandleTempoChange(microsecondsPerQuarterNote int64) {
	p.display.PrintLn("tempo change: %.1f bpm", 60000000.0/float64(microsecondsPerQuarterNote))
}

// HandleLoopStart implements Sink; the scheduler records the tick position
// itself, this hook is for UI feedback only.
func (p *Player) HandleLoopStart() { p.display.PrintLn("loop start") }

// HandleLoopEnd implements Sink; the scheduler rewinds its tracks to the
// loopStart snapshot itself, this hook is for UI feedback only.
func (p *Player) HandleLoopEnd() { p.display.PrintLn("loop end") }

// String reports a one-line playback summary for diagnostics.
func (p *Player) String() string {
	return fmt.Sprintf("bank=%d %s", p.bankIndex, p.scheduler.Position())
}
