// Package player implements the MIDI-to-FM playback engine: per-channel
// controller state, the FM voice allocator, the event scheduler, and the
// Player that wires them to an internal/opl3.Driver.
package player

import "gitlab.com/gomidi/midi/v2"

// Controller numbers this player tracks (spec.md §4.3 channel-event table).
const (
	ccBankSelectMSB   = 0
	ccModWheel        = 1
	ccPortamentoTime  = 5
	ccDataEntryMSB    = 6
	ccVolume          = 7
	ccPan             = 10
	ccExpression      = 11
	ccBankSelectLSB   = 32
	ccDataEntryLSB    = 38
	ccSustain         = 64
	ccPortamento      = 65
	ccSoundVariation  = 70
	ccTimbre          = 71
	ccReleaseTime     = 72
	ccAttackTime      = 73
	ccBrightness      = 74
	ccReverbSend      = 91
	ccChorusSend      = 93
	ccNRPNLSB         = 98
	ccNRPNMSB         = 99
	ccRPNLSB          = 100
	ccRPNMSB          = 101
	ccAllSoundOff     = 120
	ccAllControlsOff  = 121
	ccAllNotesOff     = 123
)

// RPN addresses (MSB, LSB) this player recognizes, per the MIDI spec; pitch
// bend range is (0,0).
const (
	rpnMSBPitchBendRange = 0
	rpnLSBPitchBendRange = 0
	rpnMSBFineTune       = 0
	rpnLSBFineTune       = 1
	rpnMSBCoarseTune     = 0
	rpnLSBCoarseTune     = 2
	rpnNull              = 0x7F
)

// ActiveNote ties a sounding MIDI note to its allocated physical voices.
// Voice2 is opl3.NoVoice for a two-op note.
type ActiveNote struct {
	Voice1, Voice2 int
	Tone           int   // the played key (or the instrument's tone override), before pitch bend
	Velocity       uint8 // note-on velocity, used for volume updates
}

// Channel holds one MIDI channel's running controller state (spec.md §4.3).
type Channel struct {
	Program  int
	BankMSB  uint8
	BankLSB  uint8

	Volume     uint8 // CC7, default 100
	Expression uint8 // CC11, default 127
	Pan        uint8 // CC10, default 64 (center)

	PitchBendUnits int16   // raw -8192..8191 from the last pitch-bend message
	BendSemitones  float64 // BendSensitivity in semitones (RPN 0)
	FineTuneCents  float64 // RPN 1
	CoarseTune     float64 // RPN 2, semitones

	Sustain bool

	rpnMSB, rpnLSB   uint8
	nrpnMSB, nrpnLSB uint8
	rpnSelected      bool // true once an RPN (not NRPN) address is current

	ActiveNotes map[int]*ActiveNote
}

// NewChannel returns a channel with General MIDI power-up defaults.
func NewChannel() *Channel {
	return &Channel{
		Program:       0,
		Volume:        100,
		Expression:    127,
		Pan:           64,
		BendSemitones: 2,
		rpnMSB:        rpnNull,
		rpnLSB:        rpnNull,
		nrpnMSB:       rpnNull,
		nrpnLSB:       rpnNull,
		ActiveNotes:   make(map[int]*ActiveNote),
	}
}

// BankIndex resolves the combined bank-select value into a single bank table
// index the way this player's bank data is organized: MSB selects the bank,
// LSB is reserved for future use and currently ignored.
func (c *Channel) BankIndex() int {
	return int(c.BankMSB)
}

// HandleControlChange applies one CC message to the channel's running state.
// Returns true if the change affects currently-sounding notes and the caller
// should re-touch/re-pitch them.
func (c *Channel) HandleControlChange(controller, value uint8) (retouch bool) {
	switch controller {
	case ccBankSelectMSB:
		c.BankMSB = value
	case ccBankSelectLSB:
		c.BankLSB = value
	case ccVolume:
		c.Volume = value
		return true
	case ccExpression:
		c.Expression = value
		return true
	case ccPan:
		c.Pan = value
		return true
	case ccSustain:
		c.Sustain = value >= 64
		return true
	case ccDataEntryMSB:
		c.applyDataEntry(value, true)
	case ccDataEntryLSB:
		c.applyDataEntry(value, false)
	case ccRPNMSB:
		c.rpnMSB = value
		c.rpnSelected = true
	case ccRPNLSB:
		c.rpnLSB = value
		c.rpnSelected = true
	case ccNRPNMSB:
		c.nrpnMSB = value
		c.rpnSelected = false
	case ccNRPNLSB:
		c.nrpnLSB = value
		c.rpnSelected = false
	case ccAllSoundOff, ccAllNotesOff:
		return true
	case ccAllControlsOff:
		c.resetControllers()
		return true
	}
	return false
}

func (c *Channel) applyDataEntry(value uint8, isMSB bool) {
	if !c.rpnSelected {
		return // NRPN addresses are vendor-specific; this player ignores them
	}
	switch {
	case c.rpnMSB == rpnMSBPitchBendRange && c.rpnLSB == rpnLSBPitchBendRange && isMSB:
		c.BendSemitones = float64(value)
	case c.rpnMSB == rpnMSBFineTune && c.rpnLSB == rpnLSBFineTune:
		if isMSB {
			c.FineTuneCents = (float64(value) - 64) * 100 / 64
		}
	case c.rpnMSB == rpnMSBCoarseTune && c.rpnLSB == rpnLSBCoarseTune && isMSB:
		c.CoarseTune = float64(value) - 64
	}
}

func (c *Channel) resetControllers() {
	c.Expression = 127
	c.Sustain = false
	c.PitchBendUnits = 0
}

// HandleProgramChange sets the channel's program.
func (c *Channel) HandleProgramChange(program uint8) {
	c.Program = int(program)
}

// HandlePitchBend sets the raw -8192..8191 bend value.
func (c *Channel) HandlePitchBend(relative int16) {
	c.PitchBendUnits = relative
}

// BendOffset returns the channel's current pitch bend expressed in
// semitones, including RPN 1/2 static tuning.
func (c *Channel) BendOffset() float64 {
	bend := float64(c.PitchBendUnits) / 8192.0 * c.BendSemitones
	return bend + c.CoarseTune + c.FineTuneCents/100
}

// VolumeWord combines channel volume, expression and note velocity into the
// raw 0..127^3 (0..2048383) volume product opl3.Driver.Touch expects
// (spec.md §4.5: vol = chanVolume * expression * noteVelocity).
func (c *Channel) VolumeWord(velocity uint8) int {
	v := int(c.Volume) * int(c.Expression) * int(velocity)
	return v
}

// DecodeChannelEvent wraps raw channel-voice bytes in a gomidi Message; the
// caller decodes it with gomidi's typed Get* accessors so this package never
// hand-rolls MIDI status-byte bit twiddling.
func DecodeChannelEvent(raw []byte) midi.Message {
	return midi.Message(raw)
}
