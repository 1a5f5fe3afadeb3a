package opl3

import "testing"

// fakeChip records every register write so tests can assert on the exact
// boot/note sequence without a real FM core.
type fakeChip struct {
	initRate int
	writes   []regWrite
}

type regWrite struct {
	addr uint16
	val  uint8
}

func (f *fakeChip) Init(sampleRate int) { f.initRate = sampleRate }
func (f *fakeChip) WriteReg(addr uint16, val uint8) {
	f.writes = append(f.writes, regWrite{addr, val})
}
func (f *fakeChip) Generate(buf []int16, nsamples int) {}

type fakeOps struct{}

func (fakeOps) CarrierE862(i int) uint32   { return 0 }
func (fakeOps) ModulatorE862(i int) uint32 { return 0 }
func (fakeOps) CarrierTL(i int) uint8      { return 0x00 }
func (fakeOps) ModulatorTL(i int) uint8    { return 0x3F }
func (fakeOps) FeedConn(i int) uint8       { return 0x06 }

func newTestDriver(numChips, fourOps int) (*Driver, []*fakeChip) {
	chips := make([]Chip, numChips)
	raw := make([]*fakeChip, numChips)
	for i := range chips {
		fc := &fakeChip{}
		chips[i] = fc
		raw[i] = fc
	}
	d := NewDriver(chips, fourOps, fakeOps{})
	d.Reset(49716)
	return d, raw
}

func TestResetInitializesEachChipAtSampleRate(t *testing.T) {
	_, raw := newTestDriver(2, 0)
	for i, fc := range raw {
		if fc.initRate != 49716 {
			t.Errorf("chip %d: initRate = %d, want 49716", i, fc.initRate)
		}
	}
}

func TestResetAssignsFourOpRoles(t *testing.T) {
	d, _ := newTestDriver(1, 3)
	for _, pair := range fourOpPairs[:3] {
		master := d.Voice(pair[0])
		slave := d.Voice(pair[1])
		if master.FourOpRole != FourOpMaster {
			t.Errorf("voice %d: role = %v, want FourOpMaster", pair[0], master.FourOpRole)
		}
		if slave.FourOpRole != FourOpSlave {
			t.Errorf("voice %d: role = %v, want FourOpSlave", pair[1], slave.FourOpRole)
		}
	}
	for _, pair := range fourOpPairs[3:] {
		if d.Voice(pair[0]).FourOpRole != Regular {
			t.Errorf("voice %d: role = %v, want Regular", pair[0], d.Voice(pair[0]).FourOpRole)
		}
	}
}

func TestResetWritesFourOpBitmap(t *testing.T) {
	_, raw := newTestDriver(1, 3)
	found := false
	for _, w := range raw[0].writes {
		if w.addr == 0x104 {
			found = true
			if w.val != 0x07 {
				t.Errorf("0x104 bitmap = %#x, want 0x07", w.val)
			}
		}
	}
	if !found {
		t.Fatal("0x104 four-op bitmap was never written")
	}
}

func TestNoteOnThenNoteOffPreservesFNumBits(t *testing.T) {
	d, raw := newTestDriver(1, 0)
	raw[0].writes = nil

	d.NoteOn(0, 440.0)
	var hiAfterOn uint8
	for _, w := range raw[0].writes {
		if w.addr == 0xB0+Channels[0] {
			hiAfterOn = w.val
		}
	}
	if hiAfterOn&0x20 == 0 {
		t.Fatalf("NoteOn: key-on bit not set, got %#x", hiAfterOn)
	}

	d.NoteOff(0)
	var hiAfterOff uint8
	for i := len(raw[0].writes) - 1; i >= 0; i-- {
		if raw[0].writes[i].addr == 0xB0+Channels[0] {
			hiAfterOff = raw[0].writes[i].val
			break
		}
	}
	if hiAfterOff&0x20 != 0 {
		t.Fatalf("NoteOff: key-on bit still set, got %#x", hiAfterOff)
	}
	if hiAfterOff&0x1F != hiAfterOn&0x1F {
		t.Fatalf("NoteOff changed block/F-number bits: before %#x after %#x", hiAfterOn, hiAfterOff)
	}
}

func TestNoteOnHalvesFrequencyUntilBelowThreshold(t *testing.T) {
	d, raw := newTestDriver(1, 0)
	raw[0].writes = nil
	d.NoteOn(0, 4000.0) // must climb several blocks before settling under 1023.5

	var hi uint8
	for _, w := range raw[0].writes {
		if w.addr == 0xB0+Channels[0] {
			hi = w.val
		}
	}
	block := (hi >> 2) & 0x07
	if block == 0 {
		t.Errorf("expected a nonzero block for 4000Hz, got block=%d from hi=%#x", block, hi)
	}
}

func TestTouchZeroVolumeMaxesAttenuation(t *testing.T) {
	d, raw := newTestDriver(1, 0)
	raw[0].writes = nil
	d.TouchReal(0, 0)

	op := Operators[0]
	var carrierByte uint8
	found := false
	for _, w := range raw[0].writes {
		if w.addr == 0x40+op {
			carrierByte = w.val
			found = true
		}
	}
	if !found {
		t.Fatal("0x40 carrier TL byte never written")
	}
	if carrierByte&0x3F != 0x3F {
		t.Errorf("TouchReal(0): carrier TL = %#x, want max attenuation 0x3F", carrierByte&0x3F)
	}
}

func TestTouchBelowThresholdSilences(t *testing.T) {
	d, raw := newTestDriver(1, 0)
	raw[0].writes = nil
	d.Touch(0, 8725)

	op := Operators[0]
	var carrierByte uint8
	for _, w := range raw[0].writes {
		if w.addr == 0x40+op {
			carrierByte = w.val
		}
	}
	if carrierByte&0x3F != 0x3F {
		t.Errorf("Touch(8725): carrier TL = %#x, want max attenuation", carrierByte&0x3F)
	}
}

func TestSilenceKeysOffAndZeroesVolumeForAllVoices(t *testing.T) {
	d, raw := newTestDriver(1, 0)
	d.NoteOn(5, 440.0)
	raw[0].writes = nil

	d.Silence()

	keyBitSeen := false
	for _, w := range raw[0].writes {
		if w.addr == 0xB0+Channels[5] && w.val&0x20 != 0 {
			keyBitSeen = true
		}
	}
	if keyBitSeen {
		t.Error("Silence left a key-on bit set")
	}
}
