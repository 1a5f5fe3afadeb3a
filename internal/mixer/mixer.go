// Package mixer sums the raw PCM each opl3.Chip generates, blends in the
// reverb's wet signal, removes DC offset, and clips to the 16-bit stereo
// frames an audio.Sink expects (spec.md §5).
package mixer

import "github.com/icco/adlplay/internal/reverb"

// Chip is the subset of opl3.Chip the mixer needs: render nsamples of
// interleaved stereo PCM.
type Chip interface {
	Generate(buf []int16, nsamples int)
}

// dcBlockPole sets the cutoff of the one-pole DC-blocking highpass applied
// to the final stereo sum.
const dcBlockPole = 0.995

// Mixer renders a block of audio by pulling from every configured chip,
// summing them, running the result through reverb, and DC-blocking the
// final stereo pair.
type Mixer struct {
	chips  []Chip
	reverb reverb.Reverb

	dcPrevInL, dcPrevOutL float64
	dcPrevInR, dcPrevOutR float64

	scratch []int16 // reused per-chip render buffer
}

// NewMixer creates a mixer over chips, feeding a copy of the summed dry
// signal into rv for room ambience.
func NewMixer(chips []Chip, rv reverb.Reverb) *Mixer {
	return &Mixer{chips: chips, reverb: rv}
}

// Render produces nframes interleaved stereo frames (2*nframes int16
// samples) into out.
func (m *Mixer) Render(out []int16, nframes int) {
	need := nframes * 2
	if cap(m.scratch) < need {
		m.scratch = make([]int16, need)
	}
	scratch := m.scratch[:need]

	dryL := make([]float64, nframes)
	dryR := make([]float64, nframes)

	for _, chip := range m.chips {
		chip.Generate(scratch, nframes)
		for i := 0; i < nframes; i++ {
			dryL[i] += float64(scratch[i*2])
			dryR[i] += float64(scratch[i*2+1])
		}
	}

	if m.reverb != nil {
		mono := make([]float64, nframes)
		for i := range mono {
			mono[i] = (dryL[i] + dryR[i]) / 2
		}
		m.reverb.Feed(mono)
		wetL := make([]float64, nframes)
		wetR := make([]float64, nframes)
		m.reverb.Process(nframes, wetL, wetR)
		for i := 0; i < nframes; i++ {
			dryL[i] += wetL[i]
			dryR[i] += wetR[i]
		}
	}

	for i := 0; i < nframes; i++ {
		l := m.dcBlock(dryL[i], &m.dcPrevInL, &m.dcPrevOutL)
		r := m.dcBlock(dryR[i], &m.dcPrevInR, &m.dcPrevOutR)
		out[i*2] = clip16(l)
		out[i*2+1] = clip16(r)
	}
}

func (m *Mixer) dcBlock(in float64, prevIn, prevOut *float64) float64 {
	out := in - *prevIn + dcBlockPole**prevOut
	*prevIn = in
	*prevOut = out
	return out
}

func clip16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
