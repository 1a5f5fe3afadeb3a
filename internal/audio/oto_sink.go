package audio

import (
	"github.com/ebitengine/oto/v3"
)

const bytesPerSample = 2 // 16-bit signed

// OtoSink is the real-output Sink, backed by oto's cross-platform audio
// device. It follows the same pull architecture as the teacher's
// synthReader: oto calls Read on its own callback goroutine whenever it
// wants more bytes, and Read drains whatever the render thread has already
// pushed into the ring, padding with silence if the render thread falls
// behind (spec.md §5: the audio callback must never block waiting on the
// render thread).
type OtoSink struct {
	ctx    *oto.Context
	player *oto.Player
	ring   *Ring
}

// NewOtoSink opens the platform audio device at sampleRate with 2-channel
// 16-bit PCM and starts pulling from a freshly allocated ring buffer sized
// for bufferMs milliseconds of headroom.
func NewOtoSink(sampleRate, bufferMs int) (*OtoSink, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	capacitySamples := sampleRate * 2 * bufferMs / 1000
	s := &OtoSink{ctx: ctx, ring: NewRing(capacitySamples)}
	s.player = ctx.NewPlayer(&otoReader{sink: s})
	s.player.Play()
	return s, nil
}

// PushFrames implements Sink.
func (s *OtoSink) PushFrames(samples []int16) {
	s.ring.Push(samples)
}

// Close implements Sink. As of oto v3.4, Player.Close is a deprecated no-op;
// the player is reclaimed when garbage collected.
func (s *OtoSink) Close() error {
	return nil
}

// otoReader implements io.Reader for oto's pull-based callback.
type otoReader struct {
	sink *OtoSink
}

func (r *otoReader) Read(buf []byte) (int, error) {
	nsamples := len(buf) / bytesPerSample
	samples := make([]int16, nsamples)
	r.sink.ring.Pull(samples)

	for i, v := range samples {
		buf[i*2] = byte(v)
		buf[i*2+1] = byte(v >> 8)
	}
	return nsamples * bytesPerSample, nil
}
