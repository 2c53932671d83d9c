package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	SampleRate    = 16000
	frameSize     = 320
	frameDuration = time.Second * frameSize / SampleRate

	silenceRMS    = 0.015
	trailingQuiet = 600 * time.Millisecond
)

var ErrNoSpeech = errors.New("no speech detected")

// Recorder captures mono 16 kHz audio from the default input device.
type Recorder struct {
	maxDur time.Duration
}

func NewRecorder(maxDur time.Duration) *Recorder {
	if maxDur <= 0 {
		maxDur = 10 * time.Second
	}
	return &Recorder{maxDur: maxDur}
}

func (r *Recorder) Init() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	return nil
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Record waits for speech and returns once it is followed by a stretch of
// silence, the maximum duration elapses or ctx is cancelled. Audio recorded
// before a cancellation is discarded.
func (r *Recorder) Record(ctx context.Context) ([]float32, error) {
	buf := make([]float32, frameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start input: %w", err)
	}
	defer stream.Stop()

	var vad detector
	maxFrames := int(r.maxDur / frameDuration)
	out := make([]float32, 0, SampleRate*3)

	for i := 0; i < maxFrames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}

		keep, done := vad.feed(buf)
		if keep {
			out = append(out, buf...)
		}
		if done {
			break
		}
	}

	if len(out) == 0 {
		return nil, ErrNoSpeech
	}

	return out, nil
}

// detector is an energy-based endpointer: frames are kept from the first
// loud frame on, and the utterance ends after trailingQuiet of silence.
type detector struct {
	speaking bool
	quiet    time.Duration
}

func (d *detector) feed(frame []float32) (keep, done bool) {
	if frameRMS(frame) > silenceRMS {
		d.speaking = true
		d.quiet = 0
		return true, false
	}

	if !d.speaking {
		return false, false
	}

	d.quiet += frameDuration
	if d.quiet >= trailingQuiet {
		return false, true
	}
	return true, false
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}

	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
