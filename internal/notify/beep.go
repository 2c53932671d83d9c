// Package notify tells the user the assistant is listening: an audible cue
// played through the default output, and a desktop notification.
package notify

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// Beeper plays an mp3 cue. The output device is opened on the first Beep
// at the cue's sample rate and stays open.
type Beeper struct {
	path string

	once    sync.Once
	initErr error
}

func NewBeeper(path string) *Beeper {
	return &Beeper{path: path}
}

// Beep plays the cue and blocks until it finishes or ctx is done. An empty
// path disables the cue.
func (b *Beeper) Beep(ctx context.Context) error {
	if b.path == "" {
		return nil
	}

	f, err := os.Open(b.path)
	if err != nil {
		return fmt.Errorf("open cue: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode cue %s: %w", b.path, err)
	}
	defer streamer.Close()

	b.once.Do(func() {
		b.initErr = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
	if b.initErr != nil {
		return fmt.Errorf("init speaker: %w", b.initErr)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// Desktop shows a short notification through notify-send.
func Desktop(ctx context.Context, text string) error {
	if err := exec.CommandContext(ctx, "notify-send", "-t", "2000", "Vira", text).Run(); err != nil {
		return fmt.Errorf("notify-send: %w", err)
	}
	return nil
}
