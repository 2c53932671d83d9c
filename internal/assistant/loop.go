package assistant

import (
	"context"
	"errors"
	"io"
	"strings"
)

// Listener yields one utterance per call. An empty string means nothing
// was recognized. io.EOF ends the session loop.
type Listener interface {
	Listen(ctx context.Context) (string, error)
}

// Speaker delivers a reply to the user.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

type ListenerFunc func(ctx context.Context) (string, error)

func (f ListenerFunc) Listen(ctx context.Context) (string, error) { return f(ctx) }

type SpeakerFunc func(ctx context.Context, text string) error

func (f SpeakerFunc) Speak(ctx context.Context, text string) error { return f(ctx, text) }

type heard struct {
	text string
	err  error
}

// Run starts the session and loops listen -> handle -> speak until the
// session stops, ctx is cancelled or the listener reaches io.EOF.
//
// Listening happens on its own goroutine so a blocking capture never delays
// noticing cancellation. Each result is handed back over a channel and the
// next Listen call is only issued after the previous result was consumed.
func (s *Session) Run(ctx context.Context, in Listener, out Speaker) error {
	if err := s.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.say(ctx, out, s.Welcome())

	results := make(chan heard)
	next := make(chan struct{}, 1)
	listenerDone := make(chan struct{})

	go func() {
		defer close(listenerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case <-next:
			}

			text, err := in.Listen(ctx)

			select {
			case results <- heard{text: text, err: err}:
			case <-ctx.Done():
				return
			}
		}
	}()
	defer func() {
		cancel()
		<-listenerDone
	}()

	next <- struct{}{}

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return ctx.Err()
		case <-s.Done():
			return nil
		case h := <-results:
			if h.err != nil {
				if errors.Is(h.err, io.EOF) {
					s.log.Info("Input closed")
					s.Stop()
					return nil
				}
				if ctx.Err() != nil {
					s.Stop()
					return ctx.Err()
				}
				s.log.Warn("Listen failed", "err", h.err)
				next <- struct{}{}
				continue
			}

			if strings.TrimSpace(h.text) == "" {
				s.log.Debug("Nothing heard")
				next <- struct{}{}
				continue
			}

			reply, err := s.Handle(ctx, h.text)
			if err != nil {
				return nil
			}

			s.say(ctx, out, reply.Text)

			if reply.Stop {
				return nil
			}

			next <- struct{}{}
		}
	}
}

func (s *Session) say(ctx context.Context, out Speaker, text string) {
	if err := out.Speak(ctx, text); err != nil {
		s.log.Error("Failed to voice out", "err", err)
	}
}
