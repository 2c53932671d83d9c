package assistant

import (
	"bytes"
	"context"
	"errors"
	"io"
	log "log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"vira/internal/command"
)

func quietLogger() *log.Logger {
	return log.New(log.NewTextHandler(io.Discard, nil))
}

func newSession(t *testing.T) *Session {
	t.Helper()
	engine := command.NewEngine(
		command.WithLogger(quietLogger()),
		command.WithRand(rand.New(rand.NewPCG(7, 7))),
		command.WithClock(func() time.Time { return time.Date(2024, 1, 1, 9, 30, 0, 0, time.Local) }),
	)
	return New(engine, WithLogger(quietLogger()))
}

// script replays fixed utterances and then reports io.EOF.
type script struct {
	mu    sync.Mutex
	lines []string
	calls int
}

func (s *script) Listen(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

type recorder struct {
	mu    sync.Mutex
	lines []string
	err   error
}

func (r *recorder) Speak(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, text)
	return r.err
}

func (r *recorder) spoken() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func TestSessionStateMachine(t *testing.T) {
	s := newSession(t)
	assert.Equal(t, Idle, s.State())

	_, err := s.Handle(context.Background(), "hello")
	require.ErrorIs(t, err, ErrStopped, "idle sessions do not resolve")

	require.NoError(t, s.Start())
	assert.Equal(t, Active, s.State())
	require.ErrorIs(t, s.Start(), ErrNotIdle)

	reply, err := s.Handle(context.Background(), "what time is it")
	require.NoError(t, err)
	assert.Equal(t, "The current time is 09:30 AM", reply.Text)
	assert.Equal(t, Active, s.State())

	reply, err = s.Handle(context.Background(), "stop listening")
	require.NoError(t, err)
	assert.True(t, reply.Stop)
	assert.Equal(t, Stopped, s.State())

	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed after stop")
	}

	_, err = s.Handle(context.Background(), "hello")
	require.ErrorIs(t, err, ErrStopped)
	require.ErrorIs(t, s.Start(), ErrNotIdle)

	s.Stop()
	assert.Equal(t, Stopped, s.State())
}

func TestSessionStopPhrases(t *testing.T) {
	for _, phrase := range []string{"exit", "stop listening", "shutdown", "EXIT"} {
		t.Run(phrase, func(t *testing.T) {
			s := newSession(t)
			require.NoError(t, s.Start())

			reply, err := s.Handle(context.Background(), phrase)
			require.NoError(t, err)
			assert.Equal(t, Stopped, s.State())

			lower := strings.ToLower(reply.Text)
			assert.True(t, strings.Contains(lower, "goodbye") || strings.Contains(lower, "stopping"), reply.Text)
		})
	}
}

func TestRunUntilStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newSession(t)
	in := &script{lines: []string{"hello there", "", "   ", "purple elephant", "exit", "what time is it"}}
	out := &recorder{}

	require.NoError(t, s.Run(context.Background(), in, out))

	spoken := out.spoken()
	require.Len(t, spoken, 4)
	assert.Equal(t, s.Welcome(), spoken[0])
	assert.Contains(t, s.Engine().Responder().Greetings(), spoken[1])
	assert.Equal(t, command.MsgNotSure, spoken[2])
	assert.Equal(t, command.MsgGoodbye, spoken[3])
	assert.Equal(t, Stopped, s.State())

	in.mu.Lock()
	defer in.mu.Unlock()
	assert.Equal(t, []string{"what time is it"}, in.lines, "nothing is resolved after stop")
}

func TestRunEndsOnEOF(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newSession(t)
	out := &recorder{}

	require.NoError(t, s.Run(context.Background(), &script{lines: []string{"help"}}, out))

	assert.Equal(t, Stopped, s.State())
	assert.Len(t, out.spoken(), 2)
}

func TestRunCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newSession(t)
	ctx, cancel := context.WithCancel(context.Background())

	blocking := ListenerFunc(func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx, blocking, &recorder{}) }()

	require.Eventually(t, func() bool { return s.State() == Active }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, Stopped, s.State())
}

func TestRunExternalStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newSession(t)

	blocking := ListenerFunc(func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	errc := make(chan error, 1)
	go func() { errc <- s.Run(context.Background(), blocking, &recorder{}) }()

	require.Eventually(t, func() bool { return s.State() == Active }, time.Second, time.Millisecond)
	s.Stop()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestRunSurvivesListenAndSpeakErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newSession(t)

	calls := 0
	in := ListenerFunc(func(context.Context) (string, error) {
		calls++
		switch calls {
		case 1:
			return "", errors.New("microphone busy")
		case 2:
			return "tell me a joke", nil
		default:
			return "terminate", nil
		}
	})
	out := &recorder{err: errors.New("speaker unplugged")}

	require.NoError(t, s.Run(context.Background(), in, out))

	spoken := out.spoken()
	require.Len(t, spoken, 3)
	assert.Contains(t, command.Jokes(), spoken[1])
	assert.Equal(t, command.MsgGoodbye, spoken[2])
}

func TestRunTwice(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Run(context.Background(), &script{}, &recorder{}))
	require.ErrorIs(t, s.Run(context.Background(), &script{}, &recorder{}), ErrNotIdle)
}

func TestRunWithLines(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newSession(t)
	var buf bytes.Buffer

	in := NewLineListener(strings.NewReader("  What day is it?  \nthank you\nexit\nhello\nwhat time is it\n"))
	defer in.Close()
	out := NewWriterSpeaker(&buf, s.Name())

	require.NoError(t, s.Run(context.Background(), in, out))

	want := strings.Join([]string{
		"Vira: " + s.Welcome(),
		"Vira: Today is Monday, January 01, 2024",
		"Vira: You're welcome! Is there anything else I can help with?",
		"Vira: " + command.MsgGoodbye,
	}, "\n") + "\n"
	assert.Equal(t, want, buf.String())
}

func TestLineListenerEOF(t *testing.T) {
	l := NewLineListener(strings.NewReader("one\n"))

	text, err := l.Listen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "one", text)

	_, err = l.Listen(context.Background())
	require.ErrorIs(t, err, io.EOF)
}

func TestLineListenerClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLineListener(strings.NewReader("one\ntwo\nthree\n"))

	text, err := l.Listen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "one", text)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	_, err = l.Listen(context.Background())
	require.ErrorIs(t, err, io.EOF)
}

func TestMultiSpeaker(t *testing.T) {
	a, b := &recorder{}, &recorder{err: errors.New("boom")}

	err := MultiSpeaker{a, b}.Speak(context.Background(), "hi")
	require.EqualError(t, err, "boom")
	assert.Equal(t, []string{"hi"}, a.spoken())
	assert.Equal(t, []string{"hi"}, b.spoken())
}
