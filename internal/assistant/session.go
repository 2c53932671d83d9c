package assistant

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"vira/internal/command"
)

type State int32

const (
	Idle State = iota
	Active
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

var (
	ErrNotIdle = errors.New("session already started")
	ErrStopped = errors.New("session is not active")
)

type Option func(*Session)

func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.log = l }
}

// Session drives one assistant conversation. Its state only moves
// Idle -> Active -> Stopped; the state is the liveness flag read by the
// listen loop and written by whichever goroutine handles a stop reply.
type Session struct {
	id     uuid.UUID
	engine *command.Engine
	log    *log.Logger

	state    atomic.Int32
	done     chan struct{}
	stopOnce sync.Once
}

func New(engine *command.Engine, opts ...Option) *Session {
	s := &Session{
		id:     uuid.New(),
		engine: engine,
		log:    log.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("session", s.id.String())
	return s
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) Name() string { return s.engine.Name() }

func (s *Session) Engine() *command.Engine { return s.engine }

func (s *Session) State() State { return State(s.state.Load()) }

// Done is closed once the session is stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Start() error {
	if !s.state.CompareAndSwap(int32(Idle), int32(Active)) {
		return fmt.Errorf("%w: state %s", ErrNotIdle, s.State())
	}
	s.log.Info("Session started")
	return nil
}

func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.state.Store(int32(Stopped))
		close(s.done)
		s.log.Info("Session stopped")
	})
}

// Welcome is the line spoken when a session starts.
func (s *Session) Welcome() string {
	return fmt.Sprintf("Hello! I'm %s, your voice assistant. How can I help you?", s.engine.Name())
}

// Handle resolves one utterance. A stop reply moves the session to Stopped;
// once stopped, no further utterances are resolved.
func (s *Session) Handle(_ context.Context, utterance string) (command.Reply, error) {
	if s.State() != Active {
		return command.Reply{}, ErrStopped
	}

	reply := s.engine.Respond(utterance)

	s.log.Info("Handled", "utterance", utterance, "source", reply.Source.String(), "kind", string(reply.Kind))

	if reply.Stop {
		s.Stop()
	}

	return reply, nil
}
