package command

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	log "log/slog"
	"math/rand/v2"
	"time"
)

// Reply is what the assistant says back for one utterance.
type Reply struct {
	Text   string
	Kind   Kind
	Source Source
	Phrase string
	Stop   bool
}

type Option func(*engineConfig)

type engineConfig struct {
	name     string
	rng      *rand.Rand
	clock    func() time.Time
	override string
	logger   *log.Logger
}

func WithName(name string) Option {
	return func(c *engineConfig) { c.name = name }
}

func WithRand(rng *rand.Rand) Option {
	return func(c *engineConfig) { c.rng = rng }
}

func WithClock(clock func() time.Time) Option {
	return func(c *engineConfig) { c.clock = clock }
}

// WithOverrideFile layers the phrases from path over the built-in table.
// An unreadable or malformed file is logged and ignored.
func WithOverrideFile(path string) Option {
	return func(c *engineConfig) { c.override = path }
}

func WithLogger(l *log.Logger) Option {
	return func(c *engineConfig) { c.logger = l }
}

// Engine owns the command table and turns utterances into replies.
// It is safe for concurrent use.
type Engine struct {
	name      string
	table     *Table
	responder *Responder
	log       *log.Logger
}

func NewEngine(opts ...Option) *Engine {
	cfg := engineConfig{
		name:   "Vira",
		clock:  time.Now,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.rng == nil {
		seed := newSeed()
		cfg.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}

	var override map[string]Handler
	if cfg.override != "" {
		var err error
		override, err = LoadOverride(cfg.override)
		if err != nil {
			cfg.logger.Warn("Ignoring command override", "path", cfg.override, "err", err)
			override = nil
		} else {
			cfg.logger.Debug("Loaded command override", "path", cfg.override, "phrases", len(override))
		}
	}

	e := &Engine{
		name:      cfg.name,
		table:     Build(override),
		responder: NewResponder(cfg.name, cfg.rng, cfg.clock),
		log:       cfg.logger,
	}

	e.log.Info("Command table ready", "name", e.name, "commands", e.table.Len())

	return e
}

func (e *Engine) Name() string { return e.name }

func (e *Engine) Table() *Table { return e.table }

func (e *Engine) Responder() *Responder { return e.responder }

func (e *Engine) Help() string { return e.responder.Help() }

// Respond resolves utterance and runs its handler. It never fails: handler
// errors and panics become MsgFailure.
func (e *Engine) Respond(utterance string) Reply {
	m := Resolve(e.table, utterance)

	switch m.Source {
	case SourceEmpty:
		return Reply{Text: MsgDidNotCatch, Source: m.Source}
	case SourceNone:
		return Reply{Text: MsgNotSure, Source: m.Source}
	}

	h := m.Handler()
	reply := Reply{
		Kind:   h.Kind,
		Source: m.Source,
		Phrase: m.Entry.Phrase,
	}

	text, err := e.invoke(h)
	if err != nil {
		e.log.Error("Handler failed", "handler", h.String(), "utterance", utterance, "err", err)
		reply.Text = MsgFailure
		return reply
	}

	e.log.Debug("Resolved", "utterance", utterance, "source", m.Source.String(), "phrase", m.Entry.Phrase, "handler", h.String())

	reply.Text = text
	reply.Stop = h.Kind == KindStop

	return reply
}

func (e *Engine) invoke(h Handler) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return e.responder.Respond(h)
}

func newSeed() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}
