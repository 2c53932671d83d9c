package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"vira/internal/proxy"
)

const (
	KindUtterance = "utterance"
	KindReply     = "reply"
	Broadcast     = "ALL"
)

type Message struct {
	ID      string `json:"id,omitempty"`
	From    string `json:"from"`
	To      string `json:"to"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

type Config struct {
	URL   string
	Shard string
	Proxy string

	// Reconnect is the pause between redial attempts after the bus closes
	// the connection. Zero disables reconnecting.
	Reconnect time.Duration
	Logger    *log.Logger
}

// Bus is a websocket connection to the message bus. As a listener it yields
// the content of utterance messages addressed to this shard; as a speaker it
// replies to whoever sent the last utterance.
type Bus struct {
	cfg    Config
	dialer *websocket.Dialer
	log    *log.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	dead    bool // conn failed and will not be redialled
	peer    string
	replyTo string
}

func Dial(ctx context.Context, cfg Config) (*Bus, error) {
	if cfg.Shard == "" {
		cfg.Shard = "vira"
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse bus url: %w", err)
	}
	cfg.URL = u.String()

	netDialer, err := proxy.NewDialer(cfg.Proxy)
	if err != nil {
		return nil, err
	}

	dialer := &websocket.Dialer{
		NetDialContext:   netDialer.DialContext,
		HandshakeTimeout: 10 * time.Second,
	}

	b := &Bus{
		cfg:    cfg,
		dialer: dialer,
		log:    cfg.Logger.With("bus", cfg.URL),
	}

	if err := b.connect(ctx); err != nil {
		return nil, err
	}

	b.log.Info("Connected to bus", "shard", cfg.Shard)
	return b, nil
}

func (b *Bus) connect(ctx context.Context) error {
	conn, _, err := b.dialer.DialContext(ctx, b.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial bus: %w", err)
	}

	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()

	return nil
}

func (b *Bus) current() *websocket.Conn {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn
}

func (b *Bus) Read() (*Message, error) {
	_, data, err := b.current().ReadMessage()
	if err != nil {
		return nil, err
	}

	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode bus message: %w", err)
	}

	return &m, nil
}

func (b *Bus) Write(m *Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.conn.WriteMessage(websocket.TextMessage, data)
}

func (b *Bus) Close() error {
	conn := b.current()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return conn.Close()
}

// Listen blocks until an utterance for this shard arrives. Cancelling ctx
// closes the connection to unblock the read. A failed connection is never
// read again: it is redialled, or Listen reports io.EOF from then on when
// reconnecting is disabled.
func (b *Bus) Listen(ctx context.Context) (string, error) {
	for {
		b.mu.Lock()
		conn, dead := b.conn, b.dead
		b.mu.Unlock()
		if dead {
			return "", io.EOF
		}

		stop := context.AfterFunc(ctx, func() { conn.Close() })
		m, err := b.Read()
		stop()

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		if err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				b.log.Warn("Failed to parse", "err", err)
				continue
			}

			conn.Close()
			if isClosed(err) {
				b.log.Info("Bus closed the connection", "err", err)
			} else {
				b.log.Warn("Bus connection lost", "err", err)
			}

			if b.cfg.Reconnect <= 0 {
				b.mu.Lock()
				b.dead = true
				b.mu.Unlock()
				return "", io.EOF
			}
			if err := b.reconnect(ctx); err != nil {
				return "", err
			}
			continue
		}

		if m.Kind != KindUtterance || !b.addressedToUs(m) {
			continue
		}

		b.mu.Lock()
		b.peer, b.replyTo = m.From, m.ID
		b.mu.Unlock()

		return m.Content, nil
	}
}

// Speak replies to the sender of the most recent utterance, or broadcasts
// when nothing was heard yet.
func (b *Bus) Speak(_ context.Context, text string) error {
	b.mu.Lock()
	to, id := b.peer, b.replyTo
	b.mu.Unlock()

	if to == "" {
		to = Broadcast
	}
	if id == "" {
		id = uuid.NewString()
	}

	return b.Write(&Message{
		ID:      id,
		From:    b.cfg.Shard,
		To:      to,
		Kind:    KindReply,
		Content: text,
	})
}

func (b *Bus) addressedToUs(m *Message) bool {
	return m.To == "" || m.To == Broadcast || strings.EqualFold(m.To, b.cfg.Shard)
}

func (b *Bus) reconnect(ctx context.Context) error {
	for {
		b.log.Warn("Trying to reconnect")

		if err := b.connect(ctx); err == nil {
			b.log.Info("Successfully reconnected")
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.cfg.Reconnect):
		}
	}
}

func isClosed(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure)
}
