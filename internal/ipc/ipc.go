// Package ipc is the unix-socket control channel between vira-ctl and
// vira-daemon. Each connection carries one JSON ControlMessage and gets one
// JSON Response back.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const (
	CmdTrigger = "trigger"
	CmdSay     = "say"
	CmdStop    = "stop"
)

var ErrClosed = errors.New("ipc server closed")

type ControlMessage struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text,omitempty"`
}

type Response struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// HandlerFunc answers one control message. A returned error is sent to the
// client as Response.Error.
type HandlerFunc func(ctx context.Context, msg ControlMessage) (string, error)

type Server struct {
	path    string
	ln      net.Listener
	handler HandlerFunc
	log     *log.Logger

	closed atomic.Bool
	conns  sync.WaitGroup
}

// Listen binds the socket at path, removing a stale one left by a previous
// run.
func Listen(path string, handler HandlerFunc, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Default()
	}

	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	return &Server{
		path:    path,
		ln:      ln,
		handler: handler,
		log:     logger.With("socket", path),
	}, nil
}

func (s *Server) Path() string { return s.path }

// Serve accepts connections until ctx is cancelled or Close is called, then
// waits for in-flight requests and returns ErrClosed.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()
	defer s.conns.Wait()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.closed.Load() {
				return ErrClosed
			}
			s.log.Warn("Accept failed", "err", err)
			continue
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.ln.Close()
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		s.log.Warn("Bad control message", "err", err)
		return
	}

	s.log.Debug("Control message", "cmd", msg.Cmd)

	var resp Response
	text, err := s.handler(ctx, msg)
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.Text = text
	}

	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		s.log.Warn("Failed to answer", "cmd", msg.Cmd, "err", err)
	}
}

// Send delivers msg to the daemon at path and waits for its response.
func Send(ctx context.Context, path string, msg ControlMessage) (Response, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
		defer stop()
	}

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return Response{}, fmt.Errorf("send %s: %w", msg.Cmd, err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read %s response: %w", msg.Cmd, err)
	}

	if resp.Error != "" {
		return resp, fmt.Errorf("%s: %s", msg.Cmd, resp.Error)
	}

	return resp, nil
}
