package ipc

import (
	"context"
	"errors"
	"io"
	log "log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func serve(t *testing.T, h HandlerFunc) (*Server, chan error) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vira.sock")
	srv, err := Listen(path, h, log.New(log.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()

	return srv, done
}

func echo(_ context.Context, msg ControlMessage) (string, error) {
	switch msg.Cmd {
	case CmdSay:
		return strings.ToUpper(msg.Text), nil
	case CmdStop:
		return "bye", nil
	default:
		return "", errors.New("unknown command")
	}
}

func TestSendRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv, done := serve(t, echo)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := Send(ctx, srv.Path(), ControlMessage{Cmd: CmdSay, Text: "what time is it"})
	require.NoError(t, err)
	assert.Equal(t, "WHAT TIME IS IT", resp.Text)

	resp, err = Send(ctx, srv.Path(), ControlMessage{Cmd: CmdStop})
	require.NoError(t, err)
	assert.Equal(t, "bye", resp.Text)

	require.NoError(t, srv.Close())
	require.ErrorIs(t, <-done, ErrClosed)
}

func TestSendHandlerError(t *testing.T) {
	srv, done := serve(t, echo)
	defer func() {
		srv.Close()
		<-done
	}()

	resp, err := Send(context.Background(), srv.Path(), ControlMessage{Cmd: "dance"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
	assert.Equal(t, "unknown command", resp.Error)
}

func TestServeStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vira.sock")
	srv, err := Listen(path, echo, log.New(log.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestSendNoDaemon(t *testing.T) {
	_, err := Send(context.Background(), filepath.Join(t.TempDir(), "missing.sock"), ControlMessage{Cmd: CmdTrigger})
	require.Error(t, err)
}

func TestListenReplacesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vira.sock")
	logger := log.New(log.NewTextHandler(io.Discard, nil))

	first, err := Listen(path, echo, logger)
	require.NoError(t, err)
	first.ln.(interface{ SetUnlinkOnClose(bool) }).SetUnlinkOnClose(false)
	require.NoError(t, first.Close())

	second, err := Listen(path, echo, logger)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}
