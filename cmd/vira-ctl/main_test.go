package main

import (
	"bytes"
	"context"
	"io"
	log "log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vira/internal/ipc"
)

func TestSocketFromEnvironment(t *testing.T) {
	t.Setenv("VIRA_SOCKET", "/run/user/1000/vira.sock")

	got, err := env.ParseAs[ctlEnv]()
	require.NoError(t, err)
	assert.Equal(t, "/run/user/1000/vira.sock", got.Socket)
}

func TestSocketDefault(t *testing.T) {
	t.Setenv("VIRA_SOCKET", "")
	os.Unsetenv("VIRA_SOCKET")

	got, err := env.ParseAs[ctlEnv]()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/vira.sock", got.Socket)
}

func TestSayThroughDaemon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vira.sock")

	got := make(chan ipc.ControlMessage, 1)
	srv, err := ipc.Listen(path, func(_ context.Context, msg ipc.ControlMessage) (string, error) {
		got <- msg
		return "The current time is 02:07 PM", nil
	}, log.New(log.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()
	defer func() {
		srv.Close()
		<-done
	}()

	var out bytes.Buffer
	cmd := newRootCmd(ctlEnv{Socket: path})
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"say", "what", "time", "is", "it"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Equal(t, ipc.ControlMessage{Cmd: ipc.CmdSay, Text: "what time is it"}, <-got)
	assert.Equal(t, "The current time is 02:07 PM\n", out.String())
}

func TestNoDaemon(t *testing.T) {
	cmd := newRootCmd(ctlEnv{Socket: filepath.Join(t.TempDir(), "absent.sock")})
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"stop"})

	err := cmd.ExecuteContext(context.Background())
	require.ErrorContains(t, err, "vira-daemon")
}
