package proxy

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDialerDirect(t *testing.T) {
	d, err := NewDialer("")
	require.NoError(t, err)
	assert.IsType(t, &net.Dialer{}, d)
}

func TestNewDialerSocks(t *testing.T) {
	d, err := NewDialer("127.0.0.1:1")
	require.NoError(t, err)
	require.NotNil(t, d)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = d.DialContext(ctx, "tcp", "example.invalid:80")
	assert.Error(t, err, "nothing listens on the proxy port")
}
