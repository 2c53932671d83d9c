package proxy

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/proxy"
)

// NewDialer returns a dialer that goes through the SOCKS5 proxy at
// socksAddr, or dials directly when socksAddr is empty.
func NewDialer(socksAddr string) (proxy.ContextDialer, error) {
	if socksAddr == "" {
		return &net.Dialer{}, nil
	}

	dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 %s: %w", socksAddr, err)
	}

	cd, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return contextless{dialer}, nil
	}

	return cd, nil
}

type contextless struct {
	d proxy.Dialer
}

func (c contextless) DialContext(_ context.Context, network, addr string) (net.Conn, error) {
	return c.d.Dial(network, addr)
}
