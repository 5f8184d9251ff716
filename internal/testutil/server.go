package testutil

import (
	"context"
	"net"
	"testing"
)

// StartSingleAcceptServer runs handler on the first accepted connection.
// The returned wait func closes the listener and blocks until the
// handler (if any ran) has returned.
func StartSingleAcceptServer(t *testing.T, ctx context.Context, handler func(net.Conn)) (net.Listener, func()) {
	t.Helper()

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		handler(c)
	}()

	wait := func() {
		_ = ln.Close()
		<-done
	}

	return ln, wait
}
