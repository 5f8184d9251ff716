package socks5

import (
	"fmt"
	"io"
	"net"

	"golang.org/x/sync/errgroup"
)

type closeWriter interface {
	CloseWrite() error
}

type closeReader interface {
	CloseRead() error
}

// Relay copies bytes between client and remote in both directions until
// both directions have finished. When one direction's copy ends (EOF or
// error), the destination's write half and the source's read half are
// shut down so the peer sees end-of-stream, while the opposite direction
// keeps flowing. A panic inside either copy is recovered and reported as
// an error. Byte counts are informational.
func Relay(client, remote net.Conn) (clientToRemote, remoteToClient int64, err error) {
	var g errgroup.Group

	g.Go(func() error {
		return copyDirection(remote, client, &clientToRemote)
	})
	g.Go(func() error {
		return copyDirection(client, remote, &remoteToClient)
	})

	err = g.Wait()
	return clientToRemote, remoteToClient, err
}

func copyDirection(dst, src net.Conn, n *int64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrRelayPanic, r)
		}
		// Half-close both ends of this direction. Propagates EOF to
		// the destination's reader without severing the other
		// direction. Not every net.Conn supports it (net.Pipe does
		// not); those see EOF when the session closes the sockets.
		if cw, ok := dst.(closeWriter); ok {
			_ = cw.CloseWrite()
		}
		if cr, ok := src.(closeReader); ok {
			_ = cr.CloseRead()
		}
	}()

	copied, err := io.Copy(dst, src)
	*n = copied
	if err != nil {
		return fmt.Errorf("relay copy: %w", err)
	}
	return nil
}
