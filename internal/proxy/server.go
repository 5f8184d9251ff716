package proxy

import (
	"context"
	"fmt"
	"log"
	"net"

	"github.com/die-net/socksd/internal/dialer"
	"github.com/die-net/socksd/internal/socks5"
)

type Config struct {
	// Auth holds the expected RFC 1929 credentials.
	Auth socks5.Auth

	// NoAuth runs the server in no-authentication mode.
	NoAuth bool

	KeepAlive net.KeepAliveConfig

	Dialer dialer.Dialer
}

// Server accepts SOCKS5 clients and runs one session goroutine per
// connection. A session failure never affects the listener or other
// sessions.
type Server struct {
	cfg     Config
	verbose bool
}

func NewServer(cfg Config, verbose bool) *Server {
	return &Server{cfg: cfg, verbose: verbose}
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(ctx, c)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	cfg := socks5.Config{
		Auth:   s.cfg.Auth,
		NoAuth: s.cfg.NoAuth,
		Dialer: s.cfg.Dialer,
	}
	if s.verbose {
		remote := conn.RemoteAddr()
		cfg.Logf = func(format string, args ...any) {
			log.Printf("%s: %s", remote, fmt.Sprintf(format, args...))
		}
	}

	if err := socks5.NewSession(conn, cfg).Run(ctx); err != nil && s.verbose {
		log.Printf("%s: session: %v", conn.RemoteAddr(), err)
	}
}
