package socks5

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Dialer establishes the outbound connection for a CONNECT request. It
// mirrors net.Dialer's DialContext and is satisfied by the
// internal/dialer implementations.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Config carries the per-server settings a Session needs. The same value
// is shared read-only by all sessions.
type Config struct {
	// Auth holds the expected RFC 1929 credentials.
	Auth Auth

	// NoAuth disables username/password: only MethodNone is offered to
	// clients and the sub-negotiation phase never runs.
	NoAuth bool

	// Dialer opens the outbound connection.
	Dialer Dialer

	// Logf, when non-nil, receives per-session progress notices.
	Logf func(format string, args ...any)
}

// Session drives one accepted client connection through the SOCKS5
// phases: greeting, method selection, optional authentication, request,
// connect, relay. One instance per connection, run once. The session
// does not close conn; the caller owns it.
type Session struct {
	cfg  Config
	conn net.Conn
}

func NewSession(conn net.Conn, cfg Config) *Session {
	return &Session{cfg: cfg, conn: conn}
}

// Run executes the session to completion. Every failure is local to this
// session; where the protocol defines a failure reply it is sent
// best-effort before the error is returned, and a transport error while
// sending that reply takes precedence over the error it was reporting.
func (s *Session) Run(ctx context.Context) error {
	method, err := s.negotiate()
	if err != nil {
		return err
	}

	if method == MethodUserPass {
		if err := s.authenticate(); err != nil {
			return err
		}
	}

	req, err := ReadRequest(s.conn)
	if err != nil {
		return err
	}

	if req.Cmd != CmdConnect {
		if werr := WriteReply(s.conn, RepCommandNotSupported, nil); werr != nil {
			return werr
		}
		return fmt.Errorf("%s: %w", req.Cmd, ErrCommandNotSupported)
	}

	target := req.Target()
	s.logf("connecting to %s", target)

	remote, err := s.cfg.Dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		if werr := WriteReply(s.conn, RepGeneralFailure, nil); werr != nil {
			return werr
		}
		return fmt.Errorf("connect %s: %w", target, err)
	}
	defer remote.Close()

	// LocalAddr of the outbound conn is the bound address reported to
	// the client; WriteReply substitutes 0.0.0.0:0 if it is unusable.
	if err := WriteReply(s.conn, RepSuccess, remote.LocalAddr()); err != nil {
		return err
	}

	sent, received, err := Relay(s.conn, remote)
	s.logf("relay %s done: %d bytes sent, %d received", target, sent, received)
	return err
}

// negotiate reads the greeting and answers with the chosen method.
// Choosing MethodNoAcceptable is itself answered on the wire before the
// session terminates; it is a protocol-compliant rejection.
func (s *Session) negotiate() (byte, error) {
	greeting, err := ReadGreeting(s.conn)
	if err != nil {
		return 0, err
	}

	method := s.chooseMethod(greeting)
	if err := WriteMethodSelection(s.conn, method); err != nil {
		return 0, err
	}
	if method == MethodNoAcceptable {
		return 0, ErrNoAcceptableMethod
	}
	return method, nil
}

// chooseMethod prefers username/password when the server requires
// authentication and the client offers it, then no-auth, then rejection.
func (s *Session) chooseMethod(g *Greeting) byte {
	if !s.cfg.NoAuth && g.Contains(MethodUserPass) {
		return MethodUserPass
	}
	if g.Contains(MethodNone) {
		return MethodNone
	}
	return MethodNoAcceptable
}

func (s *Session) authenticate() error {
	req, err := ReadUserPassRequest(s.conn)
	if err != nil {
		if errors.Is(err, ErrProtocolVersion) {
			// Malformed sub-negotiation gets a failure verdict
			// before the session ends.
			if werr := WriteUserPassReply(s.conn, false); werr != nil {
				return werr
			}
			return fmt.Errorf("%w: %w", ErrAuthFailed, err)
		}
		return err
	}

	if !s.cfg.Auth.Verify(req.Username, req.Password) {
		if werr := WriteUserPassReply(s.conn, false); werr != nil {
			return werr
		}
		return fmt.Errorf("user %q: %w", req.Username, ErrAuthFailed)
	}

	if err := WriteUserPassReply(s.conn, true); err != nil {
		return err
	}
	s.logf("authenticated user %q", req.Username)
	return nil
}

func (s *Session) logf(format string, args ...any) {
	if s.cfg.Logf != nil {
		s.cfg.Logf(format, args...)
	}
}
