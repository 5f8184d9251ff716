package socks5

import "errors"

// Sentinel errors for the protocol failure modes a session can hit. Each
// is wrapped with fmt.Errorf("...: %w", ...) where more context exists,
// so callers test with errors.Is.
var (
	// ErrProtocolVersion is returned when a VER byte (or the RFC 1929
	// sub-negotiation version) is not the expected value.
	ErrProtocolVersion = errors.New("unsupported protocol version")

	// ErrMalformedRequest is returned when the reserved byte of a
	// request is non-zero.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrAddrType is returned for an ATYP value other than IPv4,
	// domain, or IPv6.
	ErrAddrType = errors.New("unsupported address type")

	// ErrNoAcceptableMethod is returned after the server has told the
	// client that none of its offered auth methods are acceptable.
	ErrNoAcceptableMethod = errors.New("no acceptable auth method")

	// ErrAuthFailed is returned when username/password verification
	// fails or the sub-negotiation itself is malformed.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrCommandNotSupported is returned after rejecting a valid
	// request whose command is not CONNECT.
	ErrCommandNotSupported = errors.New("command not supported")

	// ErrRelayPanic reports a panic recovered inside one of the relay
	// copy goroutines.
	ErrRelayPanic = errors.New("relay panic")
)
