package socks5

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strings"
	"unicode/utf8"
)

// The codec reads whole frames with io.ReadFull: SOCKS5 messages arrive
// fragmented across TCP segments, so every decode blocks until it has
// exactly the bytes the frame declares or the stream ends. Nothing is
// buffered across calls.

// Greeting is the client's opening message: the set of auth methods it
// offers. An empty method set is a valid parse.
type Greeting struct {
	Methods []byte
}

// Contains reports whether the client offered method m.
func (g *Greeting) Contains(m byte) bool {
	for _, b := range g.Methods {
		if b == m {
			return true
		}
	}
	return false
}

// ReadGreeting decodes VER NMETHODS METHODS from r.
func ReadGreeting(r io.Reader) (*Greeting, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("greeting header: %w", err)
	}
	if hdr[0] != Version {
		return nil, fmt.Errorf("greeting version 0x%02x: %w", hdr[0], ErrProtocolVersion)
	}

	methods := make([]byte, int(hdr[1]))
	if _, err := io.ReadFull(r, methods); err != nil {
		return nil, fmt.Errorf("greeting methods: %w", err)
	}
	return &Greeting{Methods: methods}, nil
}

// WriteMethodSelection sends the server's chosen method.
func WriteMethodSelection(w io.Writer, method byte) error {
	if _, err := w.Write([]byte{Version, method}); err != nil {
		return fmt.Errorf("method selection: %w", err)
	}
	return nil
}

// UserPassRequest is an RFC 1929 sub-negotiation request. Username and
// Password are the lossily decoded credential bytes: invalid UTF-8 is
// replaced with U+FFFD, never rejected.
type UserPassRequest struct {
	Username string
	Password string
}

// ReadUserPassRequest decodes VER ULEN UNAME PLEN PASSWD from r.
func ReadUserPassRequest(r io.Reader) (*UserPassRequest, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("userpass header: %w", err)
	}
	if hdr[0] != UserPassVersion {
		return nil, fmt.Errorf("userpass version 0x%02x: %w", hdr[0], ErrProtocolVersion)
	}

	uname := make([]byte, int(hdr[1]))
	if _, err := io.ReadFull(r, uname); err != nil {
		return nil, fmt.Errorf("userpass username: %w", err)
	}

	var plen [1]byte
	if _, err := io.ReadFull(r, plen[:]); err != nil {
		return nil, fmt.Errorf("userpass password length: %w", err)
	}
	passwd := make([]byte, int(plen[0]))
	if _, err := io.ReadFull(r, passwd); err != nil {
		return nil, fmt.Errorf("userpass password: %w", err)
	}

	return &UserPassRequest{
		Username: lossyString(uname),
		Password: lossyString(passwd),
	}, nil
}

func lossyString(b []byte) string {
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}

// WriteUserPassReply sends the RFC 1929 verdict: [0x01 0x00] on success,
// [0x01 0x01] on failure.
func WriteUserPassReply(w io.Writer, ok bool) error {
	status := byte(0x01)
	if ok {
		status = 0x00
	}
	if _, err := w.Write([]byte{UserPassVersion, status}); err != nil {
		return fmt.Errorf("userpass reply: %w", err)
	}
	return nil
}

// Request is a decoded SOCKS5 request. Any CMD byte parses; rejecting
// non-CONNECT commands is session policy, not a decode failure.
type Request struct {
	Cmd  Command
	Addr Addr
	Port uint16
}

// Target returns the destination as host:port for dialing.
func (r *Request) Target() string {
	return r.Addr.HostPort(r.Port)
}

// ReadRequest decodes VER CMD RSV ATYP DST.ADDR DST.PORT from r.
func ReadRequest(r io.Reader) (*Request, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("request header: %w", err)
	}
	if hdr[0] != Version {
		return nil, fmt.Errorf("request version 0x%02x: %w", hdr[0], ErrProtocolVersion)
	}
	if hdr[2] != 0x00 {
		return nil, fmt.Errorf("reserved byte 0x%02x: %w", hdr[2], ErrMalformedRequest)
	}

	addr, err := readAddr(r, hdr[3])
	if err != nil {
		return nil, err
	}

	var pb [2]byte
	if _, err := io.ReadFull(r, pb[:]); err != nil {
		return nil, fmt.Errorf("request port: %w", err)
	}

	return &Request{
		Cmd:  Command(hdr[1]),
		Addr: addr,
		Port: binary.BigEndian.Uint16(pb[:]),
	}, nil
}

func readAddr(r io.Reader, atyp byte) (Addr, error) {
	switch atyp {
	case ATYPIPv4:
		b := make([]byte, net.IPv4len)
		if _, err := io.ReadFull(r, b); err != nil {
			return Addr{}, fmt.Errorf("ipv4 address: %w", err)
		}
		return Addr{Atyp: atyp, IP: net.IP(b)}, nil
	case ATYPDomain:
		var n [1]byte
		if _, err := io.ReadFull(r, n[:]); err != nil {
			return Addr{}, fmt.Errorf("domain length: %w", err)
		}
		b := make([]byte, int(n[0]))
		if _, err := io.ReadFull(r, b); err != nil {
			return Addr{}, fmt.Errorf("domain: %w", err)
		}
		return Addr{Atyp: atyp, Domain: string(b)}, nil
	case ATYPIPv6:
		b := make([]byte, net.IPv6len)
		if _, err := io.ReadFull(r, b); err != nil {
			return Addr{}, fmt.Errorf("ipv6 address: %w", err)
		}
		return Addr{Atyp: atyp, IP: net.IP(b)}, nil
	default:
		return Addr{}, fmt.Errorf("atyp 0x%02x: %w", atyp, ErrAddrType)
	}
}

// WriteReply sends VER REP RSV ATYP BND.ADDR BND.PORT. The bound address
// is normally the LocalAddr of the outbound connection; when bound is nil
// or not a TCP address, the all-zero IPv4 address with port 0 stands in.
// The frame is written with a single Write call.
func WriteReply(w io.Writer, rep ReplyCode, bound net.Addr) error {
	ip := net.IPv4zero
	port := uint16(0)
	if ta, ok := bound.(*net.TCPAddr); ok {
		if ta.IP != nil {
			ip = ta.IP
		}
		port = uint16(ta.Port)
	}

	buf := make([]byte, 0, 4+net.IPv6len+2)
	buf = append(buf, Version, byte(rep), 0x00)

	if ip4 := ip.To4(); ip4 != nil {
		buf = append(buf, ATYPIPv4)
		buf = append(buf, ip4...)
	} else {
		ip16 := ip.To16()
		if ip16 == nil {
			ip16 = net.IPv6zero
		}
		buf = append(buf, ATYPIPv6)
		buf = append(buf, ip16...)
	}
	buf = binary.BigEndian.AppendUint16(buf, port)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	return nil
}
