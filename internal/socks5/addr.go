package socks5

import (
	"fmt"
	"net"
	"strconv"
)

// Protocol constants from RFC 1928 and RFC 1929.
const (
	Version         = 0x05
	UserPassVersion = 0x01

	MethodNone         = 0x00
	MethodUserPass     = 0x02
	MethodNoAcceptable = 0xff
)

// Command is the CMD field of a SOCKS5 request. Any byte value parses;
// whether it is serviced is the session's decision.
type Command byte

const (
	CmdConnect      Command = 0x01
	CmdBind         Command = 0x02
	CmdUDPAssociate Command = 0x03
)

func (c Command) String() string {
	switch c {
	case CmdConnect:
		return "CONNECT"
	case CmdBind:
		return "BIND"
	case CmdUDPAssociate:
		return "UDP ASSOCIATE"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(c))
	}
}

// ReplyCode is the REP field of a SOCKS5 reply.
type ReplyCode byte

const (
	RepSuccess              ReplyCode = 0x00
	RepGeneralFailure       ReplyCode = 0x01
	RepNotAllowed           ReplyCode = 0x02
	RepNetworkUnreachable   ReplyCode = 0x03
	RepHostUnreachable      ReplyCode = 0x04
	RepConnectionRefused    ReplyCode = 0x05
	RepTTLExpired           ReplyCode = 0x06
	RepCommandNotSupported  ReplyCode = 0x07
	RepAddrTypeNotSupported ReplyCode = 0x08
)

// Address types (ATYP).
const (
	ATYPIPv4   = 0x01
	ATYPDomain = 0x03
	ATYPIPv6   = 0x04
)

// Addr is a destination address as carried on the wire: exactly one of
// IP (for ATYPIPv4/ATYPIPv6) or Domain (for ATYPDomain) is meaningful,
// selected by Atyp. Immutable once parsed.
type Addr struct {
	Atyp   byte
	IP     net.IP
	Domain string
}

// Host returns the address as a bare host suitable for net.JoinHostPort.
func (a Addr) Host() string {
	if a.Atyp == ATYPDomain {
		return a.Domain
	}
	return a.IP.String()
}

func (a Addr) String() string {
	return a.Host()
}

// HostPort joins the address with port for dialing.
func (a Addr) HostPort(port uint16) string {
	return net.JoinHostPort(a.Host(), strconv.Itoa(int(port)))
}
