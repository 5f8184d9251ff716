package dialer

// Package dialer provides outbound dialing implementations used by the
// SOCKS5 server to reach requested destinations.
//
// Dialers implement a small interface (DialContext) and either connect
// directly or chain through an upstream SOCKS5 proxy.
