package socks5

// Package socks5 implements the server side of the SOCKS5 (RFC 1928)
// protocol: the wire codec, optional username/password authentication
// (RFC 1929), the per-connection session state machine, and the
// bidirectional relay engine.
//
// Only the CONNECT command is serviced. BIND and UDP ASSOCIATE parse
// cleanly but are rejected with a CommandNotSupported reply. The codec is
// deliberately permissive where observed clients are: zero-method
// greetings and zero-length domain names are valid parses, and
// credentials containing invalid UTF-8 are decoded lossily rather than
// rejected.
