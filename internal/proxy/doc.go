package proxy

// Package proxy implements the listener-side SOCKS5 server: the accept
// loop that starts one session goroutine per client, and shared
// connection plumbing such as keepalive listeners.
