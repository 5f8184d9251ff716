package dialer

import (
	"net"
	"time"
)

type Config struct {
	// DialTimeout bounds DNS lookup plus TCP connect. Zero means no
	// timeout; outbound connects then block indefinitely.
	DialTimeout time.Duration

	KeepAlive net.KeepAliveConfig
}
