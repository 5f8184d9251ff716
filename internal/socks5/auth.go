package socks5

import "os"

// Default credentials, used when neither flags nor environment provide
// an override.
const (
	DefaultUsername = "user"
	DefaultPassword = "password"
)

// Auth holds the expected username/password for RFC 1929 verification.
// It is read once at startup and never mutated, so sessions share it
// without locking. Comparison is a plain string equality on the lossily
// decoded credentials; there is no lockout and no constant-time compare.
type Auth struct {
	Username string
	Password string
}

// AuthFromEnv builds the expected credentials from PROXY_USERNAME and
// PROXY_PASSWORD, falling back to the fixed defaults.
func AuthFromEnv() Auth {
	return Auth{
		Username: envOr("PROXY_USERNAME", DefaultUsername),
		Password: envOr("PROXY_PASSWORD", DefaultPassword),
	}
}

// Verify reports whether the submitted pair matches.
func (a Auth) Verify(username, password string) bool {
	return username == a.Username && password == a.Password
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
