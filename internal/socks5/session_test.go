package socks5

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/die-net/socksd/internal/testutil"
)

type dialerFunc func(ctx context.Context, network, address string) (net.Conn, error)

func (f dialerFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return f(ctx, network, address)
}

var errNoDial = errors.New("unexpected dial")

func rejectDialer(t *testing.T) Dialer {
	return dialerFunc(func(_ context.Context, network, address string) (net.Conn, error) {
		t.Errorf("session dialed %s %s, expected no outbound connection", network, address)
		return nil, errNoDial
	})
}

func TestSessionMethodSelection(t *testing.T) {
	tests := []struct {
		name    string
		offered []byte
		noAuth  bool
		want    byte
	}{
		{name: "userpass_preferred_over_no_auth", offered: []byte{0x00, 0x02}, want: MethodUserPass},
		{name: "userpass_preferred_regardless_of_order", offered: []byte{0x02, 0x00}, want: MethodUserPass},
		{name: "no_auth_only", offered: []byte{0x00}, want: MethodNone},
		{name: "no_auth_mode_ignores_userpass", offered: []byte{0x00, 0x02}, noAuth: true, want: MethodNone},
		{name: "gssapi_only_rejected", offered: []byte{0x01}, want: MethodNoAcceptable},
		{name: "empty_method_set_rejected", offered: []byte{}, want: MethodNoAcceptable},
		{name: "userpass_only_in_no_auth_mode_rejected", offered: []byte{0x02}, noAuth: true, want: MethodNoAcceptable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clientConn, serverConn := net.Pipe()
			defer clientConn.Close()
			defer serverConn.Close()

			sess := NewSession(serverConn, Config{
				Auth:   Auth{Username: DefaultUsername, Password: DefaultPassword},
				NoAuth: tt.noAuth,
				Dialer: rejectDialer(t),
			})

			runErr := make(chan error, 1)
			go func() {
				runErr <- sess.Run(context.Background())
			}()

			greeting := append([]byte{0x05, byte(len(tt.offered))}, tt.offered...)
			if _, err := clientConn.Write(greeting); err != nil {
				t.Fatal(err)
			}

			sel := make([]byte, 2)
			if _, err := io.ReadFull(clientConn, sel); err != nil {
				t.Fatal(err)
			}
			if sel[0] != 0x05 || sel[1] != tt.want {
				t.Fatalf("selection = % x, want 05 %02x", sel, tt.want)
			}

			if tt.want == MethodNoAcceptable {
				// Session ends without reading a request.
				if err := <-runErr; !errors.Is(err, ErrNoAcceptableMethod) {
					t.Fatalf("error = %v, want ErrNoAcceptableMethod", err)
				}
				return
			}

			// Stop the session at the next phase.
			_ = clientConn.Close()
			if err := <-runErr; err == nil {
				t.Fatal("expected error from truncated session")
			}
		})
	}
}

func TestSessionAuthFailure(t *testing.T) {
	tests := []struct {
		name    string
		request []byte
	}{
		{
			name:    "wrong_password",
			request: []byte{0x01, 0x04, 'u', 's', 'e', 'r', 0x05, 'w', 'r', 'o', 'n', 'g'},
		},
		{
			name:    "bad_sub_version",
			request: []byte{0x05, 0x04, 'u', 's', 'e', 'r', 0x08, 'p', 'a', 's', 's', 'w', 'o', 'r', 'd'},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clientConn, serverConn := net.Pipe()
			defer clientConn.Close()
			defer serverConn.Close()

			sess := NewSession(serverConn, Config{
				Auth:   Auth{Username: DefaultUsername, Password: DefaultPassword},
				Dialer: rejectDialer(t),
			})

			runErr := make(chan error, 1)
			go func() {
				runErr <- sess.Run(context.Background())
			}()

			if _, err := clientConn.Write([]byte{0x05, 0x01, 0x02}); err != nil {
				t.Fatal(err)
			}
			sel := make([]byte, 2)
			if _, err := io.ReadFull(clientConn, sel); err != nil {
				t.Fatal(err)
			}
			if sel[1] != MethodUserPass {
				t.Fatalf("selection = % x, want userpass", sel)
			}

			if _, err := clientConn.Write(tt.request); err != nil {
				t.Fatal(err)
			}

			verdict := make([]byte, 2)
			if _, err := io.ReadFull(clientConn, verdict); err != nil {
				t.Fatal(err)
			}
			if verdict[0] != 0x01 || verdict[1] != 0x01 {
				t.Fatalf("verdict = % x, want 01 01", verdict)
			}

			// The session terminates without ever reading a request.
			if err := <-runErr; !errors.Is(err, ErrAuthFailed) {
				t.Fatalf("error = %v, want ErrAuthFailed", err)
			}
		})
	}
}

func TestSessionRejectsNonConnect(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	sess := NewSession(serverConn, Config{
		Auth:   AuthFromEnv(),
		Dialer: rejectDialer(t),
	})

	runErr := make(chan error, 1)
	go func() {
		runErr <- sess.Run(context.Background())
	}()

	if _, err := clientConn.Write([]byte{0x05, 0x01, 0x00}); err != nil {
		t.Fatal(err)
	}
	sel := make([]byte, 2)
	if _, err := io.ReadFull(clientConn, sel); err != nil {
		t.Fatal(err)
	}

	// BIND request for 0.0.0.0:0.
	bind := []byte{0x05, 0x02, 0x00, 0x01, 0, 0, 0, 0, 0, 0}
	if _, err := clientConn.Write(bind); err != nil {
		t.Fatal(err)
	}

	reply := make([]byte, 10)
	if _, err := io.ReadFull(clientConn, reply); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x05, 0x07, 0x00, 0x01, 0, 0, 0, 0, 0, 0}
	for i := range want {
		if reply[i] != want[i] {
			t.Fatalf("reply = % x, want % x", reply, want)
		}
	}

	if err := <-runErr; !errors.Is(err, ErrCommandNotSupported) {
		t.Fatalf("error = %v, want ErrCommandNotSupported", err)
	}
}

func TestSessionConnectFailure(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	errRefused := errors.New("connection refused")
	sess := NewSession(serverConn, Config{
		Auth: AuthFromEnv(),
		Dialer: dialerFunc(func(context.Context, string, string) (net.Conn, error) {
			return nil, errRefused
		}),
	})

	runErr := make(chan error, 1)
	go func() {
		runErr <- sess.Run(context.Background())
	}()

	if _, err := clientConn.Write([]byte{0x05, 0x01, 0x00}); err != nil {
		t.Fatal(err)
	}
	sel := make([]byte, 2)
	if _, err := io.ReadFull(clientConn, sel); err != nil {
		t.Fatal(err)
	}

	connect := []byte{0x05, 0x01, 0x00, 0x01, 127, 0, 0, 1, 0x00, 0x50}
	if _, err := clientConn.Write(connect); err != nil {
		t.Fatal(err)
	}

	reply := make([]byte, 10)
	if _, err := io.ReadFull(clientConn, reply); err != nil {
		t.Fatal(err)
	}
	if reply[1] != byte(RepGeneralFailure) || reply[3] != ATYPIPv4 {
		t.Fatalf("reply = % x, want general failure with zero IPv4 bound address", reply)
	}

	if err := <-runErr; !errors.Is(err, errRefused) {
		t.Fatalf("error = %v, want wrapped dial error", err)
	}
}

func TestSessionConnectAndRelay(t *testing.T) {
	tests := []struct {
		name string
		auth bool
	}{
		{name: "no_auth"},
		{name: "user_pass", auth: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			echoLn := testutil.StartEchoTCPServer(t, ctx)
			defer echoLn.Close()

			clientConn, serverConn := tcpPair(t)

			sess := NewSession(serverConn, Config{
				Auth: Auth{Username: "alice", Password: "s3cret"},
				Dialer: dialerFunc(func(ctx context.Context, network, address string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, network, address)
				}),
			})

			runErr := make(chan error, 1)
			go func() {
				runErr <- sess.Run(ctx)
			}()

			if tt.auth {
				if _, err := clientConn.Write([]byte{0x05, 0x01, 0x02}); err != nil {
					t.Fatal(err)
				}
			} else {
				if _, err := clientConn.Write([]byte{0x05, 0x01, 0x00}); err != nil {
					t.Fatal(err)
				}
			}
			sel := make([]byte, 2)
			if _, err := io.ReadFull(clientConn, sel); err != nil {
				t.Fatal(err)
			}

			if tt.auth {
				if sel[1] != MethodUserPass {
					t.Fatalf("selection = % x, want userpass", sel)
				}
				req := []byte{0x01, 0x05, 'a', 'l', 'i', 'c', 'e', 0x06, 's', '3', 'c', 'r', 'e', 't'}
				if _, err := clientConn.Write(req); err != nil {
					t.Fatal(err)
				}
				verdict := make([]byte, 2)
				if _, err := io.ReadFull(clientConn, verdict); err != nil {
					t.Fatal(err)
				}
				if verdict[1] != 0x00 {
					t.Fatalf("verdict = % x, want success", verdict)
				}
			} else if sel[1] != MethodNone {
				t.Fatalf("selection = % x, want no-auth", sel)
			}

			ta := echoLn.Addr().(*net.TCPAddr)
			connect := []byte{0x05, 0x01, 0x00, 0x01}
			connect = append(connect, ta.IP.To4()...)
			connect = append(connect, byte(ta.Port>>8), byte(ta.Port))
			if _, err := clientConn.Write(connect); err != nil {
				t.Fatal(err)
			}

			reply := make([]byte, 10)
			if _, err := io.ReadFull(clientConn, reply); err != nil {
				t.Fatal(err)
			}
			if reply[0] != 0x05 || reply[1] != byte(RepSuccess) || reply[3] != ATYPIPv4 {
				t.Fatalf("reply = % x, want success with IPv4 bound address", reply)
			}
			if boundPort := int(reply[8])<<8 | int(reply[9]); boundPort == 0 {
				t.Fatal("expected a non-zero bound port")
			}

			testutil.AssertEcho(t, clientConn, clientConn, []byte("hello"))

			if err := clientConn.(*net.TCPConn).CloseWrite(); err != nil {
				t.Fatal(err)
			}
			if err := <-runErr; err != nil {
				t.Fatal(err)
			}
		})
	}
}
