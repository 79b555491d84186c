package transport

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	sberr "seabattle/internal/errors"
	"seabattle/internal/protocol"
)

// roundTrip sends one message each way across a freshly accepted pair.
func roundTrip(t *testing.T, ln Listener, d Dialer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type accepted struct {
		ch  Channel
		err error
	}
	acc := make(chan accepted, 1)
	go func() {
		ch, err := ln.Accept(ctx)
		acc <- accepted{ch, err}
	}()

	client, err := d.Dial(ctx, ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	a := <-acc
	if a.err != nil {
		t.Fatalf("accept: %v", a.err)
	}
	server := a.ch
	defer server.Close()

	if err := server.Send(protocol.Welcome{PlayerID: 42}); err != nil {
		t.Fatalf("server send: %v", err)
	}
	m, err := client.Recv()
	if err != nil {
		t.Fatalf("client recv: %v", err)
	}
	if w, ok := m.(protocol.Welcome); !ok || w.PlayerID != 42 {
		t.Fatalf("client got %#v", m)
	}

	if err := client.Send(protocol.Fire{X: 3, Y: 4}); err != nil {
		t.Fatalf("client send: %v", err)
	}
	m, err = server.Recv()
	if err != nil {
		t.Fatalf("server recv: %v", err)
	}
	if f, ok := m.(protocol.Fire); !ok || f.X != 3 || f.Y != 4 {
		t.Fatalf("server got %#v", m)
	}

	// Closing one end surfaces as a lost connection on the other.
	client.Close()
	_, err = server.Recv()
	if sberr.KindOf(err) != sberr.ConnectionLost {
		t.Errorf("after peer close: err = %v, want connection lost", err)
	}
}

func TestTCP_RoundTrip(t *testing.T) {
	ln, err := ListenTCP("127.0.0.1:0", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	roundTrip(t, ln, &TCPDialer{Timeout: 2 * time.Second})
}

func TestWS_RoundTrip(t *testing.T) {
	ln, err := ListenWS("127.0.0.1:0", WSOptions{WriteTimeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	roundTrip(t, ln, &WSDialer{Timeout: 2 * time.Second})
}

func TestSSH_RoundTrip(t *testing.T) {
	ln, err := ListenSSH("127.0.0.1:0", SSHOptions{WriteTimeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	roundTrip(t, ln, &SSHDialer{Timeout: 2 * time.Second, HostKey: ln.HostKey()})
}

func TestSSH_WrongHostKeyRejected(t *testing.T) {
	ln, err := ListenSSH("127.0.0.1:0", SSHOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	other, err := ListenSSH("127.0.0.1:0", SSHOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()

	d := &SSHDialer{Timeout: 2 * time.Second, HostKey: other.HostKey()}
	if _, err := d.Dial(context.Background(), ln.Addr().String()); err == nil {
		t.Fatal("expected handshake failure with a mismatched host key")
	}
}

func TestTCP_MalformedLineKeepsChannel(t *testing.T) {
	ln, err := ListenTCP("127.0.0.1:0", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	go func() {
		conn, err := net.Dial("tcp", ln.Addr().String())
		if err != nil {
			return
		}
		defer conn.Close()
		io.WriteString(conn, "{\"type\":\"nope\"}\n{\"type\":\"heartbeat\"}\n") //nolint:errcheck
		time.Sleep(200 * time.Millisecond)
	}()

	ch, err := ln.Accept(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer ch.Close()

	if _, err := ch.Recv(); !sberr.Is(err, sberr.ErrProtocolViolation) {
		t.Fatalf("first recv err = %v, want protocol violation", err)
	}
	m, err := ch.Recv()
	if err != nil {
		t.Fatalf("second recv: %v", err)
	}
	if m.Type() != protocol.TypeHeartbeat {
		t.Errorf("got %s, want heartbeat", m.Type())
	}
}

func TestTCP_AcceptAfterClose(t *testing.T) {
	ln, err := ListenTCP("127.0.0.1:0", 0)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ln.Close()

	if _, err := ln.Accept(ctx); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestWS_AcceptHonoursContext(t *testing.T) {
	ln, err := ListenWS("127.0.0.1:0", WSOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := ln.Accept(ctx); err != context.DeadlineExceeded {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestWS_StatsEndpoint(t *testing.T) {
	ln, err := ListenWS("127.0.0.1:0", WSOptions{Stats: func() string { return `{"shots":3}` }})
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	resp, err := http.Get("http://" + ln.Addr().String() + StatsPath)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(string(body), `"shots":3`) {
		t.Errorf("body = %s", body)
	}
}

func TestTCPDialer_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	_, err = (&TCPDialer{Timeout: time.Second}).Dial(context.Background(), addr)
	if err == nil {
		t.Fatal("expected dial error")
	}
	if !sberr.IsRetryable(err) {
		t.Errorf("refused dial should be retryable: %v", err)
	}
}
