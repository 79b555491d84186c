package transport

import (
	"context"
	"net"
	"time"

	sberr "seabattle/internal/errors"
)

// TCPListener accepts newline-delimited JSON channels over TCP.
type TCPListener struct {
	ln           net.Listener
	writeTimeout time.Duration
}

// ListenTCP binds addr.  writeTimeout bounds every Send (0 = none).
func ListenTCP(addr string, writeTimeout time.Duration) (*TCPListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, sberr.Wrap("listen", addr, err)
	}
	return &TCPListener{ln: ln, writeTimeout: writeTimeout}, nil
}

// Accept waits for the next connection.  It does not watch ctx itself;
// callers close the listener to unblock it, and Accept then reports
// ctx.Err() if the context was the reason.
func (l *TCPListener) Accept(ctx context.Context) (Channel, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, sberr.Wrap("accept", l.ln.Addr().String(), err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetKeepAlive(true)                   //nolint:errcheck
		tc.SetKeepAlivePeriod(30 * time.Second) //nolint:errcheck
	}
	return newStreamChannel(conn, conn.RemoteAddr().String(), l.writeTimeout), nil
}

func (l *TCPListener) Close() error   { return l.ln.Close() }
func (l *TCPListener) Addr() net.Addr { return l.ln.Addr() }
func (l *TCPListener) Name() string   { return "tcp" }

// TCPDialer opens TCP channels.
type TCPDialer struct {
	Timeout      time.Duration
	WriteTimeout time.Duration
}

// Dial connects to address ("host:port").
func (d *TCPDialer) Dial(ctx context.Context, address string) (Channel, error) {
	dialer := net.Dialer{Timeout: d.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, sberr.Wrap("dial", address, err)
	}
	return newStreamChannel(conn, conn.RemoteAddr().String(), d.WriteTimeout), nil
}
