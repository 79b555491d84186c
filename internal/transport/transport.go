// Package transport carries protocol messages between the server and
// its players.  A Listener hands out one Channel per accepted player
// and a Dialer opens one from the client side; what travels over the
// channel is the protocol package's business.
//
// Three transports are provided: newline-delimited JSON over TCP, JSON
// text frames over WebSocket, and newline-delimited JSON inside an SSH
// session channel.
package transport

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	sberr "seabattle/internal/errors"
	"seabattle/internal/protocol"
)

// Channel is a reliable, ordered, message-oriented connection to one
// peer.  Recv must be called from a single goroutine; Send and Close
// are safe for concurrent use.
//
// Recv returns a ProtocolViolation GameError for a malformed message
// (the channel stays usable) and a NetworkError once the channel has
// failed or closed.
type Channel interface {
	Recv() (protocol.Message, error)
	Send(m protocol.Message) error
	Close() error
	RemoteAddr() string
}

// Listener accepts player channels.
type Listener interface {
	// Accept blocks until a channel is available, ctx is done, or the
	// listener is closed.
	Accept(ctx context.Context) (Channel, error)
	Close() error
	Addr() net.Addr
	// Name identifies the transport in logs: "tcp", "ws" or "ssh".
	Name() string
}

// Dialer opens a channel to a server.
type Dialer interface {
	Dial(ctx context.Context, address string) (Channel, error)
}

// ── Stream channels (TCP, SSH) ───────────────────────────────────────

// streamChannel frames messages as lines on a byte stream.
type streamChannel struct {
	rwc          io.ReadWriteCloser
	codec        *protocol.Codec
	remote       string
	writeTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

func newStreamChannel(rwc io.ReadWriteCloser, remote string, writeTimeout time.Duration) *streamChannel {
	return &streamChannel{
		rwc:          rwc,
		codec:        protocol.NewCodec(rwc),
		remote:       remote,
		writeTimeout: writeTimeout,
	}
}

func (c *streamChannel) Recv() (protocol.Message, error) {
	m, err := c.codec.ReadMessage()
	if err != nil {
		if sberr.KindOf(err) == sberr.ProtocolViolation {
			return nil, err
		}
		return nil, sberr.Wrap("read", c.remote, err)
	}
	return m, nil
}

func (c *streamChannel) Send(m protocol.Message) error {
	if d, ok := c.rwc.(writeDeadliner); ok && c.writeTimeout > 0 {
		d.SetWriteDeadline(time.Now().Add(c.writeTimeout)) //nolint:errcheck
	}
	if err := c.codec.WriteMessage(m); err != nil {
		return sberr.Wrap("write", c.remote, err)
	}
	return nil
}

func (c *streamChannel) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.rwc.Close() })
	return c.closeErr
}

func (c *streamChannel) RemoteAddr() string { return c.remote }
