// Package conntest provides an in-memory transport.Channel for tests.
package conntest

import (
	"errors"
	"sync"
	"time"

	"seabattle/internal/protocol"
)

// ErrClosed is returned by a Channel after Close.
var ErrClosed = errors.New("conntest: channel closed")

// Channel is an in-memory transport.Channel.  Messages given to Push
// are returned by Recv; messages passed to Send are recorded.
type Channel struct {
	in chan protocol.Message

	mu     sync.Mutex
	sent   []protocol.Message
	notify chan struct{}

	closed    chan struct{}
	closeOnce sync.Once
}

// New returns an open channel.
func New() *Channel {
	return &Channel{
		in:     make(chan protocol.Message, 64),
		notify: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Push queues m as if the peer had sent it.
func (c *Channel) Push(m protocol.Message) { c.in <- m }

func (c *Channel) Recv() (protocol.Message, error) {
	select {
	case m := <-c.in:
		return m, nil
	case <-c.closed:
		return nil, ErrClosed
	}
}

func (c *Channel) Send(m protocol.Message) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	c.mu.Lock()
	c.sent = append(c.sent, m)
	c.mu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

func (c *Channel) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *Channel) RemoteAddr() string { return "conntest" }

// Closed reports whether Close has been called.
func (c *Channel) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Sent returns a copy of every message sent so far.
func (c *Channel) Sent() []protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Message(nil), c.sent...)
}

// Count returns how many messages of type t were sent.
func (c *Channel) Count(t protocol.Type) int {
	n := 0
	for _, m := range c.Sent() {
		if m.Type() == t {
			n++
		}
	}
	return n
}

// WaitFor blocks until n messages of type t have been sent or the
// timeout passes, and reports which happened.
func (c *Channel) WaitFor(t protocol.Type, n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for c.Count(t) < n {
		select {
		case <-c.notify:
		case <-deadline.C:
			return c.Count(t) >= n
		}
	}
	return true
}

// Last returns the most recent message of type t.
func (c *Channel) Last(t protocol.Type) (protocol.Message, bool) {
	sent := c.Sent()
	for i := len(sent) - 1; i >= 0; i-- {
		if sent[i].Type() == t {
			return sent[i], true
		}
	}
	return nil, false
}
