// Package conn wraps each player's transport channel in a Handle that
// tracks liveness, queues outbound messages, and remembers which game
// session the player belongs to.
package conn

import (
	"sync"
	"sync/atomic"
	"time"

	"seabattle/internal/game"
	"seabattle/internal/protocol"
	"seabattle/internal/transport"
	"seabattle/util"
)

// DefaultQueueSize is the outbound buffer per connection.
const DefaultQueueSize = 64

// flushTimeout bounds how long Close waits for queued messages.
const flushTimeout = 2 * time.Second

// Handle is one connected player.
//
// Sends are queued and written by a dedicated goroutine, so a slow
// reader never blocks the session that is talking to it.  A player
// whose queue overflows, or whose channel fails, is marked dead; the
// reaper collects it on its next sweep.
type Handle struct {
	id     uint64
	ch     transport.Channel
	logger *util.Logger

	alive   atomic.Bool
	session atomic.Pointer[game.Session]

	out        chan protocol.Message
	stop       chan struct{}
	stopOnce   sync.Once
	flush      atomic.Bool
	writerDone chan struct{}
}

// New wraps ch and starts its writer.
func New(id uint64, ch transport.Channel, queueSize int, logger *util.Logger) *Handle {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = util.NewLogger(0)
	}
	h := &Handle{
		id:         id,
		ch:         ch,
		logger:     logger,
		out:        make(chan protocol.Message, queueSize),
		stop:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	h.alive.Store(true)
	go h.writeLoop()
	return h
}

// ID is the connection's unique, monotonically assigned number.
func (h *Handle) ID() uint64 { return h.id }

// RemoteAddr is the peer address as reported by the transport.
func (h *Handle) RemoteAddr() string { return h.ch.RemoteAddr() }

// Alive reports whether the channel is still believed usable.
func (h *Handle) Alive() bool { return h.alive.Load() }

// Session returns the player's current session, or nil.
func (h *Handle) Session() *game.Session { return h.session.Load() }

// SetSession records the session the player was paired into.
func (h *Handle) SetSession(s *game.Session) { h.session.Store(s) }

// ClearSession forgets s if it is still the current session.
func (h *Handle) ClearSession(s *game.Session) bool {
	return h.session.CompareAndSwap(s, nil)
}

// Send queues m for delivery.  It never blocks: messages to a dead
// player are dropped, and a full queue kills the player.
func (h *Handle) Send(m protocol.Message) {
	if !h.Alive() {
		return
	}
	select {
	case h.out <- m:
	default:
		h.logger.Warn("player %d: outbound queue full, dropping connection", h.id)
		h.alive.Store(false)
		go h.Kill()
	}
}

// Recv reads the next message from the player.
func (h *Handle) Recv() (protocol.Message, error) { return h.ch.Recv() }

// Probe queues a heartbeat and reports whether the player is alive.
// A write that fails is only observed on the next probe.
func (h *Handle) Probe() bool {
	h.Send(protocol.Heartbeat{})
	return h.Alive()
}

// Kill marks the player dead and drops the channel without flushing.
// A blocked Recv returns promptly.
func (h *Handle) Kill() {
	h.alive.Store(false)
	h.stopOnce.Do(func() { close(h.stop) })
	h.ch.Close()
}

// Close marks the player dead, delivers whatever is already queued,
// and closes the channel.
func (h *Handle) Close() {
	h.flush.Store(true)
	h.alive.Store(false)
	h.stopOnce.Do(func() { close(h.stop) })

	select {
	case <-h.writerDone:
	case <-time.After(flushTimeout):
	}
	h.ch.Close()
}

func (h *Handle) writeLoop() {
	defer close(h.writerDone)
	for {
		select {
		case m := <-h.out:
			if err := h.ch.Send(m); err != nil {
				h.logger.Debug("player %d: write: %v", h.id, err)
				h.Kill()
				return
			}
		case <-h.stop:
			if h.flush.Load() {
				h.drain()
			}
			h.ch.Close()
			return
		}
	}
}

func (h *Handle) drain() {
	for {
		select {
		case m := <-h.out:
			if h.ch.Send(m) != nil {
				return
			}
		default:
			return
		}
	}
}
