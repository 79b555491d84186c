// Package matchmaker pairs waiting players into game sessions, oldest
// first.
package matchmaker

import (
	"context"
	"sync"
	"sync/atomic"

	"seabattle/internal/conn"
	"seabattle/internal/game"
	"seabattle/internal/metrics"
	"seabattle/internal/protocol"
	"seabattle/util"
)

// Options configures a Matchmaker.
type Options struct {
	Game game.Config
	// Rematch puts players whose session ended back in the pool.  When
	// false they are disconnected once the final message is delivered.
	Rematch bool
}

// Matchmaker owns the waiting pool.  Its lock is never held while a
// session is being driven, so it cannot deadlock with session workers.
type Matchmaker struct {
	ctx     context.Context
	game    game.Config
	rematch bool
	logger  *util.Logger
	metrics *metrics.Collector

	closed atomic.Bool

	mu    sync.Mutex
	queue []*conn.Handle
}

// New returns a matchmaker whose sessions run until ctx is done.
func New(ctx context.Context, opts Options) *Matchmaker {
	logger := opts.Game.Logger
	if logger == nil {
		logger = util.NewLogger(0)
	}
	m := &Matchmaker{
		ctx:     ctx,
		rematch: opts.Rematch,
		logger:  logger.Named("matchmaker"),
		metrics: opts.Game.Metrics,
	}
	m.game = opts.Game
	m.game.OnEnd = m.sessionEnded
	return m
}

// Enqueue adds h to the pool, or pairs it with the oldest waiting
// player and starts their session.  It returns the new session, if
// any.  Dead players, players already in the pool and players with a
// session are ignored.
func (m *Matchmaker) Enqueue(h *conn.Handle) *game.Session {
	if !h.Alive() || m.closed.Load() || m.ctx.Err() != nil {
		return nil
	}

	m.mu.Lock()
	if m.closed.Load() || h.Session() != nil || m.indexOf(h) >= 0 {
		m.mu.Unlock()
		return nil
	}

	var partner *conn.Handle
	for len(m.queue) > 0 {
		first := m.queue[0]
		m.queue[0] = nil
		m.queue = m.queue[1:]
		if first.Alive() {
			partner = first
			break
		}
	}

	if partner == nil {
		m.queue = append(m.queue, h)
		waiting := len(m.queue)
		m.mu.Unlock()

		m.metrics.SetWaiting(waiting)
		m.logger.Verbose("player %d waiting (%d in pool)", h.ID(), waiting)
		h.Send(protocol.Waiting{})
		return nil
	}

	s := game.New(partner, h, m.game)
	partner.SetSession(s)
	h.SetSession(s)
	waiting := len(m.queue)
	m.mu.Unlock()

	m.metrics.SetWaiting(waiting)
	s.Start(m.ctx)
	return s
}

// Close stops all further pairing and empties the pool.  It returns
// the players that were waiting.
func (m *Matchmaker) Close() []*conn.Handle {
	m.closed.Store(true)
	m.mu.Lock()
	waiting := m.queue
	m.queue = nil
	m.mu.Unlock()
	m.metrics.SetWaiting(0)
	return waiting
}

// Remove takes h out of the pool and reports whether it was waiting.
func (m *Matchmaker) Remove(h *conn.Handle) bool {
	m.mu.Lock()
	i := m.indexOf(h)
	if i < 0 {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue[:i], m.queue[i+1:]...)
	waiting := len(m.queue)
	m.mu.Unlock()

	m.metrics.SetWaiting(waiting)
	return true
}

// Waiting returns the IDs in the pool, oldest first.
func (m *Matchmaker) Waiting() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uint64, len(m.queue))
	for i, h := range m.queue {
		ids[i] = h.ID()
	}
	return ids
}

func (m *Matchmaker) indexOf(h *conn.Handle) int {
	for i, q := range m.queue {
		if q == h {
			return i
		}
	}
	return -1
}

// sessionEnded releases both players from s and, with rematch on,
// queues the ones still connected.
func (m *Matchmaker) sessionEnded(s *game.Session) {
	for _, p := range s.Players() {
		h, ok := p.(*conn.Handle)
		if !ok || !h.ClearSession(s) || !h.Alive() {
			continue
		}
		if m.rematch {
			m.Enqueue(h)
		} else {
			go h.Close()
		}
	}
}
