// Package metrics provides lightweight, lock-free counters and gauges
// for tracking runtime statistics of a seabattle server.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a seabattle server.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	connectionsActive atomic.Int64
	connectionsTotal  atomic.Int64
	waiting           atomic.Int64
	sessionsActive    atomic.Int64
	sessionsTotal     atomic.Int64
	gamesFinished     atomic.Int64
	shots             atomic.Int64
	hits              atomic.Int64
	shipsSunk         atomic.Int64
	disconnects       atomic.Int64
	reaped            atomic.Int64
	errorsTotal       atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastSweep    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Connection metrics ───────────────────────────────────────────────

// ConnectionOpened increments both the active and total counters.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(1)
	c.connectionsTotal.Add(1)
}

// ConnectionClosed decrements the active connection counter.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(-1)
}

// ActiveConnections returns the current number of open connections.
func (c *Collector) ActiveConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsActive.Load()
}

// TotalConnections returns the lifetime connection count.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsTotal.Load()
}

// SetWaiting records the current size of the matchmaking pool.
func (c *Collector) SetWaiting(n int) {
	if c == nil {
		return
	}
	c.waiting.Store(int64(n))
}

// Waiting returns the last recorded matchmaking pool size.
func (c *Collector) Waiting() int64 {
	if c == nil {
		return 0
	}
	return c.waiting.Load()
}

// ── Session metrics ──────────────────────────────────────────────────

// SessionStarted records a new paired session.
func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(1)
	c.sessionsTotal.Add(1)
}

// SessionEnded records a session reaching Finished.  disconnected is
// true when the session ended because a player was lost.
func (c *Collector) SessionEnded(disconnected bool) {
	if c == nil {
		return
	}
	c.sessionsActive.Add(-1)
	if disconnected {
		c.disconnects.Add(1)
	} else {
		c.gamesFinished.Add(1)
	}
}

// ActiveSessions returns the number of sessions not yet finished.
func (c *Collector) ActiveSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsActive.Load()
}

// GamesFinished returns the number of sessions that ended with a winner.
func (c *Collector) GamesFinished() int64 {
	if c == nil {
		return 0
	}
	return c.gamesFinished.Load()
}

// Disconnects returns the number of sessions ended by a lost player.
func (c *Collector) Disconnects() int64 {
	if c == nil {
		return 0
	}
	return c.disconnects.Load()
}

// ── Shot metrics ─────────────────────────────────────────────────────

// ShotFired records a resolved fire.
func (c *Collector) ShotFired(hit, sunk bool) {
	if c == nil {
		return
	}
	c.shots.Add(1)
	if hit {
		c.hits.Add(1)
	}
	if sunk {
		c.shipsSunk.Add(1)
	}
}

// Shots returns the total number of resolved fires.
func (c *Collector) Shots() int64 {
	if c == nil {
		return 0
	}
	return c.shots.Load()
}

// Hits returns the total number of hits.
func (c *Collector) Hits() int64 {
	if c == nil {
		return 0
	}
	return c.hits.Load()
}

// ShipsSunk returns the total number of ships sunk.
func (c *Collector) ShipsSunk() int64 {
	if c == nil {
		return 0
	}
	return c.shipsSunk.Load()
}

// ── Reaper metrics ───────────────────────────────────────────────────

// RecordSweep updates the last sweep timestamp and adds the number of
// handles found dead.
func (c *Collector) RecordSweep(reaped int) {
	if c == nil {
		return
	}
	c.reaped.Add(int64(reaped))
	c.mu.Lock()
	c.lastSweep = time.Now()
	c.mu.Unlock()
}

// Reaped returns the total number of handles removed by the reaper.
func (c *Collector) Reaped() int64 {
	if c == nil {
		return 0
	}
	return c.reaped.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime            string `json:"uptime"`
	ConnectionsActive int64  `json:"connections_active"`
	ConnectionsTotal  int64  `json:"connections_total"`
	Waiting           int64  `json:"waiting"`
	SessionsActive    int64  `json:"sessions_active"`
	SessionsTotal     int64  `json:"sessions_total"`
	GamesFinished     int64  `json:"games_finished"`
	Disconnects       int64  `json:"disconnects"`
	Shots             int64  `json:"shots"`
	Hits              int64  `json:"hits"`
	ShipsSunk         int64  `json:"ships_sunk"`
	Reaped            int64  `json:"reaped"`
	ErrorsTotal       int64  `json:"errors_total"`
	LastSweep         string `json:"last_sweep,omitempty"`
	LastError         string `json:"last_error,omitempty"`
	LastErrorMessage  string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:            time.Since(c.startTime).Truncate(time.Second).String(),
		ConnectionsActive: c.connectionsActive.Load(),
		ConnectionsTotal:  c.connectionsTotal.Load(),
		Waiting:           c.waiting.Load(),
		SessionsActive:    c.sessionsActive.Load(),
		SessionsTotal:     c.sessionsTotal.Load(),
		GamesFinished:     c.gamesFinished.Load(),
		Disconnects:       c.disconnects.Load(),
		Shots:             c.shots.Load(),
		Hits:              c.hits.Load(),
		ShipsSunk:         c.shipsSunk.Load(),
		Reaped:            c.reaped.Load(),
		ErrorsTotal:       c.errorsTotal.Load(),
	}
	if !c.lastSweep.IsZero() {
		s.LastSweep = c.lastSweep.Format(time.RFC3339)
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
