// Package reaper periodically sweeps the connection registry and
// reclaims players whose connection has died, ending their sessions.
//
// It is the only component that ends a session on liveness grounds, so
// a player who stops reading is cleaned up even if nothing is ever
// sent to them on the request path.
package reaper

import (
	"context"
	"time"

	"seabattle/internal/conn"
	"seabattle/internal/metrics"
	"seabattle/util"
)

// DefaultInterval is the time between sweeps.
const DefaultInterval = 5 * time.Second

// Pool is the waiting pool the reaper removes dead players from.
type Pool interface {
	Remove(h *conn.Handle) bool
}

// Reaper sweeps a registry on a fixed interval.
type Reaper struct {
	interval time.Duration
	registry *conn.Registry
	pool     Pool
	logger   *util.Logger
	metrics  *metrics.Collector
}

// New returns a reaper.  interval <= 0 selects DefaultInterval.
func New(registry *conn.Registry, pool Pool, interval time.Duration, logger *util.Logger, m *metrics.Collector) *Reaper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &Reaper{
		interval: interval,
		registry: registry,
		pool:     pool,
		logger:   logger.Named("reaper"),
		metrics:  m,
	}
}

// Run sweeps until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Debug("sweeping every %s", r.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep probes every registered player once and reaps the dead ones.
// It returns how many were reaped.
func (r *Reaper) Sweep(ctx context.Context) int {
	reaped := 0
	for _, h := range r.registry.Snapshot() {
		if h.Probe() {
			continue
		}
		r.Reap(ctx, h)
		reaped++
	}
	r.metrics.RecordSweep(reaped)
	if reaped > 0 {
		r.logger.Verbose("swept %d dead connection(s), %d remain", reaped, r.registry.Len())
	}
	return reaped
}

// Reap removes h from the pool, ends its session and unregisters it.
// Reaping the same player twice is harmless.
func (r *Reaper) Reap(ctx context.Context, h *conn.Handle) {
	h.Kill()
	r.pool.Remove(h)
	if s := h.Session(); s != nil {
		if err := s.Disconnect(ctx, h.ID()); err != nil {
			r.logger.Debug("player %d: disconnect: %v", h.ID(), err)
		}
	}
	if r.registry.Remove(h) {
		r.metrics.ConnectionClosed()
		r.logger.Debug("player %d reaped (%s)", h.ID(), h.RemoteAddr())
	}
}
