// Package server runs the seabattle game server: it accepts players on
// any number of transports, pairs them through the matchmaker, routes
// their requests to their session and reaps dead connections.
package server

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"seabattle/internal/board"
	"seabattle/internal/conn"
	"seabattle/internal/game"
	"seabattle/internal/matchmaker"
	"seabattle/internal/metrics"
	"seabattle/internal/reaper"
	"seabattle/internal/transport"
	"seabattle/util"
)

// DefaultGreeting is sent in every Welcome.
const DefaultGreeting = "Welcome to seabattle"

// shutdownGrace bounds how long shutdown waits for a session to end.
const shutdownGrace = 2 * time.Second

// Options configures a Server.
type Options struct {
	Listeners     []transport.Listener
	Fleet         board.Fleet
	ReapInterval  time.Duration
	OutboundQueue int
	Rematch       bool
	Greeting      string
	Logger        *util.Logger
	Metrics       *metrics.Collector
}

// Server is one running game server.
type Server struct {
	opts     Options
	logger   *util.Logger
	metrics  *metrics.Collector
	registry *conn.Registry

	mm     *matchmaker.Matchmaker
	reaper *reaper.Reaper

	conns   sync.WaitGroup
	closing atomic.Bool
}

// New returns a server that will serve on opts.Listeners.
func New(opts Options) *Server {
	if opts.Fleet == nil {
		opts.Fleet = board.DefaultFleet()
	}
	if opts.Greeting == "" {
		opts.Greeting = DefaultGreeting
	}
	if opts.Logger == nil {
		opts.Logger = util.NewLogger(0)
	}
	return &Server{
		opts:     opts,
		logger:   opts.Logger.Named("server"),
		metrics:  opts.Metrics,
		registry: conn.NewRegistry(),
	}
}

// Registry exposes the connection table.
func (s *Server) Registry() *conn.Registry { return s.registry }

// Serve accepts players until ctx is done, then shuts down: pairing
// stops, every running session is ended and every connection is
// closed after its last message has been delivered.  Serve closes the
// listeners before returning.
func (s *Server) Serve(ctx context.Context) error {
	if len(s.opts.Listeners) == 0 {
		return fmt.Errorf("server: no listeners")
	}

	sessCtx, cancelSessions := context.WithCancel(context.Background())
	defer cancelSessions()

	s.mm = matchmaker.New(sessCtx, matchmaker.Options{
		Game: game.Config{
			Fleet:   s.opts.Fleet,
			Logger:  s.opts.Logger,
			Metrics: s.metrics,
		},
		Rematch: s.opts.Rematch,
	})
	s.reaper = reaper.New(s.registry, s.mm, s.opts.ReapInterval, s.opts.Logger, s.metrics)

	loopCtx, stopLoops := context.WithCancel(ctx)
	defer stopLoops()

	var loops sync.WaitGroup
	loops.Add(1)
	go func() {
		defer loops.Done()
		s.reaper.Run(loopCtx)
	}()

	errc := make(chan error, len(s.opts.Listeners))
	for _, ln := range s.opts.Listeners {
		s.logger.Info("listening on %s (%s)", ln.Addr(), ln.Name())
		loops.Add(1)
		go func(ln transport.Listener) {
			defer loops.Done()
			if err := s.acceptLoop(loopCtx, ln); err != nil {
				errc <- err
			}
		}(ln)
	}

	// Closing the listeners is what unblocks a TCP Accept.
	go func() {
		<-loopCtx.Done()
		for _, ln := range s.opts.Listeners {
			ln.Close()
		}
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-errc:
		s.logger.Error("%v", err)
	}
	stopLoops()
	loops.Wait()

	s.shutdown(cancelSessions)
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln transport.Listener) error {
	for {
		ch, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%s accept: %w", ln.Name(), err)
		}
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.serveConn(ctx, ch, ln.Name())
		}()
	}
}

// shutdown ends every session with a terminal message to both players
// and then closes every connection.
func (s *Server) shutdown(cancelSessions context.CancelFunc) {
	s.closing.Store(true)
	s.mm.Close()
	cancelSessions()

	handles := s.registry.Snapshot()
	for _, h := range handles {
		if sess := h.Session(); sess != nil {
			select {
			case <-sess.Done():
			case <-time.After(shutdownGrace):
				s.logger.Warn("session of player %d did not end in time", h.ID())
			}
		}
	}

	var wg sync.WaitGroup
	for _, h := range handles {
		wg.Add(1)
		go func(h *conn.Handle) {
			defer wg.Done()
			h.Close()
		}(h)
	}
	wg.Wait()
	s.conns.Wait()

	s.logger.Info("shut down, %d connection(s) closed", len(handles))
	s.logger.Verbose("final stats:\n%s", s.metrics.JSON())
}
