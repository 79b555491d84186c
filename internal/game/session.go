// Package game referees one battleship match between two players.
//
// A Session owns both boards and is driven by a single goroutine that
// applies commands in arrival order.  Callers (connection workers, the
// reaper) block on a reply for each command, so no lock guards the
// boards and two sessions never contend with each other.
package game

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"seabattle/internal/board"
	sberr "seabattle/internal/errors"
	"seabattle/internal/metrics"
	"seabattle/internal/protocol"
	"seabattle/util"
)

// Phase is the session state.
type Phase int32

const (
	Placing Phase = iota
	InProgress
	Finished
)

func (p Phase) String() string {
	switch p {
	case Placing:
		return "placing"
	case InProgress:
		return "in_progress"
	case Finished:
		return "finished"
	}
	return "unknown"
}

// Player is the session's view of a participant.  Send must not block.
type Player interface {
	ID() uint64
	Send(m protocol.Message)
}

// Config holds what every session of a server shares.
type Config struct {
	Fleet   board.Fleet
	Logger  *util.Logger
	Metrics *metrics.Collector

	// OnEnd runs once, after the session has finished and its worker
	// has stopped.  It may call back into the session.
	OnEnd func(*Session)
}

// Session is a paired game.  players[0] was paired first and moves
// first.
type Session struct {
	id      string
	players [2]Player
	boards  [2]*board.Board
	cfg     Config
	logger  *util.Logger

	// Owned by the worker goroutine.
	phase  Phase
	turn   int
	winner int // index, -1 when the game ended by disconnection

	// Mirrors for readers outside the worker.
	phaseSeen atomic.Int32
	turnSeen  atomic.Uint64

	cmds chan command
	done chan struct{}
}

type command struct {
	run   func() error
	reply chan error
}

// New pairs a and b.  The session does nothing until Start.
func New(a, b Player, cfg Config) *Session {
	if cfg.Fleet == nil {
		cfg.Fleet = board.DefaultFleet()
	}
	if cfg.Logger == nil {
		cfg.Logger = util.NewLogger(0)
	}
	s := &Session{
		id:      uuid.NewString(),
		players: [2]Player{a, b},
		boards:  [2]*board.Board{board.New(), board.New()},
		cfg:     cfg,
		winner:  -1,
		cmds:    make(chan command),
		done:    make(chan struct{}),
	}
	s.logger = cfg.Logger.Named("session")
	s.turnSeen.Store(a.ID())
	return s
}

// Start announces the pairing to both players and launches the worker.
// Cancelling ctx ends the session as if both players had disconnected.
func (s *Session) Start(ctx context.Context) {
	s.cfg.Metrics.SessionStarted()
	for i, p := range s.players {
		p.Send(protocol.GameStarted{
			FirstToMove: i == s.turn,
			SessionID:   s.id,
			OpponentID:  s.players[1-i].ID(),
		})
	}
	s.logger.Verbose("%s: player %d vs player %d", s.short(), s.players[0].ID(), s.players[1].ID())
	go s.run(ctx)
}

func (s *Session) run(ctx context.Context) {
	for s.phase != Finished {
		select {
		case c := <-s.cmds:
			c.reply <- c.run()
		case <-ctx.Done():
			s.abort()
		}
	}
	close(s.done)
	if s.cfg.OnEnd != nil {
		s.cfg.OnEnd(s)
	}
}

// do hands fn to the worker and waits for its result.  Once the session
// is finished the worker is gone and do returns a ProtocolViolation.
func (s *Session) do(ctx context.Context, op string, fn func() error) error {
	c := command{run: fn, reply: make(chan error, 1)}
	select {
	case s.cmds <- c:
	case <-s.done:
		return sberr.Newf(sberr.ProtocolViolation, op, "the game is over")
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-c.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ── Accessors ────────────────────────────────────────────────────────

// ID is the session's UUID.
func (s *Session) ID() string { return s.id }

func (s *Session) short() string { return s.id[:8] }

// Players returns both participants, first mover first.
func (s *Session) Players() [2]Player { return s.players }

// Phase returns the most recently published phase.
func (s *Session) Phase() Phase { return Phase(s.phaseSeen.Load()) }

// Turn returns the ID of the player whose move it is.
func (s *Session) Turn() uint64 { return s.turnSeen.Load() }

// Done is closed once the session has finished.
func (s *Session) Done() <-chan struct{} { return s.done }

// Winner returns the winning player's ID.  ok is false while the game
// is running and when it ended by disconnection.
func (s *Session) Winner() (id uint64, ok bool) {
	select {
	case <-s.done:
	default:
		return 0, false
	}
	if s.winner < 0 {
		return 0, false
	}
	return s.players[s.winner].ID(), true
}

// Has reports whether id plays in this session.
func (s *Session) Has(id uint64) bool { return s.index(id) >= 0 }

func (s *Session) index(id uint64) int {
	for i, p := range s.players {
		if p.ID() == id {
			return i
		}
	}
	return -1
}

func (s *Session) setPhase(p Phase) {
	s.phase = p
	s.phaseSeen.Store(int32(p))
}

func (s *Session) setTurn(i int) {
	s.turn = i
	s.turnSeen.Store(s.players[i].ID())
}

func (s *Session) broadcast(m protocol.Message) {
	for _, p := range s.players {
		p.Send(m)
	}
}

func stranger(op string, id uint64) error {
	return sberr.Newf(sberr.ProtocolViolation, op, "player %d is not in this game", id)
}
