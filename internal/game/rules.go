package game

import (
	"context"

	"seabattle/internal/board"
	sberr "seabattle/internal/errors"
	"seabattle/internal/protocol"
)

// ── Placement ────────────────────────────────────────────────────────

// SubmitLayout places the player's fleet.  The player receives
// LayoutAccepted; once both fleets are placed both players receive a
// Turn and the battle begins.
func (s *Session) SubmitLayout(ctx context.Context, id uint64, layout board.Layout) error {
	return s.do(ctx, "submit_layout", func() error {
		i := s.index(id)
		if i < 0 {
			return stranger("submit_layout", id)
		}
		if s.phase != Placing {
			return sberr.Newf(sberr.ProtocolViolation, "submit_layout", "fleets are already placed")
		}
		if s.boards[i].Placed() {
			return sberr.Newf(sberr.ProtocolViolation, "submit_layout", "your fleet is already placed")
		}
		if err := s.boards[i].Place(layout, s.cfg.Fleet); err != nil {
			return err
		}
		s.players[i].Send(protocol.LayoutAccepted{})
		s.logger.Debug("%s: player %d placed %d ships", s.short(), id, len(layout.Ships))

		if s.boards[1-i].Placed() {
			s.setPhase(InProgress)
			s.announceTurn()
		}
		return nil
	})
}

func (s *Session) announceTurn() {
	for i, p := range s.players {
		p.Send(protocol.Turn{YourTurn: i == s.turn})
	}
}

// ── Firing ───────────────────────────────────────────────────────────

// Fire shoots at the opponent's board.  Rejected shots (wrong phase,
// wrong turn, off the board) return an error and change nothing.
//
// A resolved Hit or Miss is reported to both players.  AlreadyFired is
// reported to the shooter only and keeps the turn.  A Miss passes the
// turn; a Hit keeps it and may also sink a ship or end the game.
func (s *Session) Fire(ctx context.Context, id uint64, x, y int) error {
	return s.do(ctx, "fire", func() error {
		i := s.index(id)
		if i < 0 {
			return stranger("fire", id)
		}
		switch s.phase {
		case Placing:
			return sberr.Newf(sberr.ProtocolViolation, "fire", "fleets are still being placed")
		case Finished:
			return sberr.Newf(sberr.ProtocolViolation, "fire", "the game is over")
		}
		if i != s.turn {
			return sberr.Newf(sberr.NotYourTurn, "fire", "wait for your opponent to move")
		}
		return s.resolve(i, board.Coord{X: x, Y: y})
	})
}

func (s *Session) resolve(i int, c board.Coord) error {
	target := s.boards[1-i]
	outcome, err := target.Fire(c)
	if err != nil {
		return err
	}

	if outcome == board.AlreadyFired {
		s.players[i].Send(s.moveResult(i, i, c, outcome))
		return nil
	}

	var sunk []board.Coord
	if outcome == board.Hit {
		sunk, _ = target.SunkShip(c)
	}
	s.cfg.Metrics.ShotFired(outcome == board.Hit, sunk != nil)
	s.logger.Debug("%s: player %d fired at %s: %s", s.short(), s.players[i].ID(), c, outcome)

	for p := range s.players {
		s.players[p].Send(s.moveResult(p, i, c, outcome))
	}
	if sunk != nil {
		for p := range s.players {
			s.players[p].Send(protocol.ShipSunk{X: c.X, Y: c.Y, ByYou: p == i, Cells: sunk})
		}
	}

	switch {
	case target.AllSunk():
		s.finish(i)
	case outcome == board.Miss:
		s.setTurn(1 - i)
		s.announceTurn()
	}
	return nil
}

// moveResult builds the shot report as player p sees it.
func (s *Session) moveResult(p, shooter int, c board.Coord, o board.Outcome) protocol.MoveResult {
	return protocol.MoveResult{
		X:            c.X,
		Y:            c.Y,
		Outcome:      o,
		ByYou:        p == shooter,
		YourHits:     s.boards[1-p].Hits(),
		OpponentHits: s.boards[p].Hits(),
	}
}

func (s *Session) finish(winner int) {
	s.winner = winner
	s.setPhase(Finished)
	for i, p := range s.players {
		p.Send(protocol.GameOver{Winner: i == winner})
	}
	s.cfg.Metrics.SessionEnded(false)
	s.logger.Info("%s: player %d wins", s.short(), s.players[winner].ID())
}

// ── Views ────────────────────────────────────────────────────────────

// RequestView returns the player's own board and the opponent's board
// masked to fired cells.  It is available once the battle has started,
// including after the game is over.
func (s *Session) RequestView(ctx context.Context, id uint64) (protocol.BoardView, error) {
	var view protocol.BoardView
	err := s.do(ctx, "request_view", func() error {
		var err error
		view, err = s.view(id)
		return err
	})
	if err != nil && sberr.KindOf(err) == sberr.ProtocolViolation {
		// The worker has stopped; the boards can no longer change.
		select {
		case <-s.done:
			return s.view(id)
		default:
		}
	}
	return view, err
}

func (s *Session) view(id uint64) (protocol.BoardView, error) {
	i := s.index(id)
	if i < 0 {
		return protocol.BoardView{}, stranger("request_view", id)
	}
	if s.phase == Placing {
		return protocol.BoardView{}, sberr.Newf(sberr.ProtocolViolation, "request_view", "the battle has not started")
	}
	return protocol.BoardView{
		Own:      s.boards[i].View(),
		Opponent: s.boards[1-i].MaskedView(),
	}, nil
}

// ── Disconnection ────────────────────────────────────────────────────

// Disconnect ends the session because player id was lost.  The other
// player receives exactly one OpponentDisconnected.  Disconnecting
// from a finished session does nothing.
func (s *Session) Disconnect(ctx context.Context, id uint64) error {
	err := s.do(ctx, "disconnect", func() error {
		i := s.index(id)
		if i < 0 {
			return stranger("disconnect", id)
		}
		s.setPhase(Finished)
		s.players[1-i].Send(protocol.OpponentDisconnected{})
		s.cfg.Metrics.SessionEnded(true)
		s.logger.Info("%s: player %d disconnected", s.short(), id)
		return nil
	})
	select {
	case <-s.done:
		if sberr.KindOf(err) == sberr.ProtocolViolation && s.Has(id) {
			return nil
		}
	default:
	}
	return err
}

// abort ends a running session on shutdown.  Neither player wins and
// both are told the other side is gone.
func (s *Session) abort() {
	s.setPhase(Finished)
	s.broadcast(protocol.OpponentDisconnected{})
	s.cfg.Metrics.SessionEnded(true)
	s.logger.Verbose("%s: aborted", s.short())
}
