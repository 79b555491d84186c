package server

import (
	"context"

	"seabattle/internal/conn"
	sberr "seabattle/internal/errors"
	"seabattle/internal/protocol"
	"seabattle/internal/transport"
	"seabattle/util"
)

// serveConn is the worker for one player.  It owns the read side of
// the channel; everything the player is sent goes through the Handle.
func (s *Server) serveConn(ctx context.Context, ch transport.Channel, via string) {
	h := conn.New(s.registry.NextID(), ch, s.opts.OutboundQueue, s.opts.Logger)
	s.registry.Add(h)
	s.metrics.ConnectionOpened()
	defer s.reaper.Reap(context.Background(), h)

	if s.closing.Load() {
		h.Close()
		return
	}

	s.logger.Verbose("player %d connected from %s (%s)", h.ID(), h.RemoteAddr(), via)
	h.Send(protocol.Welcome{PlayerID: h.ID(), Greeting: s.opts.Greeting})
	s.mm.Enqueue(h)

	for {
		m, err := h.Recv()
		if err != nil {
			if sberr.KindOf(err) == sberr.ProtocolViolation {
				s.reject(h, err)
				continue
			}
			switch {
			case !h.Alive():
			case util.IsClosed(err):
				s.logger.Verbose("player %d hung up", h.ID())
			default:
				s.logger.Verbose("player %d left: %v", h.ID(), err)
			}
			return
		}
		if err := s.dispatch(ctx, h, m); err != nil {
			if ctx.Err() != nil || !sberr.IsRecoverable(err) {
				return
			}
			s.reject(h, err)
		}
	}
}

// dispatch routes one client message to the player's session.
func (s *Server) dispatch(ctx context.Context, h *conn.Handle, m protocol.Message) error {
	if _, ok := m.(protocol.Heartbeat); ok {
		return nil
	}

	sess := h.Session()
	if sess == nil {
		if !protocol.FromClient(m.Type()) {
			return sberr.Newf(sberr.ProtocolViolation, string(m.Type()), "not a client message")
		}
		return sberr.Newf(sberr.ProtocolViolation, string(m.Type()), "you are not in a game yet")
	}

	switch msg := m.(type) {
	case protocol.SubmitLayout:
		return sess.SubmitLayout(ctx, h.ID(), msg.Layout)
	case protocol.Fire:
		return sess.Fire(ctx, h.ID(), msg.X, msg.Y)
	case protocol.RequestView:
		view, err := sess.RequestView(ctx, h.ID())
		if err != nil {
			return err
		}
		h.Send(view)
		return nil
	case protocol.Welcome, protocol.Waiting, protocol.GameStarted, protocol.LayoutAccepted,
		protocol.Turn, protocol.MoveResult, protocol.ShipSunk, protocol.GameOver,
		protocol.OpponentDisconnected, protocol.BoardView, protocol.Error:
		return sberr.Newf(sberr.ProtocolViolation, string(m.Type()), "not a client message")
	default:
		return sberr.Newf(sberr.Internal, string(m.Type()), "unhandled message")
	}
}

// reject reports a recoverable failure to the offending player only.
func (s *Server) reject(h *conn.Handle, err error) {
	kind := sberr.KindOf(err)
	s.metrics.RecordError(err.Error())
	s.logger.Warn("player %d: %v", h.ID(), err)

	msg := err.Error()
	var ge *sberr.GameError
	if sberr.As(err, &ge) && ge.Msg != "" {
		msg = ge.Msg
	}
	h.Send(protocol.Error{Kind: kind.String(), Message: msg})
}
