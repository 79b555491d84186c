// Package protocol defines the messages exchanged between a seabattle
// server and its players, and their wire encoding.
//
// Message is a closed set: every concrete type lives in this file and
// implements the unexported marker method, so a type switch over the
// types listed in All is exhaustive.
//
// On the wire each message is a JSON envelope
//
//	{"type":"fire","data":{"x":3,"y":4}}
//
// sent one per line on byte streams (TCP, SSH) or one per text frame
// on WebSocket.
package protocol

import (
	"seabattle/internal/board"
)

// Type names a message on the wire.
type Type string

const (
	TypeWelcome              Type = "welcome"
	TypeWaiting              Type = "waiting"
	TypeGameStarted          Type = "game_started"
	TypeSubmitLayout         Type = "submit_layout"
	TypeLayoutAccepted       Type = "layout_accepted"
	TypeTurn                 Type = "turn"
	TypeFire                 Type = "fire"
	TypeMoveResult           Type = "move_result"
	TypeShipSunk             Type = "ship_sunk"
	TypeGameOver             Type = "game_over"
	TypeOpponentDisconnected Type = "opponent_disconnected"
	TypeRequestView          Type = "request_view"
	TypeBoardView            Type = "board_view"
	TypeHeartbeat            Type = "heartbeat"
	TypeError                Type = "error"
)

// Message is implemented by every protocol message.
type Message interface {
	Type() Type
	isMessage()
}

// ── server → client ──────────────────────────────────────────────────

// Welcome is sent once, right after a connection is accepted.
type Welcome struct {
	PlayerID uint64 `json:"playerId"`
	Greeting string `json:"greeting,omitempty"`
}

// Waiting is sent when a player is queued without an opponent.
type Waiting struct{}

// GameStarted is sent to both players when they are paired.  The
// session then waits for both layouts.
type GameStarted struct {
	FirstToMove bool   `json:"firstToMove"`
	SessionID   string `json:"sessionId"`
	OpponentID  uint64 `json:"opponentId"`
}

// LayoutAccepted acknowledges a valid SubmitLayout.
type LayoutAccepted struct{}

// Turn tells a player whether it is their move.  It is sent to both
// players when the battle starts and whenever the turn changes.
type Turn struct {
	YourTurn bool `json:"yourTurn"`
}

// MoveResult reports a resolved shot to both players.
type MoveResult struct {
	X            int           `json:"x"`
	Y            int           `json:"y"`
	Outcome      board.Outcome `json:"outcome"`
	ByYou        bool          `json:"byYou"`
	YourHits     int           `json:"yourHits"`
	OpponentHits int           `json:"opponentHits"`
}

// ShipSunk follows the MoveResult of the hit that completed a ship.
type ShipSunk struct {
	X     int           `json:"x"`
	Y     int           `json:"y"`
	ByYou bool          `json:"byYou"`
	Cells []board.Coord `json:"cells"`
}

// GameOver ends a session that has a winner.
type GameOver struct {
	Winner bool `json:"winner"`
}

// OpponentDisconnected ends a session whose other player was lost.
type OpponentDisconnected struct{}

// BoardView answers RequestView: the player's own board in full and
// the opponent's board masked to fired cells.
type BoardView struct {
	Own      board.Grid `json:"own"`
	Opponent board.Grid `json:"opponent"`
}

// Heartbeat is sent by the server to probe liveness.  Clients may
// also send it; the server ignores it.
type Heartbeat struct{}

// Error reports a recoverable failure of the player's last request.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ── client → server ──────────────────────────────────────────────────

// SubmitLayout places the sender's fleet.
type SubmitLayout struct {
	Layout board.Layout `json:"layout"`
}

// Fire shoots at the opponent's board.
type Fire struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// RequestView asks for a BoardView.
type RequestView struct{}

func (Welcome) Type() Type              { return TypeWelcome }
func (Waiting) Type() Type              { return TypeWaiting }
func (GameStarted) Type() Type          { return TypeGameStarted }
func (SubmitLayout) Type() Type         { return TypeSubmitLayout }
func (LayoutAccepted) Type() Type       { return TypeLayoutAccepted }
func (Turn) Type() Type                 { return TypeTurn }
func (Fire) Type() Type                 { return TypeFire }
func (MoveResult) Type() Type           { return TypeMoveResult }
func (ShipSunk) Type() Type             { return TypeShipSunk }
func (GameOver) Type() Type             { return TypeGameOver }
func (OpponentDisconnected) Type() Type { return TypeOpponentDisconnected }
func (RequestView) Type() Type          { return TypeRequestView }
func (BoardView) Type() Type            { return TypeBoardView }
func (Heartbeat) Type() Type            { return TypeHeartbeat }
func (Error) Type() Type                { return TypeError }

func (Welcome) isMessage()              {}
func (Waiting) isMessage()              {}
func (GameStarted) isMessage()          {}
func (SubmitLayout) isMessage()         {}
func (LayoutAccepted) isMessage()       {}
func (Turn) isMessage()                 {}
func (Fire) isMessage()                 {}
func (MoveResult) isMessage()           {}
func (ShipSunk) isMessage()             {}
func (GameOver) isMessage()             {}
func (OpponentDisconnected) isMessage() {}
func (RequestView) isMessage()          {}
func (BoardView) isMessage()            {}
func (Heartbeat) isMessage()            {}
func (Error) isMessage()                {}

// All lists every message type.
var All = []Type{
	TypeWelcome, TypeWaiting, TypeGameStarted, TypeSubmitLayout,
	TypeLayoutAccepted, TypeTurn, TypeFire, TypeMoveResult, TypeShipSunk,
	TypeGameOver, TypeOpponentDisconnected, TypeRequestView,
	TypeBoardView, TypeHeartbeat, TypeError,
}

// FromClient reports whether a client may send messages of type t.
func FromClient(t Type) bool {
	switch t {
	case TypeSubmitLayout, TypeFire, TypeRequestView, TypeHeartbeat:
		return true
	}
	return false
}

// Terminal reports whether m ends a session for its receiver.
func Terminal(m Message) bool {
	switch m.(type) {
	case GameOver, OpponentDisconnected:
		return true
	}
	return false
}
