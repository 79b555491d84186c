// Package core is the orchestration layer.  It composes transports,
// the game server and the bot into complete operational modes and
// provides a builder that selects the right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	board/protocol  →  transport  →  game/matchmaker/reaper  →  server/bot  →  core  →  cmd (CLI)
package core

import "context"

// Mode represents a complete operational mode of seabattle (serve or
// play).  Each mode owns its full lifecycle from opening connections
// to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
