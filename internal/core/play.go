package core

import (
	"context"

	"seabattle/internal/board"
	"seabattle/internal/bot"
	"seabattle/internal/transport"
	"seabattle/util"
)

// PlayMode connects an automated player to a server and plays Games
// games.  A nil Layout means a fresh random layout every game.
type PlayMode struct {
	Address string
	Dialer  transport.Dialer
	Layout  *board.Layout
	Fleet   board.Fleet
	Games   int
	Logger  *util.Logger
}

// Run plays until the games are done, the bot gives up, or ctx ends.
func (m *PlayMode) Run(ctx context.Context) error {
	b := bot.New(bot.Options{
		Address: m.Address,
		Dialer:  m.Dialer,
		Layout:  m.Layout,
		Fleet:   m.Fleet,
		Games:   m.Games,
		Logger:  m.Logger,
	})
	res, err := b.Run(ctx)
	m.Logger.Info("%s", res)
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
