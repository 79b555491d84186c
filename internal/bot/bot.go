// Package bot is a headless seabattle player.  It dials a server,
// places a fleet and plays to the end, for as many games as asked.  It
// backs the CLI's bot mode and the end-to-end tests.
package bot

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"seabattle/internal/board"
	sberr "seabattle/internal/errors"
	"seabattle/internal/protocol"
	"seabattle/internal/retry"
	"seabattle/internal/transport"
	"seabattle/util"
)

// Options configures a bot.
type Options struct {
	Address string
	Dialer  transport.Dialer
	// Layout is placed every game.  When nil a random layout is drawn
	// for each game.
	Layout *board.Layout
	Fleet  board.Fleet
	Games  int
	// Backoff governs dialing.  Nil selects retry.DefaultBackoff.
	Backoff *retry.Backoff
	Rand    *rand.Rand
	Logger  *util.Logger
}

// Result tallies a bot run.
type Result struct {
	Games     int
	Wins      int
	Losses    int
	Abandoned int // ended by the opponent disconnecting
	Shots     int
}

func (r Result) String() string {
	return fmt.Sprintf("%d game(s): %d won, %d lost, %d abandoned, %d shots",
		r.Games, r.Wins, r.Losses, r.Abandoned, r.Shots)
}

// Bot plays games against a server.
type Bot struct {
	opts   Options
	logger *util.Logger
	rng    *rand.Rand
	result Result
}

// New returns a bot with defaults filled in.
func New(opts Options) *Bot {
	if opts.Dialer == nil {
		opts.Dialer = &transport.TCPDialer{Timeout: 10 * time.Second, WriteTimeout: 10 * time.Second}
	}
	if opts.Fleet == nil {
		opts.Fleet = board.DefaultFleet()
	}
	if opts.Games <= 0 {
		opts.Games = 1
	}
	if opts.Backoff == nil {
		opts.Backoff = retry.DefaultBackoff()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Logger == nil {
		opts.Logger = util.NewLogger(0)
	}
	return &Bot{opts: opts, logger: opts.Logger.Named("bot"), rng: opts.Rand}
}

// Run plays until the requested number of games is done or ctx ends.
// A dropped connection is redialled while games remain.
// Three connections in a row that end without finishing a game stop
// the run.
func (b *Bot) Run(ctx context.Context) (Result, error) {
	fruitless := 0
	for b.result.Games < b.opts.Games {
		ch, err := b.dial(ctx)
		if err != nil {
			return b.result, err
		}
		before := b.result.Games
		err = b.play(ctx, ch)
		ch.Close()
		if ctx.Err() != nil {
			return b.result, ctx.Err()
		}
		if err == nil {
			continue
		}
		if sberr.KindOf(err) == sberr.InvalidLayout {
			return b.result, err
		}
		if b.result.Games == before {
			fruitless++
			if fruitless >= 3 {
				return b.result, fmt.Errorf("giving up: %w", err)
			}
		} else {
			fruitless = 0
		}
		b.logger.Verbose("connection ended: %v", err)
	}
	return b.result, nil
}

func (b *Bot) dial(ctx context.Context) (transport.Channel, error) {
	bo := *b.opts.Backoff
	bo.RetryIf = sberr.IsRetryable
	bo.Rand = b.rng
	bo.OnRetry = func(attempt int, err error, wait time.Duration) {
		b.logger.Verbose("dial %s failed (attempt %d): %v; retrying in %s", b.opts.Address, attempt, err, wait.Round(time.Millisecond))
	}

	var ch transport.Channel
	err := bo.Do(ctx, func(int) error {
		var err error
		ch, err = b.opts.Dialer.Dial(ctx, b.opts.Address)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", b.opts.Address, err)
	}
	b.logger.Verbose("connected to %s", ch.RemoteAddr())
	return ch, nil
}

// game is the state of the match in progress.
type game struct {
	hunter *hunter
	last   board.Coord
	over   bool
}

// play runs games on one connection.  It returns nil once enough games
// are done, or the error that ended the connection.
func (b *Bot) play(ctx context.Context, ch transport.Channel) error {
	stop := context.AfterFunc(ctx, func() { ch.Close() })
	defer stop()

	var g *game
	target := b.opts.Fleet.Cells()

	fire := func() error {
		c, ok := g.hunter.Next()
		if !ok {
			return fmt.Errorf("no cells left to fire at")
		}
		g.last = c
		b.result.Shots++
		return ch.Send(protocol.Fire{X: c.X, Y: c.Y})
	}

	for {
		m, err := ch.Recv()
		if err != nil {
			if sberr.KindOf(err) == sberr.ProtocolViolation {
				b.logger.Warn("server sent a bad message: %v", err)
				continue
			}
			return err
		}

		switch msg := m.(type) {
		case protocol.Welcome:
			b.logger.Verbose("joined as player %d: %s", msg.PlayerID, msg.Greeting)
		case protocol.Waiting:
			b.logger.Verbose("waiting for an opponent")
		case protocol.GameStarted:
			b.logger.Info("game %s against player %d", shortID(msg.SessionID), msg.OpponentID)
			g = &game{hunter: newHunter()}
			layout, err := b.layout()
			if err != nil {
				return err
			}
			if err := ch.Send(protocol.SubmitLayout{Layout: layout}); err != nil {
				return err
			}
		case protocol.LayoutAccepted:
			b.logger.Debug("layout accepted")
		case protocol.Turn:
			if msg.YourTurn && g != nil && !g.over {
				if err := fire(); err != nil {
					return err
				}
			}
		case protocol.MoveResult:
			if !msg.ByYou || g == nil {
				continue
			}
			c := board.Coord{X: msg.X, Y: msg.Y}
			g.hunter.Record(c, msg.Outcome)
			b.logger.Debug("shot %s: %s (%d/%d)", c, msg.Outcome, msg.YourHits, target)
			if msg.Outcome != board.Miss && msg.YourHits < target {
				if err := fire(); err != nil {
					return err
				}
			}
		case protocol.ShipSunk:
			if msg.ByYou && g != nil {
				g.hunter.Sunk(msg.Cells)
			}
		case protocol.GameOver:
			b.result.Games++
			if msg.Winner {
				b.result.Wins++
				b.logger.Info("won")
			} else {
				b.result.Losses++
				b.logger.Info("lost")
			}
			if g != nil {
				g.over = true
			}
			if b.result.Games >= b.opts.Games {
				return nil
			}
		case protocol.OpponentDisconnected:
			b.result.Games++
			b.result.Abandoned++
			b.logger.Info("opponent disconnected")
			if g != nil {
				g.over = true
			}
			if b.result.Games >= b.opts.Games {
				return nil
			}
		case protocol.Error:
			b.logger.Warn("server: %s: %s", msg.Kind, msg.Message)
			if sberr.ParseKind(msg.Kind) == sberr.InvalidLayout {
				return sberr.Newf(sberr.InvalidLayout, "submit_layout", "%s", msg.Message)
			}
		case protocol.Heartbeat, protocol.BoardView:
		case protocol.SubmitLayout, protocol.Fire, protocol.RequestView:
			b.logger.Warn("server sent client message %s", m.Type())
		}
	}
}

// shortID abbreviates a session id for logging.  The id comes off the
// wire and may be any length.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (b *Bot) layout() (board.Layout, error) {
	if b.opts.Layout != nil {
		return *b.opts.Layout, nil
	}
	return board.RandomLayout(b.rng, b.opts.Fleet)
}
