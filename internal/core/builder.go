package core

import (
	"fmt"

	"seabattle/config"
	"seabattle/internal/board"
	"seabattle/internal/metrics"
	"seabattle/internal/transport"
	"seabattle/util"
)

// Build constructs the appropriate Mode from the given configuration.
// Files named by the configuration are read here, so a bad fleet or
// layout is reported before any connection is made.
func Build(cfg *config.Config, logger *util.Logger, m *metrics.Collector) (Mode, error) {
	fleet, err := buildFleet(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Listen {
		return buildServe(cfg, fleet, logger, m), nil
	}
	return buildPlay(cfg, fleet, logger)
}

// ── mode builders ────────────────────────────────────────────────────

func buildServe(cfg *config.Config, fleet board.Fleet, logger *util.Logger, m *metrics.Collector) Mode {
	return &ServeMode{
		BindAddress:   cfg.BindAddress,
		Port:          cfg.Port,
		WSPort:        cfg.WSPort,
		SSHPort:       cfg.SSHPort,
		SSHHostKey:    cfg.SSHHostKey,
		WriteTimeout:  cfg.WriteTimeout,
		ReapInterval:  cfg.ReapInterval,
		OutboundQueue: cfg.OutboundQueue,
		Rematch:       cfg.Rematch,
		Fleet:         fleet,
		Logger:        logger,
		Metrics:       m,
	}
}

func buildPlay(cfg *config.Config, fleet board.Fleet, logger *util.Logger) (Mode, error) {
	mode := &PlayMode{
		Address: util.FormatAddr(cfg.Host, cfg.Port),
		Dialer:  buildDialer(cfg),
		Fleet:   fleet,
		Games:   cfg.Games,
		Logger:  logger,
	}
	if cfg.LayoutFile != "" {
		l, err := board.LoadLayout(cfg.LayoutFile)
		if err != nil {
			return nil, err
		}
		if err := l.Validate(fleet); err != nil {
			return nil, fmt.Errorf("layout %s: %w", cfg.LayoutFile, err)
		}
		mode.Layout = &l
	}
	return mode, nil
}

// ── helpers ──────────────────────────────────────────────────────────

func buildFleet(cfg *config.Config) (board.Fleet, error) {
	if cfg.FleetFile == "" {
		return board.DefaultFleet(), nil
	}
	return board.LoadFleet(cfg.FleetFile)
}

// buildDialer selects the bot's transport.  The SSH dialer does not
// pin a host key; the game server generates one per process unless
// configured with a fixed key.
func buildDialer(cfg *config.Config) transport.Dialer {
	switch cfg.Transport {
	case config.TransportWS:
		return &transport.WSDialer{Timeout: config.DefaultDialTimeout, WriteTimeout: cfg.WriteTimeout}
	case config.TransportSSH:
		return &transport.SSHDialer{Timeout: config.DefaultDialTimeout, WriteTimeout: cfg.WriteTimeout}
	default:
		return &transport.TCPDialer{Timeout: config.DefaultDialTimeout, WriteTimeout: cfg.WriteTimeout}
	}
}
