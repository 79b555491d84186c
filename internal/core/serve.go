package core

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/ssh"

	"seabattle/internal/board"
	"seabattle/internal/metrics"
	"seabattle/internal/server"
	"seabattle/internal/transport"
	"seabattle/util"
)

// ServeMode runs the game server.  The TCP listener is always opened;
// the WebSocket and SSH listeners only when their port is non-zero.
type ServeMode struct {
	BindAddress   string
	Port          int
	WSPort        int // 0 = disabled
	SSHPort       int // 0 = disabled
	SSHHostKey    string
	WriteTimeout  time.Duration
	ReapInterval  time.Duration
	OutboundQueue int
	Rematch       bool
	Fleet         board.Fleet
	Logger        *util.Logger
	Metrics       *metrics.Collector
}

// Run opens every listener and serves until ctx is cancelled.
func (m *ServeMode) Run(ctx context.Context) error {
	listeners, err := m.listen()
	if err != nil {
		return err
	}

	srv := server.New(server.Options{
		Listeners:     listeners,
		Fleet:         m.Fleet,
		ReapInterval:  m.ReapInterval,
		OutboundQueue: m.OutboundQueue,
		Rematch:       m.Rematch,
		Logger:        m.Logger,
		Metrics:       m.Metrics,
	})
	m.Logger.Verbose("fleet %s, reaping every %s", m.Fleet, m.ReapInterval)
	return srv.Serve(ctx)
}

// listen opens the configured listeners.  On failure every listener
// already opened is closed again.
func (m *ServeMode) listen() ([]transport.Listener, error) {
	var listeners []transport.Listener
	fail := func(err error) ([]transport.Listener, error) {
		for _, ln := range listeners {
			ln.Close()
		}
		return nil, err
	}

	tcp, err := transport.ListenTCP(util.ListenAddr(m.BindAddress, m.Port), m.WriteTimeout)
	if err != nil {
		return fail(fmt.Errorf("listen tcp: %w", err))
	}
	listeners = append(listeners, tcp)

	if m.WSPort > 0 {
		ws, err := transport.ListenWS(util.ListenAddr(m.BindAddress, m.WSPort), transport.WSOptions{
			WriteTimeout: m.WriteTimeout,
			Stats:        m.Metrics.JSON,
		})
		if err != nil {
			return fail(fmt.Errorf("listen ws: %w", err))
		}
		listeners = append(listeners, ws)
	}

	if m.SSHPort > 0 {
		sl, err := transport.ListenSSH(util.ListenAddr(m.BindAddress, m.SSHPort), transport.SSHOptions{
			HostKeyPath:  m.SSHHostKey,
			WriteTimeout: m.WriteTimeout,
			Logger:       m.Logger,
		})
		if err != nil {
			return fail(fmt.Errorf("listen ssh: %w", err))
		}
		m.Logger.Info("ssh host key %s", ssh.FingerprintSHA256(sl.HostKey()))
		listeners = append(listeners, sl)
	}
	return listeners, nil
}
