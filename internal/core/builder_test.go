package core

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"seabattle/config"
	"seabattle/internal/board"
	"seabattle/internal/metrics"
	"seabattle/internal/transport"
	"seabattle/util"
)

// TestBuild_Serve verifies that Build produces a ServeMode for a
// listen configuration.
func TestBuild_Serve(t *testing.T) {
	cfg := config.Default()
	cfg.Listen = true
	cfg.WSPort = 8080

	mode, err := Build(cfg, util.NewLogger(0), metrics.New())
	if err != nil {
		t.Fatal(err)
	}
	sm, ok := mode.(*ServeMode)
	if !ok {
		t.Fatalf("expected *ServeMode, got %T", mode)
	}
	if sm.Port != config.DefaultPort || sm.WSPort != 8080 || !sm.Rematch {
		t.Errorf("unexpected mode %+v", sm)
	}
	if !sm.Fleet.Equal(board.DefaultFleet()) {
		t.Errorf("Fleet = %s, want default", sm.Fleet)
	}
}

// TestBuild_Play verifies the transport selection for bot mode.
func TestBuild_Play(t *testing.T) {
	tests := []struct {
		transport string
		want      interface{}
	}{
		{config.TransportTCP, &transport.TCPDialer{}},
		{config.TransportWS, &transport.WSDialer{}},
		{config.TransportSSH, &transport.SSHDialer{}},
	}
	for _, tt := range tests {
		t.Run(tt.transport, func(t *testing.T) {
			cfg := config.Default()
			cfg.Host = "example.com"
			cfg.Port = 4000
			cfg.Transport = tt.transport

			mode, err := Build(cfg, util.NewLogger(0), nil)
			if err != nil {
				t.Fatal(err)
			}
			pm, ok := mode.(*PlayMode)
			if !ok {
				t.Fatalf("expected *PlayMode, got %T", mode)
			}
			if pm.Address != "example.com:4000" {
				t.Errorf("Address = %q", pm.Address)
			}
			switch tt.want.(type) {
			case *transport.TCPDialer:
				_, ok = pm.Dialer.(*transport.TCPDialer)
			case *transport.WSDialer:
				_, ok = pm.Dialer.(*transport.WSDialer)
			case *transport.SSHDialer:
				_, ok = pm.Dialer.(*transport.SSHDialer)
			}
			if !ok {
				t.Errorf("Dialer = %T, want %T", pm.Dialer, tt.want)
			}
			if pm.Layout != nil {
				t.Error("Layout should be nil without a layout file")
			}
		})
	}
}

func TestBuild_Files(t *testing.T) {
	dir := t.TempDir()
	fleet := filepath.Join(dir, "fleet.yaml")
	layout := filepath.Join(dir, "layout.xml")
	os.WriteFile(fleet, []byte("fleet:\n  - {length: 4, count: 1}\n"), 0o600)
	os.WriteFile(layout, []byte(`<fleet><ship type="4" x="3" y="4" orientation="vertical"/></fleet>`), 0o600)

	cfg := config.Default()
	cfg.Host = "localhost"
	cfg.FleetFile = fleet
	cfg.LayoutFile = layout

	mode, err := Build(cfg, util.NewLogger(0), nil)
	if err != nil {
		t.Fatal(err)
	}
	pm := mode.(*PlayMode)
	if !pm.Fleet.Equal(board.Fleet{4: 1}) {
		t.Errorf("Fleet = %s", pm.Fleet)
	}
	if pm.Layout == nil || len(pm.Layout.Ships) != 1 {
		t.Fatalf("Layout = %+v", pm.Layout)
	}

	// A layout that does not match the fleet is rejected up front.
	cfg.FleetFile = ""
	if _, err := Build(cfg, util.NewLogger(0), nil); err == nil {
		t.Error("expected layout/fleet mismatch error")
	}

	cfg.FleetFile = filepath.Join(dir, "missing.yaml")
	if _, err := Build(cfg, util.NewLogger(0), nil); err == nil {
		t.Error("expected missing fleet file error")
	}
}

// TestServeAndPlay runs a server mode and two play modes end to end.
func TestServeAndPlay(t *testing.T) {
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	wsPort, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}

	m := metrics.New()
	serve := &ServeMode{
		BindAddress:   "127.0.0.1",
		Port:          port,
		WSPort:        wsPort,
		WriteTimeout:  time.Second,
		ReapInterval:  time.Second,
		OutboundQueue: 64,
		Rematch:       true,
		Fleet:         board.Fleet{4: 1},
		Logger:        util.NewLogger(0),
		Metrics:       m,
	}

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- serve.Run(ctx) }()
	// The WebSocket listener opens after TCP; probing it does not
	// create a player.
	waitListening(t, util.FormatAddr("127.0.0.1", wsPort))

	play := func(d transport.Dialer, p int) *PlayMode {
		return &PlayMode{
			Address: util.FormatAddr("127.0.0.1", p),
			Dialer:  d,
			Fleet:   board.Fleet{4: 1},
			Games:   1,
			Logger:  util.NewLogger(0),
		}
	}
	a := play(&transport.TCPDialer{Timeout: time.Second}, port)
	b := play(&transport.WSDialer{Timeout: time.Second}, wsPort)

	errs := make(chan error, 2)
	playCtx, stop := context.WithTimeout(ctx, 20*time.Second)
	defer stop()
	go func() { errs <- a.Run(playCtx) }()
	go func() { errs <- b.Run(playCtx) }()
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Errorf("play: %v", err)
		}
	}
	if playCtx.Err() != nil {
		t.Fatal("game did not finish in time")
	}

	cancel()
	select {
	case err := <-served:
		if err != nil {
			t.Errorf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	if got := m.GamesFinished(); got != 1 {
		t.Errorf("GamesFinished = %d, want 1", got)
	}
}

func TestServe_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	serve := &ServeMode{
		BindAddress:  "127.0.0.1",
		Port:         ln.Addr().(*net.TCPAddr).Port,
		ReapInterval: time.Second,
		Fleet:        board.DefaultFleet(),
		Logger:       util.NewLogger(0),
	}
	if err := serve.Run(context.Background()); err == nil {
		t.Fatal("expected listen error")
	}
}

func waitListening(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		c, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			c.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("%s never started listening", addr)
}
