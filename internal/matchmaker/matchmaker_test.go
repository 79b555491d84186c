package matchmaker

import (
	"context"
	"testing"
	"time"

	"seabattle/internal/board"
	"seabattle/internal/conn"
	"seabattle/internal/conn/conntest"
	"seabattle/internal/game"
	"seabattle/internal/metrics"
	"seabattle/internal/protocol"
)

type player struct {
	*conn.Handle
	ch *conntest.Channel
}

func newPlayers(t *testing.T, n int) []player {
	t.Helper()
	reg := conn.NewRegistry()
	out := make([]player, n)
	for i := range out {
		ch := conntest.New()
		h := conn.New(reg.NextID(), ch, 16, nil)
		t.Cleanup(h.Kill)
		out[i] = player{h, ch}
	}
	return out
}

func newMatchmaker(t *testing.T, rematch bool) (*Matchmaker, *metrics.Collector) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m := metrics.New()
	return New(ctx, Options{
		Game:    game.Config{Fleet: board.Fleet{1: 1}, Metrics: m},
		Rematch: rematch,
	}), m
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEnqueue_FIFOPairs(t *testing.T) {
	mm, m := newMatchmaker(t, false)
	p := newPlayers(t, 4)

	if s := mm.Enqueue(p[0].Handle); s != nil {
		t.Fatal("first player should wait")
	}
	s1 := mm.Enqueue(p[1].Handle)
	if s1 == nil {
		t.Fatal("second player should be paired")
	}
	if mm.Enqueue(p[2].Handle) != nil {
		t.Fatal("third player should wait")
	}
	s2 := mm.Enqueue(p[3].Handle)
	if s2 == nil {
		t.Fatal("fourth player should be paired")
	}

	if got := s1.Players(); got[0] != game.Player(p[0].Handle) || got[1] != game.Player(p[1].Handle) {
		t.Errorf("first pair = %d,%d", got[0].ID(), got[1].ID())
	}
	if got := s2.Players(); got[0] != game.Player(p[2].Handle) || got[1] != game.Player(p[3].Handle) {
		t.Errorf("second pair = %d,%d", got[0].ID(), got[1].ID())
	}
	want := []*game.Session{s1, s1, s2, s2}
	for i, pl := range p {
		if pl.Session() != want[i] {
			t.Errorf("player %d has the wrong session", pl.ID())
		}
		if !pl.ch.WaitFor(protocol.TypeGameStarted, 1, time.Second) {
			t.Errorf("player %d never got GameStarted", pl.ID())
		}
	}

	if n := p[0].ch.Count(protocol.TypeWaiting); n != 1 {
		t.Errorf("first player got %d Waiting", n)
	}
	if n := p[1].ch.Count(protocol.TypeWaiting); n != 0 {
		t.Errorf("immediately paired player got %d Waiting", n)
	}
	gs, _ := p[0].ch.Last(protocol.TypeGameStarted)
	if !gs.(protocol.GameStarted).FirstToMove {
		t.Error("oldest player should move first")
	}
	if len(mm.Waiting()) != 0 || m.Waiting() != 0 {
		t.Error("pool should be empty")
	}
	if m.ActiveSessions() != 2 {
		t.Errorf("active sessions = %d", m.ActiveSessions())
	}
}

func TestEnqueue_Ignored(t *testing.T) {
	mm, _ := newMatchmaker(t, false)
	p := newPlayers(t, 3)

	mm.Enqueue(p[0].Handle)
	mm.Enqueue(p[0].Handle)
	if got := mm.Waiting(); len(got) != 1 {
		t.Errorf("duplicate enqueue: pool = %v", got)
	}

	p[1].Kill()
	if mm.Enqueue(p[1].Handle) != nil || len(mm.Waiting()) != 1 {
		t.Error("dead player should not be queued")
	}

	s := mm.Enqueue(p[2].Handle)
	if s == nil {
		t.Fatal("expected a pairing")
	}
	if mm.Enqueue(p[2].Handle) != nil || len(mm.Waiting()) != 0 {
		t.Error("player with a session should not be queued")
	}
}

func TestEnqueue_SkipsDeadPartner(t *testing.T) {
	mm, _ := newMatchmaker(t, false)
	p := newPlayers(t, 2)

	mm.Enqueue(p[0].Handle)
	p[0].Kill()

	if s := mm.Enqueue(p[1].Handle); s != nil {
		t.Fatal("must not pair with a dead player")
	}
	if got := mm.Waiting(); len(got) != 1 || got[0] != p[1].ID() {
		t.Errorf("pool = %v, want [%d]", got, p[1].ID())
	}
}

func TestRemove(t *testing.T) {
	mm, m := newMatchmaker(t, false)
	p := newPlayers(t, 3)
	for _, pl := range p {
		mm.Enqueue(pl.Handle)
	}
	// p[0] and p[1] paired; p[2] waits.
	if mm.Remove(p[0].Handle) {
		t.Error("paired player is not in the pool")
	}
	if !mm.Remove(p[2].Handle) || mm.Remove(p[2].Handle) {
		t.Error("Remove should succeed exactly once")
	}
	if m.Waiting() != 0 {
		t.Errorf("waiting gauge = %d", m.Waiting())
	}
}

func TestSessionEnd_Rematch(t *testing.T) {
	mm, _ := newMatchmaker(t, true)
	p := newPlayers(t, 2)
	mm.Enqueue(p[0].Handle)
	s := mm.Enqueue(p[1].Handle)

	p[0].Kill()
	if err := s.Disconnect(context.Background(), p[0].ID()); err != nil {
		t.Fatal(err)
	}

	if !p[1].ch.WaitFor(protocol.TypeWaiting, 1, 2*time.Second) {
		t.Fatal("survivor was not requeued")
	}
	if n := p[1].ch.Count(protocol.TypeOpponentDisconnected); n != 1 {
		t.Errorf("survivor got %d OpponentDisconnected", n)
	}
	waitUntil(t, "survivor back in pool", func() bool {
		w := mm.Waiting()
		return len(w) == 1 && w[0] == p[1].ID() && p[1].Session() == nil
	})
}

func TestSessionEnd_NoRematchCloses(t *testing.T) {
	mm, _ := newMatchmaker(t, false)
	p := newPlayers(t, 2)
	mm.Enqueue(p[0].Handle)
	s := mm.Enqueue(p[1].Handle)

	p[0].Kill()
	s.Disconnect(context.Background(), p[0].ID()) //nolint:errcheck

	waitUntil(t, "survivor closed", p[1].ch.Closed)
	if n := p[1].ch.Count(protocol.TypeOpponentDisconnected); n != 1 {
		t.Errorf("final message not flushed before close: got %d", n)
	}
	if len(mm.Waiting()) != 0 {
		t.Error("pool should stay empty without rematch")
	}
}

func TestEnqueue_AfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mm := New(ctx, Options{Rematch: true})
	cancel()

	p := newPlayers(t, 1)
	if mm.Enqueue(p[0].Handle) != nil || len(mm.Waiting()) != 0 {
		t.Error("enqueue after shutdown should be ignored")
	}
}

func TestClose(t *testing.T) {
	mm, _ := newMatchmaker(t, true)
	p := newPlayers(t, 2)
	mm.Enqueue(p[0].Handle)

	waiting := mm.Close()
	if len(waiting) != 1 || waiting[0] != p[0].Handle {
		t.Errorf("Close returned %v", waiting)
	}
	if mm.Enqueue(p[1].Handle) != nil || len(mm.Waiting()) != 0 {
		t.Error("closed matchmaker should not queue or pair")
	}
}
