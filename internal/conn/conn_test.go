package conn

import (
	"errors"
	"sync"
	"testing"
	"time"

	"seabattle/internal/game"
	"seabattle/internal/protocol"
)

// fakeChannel records sends.  When gate is non-nil every Send waits
// for it to be closed first.
type fakeChannel struct {
	mu      sync.Mutex
	sent    []protocol.Message
	sendErr error
	gate    chan struct{}

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{closed: make(chan struct{})}
}

func (c *fakeChannel) Recv() (protocol.Message, error) {
	<-c.closed
	return nil, errors.New("closed")
}

func (c *fakeChannel) Send(m protocol.Message) error {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, m)
	return nil
}

func (c *fakeChannel) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeChannel) RemoteAddr() string { return "pipe" }

func (c *fakeChannel) messages() []protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Message(nil), c.sent...)
}

func (c *fakeChannel) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandle_SendInOrder(t *testing.T) {
	ch := newFakeChannel()
	h := New(1, ch, 8, nil)
	defer h.Kill()

	h.Send(protocol.Welcome{PlayerID: 1})
	h.Send(protocol.Waiting{})
	h.Send(protocol.Turn{YourTurn: true})

	eventually(t, "three messages", func() bool { return len(ch.messages()) == 3 })
	got := ch.messages()
	if got[0].Type() != protocol.TypeWelcome || got[1].Type() != protocol.TypeWaiting || got[2].Type() != protocol.TypeTurn {
		t.Errorf("order = %v", got)
	}
}

func TestHandle_QueueOverflowKills(t *testing.T) {
	ch := newFakeChannel()
	ch.gate = make(chan struct{})
	h := New(2, ch, 2, nil)
	defer close(ch.gate)

	for i := 0; i < 5; i++ {
		h.Send(protocol.Heartbeat{})
	}
	if h.Alive() {
		t.Fatal("overflowing the queue should mark the player dead")
	}
	eventually(t, "channel closed", ch.isClosed)
}

func TestHandle_WriteFailureKills(t *testing.T) {
	ch := newFakeChannel()
	ch.sendErr = errors.New("broken pipe")
	h := New(3, ch, 4, nil)

	h.Probe()
	eventually(t, "dead after failed write", func() bool { return !h.Alive() })
	if h.Probe() {
		t.Error("probe after a failed write should report dead")
	}
}

func TestHandle_ProbeSendsHeartbeat(t *testing.T) {
	ch := newFakeChannel()
	h := New(4, ch, 4, nil)
	defer h.Kill()

	if !h.Probe() {
		t.Fatal("healthy player reported dead")
	}
	eventually(t, "heartbeat", func() bool { return len(ch.messages()) == 1 })
	if ch.messages()[0].Type() != protocol.TypeHeartbeat {
		t.Errorf("got %s", ch.messages()[0].Type())
	}
}

func TestHandle_CloseFlushes(t *testing.T) {
	ch := newFakeChannel()
	ch.gate = make(chan struct{})
	h := New(5, ch, 8, nil)

	h.Send(protocol.MoveResult{X: 1})
	h.Send(protocol.OpponentDisconnected{})
	close(ch.gate)
	h.Close()

	got := ch.messages()
	if len(got) != 2 || got[1].Type() != protocol.TypeOpponentDisconnected {
		t.Errorf("flushed %v", got)
	}
	if !ch.isClosed() || h.Alive() {
		t.Error("Close should leave the channel closed and the player dead")
	}

	h.Send(protocol.Heartbeat{})
	if len(ch.messages()) != 2 {
		t.Error("send after close should be dropped")
	}
}

func TestHandle_KillUnblocksRecv(t *testing.T) {
	ch := newFakeChannel()
	h := New(6, ch, 4, nil)

	errc := make(chan error, 1)
	go func() {
		_, err := h.Recv()
		errc <- err
	}()
	h.Kill()
	h.Kill()

	select {
	case err := <-errc:
		if err == nil {
			t.Error("expected an error from Recv")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Recv still blocked after Kill")
	}
}

func TestHandle_Session(t *testing.T) {
	a := New(7, newFakeChannel(), 4, nil)
	b := New(8, newFakeChannel(), 4, nil)
	defer a.Kill()
	defer b.Kill()

	s1 := game.New(a, b, game.Config{})
	s2 := game.New(a, b, game.Config{})

	a.SetSession(s1)
	if a.Session() != s1 {
		t.Fatal("session not recorded")
	}
	if a.ClearSession(s2) {
		t.Error("clearing a stale session must not succeed")
	}
	if !a.ClearSession(s1) || a.Session() != nil {
		t.Error("clearing the current session should succeed")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	var handles []*Handle
	for i := 0; i < 3; i++ {
		h := New(r.NextID(), newFakeChannel(), 1, nil)
		defer h.Kill()
		handles = append(handles, h)
	}
	// Insert out of order; Snapshot still sorts by ID.
	r.Add(handles[2])
	r.Add(handles[0])
	r.Add(handles[1])

	if handles[0].ID() != 1 || handles[2].ID() != 3 {
		t.Errorf("IDs = %d..%d, want 1..3", handles[0].ID(), handles[2].ID())
	}
	snap := r.Snapshot()
	for i, h := range snap {
		if h.ID() != uint64(i+1) {
			t.Errorf("snapshot[%d] = %d", i, h.ID())
		}
	}
	if h, ok := r.Get(2); !ok || h != handles[1] {
		t.Error("Get(2) failed")
	}
	if !r.Remove(handles[1]) || r.Remove(handles[1]) {
		t.Error("Remove should succeed exactly once")
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d", r.Len())
	}
}
