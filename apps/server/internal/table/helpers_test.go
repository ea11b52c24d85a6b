package table

import (
	"sync"
	"testing"
	"time"

	"settlers-lite/apps/server/internal/codec"
	"settlers-lite/board"
	"settlers-lite/settlers"
)

type outbox struct {
	mu   sync.Mutex
	sent map[uint64][]*codec.ServerEnvelope
}

func newOutbox() *outbox {
	return &outbox{sent: make(map[uint64][]*codec.ServerEnvelope)}
}

func (o *outbox) deliver(userID uint64, env *codec.ServerEnvelope) {
	o.mu.Lock()
	o.sent[userID] = append(o.sent[userID], env)
	o.mu.Unlock()
}

func (o *outbox) of(userID uint64, typ string) []*codec.ServerEnvelope {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []*codec.ServerEnvelope
	for _, env := range o.sent[userID] {
		if env.Type == typ {
			out = append(out, env)
		}
	}
	return out
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func testRules() settlers.Config {
	cfg := settlers.DefaultConfig()
	cfg.Seed = 11
	cfg.VictoryPoints = 3
	cfg.ActionTimeout = 2 * time.Second
	return cfg
}

func newTestTable(t *testing.T, out *outbox, opts ...Option) *Table {
	t.Helper()
	tbl, err := New("t1", TableConfig{Rules: testRules(), Layout: board.StandardLayout()}, out.deliver, opts...)
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	t.Cleanup(tbl.Stop)
	return tbl
}

func submit(t *testing.T, tbl *Table, e Event) error {
	t.Helper()
	return tbl.SubmitEvent(e)
}
