package npc

import (
	"context"
	"testing"
	"time"

	"settlers-lite/board"
	"settlers-lite/settlers"
)

func TestRegistryDefaultsAndLoad(t *testing.T) {
	r := DefaultRegistry()
	if r.Count() != 4 {
		t.Fatalf("expected 4 built-in personas, got %d", r.Count())
	}
	if p := r.Get("builder"); p == nil || p.Tier != 1 {
		t.Fatalf("expected builder persona in tier 1, got %+v", p)
	}
	if got := len(r.ByTier(1)); got != 2 {
		t.Fatalf("expected 2 tier-1 personas, got %d", got)
	}

	if err := r.LoadFromJSON([]byte(`[{"id":""},{"id":" Extra ","tier":3,"color":"Green"}]`)); err != nil {
		t.Fatalf("LoadFromJSON err: %v", err)
	}
	if r.Count() != 5 {
		t.Fatalf("expected entries without an id to be skipped, got %d personas", r.Count())
	}
	extra := r.Get("EXTRA")
	if extra == nil || extra.ID != "extra" || extra.Name != "extra" || extra.Color != "green" {
		t.Fatalf("expected a normalized extra persona, got %+v", extra)
	}
	if err := r.LoadFromJSON([]byte(`{`)); err == nil {
		t.Fatalf("expected invalid JSON to fail")
	}
}

func TestRegistryRejectsOutOfRangePersonas(t *testing.T) {
	r := DefaultRegistry()
	bad := []string{
		`[{"id":"ok","tier":2},{"id":"lazy","tier":4}]`,
		`[{"id":"wild","tier":1,"brain":{"randomness":1.5}}]`,
		`[{"id":"meek","tier":2,"brain":{"aggression":-0.1}}]`,
	}
	for _, data := range bad {
		if err := r.LoadFromJSON([]byte(data)); err == nil {
			t.Fatalf("expected %s to be rejected", data)
		}
	}
	if r.Count() != 4 || r.Get("ok") != nil {
		t.Fatalf("expected a rejected batch to leave the registry unchanged, got %d personas", r.Count())
	}
}

func TestRandomPersonaPrefersFreeColors(t *testing.T) {
	m := NewManager(DefaultRegistry(), 11)
	for i := 0; i < 20; i++ {
		if p := m.RandomPersona("orange", "white", "blue"); p == nil || p.ID != "wanderer" {
			t.Fatalf("expected the only persona with a free color, got %+v", p)
		}
	}
	if p := m.RandomPersona("orange", "white", "blue", "red"); p == nil {
		t.Fatalf("expected a persona once every color is taken")
	}
	if got := len(m.Registry().WithoutColors("RED")); got != 3 {
		t.Fatalf("expected color matching to ignore case, got %d personas", got)
	}
}

func TestManagerSpawnAndDespawn(t *testing.T) {
	m := NewManager(DefaultRegistry(), 1)
	inst, p := m.SpawnNPC(m.Registry().Get("merchant"))
	if inst.PlayerID != 9_000_001 || p.ID != inst.PlayerID || !p.IsRobot() {
		t.Fatalf("unexpected spawn %+v / %+v", inst, p)
	}
	if inst.ThinkDelay <= 0 {
		t.Fatalf("expected a think delay by default")
	}
	if !m.IsNPC(p.ID) {
		t.Fatalf("expected spawned player to be an NPC")
	}
	m.DisableThinkDelay()
	if m.GetInstance(p.ID).ThinkDelay != 0 {
		t.Fatalf("expected think delay cleared")
	}
	m.DespawnNPC(p.ID)
	if m.IsNPC(p.ID) {
		t.Fatalf("expected NPC removed")
	}
	if m.RandomPersona() == nil {
		t.Fatalf("expected a persona from the default registry")
	}
}

func TestManagerDrivesFullMatch(t *testing.T) {
	m := NewManager(DefaultRegistry(), 7)
	m.DisableThinkDelay()

	var players []*settlers.Player
	for _, id := range []string{"builder", "merchant"} {
		_, p := m.SpawnNPC(m.Registry().Get(id))
		players = append(players, p)
	}

	cfg := settlers.DefaultConfig()
	cfg.Seed = 11
	cfg.VictoryPoints = 3
	cfg.ActionTimeout = 2 * time.Second
	g, err := settlers.NewGame(cfg, board.Standard(), players)
	if err != nil {
		t.Fatalf("NewGame err: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	done := make(chan error, len(players))
	for _, p := range players {
		go func(id settlers.PlayerID) { done <- m.Drive(ctx, g, id) }(p.ID)
	}

	if err := g.Run(ctx); err != nil {
		t.Fatalf("Run err: %v", err)
	}
	w, ok := g.Winner()
	if !ok {
		t.Fatalf("expected a winner")
	}
	if g.Score(w) < cfg.VictoryPoints {
		t.Fatalf("winner %d has only %d points", w, g.Score(w))
	}
	for range players {
		if err := <-done; err != nil {
			t.Fatalf("Drive err: %v", err)
		}
	}
}

func TestDriveRejectsUnknownPlayers(t *testing.T) {
	m := NewManager(DefaultRegistry(), 3)
	g, err := settlers.NewGame(settlers.DefaultConfig(), board.Standard(), []*settlers.Player{
		settlers.NewPlayer(1, "a", "red", false),
		settlers.NewPlayer(2, "b", "blue", false),
	})
	if err != nil {
		t.Fatalf("NewGame err: %v", err)
	}
	if err := m.Drive(context.Background(), g, 1); err == nil {
		t.Fatalf("expected Drive to refuse a human seat")
	}
}
