package replay

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"settlers-lite/board"
	"settlers-lite/settlers"
	"settlers-lite/settlers/npc"
)

type recorded struct {
	tape   *Tape
	scores map[settlers.PlayerID]int
	round  int
}

func recordMatch(t *testing.T) recorded {
	t.Helper()
	m := npc.NewManager(npc.DefaultRegistry(), 5)
	m.DisableThinkDelay()
	var players []*settlers.Player
	for _, id := range []string{"builder", "knight"} {
		_, p := m.SpawnNPC(m.Registry().Get(id))
		players = append(players, p)
	}

	cfg := settlers.DefaultConfig()
	cfg.Seed = 21
	cfg.VictoryPoints = 4
	cfg.ActionTimeout = 2 * time.Second
	layout := board.StandardLayout()
	b, err := board.New(layout)
	if err != nil {
		t.Fatalf("board.New err: %v", err)
	}
	g, err := settlers.NewGame(cfg, b, players)
	if err != nil {
		t.Fatalf("NewGame err: %v", err)
	}
	rec := NewRecorder(g, layout)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, p := range players {
		go m.Drive(ctx, g, p.ID)
	}
	if err := g.Run(ctx); err != nil {
		t.Fatalf("Run err: %v", err)
	}

	out := recorded{tape: rec.Tape(), scores: map[settlers.PlayerID]int{}, round: g.Round()}
	for _, p := range players {
		out.scores[p.ID] = g.Score(p.ID)
	}
	return out
}

func replayCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRunReproducesRecordedMatch(t *testing.T) {
	rec := recordMatch(t)
	if len(rec.tape.Steps) == 0 || len(rec.tape.Winners) == 0 {
		t.Fatalf("expected a finished recording, got %d steps winners=%v", len(rec.tape.Steps), rec.tape.Winners)
	}

	res, err := Run(replayCtx(t), rec.tape)
	if err != nil {
		t.Fatalf("Run err: %v", err)
	}
	if res.Winner != rec.tape.Winners[0] {
		t.Fatalf("expected winner %d, got %d", rec.tape.Winners[0], res.Winner)
	}
	if res.Rounds != rec.round {
		t.Fatalf("expected %d rounds, got %d", rec.round, res.Rounds)
	}
	for id, score := range rec.scores {
		if res.Scores[id] != score {
			t.Fatalf("player %d scored %d, replay gave %d", id, score, res.Scores[id])
		}
	}
}

func TestJournalRoundTrip(t *testing.T) {
	rec := recordMatch(t)

	var buf bytes.Buffer
	if err := WriteJournal(&buf, rec.tape); err != nil {
		t.Fatalf("WriteJournal err: %v", err)
	}
	tape, err := ReadJournal(&buf)
	if err != nil {
		t.Fatalf("ReadJournal err: %v", err)
	}
	if len(tape.Steps) != len(rec.tape.Steps) || tape.Seed != rec.tape.Seed {
		t.Fatalf("journal lost data: %d steps seed %d", len(tape.Steps), tape.Seed)
	}
	if _, err := Run(replayCtx(t), tape); err != nil {
		t.Fatalf("Run from journal err: %v", err)
	}

	dir := t.TempDir()
	for _, name := range []string{"match.jsonl.zst", "match.json"} {
		path := filepath.Join(dir, name)
		if err := SaveFile(path, rec.tape); err != nil {
			t.Fatalf("SaveFile %s err: %v", name, err)
		}
		loaded, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile %s err: %v", name, err)
		}
		if len(loaded.Steps) != len(rec.tape.Steps) {
			t.Fatalf("%s: expected %d steps, got %d", name, len(rec.tape.Steps), len(loaded.Steps))
		}
	}

	if _, err := ReadJournal(bytes.NewReader([]byte("not zstd"))); err == nil {
		t.Fatalf("expected garbage input to fail")
	}
}

func TestRunReportsOutOfTurnStep(t *testing.T) {
	rec := recordMatch(t)
	tape := *rec.tape
	tape.Steps = append([]Step(nil), rec.tape.Steps...)
	first := tape.Steps[0].Player
	tape.Steps[0].Player = tape.Players[1].ID

	_, err := Run(replayCtx(t), &tape)
	var re *ReplayError
	if !errors.As(err, &re) {
		t.Fatalf("expected ReplayError, got %v", err)
	}
	if re.Reason != "out_of_turn" || re.StepIndex != 0 {
		t.Fatalf("unexpected replay error %+v", re)
	}
	if re.Expected == nil || re.Expected.Player != first || re.Expected.Objective != settlers.ObjectivePlaceVillage {
		t.Fatalf("expected the first player's village prompt, got %+v", re.Expected)
	}
}

func TestRunReportsShortTape(t *testing.T) {
	rec := recordMatch(t)
	tape := *rec.tape
	// first player's village, road and second village
	tape.Steps = append([]Step(nil), rec.tape.Steps[:3]...)

	_, err := Run(replayCtx(t), &tape)
	var re *ReplayError
	if !errors.As(err, &re) || re.Reason != "tape_exhausted" {
		t.Fatalf("expected tape_exhausted, got %v", err)
	}
	if re.Expected == nil || re.Expected.Objective != settlers.ObjectivePlaceRoad {
		t.Fatalf("expected the match to be waiting on a road, got %+v", re.Expected)
	}
}

func TestRunRejectsUnknownVersion(t *testing.T) {
	_, err := Run(context.Background(), &Tape{Version: 99})
	var re *ReplayError
	if !errors.As(err, &re) || re.Reason != "invalid_version" || re.StepIndex != -1 {
		t.Fatalf("expected invalid_version, got %v", err)
	}
	if _, err := Run(context.Background(), nil); err == nil {
		t.Fatalf("expected a nil tape to fail")
	}
}
