package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"settlers-lite/board"
	"settlers-lite/replay"
	"settlers-lite/settlers"
	"settlers-lite/settlers/npc"
)

type response struct {
	OK     bool                `json:"ok"`
	Result *replay.Result      `json:"result,omitempty"`
	Error  *replay.ReplayError `json:"error,omitempty"`
}

func main() {
	var (
		tapePath   = flag.String("tape", "", "tape to replay (.jsonl.zst journal or .json)")
		recordPath = flag.String("record", "", "play a bot match and write its tape here instead of replaying")
		bots       = flag.Int("bots", 3, "bots seated when recording")
		rulesPath  = flag.String("rules", "", "rules YAML used when recording (optional)")
		seed       = flag.Int64("seed", 0, "match seed when recording (0 = time-based)")
		timeout    = flag.Duration("timeout", time.Minute, "give up after this long")
		asJSON     = flag.Bool("json", false, "print the outcome as JSON")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *recordPath != "" {
		if err := record(ctx, *recordPath, *rulesPath, *bots, *seed); err != nil {
			fmt.Fprintln(os.Stderr, "record:", err)
			os.Exit(1)
		}
		return
	}
	if *tapePath == "" {
		fmt.Fprintln(os.Stderr, "missing -tape or -record")
		os.Exit(2)
	}

	tape, err := replay.LoadFile(*tapePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tape:", err)
		os.Exit(1)
	}
	res, err := replay.Run(ctx, tape)
	if *asJSON {
		fmt.Println(mustJSON(toResponse(res, err)))
		if err != nil {
			os.Exit(1)
		}
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: steps=%d rounds=%d winner=%d scores=%v\n", res.Steps, res.Rounds, res.Winner, res.Scores)
}

func record(ctx context.Context, path, rulesPath string, bots int, seed int64) error {
	cfg := settlers.DefaultConfig()
	if rulesPath != "" {
		var err error
		if cfg, err = settlers.LoadConfig(rulesPath); err != nil {
			return err
		}
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	if cfg.ActionTimeout == 0 {
		cfg.ActionTimeout = 5 * time.Second
	}

	m := npc.NewManager(npc.DefaultRegistry(), cfg.Seed)
	m.DisableThinkDelay()
	players := make([]*settlers.Player, 0, bots)
	for i := 0; i < bots; i++ {
		_, p := m.SpawnNPC(m.RandomPersona())
		players = append(players, p)
	}

	layout := board.StandardLayout()
	b, err := board.New(layout)
	if err != nil {
		return err
	}
	g, err := settlers.NewGame(cfg, b, players)
	if err != nil {
		return err
	}
	rec := replay.NewRecorder(g, layout)
	for _, p := range players {
		go m.Drive(ctx, g, p.ID)
	}
	if err := g.Run(ctx); err != nil {
		return err
	}

	tape := rec.Tape()
	if err := replay.SaveFile(path, tape); err != nil {
		return err
	}
	fmt.Printf("recorded %d steps to %s (seed=%d winners=%v)\n", len(tape.Steps), path, tape.Seed, tape.Winners)
	return nil
}

func toResponse(res *replay.Result, err error) response {
	if err == nil {
		return response{OK: true, Result: res}
	}
	var replayErr *replay.ReplayError
	if errors.As(err, &replayErr) {
		return response{OK: false, Result: res, Error: replayErr}
	}
	return response{OK: false, Error: &replay.ReplayError{StepIndex: -1, Reason: "replay_failed", Message: err.Error()}}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		fallback := response{
			OK:    false,
			Error: &replay.ReplayError{StepIndex: -1, Reason: "marshal_failed", Message: err.Error()},
		}
		b2, _ := json.Marshal(fallback)
		return string(b2)
	}
	return string(b)
}
