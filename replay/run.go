package replay

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"settlers-lite/board"
	"settlers-lite/settlers"
)

const pollInterval = 5 * time.Millisecond

// exhaustedGrace is how long a match may sit without progress after the last
// step before the tape is declared too short.
var exhaustedGrace = 2 * time.Second

// Run re-drives a fresh match from tape. Each recorded action is submitted
// once the match prompts its player for the recorded objective.
func Run(ctx context.Context, tape *Tape) (*Result, error) {
	if tape == nil {
		return nil, &ReplayError{StepIndex: -1, Reason: "invalid_tape", Message: "tape is nil"}
	}
	if tape.Version != TapeVersion {
		return nil, &ReplayError{StepIndex: -1, Reason: "invalid_version", Message: fmt.Sprintf("unsupported tape version %d", tape.Version)}
	}

	cfg := tape.Config
	cfg.Seed = tape.Seed
	cfg.DiceOverride = append([]int(nil), tape.Dice...)
	// every recorded action, fallbacks included, is submitted explicitly
	cfg.ActionTimeout = 0

	b, err := board.New(tape.Layout)
	if err != nil {
		return nil, &ReplayError{StepIndex: -1, Reason: "board_init_failed", Message: err.Error()}
	}
	players := make([]*settlers.Player, 0, len(tape.Players))
	for _, ps := range tape.Players {
		players = append(players, settlers.NewPlayer(ps.ID, ps.Name, ps.Color, ps.Robot))
	}
	g, err := settlers.NewGame(cfg, b, players)
	if err != nil {
		return nil, &ReplayError{StepIndex: -1, Reason: "engine_init_failed", Message: err.Error()}
	}

	tr := newTracker()
	g.Subscribe(tr.observe)

	rctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var runErr error
	done := make(chan struct{})
	go func() {
		runErr = g.Run(rctx)
		close(done)
	}()

	d := &driver{g: g, tr: tr, done: done, lastSeq: map[settlers.PlayerID]uint64{}}
	for i, step := range tape.Steps {
		if err := d.submit(rctx, i, step); err != nil {
			cancel()
			<-done
			return nil, err
		}
	}
	if err := d.finish(rctx, len(tape.Steps)); err != nil {
		cancel()
		<-done
		return nil, err
	}
	if runErr != nil {
		return nil, &ReplayError{StepIndex: int32(len(tape.Steps)), Reason: "run_failed", Message: runErr.Error()}
	}

	res := resultOf(g, len(tape.Steps))
	if len(tape.Winners) > 0 && !slices.Equal(tape.Winners, res.Winners) {
		return res, &ReplayError{
			StepIndex: int32(len(tape.Steps)),
			Reason:    "outcome_mismatch",
			Message:   fmt.Sprintf("recorded winners %v, replay produced %v", tape.Winners, res.Winners),
		}
	}
	log.Printf("[Replay] %d steps replayed, winner=%d round=%d", res.Steps, res.Winner, res.Rounds)
	return res, nil
}

func resultOf(g *settlers.Game, steps int) *Result {
	snap := g.Snapshot()
	res := &Result{
		Winner:  snap.Winner,
		Winners: snap.Winners,
		Rounds:  snap.Round,
		Scores:  make(map[settlers.PlayerID]int, len(snap.Players)),
		Steps:   steps,
	}
	for _, p := range snap.Players {
		res.Scores[p.ID] = p.Score
	}
	return res
}

type driver struct {
	g       *settlers.Game
	tr      *tracker
	done    <-chan struct{}
	lastSeq map[settlers.PlayerID]uint64
}

// submit waits until step i is what the match asks for, then hands it to the gate.
// A prompt is only used once: the next step for the same player needs a newer one.
func (d *driver) submit(ctx context.Context, i int, s Step) error {
	action, err := settlers.DecodeAction(s.Action)
	if err != nil {
		return &ReplayError{StepIndex: int32(i), Reason: "invalid_action", Message: err.Error()}
	}
	gate := d.g.Gate(s.Player)
	if gate == nil {
		return &ReplayError{StepIndex: int32(i), Reason: "unknown_player", Message: fmt.Sprintf("player %d is not seated", s.Player)}
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		changed := d.tr.wait()
		received, req := d.tr.state()
		if received >= i {
			p := gate.Prompt()
			if p.Objective == s.Objective && p.Seq > d.lastSeq[s.Player] {
				if err := gate.Submit(action); err != nil {
					return &ReplayError{StepIndex: int32(i), Reason: "submit_failed", Message: err.Error()}
				}
				d.lastSeq[s.Player] = p.Seq
				return nil
			}
			if req.set && req.after >= i && (req.player != s.Player || req.objective != s.Objective) {
				return mismatch(i, s, req)
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.done:
			return &ReplayError{StepIndex: int32(i), Reason: "match_ended", Message: "the match ended before the tape did"}
		case <-changed:
		case <-ticker.C:
		}
	}
}

// finish waits for the match to end once every step was submitted.
func (d *driver) finish(ctx context.Context, steps int) error {
	grace := time.NewTimer(exhaustedGrace)
	defer grace.Stop()
	for {
		changed := d.tr.wait()
		if _, req := d.tr.state(); req.set && req.after >= steps {
			return &ReplayError{
				StepIndex: int32(steps),
				Reason:    "tape_exhausted",
				Message:   fmt.Sprintf("match asks player %d for %s after the last step", req.player, req.objective),
				Expected:  &ExpectedState{Player: req.player, Objective: req.objective},
			}
		}
		select {
		case <-d.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		case <-grace.C:
			return &ReplayError{StepIndex: int32(steps), Reason: "tape_exhausted", Message: "match is still waiting after the last step"}
		}
	}
}

func mismatch(i int, s Step, req request) error {
	reason := "objective_mismatch"
	if req.player != s.Player {
		reason = "out_of_turn"
	}
	return &ReplayError{
		StepIndex: int32(i),
		Reason:    reason,
		Message: fmt.Sprintf("tape has player %d on %s, match asks player %d for %s",
			s.Player, s.Objective, req.player, req.objective),
		Expected: &ExpectedState{Player: req.player, Objective: req.objective},
	}
}

// request is the latest objective the orchestrator asked for; after is the
// number of actions it had received at that point.
type request struct {
	set       bool
	player    settlers.PlayerID
	objective settlers.Objective
	after     int
}

// tracker follows the replayed match through its events.
type tracker struct {
	mu       sync.Mutex
	received int
	last     request
	changed  chan struct{}
}

func newTracker() *tracker {
	return &tracker{changed: make(chan struct{})}
}

func (t *tracker) observe(e settlers.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e.Kind {
	case settlers.EventActionReceived:
		t.received++
	case settlers.EventObjectiveChanged:
		t.last = request{set: true, player: e.Player, objective: e.Objective, after: t.received}
	default:
		return
	}
	close(t.changed)
	t.changed = make(chan struct{})
}

func (t *tracker) state() (int, request) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.received, t.last
}

func (t *tracker) wait() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.changed
}
