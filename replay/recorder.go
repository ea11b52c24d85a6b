package replay

import (
	"sync"

	"settlers-lite/board"
	"settlers-lite/settlers"
)

// Recorder builds a Tape from a live match. Create it before the match runs.
type Recorder struct {
	mu   sync.Mutex
	tape Tape
}

func NewRecorder(g *settlers.Game, layout board.Layout) *Recorder {
	cfg := g.Config()
	r := &Recorder{tape: Tape{
		Version: TapeVersion,
		Seed:    cfg.Seed,
		Config:  cfg,
		Layout:  layout,
		Dice:    append([]int(nil), cfg.DiceOverride...),
	}}
	for _, p := range g.Players() {
		r.tape.Players = append(r.tape.Players, PlayerSpec{ID: p.ID, Name: p.Name, Color: p.Color, Robot: p.Robot})
	}
	g.Subscribe(r.observe)
	return r
}

func (r *Recorder) observe(e settlers.Event) {
	switch e.Kind {
	case settlers.EventActionReceived:
		r.mu.Lock()
		r.tape.Steps = append(r.tape.Steps, Step{
			Player:    e.Player,
			Objective: e.Objective,
			Action:    settlers.EncodeAction(e.Action),
			Fallback:  e.Fallback,
		})
		r.mu.Unlock()
	case settlers.EventGameEnded:
		r.mu.Lock()
		r.tape.Winners = append([]settlers.PlayerID(nil), e.Winners...)
		r.mu.Unlock()
	}
}

// Tape returns a copy of what has been recorded so far.
func (r *Recorder) Tape() *Tape {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.tape
	t.Players = append([]PlayerSpec(nil), r.tape.Players...)
	t.Steps = append([]Step(nil), r.tape.Steps...)
	t.Winners = append([]settlers.PlayerID(nil), r.tape.Winners...)
	return &t
}
