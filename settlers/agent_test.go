package settlers_test

import (
	"context"
	"sync"
	"testing"

	"settlers-lite/board"
	"settlers-lite/resource"
	"settlers-lite/settlers"
)

// scriptedAgent answers every prompt for one player with a simple legal move.
// turn overrides the REGULAR_TURN answer; nil ends the turn.
type scriptedAgent struct {
	g  *settlers.Game
	b  *board.Board
	id settlers.PlayerID

	turn        func(settlers.Prompt) settlers.Action
	acceptTrade bool
	// answer overrides the default move for an objective
	answer   map[settlers.Objective]func(settlers.Prompt) settlers.Action
	// silent players never answer these objectives
	silent   map[settlers.Objective]bool
	onPrompt func(settlers.Prompt)

	mu      sync.Mutex
	prompts []settlers.Prompt
}

func (a *scriptedAgent) run(ctx context.Context) {
	gate := a.g.Gate(a.id)
	var seq uint64
	for {
		p, err := gate.NextPrompt(ctx, seq)
		if err != nil {
			return
		}
		seq = p.Seq
		if p.Objective == settlers.ObjectiveIdle || a.silent[p.Objective] {
			continue
		}
		a.mu.Lock()
		a.prompts = append(a.prompts, p)
		a.mu.Unlock()
		if a.onPrompt != nil {
			a.onPrompt(p)
		}
		if act := a.decide(p); act != nil {
			_ = gate.Submit(act)
		}
	}
}

func (a *scriptedAgent) seen(o settlers.Objective) []settlers.Prompt {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []settlers.Prompt
	for _, p := range a.prompts {
		if p.Objective == o {
			out = append(out, p)
		}
	}
	return out
}

func (a *scriptedAgent) decide(p settlers.Prompt) settlers.Action {
	if fn := a.answer[p.Objective]; fn != nil {
		return fn(p)
	}
	switch p.Objective {
	case settlers.ObjectiveRollDice:
		return settlers.RollDice{}
	case settlers.ObjectivePlaceVillage:
		spots := a.b.VillageSpots(a.id, true)
		if len(spots) == 0 {
			return nil
		}
		return settlers.PlaceVillage{At: spots[0]}
	case settlers.ObjectivePlaceRoad:
		spots := a.b.RoadSpots(a.id, true)
		if len(spots) == 0 {
			spots = a.b.RoadSpots(a.id, false)
		}
		if len(spots) == 0 {
			return nil
		}
		return settlers.PlaceRoad{At: spots[0]}
	case settlers.ObjectiveRegularTurn:
		if a.turn != nil {
			if act := a.turn(p); act != nil {
				return act
			}
		}
		return settlers.EndTurn{}
	case settlers.ObjectiveDropCards:
		me, _ := a.g.Snapshot().Player(a.id)
		return settlers.DropCards{Cards: settlers.DropLargest(me.Resources, p.CardsToDrop)}
	case settlers.ObjectiveSelectRobberTile:
		robber := a.b.RobberTile()
		for _, t := range a.b.Tiles() {
			if t.ID() != robber {
				return settlers.SelectRobberTile{Tile: t.ID()}
			}
		}
	case settlers.ObjectiveSelectCardToSteal:
		victims := a.g.StealVictims(a.id)
		if len(victims) == 0 {
			return settlers.StealCard{}
		}
		victim, _ := a.g.Snapshot().Player(victims[0])
		k, _ := victim.Resources.Largest()
		return settlers.StealCard{Victim: victims[0], Resource: k}
	case settlers.ObjectiveAcceptTrade:
		return settlers.AcceptTrade{Accepted: a.acceptTrade}
	}
	return nil
}

type eventLog struct {
	mu     sync.Mutex
	events []settlers.Event
}

func (l *eventLog) add(e settlers.Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) of(kind settlers.EventKind) []settlers.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []settlers.Event
	for _, e := range l.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	g      *settlers.Game
	b      *board.Board
	agents map[settlers.PlayerID]*scriptedAgent
	log    *eventLog
}

func newFixture(t *testing.T, cfg settlers.Config, n int) *fixture {
	t.Helper()
	b := board.Standard()
	colors := []string{"red", "blue", "white", "orange"}
	players := make([]*settlers.Player, 0, n)
	for i := 0; i < n; i++ {
		players = append(players, settlers.NewPlayer(settlers.PlayerID(i+1), colors[i], colors[i], false))
	}
	g, err := settlers.NewGame(cfg, b, players)
	if err != nil {
		t.Fatalf("NewGame err: %v", err)
	}
	f := &fixture{g: g, b: b, agents: map[settlers.PlayerID]*scriptedAgent{}, log: &eventLog{}}
	g.Subscribe(f.log.add)
	for _, p := range players {
		f.agents[p.ID] = &scriptedAgent{g: g, b: b, id: p.ID}
	}
	return f
}

func (f *fixture) start(ctx context.Context) {
	for _, a := range f.agents {
		go a.run(ctx)
	}
}

func testConfig() settlers.Config {
	cfg := settlers.DefaultConfig()
	cfg.Seed = 42
	cfg.SetupStartingResources = false
	return cfg
}

// script answers successive REGULAR_TURN prompts with acts, then ends the turn.
func script(acts ...settlers.Action) func(settlers.Prompt) settlers.Action {
	var mu sync.Mutex
	return func(settlers.Prompt) settlers.Action {
		mu.Lock()
		defer mu.Unlock()
		if len(acts) == 0 {
			return nil
		}
		a := acts[0]
		acts = acts[1:]
		return a
	}
}

func give(p *settlers.Player, pairs ...any) {
	p.AddResources(resource.Of(pairs...))
}
