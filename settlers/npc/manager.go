package npc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"settlers-lite/resource"
	"settlers-lite/settlers"
)

// Planner is the optional board capability NPCs use to list legal placements.
type Planner interface {
	VillageSpots(owner settlers.PlayerID, setup bool) []settlers.IntersectionID
	RoadSpots(owner settlers.PlayerID, setup bool) []settlers.EdgeID
	UpgradeSpots(owner settlers.PlayerID) []settlers.IntersectionID
}

// NPCInstance represents an active NPC seated in a match.
type NPCInstance struct {
	PlayerID   settlers.PlayerID
	Persona    *NPCPersona
	Brain      BrainDecider
	ThinkDelay time.Duration
}

// maxRejections is how often an NPC retries a refused non-turn objective
// before leaving it to the timeout fallback.
const maxRejections = 3

// Manager manages NPC lifecycle and decision-making in matches.
type Manager struct {
	registry  *PersonaRegistry
	instances map[settlers.PlayerID]*NPCInstance
	mu        sync.RWMutex
	rng       *rand.Rand
	nextID    uint64 // auto-incrementing player IDs for NPCs
	instant   bool
}

// NewManager creates an NPC manager with the given persona registry.
// A zero seed is replaced by the current time.
func NewManager(registry *PersonaRegistry, seed int64) *Manager {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Manager{
		registry:  registry,
		instances: make(map[settlers.PlayerID]*NPCInstance),
		rng:       rand.New(rand.NewSource(seed)),
		nextID:    9_000_000, // NPC IDs start from 9M to avoid collision with real users
	}
}

func (m *Manager) Registry() *PersonaRegistry {
	return m.registry
}

// DisableThinkDelay makes every NPC answer immediately.
func (m *Manager) DisableThinkDelay() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instant = true
	for _, inst := range m.instances {
		inst.ThinkDelay = 0
	}
}

// RandomPersona picks a registered persona, preferring one whose color is not
// in takenColors. It returns nil when the registry is empty.
func (m *Manager) RandomPersona(takenColors ...string) *NPCPersona {
	all := m.registry.WithoutColors(takenColors...)
	if len(all) == 0 {
		all = m.registry.All()
	}
	if len(all) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return all[m.rng.Intn(len(all))]
}

// SpawnNPC allocates a player for persona. The caller seats the returned
// player in a match and then calls Drive.
func (m *Manager) SpawnNPC(persona *NPCPersona) (*NPCInstance, *settlers.Player) {
	m.mu.Lock()
	m.nextID++
	id := settlers.PlayerID(m.nextID)
	seed := m.rng.Int63()

	// Think delay: 0.3–1 second base plus jitter, so bot turns are watchable.
	var thinkDelay time.Duration
	if !m.instant {
		baseMs := 300 + int(persona.Brain.Randomness*700)
		jitterMs := m.rng.Intn(500)
		thinkDelay = time.Duration(baseMs+jitterMs) * time.Millisecond
	}

	inst := &NPCInstance{
		PlayerID:   id,
		Persona:    persona,
		Brain:      NewRuleBrain(persona, seed),
		ThinkDelay: thinkDelay,
	}
	m.instances[id] = inst
	m.mu.Unlock()

	log.Printf("[NPC] Spawned %s (ID=%d)", persona.Name, id)
	return inst, settlers.NewPlayer(id, persona.Name, persona.Color, true)
}

// Drive answers the NPC's prompts until its gate closes or ctx ends.
func (m *Manager) Drive(ctx context.Context, g *settlers.Game, id settlers.PlayerID) error {
	inst := m.GetInstance(id)
	if inst == nil {
		return fmt.Errorf("npc: player %d is not an NPC", id)
	}
	gate := g.Gate(id)
	if gate == nil {
		return fmt.Errorf("npc: player %d is not seated", id)
	}

	var seq uint64
	rejections := 0
	for {
		p, err := gate.NextPrompt(ctx, seq)
		if errors.Is(err, settlers.ErrGateClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		seq = p.Seq
		if p.Objective == settlers.ObjectiveIdle {
			continue
		}
		if p.Rejected == "" {
			rejections = 0
		} else if p.Objective != settlers.ObjectiveRegularTurn {
			rejections++
			if rejections > maxRejections {
				continue
			}
		}

		if inst.ThinkDelay > 0 {
			select {
			case <-time.After(inst.ThinkDelay):
			case <-ctx.Done():
				return ctx.Err()
			case <-gate.Done():
				return nil
			}
		}

		d := m.OnPrompt(g, id, p)
		if d.Action == nil {
			continue
		}
		if err := gate.Submit(d.Action); err != nil {
			log.Printf("[NPC] %s submit %s: %v", inst.Persona.Name, d.Action.Type(), err)
		}
	}
}

// OnPrompt builds a GameView for the prompt and asks the brain for a decision.
func (m *Manager) OnPrompt(g *settlers.Game, id settlers.PlayerID, p settlers.Prompt) Decision {
	inst := m.GetInstance(id)
	if inst == nil {
		log.Printf("[NPC] OnPrompt called for unknown player %d", id)
		return Decision{}
	}

	view := buildGameView(g, id, p)
	decision := inst.Brain.Decide(view)
	if decision.Action != nil {
		log.Printf("[NPC] %s decides: %s under %s", inst.Persona.Name, decision.Action.Type(), p.Objective)
	}
	return decision
}

func (m *Manager) GetInstance(id settlers.PlayerID) *NPCInstance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instances[id]
}

func (m *Manager) IsNPC(id settlers.PlayerID) bool {
	return m.GetInstance(id) != nil
}

// DespawnNPC removes an NPC from tracking.
func (m *Manager) DespawnNPC(id settlers.PlayerID) {
	m.mu.Lock()
	inst := m.instances[id]
	delete(m.instances, id)
	m.mu.Unlock()

	if inst != nil {
		log.Printf("[NPC] Despawned %s (ID=%d)", inst.Persona.Name, id)
	}
}

// buildGameView constructs a GameView from the match for a specific NPC.
func buildGameView(g *settlers.Game, id settlers.PlayerID, p settlers.Prompt) GameView {
	snap := g.Snapshot()
	cfg := g.Config()
	view := GameView{
		Prompt:       p,
		Round:        snap.Round,
		Costs:        cfg.Costs,
		Legal:        settlers.AcceptedActions(p.Objective),
		TradeRatios:  make(map[resource.Kind]int, len(resource.Kinds)),
		YearOfPlenty: cfg.YearOfPlentyCards,
	}
	view.Me, _ = snap.Player(id)
	for _, k := range resource.Kinds {
		view.TradeRatios[k] = g.TradeRatio(id, k)
	}

	b := g.Board()
	if planner, ok := b.(Planner); ok {
		switch p.Objective {
		case settlers.ObjectivePlaceVillage:
			view.VillageSpots = scoreSpots(b, planner.VillageSpots(id, true))
		case settlers.ObjectivePlaceRoad:
			// setup roads first; road building outside setup falls through
			view.RoadSpots = planner.RoadSpots(id, true)
			if len(view.RoadSpots) == 0 {
				view.RoadSpots = planner.RoadSpots(id, false)
			}
		case settlers.ObjectiveRegularTurn:
			view.VillageSpots = scoreSpots(b, planner.VillageSpots(id, false))
			view.UpgradeSpots = scoreSpots(b, planner.UpgradeSpots(id))
			view.RoadSpots = planner.RoadSpots(id, false)
		}
	}

	switch p.Objective {
	case settlers.ObjectiveSelectRobberTile:
		view.Robber = robberTargets(b, id)
	case settlers.ObjectiveSelectCardToSteal:
		for _, v := range g.StealVictims(id) {
			ps, _ := snap.Player(v)
			view.Victims = append(view.Victims, Victim{Player: v, Cards: ps.TotalResources, Resources: ps.Resources})
		}
	}
	return view
}

// pips counts the dice combinations that roll n on two six-sided dice.
func pips(n int) int {
	if n < 2 || n > 12 || n == settlers.SevenRoll {
		return 0
	}
	if n < 7 {
		return n - 1
	}
	return 13 - n
}

func scoreSpots(b settlers.Board, ids []settlers.IntersectionID) []Spot {
	out := make([]Spot, 0, len(ids))
	for _, id := range ids {
		ix, ok := b.Intersection(id)
		if !ok {
			continue
		}
		s := Spot{Intersection: id}
		for _, t := range ix.AdjacentTiles() {
			s.Pips += pips(t.Number())
		}
		out = append(out, s)
	}
	return out
}

func robberTargets(b settlers.Board, id settlers.PlayerID) []RobberTarget {
	robber := b.RobberTile()
	var out []RobberTarget
	for _, t := range b.Tiles() {
		if t.ID() == robber {
			continue
		}
		rt := RobberTarget{Tile: t.ID(), Pips: pips(t.Number())}
		for _, ix := range t.AdjacentIntersections() {
			s, ok := ix.Settlement()
			if !ok {
				continue
			}
			if s.Owner == id {
				rt.Own += s.Kind.Multiplier()
			} else {
				rt.Opponents += s.Kind.Multiplier()
			}
		}
		out = append(out, rt)
	}
	return out
}
