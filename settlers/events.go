package settlers

import "settlers-lite/resource"

type EventKind byte

const (
	EventActivePlayerChanged EventKind = 1
	EventRoundAdvanced       EventKind = 2
	EventObjectiveChanged    EventKind = 3
	EventDiceRolled          EventKind = 4
	EventResourcesProduced   EventKind = 5
	EventActionReceived      EventKind = 6
	EventActionApplied       EventKind = 7
	EventActionRejected      EventKind = 8
	EventTradeOffered        EventKind = 9
	EventTradeResolved       EventKind = 10
	EventGameEnded           EventKind = 11
)

var EventKindDictionary = map[EventKind]string{
	EventActivePlayerChanged: "active_player_changed",
	EventRoundAdvanced:       "round_advanced",
	EventObjectiveChanged:    "objective_changed",
	EventDiceRolled:          "dice_rolled",
	EventResourcesProduced:   "resources_produced",
	EventActionReceived:      "action_received",
	EventActionApplied:       "action_applied",
	EventActionRejected:      "action_rejected",
	EventTradeOffered:        "trade_offered",
	EventTradeResolved:       "trade_resolved",
	EventGameEnded:           "game_ended",
}

func (k EventKind) String() string {
	if s, ok := EventKindDictionary[k]; ok {
		return s
	}
	return "unknown"
}

// Event is published synchronously from the orchestrator goroutine. Only the
// fields relevant to Kind are set.
type Event struct {
	Kind      EventKind
	Round     int
	Player    PlayerID
	Objective Objective
	Dice      int
	Action    Action
	// Fallback marks actions the orchestrator applied on behalf of a player that timed out.
	Fallback bool
	Err      error
	Offer    *TradeOffer
	Partner  PlayerID
	Gains    map[PlayerID]resource.Bundle
	Winners  []PlayerID
}

// Subscribe registers fn for every subsequent event. Handlers must not block
// and must not call back into mutating Game methods.
func (g *Game) Subscribe(fn func(Event)) {
	if fn == nil {
		return
	}
	g.obsMu.Lock()
	g.observers = append(g.observers, fn)
	g.obsMu.Unlock()
}

func (g *Game) emit(e Event) {
	g.obsMu.Lock()
	obs := append([]func(Event){}, g.observers...)
	g.obsMu.Unlock()
	if e.Round == 0 {
		g.mu.RLock()
		e.Round = g.round
		g.mu.RUnlock()
	}
	for _, fn := range obs {
		fn(e)
	}
}
