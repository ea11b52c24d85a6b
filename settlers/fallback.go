package settlers

import "settlers-lite/resource"

// fallbackAction is what the orchestrator applies for p when the wait on o times out.
// Placements during setup have no fallback.
func (g *Game) fallbackAction(p *Player, o Objective) (Action, bool) {
	switch o {
	case ObjectiveRollDice:
		return RollDice{}, true
	case ObjectiveRegularTurn:
		return EndTurn{}, true
	case ObjectiveAcceptTrade:
		return AcceptTrade{Accepted: false}, true
	case ObjectiveDropCards:
		n := g.gates[p.ID].Prompt().CardsToDrop
		g.mu.RLock()
		held := p.Resources()
		g.mu.RUnlock()
		return DropCards{Cards: DropLargest(held, n)}, true
	case ObjectiveSelectRobberTile:
		robber := g.board.RobberTile()
		for _, t := range g.board.Tiles() {
			if t.ID() != robber {
				return SelectRobberTile{Tile: t.ID()}, true
			}
		}
		return nil, false
	case ObjectiveSelectCardToSteal:
		victims := g.StealVictims(p.ID)
		if len(victims) == 0 {
			return StealCard{Victim: NoPlayer}, true
		}
		g.mu.RLock()
		k, _ := g.byID[victims[0]].resources.Largest()
		g.mu.RUnlock()
		return StealCard{Victim: victims[0], Resource: k}, true
	}
	return nil, false
}

// DropLargest picks n cards from held, always taking from the largest pile.
func DropLargest(held resource.Bundle, n int) resource.Bundle {
	hand := held.Clone()
	drop := resource.Bundle{}
	for i := 0; i < n; i++ {
		k, c := hand.Largest()
		if c == 0 {
			break
		}
		hand[k]--
		drop[k]++
	}
	return drop
}
