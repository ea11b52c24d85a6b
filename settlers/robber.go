package settlers

import (
	"context"
	"log"

	"settlers-lite/resource"
)

// diceRollSeven makes every player holding more than DiscardThreshold cards
// drop half (rounded down), then lets the roller move the robber and steal.
func (g *Game) diceRollSeven(ctx context.Context, roller *Player) error {
	for _, p := range g.players {
		g.mu.RLock()
		total := p.TotalResources()
		g.mu.RUnlock()
		if total <= g.cfg.DiscardThreshold {
			continue
		}
		count := total / 2
		gate := g.gates[p.ID]
		err := g.withActivePlayer(p, func() error {
			gate.setCardsToDrop(count)
			defer gate.setCardsToDrop(0)
			_, err := g.request(ctx, p, ObjectiveDropCards, func(a Action) error {
				dc, ok := a.(DropCards)
				if !ok {
					return invalidAction(a, "expected cards to drop")
				}
				return g.dropCards(a, p, dc.Cards, count)
			})
			return err
		})
		if err != nil {
			return err
		}
	}
	g.setActive(roller.ID)
	return g.moveRobber(ctx, roller)
}

func (g *Game) dropCards(a Action, p *Player, cards resource.Bundle, count int) error {
	if !cards.Valid() {
		return invalidAction(a, "invalid cards %v", cards)
	}
	if cards.Total() != count {
		return invalidAction(a, "must drop exactly %d cards, got %d", count, cards.Total())
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !p.RemoveResources(cards) {
		return insufficient(a, p, cards)
	}
	return nil
}

// moveRobber asks p for a new robber tile and then for a victim to steal from.
// Used after a seven and when a knight is played.
func (g *Game) moveRobber(ctx context.Context, p *Player) error {
	_, err := g.request(ctx, p, ObjectiveSelectRobberTile, func(a Action) error {
		st, ok := a.(SelectRobberTile)
		if !ok {
			return invalidAction(a, "expected a robber tile")
		}
		g.mu.Lock()
		defer g.mu.Unlock()
		if st.Tile == g.board.RobberTile() {
			return invalidAction(a, "robber must move to a different tile")
		}
		if err := g.board.MoveRobber(st.Tile); err != nil {
			return &InvalidActionError{Action: actionName(a), Reason: err.Error(), Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}

	_, err = g.request(ctx, p, ObjectiveSelectCardToSteal, func(a Action) error {
		sc, ok := a.(StealCard)
		if !ok {
			return invalidAction(a, "expected a victim")
		}
		g.mu.Lock()
		defer g.mu.Unlock()
		victims := g.stealVictimsLocked(p)
		if sc.Victim == NoPlayer {
			if len(victims) > 0 {
				return invalidAction(a, "a victim must be chosen from %v", victims)
			}
			return nil
		}
		for _, v := range victims {
			if v != sc.Victim {
				continue
			}
			victim := g.byID[v]
			if !sc.Resource.Valid() || victim.ResourceCount(sc.Resource) == 0 {
				return invalidAction(a, "player %d holds no %s", v, sc.Resource)
			}
			g.stealLocked(p, victim, sc.Resource)
			log.Printf("[Game] player %d stole %s from %d", p.ID, sc.Resource, v)
			return nil
		}
		return invalidAction(a, "player %d cannot be robbed", sc.Victim)
	})
	return err
}

// StealVictims lists, in turn order, the players p could rob at the current robber tile.
func (g *Game) StealVictims(p PlayerID) []PlayerID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	pl := g.byID[p]
	if pl == nil {
		return nil
	}
	return g.stealVictimsLocked(pl)
}

func (g *Game) stealVictimsLocked(p *Player) []PlayerID {
	t, ok := g.board.Tile(g.board.RobberTile())
	if !ok {
		return nil
	}
	adjacent := map[PlayerID]bool{}
	for _, ix := range t.AdjacentIntersections() {
		if s, ok := ix.Settlement(); ok && s.Owner != p.ID {
			adjacent[s.Owner] = true
		}
	}
	var out []PlayerID
	for _, other := range g.players {
		if adjacent[other.ID] && other.TotalResources() > 0 {
			out = append(out, other.ID)
		}
	}
	return out
}

// stealLocked moves one card of kind k from victim to thief.
func (g *Game) stealLocked(thief, victim *Player, k resource.Kind) {
	if victim.RemoveResource(k, 1) {
		thief.AddResource(k, 1)
	}
}
