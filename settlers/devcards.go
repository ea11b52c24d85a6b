package settlers

import (
	"context"
	"errors"

	"settlers-lite/resource"
)

func (g *Game) buyDevelopmentCard(a Action, p *Player) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	cost := g.cfg.Costs.DevelopmentCard
	if !p.RemoveResources(cost) {
		return insufficient(a, p, cost)
	}
	c := g.drawDevelopmentCardLocked()
	p.AddDevelopmentCard(c)
	p.boughtThisTurn[c]++
	return nil
}

// drawDevelopmentCardLocked samples a card type from the configured weights.
// The supply is unlimited.
func (g *Game) drawDevelopmentCardLocked() resource.DevelopmentCard {
	total := 0
	for _, c := range resource.DevelopmentCards {
		total += g.cfg.DevelopmentCardWeights[c]
	}
	n := g.rng.Intn(total)
	for _, c := range resource.DevelopmentCards {
		w := g.cfg.DevelopmentCardWeights[c]
		if n < w {
			return c
		}
		n -= w
	}
	return resource.Knight
}

func (g *Game) playDevelopmentCard(ctx context.Context, p *Player, v PlayDevelopmentCard) error {
	if !v.Card.Playable() {
		return invalidAction(v, "%s cannot be played", v.Card)
	}
	switch v.Card {
	case resource.YearOfPlenty:
		if !v.Resources.Valid() || v.Resources.Total() != g.cfg.YearOfPlentyCards {
			return invalidAction(v, "year of plenty takes exactly %d resources, got %v", g.cfg.YearOfPlentyCards, v.Resources)
		}
	case resource.Monopoly:
		if !v.Kind.Valid() {
			return invalidAction(v, "monopoly needs a resource kind")
		}
	}

	g.mu.Lock()
	if p.playedThisTurn >= g.cfg.DevelopmentCardsPerTurn {
		g.mu.Unlock()
		return invalidAction(v, "player %d already played a development card this turn", p.ID)
	}
	if p.playableCount(v.Card) <= 0 {
		g.mu.Unlock()
		return invalidAction(v, "player %d holds no playable %s", p.ID, v.Card)
	}
	p.RemoveDevelopmentCard(v.Card)
	p.playedThisTurn++

	switch v.Card {
	case resource.YearOfPlenty:
		p.AddResources(v.Resources)
		g.mu.Unlock()
		return nil
	case resource.Monopoly:
		for _, other := range g.players {
			if other.ID != p.ID {
				p.AddResource(v.Kind, other.takeAll(v.Kind))
			}
		}
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	switch v.Card {
	case resource.Knight:
		return g.moveRobber(ctx, p)
	case resource.RoadBuilding:
		return g.buildFreeRoads(ctx, p)
	}
	return nil
}

// buildFreeRoads prompts for up to RoadBuildingRoads free roads. A timeout
// forfeits the roads not yet placed.
func (g *Game) buildFreeRoads(ctx context.Context, p *Player) error {
	for i := 0; i < g.cfg.RoadBuildingRoads; i++ {
		g.mu.RLock()
		left := g.cfg.MaxRoads - p.roads
		g.mu.RUnlock()
		if left <= 0 {
			return nil
		}
		_, err := g.request(ctx, p, ObjectivePlaceRoad, func(a Action) error {
			pr, ok := a.(PlaceRoad)
			if !ok {
				return invalidAction(a, "expected a road placement")
			}
			return g.placeRoad(a, p, pr.At, false, true)
		})
		if errors.Is(err, ErrActionTimeout) && ctx.Err() == nil {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}
