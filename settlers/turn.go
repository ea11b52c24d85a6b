package settlers

import (
	"context"
	"fmt"
)

// regularTurn accepts building, buying, trading and card plays until p ends the turn.
func (g *Game) regularTurn(ctx context.Context, p *Player) error {
	gate := g.gates[p.ID]
	g.emit(Event{Kind: EventObjectiveChanged, Player: p.ID, Objective: ObjectiveRegularTurn})
	gate.SetObjective(ObjectiveRegularTurn)
	for {
		a, err := g.requestMore(ctx, p, ObjectiveRegularTurn, func(a Action) error {
			return g.applyTurnAction(ctx, p, a)
		})
		if err != nil {
			return err
		}
		if _, ok := a.(EndTurn); ok {
			return nil
		}
		// knights and road building prompt for other objectives on the same gate
		if gate.Objective() != ObjectiveRegularTurn {
			g.emit(Event{Kind: EventObjectiveChanged, Player: p.ID, Objective: ObjectiveRegularTurn})
			gate.SetObjective(ObjectiveRegularTurn)
		} else {
			gate.touch()
		}
	}
}

func (g *Game) applyTurnAction(ctx context.Context, p *Player, a Action) error {
	switch v := a.(type) {
	case PlaceVillage:
		return g.placeVillage(a, p, v.At, false)
	case PlaceRoad:
		return g.placeRoad(a, p, v.At, false, false)
	case UpgradeVillage:
		return g.upgradeVillage(a, p, v.At)
	case BuyDevelopmentCard:
		return g.buyDevelopmentCard(a, p)
	case PlayDevelopmentCard:
		return g.playDevelopmentCard(ctx, p, v)
	case BankTrade:
		return g.bankTrade(a, p, v.Give, v.Get)
	case OfferTrade:
		return g.offerTradeAction(ctx, p, v)
	case EndTurn:
		return nil
	default:
		return fmt.Errorf("%w: %s is not a turn action", ErrProtocolViolation, actionName(a))
	}
}
