package settlers

import (
	"context"
	"log"

	"settlers-lite/resource"
)

// TradeOffer is shown to candidates while a player-to-player trade is pending.
type TradeOffer struct {
	From    PlayerID
	Offer   resource.Bundle
	Request resource.Bundle
}

// TradeEvaluator decides whether candidate is even asked about an offer.
type TradeEvaluator interface {
	CanAccept(candidate *Player, offer TradeOffer) bool
}

type TradeEvaluatorFunc func(candidate *Player, offer TradeOffer) bool

func (f TradeEvaluatorFunc) CanAccept(candidate *Player, offer TradeOffer) bool {
	return f(candidate, offer)
}

// HoldsRequest is the default evaluator: a candidate qualifies if it can pay the request.
var HoldsRequest TradeEvaluator = TradeEvaluatorFunc(func(c *Player, o TradeOffer) bool {
	return c.HasResources(o.Request)
})

// SetTradeEvaluator overrides the evaluator for one candidate. nil restores the default.
func (g *Game) SetTradeEvaluator(id PlayerID, ev TradeEvaluator) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ev == nil {
		delete(g.evaluators, id)
		return
	}
	g.evaluators[id] = ev
}

// OfferTrade asks every other qualifying player, in turn order, whether they
// accept; it returns the first who does, or nil. The active-player marker is
// handed to each candidate while they decide and given back to offering after.
// OfferTrade does not move any resources.
func (g *Game) OfferTrade(ctx context.Context, offering *Player, offer, request resource.Bundle) (*Player, error) {
	defer g.setActive(offering.ID)

	trade := &TradeOffer{From: offering.ID, Offer: offer.Clone(), Request: request.Clone()}
	g.emit(Event{Kind: EventTradeOffered, Player: offering.ID, Offer: trade})

	for _, c := range g.tradeCandidates(offering, *trade) {
		gate := g.gates[c.ID]
		gate.setOffer(trade)
		var accepted bool
		err := g.withActivePlayer(c, func() error {
			a, err := g.request(ctx, c, ObjectiveAcceptTrade, func(a Action) error {
				if _, ok := a.(AcceptTrade); !ok {
					return invalidAction(a, "expected an answer to the offer")
				}
				return nil
			})
			if err != nil {
				return err
			}
			accepted = a.(AcceptTrade).Accepted
			return nil
		})
		gate.setOffer(nil)
		if err != nil {
			return nil, err
		}
		if accepted {
			g.emit(Event{Kind: EventTradeResolved, Player: offering.ID, Partner: c.ID, Offer: trade})
			return c, nil
		}
	}
	g.emit(Event{Kind: EventTradeResolved, Player: offering.ID, Offer: trade})
	return nil, nil
}

func (g *Game) tradeCandidates(offering *Player, offer TradeOffer) []*Player {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*Player
	for _, c := range g.players {
		if c.ID == offering.ID {
			continue
		}
		ev := g.evaluators[c.ID]
		if ev == nil {
			ev = HoldsRequest
		}
		if ev.CanAccept(c, offer) {
			out = append(out, c)
		}
	}
	return out
}

// offerTradeAction runs the offer protocol and swaps the bundles with the partner, if any.
func (g *Game) offerTradeAction(ctx context.Context, p *Player, v OfferTrade) error {
	if !v.Offer.Valid() || !v.Request.Valid() || v.Offer.Total() == 0 || v.Request.Total() == 0 {
		return invalidAction(v, "offer %v for %v is malformed", v.Offer, v.Request)
	}
	g.mu.RLock()
	ok := p.HasResources(v.Offer)
	g.mu.RUnlock()
	if !ok {
		return insufficient(v, p, v.Offer)
	}

	partner, err := g.OfferTrade(ctx, p, v.Offer, v.Request)
	if err != nil || partner == nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if !p.HasResources(v.Offer) {
		return insufficient(v, p, v.Offer)
	}
	if !partner.HasResources(v.Request) {
		return insufficient(v, partner, v.Request)
	}
	p.RemoveResources(v.Offer)
	partner.RemoveResources(v.Request)
	p.AddResources(v.Request)
	partner.AddResources(v.Offer)
	log.Printf("[Game] player %d traded %v for %v with %d", p.ID, v.Offer, v.Request, partner.ID)
	return nil
}

// TradeRatio is the number of give cards p must hand the bank for one card,
// lowered by ports next to p's settlements.
func (g *Game) TradeRatio(p PlayerID, give resource.Kind) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tradeRatioLocked(p, give)
}

func (g *Game) tradeRatioLocked(p PlayerID, give resource.Kind) int {
	ratio := g.cfg.BankTradeRatio
	for _, ix := range g.board.Intersections() {
		s, ok := ix.Settlement()
		if !ok || s.Owner != p {
			continue
		}
		port, ok := ix.Port()
		if !ok || port.Ratio <= 0 {
			continue
		}
		if (port.Resource == resource.Any || port.Resource == give) && port.Ratio < ratio {
			ratio = port.Ratio
		}
	}
	return ratio
}

func (g *Game) bankTrade(a Action, p *Player, give, get resource.Kind) error {
	if !give.Valid() || !get.Valid() || give == get {
		return invalidAction(a, "cannot trade %s for %s", give, get)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	cost := resource.Bundle{give: g.tradeRatioLocked(p.ID, give)}
	if !p.RemoveResources(cost) {
		return insufficient(a, p, cost)
	}
	p.AddResource(get, 1)
	return nil
}
