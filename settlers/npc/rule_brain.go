package npc

import (
	"math/rand"
	"sort"

	"settlers-lite/resource"
	"settlers-lite/settlers"
)

// RuleBrain makes decisions based on a PersonalityProfile with tunable parameters.
type RuleBrain struct {
	Persona *NPCPersona
	rng     *rand.Rand
}

// NewRuleBrain creates a RuleBrain from a persona definition.
func NewRuleBrain(persona *NPCPersona, seed int64) *RuleBrain {
	return &RuleBrain{
		Persona: persona,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (b *RuleBrain) Name() string { return b.Persona.Name }

// Decide implements BrainDecider.
func (b *RuleBrain) Decide(view GameView) Decision {
	p := b.Persona.Brain

	// Add randomness noise to parameters for this decision
	aggression := clamp01(p.Aggression + (b.rng.Float64()-0.5)*p.Randomness*0.4)
	tightness := clamp01(p.Tightness + (b.rng.Float64()-0.5)*p.Randomness*0.3)

	switch view.Prompt.Objective {
	case settlers.ObjectiveRollDice:
		return Decision{Action: settlers.RollDice{}}
	case settlers.ObjectivePlaceVillage:
		if spot, ok := b.bestSpot(view.VillageSpots); ok {
			return Decision{Action: settlers.PlaceVillage{At: spot}}
		}
	case settlers.ObjectivePlaceRoad:
		if len(view.RoadSpots) > 0 {
			return Decision{Action: settlers.PlaceRoad{At: b.pickRoad(view.RoadSpots)}}
		}
	case settlers.ObjectiveRegularTurn:
		return b.regularTurn(view, aggression)
	case settlers.ObjectiveAcceptTrade:
		return Decision{Action: settlers.AcceptTrade{Accepted: b.acceptTrade(view, tightness)}}
	case settlers.ObjectiveDropCards:
		return Decision{Action: settlers.DropCards{Cards: settlers.DropLargest(view.Me.Resources, view.Prompt.CardsToDrop)}}
	case settlers.ObjectiveSelectRobberTile:
		if t, ok := bestRobberTile(view.Robber); ok {
			return Decision{Action: settlers.SelectRobberTile{Tile: t}}
		}
	case settlers.ObjectiveSelectCardToSteal:
		return Decision{Action: b.steal(view)}
	}
	return Decision{}
}

// regularTurn spends the hand in priority order: city, village, road,
// development cards, then a bank trade towards the next build.
func (b *RuleBrain) regularTurn(view GameView, aggression float64) Decision {
	if view.Prompt.Rejected != "" {
		// the previous choice was refused; don't loop on it
		return Decision{Action: settlers.EndTurn{}}
	}
	p := b.Persona.Brain
	hand := view.Me.Resources
	cards := view.Me.DevelopmentCards

	if len(view.UpgradeSpots) > 0 && hand.Contains(view.Costs.City) {
		if spot, ok := b.bestSpot(view.UpgradeSpots); ok {
			return Decision{Action: settlers.UpgradeVillage{At: spot}}
		}
	}
	if len(view.VillageSpots) > 0 && hand.Contains(view.Costs.Village) {
		if spot, ok := b.bestSpot(view.VillageSpots); ok {
			return Decision{Action: settlers.PlaceVillage{At: spot}}
		}
	}
	if len(view.RoadSpots) > 0 && hand.Contains(view.Costs.Road) &&
		(len(view.VillageSpots) == 0 || b.rng.Float64() < p.Expansion*0.5) {
		return Decision{Action: settlers.PlaceRoad{At: b.pickRoad(view.RoadSpots)}}
	}

	if cards[resource.YearOfPlenty] > 0 && view.YearOfPlenty > 0 {
		if want := b.wishList(view); want.Total() > 0 {
			return Decision{Action: settlers.PlayDevelopmentCard{Card: resource.YearOfPlenty, Resources: want}}
		}
	}
	if cards[resource.Knight] > 0 && b.rng.Float64() < aggression {
		return Decision{Action: settlers.PlayDevelopmentCard{Card: resource.Knight}}
	}
	if cards[resource.RoadBuilding] > 0 && len(view.RoadSpots) > 0 {
		return Decision{Action: settlers.PlayDevelopmentCard{Card: resource.RoadBuilding}}
	}
	if cards[resource.Monopoly] > 0 && b.rng.Float64() < aggression {
		return Decision{Action: settlers.PlayDevelopmentCard{Card: resource.Monopoly, Kind: b.mostNeeded(view)}}
	}

	if hand.Contains(view.Costs.DevelopmentCard) && b.rng.Float64() < aggression*0.6 {
		return Decision{Action: settlers.BuyDevelopmentCard{}}
	}
	if b.rng.Float64() < p.Trading {
		if give, get, ok := b.bankTrade(view); ok {
			return Decision{Action: settlers.BankTrade{Give: give, Get: get}}
		}
	}
	return Decision{Action: settlers.EndTurn{}}
}

// target is the next thing worth saving for.
func (b *RuleBrain) target(view GameView) resource.Bundle {
	switch {
	case len(view.UpgradeSpots) > 0 && view.Me.Cities < view.Me.Villages:
		return view.Costs.City
	case len(view.VillageSpots) > 0:
		return view.Costs.Village
	default:
		return view.Costs.Road
	}
}

func missing(hand, cost resource.Bundle) resource.Bundle {
	out := resource.Bundle{}
	for _, k := range resource.Kinds {
		if d := cost[k] - hand[k]; d > 0 {
			out[k] = d
		}
	}
	return out
}

// wishList fills the year of plenty draw with what the target still lacks.
func (b *RuleBrain) wishList(view GameView) resource.Bundle {
	n := view.YearOfPlenty
	need := missing(view.Me.Resources, b.target(view))
	want := resource.Bundle{}
	for _, k := range resource.Kinds {
		for need[k] > 0 && want.Total() < n {
			want[k]++
			need[k]--
		}
	}
	for want.Total() < n {
		want[resource.Ore]++
	}
	return want
}

func (b *RuleBrain) mostNeeded(view GameView) resource.Kind {
	need := missing(view.Me.Resources, b.target(view))
	if k, n := need.Largest(); n > 0 {
		return k
	}
	return resource.Grain
}

// bankTrade gives away a surplus kind for one the target lacks.
func (b *RuleBrain) bankTrade(view GameView) (resource.Kind, resource.Kind, bool) {
	cost := b.target(view)
	need := missing(view.Me.Resources, cost)
	get, n := need.Largest()
	if n == 0 {
		return resource.Any, resource.Any, false
	}
	for _, give := range resource.Kinds {
		if give == get {
			continue
		}
		ratio := view.TradeRatios[give]
		if ratio <= 0 {
			continue
		}
		if view.Me.Resources[give]-cost[give] >= ratio {
			return give, get, true
		}
	}
	return resource.Any, resource.Any, false
}

// acceptTrade takes offers it can pay for when they bring more cards than they
// cost, and otherwise gambles against tightness.
func (b *RuleBrain) acceptTrade(view GameView, tightness float64) bool {
	offer := view.Prompt.Offer
	if offer == nil || !view.Me.Resources.Contains(offer.Request) {
		return false
	}
	if offer.Offer.Total() > offer.Request.Total() {
		return true
	}
	return b.rng.Float64() > tightness
}

func (b *RuleBrain) bestSpot(spots []Spot) (settlers.IntersectionID, bool) {
	if len(spots) == 0 {
		return "", false
	}
	noise := b.Persona.Brain.Randomness * 2
	best, bestScore := spots[0].Intersection, -1.0
	for _, s := range spots {
		score := float64(s.Pips) + b.rng.Float64()*noise
		if score > bestScore {
			best, bestScore = s.Intersection, score
		}
	}
	return best, true
}

func (b *RuleBrain) pickRoad(roads []settlers.EdgeID) settlers.EdgeID {
	if b.rng.Float64() < b.Persona.Brain.Randomness {
		return roads[b.rng.Intn(len(roads))]
	}
	return roads[0]
}

func bestRobberTile(targets []RobberTarget) (settlers.TileID, bool) {
	if len(targets) == 0 {
		return "", false
	}
	sorted := append([]RobberTarget(nil), targets...)
	sort.SliceStable(sorted, func(i, j int) bool {
		si := (sorted[i].Opponents - 2*sorted[i].Own) * (sorted[i].Pips + 1)
		sj := (sorted[j].Opponents - 2*sorted[j].Own) * (sorted[j].Pips + 1)
		return si > sj
	})
	return sorted[0].Tile, true
}

// steal robs the victim holding the most cards, taking a kind the next build
// still lacks when they have one, otherwise their largest pile.
func (b *RuleBrain) steal(view GameView) settlers.StealCard {
	var victim *Victim
	for i := range view.Victims {
		if victim == nil || view.Victims[i].Cards > victim.Cards {
			victim = &view.Victims[i]
		}
	}
	if victim == nil {
		return settlers.StealCard{Victim: settlers.NoPlayer}
	}
	need := missing(view.Me.Resources, b.target(view))
	for _, k := range resource.Kinds {
		if need[k] > 0 && victim.Resources[k] > 0 {
			return settlers.StealCard{Victim: victim.Player, Resource: k}
		}
	}
	k, _ := victim.Resources.Largest()
	return settlers.StealCard{Victim: victim.Player, Resource: k}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
