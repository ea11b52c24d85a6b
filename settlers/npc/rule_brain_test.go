package npc

import (
	"testing"

	"settlers-lite/resource"
	"settlers-lite/settlers"
)

func steadyBrain(profile PersonalityProfile) *RuleBrain {
	profile.Randomness = 0
	return NewRuleBrain(&NPCPersona{ID: "steady", Name: "STEADY", Brain: profile}, 42)
}

func turnView(hand resource.Bundle) GameView {
	ratios := map[resource.Kind]int{}
	for _, k := range resource.Kinds {
		ratios[k] = 4
	}
	return GameView{
		Prompt:      settlers.Prompt{Objective: settlers.ObjectiveRegularTurn},
		Me:          settlers.PlayerSnapshot{Resources: hand},
		Costs:       settlers.DefaultConfig().Costs,
		TradeRatios: ratios,
	}
}

func TestRuleBrainSetupPicksRichestSpot(t *testing.T) {
	brain := steadyBrain(PersonalityProfile{})
	view := GameView{
		Prompt:       settlers.Prompt{Objective: settlers.ObjectivePlaceVillage},
		VillageSpots: []Spot{{"a", 5}, {"b", 11}, {"c", 7}},
	}
	d := brain.Decide(view)
	pv, ok := d.Action.(settlers.PlaceVillage)
	if !ok || pv.At != "b" {
		t.Fatalf("expected village at b, got %#v", d.Action)
	}

	view.VillageSpots = nil
	if d := brain.Decide(view); d.Action != nil {
		t.Fatalf("expected a pass without spots, got %#v", d.Action)
	}
}

func TestRuleBrainPrefersCityOverVillage(t *testing.T) {
	brain := steadyBrain(PersonalityProfile{})
	view := turnView(resource.Of(
		resource.Brick, 1, resource.Lumber, 1, resource.Wool, 1,
		resource.Grain, 3, resource.Ore, 3,
	))
	view.Me.Villages = 2
	view.UpgradeSpots = []Spot{{"x", 3}}
	view.VillageSpots = []Spot{{"y", 8}}

	d := brain.Decide(view)
	up, ok := d.Action.(settlers.UpgradeVillage)
	if !ok || up.At != "x" {
		t.Fatalf("expected upgrade at x, got %#v", d.Action)
	}

	view.UpgradeSpots = nil
	d = brain.Decide(view)
	if pv, ok := d.Action.(settlers.PlaceVillage); !ok || pv.At != "y" {
		t.Fatalf("expected village at y, got %#v", d.Action)
	}
}

func TestRuleBrainEndsTurnAfterRejection(t *testing.T) {
	brain := steadyBrain(PersonalityProfile{Aggression: 1})
	view := turnView(resource.Of(resource.Brick, 5, resource.Lumber, 5))
	view.RoadSpots = []settlers.EdgeID{"e01"}
	view.Prompt.Rejected = "not connected"
	if _, ok := brain.Decide(view).Action.(settlers.EndTurn); !ok {
		t.Fatalf("expected end turn after a rejection")
	}
}

func TestRuleBrainBankTradesSurplus(t *testing.T) {
	brain := steadyBrain(PersonalityProfile{Trading: 1})
	view := turnView(resource.Of(resource.Brick, 5))

	d := brain.Decide(view)
	bt, ok := d.Action.(settlers.BankTrade)
	if !ok {
		t.Fatalf("expected a bank trade, got %#v", d.Action)
	}
	if bt.Give != resource.Brick || bt.Get != resource.Lumber {
		t.Fatalf("expected brick for lumber, got %v for %v", bt.Give, bt.Get)
	}

	view = turnView(resource.Of(resource.Brick, 4))
	if _, ok := brain.Decide(view).Action.(settlers.EndTurn); !ok {
		t.Fatalf("a trade that eats into the road cost should not happen")
	}
}

func TestRuleBrainAcceptTrade(t *testing.T) {
	brain := steadyBrain(PersonalityProfile{Tightness: 1})
	view := GameView{
		Prompt: settlers.Prompt{
			Objective: settlers.ObjectiveAcceptTrade,
			Offer: &settlers.TradeOffer{
				From:    2,
				Offer:   resource.Of(resource.Ore, 2),
				Request: resource.Of(resource.Wool, 1),
			},
		},
		Me: settlers.PlayerSnapshot{Resources: resource.Of(resource.Wool, 1)},
	}
	if a := brain.Decide(view).Action.(settlers.AcceptTrade); !a.Accepted {
		t.Fatalf("expected a 2-for-1 offer to be accepted")
	}

	view.Prompt.Offer.Offer = resource.Of(resource.Ore, 1)
	if a := brain.Decide(view).Action.(settlers.AcceptTrade); a.Accepted {
		t.Fatalf("a fully tight brain should refuse an even trade")
	}

	view.Prompt.Offer.Offer = resource.Of(resource.Ore, 3)
	view.Me.Resources = resource.Bundle{}
	if a := brain.Decide(view).Action.(settlers.AcceptTrade); a.Accepted {
		t.Fatalf("cannot accept without the requested cards")
	}
}

func TestRuleBrainRobberAndSteal(t *testing.T) {
	brain := steadyBrain(PersonalityProfile{})
	d := brain.Decide(GameView{
		Prompt: settlers.Prompt{Objective: settlers.ObjectiveSelectRobberTile},
		Robber: []RobberTarget{
			{Tile: "t1", Pips: 5, Own: 1},
			{Tile: "t2", Pips: 3, Opponents: 2},
			{Tile: "t3", Pips: 5, Opponents: 1},
		},
	})
	if sel, ok := d.Action.(settlers.SelectRobberTile); !ok || sel.Tile != "t2" {
		t.Fatalf("expected robber on t2, got %#v", d.Action)
	}

	victims := []Victim{
		{Player: 2, Cards: 1, Resources: resource.Of(resource.Brick, 1)},
		{Player: 3, Cards: 4, Resources: resource.Of(resource.Ore, 3, resource.Lumber, 1)},
	}
	d = brain.Decide(GameView{
		Prompt:  settlers.Prompt{Objective: settlers.ObjectiveSelectCardToSteal},
		Costs:   settlers.DefaultConfig().Costs,
		Victims: victims,
	})
	if st := d.Action.(settlers.StealCard); st.Victim != 3 || st.Resource != resource.Lumber {
		t.Fatalf("expected lumber from 3 for the next road, got %+v", st)
	}

	d = brain.Decide(GameView{
		Prompt:  settlers.Prompt{Objective: settlers.ObjectiveSelectCardToSteal},
		Costs:   settlers.DefaultConfig().Costs,
		Me:      settlers.PlayerSnapshot{Resources: resource.Of(resource.Brick, 1, resource.Lumber, 1)},
		Victims: victims,
	})
	if st := d.Action.(settlers.StealCard); st.Victim != 3 || st.Resource != resource.Ore {
		t.Fatalf("expected the largest pile when nothing is missing, got %+v", st)
	}

	d = brain.Decide(GameView{Prompt: settlers.Prompt{Objective: settlers.ObjectiveSelectCardToSteal}})
	if st := d.Action.(settlers.StealCard); st.Victim != settlers.NoPlayer {
		t.Fatalf("expected no victim, got %d", st.Victim)
	}
}

func TestRuleBrainDropsRequestedCount(t *testing.T) {
	brain := steadyBrain(PersonalityProfile{})
	d := brain.Decide(GameView{
		Prompt: settlers.Prompt{Objective: settlers.ObjectiveDropCards, CardsToDrop: 4},
		Me:     settlers.PlayerSnapshot{Resources: resource.Of(resource.Ore, 8, resource.Grain, 3)},
	})
	drop := d.Action.(settlers.DropCards)
	if drop.Cards.Total() != 4 || drop.Cards[resource.Ore] != 4 {
		t.Fatalf("unexpected drop %v", drop.Cards)
	}
}

func TestPips(t *testing.T) {
	cases := map[int]int{2: 1, 3: 2, 6: 5, 7: 0, 8: 5, 12: 1, 0: 0}
	for n, want := range cases {
		if got := pips(n); got != want {
			t.Fatalf("pips(%d) = %d, want %d", n, got, want)
		}
	}
}
