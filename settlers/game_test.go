package settlers_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"settlers-lite/resource"
	"settlers-lite/settlers"
)

func TestRunRequiresMinPlayers(t *testing.T) {
	f := newFixture(t, testConfig(), 1)
	err := f.g.Run(context.Background())
	if !errors.Is(err, settlers.ErrSetupPrecondition) {
		t.Fatalf("expected ErrSetupPrecondition, got %v", err)
	}
}

func TestWinnerOnlyAtRoundBoundary(t *testing.T) {
	cfg := testConfig()
	cfg.VictoryPoints = 2
	cfg.DiceOverride = []int{3, 3}
	f := newFixture(t, cfg, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f.start(ctx)
	if err := f.g.Run(ctx); err != nil {
		t.Fatalf("Run err: %v", err)
	}

	// both players hit 2 points during setup, yet the first round is played out
	if n := len(f.log.of(settlers.EventDiceRolled)); n != 2 {
		t.Fatalf("expected both players to roll before the game ended, got %d rolls", n)
	}
	w, ok := f.g.Winner()
	if !ok || w != 1 {
		t.Fatalf("expected player 1 (first in turn order) to win, got %d ok=%v", w, ok)
	}
	ended := f.log.of(settlers.EventGameEnded)
	if len(ended) != 1 || len(ended[0].Winners) != 2 {
		t.Fatalf("expected one GameEnded with both winners, got %+v", ended)
	}
	if f.g.Round() != 2 {
		t.Fatalf("expected round counter 2 after one full pass, got %d", f.g.Round())
	}
	if err := f.g.Run(ctx); !errors.Is(err, settlers.ErrGameOver) {
		t.Fatalf("expected ErrGameOver on second Run, got %v", err)
	}
}

func TestSetupPlacesTwoVillagesAndRoadsEach(t *testing.T) {
	cfg := testConfig()
	cfg.VictoryPoints = 2
	cfg.DiceOverride = []int{3, 3}
	cfg.SetupStartingResources = true
	f := newFixture(t, cfg, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f.start(ctx)
	if err := f.g.Run(ctx); err != nil {
		t.Fatalf("Run err: %v", err)
	}

	s := f.g.Snapshot()
	for _, p := range s.Players {
		if p.Villages != 2 || p.Roads != 2 {
			t.Fatalf("player %d: expected 2 villages and 2 roads, got %d/%d", p.ID, p.Villages, p.Roads)
		}
		if p.TotalResources == 0 {
			t.Fatalf("player %d: expected starting resources from the second village", p.ID)
		}
	}
	// each player places village, road, village, road before the next player starts
	var order []string
	for _, e := range f.log.of(settlers.EventActionApplied) {
		switch e.Action.(type) {
		case settlers.PlaceVillage:
			order = append(order, fmt.Sprintf("%dV", e.Player))
		case settlers.PlaceRoad:
			order = append(order, fmt.Sprintf("%dR", e.Player))
		}
		if len(order) == 8 {
			break
		}
	}
	want := []string{"1V", "1R", "1V", "1R", "2V", "2R", "2V", "2R"}
	if len(order) < len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order[:len(want)])
		}
	}

	// the active marker changes once per player during setup
	var setupActive []settlers.PlayerID
	for _, e := range f.log.of(settlers.EventActivePlayerChanged) {
		if e.Round == 0 && e.Player != settlers.NoPlayer {
			setupActive = append(setupActive, e.Player)
		}
	}
	if len(setupActive) != 2 || setupActive[0] != 1 || setupActive[1] != 2 {
		t.Fatalf("expected players 1 then 2 to be active once each during setup, got %v", setupActive)
	}
}

func TestEndToEndTwoPlayers(t *testing.T) {
	cfg := testConfig()
	cfg.VictoryPoints = 3
	cfg.DiceOverride = []int{2, 2, 2, 2, 2, 2}
	f := newFixture(t, cfg, 2)
	give(f.g.Player(1), resource.Brick, 4, resource.Lumber, 4, resource.Wool, 1, resource.Grain, 1)

	f.agents[1].turn = func(settlers.Prompt) settlers.Action {
		me, _ := f.g.Snapshot().Player(1)
		costs := f.g.Config().Costs
		if spots := f.b.VillageSpots(1, false); len(spots) > 0 && me.Resources.Contains(costs.Village) {
			return settlers.PlaceVillage{At: spots[0]}
		}
		if spots := f.b.RoadSpots(1, false); len(spots) > 0 && me.Resources.Contains(costs.Road) {
			return settlers.PlaceRoad{At: spots[0]}
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f.start(ctx)
	if err := f.g.Run(ctx); err != nil {
		t.Fatalf("Run err: %v", err)
	}

	w, _ := f.g.Winner()
	if w != 1 {
		t.Fatalf("expected player 1 to win, got %d", w)
	}
	s := f.g.Snapshot()
	me, _ := s.Player(1)
	if me.Villages != 3 || me.Score != 3 {
		t.Fatalf("expected 3 villages and 3 points, got %d/%d", me.Villages, me.Score)
	}
	other, _ := s.Player(2)
	if other.Score != 2 {
		t.Fatalf("expected player 2 to stay at 2 points, got %d", other.Score)
	}
	if len(s.Winners) != 1 {
		t.Fatalf("expected a single winner, got %v", s.Winners)
	}
	for _, p := range s.Players {
		for k, n := range p.Resources {
			if n < 0 {
				t.Fatalf("player %d holds %d %s", p.ID, n, k)
			}
		}
	}
}

func TestDiceSevenDiscardsHalfAboveThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.DiceOverride = []int{7}
	f := newFixture(t, cfg, 3)
	give(f.g.Player(1), resource.Ore, 5, resource.Wool, 4)
	give(f.g.Player(2), resource.Grain, 8)
	give(f.g.Player(3), resource.Brick, 7)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	totals := map[settlers.PlayerID]int{}
	f.agents[1].onPrompt = func(p settlers.Prompt) {
		if p.Objective != settlers.ObjectiveSelectRobberTile {
			return
		}
		for _, ps := range f.g.Snapshot().Players {
			totals[ps.ID] = ps.TotalResources
		}
	}
	f.agents[1].turn = func(settlers.Prompt) settlers.Action {
		cancel()
		return nil
	}
	f.start(ctx)
	if err := f.g.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	for id, want := range map[settlers.PlayerID]int{1: 4, 2: 4} {
		drops := f.agents[id].seen(settlers.ObjectiveDropCards)
		if len(drops) == 0 || drops[0].CardsToDrop != want {
			t.Fatalf("player %d: expected to drop %d, got %+v", id, want, drops)
		}
	}
	if drops := f.agents[3].seen(settlers.ObjectiveDropCards); len(drops) != 0 {
		t.Fatalf("player 3 holds exactly 7 and must not discard, got %+v", drops)
	}
	if totals[1] != 5 || totals[2] != 4 || totals[3] != 7 {
		t.Fatalf("unexpected hands before the robber moved: %v", totals)
	}
	if f.b.RobberTile() == "t10" {
		t.Fatalf("expected the robber to leave the desert")
	}
}

func TestDistributeResources(t *testing.T) {
	f := newFixture(t, testConfig(), 2)
	// t04 is the only tile numbered 12
	if err := f.b.PlaceSettlement("i08", 1, true); err != nil {
		t.Fatalf("PlaceSettlement err: %v", err)
	}
	if err := f.b.PlaceSettlement("i18", 2, true); err != nil {
		t.Fatalf("PlaceSettlement err: %v", err)
	}
	if err := f.b.UpgradeSettlement("i18", 2); err != nil {
		t.Fatalf("UpgradeSettlement err: %v", err)
	}

	f.g.DistributeResources(12)
	if got := f.g.Player(1).ResourceCount(resource.Grain); got != 1 {
		t.Fatalf("village: expected 1 grain, got %d", got)
	}
	if got := f.g.Player(2).ResourceCount(resource.Grain); got != 2 {
		t.Fatalf("city: expected 2 grain, got %d", got)
	}
	f.g.DistributeResources(12)
	if got := f.g.Player(2).ResourceCount(resource.Grain); got != 4 {
		t.Fatalf("second call should credit again, got %d", got)
	}

	if err := f.b.MoveRobber("t04"); err != nil {
		t.Fatalf("MoveRobber err: %v", err)
	}
	f.g.DistributeResources(12)
	if got := f.g.Player(1).ResourceCount(resource.Grain); got != 2 {
		t.Fatalf("robbed tile must not produce, got %d", got)
	}
}

func TestOfferTradeFirstAccepterStops(t *testing.T) {
	f := newFixture(t, testConfig(), 3)
	give(f.g.Player(1), resource.Brick, 1)
	give(f.g.Player(2), resource.Wool, 1)
	give(f.g.Player(3), resource.Wool, 1)
	f.agents[2].acceptTrade = true
	f.agents[3].acceptTrade = true

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f.start(ctx)

	partner, err := f.g.OfferTrade(ctx, f.g.Player(1), resource.Of(resource.Brick, 1), resource.Of(resource.Wool, 1))
	if err != nil {
		t.Fatalf("OfferTrade err: %v", err)
	}
	if partner == nil || partner.ID != 2 {
		t.Fatalf("expected player 2 to accept, got %+v", partner)
	}
	if n := len(f.agents[3].seen(settlers.ObjectiveAcceptTrade)); n != 0 {
		t.Fatalf("player 3 must not be asked after player 2 accepted, asked %d times", n)
	}
	if f.g.ActivePlayer() != 1 {
		t.Fatalf("expected active player restored to 1, got %d", f.g.ActivePlayer())
	}
	if f.g.Player(1).ResourceCount(resource.Brick) != 1 {
		t.Fatalf("OfferTrade itself must not move resources")
	}
	if p := f.agents[2].seen(settlers.ObjectiveAcceptTrade); len(p) == 0 || p[0].Offer == nil || p[0].Offer.From != 1 {
		t.Fatalf("expected the pending offer on player 2's prompt, got %+v", p)
	}
}

func TestOfferTradeSkipsIneligibleCandidates(t *testing.T) {
	f := newFixture(t, testConfig(), 3)
	give(f.g.Player(2), resource.Wool, 1)
	f.g.SetTradeEvaluator(2, settlers.TradeEvaluatorFunc(func(*settlers.Player, settlers.TradeOffer) bool { return false }))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f.start(ctx)

	partner, err := f.g.OfferTrade(ctx, f.g.Player(1), resource.Of(resource.Brick, 1), resource.Of(resource.Wool, 1))
	if err != nil {
		t.Fatalf("OfferTrade err: %v", err)
	}
	if partner != nil {
		t.Fatalf("expected no partner, got %d", partner.ID)
	}
	for _, id := range []settlers.PlayerID{2, 3} {
		if n := len(f.agents[id].seen(settlers.ObjectiveAcceptTrade)); n != 0 {
			t.Fatalf("player %d should not have been asked", id)
		}
	}
	resolved := f.log.of(settlers.EventTradeResolved)
	if len(resolved) != 1 || resolved[0].Partner != settlers.NoPlayer {
		t.Fatalf("expected one unresolved trade event, got %+v", resolved)
	}
}

func TestOfferTradeActionExchangesBundles(t *testing.T) {
	cfg := testConfig()
	cfg.DiceOverride = []int{3, 3}
	f := newFixture(t, cfg, 2)
	give(f.g.Player(1), resource.Brick, 2)
	give(f.g.Player(2), resource.Wool, 1)
	f.agents[2].acceptTrade = true

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f.agents[1].turn = script(settlers.OfferTrade{
		Offer:   resource.Of(resource.Brick, 2),
		Request: resource.Of(resource.Wool, 1),
	})
	f.agents[2].turn = func(settlers.Prompt) settlers.Action {
		cancel()
		return nil
	}
	f.start(ctx)
	if err := f.g.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if got := f.g.Player(1).Resources(); got[resource.Wool] != 1 || got[resource.Brick] != 0 {
		t.Fatalf("player 1: unexpected hand %v", got)
	}
	if got := f.g.Player(2).Resources(); got[resource.Brick] != 2 || got[resource.Wool] != 0 {
		t.Fatalf("player 2: unexpected hand %v", got)
	}
}

func TestDevelopmentCardRules(t *testing.T) {
	cfg := testConfig()
	cfg.DiceOverride = []int{3, 3}
	f := newFixture(t, cfg, 2)
	p1 := f.g.Player(1)
	p1.AddDevelopmentCard(resource.Monopoly)
	p1.AddDevelopmentCard(resource.YearOfPlenty)
	p1.AddDevelopmentCard(resource.VictoryPoint)
	give(p1, resource.Wool, 1, resource.Grain, 1)
	give(f.g.Player(2), resource.Ore, 3)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f.agents[1].turn = script(
		settlers.PlayDevelopmentCard{Card: resource.VictoryPoint},
		settlers.PlayDevelopmentCard{Card: resource.Monopoly, Kind: resource.Ore},
		settlers.PlayDevelopmentCard{Card: resource.YearOfPlenty, Resources: resource.Of(resource.Grain, 2)},
		settlers.BuyDevelopmentCard{},
	)
	f.agents[2].turn = func(settlers.Prompt) settlers.Action {
		cancel()
		return nil
	}
	f.start(ctx)
	if err := f.g.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	rejected := f.log.of(settlers.EventActionRejected)
	if len(rejected) != 2 {
		t.Fatalf("expected the victory point play and the second card play to be rejected, got %d", len(rejected))
	}
	var invalid *settlers.InvalidActionError
	if !errors.As(rejected[0].Err, &invalid) {
		t.Fatalf("expected InvalidActionError, got %v", rejected[0].Err)
	}
	if got := p1.ResourceCount(resource.Ore); got != 2 {
		t.Fatalf("expected 3 ore from monopoly minus 1 spent, got %d", got)
	}
	if got := f.g.Player(2).ResourceCount(resource.Ore); got != 0 {
		t.Fatalf("monopoly should take every ore, player 2 holds %d", got)
	}
	if got := p1.PlayedCards()[resource.Monopoly]; got != 1 {
		t.Fatalf("expected monopoly in the played ledger, got %d", got)
	}
	if got := p1.TotalDevelopmentCards(); got != 3 {
		t.Fatalf("expected year of plenty, victory point and the bought card, got %d", got)
	}
}

func TestKnightRestoresRegularTurn(t *testing.T) {
	cfg := testConfig()
	cfg.DiceOverride = []int{3, 3}
	f := newFixture(t, cfg, 2)
	f.g.Player(1).AddDevelopmentCard(resource.Knight)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f.agents[1].turn = script(settlers.PlayDevelopmentCard{Card: resource.Knight})
	f.agents[2].turn = func(settlers.Prompt) settlers.Action {
		cancel()
		return nil
	}
	f.start(ctx)
	if err := f.g.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	var seq []settlers.ActionType
	for _, e := range f.log.of(settlers.EventActionApplied) {
		if e.Player == 1 && e.Objective != settlers.ObjectivePlaceVillage && e.Objective != settlers.ObjectivePlaceRoad {
			seq = append(seq, e.Action.Type())
		}
	}
	want := []settlers.ActionType{
		settlers.ActionTypeRollDice,
		settlers.ActionTypeSelectRobberTile,
		settlers.ActionTypeStealCard,
		settlers.ActionTypePlayDevelopmentCard,
		settlers.ActionTypeEndTurn,
	}
	if len(seq) != len(want) {
		t.Fatalf("expected %v, got %v", want, seq)
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, seq)
		}
	}
	if f.g.Player(1).KnightsPlayed() != 1 {
		t.Fatalf("expected one knight played")
	}

	var objectives []settlers.Objective
	for _, e := range f.log.of(settlers.EventObjectiveChanged) {
		if e.Player == 1 && e.Round > 0 {
			objectives = append(objectives, e.Objective)
		}
	}
	wantObjectives := []settlers.Objective{
		settlers.ObjectiveRollDice,
		settlers.ObjectiveRegularTurn,
		settlers.ObjectiveSelectRobberTile,
		settlers.ObjectiveSelectCardToSteal,
		settlers.ObjectiveRegularTurn,
	}
	if fmt.Sprint(objectives) != fmt.Sprint(wantObjectives) {
		t.Fatalf("expected objectives %v, got %v", wantObjectives, objectives)
	}
}

func TestStealTakesTheNamedResource(t *testing.T) {
	cfg := testConfig()
	cfg.DiceOverride = []int{7}
	f := newFixture(t, cfg, 2)
	give(f.g.Player(2), resource.Ore, 2, resource.Wool, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f.agents[1].answer = map[settlers.Objective]func(settlers.Prompt) settlers.Action{
		settlers.ObjectiveSelectRobberTile: func(settlers.Prompt) settlers.Action {
			robber := f.b.RobberTile()
			for _, tl := range f.b.Tiles() {
				if tl.ID() == robber {
					continue
				}
				for _, ix := range tl.AdjacentIntersections() {
					if s, ok := ix.Settlement(); ok && s.Owner == 2 {
						return settlers.SelectRobberTile{Tile: tl.ID()}
					}
				}
			}
			return nil
		},
		settlers.ObjectiveSelectCardToSteal: func(p settlers.Prompt) settlers.Action {
			// brick first, which player 2 does not hold
			if p.Rejected == "" {
				return settlers.StealCard{Victim: 2, Resource: resource.Brick}
			}
			return settlers.StealCard{Victim: 2, Resource: resource.Wool}
		},
	}
	f.agents[1].turn = func(settlers.Prompt) settlers.Action {
		cancel()
		return nil
	}
	f.start(ctx)
	if err := f.g.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	rejected := 0
	for _, p := range f.agents[1].seen(settlers.ObjectiveSelectCardToSteal) {
		if p.Rejected != "" {
			rejected++
		}
	}
	if rejected != 1 {
		t.Fatalf("expected the brick steal to be rejected once, got %d", rejected)
	}
	thief, victim := f.g.Player(1), f.g.Player(2)
	if thief.ResourceCount(resource.Wool) != 1 || thief.TotalResources() != 1 {
		t.Fatalf("expected thief to hold one wool, got %v", thief.Resources())
	}
	if victim.ResourceCount(resource.Wool) != 0 || victim.ResourceCount(resource.Ore) != 2 {
		t.Fatalf("expected victim to keep 2 ore and lose the wool, got %v", victim.Resources())
	}
	var stolen []settlers.StealCard
	for _, e := range f.log.of(settlers.EventActionApplied) {
		if sc, ok := e.Action.(settlers.StealCard); ok {
			stolen = append(stolen, sc)
		}
	}
	if len(stolen) != 1 || stolen[0].Resource != resource.Wool {
		t.Fatalf("expected one applied wool steal, got %v", stolen)
	}
}

func TestTimeoutAppliesFallbacks(t *testing.T) {
	cfg := testConfig()
	cfg.VictoryPoints = 2
	cfg.DiceOverride = []int{3, 3}
	cfg.ActionTimeout = 200 * time.Millisecond
	f := newFixture(t, cfg, 2)
	for _, a := range f.agents {
		a.silent = map[settlers.Objective]bool{
			settlers.ObjectiveRollDice:    true,
			settlers.ObjectiveRegularTurn: true,
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f.start(ctx)
	if err := f.g.Run(ctx); err != nil {
		t.Fatalf("Run err: %v", err)
	}
	fallbacks := 0
	for _, e := range f.log.of(settlers.EventActionApplied) {
		if e.Fallback {
			fallbacks++
		}
	}
	if fallbacks != 4 {
		t.Fatalf("expected a fallback roll and end turn per player, got %d", fallbacks)
	}
}

func TestSetupTimeoutAbortsMatch(t *testing.T) {
	cfg := testConfig()
	cfg.ActionTimeout = 20 * time.Millisecond
	f := newFixture(t, cfg, 2)

	err := f.g.Run(context.Background())
	if !errors.Is(err, settlers.ErrActionTimeout) {
		t.Fatalf("expected ErrActionTimeout, got %v", err)
	}
	if !f.g.Ended() {
		t.Fatalf("expected the match to be over")
	}
	if err := f.g.Gate(1).Submit(settlers.RollDice{}); !errors.Is(err, settlers.ErrGateClosed) {
		t.Fatalf("expected ErrGateClosed after abort, got %v", err)
	}
}

func TestTradeRatioUsesOwnedPorts(t *testing.T) {
	f := newFixture(t, testConfig(), 2)
	port := f.b.Layout().Ports[0]
	if err := f.b.PlaceSettlement(port.Intersection, 1, true); err != nil {
		t.Fatalf("PlaceSettlement err: %v", err)
	}
	kind := resource.Brick
	if port.Resource.Valid() {
		kind = port.Resource
	}
	if got := f.g.TradeRatio(1, kind); got != port.Ratio {
		t.Fatalf("expected port ratio %d, got %d", port.Ratio, got)
	}
	if got := f.g.TradeRatio(2, kind); got != 4 {
		t.Fatalf("expected default ratio 4 without a port, got %d", got)
	}
}
