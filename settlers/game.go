package settlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"settlers-lite/dice"
)

// Game orchestrates one match. Run owns all mutation; every other exported
// method is safe to call concurrently with it.
type Game struct {
	cfg    Config
	rng    *rand.Rand
	roller *dice.Roller
	board  Board

	mu sync.RWMutex

	players    []*Player
	byID       map[PlayerID]*Player
	gates      map[PlayerID]*Gate
	evaluators map[PlayerID]TradeEvaluator

	round        int
	active       PlayerID
	dice         int
	diceOverride []int
	started      bool
	ended        bool
	state        State

	obsMu     sync.Mutex
	observers []func(Event)
}

func NewGame(cfg Config, board Board, players []*Player) (*Game, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if board == nil {
		return nil, fmt.Errorf("board is required")
	}
	if len(players) > cfg.MaxPlayers {
		return nil, fmt.Errorf("%d players exceed MaxPlayers %d", len(players), cfg.MaxPlayers)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// Config reports the effective seed so a match can be recorded and replayed.
	cfg.Seed = seed
	rng := rand.New(rand.NewSource(seed))
	roller, err := dice.NewRoller(rng, cfg.NumberOfDice, cfg.DiceSides)
	if err != nil {
		return nil, err
	}
	g := &Game{
		cfg:          cfg,
		rng:          rng,
		roller:       roller,
		board:        board,
		byID:         make(map[PlayerID]*Player, len(players)),
		gates:        make(map[PlayerID]*Gate, len(players)),
		evaluators:   make(map[PlayerID]TradeEvaluator, len(players)),
		diceOverride: append([]int(nil), cfg.DiceOverride...),
	}
	for _, p := range players {
		if p == nil || p.ID == NoPlayer {
			return nil, fmt.Errorf("player id must be non-zero")
		}
		if g.byID[p.ID] != nil {
			return nil, fmt.Errorf("duplicate player id %d", p.ID)
		}
		g.players = append(g.players, p)
		g.byID[p.ID] = p
		g.gates[p.ID] = NewGate(p.ID)
	}
	return g, nil
}

func (g *Game) Config() Config { return g.cfg }
func (g *Game) Board() Board   { return g.board }

// Gate returns the turn gate agents use to act for player id.
func (g *Game) Gate(id PlayerID) *Gate { return g.gates[id] }

func (g *Game) Player(id PlayerID) *Player {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.byID[id]
}

// Players returns the players in turn order.
func (g *Game) Players() []*Player {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*Player(nil), g.players...)
}

func (g *Game) ActivePlayer() PlayerID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.active
}

func (g *Game) DiceRoll() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dice
}

func (g *Game) Round() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.round
}

func (g *Game) Ended() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ended
}

func (g *Game) Winner() (PlayerID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.Winner()
}

// Run plays the match to completion. It returns nil once a winner is set, the
// context error when cancelled, or ErrActionTimeout when a required action has
// no fallback. All gates are closed when Run returns.
func (g *Game) Run(ctx context.Context) error {
	g.mu.Lock()
	switch {
	case g.ended:
		g.mu.Unlock()
		return ErrGameOver
	case g.started:
		g.mu.Unlock()
		return ErrInvalidState("game already running")
	case len(g.players) < g.cfg.MinPlayers:
		n := len(g.players)
		g.mu.Unlock()
		return fmt.Errorf("%w: %d players seated, need %d", ErrSetupPrecondition, n, g.cfg.MinPlayers)
	case g.cfg.MaxVillages < 2 || g.cfg.MaxRoads < 2:
		g.mu.Unlock()
		return fmt.Errorf("%w: setup needs two villages and two roads per player", ErrSetupPrecondition)
	}
	g.started = true
	g.mu.Unlock()

	defer g.closeGates()

	if err := g.firstRound(ctx); err != nil {
		return g.abort(err)
	}
	g.advanceRound()

	// winners are only evaluated after a complete pass; the end of setup is not
	// a round boundary, so the first main round is always played out
	for {
		for _, p := range g.players {
			if err := g.withActivePlayer(p, func() error { return g.playTurn(ctx, p) }); err != nil {
				return g.abort(err)
			}
		}
		g.advanceRound()
		if winners := g.Winners(); len(winners) > 0 {
			return g.finish(winners)
		}
	}
}

// firstRound lets each player, in turn order, place a village and a road twice.
// The player is active only for their own placements.
func (g *Game) firstRound(ctx context.Context) error {
	for _, p := range g.players {
		err := g.withActivePlayer(p, func() error {
			if err := g.placeInitialPieces(ctx, p, false); err != nil {
				return err
			}
			return g.placeInitialPieces(ctx, p, true)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (g *Game) placeInitialPieces(ctx context.Context, p *Player, second bool) error {
	_, err := g.request(ctx, p, ObjectivePlaceVillage, func(a Action) error {
		pv, ok := a.(PlaceVillage)
		if !ok {
			return invalidAction(a, "expected a village placement")
		}
		if err := g.placeVillage(a, p, pv.At, true); err != nil {
			return err
		}
		if second && g.cfg.SetupStartingResources {
			g.grantStartingResources(p, pv.At)
		}
		return nil
	})
	if err != nil {
		return err
	}
	_, err = g.request(ctx, p, ObjectivePlaceRoad, func(a Action) error {
		pr, ok := a.(PlaceRoad)
		if !ok {
			return invalidAction(a, "expected a road placement")
		}
		return g.placeRoad(a, p, pr.At, true, true)
	})
	return err
}

func (g *Game) playTurn(ctx context.Context, p *Player) error {
	g.mu.Lock()
	p.resetTurn()
	g.mu.Unlock()

	if _, err := g.request(ctx, p, ObjectiveRollDice, func(Action) error {
		g.castDice(p)
		return nil
	}); err != nil {
		return err
	}

	if roll := g.DiceRoll(); roll == SevenRoll {
		if err := g.diceRollSeven(ctx, p); err != nil {
			return err
		}
	} else {
		g.DistributeResources(roll)
	}
	return g.regularTurn(ctx, p)
}

// withActivePlayer marks p active for the duration of fn and idles its gate afterwards.
func (g *Game) withActivePlayer(p *Player, fn func() error) error {
	g.setActive(p.ID)
	err := fn()
	g.gates[p.ID].SetObjective(ObjectiveIdle)
	g.setActive(NoPlayer)
	return err
}

func (g *Game) setActive(id PlayerID) {
	g.mu.Lock()
	changed := g.active != id
	g.active = id
	g.mu.Unlock()
	if changed {
		g.emit(Event{Kind: EventActivePlayerChanged, Player: id})
	}
}

func (g *Game) castDice(p *Player) {
	g.mu.Lock()
	var roll int
	if len(g.diceOverride) > 0 {
		roll = g.diceOverride[0]
		g.diceOverride = g.diceOverride[1:]
	} else {
		roll = g.roller.Roll()
	}
	g.dice = roll
	g.mu.Unlock()
	g.emit(Event{Kind: EventDiceRolled, Player: p.ID, Dice: roll})
}

func (g *Game) advanceRound() {
	g.mu.Lock()
	g.round++
	r := g.round
	g.mu.Unlock()
	g.emit(Event{Kind: EventRoundAdvanced, Round: r})
}

// finish records the winner. The first winner in turn order is chosen so the
// outcome is reproducible; the full set stays available through State.
func (g *Game) finish(winners []*Player) error {
	ids := make([]PlayerID, 0, len(winners))
	for _, w := range winners {
		ids = append(ids, w.ID)
	}
	g.mu.Lock()
	err := g.state.SetWinner(ids[0], ids)
	g.ended = true
	g.mu.Unlock()
	if err != nil {
		return err
	}
	log.Printf("[Game] winner=%d winners=%v round=%d", ids[0], ids, g.Round())
	g.emit(Event{Kind: EventGameEnded, Player: ids[0], Winners: ids})
	return nil
}

func (g *Game) abort(err error) error {
	g.mu.Lock()
	g.ended = true
	g.mu.Unlock()
	log.Printf("[Game] aborted: %v", err)
	g.emit(Event{Kind: EventGameEnded, Err: err})
	return err
}

func (g *Game) closeGates() {
	for _, p := range g.players {
		g.gates[p.ID].Close()
	}
}

// request solicits one action for objective o from p and applies it through accept.
func (g *Game) request(ctx context.Context, p *Player, o Objective, accept func(Action) error) (Action, error) {
	gate := g.gates[p.ID]
	g.emit(Event{Kind: EventObjectiveChanged, Player: p.ID, Objective: o})
	wctx, cancel := g.waitContext(ctx)
	defer cancel()
	a, err := gate.WaitForAction(wctx, o, g.observed(p, o, accept, false))
	return g.settle(ctx, p, o, a, err, accept)
}

// requestMore waits for another action under the objective already set on p's gate.
func (g *Game) requestMore(ctx context.Context, p *Player, o Objective, accept func(Action) error) (Action, error) {
	gate := g.gates[p.ID]
	wctx, cancel := g.waitContext(ctx)
	defer cancel()
	a, err := gate.WaitForAnyAction(wctx, g.observed(p, o, accept, false))
	return g.settle(ctx, p, o, a, err, accept)
}

func (g *Game) waitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.cfg.ActionTimeout > 0 {
		return context.WithTimeout(ctx, g.cfg.ActionTimeout)
	}
	return context.WithCancel(ctx)
}

// settle applies the objective's fallback when the per-action timeout fired.
func (g *Game) settle(ctx context.Context, p *Player, o Objective, a Action, err error, accept func(Action) error) (Action, error) {
	if err == nil {
		return a, nil
	}
	if ctx.Err() != nil || !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	fb, ok := g.fallbackAction(p, o)
	if !ok {
		return nil, fmt.Errorf("%w: player %d on %s", ErrActionTimeout, p.ID, o)
	}
	log.Printf("[Game] player %d timed out on %s, applying %s", p.ID, o, fb.Type())
	if err := g.observed(p, o, accept, true)(fb); err != nil {
		return nil, fmt.Errorf("%w: fallback %s for player %d: %v", ErrActionTimeout, fb.Type(), p.ID, err)
	}
	return fb, nil
}

func (g *Game) observed(p *Player, o Objective, accept func(Action) error, fallback bool) func(Action) error {
	return func(a Action) error {
		g.emit(Event{Kind: EventActionReceived, Player: p.ID, Objective: o, Action: a, Fallback: fallback})
		var err error
		if accept != nil {
			err = accept(a)
		}
		if err != nil {
			if !fatal(err) {
				log.Printf("[Game] player %d %s rejected: %v", p.ID, a.Type(), err)
				g.emit(Event{Kind: EventActionRejected, Player: p.ID, Objective: o, Action: a, Err: err})
			}
			return err
		}
		g.emit(Event{Kind: EventActionApplied, Player: p.ID, Objective: o, Action: a, Fallback: fallback})
		return nil
	}
}
