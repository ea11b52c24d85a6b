package settlers

import (
	"context"
	"fmt"
	"sync"
)

// Prompt is what a player's agent sees: the pending objective plus its context.
// Seq increases on every change so agents can wait for the next one.
type Prompt struct {
	Player      PlayerID
	Objective   Objective
	Seq         uint64
	Offer       *TradeOffer
	CardsToDrop int
	// Rejected holds the reason the last submission under this objective was refused.
	Rejected string
}

type submission struct {
	action Action
	epoch  uint64
}

// Gate is the per-player rendezvous between the orchestrator and whatever agent
// drives that player. Submit never waits for the action to be applied.
type Gate struct {
	player PlayerID

	mu      sync.Mutex
	prompt  Prompt
	epoch   uint64
	changed chan struct{}

	slot      chan submission
	closed    chan struct{}
	closeOnce sync.Once
}

func NewGate(player PlayerID) *Gate {
	return &Gate{
		player:  player,
		prompt:  Prompt{Player: player, Objective: ObjectiveIdle},
		changed: make(chan struct{}),
		slot:    make(chan submission, 1),
		closed:  make(chan struct{}),
	}
}

func (g *Gate) Player() PlayerID { return g.player }

func (g *Gate) Prompt() Prompt {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.copyPromptLocked()
}

func (g *Gate) Objective() Objective {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prompt.Objective
}

// SetObjective replaces the pending objective. Submissions made under the
// previous objective are dropped.
func (g *Gate) SetObjective(o Objective) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.epoch++
	g.prompt.Objective = o
	g.prompt.Rejected = ""
	select {
	case <-g.slot:
	default:
	}
	g.publishLocked()
}

// Submit hands an action to the orchestrator. It fails with ErrProtocolViolation
// when nothing is pending, when the action does not fit the pending objective,
// or when an earlier submission has not been picked up yet.
func (g *Gate) Submit(a Action) error {
	if a == nil {
		return fmt.Errorf("%w: nil action", ErrProtocolViolation)
	}
	select {
	case <-g.closed:
		return ErrGateClosed
	default:
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	obj := g.prompt.Objective
	if obj == ObjectiveIdle {
		return fmt.Errorf("%w: player %d has no pending objective", ErrProtocolViolation, g.player)
	}
	if !Accepts(obj, a.Type()) {
		return fmt.Errorf("%w: %s not accepted while %s", ErrProtocolViolation, a.Type(), obj)
	}
	select {
	case g.slot <- submission{action: a, epoch: g.epoch}:
		return nil
	default:
		return fmt.Errorf("%w: player %d already has an action pending", ErrProtocolViolation, g.player)
	}
}

// WaitForAction sets the objective and blocks until an action passes accept.
// Actions refused by accept are published on the prompt and the wait goes on.
func (g *Gate) WaitForAction(ctx context.Context, o Objective, accept func(Action) error) (Action, error) {
	g.SetObjective(o)
	return g.wait(ctx, accept)
}

// WaitForAnyAction waits under the objective already in place.
func (g *Gate) WaitForAnyAction(ctx context.Context, accept func(Action) error) (Action, error) {
	return g.wait(ctx, accept)
}

func (g *Gate) wait(ctx context.Context, accept func(Action) error) (Action, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-g.closed:
			return nil, ErrGateClosed
		case sub := <-g.slot:
			g.mu.Lock()
			stale := sub.epoch != g.epoch
			g.mu.Unlock()
			if stale {
				continue
			}
			if accept != nil {
				if err := accept(sub.action); err != nil {
					if fatal(err) {
						return nil, err
					}
					g.reject(err)
					continue
				}
			}
			return sub.action, nil
		}
	}
}

// NextPrompt blocks until the prompt sequence passes after.
func (g *Gate) NextPrompt(ctx context.Context, after uint64) (Prompt, error) {
	for {
		g.mu.Lock()
		p := g.copyPromptLocked()
		ch := g.changed
		g.mu.Unlock()
		if p.Seq > after {
			return p, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return Prompt{}, ctx.Err()
		case <-g.closed:
			return Prompt{}, ErrGateClosed
		}
	}
}

// Close wakes every waiter with ErrGateClosed.
func (g *Gate) Close() {
	g.closeOnce.Do(func() { close(g.closed) })
}

func (g *Gate) Done() <-chan struct{} { return g.closed }

func (g *Gate) reject(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompt.Rejected = err.Error()
	g.publishLocked()
}

// touch republishes the current objective after an action was applied.
func (g *Gate) touch() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompt.Rejected = ""
	g.publishLocked()
}

func (g *Gate) setOffer(o *TradeOffer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompt.Offer = o
}

func (g *Gate) setCardsToDrop(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompt.CardsToDrop = n
}

func (g *Gate) publishLocked() {
	g.prompt.Seq++
	close(g.changed)
	g.changed = make(chan struct{})
}

func (g *Gate) copyPromptLocked() Prompt {
	p := g.prompt
	if p.Offer != nil {
		o := *p.Offer
		o.Offer = o.Offer.Clone()
		o.Request = o.Request.Clone()
		p.Offer = &o
	}
	return p
}
