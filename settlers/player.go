package settlers

import "settlers-lite/resource"

type Player struct {
	ID    PlayerID
	Name  string
	Color string
	Robot bool

	resources resource.Bundle
	cards     map[resource.DevelopmentCard]int
	played    map[resource.DevelopmentCard]int

	roads    int
	villages int
	cities   int

	// per-turn development card bookkeeping
	boughtThisTurn map[resource.DevelopmentCard]int
	playedThisTurn int
}

func NewPlayer(id PlayerID, name, color string, robot bool) *Player {
	return &Player{
		ID:             id,
		Name:           name,
		Color:          color,
		Robot:          robot,
		resources:      resource.Bundle{},
		cards:          map[resource.DevelopmentCard]int{},
		played:         map[resource.DevelopmentCard]int{},
		boughtThisTurn: map[resource.DevelopmentCard]int{},
	}
}

func (p *Player) IsRobot() bool { return p.Robot }

func (p *Player) Resources() resource.Bundle { return p.resources.Clone() }
func (p *Player) ResourceCount(k resource.Kind) int {
	return p.resources[k]
}
func (p *Player) TotalResources() int { return p.resources.Total() }

// HasResources reports whether the player holds at least every amount in b.
func (p *Player) HasResources(b resource.Bundle) bool { return p.resources.Contains(b) }

func (p *Player) AddResource(k resource.Kind, n int) {
	if n <= 0 {
		return
	}
	p.resources[k] += n
}

func (p *Player) AddResources(b resource.Bundle) {
	for k, n := range b {
		p.AddResource(k, n)
	}
}

// RemoveResources is all-or-nothing: it reports false and changes nothing if any amount is missing.
func (p *Player) RemoveResources(b resource.Bundle) bool {
	if !b.Valid() || !p.resources.Contains(b) {
		return false
	}
	for k, n := range b {
		p.resources[k] -= n
		if p.resources[k] == 0 {
			delete(p.resources, k)
		}
	}
	return true
}

func (p *Player) RemoveResource(k resource.Kind, n int) bool {
	return p.RemoveResources(resource.Bundle{k: n})
}

// takeAll removes and returns every card of kind k.
func (p *Player) takeAll(k resource.Kind) int {
	n := p.resources[k]
	delete(p.resources, k)
	return n
}

func (p *Player) DevelopmentCards() map[resource.DevelopmentCard]int { return cloneCards(p.cards) }
func (p *Player) PlayedCards() map[resource.DevelopmentCard]int      { return cloneCards(p.played) }

func (p *Player) TotalDevelopmentCards() int {
	n := 0
	for _, c := range p.cards {
		n += c
	}
	return n
}

func (p *Player) AddDevelopmentCard(c resource.DevelopmentCard) {
	p.cards[c]++
}

// RemoveDevelopmentCard moves one held card to the played ledger.
func (p *Player) RemoveDevelopmentCard(c resource.DevelopmentCard) bool {
	if p.cards[c] <= 0 {
		return false
	}
	p.cards[c]--
	if p.cards[c] == 0 {
		delete(p.cards, c)
	}
	p.played[c]++
	return true
}

func (p *Player) KnightsPlayed() int { return p.played[resource.Knight] }

func (p *Player) Roads() int    { return p.roads }
func (p *Player) Villages() int { return p.villages }
func (p *Player) Cities() int   { return p.cities }

func (p *Player) RemainingRoads(cfg Config) int    { return max(cfg.MaxRoads-p.roads, 0) }
func (p *Player) RemainingVillages(cfg Config) int { return max(cfg.MaxVillages-p.villages, 0) }
func (p *Player) RemainingCities(cfg Config) int   { return max(cfg.MaxCities-p.cities, 0) }

// playableCount is how many cards of type c may be played now; cards bought this turn wait a turn.
func (p *Player) playableCount(c resource.DevelopmentCard) int {
	return p.cards[c] - p.boughtThisTurn[c]
}

func (p *Player) resetTurn() {
	p.boughtThisTurn = map[resource.DevelopmentCard]int{}
	p.playedThisTurn = 0
}

func cloneCards(m map[resource.DevelopmentCard]int) map[resource.DevelopmentCard]int {
	out := make(map[resource.DevelopmentCard]int, len(m))
	for k, v := range m {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}
