package settlers

import "settlers-lite/resource"

type PlayerSnapshot struct {
	ID        PlayerID
	Name      string
	Color     string
	Robot     bool
	Objective Objective

	Resources        resource.Bundle
	TotalResources   int
	DevelopmentCards map[resource.DevelopmentCard]int
	TotalDevCards    int
	PlayedCards      map[resource.DevelopmentCard]int

	Roads    int
	Villages int
	Cities   int

	Score       int
	// PublicScore leaves out unplayed victory point cards.
	PublicScore int
}

type Snapshot struct {
	Round        int
	Dice         int
	ActivePlayer PlayerID
	Started      bool
	Ended        bool
	RobberTile   TileID
	LargestArmy  PlayerID
	LongestRoad  PlayerID
	Winner       PlayerID
	Winners      []PlayerID
	Players      []PlayerSnapshot
}

// Snapshot returns a copy of the match state, including every player's hidden hand.
// Callers that forward it to clients should use Redact.
func (g *Game) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := Snapshot{
		Round:        g.round,
		Dice:         g.dice,
		ActivePlayer: g.active,
		Started:      g.started,
		Ended:        g.ended,
		RobberTile:   g.board.RobberTile(),
		LargestArmy:  g.largestArmyLocked(),
		LongestRoad:  g.longestRoadLocked(),
		Winners:      g.state.Winners(),
	}
	s.Winner, _ = g.state.Winner()
	for _, p := range g.players {
		score := g.scoreLocked(p)
		s.Players = append(s.Players, PlayerSnapshot{
			ID:               p.ID,
			Name:             p.Name,
			Color:            p.Color,
			Robot:            p.Robot,
			Objective:        g.gates[p.ID].Objective(),
			Resources:        p.Resources(),
			TotalResources:   p.TotalResources(),
			DevelopmentCards: p.DevelopmentCards(),
			TotalDevCards:    p.TotalDevelopmentCards(),
			PlayedCards:      p.PlayedCards(),
			Roads:            p.roads,
			Villages:         p.villages,
			Cities:           p.cities,
			Score:            score,
			PublicScore:      score - p.cards[resource.VictoryPoint]*g.cfg.VictoryCardPoints,
		})
	}
	return s
}

// Redact hides other players' resource and development cards from viewer.
// Totals stay visible.
func (s Snapshot) Redact(viewer PlayerID) Snapshot {
	out := s
	out.Players = make([]PlayerSnapshot, len(s.Players))
	for i, p := range s.Players {
		if p.ID != viewer {
			p.Score = p.PublicScore
			p.Resources = nil
			p.DevelopmentCards = nil
		}
		out.Players[i] = p
	}
	return out
}

func (s Snapshot) Player(id PlayerID) (PlayerSnapshot, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return PlayerSnapshot{}, false
}
