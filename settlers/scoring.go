package settlers

import "settlers-lite/resource"

// Score returns p's victory points: settlements, victory point cards held,
// and the largest army and longest road bonuses.
func (g *Game) Score(id PlayerID) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p := g.byID[id]
	if p == nil {
		return 0
	}
	return g.scoreLocked(p)
}

// Winners returns, in turn order, every player at or above the victory threshold.
func (g *Game) Winners() []*Player {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*Player
	for _, p := range g.players {
		if g.scoreLocked(p) >= g.cfg.VictoryPoints {
			out = append(out, p)
		}
	}
	return out
}

func (g *Game) scoreLocked(p *Player) int {
	score := p.villages*g.cfg.VillagePoints +
		p.cities*g.cfg.CityPoints +
		p.cards[resource.VictoryPoint]*g.cfg.VictoryCardPoints
	if g.largestArmyLocked() == p.ID {
		score += g.cfg.LargestArmyBonus
	}
	if g.longestRoadLocked() == p.ID {
		score += g.cfg.LongestRoadBonus
	}
	return score
}

// LargestArmy returns the sole player with the most knights played, if they meet the minimum.
func (g *Game) LargestArmy() PlayerID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.largestArmyLocked()
}

func (g *Game) largestArmyLocked() PlayerID {
	return g.uniqueLeader(g.cfg.LargestArmyMinimum, func(p *Player) int { return p.KnightsPlayed() })
}

// LongestRoad is NoPlayer unless the board implements RoadMeter.
func (g *Game) LongestRoad() PlayerID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.longestRoadLocked()
}

func (g *Game) longestRoadLocked() PlayerID {
	meter, ok := g.board.(RoadMeter)
	if !ok {
		return NoPlayer
	}
	return g.uniqueLeader(g.cfg.LongestRoadMinimum, func(p *Player) int { return meter.LongestRoad(p.ID) })
}

// uniqueLeader returns the only player with the highest metric >= min. Ties award nobody.
func (g *Game) uniqueLeader(minimum int, metric func(*Player) int) PlayerID {
	leader, best, tied := NoPlayer, 0, false
	for _, p := range g.players {
		m := metric(p)
		switch {
		case m > best:
			leader, best, tied = p.ID, m, false
		case m == best && m > 0:
			tied = true
		}
	}
	if tied || best < minimum || best == 0 {
		return NoPlayer
	}
	return leader
}
