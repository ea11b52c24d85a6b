package settlers

// placeVillage pays (outside setup) and places a village. Nothing changes on failure.
func (g *Game) placeVillage(a Action, p *Player, at IntersectionID, setup bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p.villages >= g.cfg.MaxVillages {
		return invalidAction(a, "player %d has no villages left", p.ID)
	}
	cost := g.cfg.Costs.Village
	if !setup && !p.HasResources(cost) {
		return insufficient(a, p, cost)
	}
	if err := g.board.PlaceSettlement(at, p.ID, setup); err != nil {
		return &InvalidActionError{Action: actionName(a), Reason: err.Error(), Err: err}
	}
	if !setup {
		p.RemoveResources(cost)
	}
	p.villages++
	return nil
}

// placeRoad places a road; setup relaxes connectivity, free skips payment.
func (g *Game) placeRoad(a Action, p *Player, at EdgeID, setup, free bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p.roads >= g.cfg.MaxRoads {
		return invalidAction(a, "player %d has no roads left", p.ID)
	}
	cost := g.cfg.Costs.Road
	if !free && !p.HasResources(cost) {
		return insufficient(a, p, cost)
	}
	if err := g.board.PlaceRoad(at, p.ID, setup); err != nil {
		return &InvalidActionError{Action: actionName(a), Reason: err.Error(), Err: err}
	}
	if !free {
		p.RemoveResources(cost)
	}
	p.roads++
	return nil
}

func (g *Game) upgradeVillage(a Action, p *Player, at IntersectionID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p.cities >= g.cfg.MaxCities {
		return invalidAction(a, "player %d has no cities left", p.ID)
	}
	cost := g.cfg.Costs.City
	if !p.HasResources(cost) {
		return insufficient(a, p, cost)
	}
	if err := g.board.UpgradeSettlement(at, p.ID); err != nil {
		return &InvalidActionError{Action: actionName(a), Reason: err.Error(), Err: err}
	}
	p.RemoveResources(cost)
	p.villages--
	p.cities++
	return nil
}

// grantStartingResources credits one card per producing tile around the second setup village.
func (g *Game) grantStartingResources(p *Player, at IntersectionID) {
	ix, ok := g.board.Intersection(at)
	if !ok {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, t := range ix.AdjacentTiles() {
		if k := t.Resource(); k.Valid() {
			p.AddResource(k, 1)
		}
	}
}
