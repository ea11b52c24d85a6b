package settlers

import (
	"log"

	"settlers-lite/resource"
)

// DistributeResources pays every settlement adjacent to a tile numbered roll,
// skipping the robber's tile and tiles without a resource.
func (g *Game) DistributeResources(roll int) {
	gains := map[PlayerID]resource.Bundle{}

	g.mu.Lock()
	for _, t := range g.board.TilesProducingOn(roll) {
		k := t.Resource()
		if t.HasRobber() || !k.Valid() {
			continue
		}
		for _, ix := range t.AdjacentIntersections() {
			s, ok := ix.Settlement()
			if !ok {
				continue
			}
			owner := g.byID[s.Owner]
			if owner == nil {
				log.Printf("[Game] settlement at %s owned by unknown player %d", ix.ID(), s.Owner)
				continue
			}
			n := s.Kind.Multiplier()
			owner.AddResource(k, n)
			if gains[owner.ID] == nil {
				gains[owner.ID] = resource.Bundle{}
			}
			gains[owner.ID][k] += n
		}
	}
	g.mu.Unlock()

	if len(gains) > 0 {
		g.emit(Event{Kind: EventResourcesProduced, Dice: roll, Gains: gains})
	}
}
