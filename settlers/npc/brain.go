package npc

import (
	"settlers-lite/resource"
	"settlers-lite/settlers"
)

// Spot is a candidate placement scored by the production it would touch.
type Spot struct {
	Intersection settlers.IntersectionID
	Pips         int
}

// RobberTarget describes a tile the robber could be moved to.
type RobberTarget struct {
	Tile      settlers.TileID
	Pips      int
	Opponents int // settlement weight owned by others
	Own       int
}

// Victim is a player the NPC could steal from.
type Victim struct {
	Player    settlers.PlayerID
	Cards     int
	Resources resource.Bundle
}

// GameView is a read-only projection of the game state visible to the NPC.
type GameView struct {
	Prompt settlers.Prompt
	Round  int
	Me     settlers.PlayerSnapshot
	Costs  settlers.Costs
	Legal  []settlers.ActionType

	VillageSpots []Spot
	UpgradeSpots []Spot
	RoadSpots    []settlers.EdgeID
	Robber       []RobberTarget
	Victims      []Victim
	TradeRatios  map[resource.Kind]int
	YearOfPlenty int // cards drawn by a year of plenty
}

// Decision is what a BrainDecider returns. A nil Action means the NPC passes
// and lets the game's timeout fallback decide.
type Decision struct {
	Action settlers.Action
}

// BrainDecider is the core interface all NPC types implement.
type BrainDecider interface {
	// Decide is called whenever the NPC has a pending objective.
	Decide(view GameView) Decision
	// Name returns a human-readable identifier for debugging.
	Name() string
}
