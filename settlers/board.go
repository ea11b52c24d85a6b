package settlers

import "settlers-lite/resource"

// Board is the map the orchestrator plays on. Implementations validate placement
// legality and must be safe for concurrent readers while the orchestrator mutates them.
type Board interface {
	// TilesProducingOn returns the tiles whose number token equals roll.
	TilesProducingOn(roll int) []Tile
	Tiles() []Tile
	Tile(id TileID) (Tile, bool)
	Intersections() []Intersection
	Intersection(id IntersectionID) (Intersection, bool)
	RobberTile() TileID

	PlaceSettlement(at IntersectionID, owner PlayerID, setup bool) error
	UpgradeSettlement(at IntersectionID, owner PlayerID) error
	PlaceRoad(at EdgeID, owner PlayerID, setup bool) error
	MoveRobber(to TileID) error
}

type Tile interface {
	ID() TileID
	// Resource is resource.Any for tiles that produce nothing.
	Resource() resource.Kind
	Number() int
	HasRobber() bool
	AdjacentIntersections() []Intersection
}

type Intersection interface {
	ID() IntersectionID
	Settlement() (Settlement, bool)
	Port() (Port, bool)
	AdjacentTiles() []Tile
}

// Port is a harbor next to an intersection. Resource is resource.Any for generic ports.
type Port struct {
	Resource resource.Kind `yaml:"resource" json:"resource"`
	Ratio    int           `yaml:"ratio" json:"ratio"`
}

// RoadMeter is optionally implemented by boards that can measure a player's longest road.
type RoadMeter interface {
	LongestRoad(owner PlayerID) int
}
