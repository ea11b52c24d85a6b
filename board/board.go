package board

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"settlers-lite/resource"
	"settlers-lite/settlers"
)

var (
	ErrUnknownLocation = errors.New("unknown board location")
	ErrOccupied        = errors.New("location already occupied")
	ErrTooClose        = errors.New("too close to another settlement")
	ErrNotConnected    = errors.New("not connected to own road or settlement")
	ErrNotOwned        = errors.New("no own village there")
)

// Board is an in-memory settlers.Board built from a Layout. All methods are
// safe for concurrent use.
type Board struct {
	mu sync.RWMutex

	layout Layout

	tiles     []*tile
	tileByID  map[settlers.TileID]*tile
	inters    []*intersection
	interByID map[settlers.IntersectionID]*intersection
	edges     []*edge
	edgeByID  map[settlers.EdgeID]*edge

	robber *tile
}

type tile struct {
	b      *Board
	id     settlers.TileID
	kind   resource.Kind
	number int
	inters []*intersection
}

type intersection struct {
	b          *Board
	id         settlers.IntersectionID
	tiles      []*tile
	edges      []*edge
	port       *settlers.Port
	settlement *settlers.Settlement
}

type edge struct {
	id    settlers.EdgeID
	ends  [2]*intersection
	owner settlers.PlayerID
}

var _ settlers.Board = (*Board)(nil)

func New(l Layout) (*Board, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}
	b := &Board{
		layout:    l,
		tileByID:  make(map[settlers.TileID]*tile, len(l.Tiles)),
		interByID: map[settlers.IntersectionID]*intersection{},
		edgeByID:  make(map[settlers.EdgeID]*edge, len(l.Edges)),
	}
	corner := func(id settlers.IntersectionID) *intersection {
		ix := b.interByID[id]
		if ix == nil {
			ix = &intersection{b: b, id: id}
			b.interByID[id] = ix
			b.inters = append(b.inters, ix)
		}
		return ix
	}
	for _, ts := range l.Tiles {
		t := &tile{b: b, id: ts.ID, kind: ts.Resource, number: ts.Number}
		for _, id := range ts.Intersections {
			ix := corner(id)
			t.inters = append(t.inters, ix)
			ix.tiles = append(ix.tiles, t)
		}
		b.tiles = append(b.tiles, t)
		b.tileByID[t.id] = t
	}
	for _, es := range l.Edges {
		e := &edge{id: es.ID, ends: [2]*intersection{b.interByID[es.Ends[0]], b.interByID[es.Ends[1]]}}
		for _, ix := range e.ends {
			ix.edges = append(ix.edges, e)
		}
		b.edges = append(b.edges, e)
		b.edgeByID[e.id] = e
	}
	for _, ps := range l.Ports {
		b.interByID[ps.Intersection].port = &settlers.Port{Resource: ps.Resource, Ratio: ps.Ratio}
	}
	sort.Slice(b.inters, func(i, j int) bool { return b.inters[i].id < b.inters[j].id })
	b.robber = b.tileByID[l.Robber]
	return b, nil
}

// Standard builds the built-in 19-tile island.
func Standard() *Board {
	b, err := New(StandardLayout())
	if err != nil {
		panic(err)
	}
	return b
}

// Layout returns the layout the board was built from, without pieces.
func (b *Board) Layout() Layout { return b.layout }

func (b *Board) TilesProducingOn(roll int) []settlers.Tile {
	var out []settlers.Tile
	for _, t := range b.tiles {
		if t.number == roll && t.number > 0 {
			out = append(out, t)
		}
	}
	return out
}

func (b *Board) Tiles() []settlers.Tile {
	out := make([]settlers.Tile, 0, len(b.tiles))
	for _, t := range b.tiles {
		out = append(out, t)
	}
	return out
}

func (b *Board) Tile(id settlers.TileID) (settlers.Tile, bool) {
	t, ok := b.tileByID[id]
	if !ok {
		return nil, false
	}
	return t, true
}

func (b *Board) Intersections() []settlers.Intersection {
	out := make([]settlers.Intersection, 0, len(b.inters))
	for _, ix := range b.inters {
		out = append(out, ix)
	}
	return out
}

func (b *Board) Intersection(id settlers.IntersectionID) (settlers.Intersection, bool) {
	ix, ok := b.interByID[id]
	if !ok {
		return nil, false
	}
	return ix, true
}

func (b *Board) RobberTile() settlers.TileID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.robber.id
}

func (b *Board) MoveRobber(to settlers.TileID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tileByID[to]
	if !ok {
		return fmt.Errorf("%w: tile %s", ErrUnknownLocation, to)
	}
	if t == b.robber {
		return fmt.Errorf("robber is already on %s", to)
	}
	b.robber = t
	return nil
}

// PlaceSettlement puts a village on an empty intersection whose neighbours are
// all empty. Outside setup it must also touch one of owner's roads.
func (b *Board) PlaceSettlement(at settlers.IntersectionID, owner settlers.PlayerID, setup bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ix, ok := b.interByID[at]
	if !ok {
		return fmt.Errorf("%w: intersection %s", ErrUnknownLocation, at)
	}
	if err := b.canSettleLocked(ix, owner, setup); err != nil {
		return err
	}
	ix.settlement = &settlers.Settlement{Owner: owner, Kind: settlers.Village}
	return nil
}

func (b *Board) canSettleLocked(ix *intersection, owner settlers.PlayerID, setup bool) error {
	if ix.settlement != nil {
		return fmt.Errorf("%w: intersection %s", ErrOccupied, ix.id)
	}
	for _, e := range ix.edges {
		if e.other(ix).settlement != nil {
			return fmt.Errorf("%w: intersection %s", ErrTooClose, ix.id)
		}
	}
	if setup {
		return nil
	}
	for _, e := range ix.edges {
		if e.owner == owner {
			return nil
		}
	}
	return fmt.Errorf("%w: intersection %s", ErrNotConnected, ix.id)
}

func (b *Board) UpgradeSettlement(at settlers.IntersectionID, owner settlers.PlayerID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ix, ok := b.interByID[at]
	if !ok {
		return fmt.Errorf("%w: intersection %s", ErrUnknownLocation, at)
	}
	s := ix.settlement
	if s == nil || s.Owner != owner || s.Kind != settlers.Village {
		return fmt.Errorf("%w: intersection %s", ErrNotOwned, at)
	}
	s.Kind = settlers.City
	return nil
}

// PlaceRoad claims a free edge. During setup the road must touch a settlement of
// owner that has no road yet; otherwise it must extend owner's network.
func (b *Board) PlaceRoad(at settlers.EdgeID, owner settlers.PlayerID, setup bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.edgeByID[at]
	if !ok {
		return fmt.Errorf("%w: edge %s", ErrUnknownLocation, at)
	}
	if err := b.canRoadLocked(e, owner, setup); err != nil {
		return err
	}
	e.owner = owner
	return nil
}

func (b *Board) canRoadLocked(e *edge, owner settlers.PlayerID, setup bool) error {
	if e.owner != settlers.NoPlayer {
		return fmt.Errorf("%w: edge %s", ErrOccupied, e.id)
	}
	for _, ix := range e.ends {
		s := ix.settlement
		if setup {
			if s != nil && s.Owner == owner && !ix.hasRoadOf(owner) {
				return nil
			}
			continue
		}
		if s != nil && s.Owner == owner {
			return nil
		}
		// another player's settlement cuts the network
		if s != nil {
			continue
		}
		if ix.hasRoadOf(owner) {
			return nil
		}
	}
	return fmt.Errorf("%w: edge %s", ErrNotConnected, e.id)
}

// VillageSpots lists intersections where owner could place a village now.
func (b *Board) VillageSpots(owner settlers.PlayerID, setup bool) []settlers.IntersectionID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []settlers.IntersectionID
	for _, ix := range b.inters {
		if b.canSettleLocked(ix, owner, setup) == nil {
			out = append(out, ix.id)
		}
	}
	return out
}

// RoadSpots lists edges where owner could place a road now.
func (b *Board) RoadSpots(owner settlers.PlayerID, setup bool) []settlers.EdgeID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []settlers.EdgeID
	for _, e := range b.edges {
		if b.canRoadLocked(e, owner, setup) == nil {
			out = append(out, e.id)
		}
	}
	return out
}

// UpgradeSpots lists owner's villages.
func (b *Board) UpgradeSpots(owner settlers.PlayerID) []settlers.IntersectionID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []settlers.IntersectionID
	for _, ix := range b.inters {
		if s := ix.settlement; s != nil && s.Owner == owner && s.Kind == settlers.Village {
			out = append(out, ix.id)
		}
	}
	return out
}

// RoadOwner reports who owns edge id.
func (b *Board) RoadOwner(id settlers.EdgeID) settlers.PlayerID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if e, ok := b.edgeByID[id]; ok {
		return e.owner
	}
	return settlers.NoPlayer
}

func (t *tile) ID() settlers.TileID     { return t.id }
func (t *tile) Resource() resource.Kind { return t.kind }
func (t *tile) Number() int             { return t.number }

func (t *tile) HasRobber() bool {
	t.b.mu.RLock()
	defer t.b.mu.RUnlock()
	return t.b.robber == t
}

func (t *tile) AdjacentIntersections() []settlers.Intersection {
	out := make([]settlers.Intersection, 0, len(t.inters))
	for _, ix := range t.inters {
		out = append(out, ix)
	}
	return out
}

func (ix *intersection) ID() settlers.IntersectionID { return ix.id }

func (ix *intersection) Settlement() (settlers.Settlement, bool) {
	ix.b.mu.RLock()
	defer ix.b.mu.RUnlock()
	if ix.settlement == nil {
		return settlers.Settlement{}, false
	}
	return *ix.settlement, true
}

func (ix *intersection) Port() (settlers.Port, bool) {
	if ix.port == nil {
		return settlers.Port{}, false
	}
	return *ix.port, true
}

func (ix *intersection) AdjacentTiles() []settlers.Tile {
	out := make([]settlers.Tile, 0, len(ix.tiles))
	for _, t := range ix.tiles {
		out = append(out, t)
	}
	return out
}

func (ix *intersection) hasRoadOf(owner settlers.PlayerID) bool {
	for _, e := range ix.edges {
		if e.owner == owner {
			return true
		}
	}
	return false
}

func (e *edge) other(ix *intersection) *intersection {
	if e.ends[0] == ix {
		return e.ends[1]
	}
	return e.ends[0]
}
