package board

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"settlers-lite/resource"
	"settlers-lite/settlers"
)

//go:embed layouts/standard.yaml
var standardLayout []byte

// Layout is the explicit description of a board: every tile with its corner
// intersections, every edge, and the harbors.
type Layout struct {
	Robber settlers.TileID `yaml:"robber" json:"robber"`
	Tiles  []TileSpec      `yaml:"tiles" json:"tiles"`
	Ports  []PortSpec      `yaml:"ports" json:"ports,omitempty"`
	Edges  []EdgeSpec      `yaml:"edges" json:"edges"`
}

type TileSpec struct {
	ID       settlers.TileID `yaml:"id" json:"id"`
	Resource resource.Kind   `yaml:"resource" json:"resource"`
	// Number 0 never produces.
	Number        int                       `yaml:"number" json:"number"`
	Intersections []settlers.IntersectionID `yaml:"intersections" json:"intersections"`
}

type PortSpec struct {
	Intersection settlers.IntersectionID `yaml:"intersection" json:"intersection"`
	Resource     resource.Kind           `yaml:"resource" json:"resource"`
	Ratio        int                     `yaml:"ratio" json:"ratio"`
}

type EdgeSpec struct {
	ID   settlers.EdgeID           `yaml:"id" json:"id"`
	Ends []settlers.IntersectionID `yaml:"ends" json:"ends"`
}

func ParseLayout(data []byte) (Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("parse layout: %w", err)
	}
	if err := l.validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

func LoadLayout(path string) (Layout, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, err
	}
	l, err := ParseLayout(b)
	if err != nil {
		return Layout{}, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// StandardLayout is the built-in 19-tile island.
func StandardLayout() Layout {
	l, err := ParseLayout(standardLayout)
	if err != nil {
		panic(err)
	}
	return l
}

func (l Layout) validate() error {
	if len(l.Tiles) == 0 {
		return fmt.Errorf("layout has no tiles")
	}
	tiles := map[settlers.TileID]bool{}
	corners := map[settlers.IntersectionID]bool{}
	for _, t := range l.Tiles {
		if t.ID == "" {
			return fmt.Errorf("tile without id")
		}
		if tiles[t.ID] {
			return fmt.Errorf("duplicate tile %s", t.ID)
		}
		tiles[t.ID] = true
		if t.Resource != resource.Any && !t.Resource.Valid() {
			return fmt.Errorf("tile %s: invalid resource", t.ID)
		}
		if t.Number < 0 {
			return fmt.Errorf("tile %s: negative number", t.ID)
		}
		if len(t.Intersections) == 0 {
			return fmt.Errorf("tile %s has no intersections", t.ID)
		}
		for _, ix := range t.Intersections {
			corners[ix] = true
		}
	}
	if !tiles[l.Robber] {
		return fmt.Errorf("robber tile %q is not on the board", l.Robber)
	}
	edges := map[settlers.EdgeID]bool{}
	for _, e := range l.Edges {
		if edges[e.ID] {
			return fmt.Errorf("duplicate edge %s", e.ID)
		}
		edges[e.ID] = true
		if len(e.Ends) != 2 || e.Ends[0] == e.Ends[1] {
			return fmt.Errorf("edge %s needs two distinct ends", e.ID)
		}
		for _, end := range e.Ends {
			if !corners[end] {
				return fmt.Errorf("edge %s: unknown intersection %s", e.ID, end)
			}
		}
	}
	for _, p := range l.Ports {
		if !corners[p.Intersection] {
			return fmt.Errorf("port on unknown intersection %s", p.Intersection)
		}
		if p.Ratio <= 0 {
			return fmt.Errorf("port at %s: ratio must be > 0", p.Intersection)
		}
	}
	return nil
}
