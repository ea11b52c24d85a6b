package resource

import (
	"fmt"
	"strings"
)

// DevelopmentCard is a development card type.
type DevelopmentCard byte

const (
	Knight DevelopmentCard = iota + 1
	VictoryPoint
	RoadBuilding
	YearOfPlenty
	Monopoly
)

var DevelopmentCards = []DevelopmentCard{Knight, VictoryPoint, RoadBuilding, YearOfPlenty, Monopoly}

var DevelopmentCardDictionary = map[DevelopmentCard]string{
	Knight:       "knight",
	VictoryPoint: "victory_point",
	RoadBuilding: "road_building",
	YearOfPlenty: "year_of_plenty",
	Monopoly:     "monopoly",
}

func (d DevelopmentCard) String() string {
	if s, ok := DevelopmentCardDictionary[d]; ok {
		return s
	}
	return "?"
}

func (d DevelopmentCard) Valid() bool { return d >= Knight && d <= Monopoly }

// Playable reports whether the card can be played from hand; victory point cards only score.
func (d DevelopmentCard) Playable() bool { return d.Valid() && d != VictoryPoint }

func ParseDevelopmentCard(s string) (DevelopmentCard, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d, name := range DevelopmentCardDictionary {
		if name == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown development card %q", s)
}

func (d DevelopmentCard) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *DevelopmentCard) UnmarshalText(b []byte) error {
	v, err := ParseDevelopmentCard(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
