package resource

import (
	"fmt"
	"strings"
)

// Kind is a tradeable resource card type.
type Kind byte

const (
	Any Kind = iota // only meaningful on generic ports
	Brick
	Lumber
	Wool
	Grain
	Ore
)

// Kinds lists the real resource kinds in a fixed order.
var Kinds = []Kind{Brick, Lumber, Wool, Grain, Ore}

var KindDictionary = map[Kind]string{
	Any:    "any",
	Brick:  "brick",
	Lumber: "lumber",
	Wool:   "wool",
	Grain:  "grain",
	Ore:    "ore",
}

func (k Kind) String() string {
	if s, ok := KindDictionary[k]; ok {
		return s
	}
	return "?"
}

func (k Kind) Valid() bool { return k >= Brick && k <= Ore }

// ParseKind accepts the dictionary names, case-insensitive.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range KindDictionary {
		if name == s {
			return k, nil
		}
	}
	return Any, fmt.Errorf("unknown resource kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
