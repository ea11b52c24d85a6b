package settlers

import "fmt"

// PlayerID identifies a seated player. Zero means "nobody".
type PlayerID uint64

const NoPlayer PlayerID = 0

type (
	TileID         string
	IntersectionID string
	EdgeID         string
)

// SevenRoll triggers the discard and robber sequence instead of production.
const SevenRoll = 7

// Objective describes what kind of action is currently solicited from a player.
type Objective byte

const (
	ObjectiveIdle              Objective = 0
	ObjectiveRollDice          Objective = 1
	ObjectivePlaceVillage      Objective = 2
	ObjectivePlaceRoad         Objective = 3
	ObjectiveRegularTurn       Objective = 4
	ObjectiveAcceptTrade       Objective = 5
	ObjectiveSelectRobberTile  Objective = 6
	ObjectiveSelectCardToSteal Objective = 7
	ObjectiveDropCards         Objective = 8
)

var ObjectiveDictionary = map[Objective]string{
	ObjectiveIdle:              "IDLE",
	ObjectiveRollDice:          "ROLL_DICE",
	ObjectivePlaceVillage:      "PLACE_VILLAGE",
	ObjectivePlaceRoad:         "PLACE_ROAD",
	ObjectiveRegularTurn:       "REGULAR_TURN",
	ObjectiveAcceptTrade:       "ACCEPT_TRADE",
	ObjectiveSelectRobberTile:  "SELECT_ROBBER_TILE",
	ObjectiveSelectCardToSteal: "SELECT_CARD_TO_STEAL",
	ObjectiveDropCards:         "DROP_CARDS",
}

func (o Objective) String() string {
	if s, ok := ObjectiveDictionary[o]; ok {
		return s
	}
	return fmt.Sprintf("OBJECTIVE(%d)", byte(o))
}

func (o Objective) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Objective) UnmarshalText(b []byte) error {
	for k, name := range ObjectiveDictionary {
		if name == string(b) {
			*o = k
			return nil
		}
	}
	return fmt.Errorf("unknown objective %q", string(b))
}

// SettlementKind is a village or a city.
type SettlementKind byte

const (
	Village SettlementKind = 1
	City    SettlementKind = 2
)

func (k SettlementKind) String() string {
	switch k {
	case Village:
		return "village"
	case City:
		return "city"
	}
	return "?"
}

// Multiplier is the number of resource cards a settlement receives per producing tile.
func (k SettlementKind) Multiplier() int {
	switch k {
	case Village:
		return 1
	case City:
		return 2
	}
	return 0
}

type Settlement struct {
	Owner PlayerID
	Kind  SettlementKind
}
