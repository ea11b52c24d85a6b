package settlers

import (
	"fmt"

	"settlers-lite/resource"
)

// ActionType tags the Action variants.
type ActionType byte

const (
	ActionTypeNone                ActionType = 0
	ActionTypeRollDice            ActionType = 1
	ActionTypePlaceVillage        ActionType = 2
	ActionTypePlaceRoad           ActionType = 3
	ActionTypeUpgradeVillage      ActionType = 4
	ActionTypeBuyDevelopmentCard  ActionType = 5
	ActionTypePlayDevelopmentCard ActionType = 6
	ActionTypeBankTrade           ActionType = 7
	ActionTypeOfferTrade          ActionType = 8
	ActionTypeAcceptTrade         ActionType = 9
	ActionTypeSelectRobberTile    ActionType = 10
	ActionTypeStealCard           ActionType = 11
	ActionTypeDropCards           ActionType = 12
	ActionTypeEndTurn             ActionType = 13
)

var ActionTypeDictionary = map[ActionType]string{
	ActionTypeNone:                "NONE",
	ActionTypeRollDice:            "ROLL_DICE",
	ActionTypePlaceVillage:        "PLACE_VILLAGE",
	ActionTypePlaceRoad:           "PLACE_ROAD",
	ActionTypeUpgradeVillage:      "UPGRADE_VILLAGE",
	ActionTypeBuyDevelopmentCard:  "BUY_DEVELOPMENT_CARD",
	ActionTypePlayDevelopmentCard: "PLAY_DEVELOPMENT_CARD",
	ActionTypeBankTrade:           "BANK_TRADE",
	ActionTypeOfferTrade:          "OFFER_TRADE",
	ActionTypeAcceptTrade:         "ACCEPT_TRADE",
	ActionTypeSelectRobberTile:    "SELECT_ROBBER_TILE",
	ActionTypeStealCard:           "STEAL_CARD",
	ActionTypeDropCards:           "DROP_CARDS",
	ActionTypeEndTurn:             "END_TURN",
}

func (t ActionType) String() string {
	if s, ok := ActionTypeDictionary[t]; ok {
		return s
	}
	return fmt.Sprintf("ACTION(%d)", byte(t))
}

func ParseActionType(s string) (ActionType, error) {
	for t, name := range ActionTypeDictionary {
		if name == s && t != ActionTypeNone {
			return t, nil
		}
	}
	return ActionTypeNone, fmt.Errorf("unknown action type %q", s)
}

// Action is a closed set of player intents. Only types in this package implement it.
type Action interface {
	Type() ActionType
	isAction()
}

type RollDice struct{}

type PlaceVillage struct {
	At IntersectionID
}

type PlaceRoad struct {
	At EdgeID
}

type UpgradeVillage struct {
	At IntersectionID
}

type BuyDevelopmentCard struct{}

// PlayDevelopmentCard carries the payload for the card being played:
// Resources for year of plenty, Kind for monopoly. Knight and road building
// prompt for their targets afterwards.
type PlayDevelopmentCard struct {
	Card      resource.DevelopmentCard
	Resources resource.Bundle
	Kind      resource.Kind
}

type BankTrade struct {
	Give resource.Kind
	Get  resource.Kind
}

type OfferTrade struct {
	Offer   resource.Bundle
	Request resource.Bundle
}

type AcceptTrade struct {
	Accepted bool
}

type SelectRobberTile struct {
	Tile TileID
}

// StealCard names the victim and the resource taken from them. NoPlayer is
// only valid when nobody can be robbed; Resource is then ignored.
type StealCard struct {
	Victim   PlayerID
	Resource resource.Kind
}

type DropCards struct {
	Cards resource.Bundle
}

type EndTurn struct{}

func (RollDice) Type() ActionType            { return ActionTypeRollDice }
func (PlaceVillage) Type() ActionType        { return ActionTypePlaceVillage }
func (PlaceRoad) Type() ActionType           { return ActionTypePlaceRoad }
func (UpgradeVillage) Type() ActionType      { return ActionTypeUpgradeVillage }
func (BuyDevelopmentCard) Type() ActionType  { return ActionTypeBuyDevelopmentCard }
func (PlayDevelopmentCard) Type() ActionType { return ActionTypePlayDevelopmentCard }
func (BankTrade) Type() ActionType           { return ActionTypeBankTrade }
func (OfferTrade) Type() ActionType          { return ActionTypeOfferTrade }
func (AcceptTrade) Type() ActionType         { return ActionTypeAcceptTrade }
func (SelectRobberTile) Type() ActionType    { return ActionTypeSelectRobberTile }
func (StealCard) Type() ActionType           { return ActionTypeStealCard }
func (DropCards) Type() ActionType           { return ActionTypeDropCards }
func (EndTurn) Type() ActionType             { return ActionTypeEndTurn }

func (RollDice) isAction()            {}
func (PlaceVillage) isAction()        {}
func (PlaceRoad) isAction()           {}
func (UpgradeVillage) isAction()      {}
func (BuyDevelopmentCard) isAction()  {}
func (PlayDevelopmentCard) isAction() {}
func (BankTrade) isAction()           {}
func (OfferTrade) isAction()          {}
func (AcceptTrade) isAction()         {}
func (SelectRobberTile) isAction()    {}
func (StealCard) isAction()           {}
func (DropCards) isAction()           {}
func (EndTurn) isAction()             {}

// acceptedActions lists, per objective, the action types a gate will take.
var acceptedActions = map[Objective][]ActionType{
	ObjectiveRollDice:     {ActionTypeRollDice},
	ObjectivePlaceVillage: {ActionTypePlaceVillage},
	ObjectivePlaceRoad:    {ActionTypePlaceRoad},
	ObjectiveRegularTurn: {
		ActionTypePlaceVillage,
		ActionTypePlaceRoad,
		ActionTypeUpgradeVillage,
		ActionTypeBuyDevelopmentCard,
		ActionTypePlayDevelopmentCard,
		ActionTypeBankTrade,
		ActionTypeOfferTrade,
		ActionTypeEndTurn,
	},
	ObjectiveAcceptTrade:       {ActionTypeAcceptTrade},
	ObjectiveSelectRobberTile:  {ActionTypeSelectRobberTile},
	ObjectiveSelectCardToSteal: {ActionTypeStealCard},
	ObjectiveDropCards:         {ActionTypeDropCards},
}

// Accepts reports whether an action of type t may be submitted while o is pending.
func Accepts(o Objective, t ActionType) bool {
	for _, at := range acceptedActions[o] {
		if at == t {
			return true
		}
	}
	return false
}

// AcceptedActions returns the action types valid under o.
func AcceptedActions(o Objective) []ActionType {
	return append([]ActionType(nil), acceptedActions[o]...)
}

func actionName(a Action) string {
	if a == nil {
		return "nil action"
	}
	return a.Type().String()
}
