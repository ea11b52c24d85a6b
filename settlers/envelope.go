package settlers

import (
	"fmt"

	"settlers-lite/resource"
)

// ActionEnvelope is the flat serialized form of an Action used by the
// gateway, recordings, and journals.
type ActionEnvelope struct {
	Type         string                   `json:"type" yaml:"type"`
	Intersection IntersectionID           `json:"intersection,omitempty" yaml:"intersection,omitempty"`
	Edge         EdgeID                   `json:"edge,omitempty" yaml:"edge,omitempty"`
	Tile         TileID                   `json:"tile,omitempty" yaml:"tile,omitempty"`
	Victim       PlayerID                 `json:"victim,omitempty" yaml:"victim,omitempty"`
	Card         resource.DevelopmentCard `json:"card,omitempty" yaml:"card,omitempty"`
	Kind         resource.Kind            `json:"kind,omitempty" yaml:"kind,omitempty"`
	Give         resource.Kind            `json:"give,omitempty" yaml:"give,omitempty"`
	Get          resource.Kind            `json:"get,omitempty" yaml:"get,omitempty"`
	Resources    resource.Bundle          `json:"resources,omitempty" yaml:"resources,omitempty"`
	Offer        resource.Bundle          `json:"offer,omitempty" yaml:"offer,omitempty"`
	Request      resource.Bundle          `json:"request,omitempty" yaml:"request,omitempty"`
	Accepted     bool                     `json:"accepted,omitempty" yaml:"accepted,omitempty"`
}

func EncodeAction(a Action) ActionEnvelope {
	env := ActionEnvelope{Type: actionName(a)}
	switch v := a.(type) {
	case RollDice, BuyDevelopmentCard, EndTurn:
	case PlaceVillage:
		env.Intersection = v.At
	case PlaceRoad:
		env.Edge = v.At
	case UpgradeVillage:
		env.Intersection = v.At
	case PlayDevelopmentCard:
		env.Card = v.Card
		env.Kind = v.Kind
		env.Resources = v.Resources.Clone()
	case BankTrade:
		env.Give = v.Give
		env.Get = v.Get
	case OfferTrade:
		env.Offer = v.Offer.Clone()
		env.Request = v.Request.Clone()
	case AcceptTrade:
		env.Accepted = v.Accepted
	case SelectRobberTile:
		env.Tile = v.Tile
	case StealCard:
		env.Victim = v.Victim
		env.Kind = v.Resource
	case DropCards:
		env.Resources = v.Cards.Clone()
	}
	return env
}

func DecodeAction(env ActionEnvelope) (Action, error) {
	t, err := ParseActionType(env.Type)
	if err != nil {
		return nil, err
	}
	switch t {
	case ActionTypeRollDice:
		return RollDice{}, nil
	case ActionTypePlaceVillage:
		return PlaceVillage{At: env.Intersection}, nil
	case ActionTypePlaceRoad:
		return PlaceRoad{At: env.Edge}, nil
	case ActionTypeUpgradeVillage:
		return UpgradeVillage{At: env.Intersection}, nil
	case ActionTypeBuyDevelopmentCard:
		return BuyDevelopmentCard{}, nil
	case ActionTypePlayDevelopmentCard:
		return PlayDevelopmentCard{Card: env.Card, Kind: env.Kind, Resources: env.Resources.Clone()}, nil
	case ActionTypeBankTrade:
		return BankTrade{Give: env.Give, Get: env.Get}, nil
	case ActionTypeOfferTrade:
		return OfferTrade{Offer: env.Offer.Clone(), Request: env.Request.Clone()}, nil
	case ActionTypeAcceptTrade:
		return AcceptTrade{Accepted: env.Accepted}, nil
	case ActionTypeSelectRobberTile:
		return SelectRobberTile{Tile: env.Tile}, nil
	case ActionTypeStealCard:
		return StealCard{Victim: env.Victim, Resource: env.Kind}, nil
	case ActionTypeDropCards:
		return DropCards{Cards: env.Resources.Clone()}, nil
	case ActionTypeEndTurn:
		return EndTurn{}, nil
	}
	return nil, fmt.Errorf("unsupported action type %s", t)
}
