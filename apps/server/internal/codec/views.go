package codec

import (
	"settlers-lite/resource"
	"settlers-lite/settlers"
)

type Welcome struct {
	UserID       uint64 `json:"user_id"`
	Username     string `json:"username"`
	SessionToken string `json:"session_token,omitempty"`
	Guest        bool   `json:"guest"`
}

type Error struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

type PlayerView struct {
	ID        uint64             `json:"id"`
	Name      string             `json:"name"`
	Color     string             `json:"color"`
	Robot     bool               `json:"robot"`
	Objective settlers.Objective `json:"objective"`

	// Resources and DevelopmentCards are only set for the viewer.
	Resources        resource.Bundle                  `json:"resources,omitempty"`
	TotalResources   int                              `json:"total_resources"`
	DevelopmentCards map[resource.DevelopmentCard]int `json:"development_cards,omitempty"`
	TotalDevCards    int                              `json:"total_development_cards"`
	PlayedCards      map[resource.DevelopmentCard]int `json:"played_cards,omitempty"`

	Roads    int `json:"roads"`
	Villages int `json:"villages"`
	Cities   int `json:"cities"`
	Score    int `json:"score"`
}

type SnapshotView struct {
	Round        int          `json:"round"`
	Dice         int          `json:"dice"`
	ActivePlayer uint64       `json:"active_player"`
	Started      bool         `json:"started"`
	Ended        bool         `json:"ended"`
	RobberTile   string       `json:"robber_tile"`
	LargestArmy  uint64       `json:"largest_army,omitempty"`
	LongestRoad  uint64       `json:"longest_road,omitempty"`
	Winner       uint64       `json:"winner,omitempty"`
	Players      []PlayerView `json:"players"`
}

// SnapshotToView redacts s for viewer and flattens it for the wire.
func SnapshotToView(s settlers.Snapshot, viewer settlers.PlayerID) SnapshotView {
	s = s.Redact(viewer)
	v := SnapshotView{
		Round:        s.Round,
		Dice:         s.Dice,
		ActivePlayer: uint64(s.ActivePlayer),
		Started:      s.Started,
		Ended:        s.Ended,
		RobberTile:   string(s.RobberTile),
		LargestArmy:  uint64(s.LargestArmy),
		LongestRoad:  uint64(s.LongestRoad),
		Winner:       uint64(s.Winner),
		Players:      make([]PlayerView, 0, len(s.Players)),
	}
	for _, p := range s.Players {
		v.Players = append(v.Players, PlayerView{
			ID:               uint64(p.ID),
			Name:             p.Name,
			Color:            p.Color,
			Robot:            p.Robot,
			Objective:        p.Objective,
			Resources:        p.Resources,
			TotalResources:   p.TotalResources,
			DevelopmentCards: p.DevelopmentCards,
			TotalDevCards:    p.TotalDevCards,
			PlayedCards:      p.PlayedCards,
			Roads:            p.Roads,
			Villages:         p.Villages,
			Cities:           p.Cities,
			Score:            p.Score,
		})
	}
	return v
}

type OfferView struct {
	From    uint64          `json:"from"`
	Offer   resource.Bundle `json:"offer"`
	Request resource.Bundle `json:"request"`
}

type PromptView struct {
	Objective   settlers.Objective `json:"objective"`
	Seq         uint64             `json:"seq"`
	Accepts     []string           `json:"accepts,omitempty"`
	Offer       *OfferView         `json:"offer,omitempty"`
	CardsToDrop int                `json:"cards_to_drop,omitempty"`
	Rejected    string             `json:"rejected,omitempty"`
}

func PromptToView(p settlers.Prompt) PromptView {
	v := PromptView{
		Objective:   p.Objective,
		Seq:         p.Seq,
		CardsToDrop: p.CardsToDrop,
		Rejected:    p.Rejected,
	}
	for _, t := range settlers.AcceptedActions(p.Objective) {
		v.Accepts = append(v.Accepts, t.String())
	}
	if p.Offer != nil {
		v.Offer = &OfferView{From: uint64(p.Offer.From), Offer: p.Offer.Offer, Request: p.Offer.Request}
	}
	return v
}

// EventView is the public form of an orchestrator event.
type EventView struct {
	Kind      string                     `json:"kind"`
	Round     int                        `json:"round"`
	Player    uint64                     `json:"player,omitempty"`
	Objective settlers.Objective         `json:"objective,omitempty"`
	Dice      int                        `json:"dice,omitempty"`
	Action    *settlers.ActionEnvelope   `json:"action,omitempty"`
	Fallback  bool                       `json:"fallback,omitempty"`
	Error     string                     `json:"error,omitempty"`
	Offer     *OfferView                 `json:"offer,omitempty"`
	Partner   uint64                     `json:"partner,omitempty"`
	Gains     map[uint64]resource.Bundle `json:"gains,omitempty"`
	Winners   []uint64                   `json:"winners,omitempty"`
}

func EventToView(e settlers.Event) EventView {
	v := EventView{
		Kind:      e.Kind.String(),
		Round:     e.Round,
		Player:    uint64(e.Player),
		Objective: e.Objective,
		Dice:      e.Dice,
		Fallback:  e.Fallback,
		Partner:   uint64(e.Partner),
	}
	if e.Action != nil {
		env := settlers.EncodeAction(e.Action)
		v.Action = &env
	}
	if e.Err != nil {
		v.Error = e.Err.Error()
	}
	if e.Offer != nil {
		v.Offer = &OfferView{From: uint64(e.Offer.From), Offer: e.Offer.Offer, Request: e.Offer.Request}
	}
	if len(e.Gains) > 0 {
		v.Gains = make(map[uint64]resource.Bundle, len(e.Gains))
		for id, b := range e.Gains {
			v.Gains[uint64(id)] = b
		}
	}
	for _, w := range e.Winners {
		v.Winners = append(v.Winners, uint64(w))
	}
	return v
}

type SeatView struct {
	PlayerID uint64 `json:"player_id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Robot    bool   `json:"robot"`
	Online   bool   `json:"online"`
}

type SeatsView struct {
	Seats      []SeatView `json:"seats"`
	MinPlayers int        `json:"min_players"`
	MaxPlayers int        `json:"max_players"`
	Started    bool       `json:"started"`
}

type ScoreView struct {
	PlayerID uint64 `json:"player_id"`
	Score    int    `json:"score"`
}

type MatchEndView struct {
	MatchID string      `json:"match_id"`
	Outcome string      `json:"outcome"`
	Winner  uint64      `json:"winner,omitempty"`
	Winners []uint64    `json:"winners,omitempty"`
	Rounds  int         `json:"rounds"`
	Scores  []ScoreView `json:"scores"`
}

type TableInfo struct {
	ID      string `json:"id"`
	Seated  int    `json:"seated"`
	Max     int    `json:"max"`
	Started bool   `json:"started"`
}
