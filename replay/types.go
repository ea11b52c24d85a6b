package replay

import (
	"settlers-lite/board"
	"settlers-lite/settlers"
)

const TapeVersion = 1

// Tape is everything needed to re-drive a match: the rules, the board, the
// seats and every action the orchestrator received, in order. Rejected and
// timeout fallback actions are part of the sequence.
type Tape struct {
	Version int             `json:"version"`
	Seed    int64           `json:"seed"`
	Config  settlers.Config `json:"config"`
	Layout  board.Layout    `json:"layout"`
	Players []PlayerSpec    `json:"players"`
	// Dice is the forced roll sequence of matches that ran with one.
	Dice    []int               `json:"dice,omitempty"`
	Steps   []Step              `json:"steps,omitempty"`
	Winners []settlers.PlayerID `json:"winners,omitempty"`
}

type PlayerSpec struct {
	ID    settlers.PlayerID `json:"id"`
	Name  string            `json:"name"`
	Color string            `json:"color,omitempty"`
	Robot bool              `json:"robot,omitempty"`
}

type Step struct {
	Player    settlers.PlayerID       `json:"player"`
	Objective settlers.Objective      `json:"objective"`
	Action    settlers.ActionEnvelope `json:"action"`
	Fallback  bool                    `json:"fallback,omitempty"`
}

// Result summarizes a replayed match.
type Result struct {
	Winner  settlers.PlayerID
	Winners []settlers.PlayerID
	Rounds  int
	Scores  map[settlers.PlayerID]int
	Steps   int
}
