package settlers

// State holds the match outcome. The winner can be set once.
type State struct {
	winner  PlayerID
	winners []PlayerID
	set     bool
}

func (s *State) SetWinner(id PlayerID, all []PlayerID) error {
	if s.set {
		return ErrInvalidState("winner already set")
	}
	if id == NoPlayer {
		return ErrInvalidState("winner must be a seated player")
	}
	s.winner = id
	s.winners = append([]PlayerID(nil), all...)
	s.set = true
	return nil
}

func (s *State) Winner() (PlayerID, bool) { return s.winner, s.set }

// Winners is every player that met the victory condition when the match ended.
func (s *State) Winners() []PlayerID { return append([]PlayerID(nil), s.winners...) }
