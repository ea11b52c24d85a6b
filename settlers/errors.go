package settlers

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrProtocolViolation     = errors.New("protocol violation")
	ErrInsufficientResources = errors.New("insufficient resources")
	ErrSetupPrecondition     = errors.New("setup precondition failed")
	ErrGateClosed            = errors.New("turn gate closed")
	ErrActionTimeout         = errors.New("action timed out")
	ErrGameOver              = errors.New("game over")
)

type InvalidStateError string

func (e InvalidStateError) Error() string { return "invalid state: " + string(e) }

func ErrInvalidState(msg string) error { return InvalidStateError(msg) }

// InvalidActionError rejects an action whose payload cannot be applied in the current state.
type InvalidActionError struct {
	Action string
	Reason string
	Err    error
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Action, e.Reason)
}

func (e *InvalidActionError) Unwrap() error { return e.Err }

func invalidAction(a Action, format string, args ...any) error {
	return &InvalidActionError{Action: actionName(a), Reason: fmt.Sprintf(format, args...)}
}

func insufficient(a Action, p *Player, need fmt.Stringer) error {
	return &InvalidActionError{
		Action: actionName(a),
		Reason: fmt.Sprintf("player %d cannot pay %v", p.ID, need),
		Err:    ErrInsufficientResources,
	}
}

// fatal errors end a wait instead of being reported back to the submitting agent.
func fatal(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrGateClosed) ||
		errors.Is(err, ErrActionTimeout)
}
