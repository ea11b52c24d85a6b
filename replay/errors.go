package replay

import (
	"fmt"

	"settlers-lite/settlers"
)

// ReplayError reports where and why a tape stopped matching the match it drives.
// StepIndex is -1 for problems found before the first step.
type ReplayError struct {
	StepIndex int32          `json:"step_index"`
	Reason    string         `json:"reason"`
	Message   string         `json:"message"`
	Expected  *ExpectedState `json:"expected,omitempty"`
}

// ExpectedState is what the match was actually waiting for.
type ExpectedState struct {
	Player    settlers.PlayerID  `json:"player"`
	Objective settlers.Objective `json:"objective"`
}

func (e *ReplayError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("replay error(step=%d reason=%s): %s", e.StepIndex, e.Reason, e.Message)
}
