package session

import "time"

// ActionKind tells the controller what to do with a timer after a commit.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionClear
	ActionArm
	ActionRunNow
)

func (k ActionKind) String() string {
	switch k {
	case ActionClear:
		return "clear"
	case ActionArm:
		return "arm"
	case ActionRunNow:
		return "run_now"
	default:
		return "none"
	}
}

// TimerAction is the outcome of comparing two consecutive states for one timer.
//
// Arm always implies clearing the previous handle first.
type TimerAction struct {
	Kind ActionKind
	// Delay until the timer fires, for ActionArm.
	Delay time.Duration
	// Target is the epoch second the status timer is aiming at.
	Target int64
}
