package session

import (
	"time"

	"github.com/desertthunder/onair/internal/models"
)

const (
	// MaxProgramDurationSeconds is the longest a program may run; extension stops below it.
	MaxProgramDurationSeconds = 6 * 60 * 60
	// AutoExtensionLead is how long before the end the automatic extension runs.
	AutoExtensionLead = 5 * time.Minute
)

// CanExtend reports whether the program is on air and still below the maximum duration.
func CanExtend(s models.ProgramState) bool {
	return s.Status == models.StatusOnAir && s.EndTime-s.StartTime < MaxProgramDurationSeconds
}

func shouldAutoExtend(s models.ProgramState) bool {
	return s.AutoExtensionEnabled && CanExtend(s)
}

// AutoExtensionAction decides when to extend automatically after a commit.
//
// now must already be corrected onto the server clock.
func AutoExtensionAction(prev *models.ProgramState, next models.ProgramState, now time.Time) TimerAction {
	prevRun := prev != nil && shouldAutoExtend(*prev)
	nextRun := shouldAutoExtend(next)

	if nextRun && (!prevRun || prev.EndTime != next.EndTime) {
		delay := time.Unix(next.EndTime, 0).Add(-AutoExtensionLead).Sub(now)
		if delay <= 0 {
			return TimerAction{Kind: ActionRunNow}
		}
		return TimerAction{Kind: ActionArm, Delay: delay, Target: next.EndTime}
	}
	if prevRun && !nextRun {
		return TimerAction{Kind: ActionClear}
	}
	return TimerAction{}
}
