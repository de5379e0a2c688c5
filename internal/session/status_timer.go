package session

import (
	"time"

	"github.com/desertthunder/onair/internal/models"
)

const (
	// statusTimerSlack delays the refresh past the projected transition.
	statusTimerSlack = 3 * time.Second
	// readyTimeAdjustmentSeconds pulls the first refresh of a distant reservation forward.
	readyTimeAdjustmentSeconds = 30 * 60
)

// governingTime returns the field whose arrival changes the given status.
func governingTime(status models.Status) func(models.ProgramState) int64 {
	switch status {
	case models.StatusReserved, models.StatusTest:
		return func(s models.ProgramState) int64 { return s.StartTime }
	case models.StatusOnAir:
		return func(s models.ProgramState) int64 { return s.EndTime }
	}
	return nil
}

// StatusTimerAction decides how to reschedule the status refresh after a commit.
//
// now must already be corrected onto the server clock.
func StatusTimerAction(prev *models.ProgramState, next models.ProgramState, now time.Time) TimerAction {
	if next.Status == models.StatusEnd {
		if prev != nil && prev.Status != models.StatusEnd {
			return TimerAction{Kind: ActionClear}
		}
		return TimerAction{}
	}

	field := governingTime(next.Status)
	if field == nil {
		return TimerAction{}
	}

	var adjustment int64
	if next.Status == models.StatusReserved &&
		time.Unix(next.StartTime, 0).Sub(now) > readyTimeAdjustmentSeconds*time.Second {
		adjustment = -readyTimeAdjustmentSeconds
	}
	target := field(next) + adjustment

	rearm := prev == nil ||
		prev.ProgramID != next.ProgramID ||
		prev.Status != next.Status ||
		field(*prev) != target ||
		next.Status == models.StatusReserved
	if !rearm {
		return TimerAction{}
	}

	return TimerAction{
		Kind:   ActionArm,
		Target: target,
		Delay:  time.Unix(target, 0).Add(statusTimerSlack).Sub(now),
	}
}
