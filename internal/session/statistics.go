package session

import (
	"time"

	"github.com/desertthunder/onair/internal/models"
)

// DefaultStatisticsInterval is the polling period while a program is on air.
const DefaultStatisticsInterval = 60 * time.Second

// StatisticsAction starts polling on entering onAir (or switching programs while on air)
// and stops it on leaving onAir.
func StatisticsAction(prev *models.ProgramState, next models.ProgramState) TimerAction {
	wasOnAir := prev != nil && prev.Status == models.StatusOnAir
	isOnAir := next.Status == models.StatusOnAir

	switch {
	case isOnAir && (!wasOnAir || prev.ProgramID != next.ProgramID):
		return TimerAction{Kind: ActionArm}
	case wasOnAir && !isOnAir:
		return TimerAction{Kind: ActionClear}
	}
	return TimerAction{}
}
