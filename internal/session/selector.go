package session

import "github.com/desertthunder/onair/internal/models"

// SelectProgram picks the schedule the session should follow.
//
// Only schedules accepted by own are considered. The first test or onAir entry wins;
// otherwise the not-ended entry with the earliest OnAirBeginAt, first occurrence on ties.
// Returns nil when nothing qualifies.
func SelectProgram(schedules []models.Schedule, own func(models.Schedule) bool) *models.Schedule {
	var candidates []models.Schedule
	for _, s := range schedules {
		if own == nil || own(s) {
			candidates = append(candidates, s)
		}
	}

	for _, s := range candidates {
		if s.Status == models.StatusTest || s.Status == models.StatusOnAir {
			selected := s
			return &selected
		}
	}

	var earliest *models.Schedule
	for i := range candidates {
		s := candidates[i]
		if s.Status == models.StatusEnd {
			continue
		}
		if earliest == nil || s.OnAirBeginAt < earliest.OnAirBeginAt {
			earliest = &candidates[i]
		}
	}
	if earliest == nil {
		return nil
	}
	selected := *earliest
	return &selected
}
