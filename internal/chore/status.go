// Package chore classifies chores by where their next due date falls.
package chore

import (
	"time"

	"github.com/dukerupert/chorebridge/internal/model"
)

type Status string

const (
	StatusInactive    Status = "inactive"
	StatusUnscheduled Status = "unscheduled"
	StatusOverdue     Status = "overdue"
	StatusDueToday    Status = "due_today"
	StatusUpcoming    Status = "upcoming"
)

// ComputeStatus classifies a chore relative to now, with day boundaries
// taken in loc. A chore due earlier today is due today, not overdue.
func ComputeStatus(c model.Chore, now time.Time, loc *time.Location) Status {
	if !c.IsActive {
		return StatusInactive
	}
	if c.NextDueDate == nil {
		return StatusUnscheduled
	}
	if loc == nil {
		loc = time.UTC
	}
	today := startOfDay(now.In(loc))
	due := c.NextDueDate.In(loc)

	switch {
	case due.Before(today):
		return StatusOverdue
	case due.Before(today.AddDate(0, 0, 1)):
		return StatusDueToday
	default:
		return StatusUpcoming
	}
}

// Filter returns the chores whose status is one of want.
func Filter(chores []model.Chore, now time.Time, loc *time.Location, want ...Status) []model.Chore {
	out := make([]model.Chore, 0, len(chores))
	for _, c := range chores {
		s := ComputeStatus(c, now, loc)
		for _, w := range want {
			if s == w {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
