package recurrence

import (
	"strings"
	"time"

	"github.com/dukerupert/chorebridge/internal/model"
)

// Safety limit to prevent infinite loops.
const maxIterations = 10000

// Schedule is the recurrence part of a chore.
type Schedule struct {
	Type      model.FrequencyType
	Frequency int
	Metadata  *model.FrequencyMetadata
	IsRolling bool
}

// ScheduleOf extracts the schedule of a chore.
func ScheduleOf(c model.Chore) Schedule {
	return Schedule{
		Type:      c.FrequencyType,
		Frequency: c.Frequency,
		Metadata:  c.FrequencyMetadata,
		IsRolling: c.IsRolling,
	}
}

// Advance returns the due date that follows a completion or skip at now.
// Rolling schedules count from now; fixed schedules count from the previous
// due date and keep stepping until the result is after now. ok is false for
// one-time chores, which have no next occurrence.
func Advance(s Schedule, prev *time.Time, now time.Time) (next time.Time, ok bool) {
	if s.Type == model.FrequencyOnce || !s.Type.IsValid() {
		return time.Time{}, false
	}
	interval := s.Frequency
	if interval < 1 {
		interval = 1
	}

	base := now
	if prev != nil && !s.IsRolling {
		base = *prev
	}
	loc := Location(s.Metadata, time.UTC)
	base = base.In(loc)

	var days []time.Weekday
	if s.Type == model.FrequencyDaysOfWeek && s.Metadata != nil {
		for _, d := range s.Metadata.Days {
			if wd, ok := ParseWeekday(d); ok {
				days = append(days, wd)
			}
		}
		if len(days) == 0 {
			return base.AddDate(0, 0, 7).UTC(), true
		}
	}

	cur := base
	for i := 0; i < maxIterations; i++ {
		cur = step(s, interval, days, base, cur)
		if cur.After(now) {
			return cur.UTC(), true
		}
	}
	return cur.UTC(), true
}

func step(s Schedule, interval int, days []time.Weekday, base, cur time.Time) time.Time {
	switch s.Type {
	case model.FrequencyDaily:
		return cur.AddDate(0, 0, interval)
	case model.FrequencyWeekly:
		return cur.AddDate(0, 0, 7*interval)
	case model.FrequencyMonthly:
		return addMonths(cur, interval, base.Day())
	case model.FrequencyYearly:
		return addYears(cur, interval, base)
	case model.FrequencyIntervalBased:
		return addUnit(cur, interval, unitOf(s.Metadata), base.Day())
	case model.FrequencyDaysOfWeek:
		return nextWeekday(cur, days)
	}
	return cur.AddDate(0, 0, 1)
}

func unitOf(meta *model.FrequencyMetadata) string {
	if meta == nil || meta.Unit == "" {
		return "days"
	}
	return strings.ToLower(meta.Unit)
}

func addUnit(t time.Time, n int, unit string, anchorDay int) time.Time {
	switch unit {
	case "hour", "hours":
		return t.Add(time.Duration(n) * time.Hour)
	case "week", "weeks":
		return t.AddDate(0, 0, 7*n)
	case "month", "months":
		return addMonths(t, n, anchorDay)
	case "year", "years":
		return t.AddDate(n, 0, 0)
	}
	return t.AddDate(0, 0, n)
}

// nextWeekday returns the first day after t that falls on one of days, at
// t's clock time.
func nextWeekday(t time.Time, days []time.Weekday) time.Time {
	for offset := 1; offset <= 7; offset++ {
		candidate := time.Date(t.Year(), t.Month(), t.Day()+offset, t.Hour(), t.Minute(), t.Second(), 0, t.Location())
		for _, d := range days {
			if candidate.Weekday() == d {
				return candidate
			}
		}
	}
	return t.AddDate(0, 0, 7)
}

// addMonths moves n months forward and clamps to the last day of the month
// when the anchor day does not exist there.
func addMonths(t time.Time, n, anchorDay int) time.Time {
	year, month := t.Year(), t.Month()+time.Month(n)
	first := time.Date(year, month, 1, 0, 0, 0, 0, t.Location())
	day := anchorDay
	if last := daysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), 0, t.Location())
}

// addYears handles Feb 29 by falling back to Feb 28 in non-leap years.
func addYears(t time.Time, n int, base time.Time) time.Time {
	if base.Month() == time.February && base.Day() == 29 {
		return addMonths(t, 12*n, 29)
	}
	return t.AddDate(n, 0, 0)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
