package recurrence

import (
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/chorebridge/internal/model"
)

// DefaultHour and DefaultMinute are used when no time of day can be parsed.
const (
	DefaultHour   = 12
	DefaultMinute = 0
)

var dayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var dayAbbrev = map[string]string{
	"sun": "sunday",
	"mon": "monday",
	"tue": "tuesday",
	"wed": "wednesday",
	"thu": "thursday",
	"fri": "friday",
	"sat": "saturday",
}

// ParseWeekday accepts a full weekday name or its three-letter abbreviation,
// in any case.
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if full, ok := dayAbbrev[s]; ok {
		s = full
	}
	wd, ok := dayNames[s]
	return wd, ok
}

// DayName returns the lowercase full name for an abbreviated or full
// weekday token.
func DayName(s string) (string, bool) {
	wd, ok := ParseWeekday(s)
	if !ok {
		return "", false
	}
	return strings.ToLower(wd.String()), true
}

// ParseClock reads the time of day from "HH:MM", "HH:MM:SS" or an RFC3339
// timestamp. For timestamps the clock is read in the timestamp's own offset.
func ParseClock(s string) (hour, minute int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.Hour(), t.Minute(), true
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// Location resolves the metadata timezone, falling back to def and then UTC.
func Location(meta *model.FrequencyMetadata, def *time.Location) *time.Location {
	if meta != nil && meta.Timezone != "" {
		if loc, err := time.LoadLocation(meta.Timezone); err == nil {
			return loc
		}
	}
	if def != nil {
		return def
	}
	return time.UTC
}

func clockFor(meta *model.FrequencyMetadata, legacyDueTime string) (int, int) {
	if meta != nil {
		if h, m, ok := ParseClock(meta.Time); ok {
			return h, m
		}
	}
	if h, m, ok := ParseClock(legacyDueTime); ok {
		return h, m
	}
	return DefaultHour, DefaultMinute
}

// NextDue computes the first due instant for a newly created chore. The
// result is in UTC. It never fails: unknown types, missing weekdays and
// unparseable times fall back to a day from now or to noon.
func NextDue(freq model.FrequencyType, meta *model.FrequencyMetadata, legacyDueTime string, now time.Time, defaultLoc *time.Location) time.Time {
	switch freq {
	case model.FrequencyDaysOfWeek:
		if meta == nil || len(meta.Days) == 0 {
			return tomorrow(now)
		}
		target, ok := ParseWeekday(meta.Days[0])
		if !ok {
			return tomorrow(now)
		}
		loc := Location(meta, defaultLoc)
		local := now.In(loc)
		hour, minute := clockFor(meta, legacyDueTime)

		daysAhead := (int(target) - int(local.Weekday()) + 7) % 7
		if daysAhead == 0 {
			today := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
			if !local.Before(today) {
				daysAhead = 7
			}
		}
		due := time.Date(local.Year(), local.Month(), local.Day()+daysAhead, hour, minute, 0, 0, loc)
		return due.UTC()

	case model.FrequencyDaily:
		loc := Location(meta, defaultLoc)
		local := now.In(loc)
		hour, minute := clockFor(meta, legacyDueTime)
		due := time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
		return due.UTC()

	default:
		return tomorrow(now)
	}
}

func tomorrow(now time.Time) time.Time {
	return now.UTC().Add(24 * time.Hour)
}
