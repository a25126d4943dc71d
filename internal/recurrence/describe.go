package recurrence

import (
	"fmt"
	"strings"

	"github.com/dukerupert/chorebridge/internal/model"
)

// Describe returns a human-readable description of the schedule.
func Describe(s Schedule) string {
	n := s.Frequency
	if n < 1 {
		n = 1
	}
	switch s.Type {
	case model.FrequencyOnce:
		return "Once"
	case model.FrequencyDaily:
		if n > 1 {
			return fmt.Sprintf("Every %d days", n)
		}
		return "Daily"
	case model.FrequencyWeekly:
		if n == 2 {
			return "Every 2 weeks"
		} else if n > 2 {
			return fmt.Sprintf("Every %d weeks", n)
		}
		return "Weekly"
	case model.FrequencyMonthly:
		if n > 1 {
			return fmt.Sprintf("Every %d months", n)
		}
		return "Monthly"
	case model.FrequencyYearly:
		if n > 1 {
			return fmt.Sprintf("Every %d years", n)
		}
		return "Yearly"
	case model.FrequencyIntervalBased:
		return fmt.Sprintf("Every %d %s", n, unitOf(s.Metadata))
	case model.FrequencyDaysOfWeek:
		if s.Metadata == nil || len(s.Metadata.Days) == 0 {
			return "Weekly"
		}
		var names []string
		for _, d := range s.Metadata.Days {
			if wd, ok := ParseWeekday(d); ok {
				names = append(names, wd.String()[:3])
			}
		}
		return "Weekly on " + strings.Join(names, ", ")
	}
	return string(s.Type)
}
