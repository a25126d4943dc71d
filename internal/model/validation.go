package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxNameLength        = 200
	MaxDescriptionLength = 5000
	MinPriority          = 1
	MaxPriority          = 5
)

// FieldError describes one invalid field. Field is the wire name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// ValidationError collects every problem found in a payload.
type ValidationError struct {
	Problems []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Problems = append(e.Problems, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// HasField reports whether a problem was recorded for the given wire field.
func (e *ValidationError) HasField(field string) bool {
	for _, p := range e.Problems {
		if p.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) errOrNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// SanitizeText removes control characters other than newline, carriage
// return and tab, then trims surrounding whitespace.
func SanitizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// ValidatePriority checks that p is within the 1-5 range.
func ValidatePriority(p int) error {
	if p < MinPriority || p > MaxPriority {
		return &ValidationError{Problems: []FieldError{{
			Field:   "priority",
			Message: fmt.Sprintf("must be between %d and %d, got %d", MinPriority, MaxPriority, p),
		}}}
	}
	return nil
}

var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDueDate accepts RFC3339, a local datetime or a bare date. Values
// without an offset are read as UTC.
func ParseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: want RFC3339 or YYYY-MM-DD", s)
}

// Normalize sanitizes text fields, lowercases enums, applies defaults and
// validates the result. The returned error is a *ValidationError.
func (c *ChoreCreate) Normalize() error {
	v := &ValidationError{}

	c.Name = SanitizeText(c.Name)
	switch n := utf8.RuneCountInString(c.Name); {
	case n == 0:
		v.add("name", "must not be empty")
	case n > MaxNameLength:
		v.add("name", "must be at most %d characters, got %d", MaxNameLength, n)
	}

	c.Description = SanitizeText(c.Description)
	if n := utf8.RuneCountInString(c.Description); n > MaxDescriptionLength {
		v.add("description", "must be at most %d characters, got %d", MaxDescriptionLength, n)
	}

	c.FrequencyType = FrequencyType(strings.ToLower(strings.TrimSpace(string(c.FrequencyType))))
	if c.FrequencyType == "" {
		c.FrequencyType = FrequencyOnce
	}
	if !c.FrequencyType.IsValid() {
		v.add("frequencyType", "unknown value %q", c.FrequencyType)
	}

	if c.Frequency == 0 {
		c.Frequency = 1
	}
	if c.Frequency < 1 {
		v.add("frequency", "must be positive, got %d", c.Frequency)
	}

	c.AssignStrategy = AssignStrategy(strings.ToLower(strings.TrimSpace(string(c.AssignStrategy))))
	if c.AssignStrategy == "" {
		c.AssignStrategy = AssignLeastCompleted
	}
	if !c.AssignStrategy.IsValid() {
		v.add("assignStrategy", "unknown value %q", c.AssignStrategy)
	}

	if c.Priority != 0 && (c.Priority < MinPriority || c.Priority > MaxPriority) {
		v.add("priority", "must be between %d and %d, got %d", MinPriority, MaxPriority, c.Priority)
	}

	if c.Points != nil && *c.Points < 0 {
		v.add("points", "must not be negative, got %d", *c.Points)
	}

	if c.DueDate != "" {
		if _, err := ParseDueDate(c.DueDate); err != nil {
			v.add("dueDate", "%v", err)
		}
	}

	for i := range c.SubTasks {
		c.SubTasks[i].Name = SanitizeText(c.SubTasks[i].Name)
		if c.SubTasks[i].Name == "" {
			v.add("subTasks", "entry %d has an empty name", i)
		}
	}

	return v.errOrNil()
}

// Normalize sanitizes and validates the fields that are set.
func (u *ChoreUpdate) Normalize() error {
	v := &ValidationError{}
	if u.Name != nil {
		name := SanitizeText(*u.Name)
		u.Name = &name
		switch n := utf8.RuneCountInString(name); {
		case n == 0:
			v.add("name", "must not be empty")
		case n > MaxNameLength:
			v.add("name", "must be at most %d characters, got %d", MaxNameLength, n)
		}
	}
	if u.Description != nil {
		desc := SanitizeText(*u.Description)
		u.Description = &desc
		if n := utf8.RuneCountInString(desc); n > MaxDescriptionLength {
			v.add("description", "must be at most %d characters, got %d", MaxDescriptionLength, n)
		}
	}
	if u.NextDueDate != nil {
		t, err := ParseDueDate(*u.NextDueDate)
		if err != nil {
			v.add("nextDueDate", "%v", err)
		} else {
			s := t.UTC().Format(time.RFC3339)
			u.NextDueDate = &s
		}
	}
	if u.Name == nil && u.Description == nil && u.NextDueDate == nil {
		v.add("update", "no fields to update")
	}
	return v.errOrNil()
}
