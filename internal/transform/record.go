package transform

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// FrequencyInput is the short recurrence syntax of the import file.
type FrequencyInput struct {
	DaysOfWeek      []string `json:"daysOfWeek"`
	DueTime         string   `json:"dueTime"`
	DurationMinutes *int     `json:"durationMinutes"`
}

func (f FrequencyInput) empty() bool {
	return len(f.DaysOfWeek) == 0 && f.DueTime == "" && f.DurationMinutes == nil
}

// NotificationInput is the offset-based reminder syntax of the import file.
type NotificationInput struct {
	OffsetMinutes   int  `json:"offsetMinutes"`
	RemindAtDueTime bool `json:"remindAtDueTime"`
}

// Record is one chore in the import file.
type Record struct {
	Name                 string            `json:"name"`
	DescriptionHTML      string            `json:"description_html"`
	FrequencyType        string            `json:"frequencyType"`
	Frequency            int               `json:"frequency"`
	FrequencyMetadata    FrequencyInput    `json:"frequencyMetadata_json"`
	NotificationMetadata NotificationInput `json:"notificationMetadata_json"`
	SubTasks             []string          `json:"subTasks_json"`
	Assignees            []string          `json:"assignees_usernames"`
	Labels               []string          `json:"labels"`
	IsRolling            bool              `json:"isRolling"`
	Priority             int               `json:"priority"`
	AssignStrategy       string            `json:"assignStrategy"`
	Notification         *bool             `json:"notification"`
	Points               *int              `json:"points"`
}

// Entry is a record from the file along with its decode error, if any.
type Entry struct {
	Index  int
	Name   string
	Record Record
	Err    error
}

// ErrNoChores is returned when the file has no chores array.
var ErrNoChores = errors.New(`import file has no "chores" array`)

// ParseFile reads an import file. Comments are stripped first. Each record
// is decoded on its own so a malformed record only fails itself.
func ParseFile(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}

	var doc struct {
		Chores []json.RawMessage `json:"chores"`
	}
	if err := json.Unmarshal(StripComments(data), &doc); err != nil {
		return nil, fmt.Errorf("parse import file: %w", err)
	}
	if doc.Chores == nil {
		return nil, ErrNoChores
	}

	entries := make([]Entry, len(doc.Chores))
	for i, raw := range doc.Chores {
		e := Entry{Index: i}
		if err := json.Unmarshal(raw, &e.Record); err != nil {
			e.Err = fmt.Errorf("record %d: %w", i, err)
			e.Name = nameOf(raw)
		} else {
			e.Name = e.Record.Name
		}
		entries[i] = e
	}
	return entries, nil
}

// nameOf pulls the name out of a record that failed to decode.
func nameOf(raw json.RawMessage) string {
	var v struct {
		Name any `json:"name"`
	}
	if json.Unmarshal(raw, &v) != nil {
		return ""
	}
	if s, ok := v.Name.(string); ok {
		return s
	}
	return ""
}

// StripComments removes // line comments and /* */ block comments that
// are outside string literals. Newlines inside block comments are kept so
// decode errors still point at the right line.
func StripComments(data []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(data))

	inString, escaped := false, false
	for i := 0; i < len(data); i++ {
		ch := data[i]
		if inString {
			out.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}
		if ch == '/' && i+1 < len(data) {
			switch data[i+1] {
			case '/':
				for i < len(data) && data[i] != '\n' {
					i++
				}
				if i < len(data) {
					out.WriteByte('\n')
				}
				continue
			case '*':
				i += 2
				for i < len(data) && !(data[i] == '*' && i+1 < len(data) && data[i+1] == '/') {
					if data[i] == '\n' {
						out.WriteByte('\n')
					}
					i++
				}
				i++ // skip the closing '/'
				out.WriteByte(' ')
				continue
			}
		}
		out.WriteByte(ch)
	}
	return out.Bytes()
}
