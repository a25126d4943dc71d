package transform

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/dukerupert/chorebridge/internal/model"
	"github.com/dukerupert/chorebridge/internal/recurrence"
)

// DefaultPoints is awarded to imported chores that do not set points.
const DefaultPoints = 10

// ErrMissingName is returned for a record without a usable name.
var ErrMissingName = errors.New("record has no name")

// MappingWarning records a value that could not be resolved. The chore is
// still created without it.
type MappingWarning struct {
	Chore   string
	Field   string
	Value   string
	Message string
}

func (w MappingWarning) String() string {
	return fmt.Sprintf("%s: %s %q: %s", w.Chore, w.Field, w.Value, w.Message)
}

// UserMap builds a name to user ID table from circle members. Both the
// display name and the username resolve; the display name wins a collision.
func UserMap(members []model.CircleMember) map[string]int {
	m := make(map[string]int, 2*len(members))
	for _, mem := range members {
		if mem.Username != "" {
			m[mem.Username] = mem.UserID
		}
	}
	for _, mem := range members {
		if mem.DisplayName != "" {
			m[mem.DisplayName] = mem.UserID
		}
	}
	return m
}

// LabelMap builds a case-insensitive label name to ID table.
func LabelMap(labels []model.Label) map[string]int {
	m := make(map[string]int, len(labels))
	for _, l := range labels {
		m[labelKey(l.Name)] = l.ID
	}
	return m
}

func labelKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Transformer converts import records into creation payloads.
type Transformer struct {
	Users    map[string]int
	Labels   map[string]int
	Location *time.Location
	Now      func() time.Time
}

// New returns a transformer for the given lookups. A nil loc means UTC.
func New(members []model.CircleMember, labels []model.Label, loc *time.Location) *Transformer {
	if loc == nil {
		loc = time.UTC
	}
	return &Transformer{
		Users:    UserMap(members),
		Labels:   LabelMap(labels),
		Location: loc,
		Now:      time.Now,
	}
}

func (t *Transformer) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *Transformer) loc() *time.Location {
	if t.Location != nil {
		return t.Location
	}
	return time.UTC
}

// Transform converts one record. Unresolved users and labels are dropped
// and reported as warnings. A structural problem fails the record.
func (t *Transformer) Transform(rec Record) (model.ChoreCreate, []MappingWarning, error) {
	name := model.SanitizeText(rec.Name)
	if name == "" {
		return model.ChoreCreate{}, nil, ErrMissingName
	}
	var warnings []MappingWarning
	warn := func(field, value, msg string) {
		warnings = append(warnings, MappingWarning{Chore: name, Field: field, Value: value, Message: msg})
	}

	now := t.now()

	meta, err := t.frequencyMetadata(rec.FrequencyMetadata, now, warn)
	if err != nil {
		return model.ChoreCreate{}, warnings, fmt.Errorf("%s: %w", name, err)
	}

	freq := model.FrequencyType(strings.ToLower(strings.TrimSpace(rec.FrequencyType)))
	if freq == "" {
		freq = model.FrequencyOnce
	}
	if len(rec.FrequencyMetadata.DaysOfWeek) > 0 {
		freq = model.FrequencyDaysOfWeek
	}

	due := recurrence.NextDue(freq, meta, rec.FrequencyMetadata.DueTime, now, t.loc())

	cc := model.NewChoreCreate(name)
	cc.Description = rec.DescriptionHTML
	cc.DueDate = due.Format(time.RFC3339)
	cc.FrequencyType = freq
	cc.Frequency = rec.Frequency
	cc.FrequencyMetadata = meta
	cc.IsRolling = rec.IsRolling
	cc.Priority = rec.Priority
	cc.Labels = rec.Labels
	if rec.AssignStrategy != "" {
		cc.AssignStrategy = model.AssignStrategy(rec.AssignStrategy)
	}
	points := DefaultPoints
	if rec.Points != nil {
		points = *rec.Points
	}
	cc.Points = &points

	cc.AssignedTo, cc.Assignees = t.assignees(rec.Assignees, warn)
	cc.LabelsV2 = t.labels(rec.Labels, warn)
	cc.SubTasks = SubTasks(rec.SubTasks)

	cc.NotificationMetadata = Notifications(rec.NotificationMetadata)
	if rec.Notification != nil {
		cc.Notification = *rec.Notification
	} else {
		cc.Notification = len(cc.NotificationMetadata.Templates) > 0
	}

	if err := cc.Normalize(); err != nil {
		return model.ChoreCreate{}, warnings, fmt.Errorf("%s: %w", name, err)
	}
	return cc, warnings, nil
}

// frequencyMetadata expands weekday abbreviations and anchors the due time
// to today in the transformer's timezone. It returns nil when the record
// has no recurrence details.
func (t *Transformer) frequencyMetadata(in FrequencyInput, now time.Time, warn func(field, value, msg string)) (*model.FrequencyMetadata, error) {
	if in.empty() {
		return nil, nil
	}
	loc := t.loc()
	meta := &model.FrequencyMetadata{}

	if len(in.DaysOfWeek) > 0 {
		for _, d := range in.DaysOfWeek {
			day, ok := recurrence.DayName(d)
			if !ok {
				return nil, fmt.Errorf("unknown weekday %q", d)
			}
			meta.Days = append(meta.Days, day)
		}
		meta.Unit = "days"
		meta.Timezone = loc.String()
		meta.WeekPattern = "every_week"
	}

	if in.DueTime != "" {
		if h, m, ok := recurrence.ParseClock(in.DueTime); ok {
			local := now.In(loc)
			at := time.Date(local.Year(), local.Month(), local.Day(), h, m, 0, 0, loc)
			meta.Time = at.Format(time.RFC3339)
		} else {
			warn("dueTime", in.DueTime, "not HH:MM, using 12:00")
		}
	}

	if in.DurationMinutes != nil {
		d := *in.DurationMinutes
		meta.DurationMinutes = &d
	}
	return meta, nil
}

func (t *Transformer) assignees(usernames []string, warn func(field, value, msg string)) (*int, []model.Assignee) {
	var assignees []model.Assignee
	for _, u := range usernames {
		id, ok := t.lookupUser(u)
		if !ok {
			warn("assignees_usernames", u, "unknown user")
			continue
		}
		assignees = append(assignees, model.Assignee{UserID: id})
	}
	if len(assignees) == 0 {
		return nil, nil
	}
	primary := assignees[0].UserID
	return &primary, assignees
}

func (t *Transformer) lookupUser(name string) (int, bool) {
	name = strings.TrimSpace(name)
	if id, ok := t.Users[name]; ok {
		return id, true
	}
	// Keys are scanned in sorted order so names that differ only by case
	// always resolve to the same user.
	for _, k := range slices.Sorted(maps.Keys(t.Users)) {
		if strings.EqualFold(k, name) {
			return t.Users[k], true
		}
	}
	return 0, false
}

func (t *Transformer) labels(names []string, warn func(field, value, msg string)) []model.LabelRef {
	var refs []model.LabelRef
	for _, n := range names {
		id, ok := t.Labels[labelKey(n)]
		if !ok {
			warn("labels", n, "unknown label")
			continue
		}
		refs = append(refs, model.LabelRef{ID: id})
	}
	return refs
}

// Notifications turns an offset in minutes into reminder templates. A
// non-zero offset becomes one template; remindAtDueTime adds a zero-offset
// one. The template list is never nil.
func Notifications(in NotificationInput) *model.NotificationMetadata {
	meta := &model.NotificationMetadata{Templates: []model.NotificationTemplate{}}
	if in.OffsetMinutes != 0 {
		meta.Templates = append(meta.Templates, model.NotificationTemplate{Value: in.OffsetMinutes, Unit: "m"})
	}
	if in.RemindAtDueTime {
		meta.Templates = append(meta.Templates, model.NotificationTemplate{Value: 0, Unit: "m"})
	}
	return meta
}

// SubTasks numbers plain checklist entries in order.
func SubTasks(names []string) []model.SubTask {
	if len(names) == 0 {
		return nil
	}
	tasks := make([]model.SubTask, len(names))
	for i, n := range names {
		tasks[i] = model.SubTask{OrderID: i, Name: n}
	}
	return tasks
}
