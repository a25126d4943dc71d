package model

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// FrequencyType is how often a chore recurs.
type FrequencyType string

const (
	FrequencyOnce          FrequencyType = "once"
	FrequencyDaily         FrequencyType = "daily"
	FrequencyWeekly        FrequencyType = "weekly"
	FrequencyMonthly       FrequencyType = "monthly"
	FrequencyYearly        FrequencyType = "yearly"
	FrequencyIntervalBased FrequencyType = "interval_based"
	FrequencyDaysOfWeek    FrequencyType = "days_of_the_week"
)

// ValidFrequencyTypes returns all valid frequency types.
func ValidFrequencyTypes() []FrequencyType {
	return []FrequencyType{
		FrequencyOnce, FrequencyDaily, FrequencyWeekly, FrequencyMonthly,
		FrequencyYearly, FrequencyIntervalBased, FrequencyDaysOfWeek,
	}
}

// IsValid returns true if the frequency type is a known value.
func (f FrequencyType) IsValid() bool {
	for _, v := range ValidFrequencyTypes() {
		if f == v {
			return true
		}
	}
	return false
}

// AssignStrategy decides who gets the chore after each completion.
type AssignStrategy string

const (
	AssignLeastCompleted AssignStrategy = "least_completed"
	AssignRoundRobin     AssignStrategy = "round_robin"
	AssignRandom         AssignStrategy = "random"
)

// ValidAssignStrategies returns all valid assignment strategies.
func ValidAssignStrategies() []AssignStrategy {
	return []AssignStrategy{AssignLeastCompleted, AssignRoundRobin, AssignRandom}
}

// IsValid returns true if the strategy is a known value.
func (s AssignStrategy) IsValid() bool {
	for _, v := range ValidAssignStrategies() {
		if s == v {
			return true
		}
	}
	return false
}

type Assignee struct {
	UserID int `json:"userId"`
}

// LabelRef points at a label by ID. Name is informational.
type LabelRef struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

// Weekdays is a list of lowercase weekday names. It also decodes from
// integers (0=Sunday .. 6=Saturday), which older payloads use.
type Weekdays []string

func (w *Weekdays) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("weekdays: %w", err)
	}
	days := make(Weekdays, 0, len(raw))
	for _, r := range raw {
		var name string
		if err := json.Unmarshal(r, &name); err == nil {
			days = append(days, strings.ToLower(name))
			continue
		}
		var n int
		if err := json.Unmarshal(r, &n); err != nil {
			return fmt.Errorf("weekday %s: not a name or number", string(r))
		}
		if n < 0 || n > 6 {
			return fmt.Errorf("weekday %d out of range", n)
		}
		days = append(days, strings.ToLower(time.Weekday(n).String()))
	}
	*w = days
	return nil
}

type FrequencyMetadata struct {
	Days            Weekdays `json:"days,omitempty"`
	Time            string   `json:"time,omitempty"`
	Timezone        string   `json:"timezone,omitempty"`
	Unit            string   `json:"unit,omitempty"`
	WeekPattern     string   `json:"weekPattern,omitempty"`
	DurationMinutes *int     `json:"durationMinutes,omitempty"`
}

// NotificationTemplate schedules one reminder relative to the due time.
// Negative values fire before the due time, positive after.
type NotificationTemplate struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

type NotificationMetadata struct {
	Nagging   bool                   `json:"nagging"`
	Predue    bool                   `json:"predue"`
	Templates []NotificationTemplate `json:"templates"`
}

type SubTask struct {
	ID          int        `json:"id,omitempty"`
	ChoreID     int        `json:"choreId,omitempty"`
	OrderID     int        `json:"orderId"`
	Name        string     `json:"name"`
	CompletedAt *time.Time `json:"completedAt"`
	CompletedBy *int       `json:"completedBy"`
	ParentID    *int       `json:"parentId"`
}

// Chore is a chore as returned by the API.
type Chore struct {
	ID                   int                   `json:"id"`
	Name                 string                `json:"name"`
	Description          string                `json:"description,omitempty"`
	FrequencyType        FrequencyType         `json:"frequencyType"`
	Frequency            int                   `json:"frequency"`
	FrequencyMetadata    *FrequencyMetadata    `json:"frequencyMetadata,omitempty"`
	NextDueDate          *time.Time            `json:"nextDueDate"`
	IsRolling            bool                  `json:"isRolling"`
	AssignedTo           int                   `json:"assignedTo"`
	Assignees            []Assignee            `json:"assignees"`
	AssignStrategy       AssignStrategy        `json:"assignStrategy"`
	IsActive             bool                  `json:"isActive"`
	Notification         bool                  `json:"notification"`
	NotificationMetadata *NotificationMetadata `json:"notificationMetadata,omitempty"`
	Labels               []string              `json:"labels,omitempty"`
	LabelsV2             []LabelRef            `json:"labelsV2"`
	CircleID             int                   `json:"circleId"`
	CreatedAt            time.Time             `json:"createdAt"`
	UpdatedAt            time.Time             `json:"updatedAt"`
	CreatedBy            int                   `json:"createdBy"`
	UpdatedBy            int                   `json:"updatedBy,omitempty"`
	Priority             int                   `json:"priority,omitempty"`
	IsPrivate            bool                  `json:"isPrivate"`
	Points               *int                  `json:"points"`
	SubTasks             []SubTask             `json:"subTasks"`
	ThingChore           map[string]any        `json:"thingChore,omitempty"`
}

// IsAssignedTo reports whether userID is the primary assignee or in the
// assignee set.
func (c Chore) IsAssignedTo(userID int) bool {
	if c.AssignedTo == userID {
		return true
	}
	for _, a := range c.Assignees {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of c.
func (c Chore) Clone() Chore {
	out := c
	if c.FrequencyMetadata != nil {
		fm := *c.FrequencyMetadata
		fm.Days = slices.Clone(fm.Days)
		fm.DurationMinutes = clonePtr(fm.DurationMinutes)
		out.FrequencyMetadata = &fm
	}
	if c.NotificationMetadata != nil {
		nm := *c.NotificationMetadata
		nm.Templates = slices.Clone(nm.Templates)
		out.NotificationMetadata = &nm
	}
	out.NextDueDate = clonePtr(c.NextDueDate)
	out.Points = clonePtr(c.Points)
	out.Assignees = slices.Clone(c.Assignees)
	out.Labels = slices.Clone(c.Labels)
	out.LabelsV2 = slices.Clone(c.LabelsV2)
	out.ThingChore = maps.Clone(c.ThingChore)
	if c.SubTasks != nil {
		out.SubTasks = make([]SubTask, len(c.SubTasks))
		for i, st := range c.SubTasks {
			st.CompletedAt = clonePtr(st.CompletedAt)
			st.CompletedBy = clonePtr(st.CompletedBy)
			st.ParentID = clonePtr(st.ParentID)
			out.SubTasks[i] = st
		}
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ChoreCreate is the payload for creating a chore.
type ChoreCreate struct {
	Name                 string                `json:"name"`
	Description          string                `json:"description,omitempty"`
	DueDate              string                `json:"dueDate,omitempty"`
	CreatedBy            *int                  `json:"createdBy,omitempty"`
	FrequencyType        FrequencyType         `json:"frequencyType"`
	Frequency            int                   `json:"frequency"`
	FrequencyMetadata    *FrequencyMetadata    `json:"frequencyMetadata,omitempty"`
	IsRolling            bool                  `json:"isRolling"`
	AssignedTo           *int                  `json:"assignedTo,omitempty"`
	Assignees            []Assignee            `json:"assignees,omitempty"`
	AssignStrategy       AssignStrategy        `json:"assignStrategy"`
	Notification         bool                  `json:"notification"`
	NotificationMetadata *NotificationMetadata `json:"notificationMetadata,omitempty"`
	Priority             int                   `json:"priority,omitempty"`
	Labels               []string              `json:"labels,omitempty"`
	LabelsV2             []LabelRef            `json:"labelsV2,omitempty"`
	IsActive             bool                  `json:"isActive"`
	IsPrivate            bool                  `json:"isPrivate"`
	Points               *int                  `json:"points,omitempty"`
	SubTasks             []SubTask             `json:"subTasks,omitempty"`
	ThingChore           map[string]any        `json:"thingChore,omitempty"`
	RequireApproval      bool                  `json:"requireApproval"`
	CompletionWindow     int                   `json:"completionWindow"`
}

// NewChoreCreate returns a creation payload with the service defaults filled in.
func NewChoreCreate(name string) ChoreCreate {
	return ChoreCreate{
		Name:           name,
		FrequencyType:  FrequencyOnce,
		Frequency:      1,
		AssignStrategy: AssignLeastCompleted,
		IsActive:       true,
	}
}

// ChoreUpdate is a partial update. Nil fields are left unchanged.
type ChoreUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	NextDueDate *string `json:"nextDueDate,omitempty"`
}

// APIError is the error body returned by the service.
type APIError struct {
	Error   string         `json:"error"`
	Code    int            `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}
