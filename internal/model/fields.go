package model

import (
	"encoding/json"
	"fmt"
)

// fieldNames maps Go-style PascalCase keys accepted on input to the
// camelCase keys used on the wire.
var fieldNames = map[string]string{
	"Name":                 "name",
	"Description":          "description",
	"DueDate":              "dueDate",
	"CreatedBy":            "createdBy",
	"FrequencyType":        "frequencyType",
	"Frequency":            "frequency",
	"FrequencyMetadata":    "frequencyMetadata",
	"IsRolling":            "isRolling",
	"AssignedTo":           "assignedTo",
	"Assignees":            "assignees",
	"AssignStrategy":       "assignStrategy",
	"Notification":         "notification",
	"NotificationMetadata": "notificationMetadata",
	"Priority":             "priority",
	"Labels":               "labels",
	"LabelsV2":             "labelsV2",
	"IsActive":             "isActive",
	"IsPrivate":            "isPrivate",
	"Points":               "points",
	"SubTasks":             "subTasks",
	"ThingChore":           "thingChore",
	"RequireApproval":      "requireApproval",
	"CompletionWindow":     "completionWindow",
	"NextDueDate":          "nextDueDate",
}

var goNames = func() map[string]string {
	m := make(map[string]string, len(fieldNames))
	for goName, wire := range fieldNames {
		m[wire] = goName
	}
	return m
}()

// WireName returns the wire key for a PascalCase field name. Unknown names
// are returned unchanged.
func WireName(goName string) string {
	if w, ok := fieldNames[goName]; ok {
		return w
	}
	return goName
}

// GoName returns the PascalCase name for a wire key. Unknown keys are
// returned unchanged.
func GoName(wire string) string {
	if g, ok := goNames[wire]; ok {
		return g
	}
	return wire
}

// toWireKeys rewrites the top-level keys of a JSON object through the
// field table. A wire key wins over its PascalCase alias.
func toWireKeys(data []byte) ([]byte, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		w, aliased := fieldNames[k]
		if !aliased {
			out[k] = v
			continue
		}
		if _, dup := raw[w]; dup {
			continue
		}
		out[w] = v
	}
	return json.Marshal(out)
}

func (c *ChoreCreate) UnmarshalJSON(data []byte) error {
	type plain ChoreCreate
	normalized, err := toWireKeys(data)
	if err != nil {
		return fmt.Errorf("decode chore: %w", err)
	}
	var p plain
	if err := json.Unmarshal(normalized, &p); err != nil {
		return fmt.Errorf("decode chore: %w", err)
	}
	*c = ChoreCreate(p)
	return nil
}

func (u *ChoreUpdate) UnmarshalJSON(data []byte) error {
	type plain ChoreUpdate
	normalized, err := toWireKeys(data)
	if err != nil {
		return fmt.Errorf("decode chore update: %w", err)
	}
	var p plain
	if err := json.Unmarshal(normalized, &p); err != nil {
		return fmt.Errorf("decode chore update: %w", err)
	}
	*u = ChoreUpdate(p)
	return nil
}
