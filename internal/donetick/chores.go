package donetick

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dukerupert/chorebridge/internal/model"
)

const choresPath = "/api/v1/chores/"

func chorePath(id int, suffix string) string {
	return choresPath + strconv.Itoa(id) + suffix
}

// ListOptions filters ListChores. Zero values do not filter.
type ListOptions struct {
	Active     *bool
	AssignedTo int
}

func (o ListOptions) match(c model.Chore) bool {
	if o.Active != nil && c.IsActive != *o.Active {
		return false
	}
	if o.AssignedTo != 0 && !c.IsAssignedTo(o.AssignedTo) {
		return false
	}
	return true
}

// ListChores fetches every chore from the server, never from the cache,
// and caches each one.
func (c *Client) ListChores(ctx context.Context, opts ListOptions) ([]model.Chore, error) {
	var all []model.Chore
	if err := c.do(ctx, request{method: http.MethodGet, path: choresPath}, &all); err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	chores := make([]model.Chore, 0, len(all))
	for _, ch := range all {
		c.chores.Put(ch.ID, ch.Clone())
		if opts.match(ch) {
			chores = append(chores, ch)
		}
	}
	return chores, nil
}

// GetChore returns the chore with the given ID, or nil if it does not exist.
// The result never shares memory with the cache.
func (c *Client) GetChore(ctx context.Context, id int) (*model.Chore, error) {
	if ch, ok := c.chores.Get(id); ok {
		ch = ch.Clone()
		return &ch, nil
	}
	ch, err := c.fetchChore(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get chore %d: %w", id, err)
	}
	return ch, nil
}

func (c *Client) fetchChore(ctx context.Context, id int) (*model.Chore, error) {
	var ch model.Chore
	err := c.do(ctx, request{method: http.MethodGet, path: chorePath(id, "")}, &ch)
	if isStatus(err, http.StatusNotFound) {
		c.chores.Invalidate(id)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.chores.Put(ch.ID, ch.Clone())
	return &ch, nil
}

// CreateChore validates cc and creates it. Validation errors are returned
// before any request is made.
func (c *Client) CreateChore(ctx context.Context, cc model.ChoreCreate) (*model.Chore, error) {
	if err := cc.Normalize(); err != nil {
		return nil, fmt.Errorf("create chore: %w", err)
	}

	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodPost, path: choresPath, body: cc}, &raw); err != nil {
		return nil, fmt.Errorf("create chore %q: %w", cc.Name, err)
	}

	// The server answers with either the new chore or just its ID.
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var ch model.Chore
		if err := json.Unmarshal(raw, &ch); err != nil {
			return nil, fmt.Errorf("decode created chore: %w", err)
		}
		c.chores.Put(ch.ID, ch.Clone())
		return &ch, nil
	}
	var id int
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, fmt.Errorf("decode created chore id: %w", err)
	}
	ch, err := c.fetchChore(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch created chore %d: %w", id, err)
	}
	if ch == nil {
		return nil, &NotFoundError{Resource: "chore", ID: id}
	}
	return ch, nil
}

// mutate sends a change for chore id, then refreshes the cache entry.
func (c *Client) mutate(ctx context.Context, id int, r request) (*model.Chore, error) {
	var raw json.RawMessage
	err := c.do(ctx, r, &raw)
	c.chores.Invalidate(id)
	if isStatus(err, http.StatusNotFound) {
		return nil, &NotFoundError{Resource: "chore", ID: id}
	}
	if err != nil {
		return nil, err
	}

	var ch model.Chore
	if json.Unmarshal(raw, &ch) == nil && ch.ID == id {
		c.chores.Put(id, ch.Clone())
		return &ch, nil
	}
	fresh, err := c.fetchChore(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if fresh == nil {
		return nil, &NotFoundError{Resource: "chore", ID: id}
	}
	return fresh, nil
}

// UpdateChore applies a partial update to name, description or next due date.
func (c *Client) UpdateChore(ctx context.Context, id int, u model.ChoreUpdate) (*model.Chore, error) {
	if err := u.Normalize(); err != nil {
		return nil, fmt.Errorf("update chore %d: %w", id, err)
	}
	ch, err := c.mutate(ctx, id, request{method: http.MethodPut, path: chorePath(id, ""), body: u})
	if err != nil {
		return nil, fmt.Errorf("update chore %d: %w", id, err)
	}
	return ch, nil
}

func (c *Client) UpdateChorePriority(ctx context.Context, id, priority int) (*model.Chore, error) {
	if err := model.ValidatePriority(priority); err != nil {
		return nil, fmt.Errorf("update chore %d priority: %w", id, err)
	}
	ch, err := c.mutate(ctx, id, request{
		method: http.MethodPut,
		path:   chorePath(id, "/priority"),
		body:   map[string]int{"priority": priority},
	})
	if err != nil {
		return nil, fmt.Errorf("update chore %d priority: %w", id, err)
	}
	return ch, nil
}

func (c *Client) UpdateChoreAssignee(ctx context.Context, id, userID int) (*model.Chore, error) {
	if userID < 1 {
		return nil, fmt.Errorf("update chore %d assignee: %w", id, &model.ValidationError{
			Problems: []model.FieldError{{Field: "assignee", Message: fmt.Sprintf("invalid user id %d", userID)}},
		})
	}
	ch, err := c.mutate(ctx, id, request{
		method: http.MethodPut,
		path:   chorePath(id, "/assignee"),
		body:   map[string]int{"assignee": userID},
	})
	if err != nil {
		return nil, fmt.Errorf("update chore %d assignee: %w", id, err)
	}
	return ch, nil
}

// CompleteChore marks the chore done by completedBy. Servers that limit
// completion to paid plans answer with a *FeatureRestrictedError.
func (c *Client) CompleteChore(ctx context.Context, id, completedBy int) (*model.Chore, error) {
	q := url.Values{}
	if completedBy > 0 {
		q.Set("completedBy", strconv.Itoa(completedBy))
	}
	ch, err := c.mutate(ctx, id, request{method: http.MethodPost, path: chorePath(id, "/do"), query: q})
	if err != nil {
		return nil, fmt.Errorf("complete chore %d: %w", id, err)
	}
	return ch, nil
}

// SkipChore moves the chore to its next occurrence without completing it.
func (c *Client) SkipChore(ctx context.Context, id int) (*model.Chore, error) {
	before, err := c.GetChore(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("skip chore %d: %w", id, err)
	}
	if before == nil {
		return nil, fmt.Errorf("skip chore %d: %w", id, &NotFoundError{Resource: "chore", ID: id})
	}
	ch, err := c.mutate(ctx, id, request{method: http.MethodPost, path: chorePath(id, "/skip")})
	if err != nil {
		return nil, fmt.Errorf("skip chore %d: %w", id, err)
	}
	if sameDue(before.NextDueDate, ch.NextDueDate) {
		c.logger.Warn("skip did not change next due date", "chore_id", id)
	}
	return ch, nil
}

func sameDue(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// DeleteChore removes the chore. Deleting a chore that does not exist
// returns a *NotFoundError.
func (c *Client) DeleteChore(ctx context.Context, id int) (bool, error) {
	err := c.do(ctx, request{method: http.MethodDelete, path: chorePath(id, "")}, nil)
	c.chores.Invalidate(id)
	if isStatus(err, http.StatusNotFound) {
		return false, fmt.Errorf("delete chore %d: %w", id, &NotFoundError{Resource: "chore", ID: id})
	}
	if err != nil {
		return false, fmt.Errorf("delete chore %d: %w", id, err)
	}
	return true, nil
}
