package donetick

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dukerupert/chorebridge/internal/model"
)

// GetCircleMembers lists the users in the caller's circle. Not cached.
func (c *Client) GetCircleMembers(ctx context.Context) ([]model.CircleMember, error) {
	var members []model.CircleMember
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/v1/circles/members/"}, &members); err != nil {
		return nil, fmt.Errorf("get circle members: %w", err)
	}
	return members, nil
}

// GetLabels lists the labels visible to the caller. Not cached.
func (c *Client) GetLabels(ctx context.Context) ([]model.Label, error) {
	var labels []model.Label
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/v1/labels"}, &labels); err != nil {
		return nil, fmt.Errorf("get labels: %w", err)
	}
	return labels, nil
}
