package auth

import (
	"context"

	"github.com/dukerupert/chorebridge/internal/model"
)

type contextKey struct{}

// AuthContext identifies the caller of a stand-in API request.
type AuthContext struct {
	UserID   int
	CircleID int
	Username string
	Role     string
	Plan     string
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func CircleID(ctx context.Context) int {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.CircleID
}

func UserID(ctx context.Context) int {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

// IsPaid reports whether the caller is on a plan above free.
func IsPaid(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.Plan != "" && ac.Plan != model.PlanFree
}
