package server

import (
	"fmt"

	"github.com/dukerupert/chorebridge/internal/model"
)

// SeedUser is an account to create. The first user seeded is the circle
// admin.
type SeedUser struct {
	Username    string
	DisplayName string
	Email       string
	Password    string
	Plan        string
	APIToken    string
}

type SeedData struct {
	Circle string
	Users  []SeedUser
	Labels []string
}

// Seeded reports what Seed created.
type Seeded struct {
	CircleID int
	Users    []model.User
	Labels   []model.Label
}

// DefaultSeed is the household the dev server starts with.
func DefaultSeed() SeedData {
	return SeedData{
		Circle: "Home",
		Users: []SeedUser{
			{Username: "alice", DisplayName: "Alice", Email: "alice@example.com", Password: "password", Plan: model.PlanPlus, APIToken: "dev-api-token"},
			{Username: "bob", DisplayName: "Bob", Password: "password"},
		},
		Labels: []string{"Kitchen", "Outdoor", "Bathroom"},
	}
}

// Seed creates a circle with its users and labels.
func (s *Server) Seed(data SeedData) (*Seeded, error) {
	if len(data.Users) == 0 {
		return nil, fmt.Errorf("seed: at least one user is required")
	}
	circleID, err := s.circleStore.Create(data.Circle)
	if err != nil {
		return nil, fmt.Errorf("seed circle: %w", err)
	}
	out := &Seeded{CircleID: circleID}

	for i, su := range data.Users {
		u, err := s.userStore.Create(su.Username, su.DisplayName, su.Email, su.Password)
		if err != nil {
			return nil, fmt.Errorf("seed user %s: %w", su.Username, err)
		}
		if su.Plan != "" && su.Plan != u.Plan {
			if err := s.userStore.SetPlan(u.ID, su.Plan); err != nil {
				return nil, fmt.Errorf("seed user %s: %w", su.Username, err)
			}
			u.Plan = su.Plan
		}
		if su.APIToken != "" {
			if err := s.userStore.SetAPIToken(u.ID, su.APIToken); err != nil {
				return nil, fmt.Errorf("seed user %s: %w", su.Username, err)
			}
		}
		role := "member"
		if i == 0 {
			role = "admin"
		}
		if err := s.circleStore.AddMember(circleID, u.ID, role); err != nil {
			return nil, fmt.Errorf("seed member %s: %w", su.Username, err)
		}
		out.Users = append(out.Users, *u)
	}

	for _, name := range data.Labels {
		l, err := s.labelStore.Create(circleID, name, "", out.Users[0].ID)
		if err != nil {
			return nil, fmt.Errorf("seed label %s: %w", name, err)
		}
		out.Labels = append(out.Labels, *l)
	}
	s.logger.Info("seeded circle", "circle_id", circleID, "users", len(out.Users), "labels", len(out.Labels))
	return out, nil
}

// NeedsSeed reports whether the database has no users yet.
func (s *Server) NeedsSeed() (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n == 0, nil
}
