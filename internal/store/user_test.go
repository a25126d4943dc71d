package store

import (
	"database/sql"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/chorebridge/internal/database"
	"github.com/dukerupert/chorebridge/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Memory)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func setupUserTestDB(t *testing.T) *UserStore {
	t.Helper()
	us := NewUserStore(setupTestDB(t))
	us.cost = bcrypt.MinCost
	return us
}

func TestUserCreate(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.Create("alice", "Alice", "alice@example.com", "secret")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if u.Username != "alice" || u.DisplayName != "Alice" {
		t.Errorf("user = %+v", u)
	}
	if u.Plan != model.PlanFree {
		t.Errorf("plan = %q, want %q", u.Plan, model.PlanFree)
	}
	if u.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

func TestUserCreateDuplicateUsername(t *testing.T) {
	us := setupUserTestDB(t)
	if _, err := us.Create("alice", "", "", "a"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := us.Create("alice", "", "", "b"); err == nil {
		t.Error("expected error for duplicate username")
	}
	if _, err := us.Create("  ", "", "", "b"); err == nil {
		t.Error("expected error for blank username")
	}
}

func TestUserAuthenticate(t *testing.T) {
	us := setupUserTestDB(t)
	created, _ := us.Create("alice", "Alice", "", "secret")

	u, err := us.Authenticate("alice", "secret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if u.ID != created.ID {
		t.Errorf("ID = %d, want %d", u.ID, created.ID)
	}

	if _, err := us.Authenticate("alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := us.Authenticate("mallory", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v, want ErrInvalidCredentials", err)
	}
}

func TestUserAPITokenAndPlan(t *testing.T) {
	us := setupUserTestDB(t)
	u, _ := us.Create("alice", "Alice", "", "secret")

	if got, err := us.GetByAPIToken("tok"); err != nil || got != nil {
		t.Errorf("GetByAPIToken before set = %v, %v, want nil", got, err)
	}
	if err := us.SetAPIToken(u.ID, "tok"); err != nil {
		t.Fatalf("set api token: %v", err)
	}
	got, err := us.GetByAPIToken("tok")
	if err != nil || got == nil || got.ID != u.ID {
		t.Errorf("GetByAPIToken = %v, %v", got, err)
	}
	if got, _ := us.GetByAPIToken(""); got != nil {
		t.Error("empty token should match nobody")
	}

	if err := us.SetPlan(u.ID, model.PlanPlus); err != nil {
		t.Fatalf("set plan: %v", err)
	}
	got, _ = us.GetByID(u.ID)
	if got.Plan != model.PlanPlus {
		t.Errorf("plan = %q, want plus", got.Plan)
	}

	if missing, err := us.GetByID(999); err != nil || missing != nil {
		t.Errorf("GetByID(999) = %v, %v, want nil", missing, err)
	}
}
