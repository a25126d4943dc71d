package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/chorebridge/internal/auth"
	"github.com/dukerupert/chorebridge/internal/database"
	"github.com/dukerupert/chorebridge/internal/model"
	"github.com/dukerupert/chorebridge/internal/store"
)

type authFixture struct {
	issuer  *auth.Issuer
	users   *store.UserStore
	circles *store.CircleStore
	alice   *model.User
	circle  int
}

func setupAuthMiddlewareDB(t *testing.T) *authFixture {
	t.Helper()
	db, err := database.Open(database.Memory)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &authFixture{
		issuer:  auth.NewIssuer([]byte("secret"), time.Hour),
		users:   store.NewUserStore(db),
		circles: store.NewCircleStore(db),
	}
	f.alice, err = f.users.Create("alice", "Alice", "", "pw")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	f.circle, _ = f.circles.Create("Home")
	f.circles.AddMember(f.circle, f.alice.ID, "admin")
	return f
}

func (f *authFixture) handler(t *testing.T, got *auth.AuthContext) http.Handler {
	return RequireToken(f.issuer, f.users, f.circles)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			t.Fatal("expected AuthContext in request context")
		}
		*got = ac
		w.WriteHeader(http.StatusOK)
	}))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) model.APIError {
	t.Helper()
	var body model.APIError
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestRequireTokenMissing(t *testing.T) {
	f := setupAuthMiddlewareDB(t)
	var ac auth.AuthContext

	rec := httptest.NewRecorder()
	f.handler(t, &ac).ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/chores/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if body := decodeError(t, rec); body.Code != http.StatusUnauthorized || body.Error == "" {
		t.Errorf("body = %+v", body)
	}
}

func TestRequireTokenInvalid(t *testing.T) {
	f := setupAuthMiddlewareDB(t)
	var ac auth.AuthContext

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	rec := httptest.NewRecorder()
	f.handler(t, &ac).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireTokenValidJWT(t *testing.T) {
	f := setupAuthMiddlewareDB(t)
	tok, _, err := f.issuer.Issue(f.alice.ID, f.alice.Username)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var ac auth.AuthContext
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	f.handler(t, &ac).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ac.UserID != f.alice.ID || ac.CircleID != f.circle || ac.Role != "admin" || ac.Plan != model.PlanFree {
		t.Errorf("AuthContext = %+v", ac)
	}

	f.issuer.RevokeAll()
	rec = httptest.NewRecorder()
	f.handler(t, &ac).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("revoked token: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireTokenAPIKey(t *testing.T) {
	f := setupAuthMiddlewareDB(t)
	f.users.SetAPIToken(f.alice.ID, "long-lived")

	var ac auth.AuthContext
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(APITokenHeader, "long-lived")
	rec := httptest.NewRecorder()
	f.handler(t, &ac).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || ac.UserID != f.alice.ID {
		t.Errorf("status = %d, ac = %+v", rec.Code, ac)
	}

	req.Header.Set(APITokenHeader, "wrong")
	rec = httptest.NewRecorder()
	f.handler(t, &ac).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireTokenNoCircle(t *testing.T) {
	f := setupAuthMiddlewareDB(t)
	loner, _ := f.users.Create("loner", "", "", "pw")
	tok, _, _ := f.issuer.Issue(loner.ID, loner.Username)

	var ac auth.AuthContext
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	f.handler(t, &ac).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestRequirePlanAllowed(t *testing.T) {
	ctx := auth.WithAuth(context.Background(), auth.AuthContext{Plan: model.PlanPlus})
	req := httptest.NewRequest("POST", "/", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	handler := RequirePlan(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequirePlanForbidden(t *testing.T) {
	ctx := auth.WithAuth(context.Background(), auth.AuthContext{Plan: model.PlanFree})
	req := httptest.NewRequest("POST", "/", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	handler := RequirePlan(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if body := decodeError(t, rec); body.Error != "this feature requires a Plus subscription" {
		t.Errorf("error = %q", body.Error)
	}
}
