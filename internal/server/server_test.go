package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/chorebridge/internal/batch"
	"github.com/dukerupert/chorebridge/internal/database"
	"github.com/dukerupert/chorebridge/internal/donetick"
	"github.com/dukerupert/chorebridge/internal/model"
	"github.com/dukerupert/chorebridge/internal/transform"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, cfg Config) (*Server, *Seeded, *httptest.Server) {
	t.Helper()
	db, err := database.Open(database.Memory)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := New(db, cfg, quietLogger())
	seeded, err := srv.Seed(DefaultSeed())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, seeded, ts
}

func newClient(ts *httptest.Server, username, password string) *donetick.Client {
	return donetick.NewClient(donetick.Config{
		BaseURL:       ts.URL,
		Username:      username,
		Password:      password,
		RatePerSecond: -1,
	}, donetick.WithBackoff(time.Millisecond), donetick.WithLogger(quietLogger()))
}

func TestChoreLifecycle(t *testing.T) {
	_, seeded, ts := newTestServer(t, Config{})
	alice, bob := seeded.Users[0], seeded.Users[1]
	c := newClient(ts, "alice", "password")
	ctx := context.Background()

	due := time.Now().UTC().Truncate(time.Second).Add(time.Hour)
	cc := model.NewChoreCreate("Dishes")
	cc.FrequencyType = model.FrequencyDaily
	cc.DueDate = due.Format(time.RFC3339)
	cc.SubTasks = []model.SubTask{{Name: "wash"}, {Name: "dry", OrderID: 1}}

	created, err := c.CreateChore(ctx, cc)
	if err != nil {
		t.Fatalf("CreateChore: %v", err)
	}
	if created.ID == 0 || created.Name != "Dishes" || created.CircleID != seeded.CircleID {
		t.Fatalf("created = %+v", created)
	}
	if created.AssignedTo != alice.ID || created.CreatedBy != alice.ID {
		t.Errorf("assignedTo = %d, createdBy = %d, want %d", created.AssignedTo, created.CreatedBy, alice.ID)
	}
	if created.NextDueDate == nil || !created.NextDueDate.Equal(due) {
		t.Errorf("NextDueDate = %v, want %v", created.NextDueDate, due)
	}
	if len(created.SubTasks) != 2 || created.SubTasks[1].ID == 0 || created.SubTasks[1].ChoreID != created.ID {
		t.Errorf("SubTasks = %+v", created.SubTasks)
	}

	name := "Dishes and pans"
	updated, err := c.UpdateChore(ctx, created.ID, model.ChoreUpdate{Name: &name})
	if err != nil {
		t.Fatalf("UpdateChore: %v", err)
	}
	if updated.Name != name {
		t.Errorf("Name = %q, want %q", updated.Name, name)
	}

	if ch, err := c.UpdateChorePriority(ctx, created.ID, 3); err != nil || ch.Priority != 3 {
		t.Errorf("UpdateChorePriority = %+v, %v", ch, err)
	}

	reassigned, err := c.UpdateChoreAssignee(ctx, created.ID, bob.ID)
	if err != nil {
		t.Fatalf("UpdateChoreAssignee: %v", err)
	}
	if reassigned.AssignedTo != bob.ID || !reassigned.IsAssignedTo(alice.ID) {
		t.Errorf("assignment = %d %v", reassigned.AssignedTo, reassigned.Assignees)
	}
	if _, err := c.UpdateChoreAssignee(ctx, created.ID, 999); err == nil {
		t.Error("expected error assigning a stranger")
	}

	mine, err := c.ListChores(ctx, donetick.ListOptions{AssignedTo: bob.ID})
	if err != nil || len(mine) != 1 {
		t.Errorf("ListChores(bob) = %v, %v", mine, err)
	}

	done, err := c.CompleteChore(ctx, created.ID, bob.ID)
	if err != nil {
		t.Fatalf("CompleteChore: %v", err)
	}
	if want := due.Add(24 * time.Hour); done.NextDueDate == nil || !done.NextDueDate.Equal(want) {
		t.Errorf("after complete NextDueDate = %v, want %v", done.NextDueDate, want)
	}

	skipped, err := c.SkipChore(ctx, created.ID)
	if err != nil {
		t.Fatalf("SkipChore: %v", err)
	}
	if want := due.Add(48 * time.Hour); skipped.NextDueDate == nil || !skipped.NextDueDate.Equal(want) {
		t.Errorf("after skip NextDueDate = %v, want %v", skipped.NextDueDate, want)
	}

	ok, err := c.DeleteChore(ctx, created.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteChore = %v, %v", ok, err)
	}
	if _, err := c.DeleteChore(ctx, created.ID); !donetick.IsNotFound(err) {
		t.Errorf("second delete error = %v, want not found", err)
	}
	if gone, err := c.GetChore(ctx, created.ID); err != nil || gone != nil {
		t.Errorf("GetChore after delete = %v, %v, want nil", gone, err)
	}
}

func TestCompleteOnceChoreDeactivates(t *testing.T) {
	_, _, ts := newTestServer(t, Config{})
	c := newClient(ts, "alice", "password")
	ctx := context.Background()

	created, err := c.CreateChore(ctx, model.NewChoreCreate("Fix fence"))
	if err != nil {
		t.Fatalf("CreateChore: %v", err)
	}
	done, err := c.CompleteChore(ctx, created.ID, 0)
	if err != nil {
		t.Fatalf("CompleteChore: %v", err)
	}
	if done.IsActive || done.NextDueDate != nil {
		t.Errorf("after completing a one-off: isActive=%v nextDueDate=%v", done.IsActive, done.NextDueDate)
	}
}

func TestReauthenticatesAfterRevocation(t *testing.T) {
	srv, _, ts := newTestServer(t, Config{})
	c := newClient(ts, "alice", "password")
	ctx := context.Background()

	if err := c.Authenticate(ctx); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	srv.Issuer().RevokeAll()

	if _, err := c.ListChores(ctx, donetick.ListOptions{}); err != nil {
		t.Fatalf("ListChores after revocation: %v", err)
	}
	if got := c.SessionState(); got != "authenticated" {
		t.Errorf("SessionState = %q, want authenticated", got)
	}
}

func TestWrongPassword(t *testing.T) {
	_, _, ts := newTestServer(t, Config{})
	c := newClient(ts, "alice", "nope")

	_, err := c.ListChores(context.Background(), donetick.ListOptions{})
	if !donetick.IsAuthentication(err) {
		t.Errorf("error = %v, want authentication error", err)
	}
}

func TestRestrictedCompletion(t *testing.T) {
	_, seeded, ts := newTestServer(t, Config{RestrictCompletion: true})
	ctx := context.Background()

	bob := newClient(ts, "bob", "password")
	ch, err := bob.CreateChore(ctx, model.NewChoreCreate("Vacuum"))
	if err != nil {
		t.Fatalf("CreateChore: %v", err)
	}
	_, err = bob.CompleteChore(ctx, ch.ID, 0)
	if !donetick.IsFeatureRestricted(err) {
		t.Errorf("free plan complete error = %v, want feature restricted", err)
	}

	alice := newClient(ts, "alice", "password")
	if _, err := alice.CompleteChore(ctx, ch.ID, seeded.Users[1].ID); err != nil {
		t.Errorf("plus plan complete: %v", err)
	}
}

func TestAPIToken(t *testing.T) {
	_, _, ts := newTestServer(t, Config{})
	c := donetick.NewClient(donetick.Config{
		BaseURL:       ts.URL,
		APIToken:      "dev-api-token",
		RatePerSecond: -1,
	}, donetick.WithLogger(quietLogger()))
	ctx := context.Background()

	members, err := c.GetCircleMembers(ctx)
	if err != nil {
		t.Fatalf("GetCircleMembers: %v", err)
	}
	if len(members) != 2 || members[0].Username != "alice" || members[0].Role != "admin" || members[1].Name() != "Bob" {
		t.Errorf("members = %+v", members)
	}

	labels, err := c.GetLabels(ctx)
	if err != nil {
		t.Fatalf("GetLabels: %v", err)
	}
	if len(labels) != 3 || labels[0].Name != "Bathroom" {
		t.Errorf("labels = %+v", labels)
	}
}

func TestRateLimited(t *testing.T) {
	_, _, ts := newTestServer(t, Config{RateLimit: 2})
	c := newClient(ts, "alice", "password")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.GetLabels(ctx); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}
	_, err := c.GetLabels(ctx)
	var se *donetick.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusTooManyRequests {
		t.Errorf("error = %v, want status 429", err)
	}
}

func TestCreateValidationDetails(t *testing.T) {
	srv, seeded, ts := newTestServer(t, Config{})
	tok, _, err := srv.Issuer().Issue(seeded.Users[0].ID, "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	body := `{"Name": "  ", "FrequencyType": "hourly", "Priority": 9}`
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/chores/", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var apiErr model.APIError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, field := range []string{"name", "frequencyType", "priority"} {
		if _, ok := apiErr.Details[field]; !ok {
			t.Errorf("details = %v, missing %s", apiErr.Details, field)
		}
	}
}

func TestHealth(t *testing.T) {
	_, _, ts := newTestServer(t, Config{})
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v", resp.StatusCode, body)
	}
}

const importFile = `{
  "chores": [
    {
      "name": "Laundry",
      "frequencyType": "weekly",
      "frequencyMetadata_json": {"daysOfWeek": ["Mon", "Thu"], "dueTime": "18:00"},
      "assignees_usernames": ["Bob"],
      "labels": ["kitchen"],
      "subTasks_json": ["wash", "fold"]
    },
    {
      "name": "Water plants", // mystery owner
      "assignees_usernames": ["Mallory"],
      "priority": 2
    },
    {
      "name": "Broken",
      "frequency": "often"
    }
  ]
}`

func TestImportThenDeleteAll(t *testing.T) {
	_, seeded, ts := newTestServer(t, Config{})
	c := newClient(ts, "alice", "password")
	ctx := context.Background()

	entries, err := transform.ParseFile(strings.NewReader(importFile))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	im := batch.NewImporter(c, quietLogger(), batch.WithDelay(0))
	sum, err := im.Run(ctx, entries)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if sum.Succeeded != 2 || sum.Failed() != 1 || len(sum.Warnings) != 1 {
		t.Errorf("summary ok=%d failed=%d warnings=%v", sum.Succeeded, sum.Failed(), sum.Warnings)
	}

	chores, err := c.ListChores(ctx, donetick.ListOptions{})
	if err != nil || len(chores) != 2 {
		t.Fatalf("ListChores = %d, %v", len(chores), err)
	}
	laundry := chores[0]
	bob := seeded.Users[1]
	if laundry.FrequencyType != model.FrequencyDaysOfWeek || laundry.AssignedTo != bob.ID {
		t.Errorf("laundry = %+v", laundry)
	}
	if len(laundry.LabelsV2) != 1 || laundry.LabelsV2[0].ID != seeded.Labels[0].ID {
		t.Errorf("labelsV2 = %v, want Kitchen", laundry.LabelsV2)
	}
	if len(laundry.SubTasks) != 2 || laundry.NextDueDate == nil {
		t.Errorf("subtasks = %v, nextDue = %v", laundry.SubTasks, laundry.NextDueDate)
	}
	if wd := laundry.NextDueDate.Weekday(); wd != time.Monday && wd != time.Thursday {
		t.Errorf("next due weekday = %v, want Monday or Thursday", wd)
	}
	if plants := chores[1]; plants.AssignedTo != seeded.Users[0].ID || plants.Priority != 2 {
		t.Errorf("plants = %+v", plants)
	}

	del, err := batch.DeleteAll(ctx, c, quietLogger(), 0, nil)
	if err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if del.Succeeded != 2 || del.Remaining != 0 {
		t.Errorf("delete-all ok=%d remaining=%d", del.Succeeded, del.Remaining)
	}

	again, err := batch.DeleteAll(ctx, c, quietLogger(), 0, nil)
	if err != nil || again.Total != 0 {
		t.Errorf("second delete-all = %+v, %v", again, err)
	}
}
