package store

import (
	"testing"
)

func TestCircleMembers(t *testing.T) {
	db := setupTestDB(t)
	us := NewUserStore(db)
	us.cost = 4
	cs := NewCircleStore(db)

	alice, _ := us.Create("alice", "Alice", "alice@example.com", "x")
	bob, _ := us.Create("bob", "", "", "x")
	carol, _ := us.Create("carol", "Carol", "", "x")

	home, err := cs.Create("Home")
	if err != nil {
		t.Fatalf("create circle: %v", err)
	}
	other, _ := cs.Create("Other")
	if err := cs.AddMember(home, alice.ID, "admin"); err != nil {
		t.Fatalf("add member: %v", err)
	}
	cs.AddMember(home, bob.ID, "member")
	cs.AddMember(other, carol.ID, "member")

	if err := cs.AddMember(home, alice.ID, "member"); err == nil {
		t.Error("expected error adding a member twice")
	}

	members, err := cs.Members(home)
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("len(members) = %d, want 2", len(members))
	}
	if members[0].UserID != alice.ID || members[0].Role != "admin" || !members[0].IsActive {
		t.Errorf("members[0] = %+v", members[0])
	}
	if members[1].Name() != "bob" {
		t.Errorf("members[1].Name() = %q, want bob", members[1].Name())
	}

	circle, role, err := cs.CircleForUser(carol.ID)
	if err != nil || circle != other || role != "member" {
		t.Errorf("CircleForUser(carol) = %d, %q, %v", circle, role, err)
	}
	if ok, _ := cs.IsMember(home, carol.ID); ok {
		t.Error("carol should not be in home")
	}
	if ok, _ := cs.IsMember(home, bob.ID); !ok {
		t.Error("bob should be in home")
	}

	stranger, _ := us.Create("dave", "", "", "x")
	if circle, _, _ := cs.CircleForUser(stranger.ID); circle != 0 {
		t.Errorf("CircleForUser(stranger) = %d, want 0", circle)
	}
}

func TestLabels(t *testing.T) {
	db := setupTestDB(t)
	us := NewUserStore(db)
	us.cost = 4
	u, _ := us.Create("alice", "", "", "x")
	circle, _ := NewCircleStore(db).Create("Home")
	ls := NewLabelStore(db)

	if _, err := ls.Create(circle, "Outdoor", "#0a0", u.ID); err != nil {
		t.Fatalf("create label: %v", err)
	}
	ls.Create(circle, "Kitchen", "", u.ID)
	if _, err := ls.Create(circle, " ", "", u.ID); err == nil {
		t.Error("expected error for blank label")
	}

	labels, err := ls.List(circle)
	if err != nil {
		t.Fatalf("list labels: %v", err)
	}
	if len(labels) != 2 || labels[0].Name != "Kitchen" || labels[1].Color != "#0a0" {
		t.Errorf("labels = %+v", labels)
	}
}
