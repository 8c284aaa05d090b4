package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/nebari-dev/rolestore/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func mustCreateUser(t *testing.T, users *UserStore, username string) *models.User {
	t.Helper()
	user, err := users.Create(context.Background(), username, username+"@test.com", "secret")
	if err != nil {
		t.Fatalf("create user %q: %v", username, err)
	}
	return user
}

func TestUserStore_CreateHashesPassword(t *testing.T) {
	_, database := testSetup(t)
	users := NewUserStore(database)

	user := mustCreateUser(t, users, "alice")
	if user.ID == uuid.Nil {
		t.Fatal("expected uuid to be generated")
	}
	if user.PasswordHash == "secret" {
		t.Fatal("password stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret")); err != nil {
		t.Errorf("hash does not match password: %v", err)
	}
	if user.RoleID != nil {
		t.Errorf("new user should have no role, got %v", *user.RoleID)
	}
}

func TestUserStore_GetMissing(t *testing.T) {
	_, database := testSetup(t)
	users := NewUserStore(database)
	ctx := context.Background()

	got, err := users.GetByID(ctx, uuid.New())
	if err != nil || got != nil {
		t.Errorf("GetByID(missing) = %+v, %v; want nil, nil", got, err)
	}
	got, err = users.GetByUsername(ctx, "nobody")
	if err != nil || got != nil {
		t.Errorf("GetByUsername(missing) = %+v, %v; want nil, nil", got, err)
	}
}

func TestUserStore_ListOrderedByUsername(t *testing.T) {
	_, database := testSetup(t)
	users := NewUserStore(database)
	mustCreateUser(t, users, "carol")
	mustCreateUser(t, users, "alice")
	mustCreateUser(t, users, "bob")

	list, err := users.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"alice", "bob", "carol"}
	if len(list) != len(want) {
		t.Fatalf("expected %d users, got %d", len(want), len(list))
	}
	for i, u := range list {
		if u.Username != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], u.Username)
		}
	}
}

// --- AttachRoleToUser ---

func TestAttachRoleToUser_SetsAndReplacesRole(t *testing.T) {
	s, database := testSetup(t)
	users := NewUserStore(database)
	ctx := context.Background()

	r1 := mustCreateRole(t, s, "Support")
	r2 := mustCreateRole(t, s, "Billing")
	user := mustCreateUser(t, users, "dave")

	if err := s.AttachRoleToUser(ctx, r1, user); err != nil {
		t.Fatalf("attach r1: %v", err)
	}
	got, err := users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.RoleID == nil || *got.RoleID != r1.ID {
		t.Fatalf("expected role %d, got %v", r1.ID, got.RoleID)
	}
	if got.Role == nil || got.Role.Name != "Support" {
		t.Errorf("expected preloaded role Support, got %+v", got.Role)
	}

	if err := s.AttachRoleToUser(ctx, r2, got); err != nil {
		t.Fatalf("attach r2: %v", err)
	}
	got, err = users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.RoleID == nil || *got.RoleID != r2.ID {
		t.Fatalf("expected role %d after reattach, got %v", r2.ID, got.RoleID)
	}
	if got.Role == nil || got.Role.Name != "Billing" {
		t.Errorf("expected preloaded role Billing, got %+v", got.Role)
	}
}

func TestAttachRoleToUser_DoesNotWriteRole(t *testing.T) {
	s, database := testSetup(t)
	users := NewUserStore(database)
	ctx := context.Background()

	role := mustCreateRole(t, s, "Support")
	user := mustCreateUser(t, users, "erin")

	// A stale in-memory copy must not overwrite the stored role.
	stale := *role
	stale.Name = "Mutated locally"
	if err := s.AttachRoleToUser(ctx, &stale, user); err != nil {
		t.Fatalf("attach: %v", err)
	}

	stored, err := s.GetRoleByID(ctx, role.ID)
	if err != nil {
		t.Fatalf("GetRoleByID: %v", err)
	}
	if stored.Name != "Support" {
		t.Errorf("role row was modified: %q", stored.Name)
	}
	if !stored.UpdatedAt.Equal(role.UpdatedAt) {
		t.Error("role updated_at should not change on attach")
	}
}

func TestAttachRoleToUser_FailureLeavesUserUntouched(t *testing.T) {
	s, database := testSetup(t)
	users := NewUserStore(database)

	role := mustCreateRole(t, s, "Support")
	user := mustCreateUser(t, users, "frank")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.AttachRoleToUser(ctx, role, user); err == nil {
		t.Fatal("expected error with a canceled context")
	}
	if user.RoleID != nil || user.Role != nil {
		t.Errorf("user changed after failed attach: role_id=%v role=%+v", user.RoleID, user.Role)
	}

	stored, err := users.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.RoleID != nil {
		t.Errorf("expected no stored role, got %d", *stored.RoleID)
	}
}
