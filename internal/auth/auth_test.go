package auth

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/wikisyllabus/wikisyllabus/internal/database"
)

func newTestService(t *testing.T) (*AuthService, *database.DB) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewAuthService(db), db
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.Register(Registration{
		Username: "alice",
		Email:    "a@x.com",
		Password: "correct horse",
		Role:     database.RoleStudent,
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.PasswordHash == "correct horse" {
		t.Fatal("password stored in plain text")
	}

	authed, err := svc.Authenticate("a@x.com", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if authed == nil || authed.ID != user.ID {
		t.Fatalf("expected authenticated user %d, got %+v", user.ID, authed)
	}

	wrong, err := svc.Authenticate("a@x.com", "wrong password")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if wrong != nil {
		t.Error("expected nil user for wrong password")
	}

	unknown, err := svc.Authenticate("nobody@x.com", "whatever")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if unknown != nil {
		t.Error("expected nil user for unknown email")
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []struct {
		name string
		reg  Registration
	}{
		{"bad email", Registration{Username: "alice", Email: "not-an-email", Password: "long enough", Role: "student"}},
		{"short password", Registration{Username: "alice", Email: "a@x.com", Password: "short", Role: "student"}},
		{"bad role", Registration{Username: "alice", Email: "a@x.com", Password: "long enough", Role: "admin"}},
		{"missing username", Registration{Email: "a@x.com", Password: "long enough", Role: "student"}},
	}

	for _, tc := range cases {
		if _, err := svc.Register(tc.reg); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)

	reg := Registration{Username: "alice", Email: "a@x.com", Password: "correct horse", Role: "student"}
	if _, err := svc.Register(reg); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	reg.Username = "impostor"
	_, err := svc.Register(reg)
	if !errors.Is(err, database.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	svc, db := newTestService(t)

	user, err := db.CreateUser("alice", "a@x.com", "hash", database.RoleStudent)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	session, err := svc.CreateSession(user.ID)
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected non-empty session id")
	}

	got, err := svc.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession returned error: %v", err)
	}
	if got == nil || got.UserID != user.ID {
		t.Fatalf("unexpected session: %+v", got)
	}

	if err := svc.DeleteSession(session.ID); err != nil {
		t.Fatalf("DeleteSession returned error: %v", err)
	}

	gone, err := svc.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession returned error: %v", err)
	}
	if gone != nil {
		t.Errorf("expected nil after delete, got %+v", gone)
	}
}

func TestGetSession_Expired(t *testing.T) {
	svc, db := newTestService(t)

	user, err := db.CreateUser("alice", "a@x.com", "hash", database.RoleStudent)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	session, err := svc.CreateSession(user.ID)
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}

	// Force the expiry into the past
	if _, err := db.Exec("UPDATE sessions SET expires_at = ? WHERE id = ?", time.Now().Add(-time.Hour), session.ID); err != nil {
		t.Fatalf("failed to expire session: %v", err)
	}

	got, err := svc.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession returned error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for expired session, got %+v", got)
	}
}
