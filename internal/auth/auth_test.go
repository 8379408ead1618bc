package auth

import (
	"errors"
	"testing"
	"time"

	gokeyring "github.com/zalando/go-keyring"
	"golang.org/x/crypto/bcrypt"

	"github.com/julianstephens/tripkit/internal/constants"
	"github.com/julianstephens/tripkit/internal/keyring"
	"github.com/julianstephens/tripkit/internal/localstore"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestManager(t *testing.T) (*Manager, *localstore.Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := localstore.New(localstore.NewMemoryKV())
	return NewManager(store, Options{Cost: bcrypt.MinCost, Now: clock.Now}), store, clock
}

func TestRegisterAndLogin(t *testing.T) {
	m, _, _ := newTestManager(t)

	user, err := m.Register("  Alice@Example.com ", "secret1", "Alice")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Email != "alice@example.com" || user.ID == "" {
		t.Errorf("unexpected user %+v", user)
	}

	current, err := m.CurrentUser()
	if err != nil || current.ID != user.ID {
		t.Fatalf("CurrentUser() after register = %+v, %v", current, err)
	}

	if err := m.Logout(); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if m.UserID() != "" {
		t.Errorf("UserID() after logout should be empty")
	}

	if _, err := m.Login("alice@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() with wrong password error = %v", err)
	}
	got, err := m.Login("ALICE@example.com", "secret1")
	if err != nil || got.ID != user.ID {
		t.Errorf("Login() = %+v, %v", got, err)
	}
	if m.UserID() != user.ID {
		t.Errorf("UserID() = %q, want %q", m.UserID(), user.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	m, _, _ := newTestManager(t)
	if _, err := m.Register("bob@example.com", "hunter2", ""); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"missing email", "", "secret1", ErrInvalidEmail},
		{"malformed email", "not-an-email", "secret1", ErrInvalidEmail},
		{"display name form", "Bob <bob2@example.com>", "secret1", ErrInvalidEmail},
		{"short password", "carol@example.com", "12345", ErrWeakPassword},
		{"duplicate email", "BOB@example.com", "secret1", ErrEmailTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Register(tt.email, tt.password, ""); !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegisterDefaultsName(t *testing.T) {
	m, _, _ := newTestManager(t)
	u, err := m.Register("dana@example.com", "secret1", "  ")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if u.Name != "dana" {
		t.Errorf("Name = %q, want dana", u.Name)
	}
}

func TestEnsureDemo(t *testing.T) {
	m, _, _ := newTestManager(t)
	if err := m.EnsureDemo(); err != nil {
		t.Fatalf("EnsureDemo() error = %v", err)
	}
	if err := m.EnsureDemo(); err != nil {
		t.Fatalf("second EnsureDemo() error = %v", err)
	}
	users, err := m.Users()
	if err != nil {
		t.Fatalf("Users() error = %v", err)
	}
	if len(users) != 1 || users[0].Email != constants.DemoEmail {
		t.Fatalf("Users() = %+v", users)
	}
	if _, err := m.Login(constants.DemoEmail, constants.DemoPassword); err != nil {
		t.Errorf("demo login failed: %v", err)
	}
}

func TestSessionExpires(t *testing.T) {
	m, store, clock := newTestManager(t)
	if _, err := m.Register("erin@example.com", "secret1", ""); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	clock.now = clock.now.Add(constants.SessionTTL - time.Minute)
	if m.UserID() == "" {
		t.Fatalf("session should still be valid before the TTL")
	}

	clock.now = clock.now.Add(2 * time.Minute)
	if _, err := m.CurrentUser(); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("CurrentUser() after expiry error = %v", err)
	}
	var token string
	if ok, _ := store.GetJSON(constants.KeySession, &token); ok {
		t.Errorf("expired session should be cleared")
	}
}

func TestTamperedSessionIsRejected(t *testing.T) {
	m, store, _ := newTestManager(t)
	if _, err := m.Register("fay@example.com", "secret1", ""); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	var token string
	if _, err := store.GetJSON(constants.KeySession, &token); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if err := store.SetJSON(constants.KeySession, token+"x"); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}
	if _, err := m.CurrentUser(); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("CurrentUser() with tampered token error = %v", err)
	}
}

func TestSigningSecretPersists(t *testing.T) {
	store := localstore.New(localstore.NewMemoryKV())
	first := NewManager(store, Options{Cost: bcrypt.MinCost})
	if _, err := first.Register("gus@example.com", "secret1", ""); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// A fresh manager over the same store must accept the existing session.
	second := NewManager(store, Options{Cost: bcrypt.MinCost})
	if second.UserID() == "" {
		t.Errorf("session should survive a new Manager")
	}
}

func TestSigningSecretInKeyring(t *testing.T) {
	gokeyring.MockInit()
	store := localstore.New(localstore.NewMemoryKV())
	m := NewManager(store, Options{UseKeyring: true, Cost: bcrypt.MinCost})
	if _, err := m.Register("hal@example.com", "secret1", ""); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, err := keyring.Get(keyring.SessionSecret); err != nil {
		t.Errorf("secret should be stored in keyring: %v", err)
	}
	var stored string
	if ok, _ := store.GetJSON(constants.KeySessionSecret, &stored); ok {
		t.Errorf("secret should not be written to the store when the keyring works")
	}
}
