package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/chitfund/internal/storage/sqlite"
)

func newTestAuthenticator(t *testing.T) *PasswordAuthenticator {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
}

func TestPasswordAuthenticator(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthenticator(t)

	user, err := a.Register(ctx, " Alice@Example.com", "Alice", "password123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("expected normalized email, got %q", user.Email)
	}

	tests := []struct {
		name     string
		register func() error
		want     error
	}{
		{"short password", func() error {
			_, err := a.Register(ctx, "bob@example.com", "Bob", "short")
			return err
		}, ErrWeakPassword},
		{"duplicate email", func() error {
			_, err := a.Register(ctx, "alice@example.com", "Alice 2", "password123")
			return err
		}, ErrEmailExists},
		{"bad email", func() error {
			_, err := a.Register(ctx, "not-an-email", "Bob", "password123")
			return err
		}, ErrInvalidEmail},
		{"missing name", func() error {
			_, err := a.Register(ctx, "bob@example.com", "  ", "password123")
			return err
		}, ErrMissingName},
		{"wrong password", func() error {
			_, err := a.Authenticate(ctx, "alice@example.com", "wrong-password")
			return err
		}, ErrInvalidCredentials},
		{"unknown email", func() error {
			_, err := a.Authenticate(ctx, "nobody@example.com", "password123")
			return err
		}, ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.register(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("valid login", func(t *testing.T) {
		got, err := a.Authenticate(ctx, "ALICE@example.com", "password123")
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if got.ID != user.ID {
			t.Errorf("expected %s, got %s", user.ID, got.ID)
		}
	})
}
