// Package auth provides caller identity: password accounts and session tokens.
package auth

import (
	"context"

	"github.com/mmynk/chitfund/internal/models"
)

// Authenticator verifies credentials and creates accounts.
// PasswordAuthenticator is the only implementation; the interface keeps the
// auth service independent of the credential type.
type Authenticator interface {
	// Register creates a new account. Returns ErrEmailExists when the email is taken.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the user owning the credentials, or ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	ValidateCredential(credential string) error
}
