package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/auth"
	"github.com/mmynk/chitfund/internal/storage"
	"github.com/mmynk/chitfund/pkg/api"
	"github.com/mmynk/chitfund/pkg/api/apiconnect"
)

var _ apiconnect.AuthServiceHandler = (*AuthService)(nil)

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         storage.UserStore
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, users storage.UserStore, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
		logger:        logger,
	}
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[api.RegisterRequest]) (*connect.Response[api.Result[api.Session]], error) {
	s.logger.Info("Register request", "email", req.Msg.Email)

	user, err := s.authenticator.Register(ctx, req.Msg.Email, req.Msg.DisplayName, req.Msg.Password)
	if err != nil {
		s.logger.Warn("Registration failed", "email", req.Msg.Email, "error", err)
		return fail[api.Session](registrationError(err), "Registration failed")
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		return fail[api.Session](fmt.Errorf("generate token for %s: %w", user.ID, err), "Registration failed")
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	return succeed(api.Session{User: toAPIUser(user), Token: token}, "Account created")
}

func registrationError(err error) error {
	switch {
	case errors.Is(err, auth.ErrEmailExists):
		return apperr.AlreadyExists("Email already registered")
	case errors.Is(err, auth.ErrWeakPassword):
		return apperr.Invalid("Password must be at least 8 characters")
	case errors.Is(err, auth.ErrInvalidEmail):
		return apperr.Invalid("A valid email is required")
	case errors.Is(err, auth.ErrMissingName):
		return apperr.Invalid("Display name is required")
	}
	return err
}

// Login authenticates a user and returns a session token.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.Result[api.Session]], error) {
	s.logger.Info("Login request", "email", req.Msg.Email)

	user, err := s.authenticator.Authenticate(ctx, req.Msg.Email, req.Msg.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.logger.Warn("Login failed", "email", req.Msg.Email)
		return fail[api.Session](apperr.Unauthenticated("Invalid email or password"), "Login failed")
	}
	if err != nil {
		return fail[api.Session](err, "Login failed")
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		return fail[api.Session](fmt.Errorf("generate token for %s: %w", user.ID, err), "Login failed")
	}

	s.logger.Info("User logged in", "user_id", user.ID)
	return succeed(api.Session{User: toAPIUser(user), Token: token}, "")
}

// GetCurrentUser returns the caller's account.
func (s *AuthService) GetCurrentUser(ctx context.Context, req *connect.Request[api.GetCurrentUserRequest]) (*connect.Response[api.Result[api.User]], error) {
	userID, err := requireCaller(ctx, msgUnauthorized)
	if err != nil {
		return fail[api.User](err, msgUnauthorized)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		// Token for a deleted account.
		return fail[api.User](apperr.Unauthenticated(msgUnauthorized), msgUnauthorized)
	}
	if err != nil {
		return fail[api.User](err, "Failed to load user")
	}
	return succeed(toAPIUser(user), "")
}
