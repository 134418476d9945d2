// Package service contains the business logic layer.
//
// Handlers parse HTTP and translate errors to status codes; services enforce
// the rules (validation, ownership, composition); repositories talk to the
// database. Services depend on the repository interfaces, never on sqlite
// directly, so tests swap in mocks.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/snippet-hub/internal/apperror"
	"github.com/sakif/snippet-hub/internal/auth"
	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/repository"
)

const MinPasswordLength = 5

// AuthService owns registration, login (password and GitHub OAuth), profile
// management, and the staff-only user listing.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a password-based account. The email is normalized before
// the uniqueness check so "a@EXAMPLE.com" and "a@example.com" collide.
// New accounts start active and non-staff.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*model.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(name),
		IsActive:     true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// Login verifies credentials and issues a JWT. A missing account, a wrong
// password, and a deactivated account all produce the same Unauthorized
// error — the response never reveals which check failed.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	credentialErr := apperror.Unauthorized("unable to authenticate with provided credentials")

	email, err := normalizeEmail(email)
	if err != nil {
		return nil, credentialErr
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, credentialErr
	}
	if !user.IsActive || user.PasswordHash == "" {
		return nil, credentialErr
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, credentialErr
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback: upsert the user
// keyed on their GitHub ID, then issue a JWT. First login inserts, later
// logins refresh the profile, the internal ID stays stable either way.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	name := ghUser.Name
	if name == "" {
		name = ghUser.Login
	}
	user := &model.User{
		GitHubID: &ghUser.ID,
		Email:    ghUser.Email,
		Name:     name,
	}
	if err := s.users.UpsertGitHubUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.Int64("githubID", ghUser.ID),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns the user for the given internal ID. Used by the
// /api/user/me handler after the middleware validates the JWT.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}
	return s.users.GetUserByID(ctx, id)
}

// ProfileUpdate carries the optional profile fields for UpdateProfile.
// A nil field is left unchanged. Email is immutable after registration.
type ProfileUpdate struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

// UpdateProfile applies a partial update to the caller's own account.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Password != nil {
		if len(*in.Password) < MinPasswordLength {
			return nil, apperror.ValidationFailed("password",
				fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
		}
		hash, err := s.passwords.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("service/auth: hashing password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", slog.String("userID", user.ID))
	return user, nil
}

// ListUsers returns all accounts. Only staff may call it; everyone else gets
// Forbidden regardless of what exists.
func (s *AuthService) ListUsers(ctx context.Context, requesterID string, limit, offset int) ([]model.User, error) {
	requester, err := s.users.GetUserByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if !requester.IsStaff {
		return nil, apperror.Forbidden("staff access required")
	}

	return s.users.ListUsers(ctx, repository.ListOptions{Limit: limit, Offset: offset})
}

// ValidateToken validates a JWT string and returns the userID it encodes.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}

// normalizeEmail trims the address, lowercases the domain part (the local
// part is case-sensitive per RFC, so it is left alone), and rejects anything
// without a local part and a domain.
func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", apperror.ValidationFailed("email", "email address is required")
	}

	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", apperror.ValidationFailed("email", "enter a valid email address")
	}

	return email[:at+1] + strings.ToLower(email[at+1:]), nil
}
