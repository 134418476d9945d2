package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sakif/snippet-hub/internal/apperror"
	"github.com/sakif/snippet-hub/internal/auth"
	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/repository"
)

// fakeUserRepo is an in-memory repository.UserRepository. A hand-written
// fake keeps these tests readable — you can see exactly what it does.
type fakeUserRepo struct {
	users  map[string]*model.User // keyed by internal ID
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) genID() string {
	f.nextID++
	return fmt.Sprintf("user-%d", f.nextID)
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.Conflict("email", "user with this email already exists")
		}
	}
	user.ID = f.genID()
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) UpsertGitHubUser(_ context.Context, user *model.User) error {
	for _, u := range f.users {
		if u.GitHubID != nil && user.GitHubID != nil && *u.GitHubID == *user.GitHubID {
			u.Email = user.Email
			u.Name = user.Name
			*user = *u
			return nil
		}
	}
	user.ID = f.genID()
	user.IsActive = true
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) UpdateUser(_ context.Context, user *model.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) ListUsers(_ context.Context, _ repository.ListOptions) ([]model.User, error) {
	result := []model.User{}
	for _, u := range f.users {
		result = append(result, *u)
	}
	return result, nil
}

// newTestAuthService wires an AuthService with the fake repo and real token
// and password services (low bcrypt cost so tests stay fast).
func newTestAuthService(t *testing.T) (*AuthService, *fakeUserRepo) {
	t.Helper()

	repo := newFakeUserRepo()
	tokens, err := auth.NewTokenService("test-secret-0123456789abcdef")
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	svc := NewAuthService(repo, tokens, auth.NewPasswordServiceForTest(4), testLogger())
	return svc, repo
}

func TestRegister_Success(t *testing.T) {
	svc, _ := newTestAuthService(t)

	user, err := svc.Register(context.Background(), "dev@Example.COM", "hunter22", "Dev")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if user.Email != "dev@example.com" {
		t.Errorf("Email = %q, want domain lowercased", user.Email)
	}
	if !user.IsActive {
		t.Error("new accounts should start active")
	}
	if user.IsStaff {
		t.Error("new accounts should not be staff")
	}
	if user.PasswordHash == "" || user.PasswordHash == "hunter22" {
		t.Error("password should be stored hashed")
	}
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "dev@example.com", "hunter22", ""); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	// Same address, different case in the domain — still a duplicate.
	_, err := svc.Register(ctx, "dev@EXAMPLE.com", "hunter22", "")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"empty email", "", "hunter22"},
		{"no at sign", "not-an-email", "hunter22"},
		{"no local part", "@example.com", "hunter22"},
		{"no domain", "dev@", "hunter22"},
		{"short password", "dev@example.com", "1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.email, tt.password, "")
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestLogin_Success(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "dev@example.com", "hunter22", "")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := svc.Login(ctx, "dev@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.Token == "" {
		t.Error("expected a token")
	}
	if result.User.ID != registered.ID {
		t.Errorf("User.ID = %q, want %q", result.User.ID, registered.ID)
	}

	// The token round-trips through validation to the same user.
	userID, err := svc.ValidateToken(result.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if userID != registered.ID {
		t.Errorf("ValidateToken() = %q, want %q", userID, registered.ID)
	}
}

func TestLogin_BadCredentialsAreIndistinguishable(t *testing.T) {
	svc, repo := newTestAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "dev@example.com", "hunter22", "")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	repo.users[registered.ID].IsActive = false

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown account", "nobody@example.com", "hunter22"},
		{"wrong password", "dev@example.com", "wrong"},
		{"deactivated account", "dev@example.com", "hunter22"},
	}

	var messages []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.email, tt.password)
			if !errors.Is(err, apperror.ErrUnauthorized) {
				t.Fatalf("error = %v, want ErrUnauthorized", err)
			}
			messages = append(messages, err.Error())
		})
	}
	for i := 1; i < len(messages); i++ {
		if messages[i] != messages[0] {
			t.Errorf("failure messages differ (%q vs %q); they must not leak which check failed",
				messages[0], messages[i])
		}
	}
}

func TestLoginOrRegisterGitHub_UpsertKeepsInternalID(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	gh := &auth.GitHubUser{ID: 42, Login: "octocat", Email: "octo@github.example"}

	first, err := svc.LoginOrRegisterGitHub(ctx, gh)
	if err != nil {
		t.Fatalf("first LoginOrRegisterGitHub() error = %v", err)
	}
	if first.User.Name != "octocat" {
		t.Errorf("Name = %q, want login used when display name is empty", first.User.Name)
	}

	gh.Name = "The Octocat"
	second, err := svc.LoginOrRegisterGitHub(ctx, gh)
	if err != nil {
		t.Fatalf("second LoginOrRegisterGitHub() error = %v", err)
	}
	if second.User.ID != first.User.ID {
		t.Errorf("internal ID changed across logins: %q vs %q", first.User.ID, second.User.ID)
	}
	if second.User.Name != "The Octocat" {
		t.Errorf("Name = %q, want refreshed profile", second.User.Name)
	}
}

func TestUpdateProfile_PartialFields(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "dev@example.com", "hunter22", "Old Name")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	updated, err := svc.UpdateProfile(ctx, registered.ID, ProfileUpdate{Name: strPtr("New Name")})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if updated.Name != "New Name" {
		t.Errorf("Name = %q, want %q", updated.Name, "New Name")
	}
	if updated.Email != "dev@example.com" {
		t.Errorf("Email = %q, should be immutable", updated.Email)
	}

	// Password change takes effect on the next login.
	if _, err := svc.UpdateProfile(ctx, registered.ID, ProfileUpdate{Password: strPtr("new-secret")}); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if _, err := svc.Login(ctx, "dev@example.com", "hunter22"); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("old password still accepted after change")
	}
	if _, err := svc.Login(ctx, "dev@example.com", "new-secret"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestUpdateProfile_ShortPasswordRejected(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "dev@example.com", "hunter22", "")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err = svc.UpdateProfile(ctx, registered.ID, ProfileUpdate{Password: strPtr("abc")})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestListUsers_StaffOnly(t *testing.T) {
	svc, repo := newTestAuthService(t)
	ctx := context.Background()

	regular, err := svc.Register(ctx, "dev@example.com", "hunter22", "")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	staff, err := svc.Register(ctx, "admin@example.com", "hunter22", "")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	repo.users[staff.ID].IsStaff = true

	if _, err := svc.ListUsers(ctx, regular.ID, 0, 0); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("regular user: error = %v, want ErrForbidden", err)
	}

	users, err := svc.ListUsers(ctx, staff.ID, 0, 0)
	if err != nil {
		t.Fatalf("staff ListUsers() error = %v", err)
	}
	if len(users) != 2 {
		t.Errorf("ListUsers() = %d users, want 2", len(users))
	}
}
