package domain

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer mints an opaque credential for an authenticated user. The
// actual token format lives outside the domain.
type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

// AuthService handles registration, login and profile lookup.
type AuthService struct {
	store  Store
	issuer TokenIssuer
}

// NewAuthService constructs an AuthService.
func NewAuthService(store Store, issuer TokenIssuer) *AuthService {
	return &AuthService{store: store, issuer: issuer}
}

// RegisterInput captures the registration payload.
type RegisterInput struct {
	Email    string
	Username string
	Name     string
	Password string
}

// LoginInput captures the login payload.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult reports the outcome of an auth operation. Expected failures are
// values; only infrastructure errors surface through the error return.
type AuthResult struct {
	Success      bool
	Token        string
	User         *User
	ErrorMessage string
}

// Register creates an account and issues a credential. A duplicate email is
// an expected failure, not an error.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &AuthResult{Success: false, ErrorMessage: "email is already registered"}, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     input.Username,
		Name:         input.Name,
		PasswordHash: string(hash),
		Role:         "user",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.issuer.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	return &AuthResult{Success: true, Token: token, User: &user}, nil
}

// Login verifies credentials and issues a token. A wrong email and a wrong
// password produce the same message so accounts cannot be enumerated.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return &AuthResult{Success: false, ErrorMessage: "invalid email or password"}, nil
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		return &AuthResult{Success: false, ErrorMessage: "invalid email or password"}, nil
	}

	if !user.IsActive {
		return &AuthResult{Success: false, ErrorMessage: "account is deactivated"}, nil
	}

	token, err := s.issuer.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	user.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateUser(ctx, *user); err != nil {
		// Login already succeeded; a failed last-login stamp is not fatal.
		log.Printf("auth: failed to stamp login for %s: %v", user.ID, err)
	}

	return &AuthResult{Success: true, Token: token, User: user}, nil
}

// CurrentUser resolves the caller's profile.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrDenied
	}
	return user, nil
}
