// Package usecase implements the application services behind the REST
// handlers.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/ndenisov/chatd/internal/auth"
	"github.com/ndenisov/chatd/internal/domain"
	"github.com/ndenisov/chatd/internal/storage"
)

var validate = validator.New()

var (
	ErrUsernameTaken      = errors.New("username already registered")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("incorrect username or password")
)

// RegisterRequest carries a registration payload.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// TokenResponse is the login result in OAuth2 password-flow shape.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserService handles registration and authentication.
type UserService struct {
	users  storage.UserStore
	tokens *auth.TokenIssuer
	log    *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(users storage.UserStore, tokens *auth.TokenIssuer, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}
	return &UserService{users: users, tokens: tokens, log: log}
}

// Register creates a new account, rejecting duplicate usernames and emails
// with distinct errors.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (domain.User, error) {
	if err := validate.Struct(req); err != nil {
		return domain.User{}, err
	}

	if _, err := s.users.UserByUsername(ctx, req.Username); err == nil {
		return domain.User{}, ErrUsernameTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return domain.User{}, fmt.Errorf("lookup username: %w", err)
	}

	if _, err := s.users.UserByEmail(ctx, req.Email); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return domain.User{}, fmt.Errorf("lookup email: %w", err)
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, req.Username, req.Email, hashed)
	if errors.Is(err, storage.ErrAlreadyExists) {
		// Lost a race with a concurrent registration.
		return domain.User{}, ErrUsernameTaken
	}
	if err != nil {
		return domain.User{}, err
	}

	s.log.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Authenticate verifies credentials and issues an access token. The same
// error covers unknown usernames and wrong passwords.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (TokenResponse, error) {
	user, err := s.users.UserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return TokenResponse{}, ErrInvalidCredentials
	}
	if err != nil {
		return TokenResponse{}, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := auth.VerifyPassword(password, user.HashedPassword)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return TokenResponse{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("issue token: %w", err)
	}
	return TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// UserByUsername resolves the account behind a validated token subject.
func (s *UserService) UserByUsername(ctx context.Context, username string) (domain.User, error) {
	return s.users.UserByUsername(ctx, username)
}
