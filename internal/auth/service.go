// Package auth registers users and verifies login attempts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/nhle/todo-web/internal/logging"
	"github.com/nhle/todo-web/internal/model"
	"github.com/nhle/todo-web/internal/store"
)

var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrMissingCredentials = errors.New("username and password are required")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
)

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// SessionEstablisher creates a session for a username that just logged in
// and returns the token to deliver to the client.
type SessionEstablisher interface {
	Establish(ctx context.Context, username string) (string, error)
}

// Options configures a Service.
type Options struct {
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	Logger     *log.Logger
}

// Service implements registration and login against a UserStore.
type Service struct {
	users    store.UserStore
	sessions SessionEstablisher
	cost     int
	logger   *log.Logger

	// dummyHash is compared against when the username is unknown so that
	// both failure paths cost one bcrypt comparison.
	dummyHash []byte
}

// NewService returns a Service. It computes one bcrypt hash up front.
func NewService(users store.UserStore, sessions SessionEstablisher, opts Options) (*Service, error) {
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("preparing password hasher: %w", err)
	}

	return &Service{
		users:     users,
		sessions:  sessions,
		cost:      cost,
		logger:    logging.OrDiscard(opts.Logger),
		dummyHash: dummy,
	}, nil
}

// Register creates a user with a bcrypt hash of password.
func (s *Service) Register(ctx context.Context, username, password string) (model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.User{}, ErrMissingCredentials
	}
	if len(password) > maxPasswordBytes {
		return model.User{}, ErrPasswordTooLong
	}

	_, err := s.users.GetUserByUsername(ctx, username)
	if err == nil {
		return model.User{}, ErrDuplicateUsername
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.User{}, fmt.Errorf("checking username: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return model.User{}, fmt.Errorf("hashing password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, model.User{
		Username:     username,
		PasswordHash: string(hash),
	})
	if errors.Is(err, store.ErrDuplicate) {
		// Lost a race with a concurrent registration.
		return model.User{}, ErrDuplicateUsername
	}
	if err != nil {
		return model.User{}, fmt.Errorf("registering user: %w", err)
	}

	s.logger.Info("user registered", "username", username, "id", user.ID)
	return user, nil
}

// Login verifies the credentials and, on success, establishes a session
// and returns its token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)

	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.logger.Warn("login failed", "username", username, "reason", "unknown user")
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("looking up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("login failed", "username", username, "reason", "password mismatch")
		return "", ErrInvalidCredentials
	}

	token, err := s.sessions.Establish(ctx, user.Username)
	if err != nil {
		return "", fmt.Errorf("establishing session: %w", err)
	}

	s.logger.Info("user logged in", "username", user.Username)
	return token, nil
}
