package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nhle/todo-web/internal/model"
)

// CreateUser inserts a new user and returns it with the assigned ID.
func (s *SQLStore) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	if strings.TrimSpace(user.Username) == "" {
		return model.User{}, fmt.Errorf("username must not be empty")
	}

	err := s.db.QueryRowxContext(ctx,
		s.q("INSERT INTO users (username, password_hash) VALUES (?, ?) RETURNING id"),
		user.Username, user.PasswordHash,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, fmt.Errorf("creating user %q: %w", user.Username, ErrDuplicate)
		}
		return model.User{}, fmt.Errorf("creating user %q: %w", user.Username, err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by its unique username.
func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := s.db.GetContext(ctx, &user,
		s.q("SELECT id, username, password_hash FROM users WHERE username = ?"),
		username,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %q: %w", username, err)
	}
	return &user, nil
}
