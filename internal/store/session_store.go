package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/todo-web/internal/model"
)

// CreateSession persists a new session.
func (s *SQLStore) CreateSession(ctx context.Context, session model.Session) error {
	if session.ID == "" {
		return fmt.Errorf("session id must not be empty")
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	var expiresAt *time.Time
	if session.ExpiresAt != nil {
		t := session.ExpiresAt.UTC()
		expiresAt = &t
	}

	_, err := s.db.ExecContext(ctx,
		s.q("INSERT INTO sessions (id, username, created_at, expires_at) VALUES (?, ?, ?, ?)"),
		session.ID, session.Username, session.CreatedAt.UTC(), expiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("creating session: %w", ErrDuplicate)
		}
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID. Expiry is not checked here.
func (s *SQLStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := s.db.GetContext(ctx, &session,
		s.q("SELECT id, username, created_at, expires_at FROM sessions WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return &session, nil
}

// DeleteSession removes a session by ID.
func (s *SQLStore) DeleteSession(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.q("DELETE FROM sessions WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("session: %w", ErrNotFound)
	}
	return nil
}

// DeleteExpiredSessions removes every session that expired at or before now.
func (s *SQLStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		s.q("DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at <= ?"),
		now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("purging expired sessions: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
