// Package session issues and resolves login sessions.
//
// A session is a row in the SessionStore keyed by a random UUID. The client
// holds an HS256-signed token whose jti is that UUID and whose subject is the
// username; both the signature and the server-side row must check out for a
// token to resolve. Sessions never expire unless a TTL is configured.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nhle/todo-web/internal/logging"
	"github.com/nhle/todo-web/internal/model"
	"github.com/nhle/todo-web/internal/store"
)

var (
	// ErrNoSession means the token is missing, invalid, unknown or expired.
	ErrNoSession = errors.New("no session")

	// ErrUnauthenticated is returned by Require when no session resolves.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// minKeySize is the shortest accepted signing key in bytes.
const minKeySize = 16

// Options configures a Manager.
type Options struct {
	// TTL bounds a session's lifetime. Zero means no expiry.
	TTL    time.Duration
	Logger *log.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Manager is the only component that creates or invalidates sessions.
type Manager struct {
	sessions store.SessionStore
	key      []byte
	ttl      time.Duration
	now      func() time.Time
	logger   *log.Logger
}

// NewManager returns a Manager signing tokens with key.
func NewManager(sessions store.SessionStore, key []byte, opts Options) (*Manager, error) {
	if len(key) < minKeySize {
		return nil, fmt.Errorf("session signing key must be at least %d bytes", minKeySize)
	}
	if opts.TTL < 0 {
		return nil, fmt.Errorf("session ttl must not be negative")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		sessions: sessions,
		key:      key,
		ttl:      opts.TTL,
		now:      now,
		logger:   logging.OrDiscard(opts.Logger),
	}, nil
}

// TTL returns the configured session lifetime (zero for none).
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Establish creates a session for username and returns its token.
func (m *Manager) Establish(ctx context.Context, username string) (string, error) {
	now := m.now().UTC()
	sess := model.Session{
		ID:        uuid.New().String(),
		Username:  username,
		CreatedAt: now,
	}

	claims := jwt.RegisteredClaims{
		ID:       sess.ID,
		Subject:  username,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if m.ttl > 0 {
		expires := now.Add(m.ttl)
		sess.ExpiresAt = &expires
		claims.ExpiresAt = jwt.NewNumericDate(expires)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}

	if err := m.sessions.CreateSession(ctx, sess); err != nil {
		return "", fmt.Errorf("storing session: %w", err)
	}

	m.logger.Debug("session established", "username", username, "session", sess.ID)
	return token, nil
}

// Resolve returns the username the token's session belongs to.
func (m *Manager) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrNoSession
	}

	claims, err := m.parse(token, true)
	if err != nil {
		m.logger.Debug("rejecting session token", "err", err)
		return "", ErrNoSession
	}

	sess, err := m.sessions.GetSession(ctx, claims.ID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("looking up session: %w", err)
	}

	if sess.Expired(m.now()) {
		if err := m.sessions.DeleteSession(ctx, sess.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			m.logger.Error("deleting expired session", "session", sess.ID, "err", err)
		}
		return "", ErrNoSession
	}
	if sess.Username != claims.Subject {
		m.logger.Warn("session subject mismatch", "session", sess.ID)
		return "", ErrNoSession
	}

	return sess.Username, nil
}

// Require resolves the token or fails with ErrUnauthenticated.
func (m *Manager) Require(ctx context.Context, token string) (string, error) {
	username, err := m.Resolve(ctx, token)
	if errors.Is(err, ErrNoSession) {
		return "", fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	return username, err
}

// Destroy invalidates the token's session. Tokens that do not name a
// stored session are ignored.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	// An expired token still identifies the row to remove.
	claims, err := m.parse(token, false)
	if err != nil {
		return nil
	}

	err = m.sessions.DeleteSession(ctx, claims.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("destroying session: %w", err)
	}

	m.logger.Debug("session destroyed", "username", claims.Subject, "session", claims.ID)
	return nil
}

// PurgeExpired removes expired sessions from the store.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.sessions.DeleteExpiredSessions(ctx, m.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.logger.Info("purged expired sessions", "count", n)
	}
	return n, nil
}

func (m *Manager) parse(token string, validate bool) (*jwt.RegisteredClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if !validate {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.key, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, errors.New("token missing jti or sub")
	}
	return claims, nil
}
