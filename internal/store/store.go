package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/todo-web/internal/model"
)

var (
	// ErrNotFound is returned when a lookup, update or delete matches no row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate")
)

// TaskFilter scopes a task search to one owner and an optional
// case-insensitive substring of the task text.
type TaskFilter struct {
	Owner string
	Query string
}

// UserStore persists user identities.
type UserStore interface {
	// CreateUser inserts a user and returns it with its assigned ID.
	// A taken username yields ErrDuplicate.
	CreateUser(ctx context.Context, user model.User) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// TaskStore persists tasks. Every mutation is scoped by owner.
type TaskStore interface {
	// CreateTask inserts a task and returns it with its assigned ID.
	CreateTask(ctx context.Context, task model.Task) (model.Task, error)
	DeleteTask(ctx context.Context, owner string, id int64) error
	// DeleteTasksByText removes every task of owner whose text equals text
	// and reports how many were removed.
	DeleteTasksByText(ctx context.Context, owner, text string) (int64, error)
	ToggleTask(ctx context.Context, owner string, id int64) error
	// SearchTasks returns matching tasks in insertion order.
	SearchTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)
}

// SessionStore persists the session id to username mapping.
type SessionStore interface {
	CreateSession(ctx context.Context, session model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
	// DeleteExpiredSessions removes sessions whose expiry is at or before now.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Store is the complete persistence interface used by the application.
type Store interface {
	UserStore
	TaskStore
	SessionStore

	Ping(ctx context.Context) error
	Close() error
}

// Open returns the backend selected by cfg.Driver.
func Open(cfg model.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case model.DriverPostgres:
		return NewPostgresStore(cfg.PostgresDSN())
	case model.DriverMemory:
		return NewMemoryStore(), nil
	case model.DriverSQLite, "":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
