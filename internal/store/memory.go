package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nhle/todo-web/internal/model"
)

// MemoryStore is a process-local Store. Data is lost on restart; it exists
// for development and tests.
type MemoryStore struct {
	mu         sync.Mutex
	users      map[string]model.User
	tasks      []model.Task
	sessions   map[string]model.Session
	nextUserID int64
	nextTaskID int64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]model.User),
		sessions: make(map[string]model.Session),
	}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
func (m *MemoryStore) Close() error               { return nil }

func (m *MemoryStore) CreateUser(_ context.Context, user model.User) (model.User, error) {
	if strings.TrimSpace(user.Username) == "" {
		return model.User{}, fmt.Errorf("username must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.Username]; ok {
		return model.User{}, fmt.Errorf("creating user %q: %w", user.Username, ErrDuplicate)
	}
	m.nextUserID++
	user.ID = m.nextUserID
	m.users[user.Username] = user
	return user, nil
}

func (m *MemoryStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[username]
	if !ok {
		return nil, fmt.Errorf("getting user %q: %w", username, ErrNotFound)
	}
	return &user, nil
}

func (m *MemoryStore) CreateTask(_ context.Context, task model.Task) (model.Task, error) {
	if strings.TrimSpace(task.Text) == "" {
		return model.Task{}, fmt.Errorf("task text must not be empty")
	}
	if task.DateAdded.IsZero() {
		task.DateAdded = time.Now()
	}
	task.DateAdded = task.DateAdded.UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextTaskID++
	task.ID = m.nextTaskID
	m.tasks = append(m.tasks, task)
	return task, nil
}

func (m *MemoryStore) DeleteTask(_ context.Context, owner string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, t := range m.tasks {
		if t.ID == id && t.Owner == owner {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("task %d: %w", id, ErrNotFound)
}

func (m *MemoryStore) DeleteTasksByText(_ context.Context, owner, text string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.tasks[:0]
	var removed int64
	for _, t := range m.tasks {
		if t.Owner == owner && t.Text == text {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	m.tasks = kept
	return removed, nil
}

func (m *MemoryStore) ToggleTask(_ context.Context, owner string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.tasks {
		if m.tasks[i].ID == id && m.tasks[i].Owner == owner {
			m.tasks[i].Completed = !m.tasks[i].Completed
			return nil
		}
	}
	return fmt.Errorf("task %d: %w", id, ErrNotFound)
}

func (m *MemoryStore) SearchTasks(_ context.Context, filter TaskFilter) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	query := strings.ToLower(filter.Query)
	tasks := []model.Task{}
	for _, t := range m.tasks {
		if t.Owner != filter.Owner {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(t.Text), query) {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (m *MemoryStore) CreateSession(_ context.Context, session model.Session) error {
	if session.ID == "" {
		return fmt.Errorf("session id must not be empty")
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[session.ID]; ok {
		return fmt.Errorf("creating session: %w", ErrDuplicate)
	}
	m.sessions[session.ID] = session
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session: %w", ErrNotFound)
	}
	return &session, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("session: %w", ErrNotFound)
	}
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for id, session := range m.sessions {
		if session.Expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}
