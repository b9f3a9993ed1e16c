package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nhle/todo-web/internal/model"
	"github.com/nhle/todo-web/internal/store"
	"github.com/nhle/todo-web/tests/testutil"
)

// backends returns a constructor for every Store implementation under test.
func backends() map[string]func(t *testing.T) store.Store {
	return map[string]func(t *testing.T) store.Store{
		"sqlite": func(t *testing.T) store.Store { return testutil.NewTestStore(t) },
		"memory": func(t *testing.T) store.Store { return store.NewMemoryStore() },
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s store.Store)) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			fn(t, newStore(t))
		})
	}
}

func mustCreateTask(t *testing.T, s store.Store, owner, text string) model.Task {
	t.Helper()
	task, err := s.CreateTask(context.Background(), model.Task{Text: text, Owner: owner})
	if err != nil {
		t.Fatalf("CreateTask(%q): %v", text, err)
	}
	return task
}

func search(t *testing.T, s store.Store, owner, query string) []model.Task {
	t.Helper()
	tasks, err := s.SearchTasks(context.Background(), store.TaskFilter{Owner: owner, Query: query})
	if err != nil {
		t.Fatalf("SearchTasks(%q, %q): %v", owner, query, err)
	}
	return tasks
}

func TestCreateUserUniqueness(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()

		first, err := s.CreateUser(ctx, model.User{Username: "alice", PasswordHash: "h1"})
		if err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		if first.ID == 0 {
			t.Error("expected a store-assigned user ID")
		}

		_, err = s.CreateUser(ctx, model.User{Username: "alice", PasswordHash: "h2"})
		if !errors.Is(err, store.ErrDuplicate) {
			t.Fatalf("second CreateUser error = %v, want ErrDuplicate", err)
		}

		got, err := s.GetUserByUsername(ctx, "alice")
		if err != nil {
			t.Fatalf("GetUserByUsername: %v", err)
		}
		if got.PasswordHash != "h1" {
			t.Errorf("PasswordHash = %q, want h1 (first registration kept)", got.PasswordHash)
		}
	})
}

func TestGetUserNotFound(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		_, err := s.GetUserByUsername(context.Background(), "ghost")
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestCreateTaskAssignsIncreasingIDs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		a := mustCreateTask(t, s, "alice", "one")
		b := mustCreateTask(t, s, "alice", "two")
		if err := s.DeleteTask(context.Background(), "alice", b.ID); err != nil {
			t.Fatalf("DeleteTask: %v", err)
		}
		c := mustCreateTask(t, s, "alice", "three")

		if !(a.ID < b.ID && b.ID < c.ID) {
			t.Errorf("ids not monotonic after delete: %d, %d, %d", a.ID, b.ID, c.ID)
		}
		if a.Completed {
			t.Error("new task should not be completed")
		}
		if a.DateAdded.IsZero() {
			t.Error("DateAdded not set")
		}
	})
}

func TestCreateTaskRejectsEmptyText(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		if _, err := s.CreateTask(context.Background(), model.Task{Text: "  ", Owner: "a"}); err == nil {
			t.Fatal("expected error for blank task text")
		}
	})
}

func TestSearchTasks(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		mustCreateTask(t, s, "alice", "Buy milk")
		mustCreateTask(t, s, "alice", "Write report")
		mustCreateTask(t, s, "alice", "100% done_ish")
		mustCreateTask(t, s, "alice", "Ärger mit Über")
		mustCreateTask(t, s, "bob", "Buy milk too")

		tests := []struct {
			owner string
			query string
			want  []string
		}{
			{"alice", "", []string{"Buy milk", "Write report", "100% done_ish", "Ärger mit Über"}},
			{"alice", "milk", []string{"Buy milk"}},
			{"alice", "MILK", []string{"Buy milk"}},
			{"alice", "%", []string{"100% done_ish"}},
			{"alice", "_", []string{"100% done_ish"}},
			{"alice", "ärger", []string{"Ärger mit Über"}},
			{"alice", "ÄRGER", []string{"Ärger mit Über"}},
			{"alice", "über", []string{"Ärger mit Über"}},
			{"alice", "MIT üBER", []string{"Ärger mit Über"}},
			{"alice", "nothing", nil},
			{"bob", "", []string{"Buy milk too"}},
			{"carol", "", nil},
		}

		for _, tt := range tests {
			got := search(t, s, tt.owner, tt.query)
			if len(got) != len(tt.want) {
				t.Errorf("Search(%q, %q) returned %d tasks, want %d", tt.owner, tt.query, len(got), len(tt.want))
				continue
			}
			for i := range got {
				if got[i].Text != tt.want[i] {
					t.Errorf("Search(%q, %q)[%d] = %q, want %q", tt.owner, tt.query, i, got[i].Text, tt.want[i])
				}
				if got[i].Owner != tt.owner {
					t.Errorf("Search(%q, %q)[%d] owner = %q", tt.owner, tt.query, i, got[i].Owner)
				}
			}
		}
	})
}

func TestToggleTask(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		task := mustCreateTask(t, s, "alice", "flip me")

		if err := s.ToggleTask(ctx, "alice", task.ID); err != nil {
			t.Fatalf("ToggleTask: %v", err)
		}
		if got := search(t, s, "alice", ""); !got[0].Completed {
			t.Fatal("task not completed after first toggle")
		}
		if err := s.ToggleTask(ctx, "alice", task.ID); err != nil {
			t.Fatalf("ToggleTask: %v", err)
		}
		if got := search(t, s, "alice", ""); got[0].Completed {
			t.Fatal("task completed after second toggle")
		}

		if err := s.ToggleTask(ctx, "bob", task.ID); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("toggling another user's task: error = %v, want ErrNotFound", err)
		}
		if err := s.ToggleTask(ctx, "alice", 9999); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("toggling missing task: error = %v, want ErrNotFound", err)
		}
	})
}

func TestDeleteTask(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		keep := mustCreateTask(t, s, "alice", "keep")
		drop := mustCreateTask(t, s, "alice", "drop")

		if err := s.DeleteTask(ctx, "bob", drop.ID); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("deleting another user's task: error = %v, want ErrNotFound", err)
		}
		if err := s.DeleteTask(ctx, "alice", drop.ID); err != nil {
			t.Fatalf("DeleteTask: %v", err)
		}
		if err := s.DeleteTask(ctx, "alice", drop.ID); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("second DeleteTask: error = %v, want ErrNotFound", err)
		}

		got := search(t, s, "alice", "")
		if len(got) != 1 || got[0].ID != keep.ID {
			t.Fatalf("remaining tasks = %+v, want only %d", got, keep.ID)
		}
	})
}

func TestDeleteTasksByText(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		mustCreateTask(t, s, "alice", "dup")
		mustCreateTask(t, s, "alice", "dup")
		mustCreateTask(t, s, "alice", "Dup")
		mustCreateTask(t, s, "bob", "dup")

		n, err := s.DeleteTasksByText(ctx, "alice", "dup")
		if err != nil {
			t.Fatalf("DeleteTasksByText: %v", err)
		}
		if n != 2 {
			t.Errorf("removed %d tasks, want 2", n)
		}
		if got := search(t, s, "alice", ""); len(got) != 1 || got[0].Text != "Dup" {
			t.Errorf("alice tasks = %+v, want only Dup", got)
		}
		if got := search(t, s, "bob", ""); len(got) != 1 {
			t.Errorf("bob's task was removed")
		}
	})
}

func TestSessions(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		now := time.Now().UTC()
		past := now.Add(-time.Hour)
		future := now.Add(time.Hour)

		sessions := []model.Session{
			{ID: "forever", Username: "alice", CreatedAt: now},
			{ID: "expired", Username: "alice", CreatedAt: now, ExpiresAt: &past},
			{ID: "live", Username: "bob", CreatedAt: now, ExpiresAt: &future},
		}
		for _, sess := range sessions {
			if err := s.CreateSession(ctx, sess); err != nil {
				t.Fatalf("CreateSession(%s): %v", sess.ID, err)
			}
		}

		got, err := s.GetSession(ctx, "live")
		if err != nil {
			t.Fatalf("GetSession: %v", err)
		}
		if got.Username != "bob" || got.ExpiresAt == nil {
			t.Errorf("GetSession(live) = %+v", got)
		}

		n, err := s.DeleteExpiredSessions(ctx, now)
		if err != nil {
			t.Fatalf("DeleteExpiredSessions: %v", err)
		}
		if n != 1 {
			t.Errorf("purged %d sessions, want 1", n)
		}
		if _, err := s.GetSession(ctx, "expired"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expired session still present: %v", err)
		}
		if _, err := s.GetSession(ctx, "forever"); err != nil {
			t.Errorf("session without expiry was purged: %v", err)
		}

		if err := s.DeleteSession(ctx, "forever"); err != nil {
			t.Fatalf("DeleteSession: %v", err)
		}
		if err := s.DeleteSession(ctx, "forever"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("second DeleteSession: error = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLiteStoreReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo.db")

	s, err := store.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	mustCreateTask(t, s, "alice", "persisted")
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Migrations must be skipped on the second open.
	s, err = store.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer s.Close()

	got := search(t, s, "alice", "")
	if len(got) != 1 || got[0].Text != "persisted" {
		t.Fatalf("tasks after reopen = %+v", got)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	s, err := store.Open(model.DatabaseConfig{Driver: model.DriverMemory})
	if err != nil {
		t.Fatalf("Open(memory): %v", err)
	}
	if _, ok := s.(*store.MemoryStore); !ok {
		t.Errorf("Open(memory) returned %T", s)
	}

	if _, err := store.Open(model.DatabaseConfig{Driver: "oracle"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}
