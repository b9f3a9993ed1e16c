package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/nhle/todo-web/internal/model"
	"github.com/nhle/todo-web/internal/store"
	"github.com/nhle/todo-web/tests/testutil"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(testutil.NewTestStore(t), nil)
}

func mustAdd(t *testing.T, svc *Service, owner, text string) model.Task {
	t.Helper()
	task, err := svc.Add(context.Background(), owner, text)
	if err != nil {
		t.Fatalf("Add(%q, %q): %v", owner, text, err)
	}
	return task
}

func mustSearch(t *testing.T, svc *Service, owner, q string) []model.Task {
	t.Helper()
	tasks, err := svc.Search(context.Background(), owner, q)
	if err != nil {
		t.Fatalf("Search(%q, %q): %v", owner, q, err)
	}
	return tasks
}

func TestAddRejectsBlank(t *testing.T) {
	svc := newTestService(t)
	for _, text := range []string{"", "   ", "\t\n"} {
		if _, err := svc.Add(context.Background(), "alice", text); !errors.Is(err, ErrEmptyTask) {
			t.Errorf("Add(%q) error = %v, want ErrEmptyTask", text, err)
		}
	}
	if got := mustSearch(t, svc, "alice", ""); len(got) != 0 {
		t.Errorf("blank adds created tasks: %+v", got)
	}
}

func TestAddSearchRoundTrip(t *testing.T) {
	svc := newTestService(t)
	added := mustAdd(t, svc, "alice", "Buy milk")

	if added.Completed {
		t.Error("new task is completed")
	}
	if added.Owner != "alice" {
		t.Errorf("Owner = %q", added.Owner)
	}

	for _, q := range []string{"milk", "MILK", "mIlK", "Buy milk", ""} {
		got := mustSearch(t, svc, "alice", q)
		if len(got) != 1 || got[0].Text != "Buy milk" || got[0].Completed {
			t.Errorf("Search(%q) = %+v, want the open Buy milk task", q, got)
		}
	}
}

func TestTaskIsolation(t *testing.T) {
	svc := newTestService(t)
	mustAdd(t, svc, "alice", "alice secret plan")
	bobTask := mustAdd(t, svc, "bob", "bob chores")

	for _, q := range []string{"", "alice", "secret", "plan", "a"} {
		for _, task := range mustSearch(t, svc, "bob", q) {
			if task.Owner != "bob" {
				t.Errorf("bob's Search(%q) returned %+v", q, task)
			}
		}
	}

	// Alice cannot delete or toggle bob's task.
	ctx := context.Background()
	if err := svc.Toggle(ctx, "alice", bobTask.ID); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if err := svc.Delete(ctx, "alice", bobTask.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got := mustSearch(t, svc, "bob", "")
	if len(got) != 1 || got[0].Completed {
		t.Errorf("bob's task changed by alice: %+v", got)
	}
}

func TestTogglePairing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	task := mustAdd(t, svc, "alice", "flip")

	if err := svc.Toggle(ctx, "alice", task.ID); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if got := mustSearch(t, svc, "alice", ""); !got[0].Completed {
		t.Fatal("not completed after one toggle")
	}
	if err := svc.Toggle(ctx, "alice", task.ID); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if got := mustSearch(t, svc, "alice", ""); got[0].Completed {
		t.Fatal("completed after two toggles")
	}
}

func TestToggleMissingIsNoop(t *testing.T) {
	svc := newTestService(t)
	mustAdd(t, svc, "alice", "untouched")

	if err := svc.Toggle(context.Background(), "alice", 424242); err != nil {
		t.Fatalf("Toggle(missing) error = %v, want nil", err)
	}
	if got := mustSearch(t, svc, "alice", ""); got[0].Completed {
		t.Error("unrelated task toggled")
	}
}

func TestDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	a := mustAdd(t, svc, "alice", "one")
	b := mustAdd(t, svc, "alice", "two")

	if err := svc.Delete(ctx, "alice", a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got := mustSearch(t, svc, "alice", "")
	if len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("after delete = %+v, want only task %d", got, b.ID)
	}

	if err := svc.Delete(ctx, "alice", 999); err != nil {
		t.Fatalf("Delete(missing) error = %v, want nil", err)
	}
	if got := mustSearch(t, svc, "alice", ""); len(got) != 1 {
		t.Errorf("deleting a missing id changed the list: %+v", got)
	}
}

func TestDeleteByText(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustAdd(t, svc, "alice", "same")
	mustAdd(t, svc, "alice", "same")
	mustAdd(t, svc, "alice", "other")

	if err := svc.DeleteByText(ctx, "alice", "same"); err != nil {
		t.Fatalf("DeleteByText: %v", err)
	}
	got := mustSearch(t, svc, "alice", "")
	if len(got) != 1 || got[0].Text != "other" {
		t.Fatalf("after DeleteByText = %+v", got)
	}
	if err := svc.DeleteByText(ctx, "alice", "absent"); err != nil {
		t.Errorf("DeleteByText(absent) error = %v, want nil", err)
	}
}

func TestSearchPreservesInsertionOrder(t *testing.T) {
	svc := newTestService(t)
	texts := []string{"charlie task", "alpha task", "bravo task"}
	for _, text := range texts {
		mustAdd(t, svc, "alice", text)
	}

	got := mustSearch(t, svc, "alice", "task")
	for i, task := range got {
		if task.Text != texts[i] {
			t.Errorf("position %d = %q, want %q", i, task.Text, texts[i])
		}
	}
}

// failingStore makes every task operation fail.
type failingStore struct{ store.TaskStore }

var errBackend = errors.New("backend down")

func (failingStore) DeleteTask(context.Context, string, int64) error { return errBackend }
func (failingStore) ToggleTask(context.Context, string, int64) error { return errBackend }
func (failingStore) SearchTasks(context.Context, store.TaskFilter) ([]model.Task, error) {
	return nil, errBackend
}

func TestStoreFailuresPropagate(t *testing.T) {
	svc := NewService(failingStore{}, nil)
	ctx := context.Background()

	if err := svc.Delete(ctx, "a", 1); !errors.Is(err, errBackend) {
		t.Errorf("Delete error = %v", err)
	}
	if err := svc.Toggle(ctx, "a", 1); !errors.Is(err, errBackend) {
		t.Errorf("Toggle error = %v", err)
	}
	if _, err := svc.Search(ctx, "a", ""); !errors.Is(err, errBackend) {
		t.Errorf("Search error = %v", err)
	}
}
