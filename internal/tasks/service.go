// Package tasks implements the per-user task operations.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nhle/todo-web/internal/logging"
	"github.com/nhle/todo-web/internal/model"
	"github.com/nhle/todo-web/internal/store"
)

// ErrEmptyTask is returned when adding a task with blank text.
var ErrEmptyTask = errors.New("task text must not be empty")

// Service performs task operations scoped to an owning username.
//
// Delete and Toggle only match tasks belonging to the owner; a task id that
// is missing or belongs to someone else is a silent no-op.
type Service struct {
	tasks  store.TaskStore
	now    func() time.Time
	logger *log.Logger
}

// NewService returns a Service backed by tasks.
func NewService(tasks store.TaskStore, logger *log.Logger) *Service {
	return &Service{
		tasks:  tasks,
		now:    time.Now,
		logger: logging.OrDiscard(logger),
	}
}

// Add creates an open task for owner.
func (s *Service) Add(ctx context.Context, owner, text string) (model.Task, error) {
	if strings.TrimSpace(text) == "" {
		return model.Task{}, ErrEmptyTask
	}

	task, err := s.tasks.CreateTask(ctx, model.Task{
		Text:      text,
		Completed: false,
		DateAdded: s.now().UTC(),
		Owner:     owner,
	})
	if err != nil {
		return model.Task{}, fmt.Errorf("adding task: %w", err)
	}

	s.logger.Debug("task added", "owner", owner, "task_id", task.ID)
	return task, nil
}

// Delete removes the owner's task with the given id.
func (s *Service) Delete(ctx context.Context, owner string, id int64) error {
	err := s.tasks.DeleteTask(ctx, owner, id)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Debug("delete matched no task", "owner", owner, "task_id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return nil
}

// DeleteByText removes every task of owner whose text is exactly text.
func (s *Service) DeleteByText(ctx context.Context, owner, text string) error {
	n, err := s.tasks.DeleteTasksByText(ctx, owner, text)
	if err != nil {
		return fmt.Errorf("deleting tasks by text: %w", err)
	}
	if n == 0 {
		s.logger.Debug("delete by text matched no task", "owner", owner)
	}
	return nil
}

// Toggle flips the completed flag of the owner's task.
func (s *Service) Toggle(ctx context.Context, owner string, id int64) error {
	err := s.tasks.ToggleTask(ctx, owner, id)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Debug("toggle matched no task", "owner", owner, "task_id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("toggling task: %w", err)
	}
	return nil
}

// Search returns the owner's tasks containing substring, ignoring case, in
// insertion order. An empty substring matches every task.
func (s *Service) Search(ctx context.Context, owner, substring string) ([]model.Task, error) {
	tasks, err := s.tasks.SearchTasks(ctx, store.TaskFilter{Owner: owner, Query: substring})
	if err != nil {
		return nil, fmt.Errorf("searching tasks: %w", err)
	}
	return tasks, nil
}
