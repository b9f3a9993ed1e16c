package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/todo-web/internal/model"
)

const selectTasks = "SELECT task_id, task, completed, date_added, COALESCE(user_name, '') AS user_name FROM tasks"

// CreateTask inserts a new task. DateAdded defaults to now.
func (s *SQLStore) CreateTask(ctx context.Context, task model.Task) (model.Task, error) {
	if strings.TrimSpace(task.Text) == "" {
		return model.Task{}, fmt.Errorf("task text must not be empty")
	}
	if task.DateAdded.IsZero() {
		task.DateAdded = time.Now()
	}
	task.DateAdded = task.DateAdded.UTC()

	var owner *string
	if task.Owner != "" {
		owner = &task.Owner
	}

	err := s.db.QueryRowxContext(ctx, s.q(`
		INSERT INTO tasks (task, completed, date_added, user_name)
		VALUES (?, ?, ?, ?)
		RETURNING task_id`),
		task.Text, task.Completed, task.DateAdded, owner,
	).Scan(&task.ID)
	if err != nil {
		return model.Task{}, fmt.Errorf("creating task: %w", err)
	}
	return task, nil
}

// DeleteTask removes the owner's task with the given ID.
func (s *SQLStore) DeleteTask(ctx context.Context, owner string, id int64) error {
	result, err := s.db.ExecContext(ctx,
		s.q("DELETE FROM tasks WHERE task_id = ? AND user_name = ?"), id, owner)
	if err != nil {
		return fmt.Errorf("deleting task %d: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteTasksByText removes all of the owner's tasks whose text equals text.
func (s *SQLStore) DeleteTasksByText(ctx context.Context, owner, text string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		s.q("DELETE FROM tasks WHERE task = ? AND user_name = ?"), text, owner)
	if err != nil {
		return 0, fmt.Errorf("deleting tasks by text: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

// ToggleTask flips the completed flag of the owner's task.
func (s *SQLStore) ToggleTask(ctx context.Context, owner string, id int64) error {
	result, err := s.db.ExecContext(ctx,
		s.q("UPDATE tasks SET completed = NOT completed WHERE task_id = ? AND user_name = ?"),
		id, owner)
	if err != nil {
		return fmt.Errorf("toggling task %d: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

// SearchTasks retrieves the owner's tasks whose text contains filter.Query,
// ignoring case, ordered by task_id.
func (s *SQLStore) SearchTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	conditions := []string{"user_name = ?"}
	args := []interface{}{filter.Owner}

	if filter.Query != "" {
		conditions = append(conditions, fmt.Sprintf(
			`%[1]s(task) LIKE %[1]s(CAST(? AS TEXT)) ESCAPE '\'`, s.dialect.lowerFunc))
		args = append(args, likePattern(filter.Query))
	}

	query := selectTasks + " WHERE " + strings.Join(conditions, " AND ") + " ORDER BY task_id ASC"

	tasks := []model.Task{}
	if err := s.db.SelectContext(ctx, &tasks, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	return tasks, nil
}
