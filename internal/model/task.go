package model

import "time"

// Task is a single to-do item owned by a user.
type Task struct {
	// ID is assigned by the store and stays stable for the task's lifetime.
	ID int64 `json:"task_id" db:"task_id"`

	// Text is the task description. Never empty.
	Text string `json:"task" db:"task"`

	// Completed is flipped by a toggle action.
	Completed bool `json:"completed" db:"completed"`

	// DateAdded is when the task was created, in UTC.
	DateAdded time.Time `json:"date_added" db:"date_added"`

	// Owner is the username the task belongs to.
	Owner string `json:"user_name" db:"user_name"`
}
