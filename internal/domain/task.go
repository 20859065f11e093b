package domain

import (
	"context"
	"strings"
	"time"
)

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
	maxTitleLength   = 255
)

// Task is owned by exactly one user. Subtasks is populated on reads.
type Task struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Completed bool       `json:"completed"`
	CreatedAt time.Time  `json:"created_at"`
	UserID    int64      `json:"user_id"`
	Subtasks  []Subtask  `json:"subtasks"`
}

// Subtask has no owner of its own; ownership is always read through TaskID.
type Subtask struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	TaskID    int64  `json:"task_id"`
}

type TaskInput struct {
	Title     string     `json:"title"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Completed bool       `json:"completed"`
}

func (in *TaskInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	return validateDates(in.StartDate, in.EndDate)
}

// TaskPatch is a merge-patch: nil fields are left untouched.
type TaskPatch struct {
	Title     *string    `json:"title"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Completed *bool      `json:"completed"`
}

func (p *TaskPatch) Validate() error {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if err := validateTitle(title); err != nil {
			return err
		}
		p.Title = &title
	}
	return nil
}

// Apply merges the patch into t and reports whether the patch marks the task
// completed.
func (p TaskPatch) Apply(t *Task) (completing bool) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.StartDate != nil {
		start := *p.StartDate
		t.StartDate = &start
	}
	if p.EndDate != nil {
		end := *p.EndDate
		t.EndDate = &end
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
		return *p.Completed
	}
	return false
}

type SubtaskInput struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

func (in *SubtaskInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	return validateTitle(in.Title)
}

// Page is an offset/limit window. A zero Limit means DefaultPageLimit.
type Page struct {
	Skip  int
	Limit int
}

func (p Page) Normalize() (Page, error) {
	if p.Skip < 0 {
		return Page{}, Validation("skip must not be negative")
	}
	if p.Limit < 0 {
		return Page{}, Validation("limit must not be negative")
	}
	if p.Limit == 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		return Page{}, Validation("limit must not exceed %d", MaxPageLimit)
	}
	return p, nil
}

func validateTitle(title string) error {
	if title == "" {
		return Validation("title is required")
	}
	if len(title) > maxTitleLength {
		return Validation("title must be at most %d characters", maxTitleLength)
	}
	return nil
}

func validateDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return Validation("end_date must not be before start_date")
	}
	return nil
}

// TaskRepository hands out units of work. Every task and subtask operation
// runs inside WithinTx; the transaction is committed only when fn returns nil.
type TaskRepository interface {
	WithinTx(ctx context.Context, fn func(tx TaskTx) error) error
}

// TaskTx is the set of store primitives available inside one transaction.
// Lookups that take an owner return NotFound when any edge of the
// user -> task -> subtask chain is broken.
type TaskTx interface {
	InsertTask(ctx context.Context, task Task) (Task, error)
	ListTasks(ctx context.Context, owner int64, page Page) ([]Task, error)
	ListTasksByStatus(ctx context.Context, owner int64, completed bool, page Page) ([]Task, error)
	// TaskForOwner loads the task with its subtasks. With lock set, the task
	// row is held for the rest of the transaction where the store supports it.
	TaskForOwner(ctx context.Context, owner, taskID int64, lock bool) (Task, error)
	UpdateTask(ctx context.Context, task Task) error
	CompleteSubtasks(ctx context.Context, taskID int64) (int64, error)
	DeleteTask(ctx context.Context, owner, taskID int64) error

	InsertSubtask(ctx context.Context, subtask Subtask) (Subtask, error)
	// SubtaskForOwner validates both the task-owner and subtask-parent edges
	// in one lookup.
	SubtaskForOwner(ctx context.Context, owner, taskID, subtaskID int64) (Subtask, error)
	SetSubtaskCompleted(ctx context.Context, subtaskID int64, completed bool) error
	DeleteSubtask(ctx context.Context, subtaskID int64) error
}
