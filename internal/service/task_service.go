package service

import (
	"context"
	"time"

	"github.com/locvowork/tasktracker/internal/domain"
	"github.com/locvowork/tasktracker/internal/logger"
)

// TaskService scopes every operation to the owner resolved by the request
// gate. Resources that are missing, foreign, or under the wrong parent are all
// reported as NotFound.
type TaskService interface {
	CreateTask(ctx context.Context, owner int64, in domain.TaskInput) (domain.Task, error)
	ListTasks(ctx context.Context, owner int64, page domain.Page) ([]domain.Task, error)
	ListTasksByStatus(ctx context.Context, owner int64, completed bool, page domain.Page) ([]domain.Task, error)
	GetTask(ctx context.Context, owner, taskID int64) (domain.Task, error)
	UpdateTask(ctx context.Context, owner, taskID int64, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, owner, taskID int64) error

	CreateSubtask(ctx context.Context, owner, taskID int64, in domain.SubtaskInput) (domain.Subtask, error)
	UpdateSubtaskStatus(ctx context.Context, owner, taskID, subtaskID int64, completed bool) (domain.Subtask, error)
	DeleteSubtask(ctx context.Context, owner, taskID, subtaskID int64) error
}

type TaskServiceOption func(*taskService)

// WithTaskClock sets the clock used for task creation timestamps.
func WithTaskClock(now func() time.Time) TaskServiceOption {
	return func(s *taskService) {
		if now != nil {
			s.now = now
		}
	}
}

type taskService struct {
	repo domain.TaskRepository
	now  func() time.Time
}

func NewTaskService(repo domain.TaskRepository, opts ...TaskServiceOption) TaskService {
	s := &taskService{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *taskService) CreateTask(ctx context.Context, owner int64, in domain.TaskInput) (domain.Task, error) {
	if err := in.Validate(); err != nil {
		return domain.Task{}, err
	}
	var created domain.Task
	err := s.repo.WithinTx(ctx, func(tx domain.TaskTx) error {
		var err error
		created, err = tx.InsertTask(ctx, domain.Task{
			Title:     in.Title,
			StartDate: in.StartDate,
			EndDate:   in.EndDate,
			Completed: in.Completed,
			CreatedAt: s.now().UTC(),
			UserID:    owner,
		})
		return err
	})
	if err != nil {
		return domain.Task{}, err
	}
	return created, nil
}

func (s *taskService) ListTasks(ctx context.Context, owner int64, page domain.Page) ([]domain.Task, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}
	var tasks []domain.Task
	err = s.repo.WithinTx(ctx, func(tx domain.TaskTx) error {
		var err error
		tasks, err = tx.ListTasks(ctx, owner, page)
		return err
	})
	return tasks, err
}

// ListTasksByStatus returns the newest-created tasks first.
func (s *taskService) ListTasksByStatus(ctx context.Context, owner int64, completed bool, page domain.Page) ([]domain.Task, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}
	var tasks []domain.Task
	err = s.repo.WithinTx(ctx, func(tx domain.TaskTx) error {
		var err error
		tasks, err = tx.ListTasksByStatus(ctx, owner, completed, page)
		return err
	})
	return tasks, err
}

func (s *taskService) GetTask(ctx context.Context, owner, taskID int64) (domain.Task, error) {
	var task domain.Task
	err := s.repo.WithinTx(ctx, func(tx domain.TaskTx) error {
		var err error
		task, err = tx.TaskForOwner(ctx, owner, taskID, false)
		return err
	})
	return task, err
}

// UpdateTask merges patch into the task. Marking the task completed completes
// every subtask in the same transaction; un-completing leaves them alone.
func (s *taskService) UpdateTask(ctx context.Context, owner, taskID int64, patch domain.TaskPatch) (domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return domain.Task{}, err
	}
	var updated domain.Task
	err := s.repo.WithinTx(ctx, func(tx domain.TaskTx) error {
		task, err := tx.TaskForOwner(ctx, owner, taskID, true)
		if err != nil {
			return err
		}
		completing := patch.Apply(&task)
		if task.StartDate != nil && task.EndDate != nil && task.EndDate.Before(*task.StartDate) {
			return domain.Validation("end_date must not be before start_date")
		}
		if err := tx.UpdateTask(ctx, task); err != nil {
			return err
		}
		if completing {
			n, err := tx.CompleteSubtasks(ctx, task.ID)
			if err != nil {
				return err
			}
			logger.DebugLog(ctx, "task %d completed, %d subtasks completed with it", task.ID, n)
		}
		updated, err = tx.TaskForOwner(ctx, owner, taskID, false)
		return err
	})
	if err != nil {
		return domain.Task{}, err
	}
	return updated, nil
}

func (s *taskService) DeleteTask(ctx context.Context, owner, taskID int64) error {
	return s.repo.WithinTx(ctx, func(tx domain.TaskTx) error {
		return tx.DeleteTask(ctx, owner, taskID)
	})
}

func (s *taskService) CreateSubtask(ctx context.Context, owner, taskID int64, in domain.SubtaskInput) (domain.Subtask, error) {
	if err := in.Validate(); err != nil {
		return domain.Subtask{}, err
	}
	var created domain.Subtask
	err := s.repo.WithinTx(ctx, func(tx domain.TaskTx) error {
		if _, err := tx.TaskForOwner(ctx, owner, taskID, true); err != nil {
			return err
		}
		var err error
		created, err = tx.InsertSubtask(ctx, domain.Subtask{
			Title:     in.Title,
			Completed: in.Completed,
			TaskID:    taskID,
		})
		return err
	})
	if err != nil {
		return domain.Subtask{}, err
	}
	return created, nil
}

// UpdateSubtaskStatus never touches the parent task.
func (s *taskService) UpdateSubtaskStatus(ctx context.Context, owner, taskID, subtaskID int64, completed bool) (domain.Subtask, error) {
	var updated domain.Subtask
	err := s.repo.WithinTx(ctx, func(tx domain.TaskTx) error {
		subtask, err := tx.SubtaskForOwner(ctx, owner, taskID, subtaskID)
		if err != nil {
			return err
		}
		if err := tx.SetSubtaskCompleted(ctx, subtask.ID, completed); err != nil {
			return err
		}
		subtask.Completed = completed
		updated = subtask
		return nil
	})
	if err != nil {
		return domain.Subtask{}, err
	}
	return updated, nil
}

func (s *taskService) DeleteSubtask(ctx context.Context, owner, taskID, subtaskID int64) error {
	return s.repo.WithinTx(ctx, func(tx domain.TaskTx) error {
		subtask, err := tx.SubtaskForOwner(ctx, owner, taskID, subtaskID)
		if err != nil {
			return err
		}
		return tx.DeleteSubtask(ctx, subtask.ID)
	})
}
