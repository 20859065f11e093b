package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/locvowork/tasktracker/internal/database"
	"github.com/locvowork/tasktracker/internal/domain"
)

const taskColumns = "id, title, start_date, end_date, completed, created_at, user_id"

var (
	errTaskNotFound    = domain.NotFound("task not found")
	errSubtaskNotFound = domain.NotFound("subtask not found")
)

type taskRepository struct {
	db *database.DB
}

func NewTaskRepository(db *database.DB) domain.TaskRepository {
	return &taskRepository{db: db}
}

// WithinTx runs fn in a transaction. Any exit other than fn returning nil and
// a successful commit rolls the transaction back, including panics.
func (r *taskRepository) WithinTx(ctx context.Context, fn func(tx domain.TaskTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Internal("begin transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&taskTx{tx: tx, dialect: r.db.Dialect}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return domain.Internal("commit transaction", err)
	}
	committed = true
	return nil
}

type taskTx struct {
	tx      *sql.Tx
	dialect database.Dialect
}

func (t *taskTx) InsertTask(ctx context.Context, task domain.Task) (domain.Task, error) {
	query := t.dialect.Rebind(`INSERT INTO tasks (title, start_date, end_date, completed, created_at, user_id)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
	task.CreatedAt = task.CreatedAt.UTC()
	err := t.tx.QueryRowContext(ctx, query,
		task.Title, nullTime(task.StartDate), nullTime(task.EndDate), task.Completed, task.CreatedAt, task.UserID,
	).Scan(&task.ID)
	if err != nil {
		return domain.Task{}, domain.Internal("insert task", err)
	}
	task.Subtasks = []domain.Subtask{}
	return task, nil
}

func (t *taskTx) ListTasks(ctx context.Context, owner int64, page domain.Page) ([]domain.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE user_id = ? ORDER BY id LIMIT ? OFFSET ?"
	return t.listTasks(ctx, query, owner, page.Limit, page.Skip)
}

func (t *taskTx) ListTasksByStatus(ctx context.Context, owner int64, completed bool, page domain.Page) ([]domain.Task, error) {
	query := "SELECT " + taskColumns + ` FROM tasks WHERE user_id = ? AND completed = ?
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	return t.listTasks(ctx, query, owner, completed, page.Limit, page.Skip)
}

func (t *taskTx) listTasks(ctx context.Context, query string, args ...interface{}) ([]domain.Task, error) {
	rows, err := t.tx.QueryContext(ctx, t.dialect.Rebind(query), args...)
	if err != nil {
		return nil, domain.Internal("select tasks", err)
	}
	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, domain.Internal("scan task", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, domain.Internal("iterate tasks", err)
	}
	rows.Close()

	if err := t.attachSubtasks(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (t *taskTx) TaskForOwner(ctx context.Context, owner, taskID int64, lock bool) (domain.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE id = ? AND user_id = ?"
	if lock {
		query += t.dialect.LockClause()
	}
	task, err := scanTask(t.tx.QueryRowContext(ctx, t.dialect.Rebind(query), taskID, owner))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, errTaskNotFound
	}
	if err != nil {
		return domain.Task{}, domain.Internal("select task", err)
	}
	tasks := []domain.Task{task}
	if err := t.attachSubtasks(ctx, tasks); err != nil {
		return domain.Task{}, err
	}
	return tasks[0], nil
}

func (t *taskTx) UpdateTask(ctx context.Context, task domain.Task) error {
	query := t.dialect.Rebind(`UPDATE tasks SET title = ?, start_date = ?, end_date = ?, completed = ?
		WHERE id = ? AND user_id = ?`)
	res, err := t.tx.ExecContext(ctx, query,
		task.Title, nullTime(task.StartDate), nullTime(task.EndDate), task.Completed, task.ID, task.UserID)
	if err != nil {
		return domain.Internal("update task", err)
	}
	return expectAffected(res, errTaskNotFound)
}

func (t *taskTx) CompleteSubtasks(ctx context.Context, taskID int64) (int64, error) {
	query := t.dialect.Rebind("UPDATE subtasks SET completed = ? WHERE task_id = ? AND completed = ?")
	res, err := t.tx.ExecContext(ctx, query, true, taskID, false)
	if err != nil {
		return 0, domain.Internal("complete subtasks", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, domain.Internal("complete subtasks", err)
	}
	return n, nil
}

// DeleteTask relies on ON DELETE CASCADE to remove the subtasks.
func (t *taskTx) DeleteTask(ctx context.Context, owner, taskID int64) error {
	res, err := t.tx.ExecContext(ctx, t.dialect.Rebind("DELETE FROM tasks WHERE id = ? AND user_id = ?"), taskID, owner)
	if err != nil {
		return domain.Internal("delete task", err)
	}
	return expectAffected(res, errTaskNotFound)
}

func (t *taskTx) InsertSubtask(ctx context.Context, subtask domain.Subtask) (domain.Subtask, error) {
	query := t.dialect.Rebind("INSERT INTO subtasks (title, completed, task_id) VALUES (?, ?, ?) RETURNING id")
	if err := t.tx.QueryRowContext(ctx, query, subtask.Title, subtask.Completed, subtask.TaskID).Scan(&subtask.ID); err != nil {
		return domain.Subtask{}, domain.Internal("insert subtask", err)
	}
	return subtask, nil
}

func (t *taskTx) SubtaskForOwner(ctx context.Context, owner, taskID, subtaskID int64) (domain.Subtask, error) {
	query := t.dialect.Rebind(`SELECT s.id, s.title, s.completed, s.task_id
		FROM subtasks s
		JOIN tasks t ON t.id = s.task_id
		WHERE s.id = ? AND s.task_id = ? AND t.user_id = ?`)
	var s domain.Subtask
	err := t.tx.QueryRowContext(ctx, query, subtaskID, taskID, owner).Scan(&s.ID, &s.Title, &s.Completed, &s.TaskID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Subtask{}, errSubtaskNotFound
	}
	if err != nil {
		return domain.Subtask{}, domain.Internal("select subtask", err)
	}
	return s, nil
}

func (t *taskTx) SetSubtaskCompleted(ctx context.Context, subtaskID int64, completed bool) error {
	res, err := t.tx.ExecContext(ctx, t.dialect.Rebind("UPDATE subtasks SET completed = ? WHERE id = ?"), completed, subtaskID)
	if err != nil {
		return domain.Internal("update subtask", err)
	}
	return expectAffected(res, errSubtaskNotFound)
}

func (t *taskTx) DeleteSubtask(ctx context.Context, subtaskID int64) error {
	res, err := t.tx.ExecContext(ctx, t.dialect.Rebind("DELETE FROM subtasks WHERE id = ?"), subtaskID)
	if err != nil {
		return domain.Internal("delete subtask", err)
	}
	return expectAffected(res, errSubtaskNotFound)
}

// attachSubtasks fills Subtasks for every task with a single IN query.
func (t *taskTx) attachSubtasks(ctx context.Context, tasks []domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	index := make(map[int64]int, len(tasks))
	args := make([]interface{}, len(tasks))
	for i := range tasks {
		tasks[i].Subtasks = []domain.Subtask{}
		index[tasks[i].ID] = i
		args[i] = tasks[i].ID
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(tasks)), ", ")
	query := t.dialect.Rebind("SELECT id, title, completed, task_id FROM subtasks WHERE task_id IN (" + placeholders + ") ORDER BY id")

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Internal("select subtasks", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s domain.Subtask
		if err := rows.Scan(&s.ID, &s.Title, &s.Completed, &s.TaskID); err != nil {
			return domain.Internal("scan subtask", err)
		}
		i := index[s.TaskID]
		tasks[i].Subtasks = append(tasks[i].Subtasks, s)
	}
	if err := rows.Err(); err != nil {
		return domain.Internal("iterate subtasks", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (domain.Task, error) {
	var (
		task       domain.Task
		start, end sql.NullTime
	)
	if err := row.Scan(&task.ID, &task.Title, &start, &end, &task.Completed, &task.CreatedAt, &task.UserID); err != nil {
		return domain.Task{}, err
	}
	task.CreatedAt = task.CreatedAt.UTC()
	task.StartDate = timePtr(start)
	task.EndDate = timePtr(end)
	return task, nil
}

func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Internal("rows affected", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
