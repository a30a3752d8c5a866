package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/zealmehta21/nevermiss/internal/errors"
	"github.com/zealmehta21/nevermiss/internal/task"
)

const taskColumns = `
	id, user_id, title, description, due_date, priority, status,
	snooze_until, reminder_time, created_at, updated_at, completed_at
`

// InsertTask stores a new task.
func InsertTask(ctx context.Context, db *sql.DB, t *task.Task) error {
	query := `
		INSERT INTO tasks (` + taskColumns + `, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err := db.ExecContext(ctx, query,
		t.ID, t.UserID, t.Title, t.Description, toNullString(t.DueDate),
		string(t.Priority), string(t.Status), toNullString(t.SnoozeUntil), toNullString(t.ReminderTime),
		t.CreatedAt.Unix(), t.UpdatedAt.Unix(), toNullUnix(t.CompletedAt),
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetTask retrieves one of the user's tasks by id.
// If includeDeleted is false, soft-deleted tasks are excluded.
func GetTask(ctx context.Context, db *sql.DB, userID, id string, includeDeleted bool) (*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND user_id = ?`
	if !includeDeleted {
		query += " AND status != 'deleted'"
	}

	t, err := scanTask(db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("task", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return t, nil
}

// ListTasks returns the user's tasks with one of statuses, oldest first.
// An empty statuses slice means every status except deleted.
func ListTasks(ctx context.Context, db *sql.DB, userID string, statuses []task.Status) ([]task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ?`
	args := []any{userID}

	if len(statuses) == 0 {
		query += " AND status != 'deleted'"
	} else {
		placeholders := make([]string, len(statuses))
		for i, s := range statuses {
			placeholders[i] = "?"
			args = append(args, string(s))
		}
		query += " AND status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return tasks, nil
}

// UpdateTask writes every mutable field of an existing, non-deleted task.
// Sets updated_at to the current timestamp.
// Does NOT change: id, user_id, created_at
func UpdateTask(ctx context.Context, db *sql.DB, t *task.Task) error {
	now := time.Now()

	query := `
		UPDATE tasks
		SET title = ?, description = ?, due_date = ?, priority = ?, status = ?,
			snooze_until = ?, reminder_time = ?, completed_at = ?, updated_at = ?,
			deleted_at = CASE WHEN ? = 'deleted' THEN ? ELSE NULL END
		WHERE id = ? AND user_id = ? AND status != 'deleted'
	`

	result, err := db.ExecContext(ctx, query,
		t.Title, t.Description, toNullString(t.DueDate), string(t.Priority), string(t.Status),
		toNullString(t.SnoozeUntil), toNullString(t.ReminderTime), toNullUnix(t.CompletedAt), now.Unix(),
		string(t.Status), now.Unix(),
		t.ID, t.UserID,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("task", t.ID)
	}

	t.UpdatedAt = time.Unix(now.Unix(), 0)
	return nil
}

// SetStatus moves a non-deleted task to status.
// Completing stamps completed_at; deleting stamps deleted_at; leaving snoozed clears snooze_until.
func SetStatus(ctx context.Context, db *sql.DB, userID, id string, status task.Status) error {
	now := time.Now().Unix()

	query := `
		UPDATE tasks
		SET status = ?,
			updated_at = ?,
			completed_at = CASE WHEN ? = 'completed' THEN ? ELSE completed_at END,
			deleted_at = CASE WHEN ? = 'deleted' THEN ? ELSE NULL END,
			snooze_until = CASE WHEN ? = 'snoozed' THEN snooze_until ELSE NULL END
		WHERE id = ? AND user_id = ? AND status != 'deleted'
	`

	s := string(status)
	result, err := db.ExecContext(ctx, query, s, now, s, now, s, now, s, id, userID)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("task", id)
	}
	return nil
}

// PurgeDeleted permanently removes soft-deleted tasks deleted before the cutoff.
// An empty userID purges across all users.
func PurgeDeleted(ctx context.Context, db *sql.DB, userID string, before time.Time) (int64, error) {
	query := `DELETE FROM tasks WHERE status = 'deleted' AND deleted_at IS NOT NULL AND deleted_at < ?`
	args := []any{before.Unix()}
	if userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask scans a single row into a Task.
func scanTask(row rowScanner) (*task.Task, error) {
	var (
		t            task.Task
		priority     string
		status       string
		dueDate      sql.NullString
		snoozeUntil  sql.NullString
		reminderTime sql.NullString
		createdAt    int64
		updatedAt    int64
		completedAt  sql.NullInt64
	)

	err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description, &dueDate, &priority, &status,
		&snoozeUntil, &reminderTime, &createdAt, &updatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Priority = task.Priority(priority)
	t.Status = task.Status(status)
	t.DueDate = fromNullString(dueDate)
	t.SnoozeUntil = fromNullString(snoozeUntil)
	t.ReminderTime = fromNullString(reminderTime)
	t.CreatedAt = time.Unix(createdAt, 0)
	t.UpdatedAt = time.Unix(updatedAt, 0)
	if completedAt.Valid {
		c := time.Unix(completedAt.Int64, 0)
		t.CompletedAt = &c
	}

	return &t, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// toNullUnix converts an optional time to Unix seconds.
func toNullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}
