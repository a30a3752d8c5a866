package ops

import (
	"context"
	"database/sql"

	"github.com/zealmehta21/nevermiss/internal/db"
	"github.com/zealmehta21/nevermiss/internal/task"
)

// CompleteInput contains parameters for the Complete operation.
type CompleteInput struct {
	UserID string
	ID     string
}

// Complete marks a task done. Completing an already completed task is a no-op.
func Complete(ctx context.Context, database *sql.DB, input CompleteInput) (*task.Task, error) {
	userID, err := requireUser(input.UserID)
	if err != nil {
		return nil, err
	}
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}

	t, err := db.GetTask(ctx, database, userID, id, false)
	if err != nil {
		return nil, err
	}
	if t.Status == task.StatusCompleted {
		return t, nil
	}

	if err := db.SetStatus(ctx, database, userID, id, task.StatusCompleted); err != nil {
		return nil, err
	}
	return db.GetTask(ctx, database, userID, id, false)
}
