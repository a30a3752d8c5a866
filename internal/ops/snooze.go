package ops

import (
	"context"
	"database/sql"

	"github.com/zealmehta21/nevermiss/internal/db"
	"github.com/zealmehta21/nevermiss/internal/errors"
	"github.com/zealmehta21/nevermiss/internal/task"
)

// SnoozeInput contains parameters for the Snooze operation.
type SnoozeInput struct {
	UserID string
	ID     string
	Until  string // required, RFC 3339 with the owner's offset
}

// Snooze hides a task until the given time.
func Snooze(ctx context.Context, database *sql.DB, input SnoozeInput) (*task.Task, error) {
	userID, err := requireUser(input.UserID)
	if err != nil {
		return nil, err
	}
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}
	until, err := cleanStamp("snooze_until", &input.Until)
	if err != nil {
		return nil, err
	}
	if until == nil {
		return nil, errors.NewInvalidRequest("snooze_until is required")
	}

	t, err := db.GetTask(ctx, database, userID, id, false)
	if err != nil {
		return nil, err
	}

	t.SnoozeUntil = until
	if err := applyStatus(t, task.StatusSnoozed); err != nil {
		return nil, err
	}
	if err := db.UpdateTask(ctx, database, t); err != nil {
		return nil, err
	}
	return t, nil
}
