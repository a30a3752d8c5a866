package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/zealmehta21/nevermiss/internal/db"
	"github.com/zealmehta21/nevermiss/internal/errors"
	"github.com/zealmehta21/nevermiss/internal/task"
)

// UpdateInput contains parameters for the Update operation.
type UpdateInput struct {
	UserID string
	ID     string

	// Editable fields (nil = don't change; "" clears optional timestamps)
	Title        *string
	Description  *string
	DueDate      *string
	Priority     *string
	Status       *string
	SnoozeUntil  *string
	ReminderTime *string
}

func (in *UpdateInput) empty() bool {
	return in.Title == nil && in.Description == nil && in.DueDate == nil && in.Priority == nil &&
		in.Status == nil && in.SnoozeUntil == nil && in.ReminderTime == nil
}

// Update modifies an existing task. Only non-nil fields are applied.
// A snooze_until without a status implies snoozed; leaving snoozed clears snooze_until.
func Update(ctx context.Context, database *sql.DB, input UpdateInput) (*task.Task, error) {
	userID, err := requireUser(input.UserID)
	if err != nil {
		return nil, err
	}
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}
	if input.empty() {
		return nil, errors.NewInvalidRequest("at least one editable field must be provided")
	}

	t, err := db.GetTask(ctx, database, userID, id, false)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := task.CleanTitle(*input.Title)
		if err := task.ValidateTitle(title); err != nil {
			return nil, err
		}
		t.Title = title
	}

	if input.Description != nil {
		t.Description = *input.Description
	}

	if input.Priority != nil {
		p, ok := task.ParsePriority(*input.Priority)
		if !ok || strings.TrimSpace(*input.Priority) == "" {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("priority must be one of: p0, high, medium, low (got %q)", *input.Priority))
		}
		t.Priority = p
	}

	if input.DueDate != nil {
		if t.DueDate, err = cleanStamp("due_date", input.DueDate); err != nil {
			return nil, err
		}
	}

	if input.ReminderTime != nil {
		if t.ReminderTime, err = cleanStamp("reminder_time", input.ReminderTime); err != nil {
			return nil, err
		}
	}

	status := t.Status
	if input.Status != nil {
		s, ok := task.ParseStatus(*input.Status)
		if !ok {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("status must be one of: pending, completed, snoozed (got %q)", *input.Status))
		}
		if s == task.StatusDeleted {
			return nil, errors.NewInvalidRequest("use delete to remove a task")
		}
		status = s
	}

	if input.SnoozeUntil != nil {
		until, err := cleanStamp("snooze_until", input.SnoozeUntil)
		if err != nil {
			return nil, err
		}
		t.SnoozeUntil = until
		if until != nil && input.Status == nil {
			status = task.StatusSnoozed
		}
	}

	if err := applyStatus(t, status); err != nil {
		return nil, err
	}

	if err := db.UpdateTask(ctx, database, t); err != nil {
		return nil, err
	}
	return t, nil
}

// applyStatus moves t to status and keeps the dependent fields consistent.
func applyStatus(t *task.Task, status task.Status) error {
	switch status {
	case task.StatusSnoozed:
		if t.SnoozeUntil == nil {
			return errors.NewInvalidRequest("snoozed tasks require snooze_until")
		}
		t.CompletedAt = nil
	case task.StatusCompleted:
		t.SnoozeUntil = nil
		if t.CompletedAt == nil {
			now := time.Unix(time.Now().Unix(), 0)
			t.CompletedAt = &now
		}
	default:
		t.SnoozeUntil = nil
		t.CompletedAt = nil
	}
	t.Status = status
	return nil
}
