package ops

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/zealmehta21/nevermiss/internal/db"
	"github.com/zealmehta21/nevermiss/internal/errors"
	"github.com/zealmehta21/nevermiss/internal/task"
)

// CreateInput contains parameters for the Create operation.
// Timestamps must already carry the owner's offset.
type CreateInput struct {
	UserID       string
	Title        string  // required
	Description  string
	DueDate      *string
	Priority     string // default: medium
	ReminderTime *string
}

// Create stores a new pending task.
func Create(ctx context.Context, database *sql.DB, input CreateInput) (*task.Task, error) {
	userID, err := requireUser(input.UserID)
	if err != nil {
		return nil, err
	}

	title := task.CleanTitle(input.Title)
	if err := task.ValidateTitle(title); err != nil {
		return nil, err
	}

	priority, ok := task.ParsePriority(input.Priority)
	if !ok {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("priority must be one of: p0, high, medium, low (got %q)", input.Priority))
	}

	dueDate, err := cleanStamp("due_date", input.DueDate)
	if err != nil {
		return nil, err
	}
	reminder, err := cleanStamp("reminder_time", input.ReminderTime)
	if err != nil {
		return nil, err
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	now := time.Unix(time.Now().Unix(), 0)
	t := &task.Task{
		ID:           id,
		UserID:       userID,
		Title:        title,
		Description:  input.Description,
		DueDate:      dueDate,
		Priority:     priority,
		Status:       task.StatusPending,
		ReminderTime: reminder,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := db.InsertTask(ctx, database, t); err != nil {
		return nil, err
	}
	return t, nil
}
