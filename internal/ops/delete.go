package ops

import (
	"context"
	"database/sql"

	"github.com/zealmehta21/nevermiss/internal/db"
	"github.com/zealmehta21/nevermiss/internal/task"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	UserID string
	ID     string
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// Delete soft-deletes a task. Purge removes it permanently.
func Delete(ctx context.Context, database *sql.DB, input DeleteInput) (*DeleteOutput, error) {
	userID, err := requireUser(input.UserID)
	if err != nil {
		return nil, err
	}
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}

	if err := db.SetStatus(ctx, database, userID, id, task.StatusDeleted); err != nil {
		return nil, err
	}

	return &DeleteOutput{
		Deleted: true,
		ID:      id,
	}, nil
}
