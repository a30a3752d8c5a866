package ops

import (
	"context"
	"database/sql"

	"github.com/zealmehta21/nevermiss/internal/db"
	"github.com/zealmehta21/nevermiss/internal/task"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	UserID         string
	ID             string
	IncludeDeleted bool
}

// Fetch retrieves one of the user's tasks by id.
func Fetch(ctx context.Context, database *sql.DB, input FetchInput) (*task.Task, error) {
	userID, err := requireUser(input.UserID)
	if err != nil {
		return nil, err
	}
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}
	return db.GetTask(ctx, database, userID, id, input.IncludeDeleted)
}
