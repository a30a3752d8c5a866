package ops

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/zealmehta21/nevermiss/internal/db"
	"github.com/zealmehta21/nevermiss/internal/errors"
)

// PurgeInput contains parameters for the Purge operation.
type PurgeInput struct {
	UserID        string // optional: empty purges every user's deleted tasks
	OlderThanDays *int   // optional, only purge if deleted_at < (now - N days)
}

// PurgeOutput contains the result of the Purge operation.
type PurgeOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// Purge permanently deletes soft-deleted tasks.
func Purge(ctx context.Context, database *sql.DB, input PurgeInput) (*PurgeOutput, error) {
	// deleted_at has second precision; a cutoff one second ahead includes deletions made just now.
	cutoff := time.Now().Add(time.Second)
	if input.OlderThanDays != nil {
		if *input.OlderThanDays < 0 {
			return nil, errors.NewInvalidRequest("older_than_days must not be negative")
		}
		cutoff = time.Now().AddDate(0, 0, -*input.OlderThanDays)
	}

	count, err := db.PurgeDeleted(ctx, database, input.UserID, cutoff)
	if err != nil {
		return nil, err
	}

	return &PurgeOutput{
		Purged:  int(count),
		Message: formatPurgeMessage(int(count), input.UserID, input.OlderThanDays),
	}, nil
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(count int, userID string, olderThanDays *int) string {
	if count == 0 {
		return "No deleted tasks to purge"
	}

	word := "task"
	if count > 1 {
		word = "tasks"
	}

	msg := fmt.Sprintf("Permanently deleted %d %s", count, word)
	if userID != "" {
		msg += fmt.Sprintf(" for user %q", userID)
	}
	if olderThanDays != nil {
		msg += fmt.Sprintf(" (deleted more than %d days ago)", *olderThanDays)
	}
	return msg
}
