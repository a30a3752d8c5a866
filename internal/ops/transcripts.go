package ops

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/zealmehta21/nevermiss/internal/db"
	"github.com/zealmehta21/nevermiss/internal/errors"
	"github.com/zealmehta21/nevermiss/internal/task"
)

// SaveTranscriptInput contains parameters for the SaveTranscript operation.
type SaveTranscriptInput struct {
	UserID string
	Text   string
	Source task.TranscriptSource // default: text
}

// SaveTranscript records the raw text of a submission before it is interpreted.
func SaveTranscript(ctx context.Context, database *sql.DB, input SaveTranscriptInput) (*task.Transcript, error) {
	userID, err := requireUser(input.UserID)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, errors.NewInvalidRequest("text is required")
	}

	source := input.Source
	switch source {
	case "":
		source = task.SourceText
	case task.SourceText, task.SourceVoice:
	default:
		return nil, errors.NewInvalidRequest("source must be one of: text, voice")
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	tr := &task.Transcript{
		ID:        id,
		UserID:    userID,
		Text:      text,
		Source:    source,
		CreatedAt: time.Unix(time.Now().Unix(), 0),
	}
	if err := db.InsertTranscript(ctx, database, tr); err != nil {
		return nil, err
	}
	return tr, nil
}

// ListTranscriptsInput contains parameters for the ListTranscripts operation.
type ListTranscriptsInput struct {
	UserID string
	Limit  int
	Offset int
}

// ListTranscriptsOutput contains the result of the ListTranscripts operation.
type ListTranscriptsOutput struct {
	Items      []task.Transcript `json:"items"`
	Pagination Pagination        `json:"pagination"`
}

// ListTranscripts returns the user's transcripts, newest first.
func ListTranscripts(ctx context.Context, database *sql.DB, input ListTranscriptsInput) (*ListTranscriptsOutput, error) {
	userID, err := requireUser(input.UserID)
	if err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	offset := max(input.Offset, 0)

	// One extra row tells us whether another page exists.
	items, err := db.ListTranscripts(ctx, database, userID, limit+1, offset)
	if err != nil {
		return nil, err
	}
	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	if items == nil {
		items = []task.Transcript{}
	}

	return &ListTranscriptsOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: hasMore,
			Total:   offset + len(items),
		},
	}, nil
}
