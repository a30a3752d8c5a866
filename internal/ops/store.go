package ops

import (
	"context"
	"database/sql"

	"github.com/zealmehta21/nevermiss/internal/task"
)

// Store binds the operations to one database so they can be passed around as
// the task, transcript, and user collaborator.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store backed by database.
func NewStore(database *sql.DB) *Store {
	return &Store{db: database}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB { return s.db }

// Create stores a new task.
func (s *Store) Create(ctx context.Context, in CreateInput) (*task.Task, error) {
	return Create(ctx, s.db, in)
}

// Update applies a partial update.
func (s *Store) Update(ctx context.Context, in UpdateInput) (*task.Task, error) {
	return Update(ctx, s.db, in)
}

// Complete marks a task done.
func (s *Store) Complete(ctx context.Context, in CompleteInput) (*task.Task, error) {
	return Complete(ctx, s.db, in)
}

// Snooze hides a task until a given time.
func (s *Store) Snooze(ctx context.Context, in SnoozeInput) (*task.Task, error) {
	return Snooze(ctx, s.db, in)
}

// Active returns the user's pending and snoozed tasks.
func (s *Store) Active(ctx context.Context, userID string) ([]task.Task, error) {
	return Active(ctx, s.db, userID)
}

// SaveTranscript records a submission's raw text.
func (s *Store) SaveTranscript(ctx context.Context, in SaveTranscriptInput) (*task.Transcript, error) {
	return SaveTranscript(ctx, s.db, in)
}

// Users returns every registered user.
func (s *Store) Users(ctx context.Context) ([]task.User, error) {
	return ListUsers(ctx, s.db)
}
