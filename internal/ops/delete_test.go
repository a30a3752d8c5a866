package ops

import (
	"context"
	"testing"

	"github.com/zealmehta21/nevermiss/internal/errors"
	"github.com/zealmehta21/nevermiss/internal/task"
)

func TestDelete(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	created, _ := Create(ctx, database, CreateInput{UserID: "u1", Title: "Old chore"})

	out, err := Delete(ctx, database, DeleteInput{UserID: "u1", ID: created.ID})
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !out.Deleted || out.ID != created.ID {
		t.Errorf("Delete = %+v", out)
	}

	// Second delete is NOT_FOUND: the task is no longer active.
	if _, err := Delete(ctx, database, DeleteInput{UserID: "u1", ID: created.ID}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second Delete error = %v, want NOT_FOUND", err)
	}
}

func TestDelete_OtherUser(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	created, _ := Create(ctx, database, CreateInput{UserID: "u1", Title: "Mine"})
	if _, err := Delete(ctx, database, DeleteInput{UserID: "u2", ID: created.ID}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Delete(other user) error = %v, want NOT_FOUND", err)
	}
	if _, err := Fetch(ctx, database, FetchInput{UserID: "u1", ID: created.ID}); err != nil {
		t.Errorf("task should survive a foreign delete: %v", err)
	}
}

func TestComplete(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	created, _ := Create(ctx, database, CreateInput{UserID: "u1", Title: "Buy milk"})

	out, err := Complete(ctx, database, CompleteInput{UserID: "u1", ID: created.ID})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if out.Status != task.StatusCompleted || out.CompletedAt == nil {
		t.Errorf("Complete = status %q completed_at %v", out.Status, out.CompletedAt)
	}

	again, err := Complete(ctx, database, CompleteInput{UserID: "u1", ID: created.ID})
	if err != nil {
		t.Fatalf("second Complete failed: %v", err)
	}
	if !again.CompletedAt.Equal(*out.CompletedAt) {
		t.Errorf("second Complete changed completed_at: %v -> %v", out.CompletedAt, again.CompletedAt)
	}

	if _, err := Complete(ctx, database, CompleteInput{UserID: "u1", ID: "missing"}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Complete(missing) error = %v, want NOT_FOUND", err)
	}
}

func TestSnooze(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	created, _ := Create(ctx, database, CreateInput{UserID: "u1", Title: "Report"})

	out, err := Snooze(ctx, database, SnoozeInput{UserID: "u1", ID: created.ID, Until: "2025-03-13T09:00:00-07:00"})
	if err != nil {
		t.Fatalf("Snooze failed: %v", err)
	}
	if out.Status != task.StatusSnoozed || out.SnoozeUntil == nil || *out.SnoozeUntil != "2025-03-13T09:00:00-07:00" {
		t.Errorf("Snooze = status %q until %v", out.Status, out.SnoozeUntil)
	}

	tests := []struct {
		name  string
		input SnoozeInput
		code  errors.ErrorCode
	}{
		{"missing until", SnoozeInput{UserID: "u1", ID: created.ID}, errors.ErrInvalidRequest},
		{"utc until", SnoozeInput{UserID: "u1", ID: created.ID, Until: "2025-03-13T16:00:00Z"}, errors.ErrUnverifiedDatetime},
		{"missing task", SnoozeInput{UserID: "u1", ID: "nope", Until: "2025-03-13T09:00:00-07:00"}, errors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Snooze(ctx, database, tt.input); !errors.Is(err, tt.code) {
				t.Errorf("Snooze() error = %v, want %s", err, tt.code)
			}
		})
	}
}
