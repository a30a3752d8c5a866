package task

import "time"

// Priority is the urgency of a task.
type Priority string

const (
	PriorityP0     Priority = "p0"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusSnoozed   Status = "snoozed"
	StatusDeleted   Status = "deleted" // soft delete marker
)

// Task is a single item on a user's list.
// DueDate, SnoozeUntil and ReminderTime are RFC 3339 strings that always
// carry an explicit numeric offset in the owner's timezone.
type Task struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	DueDate      *string    `json:"due_date,omitempty"`
	Priority     Priority   `json:"priority"`
	Status       Status     `json:"status"`
	SnoozeUntil  *string    `json:"snooze_until,omitempty"`
	ReminderTime *string    `json:"reminder_time,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Active reports whether the task still needs attention.
func (t *Task) Active() bool {
	return t.Status != StatusCompleted && t.Status != StatusDeleted
}

// Due parses DueDate. ok is false when the task has no due date or it does not parse.
func (t *Task) Due() (time.Time, bool) {
	if t.DueDate == nil {
		return time.Time{}, false
	}
	d, err := time.Parse(time.RFC3339, *t.DueDate)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// User is the minimal identity the pipeline needs: where to mail and which zone to use.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
}

// TranscriptSource records how a submission reached the pipeline.
type TranscriptSource string

const (
	SourceText  TranscriptSource = "text"
	SourceVoice TranscriptSource = "voice"
)

// Transcript is the raw text of one submission, saved before extraction.
type Transcript struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Text      string           `json:"text"`
	Source    TranscriptSource `json:"source"`
	CreatedAt time.Time        `json:"created_at"`
}
