package planner

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/zealmehta21/nevermiss/internal/errors"
	"github.com/zealmehta21/nevermiss/internal/intent"
	"github.com/zealmehta21/nevermiss/internal/ops"
	"github.com/zealmehta21/nevermiss/internal/task"
	"github.com/zealmehta21/nevermiss/internal/timezone"
)

// fakeStore keeps tasks in memory and records every write.
type fakeStore struct {
	tasks       []task.Task
	calls       []string
	failTitles  map[string]error
	transcripts []ops.SaveTranscriptInput
	nextID      int
}

func newFakeStore(tasks ...task.Task) *fakeStore {
	return &fakeStore{tasks: tasks, failTitles: map[string]error{}}
}

func (s *fakeStore) find(id string) (*task.Task, error) {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return &s.tasks[i], nil
		}
	}
	return nil, errors.NewNotFound("task", id)
}

func (s *fakeStore) Create(ctx context.Context, in ops.CreateInput) (*task.Task, error) {
	s.calls = append(s.calls, "create:"+in.Title)
	if err, ok := s.failTitles[in.Title]; ok {
		return nil, err
	}
	s.nextID++
	p, _ := task.ParsePriority(in.Priority)
	t := task.Task{
		ID:           fmt.Sprintf("new-%d", s.nextID),
		UserID:       in.UserID,
		Title:        in.Title,
		Description:  in.Description,
		DueDate:      in.DueDate,
		Priority:     p,
		Status:       task.StatusPending,
		ReminderTime: in.ReminderTime,
	}
	s.tasks = append(s.tasks, t)
	return &t, nil
}

func (s *fakeStore) Update(ctx context.Context, in ops.UpdateInput) (*task.Task, error) {
	s.calls = append(s.calls, "update:"+in.ID)
	t, err := s.find(in.ID)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.DueDate != nil {
		if *in.DueDate == "" {
			t.DueDate = nil
		} else {
			v := *in.DueDate
			t.DueDate = &v
		}
	}
	if in.Priority != nil {
		p, ok := task.ParsePriority(*in.Priority)
		if !ok {
			return nil, errors.NewInvalidRequest("bad priority")
		}
		t.Priority = p
	}
	if in.ReminderTime != nil {
		v := *in.ReminderTime
		t.ReminderTime = &v
	}
	if in.Status != nil {
		t.Status = task.Status(*in.Status)
	}
	out := *t
	return &out, nil
}

func (s *fakeStore) Complete(ctx context.Context, in ops.CompleteInput) (*task.Task, error) {
	s.calls = append(s.calls, "complete:"+in.ID)
	t, err := s.find(in.ID)
	if err != nil {
		return nil, err
	}
	t.Status = task.StatusCompleted
	out := *t
	return &out, nil
}

func (s *fakeStore) Snooze(ctx context.Context, in ops.SnoozeInput) (*task.Task, error) {
	s.calls = append(s.calls, "snooze:"+in.ID)
	t, err := s.find(in.ID)
	if err != nil {
		return nil, err
	}
	until := in.Until
	t.Status = task.StatusSnoozed
	t.SnoozeUntil = &until
	out := *t
	return &out, nil
}

func (s *fakeStore) Active(ctx context.Context, userID string) ([]task.Task, error) {
	var out []task.Task
	for _, t := range s.tasks {
		if t.Active() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeStore) SaveTranscript(ctx context.Context, in ops.SaveTranscriptInput) (*task.Transcript, error) {
	s.transcripts = append(s.transcripts, in)
	return &task.Transcript{ID: fmt.Sprintf("tr-%d", len(s.transcripts)), UserID: in.UserID, Text: in.Text, Source: in.Source}, nil
}

// writes returns the recorded mutation calls.
func (s *fakeStore) writes() []string { return s.calls }

type fakeNotifier struct {
	sent  int
	email string
	tasks []task.Task
	err   error
}

func (n *fakeNotifier) Notify(ctx context.Context, email string, tasks []task.Task) error {
	n.sent++
	n.email = email
	n.tasks = tasks
	return n.err
}

type fakeExtractor struct {
	plan    *intent.Intent
	command *intent.Intent
	err     error

	planReq    *intent.PlanRequest
	commandReq *intent.CommandRequest
}

func (e *fakeExtractor) ExtractPlan(ctx context.Context, req intent.PlanRequest) (*intent.Intent, error) {
	e.planReq = &req
	return e.plan, e.err
}

func (e *fakeExtractor) ExtractCommand(ctx context.Context, req intent.CommandRequest) (*intent.Intent, error) {
	e.commandReq = &req
	return e.command, e.err
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	return f.text, f.err
}

// wednesday is 2025-03-12 09:00 in Los Angeles (PDT, -07:00).
var wednesday = time.Date(2025, 3, 12, 16, 0, 0, 0, time.UTC)

func testSession(t *testing.T) Session {
	t.Helper()
	zone, err := timezone.New("America/Los_Angeles", timezone.WithClock(func() time.Time { return wednesday }))
	if err != nil {
		t.Fatalf("timezone.New failed: %v", err)
	}
	return Session{RequestID: "req-1", UserID: "u1", Email: "u1@example.com", Zone: zone}
}

func quietLogger() (*log.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return log.New(&buf, "", 0), &buf
}

func strPtr(s string) *string { return &s }
