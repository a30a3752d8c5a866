package planner

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zealmehta21/nevermiss/internal/db"
	"github.com/zealmehta21/nevermiss/internal/errors"
	"github.com/zealmehta21/nevermiss/internal/intent"
	"github.com/zealmehta21/nevermiss/internal/ops"
	"github.com/zealmehta21/nevermiss/internal/task"
)

func newTestPipeline(store Store, extractor Extractor, notifier Notifier, extra ...Option) *Pipeline {
	logger, _ := quietLogger()
	opts := append([]Option{
		WithLogger(logger),
		WithClock(func() time.Time { return wednesday }),
		WithRequestIDs(func() string { return "req-fixed" }),
	}, extra...)
	return NewPipeline(store, extractor, notifier, opts...)
}

func TestSubmit_Plan(t *testing.T) {
	store := newFakeStore(existing()...)
	ext := &fakeExtractor{plan: &intent.Intent{
		ActionType: intent.ActionAddTasks,
		TasksToAdd: []intent.NewTask{{Title: "Call mom", DueDate: strPtr("2025-03-12T18:00:00Z")}},
	}}
	p := newTestPipeline(store, ext, nil)

	out, err := p.Submit(context.Background(), Submission{UserID: "u1", Timezone: "America/Los_Angeles", Text: " call mom today at 6pm "})
	require.NoError(t, err)
	require.Equal(t, "req-fixed", out.RequestID)
	require.Equal(t, "tr-1", out.TranscriptID)
	require.Len(t, out.Result.Created, 1)
	require.Equal(t, "2025-03-12T18:00:00-07:00", *out.Result.Created[0].DueDate)
	require.Equal(t, "Added 1 task, updated 0 tasks, completed 0 tasks.", out.Summary)

	// the extractor saw the caller's clock and zone, plus the active snapshot
	require.NotNil(t, ext.planReq)
	require.Equal(t, "call mom today at 6pm", ext.planReq.Text)
	require.Equal(t, "America/Los_Angeles", ext.planReq.Zone)
	require.Equal(t, 9, ext.planReq.Now.Hour())
	require.Len(t, ext.planReq.Tasks, 3)

	require.Len(t, store.transcripts, 1)
	require.Equal(t, "call mom today at 6pm", store.transcripts[0].Text)
}

func TestSubmit_CommandMode(t *testing.T) {
	store := newFakeStore(existing()...)
	ext := &fakeExtractor{command: &intent.Intent{ActionType: intent.ActionCompleteTask, TasksToComplete: []string{"t-milk"}}}
	p := newTestPipeline(store, ext, nil)

	out, err := p.Submit(context.Background(), Submission{UserID: "u1", Timezone: "Europe/London", Text: "milk is done", Mode: ModeCommand})
	require.NoError(t, err)
	require.Nil(t, ext.planReq)
	require.NotNil(t, ext.commandReq)
	require.Equal(t, "Europe/London", ext.commandReq.Zone)
	require.Len(t, out.Result.Completed, 1)
}

func TestSubmit_UpstreamFailureKeepsTranscript(t *testing.T) {
	store := newFakeStore()
	ext := &fakeExtractor{err: errors.NewUpstream("model returned an empty response", nil)}
	p := newTestPipeline(store, ext, nil)

	_, err := p.Submit(context.Background(), Submission{UserID: "u1", Timezone: "America/Los_Angeles", Text: "buy milk"})
	require.True(t, errors.Is(err, errors.ErrUpstream), "error = %v", err)
	require.Len(t, store.transcripts, 1)
	require.Empty(t, store.writes())
}

func TestSubmit_Validation(t *testing.T) {
	p := newTestPipeline(newFakeStore(), &fakeExtractor{}, nil)

	tests := []struct {
		name string
		sub  Submission
		code errors.ErrorCode
	}{
		{"missing user", Submission{Timezone: "America/Los_Angeles", Text: "x"}, errors.ErrInvalidRequest},
		{"blank text", Submission{UserID: "u1", Timezone: "America/Los_Angeles", Text: "  "}, errors.ErrInvalidRequest},
		{"bad mode", Submission{UserID: "u1", Timezone: "America/Los_Angeles", Text: "x", Mode: "chat"}, errors.ErrInvalidRequest},
		{"utc zone", Submission{UserID: "u1", Timezone: "UTC", Text: "x"}, errors.ErrInvalidTimezone},
		{"missing zone", Submission{UserID: "u1", Text: "x"}, errors.ErrInvalidTimezone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Submit(context.Background(), tt.sub); !errors.Is(err, tt.code) {
				t.Errorf("Submit() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestSubmitAudio(t *testing.T) {
	store := newFakeStore()
	ext := &fakeExtractor{plan: &intent.Intent{ActionType: intent.ActionAddTasks, TasksToAdd: []intent.NewTask{{Title: "Book flights"}}}}
	p := newTestPipeline(store, ext, nil, WithTranscriber(&fakeTranscriber{text: " book flights "}))

	out, err := p.SubmitAudio(context.Background(), AudioSubmission{
		UserID:   "u1",
		Timezone: "Asia/Kolkata",
		Audio:    []byte("RIFF...."),
		MimeType: "audio/wav",
	})
	require.NoError(t, err)
	require.Equal(t, "book flights", out.Text)
	require.Equal(t, task.SourceVoice, store.transcripts[0].Source)
	require.Len(t, out.Result.Created, 1)
}

func TestTranscribe_Errors(t *testing.T) {
	ctx := context.Background()

	noSTT := newTestPipeline(newFakeStore(), &fakeExtractor{}, nil)
	if _, err := noSTT.Transcribe(ctx, []byte("a"), "audio/wav"); !errors.Is(err, errors.ErrConfig) {
		t.Errorf("unconfigured error = %v, want CONFIG", err)
	}

	tests := []struct {
		name  string
		tr    *fakeTranscriber
		audio []byte
		mime  string
		code  errors.ErrorCode
	}{
		{"empty audio", &fakeTranscriber{text: "x"}, nil, "audio/wav", errors.ErrInvalidRequest},
		{"missing mime", &fakeTranscriber{text: "x"}, []byte("a"), "", errors.ErrInvalidRequest},
		{"blank transcript", &fakeTranscriber{text: "  "}, []byte("a"), "audio/wav", errors.ErrUpstream},
		{"service error", &fakeTranscriber{err: context.DeadlineExceeded}, []byte("a"), "audio/wav", errors.ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(newFakeStore(), &fakeExtractor{}, nil, WithTranscriber(tt.tr))
			if _, err := p.Transcribe(ctx, tt.audio, tt.mime); !errors.Is(err, tt.code) {
				t.Errorf("Transcribe() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"", ModePlan, true},
		{"PLAN", ModePlan, true},
		{" command ", ModeCommand, true},
		{"chat", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseMode(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseMode(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

// TestSubmit_SQLite runs two submissions against a real database.
func TestSubmit_SQLite(t *testing.T) {
	ctx := context.Background()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	store := ops.NewStore(database)
	notifier := &fakeNotifier{}

	ext := &fakeExtractor{plan: &intent.Intent{
		ActionType: intent.ActionAddTasks,
		TasksToAdd: []intent.NewTask{
			{Title: "Dentist appointment", DueDate: strPtr("2025-03-14T16:00:00Z")},
			{Title: "Buy milk"},
		},
	}}
	p := newTestPipeline(store, ext, notifier)

	first, err := p.Submit(ctx, Submission{UserID: "u1", Email: "u1@example.com", Timezone: "America/Los_Angeles", Text: "dentist friday 4pm, buy milk"})
	require.NoError(t, err)
	require.Len(t, first.Result.Created, 2)
	require.True(t, first.Result.Notified)
	require.Len(t, notifier.tasks, 2)

	ext.plan = &intent.Intent{
		ActionType:      intent.ActionMixed,
		TasksToUpdate:   []intent.TaskUpdate{{TaskID: "the dentist", Status: strPtr("snoozed"), SnoozeUntil: strPtr("2025-03-13T08:00:00")}},
		TasksToComplete: []string{"milk"},
	}
	second, err := p.Submit(ctx, Submission{UserID: "u1", Email: "u1@example.com", Timezone: "America/Los_Angeles", Text: "snooze the dentist until tomorrow 8am, milk is done"})
	require.NoError(t, err)
	require.Len(t, ext.planReq.Tasks, 2)
	require.Len(t, second.Result.Updated, 1)
	require.Equal(t, task.StatusSnoozed, second.Result.Updated[0].Status)
	require.Equal(t, "2025-03-13T08:00:00-07:00", *second.Result.Updated[0].SnoozeUntil)
	require.Len(t, second.Result.Completed, 1)
	require.True(t, strings.HasPrefix(second.Summary, "Added 0 tasks, updated 1 task, completed 1 task."))

	active, err := store.Active(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "Dentist appointment", active[0].Title)

	transcripts, err := ops.ListTranscripts(ctx, database, ops.ListTranscriptsInput{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, transcripts.Items, 2)
}
