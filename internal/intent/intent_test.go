package intent

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zealmehta21/nevermiss/internal/errors"
	"github.com/zealmehta21/nevermiss/internal/task"
)

// fakeModel records the prompt and replies with a canned response.
type fakeModel struct {
	reply  string
	err    error
	prompt string
	calls  int
}

func (m *fakeModel) Generate(_ context.Context, prompt string) (string, error) {
	m.calls++
	m.prompt = prompt
	return m.reply, m.err
}

func strPtr(s string) *string { return &s }

func laNow(t *testing.T) time.Time {
	t.Helper()
	la, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	return time.Date(2025, 3, 12, 9, 30, 0, 0, la) // Wednesday
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```JSON\n{\"a\":1}```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"```{\"a\":1}```", `{"a":1}`},
		{"  \n```json\n{\"a\":1}\n```  \n", `{"a":1}`},
		{"```json\n```", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := StripFences(tt.input); got != tt.want {
			t.Errorf("StripFences(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParsePlan(t *testing.T) {
	raw := "```json\n" + `{
		"action_type": "mixed",
		"tasks_to_add": [{"title": "Buy milk", "due_date": "2025-03-12T18:00:00Z", "priority": "high", "reminder_time": null}],
		"tasks_to_update": [{"task_id": "dentist", "status": "snoozed", "snooze_until": "2025-03-13T09:00:00"}],
		"tasks_to_complete": ["01HZX0000000000000000000AA"],
		"clarification_question": null,
		"suggested_view": "today"
	}` + "\n```"

	in, err := ParsePlan(raw)
	require.NoError(t, err)
	require.Equal(t, ActionMixed, in.ActionType)
	require.Len(t, in.TasksToAdd, 1)
	require.Equal(t, "Buy milk", in.TasksToAdd[0].Title)
	require.Equal(t, "2025-03-12T18:00:00Z", *in.TasksToAdd[0].DueDate)
	require.Nil(t, in.TasksToAdd[0].ReminderTime)
	require.Len(t, in.TasksToUpdate, 1)
	require.True(t, in.TasksToUpdate[0].IsSnooze())
	require.Equal(t, []string{"01HZX0000000000000000000AA"}, in.TasksToComplete)
	require.Equal(t, "today", in.SuggestedView)
}

func TestParsePlan_ClarificationGetsDefaultQuestion(t *testing.T) {
	in, err := ParsePlan(`{"action_type": "clarification", "clarification_question": null}`)
	require.NoError(t, err)
	require.Equal(t, ActionClarification, in.ActionType)
	require.Equal(t, DefaultClarification, in.ClarificationQuestion)
}

func TestParsePlan_MalformedIsUpstreamError(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"```json\n```",
		"Sure! Here are your tasks.",
		`{"action_type": "add_tasks", "tasks_to_add": [`,
		`{"action_type": "delete_everything"}`,
		`{}`,
		`[]`,
	} {
		in, err := ParsePlan(raw)
		if in != nil {
			t.Errorf("ParsePlan(%q) = %+v, want nil intent", raw, in)
		}
		if !errors.Is(err, errors.ErrUpstream) {
			t.Errorf("ParsePlan(%q) error = %v, want UPSTREAM", raw, err)
		}
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		check func(t *testing.T, in *Intent)
	}{
		{
			name: "mark done",
			raw:  `{"command_type": "mark_done", "target_task_ids": ["a", "b"], "parameters": {}, "confidence": 0.9, "clarification_needed": false}`,
			check: func(t *testing.T, in *Intent) {
				require.Equal(t, ActionCompleteTask, in.ActionType)
				require.Equal(t, []string{"a", "b"}, in.TasksToComplete)
			},
		},
		{
			name: "snooze",
			raw:  `{"command_type": "snooze", "target_task_ids": ["a"], "parameters": {"snooze_until": "2025-03-13T09:00:00"}}`,
			check: func(t *testing.T, in *Intent) {
				require.Equal(t, ActionUpdateTask, in.ActionType)
				require.Len(t, in.TasksToUpdate, 1)
				require.True(t, in.TasksToUpdate[0].IsSnooze())
				require.Equal(t, "2025-03-13T09:00:00", *in.TasksToUpdate[0].SnoozeUntil)
			},
		},
		{
			name: "edit date",
			raw:  `{"command_type": "edit_date", "target_task_ids": ["a"], "parameters": {"new_due_date": "2025-03-14T15:00:00"}}`,
			check: func(t *testing.T, in *Intent) {
				require.Equal(t, "2025-03-14T15:00:00", *in.TasksToUpdate[0].DueDate)
				require.Nil(t, in.TasksToUpdate[0].Status)
			},
		},
		{
			name: "change priority",
			raw:  `{"command_type": "change_priority", "target_task_ids": ["a"], "parameters": {"new_priority": "p0"}}`,
			check: func(t *testing.T, in *Intent) {
				require.Equal(t, "p0", *in.TasksToUpdate[0].Priority)
			},
		},
		{
			name: "add reminder",
			raw:  `{"command_type": "add_reminder", "target_task_ids": ["a"], "parameters": {"reminder_time": "2025-03-13T11:00:00"}}`,
			check: func(t *testing.T, in *Intent) {
				require.Equal(t, "2025-03-13T11:00:00", *in.TasksToUpdate[0].ReminderTime)
			},
		},
		{
			name: "unknown asks for clarification",
			raw:  `{"command_type": "unknown", "target_task_ids": []}`,
			check: func(t *testing.T, in *Intent) {
				require.Equal(t, ActionClarification, in.ActionType)
				require.Equal(t, DefaultClarification, in.ClarificationQuestion)
			},
		},
		{
			name: "low confidence keeps model question",
			raw:  `{"command_type": "snooze", "target_task_ids": ["a"], "clarification_needed": true, "clarification_question": "Which report?"}`,
			check: func(t *testing.T, in *Intent) {
				require.Equal(t, ActionClarification, in.ActionType)
				require.Equal(t, "Which report?", in.ClarificationQuestion)
				require.Empty(t, in.TasksToUpdate)
			},
		},
		{
			name: "no targets asks for clarification",
			raw:  `{"command_type": "mark_done", "target_task_ids": []}`,
			check: func(t *testing.T, in *Intent) {
				require.Equal(t, ActionClarification, in.ActionType)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := ParseCommand(tt.raw)
			require.NoError(t, err)
			tt.check(t, in)
		})
	}
}

func TestParseCommand_MalformedIsUpstreamError(t *testing.T) {
	for _, raw := range []string{"", "```\n```", "not json", `{"command_type": "launch_rocket", "target_task_ids": ["a"]}`} {
		in, err := ParseCommand(raw)
		if in != nil || !errors.Is(err, errors.ErrUpstream) {
			t.Errorf("ParseCommand(%q) = (%v, %v), want UPSTREAM error", raw, in, err)
		}
	}
}

func TestPlannerPrompt(t *testing.T) {
	now := laNow(t)
	tasks := []task.Task{
		{ID: "01HZX0000000000000000000AA", Title: "Call mom", DueDate: strPtr("2025-03-12T18:00:00-07:00"), Priority: task.PriorityHigh},
		{ID: "01HZX0000000000000000000BB", Title: "Water plants"},
	}

	prompt, err := PlannerPrompt(PlanRequest{Text: "  reschedule calling mom to Friday 3pm ", Tasks: tasks, Now: now, Zone: "America/Los_Angeles"})
	require.NoError(t, err)

	for _, want := range []string{
		"JSON object and nothing else",
		"Current DateTime: 2025-03-12T09:30:00-07:00",
		"Timezone: America/Los_Angeles",
		`User Input: "reschedule calling mom to Friday 3pm"`,
		"- ID: 01HZX0000000000000000000AA, Title: Call mom, Due: 2025-03-12T18:00:00-07:00, Priority: high",
		"- ID: 01HZX0000000000000000000BB, Title: Water plants, Due: None, Priority: medium",
		`"update", "change", "modify", "edit", "move", "reschedule"`,
		"ALWAYS create a NEW task, even if a similar task exists",
		`use action_type "complete_task"`,
		`set status to "snoozed" and set snooze_until`,
		"less than 70% confident",
		"Never convert to UTC",
		`"suggested_view": "today" | "week" | "upcoming"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("planner prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "{{") {
		t.Error("planner prompt has unrendered template actions")
	}
}

func TestPlannerPrompt_NoTasks(t *testing.T) {
	prompt, err := PlannerPrompt(PlanRequest{Text: "buy milk", Now: laNow(t), Zone: "America/Los_Angeles"})
	require.NoError(t, err)
	require.Contains(t, prompt, "Existing Incomplete Tasks:\nNo existing tasks")
}

func TestPlannerPrompt_UsesCallerZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	now := time.Date(2025, 3, 13, 1, 30, 0, 0, tokyo)

	prompt, err := PlannerPrompt(PlanRequest{Text: "buy milk", Now: now, Zone: "Asia/Tokyo"})
	require.NoError(t, err)
	require.Contains(t, prompt, "Current DateTime: 2025-03-13T01:30:00+09:00")
	require.Contains(t, prompt, "Timezone: Asia/Tokyo")
	require.NotContains(t, prompt, "America/Los_Angeles")
}

func TestPrompt_RejectsMissingInput(t *testing.T) {
	_, err := PlannerPrompt(PlanRequest{Text: "  ", Now: laNow(t), Zone: "America/Los_Angeles"})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("empty text error = %v, want INVALID_REQUEST", err)
	}
	_, err = CommandPrompt(CommandRequest{Text: "done with milk", Now: laNow(t)})
	if !errors.Is(err, errors.ErrInvalidTimezone) {
		t.Errorf("missing zone error = %v, want INVALID_TIMEZONE", err)
	}
}

func TestCommandPrompt(t *testing.T) {
	prompt, err := CommandPrompt(CommandRequest{
		Text:  "snooze the report until tomorrow",
		Tasks: []task.Task{{ID: "r1", Title: "Quarterly report", Priority: task.PriorityLow}},
		Now:   laNow(t),
		Zone:  "America/Los_Angeles",
	})
	require.NoError(t, err)
	require.Contains(t, prompt, `Command: "snooze the report until tomorrow"`)
	require.Contains(t, prompt, `"command_type": "mark_done" | "snooze" | "edit_date" | "change_priority" | "add_reminder" | "unknown"`)
	require.Contains(t, prompt, "- ID: r1, Title: Quarterly report, Due: None, Priority: low")
	require.Contains(t, prompt, "Current DateTime: 2025-03-12T09:30:00-07:00")
}

func TestExtractPlan(t *testing.T) {
	model := &fakeModel{reply: "```json\n{\"action_type\": \"add_tasks\", \"tasks_to_add\": [{\"title\": \"Call mom\"}]}\n```"}
	ex := NewExtractor(model)

	existing := []task.Task{{ID: "m1", Title: "Call mom", Priority: task.PriorityMedium}}
	in, err := ex.ExtractPlan(context.Background(), PlanRequest{Text: "Call mom", Tasks: existing, Now: laNow(t), Zone: "America/Los_Angeles"})
	require.NoError(t, err)
	require.Equal(t, 1, model.calls)
	require.Contains(t, model.prompt, "- ID: m1, Title: Call mom")
	require.Equal(t, ActionAddTasks, in.ActionType)
	require.Len(t, in.TasksToAdd, 1)
	require.Empty(t, in.TasksToUpdate)
}

func TestExtractPlan_ModelFailures(t *testing.T) {
	req := PlanRequest{Text: "buy milk", Now: laNow(t), Zone: "America/Los_Angeles"}

	tests := []struct {
		name  string
		model *fakeModel
	}{
		{"transport error", &fakeModel{err: stderrors.New("connection reset")}},
		{"empty reply", &fakeModel{reply: ""}},
		{"fences only", &fakeModel{reply: "```json\n```"}},
		{"prose", &fakeModel{reply: "I could not understand that."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := NewExtractor(tt.model).ExtractPlan(context.Background(), req)
			require.Nil(t, in)
			require.True(t, errors.Is(err, errors.ErrUpstream), "error = %v", err)
		})
	}
}

func TestExtractCommand_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	model := &fakeModel{err: context.Canceled}
	_, err := NewExtractor(model).ExtractCommand(ctx, CommandRequest{Text: "done with milk", Now: laNow(t), Zone: "America/Los_Angeles"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestExtractCommand(t *testing.T) {
	model := &fakeModel{reply: `{"command_type": "mark_done", "target_task_ids": ["milk"], "confidence": 0.95, "clarification_needed": false}`}
	in, err := NewExtractor(model).ExtractCommand(context.Background(), CommandRequest{Text: "milk is done", Now: laNow(t), Zone: "America/Los_Angeles"})
	require.NoError(t, err)
	require.Equal(t, ActionCompleteTask, in.ActionType)
	require.Equal(t, []string{"milk"}, in.TasksToComplete)
}
