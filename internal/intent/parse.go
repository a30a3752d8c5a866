package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zealmehta21/nevermiss/internal/errors"
)

// StripFences removes a surrounding markdown code fence, with or without a language tag.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// Drop a language tag such as "json" up to the first newline.
		if i := strings.IndexAny(s, "\n{["); i >= 0 && !strings.ContainsAny(s[:i], "{}[]\"") {
			s = s[i:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParsePlan decodes a planner response. Empty output, invalid JSON, and unknown
// action types are UPSTREAM errors; a malformed reply never becomes an empty Intent.
func ParsePlan(raw string) (*Intent, error) {
	body, err := payload(raw)
	if err != nil {
		return nil, err
	}

	var in Intent
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		return nil, errors.NewUpstream("model response is not valid intent JSON", err)
	}
	if !in.ActionType.Known() {
		return nil, errors.NewUpstream(fmt.Sprintf("model response has unknown action_type %q", in.ActionType), nil)
	}
	if in.ActionType == ActionClarification && strings.TrimSpace(in.ClarificationQuestion) == "" {
		in.ClarificationQuestion = DefaultClarification
	}
	return &in, nil
}

// CommandType is the verb of a short voice command.
type CommandType string

const (
	CommandMarkDone       CommandType = "mark_done"
	CommandSnooze         CommandType = "snooze"
	CommandEditDate       CommandType = "edit_date"
	CommandChangePriority CommandType = "change_priority"
	CommandAddReminder    CommandType = "add_reminder"
	CommandUnknown        CommandType = "unknown"
)

// Command is the model's reading of a short voice command.
type Command struct {
	CommandType           CommandType       `json:"command_type"`
	TargetTaskIDs         []string          `json:"target_task_ids"`
	Parameters            CommandParameters `json:"parameters"`
	Confidence            float64           `json:"confidence"`
	ClarificationNeeded   bool              `json:"clarification_needed"`
	ClarificationQuestion string            `json:"clarification_question,omitempty"`
}

// CommandParameters carries the values a command sets.
type CommandParameters struct {
	SnoozeUntil  *string `json:"snooze_until,omitempty"`
	NewDueDate   *string `json:"new_due_date,omitempty"`
	NewPriority  *string `json:"new_priority,omitempty"`
	ReminderTime *string `json:"reminder_time,omitempty"`
}

// ParseCommand decodes a command response and converts it to an Intent.
func ParseCommand(raw string) (*Intent, error) {
	body, err := payload(raw)
	if err != nil {
		return nil, err
	}

	var cmd Command
	if err := json.Unmarshal([]byte(body), &cmd); err != nil {
		return nil, errors.NewUpstream("model response is not valid command JSON", err)
	}
	return cmd.Intent()
}

// Intent converts the command into the common Intent shape.
func (c *Command) Intent() (*Intent, error) {
	switch c.CommandType {
	case CommandMarkDone, CommandSnooze, CommandEditDate, CommandChangePriority, CommandAddReminder, CommandUnknown:
	default:
		return nil, errors.NewUpstream(fmt.Sprintf("model response has unknown command_type %q", c.CommandType), nil)
	}

	if c.ClarificationNeeded || c.CommandType == CommandUnknown || len(c.TargetTaskIDs) == 0 {
		q := strings.TrimSpace(c.ClarificationQuestion)
		if q == "" {
			q = DefaultClarification
		}
		return &Intent{ActionType: ActionClarification, ClarificationQuestion: q}, nil
	}

	if c.CommandType == CommandMarkDone {
		return &Intent{ActionType: ActionCompleteTask, TasksToComplete: c.TargetTaskIDs}, nil
	}

	in := &Intent{ActionType: ActionUpdateTask}
	for _, id := range c.TargetTaskIDs {
		u := TaskUpdate{TaskID: id}
		switch c.CommandType {
		case CommandSnooze:
			status := "snoozed"
			u.Status = &status
			u.SnoozeUntil = c.Parameters.SnoozeUntil
		case CommandEditDate:
			u.DueDate = c.Parameters.NewDueDate
		case CommandChangePriority:
			u.Priority = c.Parameters.NewPriority
		case CommandAddReminder:
			u.ReminderTime = c.Parameters.ReminderTime
		}
		in.TasksToUpdate = append(in.TasksToUpdate, u)
	}
	return in, nil
}

// payload strips fences and rejects empty output.
func payload(raw string) (string, error) {
	body := StripFences(raw)
	if body == "" {
		return "", errors.NewUpstream("model returned an empty response", nil)
	}
	return body, nil
}
