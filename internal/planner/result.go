package planner

import (
	"fmt"
	"strings"

	"github.com/zealmehta21/nevermiss/internal/errors"
	"github.com/zealmehta21/nevermiss/internal/task"
)

// Action names the step an item error came from.
type Action string

const (
	ActionAdd      Action = "add"
	ActionUpdate   Action = "update"
	ActionSnooze   Action = "snooze"
	ActionComplete Action = "complete"
)

// ItemError records one intent item that could not be applied.
type ItemError struct {
	Action    Action           `json:"action"`
	Reference string           `json:"reference"`
	Code      errors.ErrorCode `json:"code"`
	Message   string           `json:"message"`
}

// Result reports what one Apply run did.
type Result struct {
	RequestID     string      `json:"request_id,omitempty"`
	Created       []task.Task `json:"created"`
	Updated       []task.Task `json:"updated"`
	Completed     []task.Task `json:"completed"`
	Unresolved    []string    `json:"unresolved,omitempty"`
	Skipped       []string    `json:"skipped,omitempty"`
	Errors        []ItemError `json:"errors,omitempty"`
	Clarification string      `json:"clarification,omitempty"`
	SuggestedView string      `json:"suggested_view,omitempty"`
	Notified      bool        `json:"notified"`
}

// Changed reports whether any task was written.
func (r *Result) Changed() bool {
	return len(r.Created)+len(r.Updated)+len(r.Completed) > 0
}

// Summary renders the result for a person.
func (r *Result) Summary() string {
	if r.Clarification != "" {
		return r.Clarification
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Added %s, updated %s, completed %s.",
		plural(len(r.Created)), plural(len(r.Updated)), plural(len(r.Completed)))
	for _, ref := range r.Unresolved {
		fmt.Fprintf(&b, "\nCould not find a matching task for %q.", ref)
	}
	for _, s := range r.Skipped {
		fmt.Fprintf(&b, "\nSkipped %s.", s)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "\nFailed to %s %q: %s", e.Action, e.Reference, e.Message)
	}
	return b.String()
}

func plural(n int) string {
	if n == 1 {
		return "1 task"
	}
	return fmt.Sprintf("%d tasks", n)
}
