// Package intent turns free text into a structured Intent by asking a language model.
package intent

// ActionType classifies what an Intent asks for.
type ActionType string

const (
	ActionAddTasks      ActionType = "add_tasks"
	ActionUpdateTask    ActionType = "update_task"
	ActionCompleteTask  ActionType = "complete_task"
	ActionMixed         ActionType = "mixed"
	ActionClarification ActionType = "clarification"
)

// DefaultClarification is asked when the model wants clarification but gave no question.
const DefaultClarification = "Could you clarify which task you mean and what you'd like to change?"

// Known reports whether a is one of the defined action types.
func (a ActionType) Known() bool {
	switch a {
	case ActionAddTasks, ActionUpdateTask, ActionCompleteTask, ActionMixed, ActionClarification:
		return true
	}
	return false
}

// Intent is the structured reading of one submission. It is never persisted.
type Intent struct {
	ActionType            ActionType   `json:"action_type"`
	TasksToAdd            []NewTask    `json:"tasks_to_add"`
	TasksToUpdate         []TaskUpdate `json:"tasks_to_update"`
	TasksToComplete       []string     `json:"tasks_to_complete"`
	ClarificationQuestion string       `json:"clarification_question,omitempty"`
	SuggestedView         string       `json:"suggested_view,omitempty"`
}

// NewTask is a task the user asked to create. Datetimes are raw model output.
type NewTask struct {
	Title        string  `json:"title"`
	Description  *string `json:"description,omitempty"`
	DueDate      *string `json:"due_date,omitempty"`
	Priority     *string `json:"priority,omitempty"`
	ReminderTime *string `json:"reminder_time,omitempty"`
}

// TaskUpdate changes an existing task. TaskID is a reference: an exact id or a phrase.
// TaskTitle is an optional phrase tried when TaskID does not resolve.
// nil fields are left unchanged.
type TaskUpdate struct {
	TaskID       string  `json:"task_id"`
	TaskTitle    *string `json:"task_title,omitempty"`
	Title        *string `json:"title,omitempty"`
	Description  *string `json:"description,omitempty"`
	DueDate      *string `json:"due_date,omitempty"`
	Priority     *string `json:"priority,omitempty"`
	Status       *string `json:"status,omitempty"`
	SnoozeUntil  *string `json:"snooze_until,omitempty"`
	ReminderTime *string `json:"reminder_time,omitempty"`
}

// IsSnooze reports whether the update asks to snooze the task until a given time.
func (u *TaskUpdate) IsSnooze() bool {
	return u.Status != nil && *u.Status == "snoozed" && u.SnoozeUntil != nil && *u.SnoozeUntil != ""
}

// Empty reports whether the update carries no field to change.
func (u *TaskUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.DueDate == nil && u.Priority == nil &&
		u.Status == nil && u.SnoozeUntil == nil && u.ReminderTime == nil
}

// References returns the phrases to try, in order, when resolving the target task.
func (u *TaskUpdate) References() []string {
	refs := []string{u.TaskID}
	if u.TaskTitle != nil && *u.TaskTitle != "" {
		refs = append(refs, *u.TaskTitle)
	}
	return refs
}
