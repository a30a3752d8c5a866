package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/zealmehta21/nevermiss/internal/config"
	"github.com/zealmehta21/nevermiss/internal/errors"
	"github.com/zealmehta21/nevermiss/internal/ops"
	"github.com/zealmehta21/nevermiss/internal/planner"
	"github.com/zealmehta21/nevermiss/internal/task"
	"github.com/zealmehta21/nevermiss/internal/timezone"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	pipeline *planner.Pipeline
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, pipeline *planner.Pipeline) *Handlers {
	return &Handlers{db: db, cfg: cfg, pipeline: pipeline}
}

// SubmitRequest represents the arguments for task_submit and task_command.
type SubmitRequest struct {
	UserID   string `json:"user_id"`
	Text     string `json:"text"`
	Timezone string `json:"timezone,omitempty"`
}

// ListRequest represents the arguments for task_list.
type ListRequest struct {
	UserID           string `json:"user_id"`
	Status           string `json:"status,omitempty"`
	View             string `json:"view,omitempty"`
	IncludeCompleted bool   `json:"include_completed,omitempty"`
	IncludeDeleted   bool   `json:"include_deleted,omitempty"`
	Limit            int    `json:"limit,omitempty"`
	Offset           int    `json:"offset,omitempty"`
	Timezone         string `json:"timezone,omitempty"`
}

// AddRequest represents the arguments for task_add.
type AddRequest struct {
	UserID       string  `json:"user_id"`
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	DueDate      *string `json:"due_date,omitempty"`
	Priority     string  `json:"priority,omitempty"`
	ReminderTime *string `json:"reminder_time,omitempty"`
	Timezone     string  `json:"timezone,omitempty"`
}

// UpdateRequest represents the arguments for task_update.
type UpdateRequest struct {
	UserID       string  `json:"user_id"`
	ID           string  `json:"id"`
	Title        *string `json:"title,omitempty"`
	Description  *string `json:"description,omitempty"`
	DueDate      *string `json:"due_date,omitempty"`
	Priority     *string `json:"priority,omitempty"`
	Status       *string `json:"status,omitempty"`
	SnoozeUntil  *string `json:"snooze_until,omitempty"`
	ReminderTime *string `json:"reminder_time,omitempty"`
	Timezone     string  `json:"timezone,omitempty"`
}

// TaskRequest identifies one task for task_complete and task_delete.
type TaskRequest struct {
	UserID string `json:"user_id"`
	ID     string `json:"id"`
}

// SnoozeRequest represents the arguments for task_snooze.
type SnoozeRequest struct {
	UserID   string `json:"user_id"`
	ID       string `json:"id"`
	Until    string `json:"until"`
	Timezone string `json:"timezone,omitempty"`
}

// HandleSubmit handles the task_submit tool call.
func (h *Handlers) HandleSubmit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.submit(ctx, req, planner.ModePlan)
}

// HandleCommand handles the task_command tool call.
func (h *Handlers) HandleCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.submit(ctx, req, planner.ModeCommand)
}

func (h *Handlers) submit(ctx context.Context, req mcp.CallToolRequest, mode planner.Mode) (*mcp.CallToolResult, error) {
	input, err := decode[SubmitRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if h.pipeline == nil {
		return errorResult(errors.NewConfig("no language model configured (set GEMINI_API_KEY)")), nil
	}

	user, err := ops.ResolveUser(ctx, h.db, input.UserID, input.Timezone, h.cfg.Timezone)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.pipeline.Submit(ctx, planner.Submission{
		UserID:   user.ID,
		Email:    user.Email,
		Timezone: user.Timezone,
		Text:     input.Text,
		Mode:     mode,
		Source:   task.SourceText,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the task_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	listInput := ops.ListInput{
		UserID:           input.UserID,
		Status:           input.Status,
		View:             input.View,
		IncludeCompleted: input.IncludeCompleted,
		IncludeDeleted:   input.IncludeDeleted,
		Limit:            input.Limit,
		Offset:           input.Offset,
	}
	if input.View != "" {
		zone, err := h.zone(ctx, input.UserID, input.Timezone)
		if err != nil {
			return errorResult(err), nil
		}
		listInput.Now = zone.Now()
		listInput.Location = zone.Location()
	}

	result, err := ops.List(ctx, h.db, listInput)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleAdd handles the task_add tool call.
func (h *Handlers) HandleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	zone, err := h.zone(ctx, input.UserID, input.Timezone)
	if err != nil {
		return errorResult(err), nil
	}
	due, err := zone.Stamp("due_date", input.DueDate)
	if err != nil {
		return errorResult(err), nil
	}
	reminder, err := zone.Stamp("reminder_time", input.ReminderTime)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Create(ctx, h.db, ops.CreateInput{
		UserID:       input.UserID,
		Title:        input.Title,
		Description:  input.Description,
		DueDate:      due,
		Priority:     input.Priority,
		ReminderTime: reminder,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleUpdate handles the task_update tool call.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	zone, err := h.zone(ctx, input.UserID, input.Timezone)
	if err != nil {
		return errorResult(err), nil
	}
	stamps := map[string]**string{
		"due_date":      &input.DueDate,
		"snooze_until":  &input.SnoozeUntil,
		"reminder_time": &input.ReminderTime,
	}
	for field, p := range stamps {
		if *p, err = zone.Stamp(field, *p); err != nil {
			return errorResult(err), nil
		}
	}

	result, err := ops.Update(ctx, h.db, ops.UpdateInput{
		UserID:       input.UserID,
		ID:           input.ID,
		Title:        input.Title,
		Description:  input.Description,
		DueDate:      input.DueDate,
		Priority:     input.Priority,
		Status:       input.Status,
		SnoozeUntil:  input.SnoozeUntil,
		ReminderTime: input.ReminderTime,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleComplete handles the task_complete tool call.
func (h *Handlers) HandleComplete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TaskRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Complete(ctx, h.db, ops.CompleteInput{UserID: input.UserID, ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSnooze handles the task_snooze tool call.
func (h *Handlers) HandleSnooze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SnoozeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	zone, err := h.zone(ctx, input.UserID, input.Timezone)
	if err != nil {
		return errorResult(err), nil
	}
	until, err := zone.Stamp("snooze_until", &input.Until)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Snooze(ctx, h.db, ops.SnoozeInput{UserID: input.UserID, ID: input.ID, Until: *until})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDelete handles the task_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TaskRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Delete(ctx, h.db, ops.DeleteInput{UserID: input.UserID, ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// zone returns the normalizer for the user's effective timezone.
func (h *Handlers) zone(ctx context.Context, userID, override string) (*timezone.Normalizer, error) {
	user, err := ops.ResolveUser(ctx, h.db, userID, override, h.cfg.Timezone)
	if err != nil {
		return nil, err
	}
	return timezone.New(user.Timezone)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if nmErr, ok := err.(*errors.Error); ok {
		errorObj := map[string]any{
			"code":    nmErr.Code,
			"message": nmErr.Message,
			"status":  nmErr.Status,
		}
		if nmErr.Code != errors.ErrInternal && nmErr.Details != nil {
			errorObj["details"] = nmErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
