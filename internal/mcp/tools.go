package mcp

import "github.com/mark3labs/mcp-go/mcp"

const userIDDesc = "Id of the user whose tasks are read or changed"

const timezoneDesc = "IANA timezone of the user (e.g. America/Los_Angeles). " +
	"Defaults to the registered timezone, then the configured default. UTC is rejected."

const datetimeDesc = "Local date and time in the user's timezone, e.g. 2025-03-14T15:00:00. " +
	"Any offset given is replaced with the user's real offset."

var submitToolDef = mcp.NewTool("task_submit",
	mcp.WithDescription("Interpret free text (a plan, a brain dump, or an edit) and apply it to the user's tasks. "+
		"Adds new tasks, edits or completes existing ones, or returns a clarification question."),
	mcp.WithString("user_id", mcp.Required(), mcp.Description(userIDDesc)),
	mcp.WithString("text", mcp.Required(), mcp.Description("What the user said or typed")),
	mcp.WithString("timezone", mcp.Description(timezoneDesc)),
)

var commandToolDef = mcp.NewTool("task_command",
	mcp.WithDescription("Apply one short command to existing tasks: mark done, snooze, move a date, change priority, or add a reminder."),
	mcp.WithString("user_id", mcp.Required(), mcp.Description(userIDDesc)),
	mcp.WithString("text", mcp.Required(), mcp.Description("The command, e.g. \"snooze the report until tomorrow 9am\"")),
	mcp.WithString("timezone", mcp.Description(timezoneDesc)),
)

var listToolDef = mcp.NewTool("task_list",
	mcp.WithDescription("List the user's tasks ordered by due date, undated last. Active tasks only unless asked otherwise."),
	mcp.WithString("user_id", mcp.Required(), mcp.Description(userIDDesc)),
	mcp.WithString("status", mcp.Description("Only tasks with this status"), mcp.Enum("pending", "completed", "snoozed", "deleted")),
	mcp.WithString("view", mcp.Description("Group by due date as seen in the user's timezone"), mcp.Enum("today", "week", "upcoming")),
	mcp.WithBoolean("include_completed", mcp.Description("Also list completed tasks")),
	mcp.WithBoolean("include_deleted", mcp.Description("Also list soft-deleted tasks")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 50, max 500)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
	mcp.WithString("timezone", mcp.Description(timezoneDesc)),
)

var addToolDef = mcp.NewTool("task_add",
	mcp.WithDescription("Create one task directly, without interpretation. Similar titles are never merged."),
	mcp.WithString("user_id", mcp.Required(), mcp.Description(userIDDesc)),
	mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
	mcp.WithString("description", mcp.Description("Optional details")),
	mcp.WithString("due_date", mcp.Description(datetimeDesc)),
	mcp.WithString("priority", mcp.Description("Priority (default medium)"), mcp.Enum("p0", "high", "medium", "low")),
	mcp.WithString("reminder_time", mcp.Description(datetimeDesc)),
	mcp.WithString("timezone", mcp.Description(timezoneDesc)),
)

var updateToolDef = mcp.NewTool("task_update",
	mcp.WithDescription("Change fields of one task. Omitted fields are left alone; an empty string clears a date."),
	mcp.WithString("user_id", mcp.Required(), mcp.Description(userIDDesc)),
	mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
	mcp.WithString("title", mcp.Description("New title")),
	mcp.WithString("description", mcp.Description("New description")),
	mcp.WithString("due_date", mcp.Description(datetimeDesc)),
	mcp.WithString("priority", mcp.Description("New priority"), mcp.Enum("p0", "high", "medium", "low")),
	mcp.WithString("status", mcp.Description("New status"), mcp.Enum("pending", "completed", "snoozed")),
	mcp.WithString("snooze_until", mcp.Description(datetimeDesc)),
	mcp.WithString("reminder_time", mcp.Description(datetimeDesc)),
	mcp.WithString("timezone", mcp.Description(timezoneDesc)),
)

var completeToolDef = mcp.NewTool("task_complete",
	mcp.WithDescription("Mark one task done."),
	mcp.WithString("user_id", mcp.Required(), mcp.Description(userIDDesc)),
	mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
)

var snoozeToolDef = mcp.NewTool("task_snooze",
	mcp.WithDescription("Hide one task until a given time."),
	mcp.WithString("user_id", mcp.Required(), mcp.Description(userIDDesc)),
	mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
	mcp.WithString("until", mcp.Required(), mcp.Description(datetimeDesc)),
	mcp.WithString("timezone", mcp.Description(timezoneDesc)),
)

var deleteToolDef = mcp.NewTool("task_delete",
	mcp.WithDescription("Soft-delete one task. Deleted tasks can be purged later."),
	mcp.WithString("user_id", mcp.Required(), mcp.Description(userIDDesc)),
	mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
)
