package mcp

import (
	"database/sql"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/zealmehta21/nevermiss/internal/config"
	"github.com/zealmehta21/nevermiss/internal/planner"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"task_submit": {
		def:     submitToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSubmit },
	},
	"task_command": {
		def:     commandToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCommand },
	},
	"task_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"task_add": {
		def:     addToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAdd },
	},
	"task_update": {
		def:     updateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUpdate },
	},
	"task_complete": {
		def:     completeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleComplete },
	},
	"task_snooze": {
		def:     snoozeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSnooze },
	},
	"task_delete": {
		def:     deleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with the NeverMiss tools registered.
// Tools listed in cfg.DisabledTools are skipped. pipeline may be nil when no
// language model is configured; task_submit and task_command then report CONFIG.
func NewServer(db *sql.DB, cfg *config.Config, pipeline *planner.Pipeline, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"nevermiss",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, pipeline)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, pipeline *planner.Pipeline, version string) error {
	return server.ServeStdio(NewServer(db, cfg, pipeline, version))
}
