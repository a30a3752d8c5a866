package intent

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/zealmehta21/nevermiss/internal/errors"
	"github.com/zealmehta21/nevermiss/internal/task"
	"github.com/zealmehta21/nevermiss/internal/timezone"
)

//go:embed prompts/*.md
var promptFS embed.FS

var (
	systemPrompt    = mustRead("prompts/system.md")
	plannerTemplate = template.Must(template.New("planner").Parse(mustRead("prompts/planner.md")))
	commandTemplate = template.Must(template.New("command").Parse(mustRead("prompts/command.md")))
)

func mustRead(name string) string {
	b, err := promptFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("intent: missing embedded prompt %s: %v", name, err))
	}
	return string(b)
}

// Model is the language-model collaborator: one prompt in, raw text out.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// PlanRequest is the input to a planner extraction.
// Now must already be in the user's zone; Zone is its IANA name.
type PlanRequest struct {
	Text  string
	Tasks []task.Task
	Now   time.Time
	Zone  string
}

// CommandRequest is the input to a short-command extraction.
type CommandRequest struct {
	Text  string
	Tasks []task.Task
	Now   time.Time
	Zone  string
}

// Extractor builds prompts, calls the model, and parses its reply.
type Extractor struct {
	model Model
}

// NewExtractor returns an Extractor backed by model.
func NewExtractor(model Model) *Extractor {
	return &Extractor{model: model}
}

// ExtractPlan reads free text into an Intent.
func (e *Extractor) ExtractPlan(ctx context.Context, req PlanRequest) (*Intent, error) {
	prompt, err := PlannerPrompt(req)
	if err != nil {
		return nil, err
	}
	raw, err := e.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return ParsePlan(raw)
}

// ExtractCommand reads a short voice command into an Intent.
func (e *Extractor) ExtractCommand(ctx context.Context, req CommandRequest) (*Intent, error) {
	prompt, err := CommandPrompt(req)
	if err != nil {
		return nil, err
	}
	raw, err := e.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return ParseCommand(raw)
}

func (e *Extractor) generate(ctx context.Context, prompt string) (string, error) {
	raw, err := e.model.Generate(ctx, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(err, errors.ErrUpstream) {
			return "", err
		}
		return "", errors.NewUpstream("language model request failed", err)
	}
	return raw, nil
}

// PlannerPrompt renders the full planner prompt for req.
func PlannerPrompt(req PlanRequest) (string, error) {
	return render(plannerTemplate, req.Text, req.Tasks, req.Now, req.Zone)
}

// CommandPrompt renders the full command prompt for req.
func CommandPrompt(req CommandRequest) (string, error) {
	return render(commandTemplate, req.Text, req.Tasks, req.Now, req.Zone)
}

type promptData struct {
	Now   string
	Zone  string
	Text  string
	Tasks string
}

func render(tmpl *template.Template, text string, tasks []task.Task, now time.Time, zone string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.NewInvalidRequest("text is required")
	}
	if strings.TrimSpace(zone) == "" {
		return "", errors.NewInvalidTimezone(zone, "the user's timezone is required to build a prompt")
	}

	var buf bytes.Buffer
	buf.WriteString(systemPrompt)
	buf.WriteString("\n\n")
	err := tmpl.Execute(&buf, promptData{
		Now:   now.Format(timezone.Layout),
		Zone:  zone,
		Text:  text,
		Tasks: FormatTasks(tasks),
	})
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return buf.String(), nil
}

// FormatTasks lists tasks one per line for a prompt.
func FormatTasks(tasks []task.Task) string {
	if len(tasks) == 0 {
		return "No existing tasks"
	}
	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		due := "None"
		if t.DueDate != nil {
			due = *t.DueDate
		}
		priority := t.Priority
		if priority == "" {
			priority = task.PriorityMedium
		}
		lines = append(lines, fmt.Sprintf("- ID: %s, Title: %s, Due: %s, Priority: %s", t.ID, t.Title, due, priority))
	}
	return strings.Join(lines, "\n")
}
