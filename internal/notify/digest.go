// Package notify builds task digests and delivers them by email.
package notify

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/zealmehta21/nevermiss/internal/task"
)

// AppName prefixes every subject line.
const AppName = "NeverMiss"

// Message is a rendered email: a markdown text body and its HTML rendering.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// UpdateDigest lists every active task, soonest due first, after the list changed.
func UpdateDigest(tasks []task.Task) (*Message, error) {
	active := task.ActiveOnly(tasks)
	task.SortByDue(active)

	var md strings.Builder
	md.WriteString("# Your Task List Has Been Updated\n\n")
	md.WriteString("Here's your complete updated task list:\n\n")
	writeTasks(&md, active)

	return render(AppName+" - Your Task List Has Been Updated", md.String())
}

// DailyDigest lists the tasks due today or overdue, plus undated ones, as seen in loc.
func DailyDigest(tasks []task.Task, now time.Time, loc *time.Location) (*Message, error) {
	due := task.Filter(tasks, task.ViewToday, now, loc)
	task.SortByDue(due)

	day := now.In(loc).Format("January 02, 2006")
	var md strings.Builder
	md.WriteString("# Your Daily Task List\n\n")
	fmt.Fprintf(&md, "Here are your tasks for %s:\n\n", day)
	writeTasks(&md, due)

	return render(fmt.Sprintf("%s - Your Daily Task List - %s", AppName, day), md.String())
}

func writeTasks(md *strings.Builder, tasks []task.Task) {
	if len(tasks) == 0 {
		md.WriteString("Nothing on your list. Enjoy the free time!\n")
		return
	}
	for _, t := range tasks {
		fmt.Fprintf(md, "- **%s**  \n", escape(t.Title))
		if d := strings.TrimSpace(t.Description); d != "" {
			fmt.Fprintf(md, "  %s  \n", escape(d))
		}
		fmt.Fprintf(md, "  Priority: %s | Due: %s\n", strings.ToUpper(string(priorityOf(t))), formatDue(t.DueDate))
	}
}

func render(subject, md string) (*Message, error) {
	var buf bytes.Buffer
	buf.WriteString("<html><body style=\"font-family: sans-serif; color: #454240;\">\n")
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return nil, fmt.Errorf("render digest: %w", err)
	}
	buf.WriteString("</body></html>\n")
	return &Message{Subject: subject, Text: md, HTML: buf.String()}, nil
}

// formatDue shows a due date in the offset it was stored with.
func formatDue(v *string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "No due date"
	}
	t, err := time.Parse(time.RFC3339, *v)
	if err != nil {
		return *v
	}
	return t.Format("Jan 02, 2006 03:04 PM")
}

func priorityOf(t task.Task) task.Priority {
	if t.Priority == "" {
		return task.PriorityMedium
	}
	return t.Priority
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", `*`, `\*`, `_`, `\_`,
	`[`, `\[`, `]`, `\]`, `<`, `\<`, `>`, `\>`, `#`, `\#`, `|`, `\|`,
)

func escape(s string) string {
	return markdownEscaper.Replace(strings.Join(strings.Fields(s), " "))
}
