package notify

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/zealmehta21/nevermiss/internal/task"
	"github.com/zealmehta21/nevermiss/internal/timezone"
)

// TaskLister reads a user's active tasks.
type TaskLister interface {
	Active(ctx context.Context, userID string) ([]task.Task, error)
}

// DailyReport counts what a daily run did.
type DailyReport struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// SendDaily mails each user the tasks due today in their own timezone.
// Users without an email or without anything due are skipped; per-user
// failures are logged and counted, never returned.
func SendDaily(ctx context.Context, users []task.User, lister TaskLister, n *Notifier, now time.Time, logger *log.Logger) DailyReport {
	if logger == nil {
		logger = log.Default()
	}

	var report DailyReport
	for _, u := range users {
		if ctx.Err() != nil {
			break
		}
		if strings.TrimSpace(u.Email) == "" {
			report.Skipped++
			continue
		}
		zone, err := timezone.New(u.Timezone)
		if err != nil {
			logger.Printf("daily digest for %s: %v", u.ID, err)
			report.Failed++
			continue
		}
		tasks, err := lister.Active(ctx, u.ID)
		if err != nil {
			logger.Printf("daily digest for %s: %v", u.ID, err)
			report.Failed++
			continue
		}
		if len(task.Filter(tasks, task.ViewToday, now, zone.Location())) == 0 {
			report.Skipped++
			continue
		}
		if err := n.Daily(ctx, u.Email, tasks, now, zone.Location()); err != nil {
			logger.Printf("daily digest for %s: %v", u.ID, err)
			report.Failed++
			continue
		}
		report.Sent++
	}
	return report
}
