package ops

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/zealmehta21/nevermiss/internal/db"
	"github.com/zealmehta21/nevermiss/internal/errors"
	"github.com/zealmehta21/nevermiss/internal/task"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	UserID           string
	Status           string // optional: restrict to one status
	View             string // optional: today, week, upcoming
	IncludeCompleted bool
	IncludeDeleted   bool
	Limit            int // default: 50, max: 500
	Offset           int

	// Now and Location anchor the view filter. Location is required with View.
	Now      time.Time
	Location *time.Location
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []task.Task `json:"items"`
	Pagination Pagination  `json:"pagination"`
	View       string      `json:"view,omitempty"`
	Sort       string      `json:"sort"`
}

// List returns the user's tasks ordered by due date, undated last.
// By default only pending and snoozed tasks are included.
func List(ctx context.Context, database *sql.DB, input ListInput) (*ListOutput, error) {
	userID, err := requireUser(input.UserID)
	if err != nil {
		return nil, err
	}

	statuses := []task.Status{task.StatusPending, task.StatusSnoozed}
	if input.Status != "" {
		s, ok := task.ParseStatus(input.Status)
		if !ok {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("status must be one of: pending, completed, snoozed, deleted (got %q)", input.Status))
		}
		statuses = []task.Status{s}
	} else {
		if input.IncludeCompleted {
			statuses = append(statuses, task.StatusCompleted)
		}
		if input.IncludeDeleted {
			statuses = append(statuses, task.StatusDeleted)
		}
	}

	var view task.View
	if input.View != "" {
		v, ok := task.ParseView(input.View)
		if !ok {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("view must be one of: today, week, upcoming (got %q)", input.View))
		}
		if input.Location == nil {
			return nil, errors.NewInvalidTimezone("", "a timezone is required to filter by view")
		}
		view = v
	}

	tasks, err := db.ListTasks(ctx, database, userID, statuses)
	if err != nil {
		return nil, err
	}

	if view != "" {
		now := input.Now
		if now.IsZero() {
			now = time.Now()
		}
		tasks = task.Filter(tasks, view, now, input.Location)
	}
	task.SortByDue(tasks)

	items, page := paginate(tasks, input.Limit, input.Offset)
	return &ListOutput{
		Items:      items,
		Pagination: page,
		View:       string(view),
		Sort:       "due_date_asc",
	}, nil
}

// Active returns the user's pending and snoozed tasks ordered by due date.
// It is the snapshot the intent pipeline reasons over.
func Active(ctx context.Context, database *sql.DB, userID string) ([]task.Task, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return nil, err
	}
	tasks, err := db.ListTasks(ctx, database, userID, []task.Status{task.StatusPending, task.StatusSnoozed})
	if err != nil {
		return nil, err
	}
	task.SortByDue(tasks)
	return tasks, nil
}
