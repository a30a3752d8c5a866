// Package planner applies an Intent to a user's task list and drives the
// submit pipeline: transcript, snapshot, extraction, application, notification.
package planner

import (
	"context"
	stderrors "errors"
	"log"
	"strings"

	"github.com/zealmehta21/nevermiss/internal/errors"
	"github.com/zealmehta21/nevermiss/internal/intent"
	"github.com/zealmehta21/nevermiss/internal/ops"
	"github.com/zealmehta21/nevermiss/internal/resolver"
	"github.com/zealmehta21/nevermiss/internal/task"
	"github.com/zealmehta21/nevermiss/internal/timezone"
)

// TaskStore is the storage collaborator. Every call is scoped to one user.
type TaskStore interface {
	Create(ctx context.Context, in ops.CreateInput) (*task.Task, error)
	Update(ctx context.Context, in ops.UpdateInput) (*task.Task, error)
	Complete(ctx context.Context, in ops.CompleteInput) (*task.Task, error)
	Snooze(ctx context.Context, in ops.SnoozeInput) (*task.Task, error)
	Active(ctx context.Context, userID string) ([]task.Task, error)
}

// Notifier sends a summary of the user's active tasks. Failures are never fatal.
type Notifier interface {
	Notify(ctx context.Context, email string, tasks []task.Task) error
}

// Session is the request-scoped context of one submission.
type Session struct {
	RequestID string
	UserID    string
	Email     string
	Zone      *timezone.Normalizer
}

// Orchestrator applies intents through a TaskStore.
type Orchestrator struct {
	store    TaskStore
	notifier Notifier
	logger   *log.Logger
}

// New returns an Orchestrator. notifier may be nil to disable notifications.
func New(store TaskStore, notifier Notifier, opts ...Option) *Orchestrator {
	o := buildOptions(opts)
	return &Orchestrator{store: store, notifier: notifier, logger: o.logger}
}

// Apply carries out in against the user's tasks. snapshot is the active task
// list the intent was extracted against; it is not modified.
//
// A done ctx before any write returns the context error. Once items start
// being applied the whole batch runs to completion.
func (o *Orchestrator) Apply(ctx context.Context, sess Session, in *intent.Intent, snapshot []task.Task) (*Result, error) {
	if in == nil {
		return nil, errors.NewInvalidRequest("intent is required")
	}
	if strings.TrimSpace(sess.UserID) == "" {
		return nil, errors.NewInvalidRequest("user_id is required")
	}
	if sess.Zone == nil {
		return nil, errors.NewInvalidTimezone("", "the user's timezone is required to apply an intent")
	}

	res := &Result{
		RequestID: sess.RequestID,
		Created:   []task.Task{},
		Updated:   []task.Task{},
		Completed: []task.Task{},
	}
	if v, ok := task.ParseView(in.SuggestedView); ok {
		res.SuggestedView = string(v)
	}

	if in.ActionType == intent.ActionClarification {
		q := strings.TrimSpace(in.ClarificationQuestion)
		if q == "" {
			q = intent.DefaultClarification
		}
		res.Clarification = q
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	work := context.WithoutCancel(ctx)

	a := &applier{o: o, sess: sess, snapshot: snapshot, res: res}
	for _, nt := range in.TasksToAdd {
		a.add(work, nt)
	}
	for _, u := range in.TasksToUpdate {
		a.update(work, u)
	}
	for _, ref := range in.TasksToComplete {
		a.complete(work, ref)
	}

	if res.Changed() {
		o.notify(work, sess, res)
	}
	return res, nil
}

func (o *Orchestrator) notify(ctx context.Context, sess Session, res *Result) {
	if o.notifier == nil {
		return
	}
	if sess.Email == "" {
		o.logf(sess, "no email on file for user %s, skipping notification", sess.UserID)
		return
	}
	active, err := o.store.Active(ctx, sess.UserID)
	if err != nil {
		o.logf(sess, "notification skipped, could not read tasks: %v", err)
		return
	}
	if err := o.notifier.Notify(ctx, sess.Email, active); err != nil {
		o.logf(sess, "notification failed: %v", err)
		return
	}
	res.Notified = true
}

func (o *Orchestrator) logf(sess Session, format string, args ...any) {
	o.logger.Printf("[%s] "+format, append([]any{sess.RequestID}, args...)...)
}

// applier holds the state of one Apply run.
type applier struct {
	o        *Orchestrator
	sess     Session
	snapshot []task.Task
	created  []task.Task
	res      *Result
}

func (a *applier) add(ctx context.Context, nt intent.NewTask) {
	title := task.CleanTitle(nt.Title)

	due, err := a.sess.Zone.Stamp("due_date", nt.DueDate)
	if err != nil {
		a.fail(ActionAdd, title, err)
		return
	}
	reminder, err := a.sess.Zone.Stamp("reminder_time", nt.ReminderTime)
	if err != nil {
		a.fail(ActionAdd, title, err)
		return
	}

	in := ops.CreateInput{
		UserID:       a.sess.UserID,
		Title:        title,
		DueDate:      due,
		ReminderTime: reminder,
	}
	if nt.Description != nil {
		in.Description = *nt.Description
	}
	if nt.Priority != nil {
		if _, ok := task.ParsePriority(*nt.Priority); ok {
			in.Priority = *nt.Priority
		} else {
			a.o.logf(a.sess, "unknown priority %q for %q, using medium", *nt.Priority, title)
		}
	}

	t, err := a.o.store.Create(ctx, in)
	if err != nil {
		a.fail(ActionAdd, title, err)
		return
	}
	a.created = append(a.created, *t)
	a.res.Created = append(a.res.Created, *t)
}

func (a *applier) update(ctx context.Context, u intent.TaskUpdate) {
	ref := describe(u.References())
	id, ok := a.resolve(u.References()...)
	if !ok {
		a.res.Unresolved = append(a.res.Unresolved, ref)
		return
	}
	if u.Empty() {
		a.res.Skipped = append(a.res.Skipped, ref+": nothing to change")
		return
	}

	due, err := a.sess.Zone.Stamp("due_date", u.DueDate)
	if err != nil {
		a.fail(ActionUpdate, ref, err)
		return
	}
	reminder, err := a.sess.Zone.Stamp("reminder_time", u.ReminderTime)
	if err != nil {
		a.fail(ActionUpdate, ref, err)
		return
	}
	until, err := a.sess.Zone.Stamp("snooze_until", u.SnoozeUntil)
	if err != nil {
		a.fail(ActionUpdate, ref, err)
		return
	}

	if u.IsSnooze() {
		t, err := a.o.store.Snooze(ctx, ops.SnoozeInput{UserID: a.sess.UserID, ID: id, Until: *until})
		if err != nil {
			a.fail(ActionSnooze, ref, err)
			return
		}
		rest := ops.UpdateInput{
			UserID:       a.sess.UserID,
			ID:           id,
			Title:        u.Title,
			Description:  u.Description,
			DueDate:      due,
			Priority:     u.Priority,
			ReminderTime: reminder,
		}
		if rest.Title != nil || rest.Description != nil || rest.DueDate != nil || rest.Priority != nil || rest.ReminderTime != nil {
			edited, err := a.o.store.Update(ctx, rest)
			if err != nil {
				// The snooze is already stored.
				a.res.Updated = append(a.res.Updated, *t)
				a.fail(ActionUpdate, ref, err)
				return
			}
			t = edited
		}
		a.res.Updated = append(a.res.Updated, *t)
		return
	}

	t, err := a.o.store.Update(ctx, ops.UpdateInput{
		UserID:       a.sess.UserID,
		ID:           id,
		Title:        u.Title,
		Description:  u.Description,
		DueDate:      due,
		Priority:     u.Priority,
		Status:       u.Status,
		SnoozeUntil:  until,
		ReminderTime: reminder,
	})
	if err != nil {
		a.fail(ActionUpdate, ref, err)
		return
	}
	a.res.Updated = append(a.res.Updated, *t)
}

func (a *applier) complete(ctx context.Context, ref string) {
	id, ok := a.resolve(ref)
	if !ok {
		a.res.Unresolved = append(a.res.Unresolved, strings.TrimSpace(ref))
		return
	}
	t, err := a.o.store.Complete(ctx, ops.CompleteInput{UserID: a.sess.UserID, ID: id})
	if err != nil {
		a.fail(ActionComplete, ref, err)
		return
	}
	a.res.Completed = append(a.res.Completed, *t)
}

// resolve tries each reference in turn. Exact ids of tasks created earlier in
// the batch are accepted; phrases only match the snapshot.
func (a *applier) resolve(refs ...string) (string, bool) {
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		for _, c := range a.created {
			if c.ID == ref {
				return c.ID, true
			}
		}
		if id, ok := resolver.ResolveReference(ref, a.snapshot); ok {
			return id, true
		}
	}
	return "", false
}

func (a *applier) fail(action Action, ref string, err error) {
	ie := ItemError{Action: action, Reference: ref, Code: errors.ErrInternal, Message: err.Error()}
	var nmErr *errors.Error
	if stderrors.As(err, &nmErr) {
		ie.Code = nmErr.Code
		ie.Message = nmErr.Message
	}
	a.o.logf(a.sess, "%s %q failed: %v", action, ref, err)
	a.res.Errors = append(a.res.Errors, ie)
}

// describe picks the most readable reference for reporting.
func describe(refs []string) string {
	for i := len(refs) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(refs[i]); s != "" {
			return s
		}
	}
	return ""
}
