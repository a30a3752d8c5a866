package task

import (
	"sort"
	"time"
)

// View is an advisory grouping of active tasks by due date.
type View string

const (
	ViewToday    View = "today"
	ViewWeek     View = "week"
	ViewUpcoming View = "upcoming"
)

// ParseView returns the View for s, or false when s is not a known view.
func ParseView(s string) (View, bool) {
	switch v := View(Normalize(s)); v {
	case ViewToday, ViewWeek, ViewUpcoming:
		return v, true
	}
	return "", false
}

// WeekEnd returns the date of the coming Sunday in loc. On a Sunday it is the next Sunday.
func WeekEnd(now time.Time, loc *time.Location) time.Time {
	today := startOfDay(now.In(loc))
	days := (7 - int(today.Weekday())) % 7
	if days == 0 {
		days = 7
	}
	return today.AddDate(0, 0, days)
}

// Filter returns the active tasks that belong to view as seen from now in loc.
// Undated tasks appear in today and upcoming; tasks with an unreadable due date appear in today.
func Filter(tasks []Task, view View, now time.Time, loc *time.Location) []Task {
	today := startOfDay(now.In(loc))
	weekEnd := WeekEnd(now, loc)

	var out []Task
	for _, t := range tasks {
		if !t.Active() {
			continue
		}
		if t.DueDate == nil {
			if view == ViewToday || view == ViewUpcoming {
				out = append(out, t)
			}
			continue
		}
		due, ok := t.Due()
		if !ok {
			if view == ViewToday {
				out = append(out, t)
			}
			continue
		}
		day := startOfDay(due.In(loc))
		switch view {
		case ViewToday:
			if !day.After(today) {
				out = append(out, t)
			}
		case ViewWeek:
			if !day.After(weekEnd) {
				out = append(out, t)
			}
		case ViewUpcoming:
			if day.After(weekEnd) {
				out = append(out, t)
			}
		}
	}
	return out
}

// SortByDue orders tasks by due date ascending; undated or unreadable dates go last.
// The sort is stable so equal keys keep their input order.
func SortByDue(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		di, okI := tasks[i].Due()
		dj, okJ := tasks[j].Due()
		switch {
		case okI && okJ:
			return di.Before(dj)
		case okI:
			return true
		default:
			return false
		}
	})
}

// ActiveOnly drops completed and deleted tasks.
func ActiveOnly(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Active() {
			out = append(out, t)
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
