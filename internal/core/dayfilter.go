package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DayRange returns the closed interval covering d's calendar day in d's
// location: midnight through 23:59:59.
func DayRange(d time.Time) (time.Time, time.Time) {
	y, m, day := d.Date()
	loc := d.Location()
	start := time.Date(y, m, day, 0, 0, 0, 0, loc)
	end := time.Date(y, m, day, 23, 59, 59, 0, loc)
	return start, end
}

// SameDay reports whether a and b fall on the same calendar day in a's
// location.
func SameDay(a, b time.Time) bool {
	start, end := DayRange(a)
	b = b.In(a.Location())
	return !b.Before(start) && !b.After(end)
}

type DayView struct {
	Date      time.Time
	Pending   []Task
	Completed []Task
}

func (v DayView) Len() int {
	return len(v.Pending) + len(v.Completed)
}

// DayFilter keeps the result set for one selected day. Every query replaces
// the previous result set wholesale.
type DayFilter struct {
	store       Store
	date        time.Time
	results     []Task
	subscribers []func(DayView)
}

func NewDayFilter(store Store, date time.Time) *DayFilter {
	return &DayFilter{store: store, date: date}
}

func (f *DayFilter) Date() time.Time {
	return f.date
}

// Results returns the last query result, newest first.
func (f *DayFilter) Results() []Task {
	return f.results
}

func (f *DayFilter) View() DayView {
	pending, completed := Split(f.results)
	return DayView{Date: f.date, Pending: pending, Completed: completed}
}

// Subscribe registers fn to receive the split view after every refresh.
func (f *DayFilter) Subscribe(fn func(DayView)) {
	f.subscribers = append(f.subscribers, fn)
}

func (f *DayFilter) SetDate(d time.Time) error {
	f.date = d
	return f.Refresh()
}

func (f *DayFilter) Refresh() error {
	start, end := DayRange(f.date)
	tasks, err := f.store.Query(start, end)
	if err != nil {
		return fmt.Errorf("query %s: %w", start.Format(time.DateOnly), err)
	}
	f.results = tasks

	if len(f.subscribers) == 0 {
		return nil
	}
	view := f.View()
	for _, fn := range f.subscribers {
		fn(view)
	}
	return nil
}

func (f *DayFilter) find(id uuid.UUID) (Task, bool) {
	for _, t := range f.results {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}
