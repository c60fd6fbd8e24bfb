package core

import (
	"bytes"
	"errors"
	"log"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

type RowState int

const (
	Idle RowState = iota
	Editing
)

// Controller turns host events into edits and decides when records are
// cleaned up and saved. A row's session ends on submit, focus loss,
// disappearance or the host leaving the foreground; each end runs
// RemoveIfEmpty and then Save.
type Controller struct {
	store  Store
	filter *DayFilter
	editor *Editor
	logger *log.Logger
	rows   map[uuid.UUID]RowState
}

func NewController(store Store, date time.Time, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		store:  store,
		filter: NewDayFilter(store, date),
		editor: NewEditor(store),
		logger: logger,
		rows:   map[uuid.UUID]RowState{},
	}
}

// Load runs the first query for the selected day.
func (c *Controller) Load() error {
	return c.filter.Refresh()
}

func (c *Controller) Filter() *DayFilter {
	return c.filter
}

func (c *Controller) View() DayView {
	return c.filter.View()
}

func (c *Controller) State(id uuid.UUID) RowState {
	return c.rows[id]
}

// Editing returns the ids of rows with an open session in a stable order.
func (c *Controller) Editing() []uuid.UUID {
	ids := slices.Collect(maps.Keys(c.rows))
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return ids
}

// OnAddTask creates an untitled task on forDate, saves it and opens its
// edit session.
func (c *Controller) OnAddTask(forDate time.Time) (Task, error) {
	if forDate.IsZero() {
		return Task{}, ErrZeroDate
	}
	t := NewTask(forDate)
	if err := c.store.Insert(t); err != nil {
		return Task{}, err
	}
	saveErr := c.save("add task")
	c.rows[t.ID] = Editing
	return t, errors.Join(saveErr, c.filter.Refresh())
}

func (c *Controller) OnFocusGained(id uuid.UUID) error {
	if _, ok := c.lookup(id); !ok {
		return ErrUnknownTask
	}
	c.rows[id] = Editing
	return nil
}

// OnTitleChanged stages the new title. Nothing is saved until the session
// ends.
func (c *Controller) OnTitleChanged(id uuid.UUID, text string) error {
	t, ok := c.lookup(id)
	if !ok {
		return ErrUnknownTask
	}
	c.rows[id] = Editing
	if err := c.editor.SetTitle(&t, text); err != nil {
		return err
	}
	return c.filter.Refresh()
}

func (c *Controller) OnSubmit(id uuid.UUID) error {
	return c.endSession(id)
}

func (c *Controller) OnFocusLost(id uuid.UUID) error {
	return c.endSession(id)
}

func (c *Controller) OnRowDisappeared(id uuid.UUID) error {
	return c.endSession(id)
}

func (c *Controller) OnToggleCompleted(id uuid.UUID) error {
	t, ok := c.lookup(id)
	if !ok {
		return ErrUnknownTask
	}
	err := c.editor.ToggleCompleted(&t)
	return errors.Join(c.report("toggle", err), c.filter.Refresh())
}

func (c *Controller) OnDateChanged(id uuid.UUID, date time.Time) error {
	t, ok := c.lookup(id)
	if !ok {
		return ErrUnknownTask
	}
	err := c.editor.SetDate(&t, date)
	if errors.Is(err, ErrZeroDate) || errors.Is(err, ErrDateOutOfRange) {
		return err
	}
	return errors.Join(c.report("reschedule", err), c.filter.Refresh())
}

func (c *Controller) OnDeleteRequested(id uuid.UUID) error {
	t, ok := c.lookup(id)
	if !ok {
		return ErrUnknownTask
	}
	delete(c.rows, id)
	err := c.editor.Delete(t)
	return errors.Join(c.report("delete", err), c.filter.Refresh())
}

// OnFilterDateChanged closes every open session, since those rows leave the
// screen, and then swaps the result set for date's day.
func (c *Controller) OnFilterDateChanged(date time.Time) error {
	var errs []error
	for _, id := range c.Editing() {
		errs = append(errs, c.endSession(id))
	}
	errs = append(errs, c.filter.SetDate(date))
	return errors.Join(errs...)
}

// ForegroundStateChanged reacts to the host leaving the foreground by ending
// every open session. Becoming active again is a no-op.
func (c *Controller) ForegroundStateChanged(isActive bool) error {
	if isActive {
		return nil
	}
	var errs []error
	for _, id := range c.Editing() {
		errs = append(errs, c.endSession(id))
	}
	return errors.Join(errs...)
}

func (c *Controller) endSession(id uuid.UUID) error {
	delete(c.rows, id)
	if t, ok := c.lookup(id); ok {
		if _, err := c.editor.RemoveIfEmpty(t); err != nil {
			return err
		}
	}
	return errors.Join(c.save("end edit"), c.filter.Refresh())
}

func (c *Controller) lookup(id uuid.UUID) (Task, bool) {
	if t, ok := c.filter.find(id); ok {
		return t, true
	}
	// A row being edited may have been moved off the selected day.
	t, err := c.store.Get(id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Printf("warning: lookup %s: %v", id, err)
		}
		return Task{}, false
	}
	return t, true
}

func (c *Controller) save(op string) error {
	return c.report(op, c.store.Save())
}

func (c *Controller) report(op string, err error) error {
	if err != nil {
		c.logger.Printf("warning: %s failed: %v", op, err)
	}
	return err
}
