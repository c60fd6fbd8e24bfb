package core

import "time"

// Editor applies edits to single records. Title edits are only staged;
// completion and date edits are saved right away.
type Editor struct {
	store Store
}

func NewEditor(store Store) *Editor {
	return &Editor{store: store}
}

func (e *Editor) SetTitle(t *Task, value string) error {
	t.Title = value
	return e.store.Update(*t)
}

func (e *Editor) ToggleCompleted(t *Task) error {
	t.Completed = !t.Completed
	if err := e.store.Update(*t); err != nil {
		return err
	}
	return e.store.Save()
}

func (e *Editor) SetDate(t *Task, value time.Time) error {
	if value.IsZero() {
		return ErrZeroDate
	}
	t.Date = value.Truncate(time.Second)
	if err := e.store.Update(*t); err != nil {
		return err
	}
	return e.store.Save()
}

// RemoveIfEmpty stages a delete when t has a blank title and reports
// whether it did. The delete becomes durable on the next Save.
func (e *Editor) RemoveIfEmpty(t Task) (bool, error) {
	if !t.IsEmpty() {
		return false, nil
	}
	if err := e.store.Delete(t.ID); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Editor) Delete(t Task) error {
	if err := e.store.Delete(t.ID); err != nil {
		return err
	}
	return e.store.Save()
}
