package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID        uuid.UUID
	Title     string
	Date      time.Time
	Completed bool
	CreatedAt time.Time
}

// NewTask returns an untitled, pending task scheduled at date, truncated to
// whole seconds so it always falls inside a DayRange.
func NewTask(date time.Time) Task {
	return Task{
		ID:        uuid.New(),
		Date:      date.Truncate(time.Second),
		CreatedAt: time.Now(),
	}
}

// IsEmpty reports whether the title has no visible content.
func (t Task) IsEmpty() bool {
	return strings.TrimSpace(t.Title) == ""
}

// Store is the persistence collaborator. Mutations are staged until Save
// commits them; Query and Get see staged changes.
type Store interface {
	Query(start, end time.Time) ([]Task, error)
	Get(id uuid.UUID) (Task, error)
	Insert(t Task) error
	Update(t Task) error
	Delete(id uuid.UUID) error
	Save() error
}
