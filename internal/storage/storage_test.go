package storage

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daylist/internal/core"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "daylist.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func at(day, hour, min int) time.Time {
	return time.Date(2024, time.January, day, hour, min, 0, 0, time.Local)
}

func newTask(title string, date time.Time) core.Task {
	t := core.NewTask(date)
	t.Title = title
	return t
}

func titles(tasks []core.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestQueryFiltersDayAndSortsNewestFirst(t *testing.T) {
	s, _ := openTestStore(t)
	start, end := core.DayRange(at(5, 12, 0))

	require.NoError(t, s.Insert(newTask("morning", at(5, 8, 0))))
	require.NoError(t, s.Insert(newTask("midnight", start)))
	require.NoError(t, s.Insert(newTask("last second", end)))
	require.NoError(t, s.Insert(newTask("evening", at(5, 20, 30))))
	require.NoError(t, s.Insert(newTask("day before", at(4, 23, 59))))
	require.NoError(t, s.Insert(newTask("day after", at(6, 0, 0))))
	require.NoError(t, s.Save())

	got, err := s.Query(start, end)
	require.NoError(t, err)
	assert.Equal(t, []string{"last second", "evening", "morning", "midnight"}, titles(got))
	for _, task := range got {
		assert.False(t, task.Date.Before(start))
		assert.False(t, task.Date.After(end))
	}
}

func TestQueryBreaksDateTiesByCreation(t *testing.T) {
	s, _ := openTestStore(t)
	when := at(5, 9, 0)

	older := newTask("older", when)
	older.CreatedAt = at(1, 0, 0)
	newer := newTask("newer", when)
	newer.CreatedAt = at(2, 0, 0)
	require.NoError(t, s.Insert(older))
	require.NoError(t, s.Insert(newer))
	require.NoError(t, s.Save())

	got, err := s.Query(core.DayRange(when))
	require.NoError(t, err)
	assert.Equal(t, []string{"newer", "older"}, titles(got))
}

func TestQuerySeesStagedChanges(t *testing.T) {
	s, _ := openTestStore(t)
	start, end := core.DayRange(at(5, 12, 0))

	kept := newTask("kept", at(5, 9, 0))
	gone := newTask("gone", at(5, 10, 0))
	require.NoError(t, s.Insert(kept))
	require.NoError(t, s.Insert(gone))
	require.NoError(t, s.Save())

	kept.Title = "renamed"
	require.NoError(t, s.Update(kept))
	require.NoError(t, s.Delete(gone.ID))
	require.NoError(t, s.Insert(newTask("fresh", at(5, 11, 0))))
	assert.Equal(t, 3, s.Pending())

	got, err := s.Query(start, end)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh", "renamed"}, titles(got))
}

func TestStagedMoveLeavesOldDay(t *testing.T) {
	s, _ := openTestStore(t)
	task := newTask("move me", at(5, 9, 0))
	require.NoError(t, s.Insert(task))
	require.NoError(t, s.Save())

	task.Date = at(7, 9, 0)
	require.NoError(t, s.Update(task))

	old, err := s.Query(core.DayRange(at(5, 0, 0)))
	require.NoError(t, err)
	assert.Empty(t, old)

	moved, err := s.Query(core.DayRange(at(7, 0, 0)))
	require.NoError(t, err)
	assert.Equal(t, []string{"move me"}, titles(moved))
}

func TestSavePersistsAcrossReopen(t *testing.T) {
	s, path := openTestStore(t)
	task := newTask("persist", at(5, 9, 15))
	task.Completed = true
	require.NoError(t, s.Insert(task))
	require.NoError(t, s.Save())
	assert.Equal(t, 0, s.Pending())
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "persist", got.Title)
	assert.True(t, got.Completed)
	assert.True(t, got.Date.Equal(task.Date))
	assert.True(t, got.CreatedAt.Equal(task.CreatedAt))
}

func TestUnsavedChangesAreNotDurable(t *testing.T) {
	s, path := openTestStore(t)
	require.NoError(t, s.Insert(newTask("draft", at(5, 9, 0))))

	other, err := Open(path)
	require.NoError(t, err)
	defer other.Close()

	got, err := other.Query(core.DayRange(at(5, 0, 0)))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s, _ := openTestStore(t)
	task := newTask("", at(5, 9, 0))
	require.NoError(t, s.Insert(task))
	require.NoError(t, s.Save())

	require.NoError(t, s.Delete(task.ID))
	require.NoError(t, s.Delete(task.ID))
	assert.Equal(t, 1, s.Pending())
	require.NoError(t, s.Save())

	require.NoError(t, s.Delete(task.ID))
	require.NoError(t, s.Save())

	_, err := s.Get(task.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateMissingTask(t *testing.T) {
	s, _ := openTestStore(t)
	err := s.Update(newTask("ghost", at(5, 9, 0)))
	assert.ErrorIs(t, err, core.ErrNotFound)

	task := newTask("doomed", at(5, 9, 0))
	require.NoError(t, s.Insert(task))
	require.NoError(t, s.Delete(task.ID))
	assert.ErrorIs(t, s.Update(task), core.ErrNotFound)
}

func TestInsertValidatesRecord(t *testing.T) {
	s, _ := openTestStore(t)
	assert.ErrorIs(t, s.Insert(core.Task{ID: uuid.New()}), core.ErrZeroDate)
	assert.Error(t, s.Insert(core.Task{Date: at(5, 9, 0)}))

	tooLate := newTask("too late", time.Date(10000, time.January, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, s.Insert(tooLate), core.ErrDateOutOfRange)
	assert.Equal(t, 0, s.Pending())
}

func TestFarDatesRoundTrip(t *testing.T) {
	s, path := openTestStore(t)
	dates := []time.Time{
		time.Date(2300, time.January, 5, 9, 0, 0, 0, time.Local),
		time.Date(1600, time.March, 1, 12, 30, 0, 0, time.Local),
		time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2024, time.January, 5, 9, 0, 0, 250_000_000, time.Local),
	}
	var tasks []core.Task
	for _, d := range dates {
		task := core.Task{ID: uuid.New(), Title: d.String(), Date: d, CreatedAt: d}
		require.NoError(t, s.Insert(task))
		tasks = append(tasks, task)
	}
	require.NoError(t, s.Save())
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	for _, task := range tasks {
		got, err := reopened.Get(task.ID)
		require.NoError(t, err)
		assert.True(t, got.Date.Equal(task.Date), "date %s read back as %s", task.Date, got.Date)
		assert.True(t, got.CreatedAt.Equal(task.CreatedAt))

		sameDay, err := reopened.Query(core.DayRange(task.Date))
		require.NoError(t, err)
		assert.Equal(t, []string{task.Title}, titles(sameDay))
	}
}

func TestLegacyNanosecondDatesAreMigrated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daylist.db")
	db, err := sql.Open("sqlite", sqliteDSN(path))
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE tasks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	completed INTEGER NOT NULL DEFAULT 0,
	date INTEGER NOT NULL,
	created_at INTEGER NOT NULL DEFAULT 0
);`)
	require.NoError(t, err)

	when := time.Date(2024, time.January, 5, 9, 0, 0, 500_000_000, time.Local)
	created := at(1, 8, 0)
	id := uuid.New()
	_, err = db.Exec(`INSERT INTO tasks (id, title, completed, date, created_at) VALUES (?, ?, 0, ?, ?);`,
		id.String(), "old", when.UnixNano(), created.UnixNano())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.True(t, got.Date.Equal(when))
	assert.True(t, got.CreatedAt.Equal(created))

	listed, err := s.Query(core.DayRange(when))
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, titles(listed))
}

func TestSaveFailureIsAtomic(t *testing.T) {
	s, path := openTestStore(t)
	_, err := s.db.Exec(`CREATE TRIGGER reject_boom BEFORE INSERT ON tasks
WHEN NEW.title = 'boom' BEGIN SELECT RAISE(ABORT, 'boom rejected'); END;`)
	require.NoError(t, err)

	require.NoError(t, s.Insert(newTask("fine", at(5, 9, 0))))
	require.NoError(t, s.Insert(newTask("boom", at(5, 10, 0))))

	err = s.Save()
	require.Error(t, err)
	var storeErr *core.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "save", storeErr.Op)
	assert.Equal(t, 2, s.Pending())

	other, err := Open(path)
	require.NoError(t, err)
	defer other.Close()
	got, err := other.Query(core.DayRange(at(5, 0, 0)))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaveAfterCloseReportsStoreError(t *testing.T) {
	s, _ := openTestStore(t)
	require.NoError(t, s.Insert(newTask("late", at(5, 9, 0))))
	require.NoError(t, s.Close())

	var storeErr *core.StoreError
	assert.ErrorAs(t, s.Save(), &storeErr)
	assert.Equal(t, 1, s.Pending())
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:memdb?mode=memory", sqliteDSN("file:memdb?mode=memory"))

	dsn := sqliteDSN("/tmp/daylist/test.db")
	assert.Contains(t, dsn, "file:///tmp/daylist/test.db")
	assert.Contains(t, dsn, "mode=rwc")
	assert.Contains(t, dsn, "busy_timeout")
}
