package storage

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"daylist/internal/core"
)

type opKind int

const (
	opUpsert opKind = iota
	opDelete
)

type pendingOp struct {
	kind opKind
	task core.Task
}

// Store is a unit of work over a SQLite database. Insert, Update and Delete
// are staged in memory and written in a single transaction by Save.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	pending map[uuid.UUID]pendingOp
	order   []uuid.UUID
}

var _ core.Store = (*Store)(nil)

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, err
	}
	dsn := sqliteDSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, pending: map[uuid.UUID]pendingOp{}}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	completed INTEGER NOT NULL DEFAULT 0,
	date INTEGER NOT NULL,
	date_nsec INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL DEFAULT 0,
	created_nsec INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS tasks_date ON tasks (date);`
	if _, err := s.db.Exec(ddl); err != nil {
		return err
	}
	return s.ensureTaskColumns()
}

// ensureTaskColumns upgrades databases created before a column existed.
// Older files kept date and created_at as Unix nanoseconds; adding the
// nanosecond columns splits those values into seconds and nanoseconds.
func (s *Store) ensureTaskColumns() error {
	required := []struct {
		name  string
		stmts []string
	}{
		{"created_at", []string{
			`ALTER TABLE tasks ADD COLUMN created_at INTEGER NOT NULL DEFAULT 0;`,
		}},
		{"date_nsec", []string{
			`ALTER TABLE tasks ADD COLUMN date_nsec INTEGER NOT NULL DEFAULT 0;`,
			`UPDATE tasks SET date_nsec = date % 1000000000, date = date / 1000000000;`,
		}},
		{"created_nsec", []string{
			`ALTER TABLE tasks ADD COLUMN created_nsec INTEGER NOT NULL DEFAULT 0;`,
			`UPDATE tasks SET created_nsec = created_at % 1000000000, created_at = created_at / 1000000000;`,
		}},
	}
	existing := map[string]struct{}{}
	rows, err := s.db.Query(`PRAGMA table_info(tasks);`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, col := range required {
		if _, ok := existing[col.name]; ok {
			continue
		}
		for _, stmt := range col.stmts {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("migrate %s: %w", col.name, err)
			}
		}
	}
	return nil
}

// Query returns tasks with start <= date <= end, newest first. Staged
// changes are included.
func (s *Store) Query(start, end time.Time) ([]core.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT `+taskColumns+` FROM tasks WHERE date >= ? AND date <= ?;`,
		start.Unix(), end.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []core.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		if _, staged := s.pending[t.ID]; staged {
			continue
		}
		// date holds whole seconds; the bounds are exact to the nanosecond.
		if t.Date.Before(start) || t.Date.After(end) {
			continue
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range s.order {
		op := s.pending[id]
		if op.kind != opUpsert {
			continue
		}
		if op.task.Date.Before(start) || op.task.Date.After(end) {
			continue
		}
		tasks = append(tasks, op.task)
	}
	slices.SortStableFunc(tasks, compareTasks)
	return tasks, nil
}

func (s *Store) Get(id uuid.UUID) (core.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

func (s *Store) get(id uuid.UUID) (core.Task, error) {
	if op, ok := s.pending[id]; ok {
		if op.kind == opDelete {
			return core.Task{}, core.ErrNotFound
		}
		return op.task, nil
	}
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?;`, id.String())
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Task{}, core.ErrNotFound
	}
	return t, err
}

func (s *Store) Insert(t core.Task) error {
	if err := validate(t); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage(t.ID, pendingOp{kind: opUpsert, task: t})
	return nil
}

// Update stages new field values for an existing task.
func (s *Store) Update(t core.Task) error {
	if err := validate(t); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.get(t.ID); err != nil {
		return err
	}
	s.stage(t.ID, pendingOp{kind: opUpsert, task: t})
	return nil
}

// Delete stages removal of id. Deleting a task that is already gone, or
// already staged for deletion, is a no-op.
func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if op, ok := s.pending[id]; ok && op.kind == opDelete {
		return nil
	}
	s.stage(id, pendingOp{kind: opDelete})
	return nil
}

// Pending reports how many records have unsaved changes.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Save commits every staged change atomically. On failure nothing is
// written and the staged changes are kept for the next Save.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	if err := s.commit(); err != nil {
		return &core.StoreError{Op: "save", Err: err}
	}
	clear(s.pending)
	s.order = s.order[:0]
	return nil
}

func (s *Store) commit() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, id := range s.order {
		op := s.pending[id]
		switch op.kind {
		case opUpsert:
			t := op.task
			_, err = tx.Exec(`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET title = excluded.title, completed = excluded.completed,
	date = excluded.date, date_nsec = excluded.date_nsec;`,
				t.ID.String(), t.Title, boolToInt(t.Completed),
				t.Date.Unix(), t.Date.Nanosecond(), unixSeconds(t.CreatedAt), t.CreatedAt.Nanosecond())
		case opDelete:
			_, err = tx.Exec(`DELETE FROM tasks WHERE id = ?;`, id.String())
		}
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("write %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *Store) stage(id uuid.UUID, op pendingOp) {
	if _, ok := s.pending[id]; !ok {
		s.order = append(s.order, id)
	}
	s.pending[id] = op
}

const taskColumns = "id, title, completed, date, date_nsec, created_at, created_nsec"

// Dates are kept inside the years 1-9999 so seconds since the Unix epoch
// always fit an INTEGER column and read back unchanged.
var (
	minDate = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxDate = time.Date(9999, time.December, 31, 23, 59, 59, 999999999, time.UTC)
)

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (core.Task, error) {
	var t core.Task
	var idStr string
	var completed int
	var date, dateNsec, created, createdNsec int64
	if err := row.Scan(&idStr, &t.Title, &completed, &date, &dateNsec, &created, &createdNsec); err != nil {
		return core.Task{}, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return core.Task{}, fmt.Errorf("task id %q: %w", idStr, err)
	}
	t.ID = id
	t.Completed = completed == 1
	t.Date = time.Unix(date, dateNsec)
	if created != 0 || createdNsec != 0 {
		t.CreatedAt = time.Unix(created, createdNsec)
	}
	return t, nil
}

// unixSeconds maps the zero time to 0 so an unset creation time stays unset.
func unixSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func validate(t core.Task) error {
	if t.ID == uuid.Nil {
		return errors.New("task id is nil")
	}
	if t.Date.IsZero() {
		return core.ErrZeroDate
	}
	if t.Date.Before(minDate) || t.Date.After(maxDate) {
		return fmt.Errorf("%w: %s", core.ErrDateOutOfRange, t.Date.Format(time.RFC3339))
	}
	return nil
}

// compareTasks orders by date descending; equal dates fall back to the
// newest created first, then id.
func compareTasks(a, b core.Task) int {
	if c := b.Date.Compare(a.Date); c != 0 {
		return c
	}
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
