package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"daylist/internal/config"
	"daylist/internal/core"
)

type mode int

const (
	modeList mode = iota
	modeEdit
	modeConfirmDelete
)

const timeStep = 30 * time.Minute

type Model struct {
	ctrl       *core.Controller
	cfg        config.Config
	day        *core.DayView
	cursor     int
	mode       mode
	input      textinput.Model
	editing    uuid.UUID
	pendingDel *core.Task
	status     string
	failed     bool
	now        func() time.Time

	showPending   bool
	showCompleted bool
}

// New builds the model and subscribes it to the controller's day filter.
// The controller must already be loaded.
func New(ctrl *core.Controller, cfg config.Config, now func() time.Time) Model {
	if now == nil {
		now = time.Now
	}
	day := ctrl.View()
	ctrl.Filter().Subscribe(func(v core.DayView) {
		day = v
	})

	ti := textinput.New()
	ti.Placeholder = "Task title"
	ti.CharLimit = 256
	ti.Width = 40

	return Model{
		ctrl:   ctrl,
		cfg:    cfg,
		day:    &day,
		input:  ti,
		mode:   modeList,
		status: fmt.Sprintf("Press '%s' to add, space to toggle, '%s' to delete.", cfg.Keys.Add, cfg.Keys.Delete),
		now:    now,

		showPending:   true,
		showCompleted: cfg.ShowCompleted,
	}
}

func Run(ctrl *core.Controller, cfg config.Config) error {
	m := New(ctrl, cfg, time.Now)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithReportFocus())
	_, err := program.Run()
	// Anything still open is flushed as if the terminal went away.
	return errors.Join(err, ctrl.ForegroundStateChanged(false))
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.mode {
		case modeEdit:
			return m.updateEditMode(msg.String(), msg)
		case modeConfirmDelete:
			return m.updateDeleteConfirm(msg.String())
		}
		return m.updateListMode(msg.String())
	case tea.BlurMsg:
		m.leaveEditMode()
		m.report("background save", m.ctrl.ForegroundStateChanged(false), "Saved")
	case tea.FocusMsg:
		m.report("", m.ctrl.ForegroundStateChanged(true), m.status)
	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 16
	}
	return m, nil
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	rows := m.rows()
	switch key {
	case "ctrl+c", m.cfg.Keys.Quit:
		m.report("save", m.ctrl.ForegroundStateChanged(false), "Bye")
		return m, tea.Quit
	case m.cfg.Keys.Down, "down":
		m.cursor = clampCursor(m.cursor+1, len(rows))
	case m.cfg.Keys.Up, "up":
		m.cursor = clampCursor(m.cursor-1, len(rows))
	case m.cfg.Keys.PrevDay:
		return m.changeDay(m.ctrl.Filter().Date().AddDate(0, 0, -1))
	case m.cfg.Keys.NextDay:
		return m.changeDay(m.ctrl.Filter().Date().AddDate(0, 0, 1))
	case m.cfg.Keys.Today:
		return m.changeDay(m.now())
	case m.cfg.Keys.FoldPending:
		m.showPending = !m.showPending
		m.status = foldStatus("Pending Tasks", m.showPending)
		m.cursor = 0
	case m.cfg.Keys.FoldCompleted:
		m.showCompleted = !m.showCompleted
		m.status = foldStatus("Completed Tasks", m.showCompleted)
		m.cursor = clampCursor(m.cursor, len(m.rows()))
	case m.cfg.Keys.Add:
		t, err := m.ctrl.OnAddTask(m.ctrl.Filter().Date())
		if t.ID == uuid.Nil {
			m.report("add", err, "")
			return m, nil
		}
		m.showPending = true
		m.report("save", err, "New task: type a title and press Enter")
		m.cursor = m.indexOf(t.ID)
		return m.enterEditMode(t)
	case m.cfg.Keys.Rename:
		t, ok := m.selected()
		if !ok {
			m.status = "No task to rename"
			return m, nil
		}
		if err := m.ctrl.OnFocusGained(t.ID); err != nil {
			m.report("rename", err, "")
			return m, nil
		}
		m.status = "Rename: Enter to save, Esc to leave"
		return m.enterEditMode(t)
	case m.cfg.Keys.Toggle:
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.report("toggle", m.ctrl.OnToggleCompleted(t.ID), "Toggled task")
		m.cursor = clampCursor(m.indexOf(t.ID), len(m.rows()))
	case m.cfg.Keys.Earlier, m.cfg.Keys.Later, m.cfg.Keys.MoveBack, m.cfg.Keys.MoveForward:
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		date := m.shift(key, t.Date)
		layout := "Mon 02 Jan " + m.cfg.TimeFormat
		if core.SameDay(m.ctrl.Filter().Date(), date) {
			layout = m.cfg.TimeFormat
		}
		done := "Moved to " + date.Format(layout)
		m.report("reschedule", m.ctrl.OnDateChanged(t.ID, date), done)
		m.cursor = clampCursor(m.cursor, len(m.rows()))
	case m.cfg.Keys.Delete:
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.mode = modeConfirmDelete
		m.pendingDel = &t
		m.status = fmt.Sprintf("Delete %q? y/n", displayTitle(t))
	}
	return m, nil
}

func (m Model) updateEditMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c":
		m.leaveEditMode()
		m.report("save", m.ctrl.ForegroundStateChanged(false), "Bye")
		return m, tea.Quit
	case m.cfg.Keys.Confirm, "enter":
		id := m.editing
		m.leaveEditMode()
		m.report("save", m.ctrl.OnSubmit(id), "Saved")
		m.cursor = clampCursor(m.indexOf(id), len(m.rows()))
		return m, nil
	case m.cfg.Keys.Cancel, "esc":
		id := m.editing
		m.leaveEditMode()
		m.report("save", m.ctrl.OnFocusLost(id), "Saved")
		m.cursor = clampCursor(m.cursor, len(m.rows()))
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if err := m.ctrl.OnTitleChanged(m.editing, m.input.Value()); err != nil {
			m.report("edit", err, "")
		}
		return m, cmd
	}
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", m.cfg.Keys.Cancel:
		m.status = "Delete cancelled"
		m.mode = modeList
		m.pendingDel = nil
	case "y", "Y":
		if m.pendingDel == nil {
			m.status = "Nothing to delete"
			m.mode = modeList
			return m, nil
		}
		m.report("delete", m.ctrl.OnDeleteRequested(m.pendingDel.ID), "Deleted task")
		m.mode = modeList
		m.pendingDel = nil
		m.cursor = clampCursor(m.cursor, len(m.rows()))
	}
	return m, nil
}

func (m Model) changeDay(date time.Time) (tea.Model, tea.Cmd) {
	m.report("load", m.ctrl.OnFilterDateChanged(date), "Showing "+date.Format("Mon 02 Jan 2006"))
	m.cursor = 0
	return m, nil
}

func (m Model) enterEditMode(t core.Task) (tea.Model, tea.Cmd) {
	m.mode = modeEdit
	m.editing = t.ID
	m.input.SetValue(t.Title)
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m *Model) leaveEditMode() {
	if m.mode != modeEdit {
		return
	}
	m.mode = modeList
	m.editing = uuid.Nil
	m.input.Blur()
	m.input.SetValue("")
}

func (m Model) shift(key string, date time.Time) time.Time {
	switch key {
	case m.cfg.Keys.Earlier:
		return date.Add(-timeStep)
	case m.cfg.Keys.Later:
		return date.Add(timeStep)
	case m.cfg.Keys.MoveBack:
		return date.AddDate(0, 0, -1)
	default:
		return date.AddDate(0, 0, 1)
	}
}

// report puts err on the status line, or ok when there is no error.
func (m *Model) report(action string, err error, ok string) {
	if err == nil {
		m.status = ok
		m.failed = false
		return
	}
	m.failed = true
	var storeErr *core.StoreError
	if errors.As(err, &storeErr) {
		m.status = fmt.Sprintf("save failed: %v", storeErr.Err)
		return
	}
	m.status = fmt.Sprintf("%s failed: %v", action, err)
}

// rows lists the selectable tasks of the expanded sections, pending first.
func (m Model) rows() []core.Task {
	var rows []core.Task
	if m.showPending {
		rows = append(rows, m.day.Pending...)
	}
	if m.showCompleted {
		rows = append(rows, m.day.Completed...)
	}
	return rows
}

func (m Model) selected() (core.Task, bool) {
	rows := m.rows()
	if len(rows) == 0 {
		return core.Task{}, false
	}
	return rows[clampCursor(m.cursor, len(rows))], true
}

func (m Model) indexOf(id uuid.UUID) int {
	for i, t := range m.rows() {
		if t.ID == id {
			return i
		}
	}
	return m.cursor
}

func (m Model) View() string {
	var b strings.Builder

	header := "To-Do · " + m.day.Date.Format("Monday, 02 Jan 2006")
	if core.SameDay(m.day.Date, m.now()) {
		header += " (today)"
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	index := 0
	b.WriteString(m.renderSection("Pending Tasks", m.day.Pending, m.showPending, &index))
	b.WriteString("\n")
	b.WriteString(m.renderSection("Completed Tasks", m.day.Completed, m.showCompleted, &index))

	b.WriteString("\n")
	if m.failed {
		b.WriteString(errorStyle.Render(m.status))
	} else {
		b.WriteString(m.status)
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(renderHelp(m.cfg.Keys)))

	return b.String()
}

// renderSection draws a section header and, when open, its rows. Row
// indexes continue across sections so they line up with rows().
func (m Model) renderSection(label string, tasks []core.Task, open bool, index *int) string {
	var b strings.Builder
	if len(tasks) > 0 {
		label = fmt.Sprintf("%s (%d)", label, len(tasks))
	}
	marker := "▾ "
	if !open {
		marker = "▸ "
	}
	b.WriteString(sectionStyle.Render(marker + label))
	b.WriteString("\n")
	if !open {
		return b.String()
	}
	if len(tasks) == 0 {
		b.WriteString("  " + placeholderStyle.Render("No tasks found"))
		b.WriteString("\n")
		return b.String()
	}
	for _, t := range tasks {
		b.WriteString(m.renderRow(t, *index))
		b.WriteString("\n")
		*index++
	}
	return b.String()
}

func (m Model) renderRow(t core.Task, i int) string {
	cursor := " "
	if m.cursor == i && m.mode != modeEdit {
		cursor = cursorStyle.Render(">")
	}

	checkbox := "[ ]"
	if t.Completed {
		checkbox = checkStyle.Render("[x]")
	}

	when := timeStyle.Render(t.Date.Format(m.cfg.TimeFormat))

	title := displayTitle(t)
	switch {
	case m.mode == modeEdit && t.ID == m.editing:
		title = m.input.View()
	case t.Completed:
		title = completedStyle.Render(title)
	}
	return fmt.Sprintf("%s %s %s  %s", cursor, checkbox, when, title)
}

func foldStatus(label string, open bool) string {
	if open {
		return label + " expanded"
	}
	return label + " collapsed"
}

func displayTitle(t core.Task) string {
	if t.IsEmpty() {
		return "(untitled)"
	}
	return t.Title
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s/%s day • %s today • %s add • %s rename • space toggle • %s/%s time • %s/%s move day • %s delete • %s/%s fold • %s quit",
		k.Up, k.Down, k.PrevDay, k.NextDay, k.Today, k.Add, k.Rename, k.Earlier, k.Later, k.MoveBack, k.MoveForward, k.Delete, k.FoldPending, k.FoldCompleted, k.Quit)
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
