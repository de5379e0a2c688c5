package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/onair/internal/formatter"
	"github.com/desertthunder/onair/internal/models"
	"github.com/desertthunder/onair/internal/session"
)

const (
	tickInterval = time.Second
	historyLimit = 20
)

// Controller is the subset of the lifecycle controller driven by the dashboard.
type Controller interface {
	FetchProgram(ctx context.Context) error
	RefreshProgram(ctx context.Context) error
	StartProgram(ctx context.Context) error
	EndProgramOrReconcile(ctx context.Context) error
	ExtendProgram(ctx context.Context) error
	Errors() <-chan error
	Now() time.Time
}

// StateSource returns the current program state.
type StateSource interface {
	Get() models.ProgramState
}

// PrefsWriter persists preference toggles.
type PrefsWriter interface {
	SetAutoExtension(enabled bool) error
	SetPanelOpened(opened bool) error
}

// HistoryLister lists recorded lifecycle operations.
type HistoryLister interface {
	List(criteria map[string]any) ([]*models.HistoryEntry, error)
}

// Deps are the collaborators of the dashboard. History may be nil.
type Deps struct {
	Controller Controller
	State      StateSource
	Prefs      PrefsWriter
	History    HistoryLister
}

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	deps       Deps
	state      models.ProgramState
	now        time.Time
	confirming operation
	status     string
	err        error
	history    list.Model
	width      int
	height     int
	help       help.Model
	keys       keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, deps Deps) *Model {
	history := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	history.Title = "Recent operations"
	history.SetShowHelp(false)

	return &Model{
		ctx:     ctx,
		deps:    deps,
		state:   deps.State.Get(),
		now:     deps.Controller.Now(),
		history: history,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts the clock, listens for controller errors and loads a program when none is selected.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.tick(), m.waitForError()}
	if m.state.ProgramID == "" && !m.state.IsFetching {
		cmds = append(cmds, m.run(opFetch, m.deps.Controller.FetchProgram))
	}
	if panelOpen(m.state) {
		cmds = append(cmds, m.loadHistory())
	}
	return tea.Batch(cmds...)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.history.SetSize(msg.Width-4, max(msg.Height/2, 6))
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgTick:
		m.refreshState()
		return m, m.tick()

	case MsgOperationDone:
		res := msg.data.(operationResult)
		m.refreshState()
		if res.err != nil {
			m.err = res.err
			m.status = ""
		} else {
			m.err = nil
			m.status = fmt.Sprintf("%s done", res.op)
		}
		if panelOpen(m.state) {
			return m, m.loadHistory()
		}
		return m, nil

	case MsgControllerError:
		if err, ok := msg.data.(error); ok {
			m.err = err
		}
		return m, m.waitForError()

	case MsgHistoryLoaded:
		data := msg.data.(struct {
			entries []*models.HistoryEntry
			err     error
		})
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		return m, m.history.SetItems(historyItems(data.entries))
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirming != "" {
		switch {
		case key.Matches(msg, m.keys.yes):
			op := m.confirming
			m.confirming = ""
			return m, m.dispatch(op)
		case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
			m.confirming = ""
			m.status = "cancelled"
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.fetch):
		return m, m.dispatch(opFetch)
	case key.Matches(msg, m.keys.refresh):
		return m, m.dispatch(opRefresh)
	case key.Matches(msg, m.keys.start):
		if m.state.Status == models.StatusTest || m.state.Status == models.StatusReserved {
			m.confirming = opStart
		}
	case key.Matches(msg, m.keys.end):
		if m.state.Status == models.StatusOnAir || m.state.Status == models.StatusTest {
			m.confirming = opEnd
		}
	case key.Matches(msg, m.keys.extend):
		return m, m.dispatch(opExtend)
	case key.Matches(msg, m.keys.auto):
		return m, m.dispatch(opAuto)
	case key.Matches(msg, m.keys.panel):
		return m, m.dispatch(opPanel)
	default:
		if panelOpen(m.state) {
			var cmd tea.Cmd
			m.history, cmd = m.history.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// dispatch starts op unless its guard flag is already raised.
func (m *Model) dispatch(op operation) tea.Cmd {
	m.refreshState()
	s := m.state
	c := m.deps.Controller

	switch op {
	case opFetch:
		if s.IsFetching {
			return nil
		}
		return m.run(op, c.FetchProgram)
	case opRefresh:
		if s.ProgramID == "" {
			return nil
		}
		return m.run(op, c.RefreshProgram)
	case opStart:
		if s.IsStarting {
			return nil
		}
		return m.run(op, c.StartProgram)
	case opEnd:
		if s.IsEnding {
			return nil
		}
		return m.run(op, c.EndProgramOrReconcile)
	case opExtend:
		if s.IsExtending || !session.CanExtend(s) {
			m.status = "program cannot be extended"
			return nil
		}
		return m.run(op, c.ExtendProgram)
	case opAuto:
		enabled := !s.AutoExtensionEnabled
		return m.run(op, func(context.Context) error { return m.deps.Prefs.SetAutoExtension(enabled) })
	case opPanel:
		opened := !panelOpen(s)
		return m.run(op, func(context.Context) error { return m.deps.Prefs.SetPanelOpened(opened) })
	}
	return nil
}

func (m *Model) run(op operation, fn func(context.Context) error) tea.Cmd {
	m.status = fmt.Sprintf("%s...", op)
	return func() tea.Msg {
		return operationDoneMsg(op, fn(m.ctx))
	}
}

func (m *Model) refreshState() {
	m.state = m.deps.State.Get()
	m.now = m.deps.Controller.Now()
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) waitForError() tea.Cmd {
	errs := m.deps.Controller.Errors()
	return func() tea.Msg {
		select {
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			return controllerErrorMsg(err)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) loadHistory() tea.Cmd {
	if m.deps.History == nil {
		return nil
	}
	return func() tea.Msg {
		entries, err := m.deps.History.List(map[string]any{"limit": historyLimit})
		return historyLoadedMsg(entries, err)
	}
}

func panelOpen(s models.ProgramState) bool {
	return s.PanelOpened != nil && *s.PanelOpened
}

// View renders the dashboard.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("onair"))
	b.WriteString("\n")
	b.WriteString(m.renderProgram())

	if m.confirming != "" {
		b.WriteString("\n\n")
		b.WriteString(styles.warn.Render(fmt.Sprintf("%s program %s? (y/n)", m.confirming, m.state.ProgramID)))
	}

	if panelOpen(m.state) {
		b.WriteString("\n\n")
		b.WriteString(m.history.View())
	}

	b.WriteString("\n\n")
	switch {
	case m.err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	case m.status != "":
		b.WriteString(styles.help.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderProgram() string {
	s := m.state
	if s.ProgramID == "" {
		if s.IsFetching {
			return styles.box.Render("Looking for a program...")
		}
		return styles.box.Render("No program selected. Press f to fetch.")
	}

	title := s.Title
	if title == "" {
		title = s.ProgramID
	}

	lines := []string{
		fmt.Sprintf("%s  %s", styles.status(s.Status), title),
		styles.help.Render(s.ProgramID),
		"",
	}

	switch s.Status {
	case models.StatusReserved, models.StatusTest:
		lines = append(lines, fmt.Sprintf("Starts in %s", formatter.FormatDuration(max(s.StartTime-m.now.Unix(), 0))))
	case models.StatusOnAir:
		lines = append(lines,
			fmt.Sprintf("Elapsed   %s", formatter.FormatDuration(formatter.Elapsed(s, m.now))),
			fmt.Sprintf("Remaining %s", formatter.FormatDuration(formatter.Remaining(s, m.now))),
		)
	}

	lines = append(lines,
		fmt.Sprintf("Viewers %d  Comments %d  Ad %d  Gift %d", s.Viewers, s.Comments, s.AdPoint, s.GiftPoint),
		fmt.Sprintf("Auto extension: %s", onOff(s.AutoExtensionEnabled)),
	)

	if s.ShowPlaceholder {
		lines = append(lines, styles.warn.Render("Test broadcast: viewers see the placeholder"))
	}
	if s.Password != "" {
		lines = append(lines, fmt.Sprintf("Password: %s", s.Password))
	}
	if busy := busyLabel(s); busy != "" {
		lines = append(lines, styles.warn.Render(busy))
	}

	return styles.box.Render(strings.Join(lines, "\n"))
}

func onOff(b bool) string {
	if b {
		return styles.ok.Render("on")
	}
	return "off"
}

func busyLabel(s models.ProgramState) string {
	switch {
	case s.IsStarting:
		return "starting..."
	case s.IsEnding:
		return "ending..."
	case s.IsExtending:
		return "extending..."
	case s.IsFetching:
		return "fetching..."
	}
	return ""
}
