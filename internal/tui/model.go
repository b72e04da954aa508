// Package tui is the interactive log panel: one pod, its recent log and an
// optional live follow.
package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vburojevic/podtail/internal/domain"
	"github.com/vburojevic/podtail/internal/logbuffer"
	"github.com/vburojevic/podtail/internal/output"
	"github.com/vburojevic/podtail/internal/tail"
)

const defaultPoll = 100 * time.Millisecond

// Options configures the panel
type Options struct {
	Target    domain.LogTarget
	TailLines uint
	ExportDir string
	Poll      time.Duration
}

// TickMsg drives the periodic buffer poll
type TickMsg time.Time

// snapshotMsg carries the result of a (re)load
type snapshotMsg struct{ err error }

// followMsg carries the result of a follow toggle
type followMsg struct {
	on  bool
	err error
}

// exportMsg carries the result of writing the panel to disk
type exportMsg struct {
	path string
	err  error
}

// noteMsg is a follow session that ended on its own
type noteMsg tail.Notification

// Model is the bubbletea model for the log panel
type Model struct {
	ctx    context.Context
	engine *tail.Engine
	opts   Options

	viewport viewport.Model
	ready    bool
	width    int
	height   int

	cursor  logbuffer.Cursor
	raw     string
	content string
	lines   int

	loading bool
	status  string
	code    string
}

// New creates a panel over engine. ctx bounds every request the panel makes.
func New(ctx context.Context, engine *tail.Engine, opts Options) Model {
	if opts.Poll <= 0 {
		opts.Poll = defaultPoll
	}
	opts.TailLines = domain.NormalizeTailLines(opts.TailLines)
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	return Model{
		ctx:     ctx,
		engine:  engine,
		opts:    opts,
		loading: true,
	}
}

// Init loads the first snapshot and starts polling
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadSnapshot(),
		tickCmd(m.opts.Poll),
		waitForNote(m.engine.Notifications()),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "f":
			on := !m.engine.Following()
			if on {
				m.setStatus("", "connecting…")
			} else {
				m.setStatus("", "stopping…")
			}
			return m, m.toggleFollow(on)
		case "r":
			m.loading = true
			m.setStatus("", "reloading…")
			return m, m.reload()
		case "e":
			return m, m.export()
		case "g", "home":
			m.viewport.GotoTop()
			return m, nil
		case "G", "end":
			m.viewport.GotoBottom()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerHeight := 3
		footerHeight := 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.updateViewport()

	case TickMsg:
		m.poll()
		cmds = append(cmds, tickCmd(m.opts.Poll))

	case snapshotMsg:
		m.loading = false
		m.poll()
		switch {
		case msg.err == nil:
			m.setStatus("", fmt.Sprintf("loaded last %d lines", m.opts.TailLines))
		case errors.Is(msg.err, domain.ErrCancelled):
		default:
			m.setError(msg.err)
		}

	case followMsg:
		switch {
		case msg.err != nil && !errors.Is(msg.err, domain.ErrCancelled):
			m.setError(msg.err)
		case msg.on:
			m.setStatus("", "following")
		default:
			m.setStatus("", "follow stopped")
		}

	case exportMsg:
		if msg.err != nil {
			m.setStatus("EXPORT_FAILED", msg.err.Error())
		} else {
			m.setStatus("", "exported "+filepath.Base(msg.path))
		}

	case noteMsg:
		m.poll()
		if msg.State == domain.SessionFailed && msg.Err != nil {
			m.setError(msg.Err)
		} else {
			m.setStatus("", "stream "+msg.State.String())
		}
		cmds = append(cmds, waitForNote(m.engine.Notifications()))
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View renders the UI
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return fmt.Sprintf("%s\n%s\n%s", m.renderHeader(), m.viewport.View(), m.renderFooter())
}

// Text returns the raw panel text
func (m Model) Text() string {
	return m.raw
}

// Status returns the status line message and its error code, if any
func (m Model) Status() (string, string) {
	return m.status, m.code
}

func (m *Model) renderHeader() string {
	titleStyle := output.Styles.Title.
		Background(lipgloss.Color("236")).
		Width(m.width)

	title := fmt.Sprintf("podtail: %s", m.opts.Target)
	header := titleStyle.Render(title) + " " + output.FollowIndicator(m.engine.Following())

	info := fmt.Sprintf("Lines: %d | Tail: %d", m.lines, m.opts.TailLines)
	if m.loading {
		info += " | loading"
	}
	if s := m.engine.Session(); s != nil && m.engine.Following() {
		stats := s.Stats()
		info += fmt.Sprintf(" | Session %d: %d events", s.ID(), stats.Events)
	}

	return header + "\n" + output.Styles.Help.Width(m.width).Render(info)
}

func (m *Model) renderFooter() string {
	status := m.status
	if m.code != "" {
		status = output.ErrorStyle(m.code).Render(fmt.Sprintf("[%s] %s", m.code, m.status))
	}
	help := output.Styles.Help.Render("q:quit f:follow r:reload e:export g/G:top/bottom j/k:scroll")
	return output.Styles.StatusBar.Width(m.width).Render(status) + "\n" + help
}

// poll pulls whatever the engine buffered since the last poll
func (m *Model) poll() {
	text, next := m.engine.ReadFrom(m.cursor)
	reset := next.Gen != m.cursor.Gen
	m.cursor = next
	if !reset && text == "" {
		return
	}
	if reset {
		m.raw = text
	} else {
		m.raw += text
	}
	m.render()
	m.updateViewport()
}

func (m *Model) render() {
	body := strings.TrimSuffix(m.raw, "\n")
	if body == "" {
		m.content = ""
		m.lines = 0
		return
	}
	lines := strings.Split(body, "\n")
	m.lines = len(lines)

	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(output.LevelStyle(output.DetectLevel(line)).Render(line))
	}
	m.content = b.String()
}

func (m *Model) updateViewport() {
	if !m.ready {
		return
	}

	m.viewport.SetContent(m.content)

	// Stay pinned to the newest line while following
	if m.engine.Following() {
		m.viewport.GotoBottom()
	}
}

func (m *Model) setStatus(code, msg string) {
	m.code = code
	m.status = msg
}

func (m *Model) setError(err error) {
	m.setStatus(domain.KindOf(err).Code(), err.Error())
}

func (m Model) loadSnapshot() tea.Cmd {
	ctx, engine, target, tailLines := m.ctx, m.engine, m.opts.Target, m.opts.TailLines
	return func() tea.Msg {
		return snapshotMsg{err: engine.LoadSnapshot(ctx, target, tailLines)}
	}
}

// reload drops the follow session and fetches a fresh snapshot
func (m Model) reload() tea.Cmd {
	ctx, engine, target, tailLines := m.ctx, m.engine, m.opts.Target, m.opts.TailLines
	return func() tea.Msg {
		_ = engine.ToggleFollow(ctx, false, tailLines)
		return snapshotMsg{err: engine.LoadSnapshot(ctx, target, tailLines)}
	}
}

func (m Model) toggleFollow(on bool) tea.Cmd {
	ctx, engine, tailLines := m.ctx, m.engine, m.opts.TailLines
	return func() tea.Msg {
		return followMsg{on: on, err: engine.ToggleFollow(ctx, on, tailLines)}
	}
}

func (m Model) export() tea.Cmd {
	engine, dir := m.engine, m.opts.ExportDir
	return func() tea.Msg {
		path, err := engine.WriteExport(dir)
		return exportMsg{path: path, err: err}
	}
}

// waitForNote creates a command that waits for a session end
func waitForNote(ch <-chan tail.Notification) tea.Cmd {
	return func() tea.Msg {
		note, ok := <-ch
		if !ok {
			return nil
		}
		return noteMsg(note)
	}
}

// tickCmd creates a periodic tick command
func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
