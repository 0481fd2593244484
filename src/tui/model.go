// Package tui provides the terminal user interface of grepconsole: the output of
// the running process on top and a grep console over that output below it.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"grepconsole/src/console"
	"grepconsole/src/contracts"
	"grepconsole/src/grep"
	"grepconsole/src/sanitize"
)

// DefaultBannerTimeout is how long a notification stays visible.
const DefaultBannerTimeout = 8 * time.Second

type pane int

const (
	sourcePane pane = iota
	grepPane
)

// PinFunc persists a grep console so it can be reopened with its run configuration.
type PinFunc func(g *console.Console) error

// Options configures the console UI.
type Options struct {
	Source *console.Console
	Grep   *console.Console
	// Pin is called for the pin key. Pinning is unavailable when nil.
	Pin           PinFunc
	Styles        *StyleConfig
	BannerTimeout time.Duration
}

type clearBannerMsg struct{ seq int }

type pinnedMsg struct{ err error }

// MainModel is the Bubble Tea model showing a source console and one grep console.
type MainModel struct {
	source *console.Console
	grep   *console.Console
	pin    PinFunc
	styles *StyleConfig

	header     Header
	sourceView viewport.Model
	grepView   viewport.Model
	input      textinput.Model

	model   grep.Model
	editing bool
	focus   pane

	banner        string
	bannerSeq     int
	bannerTimeout time.Duration

	width  int
	height int
	ready  bool
}

// NewMainModel creates the UI for a source console and a grep console derived from it.
func NewMainModel(opts Options) MainModel {
	styles := opts.Styles
	if styles == nil {
		styles = DefaultStyles()
	}
	timeout := opts.BannerTimeout
	if timeout <= 0 {
		timeout = DefaultBannerTimeout
	}

	model, _ := opts.Grep.Model()

	input := textinput.New()
	input.Prompt = "/ "
	input.Placeholder = "grep expression"
	input.SetValue(model.Expression)

	header := NewHeader(opts.Source.Title(), styles)
	header.SetGrep(opts.Grep.Title(), model)

	return MainModel{
		source:        opts.Source,
		grep:          opts.Grep,
		pin:           opts.Pin,
		styles:        styles,
		header:        header,
		sourceView:    viewport.New(0, 0),
		grepView:      viewport.New(0, 0),
		input:         input,
		model:         model,
		focus:         grepPane,
		bannerTimeout: timeout,
	}
}

// Init initializes the model. Required by tea.Model interface.
func (m MainModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model state.
func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeComponents()
		return m, nil

	case RefreshMsg:
		switch msg.ConsoleID {
		case m.source.ID():
			m.refresh(sourcePane)
		case m.grep.ID():
			m.refresh(grepPane)
		}
		return m, nil

	case NotificationMsg:
		return m, m.showBanner(msg.Message)

	case clearBannerMsg:
		if msg.seq == m.bannerSeq {
			m.banner = ""
		}
		return m, nil

	case pinnedMsg:
		if msg.err != nil {
			return m, m.showBanner(fmt.Sprintf("Pin failed: %v", msg.err))
		}
		m.header.SetStatus("pinned")
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m MainModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "enter":
		next := m.model
		next.Expression = m.input.Value()
		m.editing = false
		m.input.Blur()
		return m, m.apply(next)
	case "esc":
		m.editing = false
		m.input.Blur()
		m.input.SetValue(m.model.Expression)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m MainModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "/":
		m.editing = true
		return m, m.input.Focus()

	case "i":
		next := m.model
		next.CaseSensitive = !next.CaseSensitive
		return m, m.apply(next)
	case "r":
		next := m.model
		next.Regex = !next.Regex
		return m, m.apply(next)
	case "w":
		next := m.model
		next.WholeWords = !next.WholeWords
		return m, m.apply(next)
	case "x":
		next := m.model
		next.Exclude = !next.Exclude
		return m, m.apply(next)

	case "p":
		if m.pin == nil {
			return m, m.showBanner("Pinning needs a run configuration name (--name)")
		}
		pin, g := m.pin, m.grep
		return m, func() tea.Msg { return pinnedMsg{err: pin(g)} }

	case "c":
		m.grep.Clear()
		m.refresh(grepPane)
		return m, nil

	case "tab":
		if m.focus == sourcePane {
			m.focus = grepPane
		} else {
			m.focus = sourcePane
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.focus == sourcePane {
		m.sourceView, cmd = m.sourceView.Update(msg)
	} else {
		m.grepView, cmd = m.grepView.Update(msg)
	}
	return m, cmd
}

// apply installs model on the grep console. Lines already shown stay as they are.
func (m *MainModel) apply(model grep.Model) tea.Cmd {
	if err := m.grep.Apply(model); err != nil {
		m.input.SetValue(m.model.Expression)
		return m.showBanner(err.Error())
	}
	m.model = model
	m.input.SetValue(model.Expression)
	m.header.SetGrep(m.grep.Title(), model)
	m.header.SetStatus("")
	return nil
}

func (m *MainModel) showBanner(message string) tea.Cmd {
	m.bannerSeq++
	m.banner = sanitize.Preview(message, sanitize.PreviewWidth)
	seq := m.bannerSeq
	return tea.Tick(m.bannerTimeout, func(time.Time) tea.Msg {
		return clearBannerMsg{seq: seq}
	})
}

// refresh redraws a pane from its console, following the tail when the pane
// was scrolled to the bottom.
func (m *MainModel) refresh(p pane) {
	vp, c := &m.sourceView, m.source
	if p == grepPane {
		vp, c = &m.grepView, m.grep
		m.header.SetGrep(c.Title(), m.model)
	}
	follow := vp.AtBottom()
	vp.SetContent(m.renderLines(c.Lines(), vp.Width))
	if follow {
		vp.GotoBottom()
	}
}

func (m MainModel) renderLines(lines []console.HistoryLine, width int) string {
	var b strings.Builder
	errStyle := m.styles.ErrorStyle()
	sysStyle := m.styles.SystemStyle()
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		rows := WrapLine(DisplayText(line.Text), width)
		for j, row := range rows {
			if j > 0 {
				b.WriteByte('\n')
			}
			switch line.Type {
			case contracts.ContentError:
				row = errStyle.Render(row)
			case contracts.ContentSystem:
				row = sysStyle.Render(row)
			}
			b.WriteString(row)
		}
	}
	return b.String()
}

// Expression returns the expression of the installed grep model.
func (m MainModel) Expression() string { return m.model.Expression }

// Banner returns the notification currently shown, if any.
func (m MainModel) Banner() string { return m.banner }

// Editing reports whether the expression input has focus.
func (m MainModel) Editing() bool { return m.editing }

// Program creates the Bubble Tea program for m on the alternate screen.
func Program(m MainModel, opts ...tea.ProgramOption) *tea.Program {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	return tea.NewProgram(m, opts...)
}

var _ tea.Model = MainModel{}

// inputLine renders the expression row below the panes.
func (m MainModel) inputLine() string {
	if m.editing {
		return m.input.View()
	}
	faint := lipgloss.NewStyle().Foreground(m.styles.TextSecondary)
	if m.model.Expression == "" {
		return faint.Render("/ (no expression, all lines pass)")
	}
	return faint.Render("/ " + m.model.Expression)
}
