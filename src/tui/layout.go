package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// panelDimensions holds calculated layout dimensions
type panelDimensions struct {
	paneWidth    int
	sourceHeight int
	grepHeight   int
}

// calculateDimensions computes pane sizes based on terminal dimensions.
func (m MainModel) calculateDimensions() panelDimensions {
	headerHeight := lipgloss.Height(m.header.Render(m.width))
	// Account for: header + banner (1) + input (1) + help (1), and per pane a title row (1) and borders (2)
	available := m.height - headerHeight - 3 - 2*3
	if available < 2 {
		available = 2
	}

	// Source output 40% | grep console 60%
	sourceHeight := available * 2 / 5
	if sourceHeight < 1 {
		sourceHeight = 1
	}

	return panelDimensions{
		paneWidth:    m.width,
		sourceHeight: sourceHeight,
		grepHeight:   available - sourceHeight,
	}
}

// View renders the complete TUI layout
func (m MainModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	header := m.header.Render(m.width)
	dims := m.calculateDimensions()

	source := m.renderPane(m.source.Title(), m.sourceView.View(), dims.paneWidth, m.focus == sourcePane)
	grepTitle := m.grep.Title()
	if grepTitle == "" {
		grepTitle = "grep"
	}
	grepPaneView := m.renderPane(grepTitle, m.grepView.View(), dims.paneWidth, m.focus == grepPane)

	banner := ""
	if m.banner != "" {
		banner = m.styles.BannerStyle().Render(Truncate(m.banner, m.width-2, true))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header, source, grepPaneView, banner, m.inputLine(), m.renderHelpText())
}

// renderPane renders a titled, bordered console pane.
func (m MainModel) renderPane(title, content string, width int, focused bool) string {
	titleRow := m.styles.TitleStyle().
		Width(width).
		Render(Truncate(title, width-4, true))
	box := m.styles.PaneStyle(focused).
		Width(width - 2).
		Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, titleRow, box)
}

// renderHelpText renders context-aware help text at the bottom
func (m MainModel) renderHelpText() string {
	keyStyle := lipgloss.NewStyle().Foreground(m.styles.PrimaryBlue).Bold(true)
	sepStyle := lipgloss.NewStyle().Foreground(m.styles.TextSecondary)

	var helpText string
	if m.editing {
		helpText = fmt.Sprintf("%s: Apply %s %s: Cancel",
			keyStyle.Render("Enter"), sepStyle.Render("•"),
			keyStyle.Render("Esc"))
	} else {
		helpText = fmt.Sprintf("%s: Edit %s %s: Case/Regex/Words/Exclude %s %s: Pin %s %s: Clear %s %s: Pane %s %s: Quit",
			keyStyle.Render("/"), sepStyle.Render("•"),
			keyStyle.Render("i/r/w/x"), sepStyle.Render("•"),
			keyStyle.Render("p"), sepStyle.Render("•"),
			keyStyle.Render("c"), sepStyle.Render("•"),
			keyStyle.Render("Tab"), sepStyle.Render("•"),
			keyStyle.Render("q"))
	}

	return m.styles.HelpStyle().Render(helpText)
}

// resizeComponents handles window resize events
func (m *MainModel) resizeComponents() {
	dims := m.calculateDimensions()

	m.sourceView.Width = dims.paneWidth - 2
	m.sourceView.Height = dims.sourceHeight
	m.grepView.Width = dims.paneWidth - 2
	m.grepView.Height = dims.grepHeight
	m.input.Width = m.width - 4

	// Wrapping depends on the width, so both panes are redrawn.
	m.refresh(sourcePane)
	m.refresh(grepPane)
}
