package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"grepconsole/src/grep"
)

// Header represents the top status bar component.
type Header struct {
	sourceTitle string
	grepTitle   string
	model       grep.Model
	status      string
	styles      *StyleConfig
}

// NewHeader creates a new header with the given styles
func NewHeader(sourceTitle string, styles *StyleConfig) Header {
	return Header{
		sourceTitle: sourceTitle,
		styles:      styles,
	}
}

// SetGrep updates the grep console shown in the header.
func (h *Header) SetGrep(title string, model grep.Model) {
	h.grepTitle = title
	h.model = model
}

// SetStatus sets the short status text shown at the right, e.g. "pinned".
func (h *Header) SetStatus(status string) {
	h.status = status
}

// flags renders the option toggles the way a search bar shows them.
func (h Header) flags() string {
	on := lipgloss.NewStyle().Foreground(h.styles.PrimaryBlue).Bold(true)
	off := lipgloss.NewStyle().Foreground(h.styles.TextSecondary).Faint(true)
	toggle := func(label string, set bool) string {
		if set {
			return on.Render(label)
		}
		return off.Render(label)
	}
	return fmt.Sprintf("%s %s %s %s",
		toggle("Aa", h.model.CaseSensitive),
		toggle(".*", h.model.Regex),
		toggle("W", h.model.WholeWords),
		toggle("!", h.model.Exclude))
}

// Render renders the header
func (h Header) Render(width int) string {
	titleStyle := lipgloss.NewStyle().
		Foreground(h.styles.PrimaryBlue).
		Bold(true).
		Padding(0, 2)

	source := titleStyle.Render(fmt.Sprintf("▶ %s", Truncate(h.sourceTitle, 30, true)))

	grepTitle := h.grepTitle
	if grepTitle == "" {
		grepTitle = "no grep"
	}
	grepSection := titleStyle.Render(fmt.Sprintf("Grep: %s", Truncate(grepTitle, 40, true)))

	flags := lipgloss.NewStyle().Padding(0, 2).Render(h.flags())

	leftSection := lipgloss.JoinHorizontal(lipgloss.Left, source, grepSection, flags)

	status := lipgloss.NewStyle().
		Foreground(h.styles.TextSecondary).
		Padding(0, 2).
		Render(h.status)

	headerStyle := lipgloss.NewStyle().
		Background(h.styles.DarkBackground).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(h.styles.BorderColor).
		Width(width)

	spacerWidth := width - lipgloss.Width(leftSection) - lipgloss.Width(status)
	if spacerWidth < 0 {
		spacerWidth = 0
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return headerStyle.Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSection, spacer, status))
}
