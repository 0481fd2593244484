package tui

import "github.com/charmbracelet/lipgloss"

// StyleConfig holds all customizable style colors for the console UI.
type StyleConfig struct {
	PrimaryBlue    lipgloss.Color
	DarkBackground lipgloss.Color
	TextPrimary    lipgloss.Color
	TextSecondary  lipgloss.Color
	BorderColor    lipgloss.Color
	FocusColor     lipgloss.Color

	// Output colors by content type
	ErrorColor  lipgloss.Color
	SystemColor lipgloss.Color

	WarningForeground lipgloss.Color
	WarningBackground lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		PrimaryBlue:       lipgloss.Color("#8AB4F8"),
		DarkBackground:    lipgloss.Color("#1E1E1E"),
		TextPrimary:       lipgloss.Color("#E8EAED"),
		TextSecondary:     lipgloss.Color("#9AA0A6"),
		BorderColor:       lipgloss.Color("#5F6368"),
		FocusColor:        lipgloss.Color("#4285F4"),
		ErrorColor:        lipgloss.Color("#EA4335"),
		SystemColor:       lipgloss.Color("#24C1E0"),
		WarningForeground: lipgloss.Color("#1E1E1E"),
		WarningBackground: lipgloss.Color("#FBBC04"),
	}
}

// TitleStyle returns a pane title style
func (s *StyleConfig) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.PrimaryBlue).
		Bold(true).
		Padding(0, 1)
}

// HelpStyle returns a help text lipgloss style using this config
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Padding(0, 2)
}

// PaneStyle returns the bordered container of a console pane.
func (s *StyleConfig) PaneStyle(focused bool) lipgloss.Style {
	border := s.BorderColor
	if focused {
		border = s.FocusColor
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border)
}

// BannerStyle returns the style of the notification banner.
func (s *StyleConfig) BannerStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.WarningForeground).
		Background(s.WarningBackground).
		Bold(true).
		Padding(0, 1)
}

// ErrorStyle renders stderr lines.
func (s *StyleConfig) ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.ErrorColor)
}

// SystemStyle renders lines written by the runner itself.
func (s *StyleConfig) SystemStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.SystemColor).Italic(true)
}
