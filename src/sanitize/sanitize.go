// Package sanitize provides utilities for cleaning console output before it is
// shown in diagnostics or returned from MCP tools.
//
// For TUI rendering use the tui package, which handles ANSI sequences via
// charmbracelet/x/ansi.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

// PreviewWidth is the default display width of a line preview.
const PreviewWidth = 120

var (
	// ANSI escape codes: \x1b[...m (SGR sequences) and other CSI sequences
	ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

	// OSC sequences terminated by BEL or ST, e.g. hyperlinks and window titles
	oscPattern = regexp.MustCompile(`\x1b\][^\x07\x1b]*(\x07|\x1b\\)`)
)

// StripANSI removes ANSI escape codes and OSC sequences.
func StripANSI(s string) string {
	s = oscPattern.ReplaceAllString(s, "")
	s = ansiPattern.ReplaceAllString(s, "")
	return s
}

// Clean strips ANSI codes, normalizes line endings and trims trailing whitespace.
func Clean(s string) string {
	s = StripANSI(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.TrimRight(s, " \t\n")
}

// Preview renders a single line for a log message or notification: escape codes
// are removed, control characters are made visible and the result is cut to
// maxWidth display columns with an ellipsis.
func Preview(s string, maxWidth int) string {
	s = StripANSI(s)
	s = strings.TrimRight(s, "\r\n")

	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\t':
			b.WriteString(" ")
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r < 0x20 || r == 0x7f:
			b.WriteRune('?')
		default:
			b.WriteRune(r)
		}
	}
	s = strings.TrimSpace(b.String())

	if maxWidth <= 0 {
		return s
	}
	if runewidth.StringWidth(s) > maxWidth {
		return runewidth.Truncate(s, maxWidth, "...")
	}
	return s
}
