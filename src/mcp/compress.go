package mcp

import (
	"regexp"
	"strings"

	"grepconsole/src/sanitize"
)

// Patterns that make matched lines noisy for a language model without
// changing what they say.
var (
	// Leading timestamps: 2024-05-21T10:00:05.123Z, 2024-05-21 10:00:05,123, ...+00:00
	leadingTimestamp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}[.,]?\d*Z?([+-]\d{2}:?\d{2})?\s*`)
	// Hex ids of 12+ characters: container ids, git SHAs.
	hexID = regexp.MustCompile(`\b[a-f0-9]{12,}\b`)
	// Absolute paths with 3+ directories; the file name and line number are kept.
	deepPath = regexp.MustCompile(`/(?:[^/\s]+/){3,}([^/\s:]+(?::\d+)?)`)
	spaces   = regexp.MustCompile(`\s+`)
)

// sharedPrefixMin is the shortest common prefix worth replacing with "...".
const sharedPrefixMin = 20

// compactLine shortens a single matched line.
func compactLine(line string) string {
	line = sanitize.StripANSI(line)
	line = leadingTimestamp.ReplaceAllString(line, "")
	line = hexID.ReplaceAllString(line, "<HASH>")
	line = deepPath.ReplaceAllString(line, ".../$1")
	return strings.TrimSpace(spaces.ReplaceAllString(line, " "))
}

// compactLines shortens every line and replaces a long prefix shared by all
// of them with "... ".
func compactLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = compactLine(line)
	}

	prefix := sharedPrefix(out)
	if prefix == "" {
		return out
	}
	for i, line := range out {
		out[i] = "... " + line[len(prefix):]
	}
	return out
}

// sharedPrefix returns the byte prefix common to all lines, or "" when there
// are fewer than two lines or the prefix is short.
func sharedPrefix(lines []string) string {
	if len(lines) < 2 {
		return ""
	}
	n := len(lines[0])
	for _, line := range lines[1:] {
		if len(line) < n {
			n = len(line)
		}
		for i := 0; i < n; i++ {
			if line[i] != lines[0][i] {
				n = i
				break
			}
		}
	}
	// Do not cut a rune in half.
	for n > 0 && n < len(lines[0]) && lines[0][n]&0xC0 == 0x80 {
		n--
	}
	if n < sharedPrefixMin {
		return ""
	}
	return lines[0][:n]
}
