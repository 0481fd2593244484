package console

import (
	"strings"
	"sync"

	"grepconsole/src/contracts"
)

// HistoryLine is one line of a console document, without its newline.
type HistoryLine struct {
	Text string
	Type contracts.ContentType
}

// History is the bounded text of a console, kept as complete lines plus the
// trailing line that has not been terminated yet.
type History struct {
	mu       sync.RWMutex
	lines    []HistoryLine
	partial  HistoryLine
	maxLines int
}

// NewHistory creates a History that retains at most maxLines complete lines.
// If maxLines <= 0 it defaults to 10000.
func NewHistory(maxLines int) *History {
	if maxLines <= 0 {
		maxLines = 10000
	}
	return &History{maxLines: maxLines}
}

// Append adds console text, completing the trailing line first.
func (h *History) Append(text string, contentType contracts.ContentType) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for text != "" {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			h.partial.Text += text
			h.partial.Type = contentType
			return
		}
		h.push(HistoryLine{Text: h.partial.Text + text[:i], Type: contentType})
		h.partial = HistoryLine{}
		text = text[i+1:]
	}
}

// push adds a complete line, dropping the oldest if the history is full.
func (h *History) push(line HistoryLine) {
	if len(h.lines) >= h.maxLines {
		copy(h.lines, h.lines[1:])
		h.lines = h.lines[:len(h.lines)-1]
	}
	h.lines = append(h.lines, line)
}

// Lines returns a copy of all lines; an unterminated trailing line comes last.
func (h *History) Lines() []HistoryLine {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]HistoryLine, len(h.lines), len(h.lines)+1)
	copy(out, h.lines)
	if h.partial.Text != "" {
		out = append(out, h.partial)
	}
	return out
}

// Len returns the number of complete lines.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.lines)
}

// Clear removes all text.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = nil
	h.partial = HistoryLine{}
}
