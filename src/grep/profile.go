package grep

import (
	"errors"
	"io"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrProcessingAborted is returned by a BudgetedText once its time budget is spent.
var ErrProcessingAborted = errors.New("processing aborted: time budget exceeded")

// Profile bounds the work spent matching a single line.
type Profile struct {
	ID   int64
	Name string
	// MaxLineLength is the number of leading runes that are matched. 0 disables the limit.
	MaxLineLength int
	// MaxProcessingTime is the matching budget per line. 0 disables the budget.
	MaxProcessingTime time.Duration
}

// DefaultProfile matches the first 1000 runes of a line for at most one second.
func DefaultProfile() Profile {
	return Profile{
		Name:              "default",
		MaxLineLength:     1000,
		MaxProcessingTime: time.Second,
	}
}

// Limit strips the trailing line terminator and truncates s to MaxLineLength runes.
func (p Profile) Limit(s string) string {
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	if p.MaxLineLength <= 0 || len(s) <= p.MaxLineLength {
		return s
	}
	n := 0
	for i := range s {
		if n == p.MaxLineLength {
			return s[:i]
		}
		n++
	}
	return s
}

// WithTimeBudget wraps s so that reading it fails with ErrProcessingAborted once
// MaxProcessingTime has elapsed.
func (p Profile) WithTimeBudget(s string) *BudgetedText {
	return p.budget(s, time.Now)
}

func (p Profile) budget(s string, now func() time.Time) *BudgetedText {
	t := &BudgetedText{s: s, now: now}
	if p.MaxProcessingTime > 0 {
		t.deadline = now().Add(p.MaxProcessingTime)
	}
	return t
}

// BudgetedText is an io.RuneReader over a line that aborts once its deadline passes.
// The deadline is checked before every rune, so a matcher reading through it is
// cancelled cooperatively. A BudgetedText is used by a single evaluation and is not
// safe for concurrent use.
type BudgetedText struct {
	s        string
	pos      int
	deadline time.Time
	now      func() time.Time
	aborted  bool
}

// ReadRune implements io.RuneReader.
func (t *BudgetedText) ReadRune() (rune, int, error) {
	if t.aborted {
		return 0, 0, ErrProcessingAborted
	}
	if !t.deadline.IsZero() && !t.now().Before(t.deadline) {
		t.aborted = true
		return 0, 0, ErrProcessingAborted
	}
	if t.pos >= len(t.s) {
		return 0, 0, io.EOF
	}
	r, size := utf8.DecodeRuneInString(t.s[t.pos:])
	t.pos += size
	return r, size, nil
}

// Aborted reports whether the budget ran out while the text was being read.
func (t *BudgetedText) Aborted() bool {
	return t.aborted
}

// Len returns the length of the wrapped text in bytes.
func (t *BudgetedText) Len() int {
	return len(t.s)
}
