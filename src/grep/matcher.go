package grep

import (
	"errors"
	"fmt"
	"io"
	"regexp"

	"grepconsole/src/contracts"
)

// ErrInvalidExpression is returned by Compile for expressions that are not valid regexps.
var ErrInvalidExpression = errors.New("invalid grep expression")

// titleLength is the number of runes of an expression shown as a console title.
const titleLength = 20

// Matcher decides whether a line is copied to a grep console.
//
// Match must read the line only through in. Reads fail with ErrProcessingAborted
// when the line's time budget is spent; the caller then discards the result.
// String describes the matcher in diagnostics.
type Matcher interface {
	Match(in io.RuneReader) bool
	String() string
}

// MatcherFunc adapts a function to the Matcher interface.
type MatcherFunc func(in io.RuneReader) bool

func (f MatcherFunc) Match(in io.RuneReader) bool { return f(in) }

func (f MatcherFunc) String() string { return "MatcherFunc" }

// Model is a grep expression together with its matching options.
type Model struct {
	Expression    string
	CaseSensitive bool
	WholeWords    bool
	Regex         bool
	// Exclude copies the lines that do not match.
	Exclude bool
}

// Title returns the console title for the model: the first 20 runes of the expression.
func (m Model) Title() string {
	n := 0
	for i := range m.Expression {
		if n == titleLength {
			return m.Expression[:i]
		}
		n++
	}
	return m.Expression
}

// ToContract converts the model to its persisted form.
func (m Model) ToContract() contracts.GrepModel {
	return contracts.GrepModel{
		Expression:    m.Expression,
		CaseSensitive: m.CaseSensitive,
		WholeWords:    m.WholeWords,
		Regex:         m.Regex,
		Exclude:       m.Exclude,
	}
}

// ModelFromContract converts a persisted model.
func ModelFromContract(c contracts.GrepModel) Model {
	return Model{
		Expression:    c.Expression,
		CaseSensitive: c.CaseSensitive,
		WholeWords:    c.WholeWords,
		Regex:         c.Regex,
		Exclude:       c.Exclude,
	}
}

// Compile builds a Matcher for the model. An empty expression matches every line,
// so with Exclude it matches none.
func Compile(m Model) (Matcher, error) {
	if m.Expression == "" {
		return &regexMatcher{model: m}, nil
	}

	pattern := m.Expression
	if !m.Regex {
		pattern = regexp.QuoteMeta(pattern)
	}
	if m.WholeWords {
		pattern = `\b(?:` + pattern + `)\b`
	}
	if !m.CaseSensitive {
		pattern = `(?i)` + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidExpression, m.Expression, err)
	}
	return &regexMatcher{re: re, model: m}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(m Model) Matcher {
	matcher, err := Compile(m)
	if err != nil {
		panic(err)
	}
	return matcher
}

type regexMatcher struct {
	re    *regexp.Regexp // nil matches everything
	model Model
}

func (r *regexMatcher) Match(in io.RuneReader) bool {
	matched := true
	if r.re != nil {
		matched = r.re.MatchReader(in)
	}
	if r.model.Exclude {
		return !matched
	}
	return matched
}

func (r *regexMatcher) String() string {
	return fmt.Sprintf("Matcher{expression=%q, caseSensitive=%t, wholeWords=%t, regex=%t, exclude=%t}",
		r.model.Expression, r.model.CaseSensitive, r.model.WholeWords, r.model.Regex, r.model.Exclude)
}
