// Package grep implements the line reassembly and matching filter behind a grep console.
//
// A Filter receives raw console output as arbitrary chunks, rebuilds complete lines
// separately for every producer, matches them against the installed Matcher within
// the budget of the installed Profile and copies matching lines to a Sink.
package grep

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"grepconsole/src/contracts"
	"grepconsole/src/logger"
	"grepconsole/src/sanitize"
)

// StaleAfter is how long an incomplete line waits for its continuation.
const StaleAfter = 1000 * time.Millisecond

// ProducerID partitions incomplete-line state. A writer that can write
// unterminated text uses its own id, and that id must not be used by two
// goroutines at the same time. Writers of newline-terminated lines only never
// hold state and may share an id.
type ProducerID string

// Sink receives the lines forwarded by a Filter. Implementations must be safe for
// concurrent use.
type Sink interface {
	Write(text string, kind contracts.OutputKind)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(text string, kind contracts.OutputKind)

func (f SinkFunc) Write(text string, kind contracts.OutputKind) { f(text, kind) }

// Notifier shows a warning to the user.
type Notifier interface {
	Notify(consoleID, message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(consoleID, message string)

func (f NotifierFunc) Notify(consoleID, message string) { f(consoleID, message) }

// MatchOutcome is the result of evaluating one complete line.
type MatchOutcome int

const (
	NotMatched MatchOutcome = iota
	Matched
	// TimedOut means the time budget ran out before the matcher finished.
	TimedOut
)

func (o MatchOutcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case TimedOut:
		return "timed out"
	default:
		return "not matched"
	}
}

// installed is a matcher publication. The timeout notification is shown once per
// publication.
type installed struct {
	Matcher
	notified atomic.Bool
}

type fragment struct {
	text       strings.Builder
	receivedAt time.Time
}

// Filter reassembles lines and copies matching ones to its sink.
type Filter struct {
	consoleID string
	sink      Sink
	notifier  Notifier
	log       logger.Logger
	now       func() time.Time

	matcher atomic.Pointer[installed]
	profile atomic.Pointer[Profile]

	// pending maps ProducerID to *fragment. An entry is only touched by its producer.
	pending sync.Map
}

// Option configures a Filter.
type Option func(*Filter)

// WithConsoleID names the console passed to the Notifier.
func WithConsoleID(id string) Option {
	return func(f *Filter) { f.consoleID = id }
}

// WithNotifier sets the notifier used for the first matching timeout.
func WithNotifier(n Notifier) Option {
	return func(f *Filter) { f.notifier = n }
}

// WithLogger sets the logger used for repeated matching timeouts.
func WithLogger(l logger.Logger) Option {
	return func(f *Filter) { f.log = l }
}

// WithClock replaces time.Now, for staleness and time budgets.
func WithClock(now func() time.Time) Option {
	return func(f *Filter) { f.now = now }
}

// NewFilter creates a filter forwarding to sink. No matcher is installed; until
// ModelUpdated is called all input is dropped.
func NewFilter(sink Sink, profile Profile, opts ...Option) *Filter {
	f := &Filter{
		sink: sink,
		log:  logger.NewSilentLogger(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.profile.Store(&profile)
	return f
}

// ModelUpdated installs a new matcher. Lines evaluated after the call use it; a nil
// matcher makes the filter drop all input again.
func (f *Filter) ModelUpdated(m Matcher) {
	if m == nil {
		f.matcher.Store(nil)
		return
	}
	f.matcher.Store(&installed{Matcher: m})
}

// ProfileUpdated installs a new profile.
func (f *Filter) ProfileUpdated(p Profile) {
	f.profile.Store(&p)
}

// Profile returns the installed profile.
func (f *Filter) Profile() Profile {
	return *f.profile.Load()
}

// Configured reports whether a matcher is installed.
func (f *Filter) Configured() bool {
	return f.matcher.Load() != nil
}

// ClearStats is a no-op. Pending fragments are kept.
func (f *Filter) ClearStats() {}

// Dispose drops the incomplete line held for producer.
func (f *Filter) Dispose(producer ProducerID) {
	f.pending.Delete(producer)
}

// Process feeds a chunk written by producer through the filter.
//
// Complete lines are matched and forwarded in order. A trailing incomplete line is
// held until its continuation arrives; if the continuation takes StaleAfter or
// longer the held text is dropped, never matched on its own. All segments of one
// chunk share the same arrival time.
func (f *Filter) Process(producer ProducerID, text string, contentType contracts.ContentType) {
	if text == "" || f.matcher.Load() == nil {
		return
	}

	now := f.now()
	for _, segment := range splitLines(text) {
		if !strings.HasSuffix(segment, "\n") {
			f.hold(producer, segment, now)
			continue
		}

		if v, ok := f.pending.LoadAndDelete(producer); ok {
			if frag := v.(*fragment); now.Sub(frag.receivedAt) < StaleAfter {
				segment = frag.text.String() + segment
			}
		}

		m := f.matcher.Load()
		if m == nil {
			return
		}
		f.evaluate(m, segment, contentType)
	}
}

// hold stores an incomplete line, appending to a fresh one or replacing a stale one.
func (f *Filter) hold(producer ProducerID, segment string, now time.Time) {
	if v, ok := f.pending.Load(producer); ok {
		frag := v.(*fragment)
		if now.Sub(frag.receivedAt) < StaleAfter {
			frag.text.WriteString(segment)
			frag.receivedAt = now
			return
		}
	}
	frag := &fragment{receivedAt: now}
	frag.text.WriteString(segment)
	f.pending.Store(producer, frag)
}

func (f *Filter) evaluate(m *installed, line string, contentType contracts.ContentType) MatchOutcome {
	p := f.profile.Load()
	limited := p.Limit(line)
	text := p.budget(limited, f.now)

	matched := m.Match(text)
	if text.Aborted() {
		f.reportTimeout(m, limited)
		return TimedOut
	}
	if !matched {
		return NotMatched
	}

	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	f.sink.Write(line, contracts.OutputKindFor(contentType))
	return Matched
}

func (f *Filter) reportTimeout(m *installed, line string) {
	message := fmt.Sprintf("Grep to a subconsole took too long, aborting to prevent input freezing.\n"+
		"Consider lowering GREPCONSOLE_MAX_LINE_LENGTH or raising GREPCONSOLE_MAX_PROCESSING_TIME.\n"+
		"Matcher: %s\nLine: %s", m, sanitize.Preview(line, sanitize.PreviewWidth))

	if f.notifier != nil && m.notified.CompareAndSwap(false, true) {
		f.notifier.Notify(f.consoleID, message)
		return
	}
	f.log.Warn("%s", message)
}

// splitLines splits text after every newline. Separators are kept and empty
// pieces dropped, so only the last piece can lack a trailing newline.
func splitLines(text string) []string {
	lines := make([]string, 0, strings.Count(text, "\n")+1)
	for text != "" {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			lines = append(lines, text)
			break
		}
		lines = append(lines, text[:i+1])
		text = text[i+1:]
	}
	return lines
}
