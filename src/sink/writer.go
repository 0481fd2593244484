// Package sink delivers the lines forwarded by grep consoles: to a terminal,
// to the broker and to websocket clients.
package sink

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"grepconsole/src/contracts"
	"grepconsole/src/grep"
)

// Writer prints forwarded lines, stdout lines to Out and stderr and system
// lines to Err. Each line is prefixed with Prefix.
type Writer struct {
	mu     sync.Mutex
	out    io.Writer
	err    io.Writer
	prefix string
}

// NewWriter creates a Writer. errOut may be nil to print everything to out.
func NewWriter(out, errOut io.Writer, prefix string) *Writer {
	if errOut == nil {
		errOut = out
	}
	return &Writer{out: out, err: errOut, prefix: prefix}
}

func (w *Writer) Write(text string, kind contracts.OutputKind) {
	dst := w.out
	if kind != contracts.OutputStdout {
		dst = w.err
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprint(dst, w.prefix+text)
}

// Notify prints a notification to the error writer.
func (w *Writer) Notify(consoleID, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.err, "[%s] %s\n", consoleID, message)
}

// Fanout forwards every line to all sinks in order.
type Fanout []grep.Sink

func (f Fanout) Write(text string, kind contracts.OutputKind) {
	for _, s := range f {
		s.Write(text, kind)
	}
}

// Matched builds the broker and websocket form of a forwarded line.
func Matched(consoleID, title, text string, kind contracts.OutputKind, now time.Time) contracts.MatchedLine {
	return contracts.MatchedLine{
		ConsoleID:  consoleID,
		Title:      title,
		Text:       strings.TrimSuffix(text, "\n"),
		OutputKind: kind.String(),
		Timestamp:  now.UnixMilli(),
	}
}

var (
	_ grep.Sink     = (*Writer)(nil)
	_ grep.Notifier = (*Writer)(nil)
	_ grep.Sink     = Fanout(nil)
)
