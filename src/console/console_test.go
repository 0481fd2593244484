package console

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"grepconsole/src/contracts"
	"grepconsole/src/grep"
)

func texts(lines []HistoryLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

func write(c *Console, text string) {
	c.Write(contracts.Chunk{Producer: "test", Text: text, Type: contracts.ContentNormal})
}

func assertTexts(t *testing.T, c *Console, want ...string) {
	t.Helper()
	got := texts(c.Lines())
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("%s lines = %q, want %q", c.Title(), got, want)
	}
}

func TestOpenGrepReplaysHistory(t *testing.T) {
	src := New(Options{Name: "build", Profile: grep.DefaultProfile()})
	write(src, "compile ok\nERROR one\nlink ok\n")

	g, err := src.OpenGrep(&grep.Model{Expression: "error"}, GrepOptions{})
	if err != nil {
		t.Fatalf("OpenGrep() error: %v", err)
	}
	assertTexts(t, g, "ERROR one")

	write(src, "ERROR two\nok\n")
	assertTexts(t, g, "ERROR one", "ERROR two")
}

func TestOpenGrepFollowsLiveOutputOnce(t *testing.T) {
	src := New(Options{Name: "src", Profile: grep.DefaultProfile()})

	const total = 2000
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < total; i++ {
			write(src, fmt.Sprintf("line %d\n", i))
		}
	}()

	time.Sleep(time.Millisecond)
	g, err := src.OpenGrep(&grep.Model{}, GrepOptions{})
	if err != nil {
		t.Fatalf("OpenGrep() error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for writer")
	}

	got := g.Lines()
	if len(got) != total {
		t.Fatalf("grep console has %d lines, want %d", len(got), total)
	}
	for i, line := range got {
		if want := fmt.Sprintf("line %d", i); line.Text != want {
			t.Fatalf("line %d = %q, want %q", i, line.Text, want)
		}
	}
}

func TestOpenGrepReplaysPartialLine(t *testing.T) {
	src := New(Options{Profile: grep.DefaultProfile()})
	write(src, "done\nwaiting for inp")

	g, err := src.OpenGrep(&grep.Model{Expression: "waiting"}, GrepOptions{})
	if err != nil {
		t.Fatalf("OpenGrep() error: %v", err)
	}
	assertTexts(t, g, "waiting for inp")
}

func TestOpenGrepInvalidExpression(t *testing.T) {
	src := New(Options{})
	_, err := src.OpenGrep(&grep.Model{Expression: "(", Regex: true}, GrepOptions{})
	if !errors.Is(err, grep.ErrInvalidExpression) {
		t.Errorf("OpenGrep() error = %v, want ErrInvalidExpression", err)
	}
	if len(src.Children()) != 0 {
		t.Error("a failed OpenGrep should not register a child")
	}
}

func TestOpenGrepWithoutModelStaysEmpty(t *testing.T) {
	src := New(Options{Profile: grep.DefaultProfile()})
	write(src, "a\n")

	g, err := src.OpenGrep(nil, GrepOptions{})
	if err != nil {
		t.Fatalf("OpenGrep() error: %v", err)
	}
	write(src, "b\n")
	assertTexts(t, g)

	if err := g.Apply(grep.Model{Expression: "c"}); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	write(src, "c\n")
	assertTexts(t, g, "c")
}

func TestOpenGrepKeepsID(t *testing.T) {
	src := New(Options{})
	g, err := src.OpenGrep(&grep.Model{Expression: "x"}, GrepOptions{ID: "pinned-1"})
	if err != nil {
		t.Fatalf("OpenGrep() error: %v", err)
	}
	if g.ID() != "pinned-1" {
		t.Errorf("ID() = %q, want pinned-1", g.ID())
	}
	if g.ParentID() != src.ID() {
		t.Errorf("ParentID() = %q, want %q", g.ParentID(), src.ID())
	}
	if !g.IsGrep() || src.IsGrep() {
		t.Error("IsGrep() reports the wrong console kind")
	}
}

func TestChainedGrep(t *testing.T) {
	src := New(Options{Profile: grep.DefaultProfile()})
	errs, err := src.OpenGrep(&grep.Model{Expression: "error"}, GrepOptions{})
	if err != nil {
		t.Fatalf("OpenGrep() error: %v", err)
	}
	db, err := errs.OpenGrep(&grep.Model{Expression: "database"}, GrepOptions{})
	if err != nil {
		t.Fatalf("OpenGrep() error: %v", err)
	}

	write(src, "error: database gone\nerror: disk full\ninfo: database ok\n")

	assertTexts(t, errs, "error: database gone", "error: disk full")
	assertTexts(t, db, "error: database gone")
}

func TestChainedGrepWithConcurrentProducers(t *testing.T) {
	src := New(Options{Profile: grep.DefaultProfile()})
	all, err := src.OpenGrep(&grep.Model{}, GrepOptions{})
	if err != nil {
		t.Fatalf("OpenGrep() error: %v", err)
	}
	chained, err := all.OpenGrep(&grep.Model{Expression: "line"}, GrepOptions{})
	if err != nil {
		t.Fatalf("OpenGrep() error: %v", err)
	}

	const perProducer = 200
	var wg sync.WaitGroup
	for _, p := range []struct {
		producer    string
		contentType contracts.ContentType
	}{{"stdout", contracts.ContentNormal}, {"stderr", contracts.ContentError}} {
		wg.Add(1)
		go func(producer string, contentType contracts.ContentType) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				// Split lines so the first grep console reassembles them per producer.
				src.Write(contracts.Chunk{Producer: producer, Text: fmt.Sprintf("%s li", producer), Type: contentType})
				src.Write(contracts.Chunk{Producer: producer, Text: fmt.Sprintf("ne %d\n", i), Type: contentType})
			}
		}(p.producer, p.contentType)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for producers")
	}

	lines := chained.Lines()
	if len(lines) != 2*perProducer {
		t.Fatalf("chained grep has %d lines, want %d", len(lines), 2*perProducer)
	}
	for _, l := range lines {
		if !strings.HasPrefix(l.Text, "stdout line ") && !strings.HasPrefix(l.Text, "stderr line ") {
			t.Errorf("mixed line %q", l.Text)
		}
	}
}

func TestGrepKeepsContentType(t *testing.T) {
	src := New(Options{Profile: grep.DefaultProfile()})
	g, _ := src.OpenGrep(&grep.Model{}, GrepOptions{})

	src.Write(contracts.Chunk{Producer: "stderr", Text: "boom\n", Type: contracts.ContentError})
	src.Write(contracts.Chunk{Producer: "stdout", Text: "fine\n", Type: contracts.ContentNormal})

	lines := g.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %v", lines)
	}
	if lines[0].Type != contracts.ContentError || lines[1].Type != contracts.ContentNormal {
		t.Errorf("unexpected content types: %+v", lines)
	}
}

func TestApplyRetitlesAndNotifies(t *testing.T) {
	src := New(Options{Profile: grep.DefaultProfile()})

	var applied []grep.Model
	g, err := src.OpenGrep(&grep.Model{Expression: "first"}, GrepOptions{
		OnApply: func(c *Console, m grep.Model) { applied = append(applied, m) },
	})
	if err != nil {
		t.Fatalf("OpenGrep() error: %v", err)
	}
	write(src, "first\nsecond\n")

	model := grep.Model{Expression: "second expression that is long"}
	if err := g.Apply(model); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	write(src, "first\nsecond expression that is long\n")

	// Lines accepted earlier are not re-evaluated.
	assertTexts(t, g, "first", "second expression that is long")

	if g.Title() != "second expression th" {
		t.Errorf("Title() = %q", g.Title())
	}
	if got, ok := g.Model(); !ok || got != model {
		t.Errorf("Model() = %+v, %v", got, ok)
	}
	if len(applied) != 1 || applied[0] != model {
		t.Errorf("OnApply calls = %+v", applied)
	}
}

func TestApplyErrors(t *testing.T) {
	src := New(Options{})
	if err := src.Apply(grep.Model{Expression: "x"}); !errors.Is(err, ErrNotGrepConsole) {
		t.Errorf("Apply() on source console = %v, want ErrNotGrepConsole", err)
	}

	g, _ := src.OpenGrep(&grep.Model{Expression: "x"}, GrepOptions{})
	if err := g.Apply(grep.Model{Expression: "[", Regex: true}); !errors.Is(err, grep.ErrInvalidExpression) {
		t.Errorf("Apply() invalid = %v, want ErrInvalidExpression", err)
	}
	if m, _ := g.Model(); m.Expression != "x" {
		t.Errorf("a failed Apply replaced the model: %+v", m)
	}
}

func TestDisposeMarksChildrenInactive(t *testing.T) {
	src := New(Options{Profile: grep.DefaultProfile()})
	parent, _ := src.OpenGrep(&grep.Model{Expression: "error"}, GrepOptions{})
	child, _ := parent.OpenGrep(&grep.Model{Expression: "disk"}, GrepOptions{})
	grandchild, _ := child.OpenGrep(&grep.Model{Expression: "full"}, GrepOptions{})

	write(src, "error: disk full\n")
	parent.Dispose()
	write(src, "error: disk full again\n")

	if len(src.Children()) != 0 {
		t.Error("disposed console still registered on its parent")
	}
	if !child.Inactive() || !grandchild.Inactive() {
		t.Error("descendants of a disposed console should be inactive")
	}
	if child.Title() != "disk (Inactive)" {
		t.Errorf("child Title() = %q", child.Title())
	}
	if grandchild.Title() != "full (Inactive)" {
		t.Errorf("grandchild Title() = %q", grandchild.Title())
	}

	// Existing text stays readable, nothing new arrives.
	assertTexts(t, child, "error: disk full")
	assertTexts(t, grandchild, "error: disk full")

	if _, err := parent.Attach(ListenerFunc(func(grep.ProducerID, string, contracts.ContentType) {}), false); !errors.Is(err, ErrDisposed) {
		t.Errorf("Attach() on disposed console = %v, want ErrDisposed", err)
	}

	// Dispose twice is a no-op.
	parent.Dispose()
}

func TestApplyOnInactiveKeepsSuffix(t *testing.T) {
	src := New(Options{Profile: grep.DefaultProfile()})
	parent, _ := src.OpenGrep(&grep.Model{Expression: "a"}, GrepOptions{})
	child, _ := parent.OpenGrep(&grep.Model{Expression: "b"}, GrepOptions{})
	parent.Dispose()

	if err := child.Apply(grep.Model{Expression: "c"}); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if child.Title() != "c (Inactive)" {
		t.Errorf("Title() = %q", child.Title())
	}
}

func TestAttachAndDetach(t *testing.T) {
	src := New(Options{})
	write(src, "old\n")

	var mu sync.Mutex
	var got []string
	detach, err := src.Attach(ListenerFunc(func(p grep.ProducerID, text string, _ contracts.ContentType) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, string(p)+":"+text)
	}), true)
	if err != nil {
		t.Fatalf("Attach() error: %v", err)
	}

	write(src, "new\n")
	detach()
	detach()
	write(src, "ignored\n")

	mu.Lock()
	defer mu.Unlock()
	want := []string{"replay:old\n", "test:new\n"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("listener got %q, want %q", got, want)
	}
}

func TestSetProfilePropagates(t *testing.T) {
	src := New(Options{Profile: grep.DefaultProfile()})
	g, _ := src.OpenGrep(&grep.Model{Expression: "abc"}, GrepOptions{})
	gg, _ := g.OpenGrep(&grep.Model{}, GrepOptions{})

	limited := grep.Profile{Name: "short", MaxLineLength: 3, MaxProcessingTime: time.Second}
	src.SetProfile(limited)

	if g.Profile() != limited || gg.Profile() != limited {
		t.Error("profile did not propagate to grep consoles")
	}

	// "abc" lies beyond the limit of "xxabc".
	write(src, "xxabc\nabcxx\n")
	assertTexts(t, g, "abcxx")
}

type recordingNotifier struct {
	mu       sync.Mutex
	consoles []string
}

func (n *recordingNotifier) Notify(consoleID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.consoles = append(n.consoles, consoleID)
}

func TestNotifierIsInherited(t *testing.T) {
	n := &recordingNotifier{}
	src := New(Options{
		Profile:  grep.Profile{MaxProcessingTime: time.Nanosecond},
		Notifier: n,
	})
	g, _ := src.OpenGrep(&grep.Model{Expression: "never-present", Regex: true}, GrepOptions{})

	write(src, strings.Repeat("x", 100000)+"\n")

	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.consoles) != 1 || n.consoles[0] != g.ID() {
		t.Errorf("notifications = %v, want one for %s", n.consoles, g.ID())
	}
}

func TestSinkListener(t *testing.T) {
	src := New(Options{Profile: grep.DefaultProfile()})
	g, _ := src.OpenGrep(&grep.Model{Expression: "boom"}, GrepOptions{})

	var got []string
	if _, err := g.Attach(SinkListener(grep.SinkFunc(func(text string, kind contracts.OutputKind) {
		got = append(got, kind.String()+":"+text)
	})), false); err != nil {
		t.Fatalf("Attach() error: %v", err)
	}

	src.Write(contracts.Chunk{Producer: "stderr", Text: "boom\nquiet\n", Type: contracts.ContentError})

	if len(got) != 1 || got[0] != "stderr:boom\n" {
		t.Errorf("sink got %q", got)
	}
}
