package ingest

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"grepconsole/src/broker"
	"grepconsole/src/console"
	"grepconsole/src/contracts"
	"grepconsole/src/grep"
	"grepconsole/src/logger"
)

type recorder struct {
	mu     sync.Mutex
	chunks []contracts.Chunk
	got    chan struct{}
}

func newRecorder() *recorder {
	return &recorder{got: make(chan struct{}, 100)}
}

func (r *recorder) Write(c contracts.Chunk) {
	r.mu.Lock()
	r.chunks = append(r.chunks, c)
	r.mu.Unlock()
	r.got <- struct{}{}
}

func (r *recorder) wait(t *testing.T, n int) []contracts.Chunk {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.got:
		case <-time.After(time.Second):
			t.Fatalf("Timeout waiting for chunk %d", i+1)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]contracts.Chunk(nil), r.chunks...)
}

func startAgent(t *testing.T, brk broker.Broker, dst *recorder, consoleID string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	agent := NewAgent(brk, dst, consoleID, logger.NewSilentLogger())

	done := make(chan error, 1)
	go func() { done <- agent.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Subscription happens inside Run.
	time.Sleep(20 * time.Millisecond)
}

func TestAgent_WritesPublishedChunks(t *testing.T) {
	brk := broker.NewInMemoryBroker()
	defer brk.Close()

	dst := newRecorder()
	startAgent(t, brk, dst, "")

	pub := NewPublisher(context.Background(), brk, "console-1", nil)
	pub.Write(contracts.Chunk{Producer: "stderr", Text: "boom\n", Type: contracts.ContentError})

	chunks := dst.wait(t, 1)
	want := contracts.Chunk{Producer: "console-1/stderr", Text: "boom\n", Type: contracts.ContentError}
	if chunks[0] != want {
		t.Errorf("chunk = %+v, want %+v", chunks[0], want)
	}
}

func TestAgent_FiltersByConsole(t *testing.T) {
	brk := broker.NewInMemoryBroker()
	defer brk.Close()

	dst := newRecorder()
	startAgent(t, brk, dst, "wanted")

	NewPublisher(context.Background(), brk, "other", nil).Write(contracts.Chunk{Producer: "stdout", Text: "skip\n"})
	NewPublisher(context.Background(), brk, "wanted", nil).Write(contracts.Chunk{Producer: "stdout", Text: "keep\n"})

	chunks := dst.wait(t, 1)
	if len(chunks) != 1 || chunks[0].Text != "keep\n" {
		t.Errorf("chunks = %+v", chunks)
	}
}

func TestAgent_SkipsMalformedMessages(t *testing.T) {
	brk := broker.NewInMemoryBroker()
	defer brk.Close()

	dst := newRecorder()
	startAgent(t, brk, dst, "")

	ctx := context.Background()
	brk.Publish(ctx, contracts.TopicOutputRaw, "k", []byte("{not json"))
	NewPublisher(ctx, brk, "c", nil).Write(contracts.Chunk{Producer: "stdout", Text: "fine\n"})

	chunks := dst.wait(t, 1)
	if chunks[0].Text != "fine\n" {
		t.Errorf("chunk = %+v", chunks[0])
	}
}

func TestPublisher_WireFormat(t *testing.T) {
	ctx := context.Background()
	brk := broker.NewInMemoryBroker()
	defer brk.Close()

	msgChan, err := brk.Subscribe(ctx, contracts.TopicOutputRaw, "test-consumer")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	pub := NewPublisher(ctx, brk, "console-1", nil)
	pub.now = func() time.Time { return time.UnixMilli(42) }
	pub.Write(contracts.Chunk{Producer: "stdout", Text: "hello\n", Type: contracts.ContentNormal})

	select {
	case msg := <-msgChan:
		if msg.Key != "console-1/stdout" {
			t.Errorf("Expected key console-1/stdout, got %s", msg.Key)
		}
		var raw contracts.RawChunk
		if err := json.Unmarshal(msg.Value, &raw); err != nil {
			t.Fatalf("Failed to unmarshal: %v", err)
		}
		want := contracts.RawChunk{ConsoleID: "console-1", Producer: "stdout", Text: "hello\n", ContentType: "normal", Timestamp: 42}
		if raw != want {
			t.Errorf("RawChunk = %+v, want %+v", raw, want)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestPublisher_AttachedToConsole(t *testing.T) {
	ctx := context.Background()
	brk := broker.NewInMemoryBroker()
	defer brk.Close()

	msgChan, err := brk.Subscribe(ctx, contracts.TopicOutputRaw, "test-consumer")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	src := console.New(console.Options{})
	if _, err := src.Attach(NewPublisher(ctx, brk, src.ID(), nil), false); err != nil {
		t.Fatalf("Attach() error: %v", err)
	}
	src.Write(contracts.Chunk{Producer: "stderr", Text: "boom\n", Type: contracts.ContentError})

	select {
	case msg := <-msgChan:
		if msg.Key != src.ID()+"/stderr" {
			t.Errorf("Expected key %s/stderr, got %s", src.ID(), msg.Key)
		}
		var raw contracts.RawChunk
		if err := json.Unmarshal(msg.Value, &raw); err != nil {
			t.Fatalf("Failed to unmarshal: %v", err)
		}
		if raw.ContentType != "error" || raw.Text != "boom\n" {
			t.Errorf("RawChunk = %+v", raw)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

// Output split across published chunks is rebuilt into whole lines by a grep console.
func TestAgent_GrepAcrossBroker(t *testing.T) {
	brk := broker.NewInMemoryBroker()
	defer brk.Close()

	src := console.New(console.Options{Profile: grep.DefaultProfile()})
	g, err := src.OpenGrep(&grep.Model{Expression: "database"}, console.GrepOptions{})
	if err != nil {
		t.Fatalf("OpenGrep() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewAgent(brk, src, "", nil).Run(ctx)
	time.Sleep(20 * time.Millisecond)

	pub := NewPublisher(ctx, brk, "remote", nil)
	pub.Write(contracts.Chunk{Producer: "stdout", Text: "connecting to data"})
	pub.Write(contracts.Chunk{Producer: "stdout", Text: "base\nother line\n"})

	deadline := time.Now().Add(time.Second)
	for len(g.Lines()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	lines := g.Lines()
	if len(lines) != 1 || lines[0].Text != "connecting to database" {
		t.Errorf("grep console lines = %+v", lines)
	}
}

func TestSplitText(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{"empty", "", 10, nil},
		{"fits", "abc\n", 10, []string{"abc\n"}},
		{"unlimited", "abcdef", 0, []string{"abcdef"}},
		{"at newline", "aa\nbb\ncc\n", 7, []string{"aa\nbb\n", "cc\n"}},
		{"long line", "abcdefgh", 3, []string{"abc", "def", "gh"}},
		{"rune boundary", "ééé", 3, []string{"é", "é", "é"}},
		{"rune wider than max", "日本", 2, []string{"日", "本"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitText(tt.text, tt.max)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("SplitText(%q, %d) = %q, want %q", tt.text, tt.max, got, tt.want)
			}
			if strings.Join(got, "") != tt.text {
				t.Errorf("pieces do not add up to the input")
			}
		})
	}
}
