// Demo program to showcase the grepconsole TUI with a realistic, streaming build log.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"grepconsole/src/console"
	"grepconsole/src/contracts"
	"grepconsole/src/grep"
	"grepconsole/src/tui"
)

type logLine struct {
	text    string
	content contracts.ContentType
}

func main() {
	bridge := tui.NewBridge()
	src := console.New(console.Options{
		Name:     "ci/build.sh (demo)",
		Profile:  grep.DefaultProfile(),
		Notifier: bridge,
	})
	g, err := src.OpenGrep(&grep.Model{Expression: "error|fatal|timeout", Regex: true}, console.GrepOptions{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening grep console: %v\n", err)
		os.Exit(1)
	}
	for _, c := range []*console.Console{src, g} {
		if _, err := bridge.Watch(c); err != nil {
			fmt.Fprintf(os.Stderr, "Error watching console: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	program := tui.Program(tui.NewMainModel(tui.Options{Source: src, Grep: g}))
	go bridge.Run(ctx, program)
	go stream(ctx, src)

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

// stream writes the sample log in uneven pieces, splitting lines across writes
// the way a pipe delivers them.
func stream(ctx context.Context, src *console.Console) {
	ticker := time.NewTicker(120 * time.Millisecond)
	defer ticker.Stop()

	for round := 1; ; round++ {
		for _, line := range sampleLog(round) {
			producer := "stdout"
			if line.content == contracts.ContentError {
				producer = "stderr"
			}
			text := line.text + "\n"
			cut := rand.Intn(len(text))
			for _, piece := range []string{text[:cut], text[cut:]} {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
				src.Write(contracts.Chunk{Producer: producer, Text: piece, Type: line.content})
			}
		}
	}
}

func sampleLog(round int) []logLine {
	out := func(format string, args ...interface{}) logLine {
		return logLine{text: fmt.Sprintf(format, args...), content: contracts.ContentNormal}
	}
	errLine := func(format string, args ...interface{}) logLine {
		return logLine{text: fmt.Sprintf(format, args...), content: contracts.ContentError}
	}

	return []logLine{
		out("--- round %d ---", round),
		out("[INFO] Running test: com.acme.processor.LargeBatchTest"),
		out("[INFO] Loading dataset: datasets/huge_import.csv (500MB)"),
		out("[DEBUG] Memory usage: 1024MB / 2048MB"),
		out("[WARN] GC overhead limit exceeded imminent"),
		errLine("[FATAL] java.lang.OutOfMemoryError: Java heap space"),
		out("\tat com.acme.processor.DataHandler.process(DataHandler.java:142)"),
		out("\tat com.acme.processor.BatchRunner.run(BatchRunner.java:55)"),
		out("[TestWorker-1] Starting test: \"User Checkout Flow\""),
		out("[TestWorker-1] Navigating to /checkout"),
		out("[DB-Pool] Acquiring connection..."),
		errLine("ConnectionTimeout: Failed to connect to postgres://db-prod:5432 after 30000ms"),
		out("[TestWorker-1] Retrying test (1/3)..."),
		out("\x1b[32mok\x1b[0m  github.com/acme/api/handlers  0.412s"),
		errLine("--- FAIL: TestRateLimiter (0.01s)"),
		errLine("    limiter_test.go:88: error: expected 429, got 200"),
		out("[INFO] Uploading artifacts..."),
	}
}
