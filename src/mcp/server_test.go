package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"grepconsole/src/contracts"
	"grepconsole/src/grep"
	"grepconsole/src/store"
)

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(result.Content))
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want mcp.TextContent", result.Content[0])
	}
	return text.Text
}

func decodeGrep(t *testing.T, result *mcp.CallToolResult) GrepResponse {
	t.Helper()
	if result.IsError {
		t.Fatalf("tool error: %s", resultText(t, result))
	}
	var resp GrepResponse
	if err := json.Unmarshal([]byte(resultText(t, result)), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return resp
}

func newTestServer() *Server {
	return NewServer(store.NewInMemoryStore(), grep.DefaultProfile(), nil)
}

func TestGrepText(t *testing.T) {
	s := newTestServer()
	resp := decodeGrep(t, callTool(t, s.handleGrepText, map[string]any{
		"text":       "INFO start\nERROR db down\nINFO retry\nERROR db down\nERROR disk full",
		"expression": "error",
	}))

	if resp.Lines != 5 || resp.Matched != 3 {
		t.Errorf("Lines/Matched = %d/%d, want 5/3", resp.Lines, resp.Matched)
	}
	if len(resp.Matches) != 2 {
		t.Fatalf("expected 2 distinct matches, got %+v", resp.Matches)
	}
	if resp.Matches[0].Text != "ERROR db down" || resp.Matches[0].Count != 2 {
		t.Errorf("first match = %+v", resp.Matches[0])
	}
	if resp.Matches[1].Text != "ERROR disk full" || resp.Matches[1].Count != 1 {
		t.Errorf("second match = %+v", resp.Matches[1])
	}
	if resp.Title != "error" {
		t.Errorf("Title = %q", resp.Title)
	}
}

func TestGrepTextOptions(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		name string
		args map[string]any
		want []string
	}{
		{"exclude", map[string]any{"expression": "debug", "exclude": true}, []string{"keep me"}},
		{"regex", map[string]any{"expression": `^DEBUG \d+$`, "regex": true}, []string{"DEBUG 1"}},
		{"case sensitive", map[string]any{"expression": "debug", "case_sensitive": true}, nil},
		{"line limit", map[string]any{"expression": "me", "max_line_length": 3}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["text"] = "DEBUG 1\nkeep me\n"
			resp := decodeGrep(t, callTool(t, s.handleGrepText, tt.args))
			var got []string
			for _, m := range resp.Matches {
				got = append(got, m.Text)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("matches = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGrepTextErrors(t *testing.T) {
	s := newTestServer()

	if result := callTool(t, s.handleGrepText, map[string]any{}); !result.IsError {
		t.Error("expected error without text")
	}
	result := callTool(t, s.handleGrepText, map[string]any{"text": "x", "expression": "(", "regex": true})
	if !result.IsError {
		t.Error("expected error for invalid regex")
	}
}

func TestGrepTextLimit(t *testing.T) {
	s := newTestServer()
	resp := decodeGrep(t, callTool(t, s.handleGrepText, map[string]any{
		"text":  "a\nb\nc\nd\n",
		"limit": 2,
	}))
	if len(resp.Matches) != 2 || !resp.Truncated {
		t.Errorf("Matches = %+v, Truncated = %v", resp.Matches, resp.Truncated)
	}
}

func TestSummarizeWithoutCompact(t *testing.T) {
	matches := []Match{
		{Text: "2024-05-21T10:00:05Z x", OutputKind: "stdout"},
		{Text: "2024-05-21T10:00:05Z x", OutputKind: "stderr"},
	}
	out, truncated := summarize(matches, 0, false)
	if truncated || len(out) != 2 {
		t.Fatalf("summarize() = %+v, %v", out, truncated)
	}
	if out[0].Text != "2024-05-21T10:00:05Z x" {
		t.Errorf("text was compacted: %q", out[0].Text)
	}
}

func TestRunGrepReportsTimeouts(t *testing.T) {
	model := grep.Model{Expression: "x"}
	slow := grep.MustCompile(model)
	profile := grep.Profile{MaxProcessingTime: 1}
	resp := runGrep(strings.Repeat("y", 50000)+"\n"+strings.Repeat("y", 50000)+"\n", model, slow, profile)

	if len(resp.Warnings) != 2 {
		t.Fatalf("expected 2 warnings (notification + log), got %d: %q", len(resp.Warnings), resp.Warnings)
	}
	if !strings.Contains(resp.Warnings[0], "took too long") {
		t.Errorf("warning = %q", resp.Warnings[0])
	}
}

func TestPinTools(t *testing.T) {
	s := newTestServer()

	pinResult := callTool(t, s.handlePinGrep, map[string]any{
		"run_configuration": "server",
		"expression":        "timeout",
		"whole_words":       true,
	})
	if pinResult.IsError {
		t.Fatalf("pin_grep error: %s", resultText(t, pinResult))
	}

	listResult := callTool(t, s.handleListPins, map[string]any{"run_configuration": "server"})
	var resp PinsResponse
	if err := json.Unmarshal([]byte(resultText(t, listResult)), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Pins) != 1 {
		t.Fatalf("expected 1 pin, got %+v", resp.Pins)
	}
	want := contracts.GrepModel{Expression: "timeout", WholeWords: true}
	if resp.Pins[0].Model != want {
		t.Errorf("pinned model = %+v, want %+v", resp.Pins[0].Model, want)
	}

	if result := callTool(t, s.handleListPins, map[string]any{}); !result.IsError {
		t.Error("expected error without run_configuration")
	}
	if result := callTool(t, s.handlePinGrep, map[string]any{"run_configuration": "server"}); !result.IsError {
		t.Error("expected error without expression")
	}
}
