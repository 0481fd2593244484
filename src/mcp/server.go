package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"grepconsole/src/contracts"
	"grepconsole/src/grep"
	"grepconsole/src/logger"
	"grepconsole/src/store"
)

// DefaultMatchLimit caps the distinct matches returned by grep_text.
const DefaultMatchLimit = 200

// Server is the MCP server for grepconsole.
type Server struct {
	mcpServer *server.MCPServer
	store     store.Store
	profile   grep.Profile
	log       logger.Logger
}

// NewServer creates a new MCP server. profile supplies the default line limit
// and time budget of grep_text.
func NewServer(st store.Store, profile grep.Profile, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	s := server.NewMCPServer(
		"grepconsole",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		store:     st,
		profile:   profile,
		log:       log,
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	grepTool := mcp.NewTool("grep_text",
		mcp.WithDescription("Filter console output the way a grep console does: every line is matched against the expression with a per-line time budget, and matching lines are returned. Repeated lines are collapsed with a count."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Console output to filter; lines are separated by newlines"),
		),
		mcp.WithString("expression",
			mcp.Description("Text or regular expression to look for. Empty matches every line."),
		),
		mcp.WithBoolean("case_sensitive", mcp.Description("Match case (default: false)")),
		mcp.WithBoolean("whole_words", mcp.Description("Only match whole words (default: false)")),
		mcp.WithBoolean("regex", mcp.Description("Treat the expression as a regular expression (default: false)")),
		mcp.WithBoolean("exclude", mcp.Description("Return lines that do NOT match (default: false)")),
		mcp.WithNumber("max_line_length", mcp.Description("Runes of each line that are matched; 0 means unlimited")),
		mcp.WithNumber("max_processing_ms", mcp.Description("Time budget per line in milliseconds; 0 means unlimited")),
		mcp.WithNumber("limit", mcp.Description(fmt.Sprintf("Max distinct matches returned (default: %d)", DefaultMatchLimit))),
		mcp.WithBoolean("compact", mcp.Description("Strip timestamps, hashes and long paths from matches (default: true)")),
	)

	pinsTool := mcp.NewTool("list_pinned_greps",
		mcp.WithDescription("List the grep consoles pinned to a run configuration. Pinned greps are reopened when the configuration runs again."),
		mcp.WithString("run_configuration",
			mcp.Required(),
			mcp.Description("Run configuration name"),
		),
	)

	pinTool := mcp.NewTool("pin_grep",
		mcp.WithDescription("Pin a grep to a run configuration so it opens on the next run."),
		mcp.WithString("run_configuration", mcp.Required(), mcp.Description("Run configuration name")),
		mcp.WithString("expression", mcp.Required(), mcp.Description("Text or regular expression")),
		mcp.WithString("parent_console_uuid", mcp.Description("Pinned grep to chain this one to")),
		mcp.WithBoolean("case_sensitive", mcp.Description("Match case")),
		mcp.WithBoolean("whole_words", mcp.Description("Only match whole words")),
		mcp.WithBoolean("regex", mcp.Description("Treat the expression as a regular expression")),
		mcp.WithBoolean("exclude", mcp.Description("Keep lines that do NOT match")),
	)

	s.mcpServer.AddTool(grepTool, s.handleGrepText)
	s.mcpServer.AddTool(pinsTool, s.handleListPins)
	s.mcpServer.AddTool(pinTool, s.handlePinGrep)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func modelFromRequest(request mcp.CallToolRequest) grep.Model {
	return grep.Model{
		Expression:    request.GetString("expression", ""),
		CaseSensitive: request.GetBool("case_sensitive", false),
		WholeWords:    request.GetBool("whole_words", false),
		Regex:         request.GetBool("regex", false),
		Exclude:       request.GetBool("exclude", false),
	}
}

// handleGrepText handles the grep_text tool call.
func (s *Server) handleGrepText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := request.GetString("text", "")
	if text == "" {
		return mcp.NewToolResultError("text parameter is required"), nil
	}

	model := modelFromRequest(request)
	matcher, err := grep.Compile(model)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	profile := s.profile
	profile.MaxLineLength = request.GetInt("max_line_length", profile.MaxLineLength)
	if ms := request.GetInt("max_processing_ms", -1); ms >= 0 {
		profile.MaxProcessingTime = time.Duration(ms) * time.Millisecond
	}

	response := runGrep(text, model, matcher, profile)
	limit := request.GetInt("limit", DefaultMatchLimit)
	compact := request.GetBool("compact", true)
	response.Matches, response.Truncated = summarize(response.Matches, limit, compact)

	jsonBytes, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// runGrep feeds text through a grep filter as one producer and collects the
// forwarded lines and timeout warnings.
func runGrep(text string, model grep.Model, matcher grep.Matcher, profile grep.Profile) GrepResponse {
	response := GrepResponse{Title: model.Title(), Matcher: matcher.String()}

	var mu sync.Mutex
	sink := grep.SinkFunc(func(line string, kind contracts.OutputKind) {
		mu.Lock()
		defer mu.Unlock()
		response.Matches = append(response.Matches, Match{
			Text:       strings.TrimSuffix(line, "\n"),
			OutputKind: kind.String(),
		})
	})
	warn := &warningCollector{}

	filter := grep.NewFilter(sink, profile,
		grep.WithConsoleID("mcp-"+uuid.NewString()),
		grep.WithNotifier(warn),
		grep.WithLogger(warn),
	)
	filter.ModelUpdated(matcher)

	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	filter.Process("mcp", text, contracts.ContentNormal)
	filter.Dispose("mcp")

	response.Lines = strings.Count(text, "\n")
	response.Matched = len(response.Matches)
	response.Warnings = warn.messages
	return response
}

// summarize collapses repeated lines, keeping first-seen order, and applies the limit.
func summarize(matches []Match, limit int, compact bool) ([]Match, bool) {
	if compact {
		texts := make([]string, len(matches))
		for i, m := range matches {
			texts[i] = m.Text
		}
		for i, t := range compactLines(texts) {
			matches[i].Text = t
		}
	}

	index := make(map[Match]int)
	var out []Match
	for _, m := range matches {
		key := Match{Text: m.Text, OutputKind: m.OutputKind}
		if i, ok := index[key]; ok {
			out[i].Count++
			continue
		}
		index[key] = len(out)
		m.Count = 1
		out = append(out, m)
	}

	if limit > 0 && len(out) > limit {
		return out[:limit], true
	}
	return out, false
}

// handleListPins handles the list_pinned_greps tool call.
func (s *Server) handleListPins(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runConfig := request.GetString("run_configuration", "")
	if runConfig == "" {
		return mcp.NewToolResultError("run_configuration parameter is required"), nil
	}

	pins, err := s.store.ListPins(ctx, runConfig)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list pins: %v", err)), nil
	}

	jsonBytes, err := json.Marshal(PinsResponse{RunConfiguration: runConfig, Pins: pins})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal pins: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handlePinGrep handles the pin_grep tool call.
func (s *Server) handlePinGrep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runConfig := request.GetString("run_configuration", "")
	if runConfig == "" {
		return mcp.NewToolResultError("run_configuration parameter is required"), nil
	}

	model := modelFromRequest(request)
	if model.Expression == "" {
		return mcp.NewToolResultError("expression parameter is required"), nil
	}
	if _, err := grep.Compile(model); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	pin := contracts.PinnedGrep{
		ConsoleUUID:       uuid.NewString(),
		ParentConsoleUUID: request.GetString("parent_console_uuid", ""),
		RunConfiguration:  runConfig,
		Model:             model.ToContract(),
	}
	if err := s.store.SavePin(ctx, pin); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save pin: %v", err)), nil
	}
	s.log.Info("[MCP] Pinned %q to %s", model.Expression, runConfig)

	jsonBytes, err := json.Marshal(pin)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal pin: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// warningCollector gathers timeout notifications and the warnings logged for
// later timeouts of the same matcher.
type warningCollector struct {
	mu       sync.Mutex
	messages []string
}

func (w *warningCollector) add(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, msg)
}

func (w *warningCollector) Notify(consoleID, message string) { w.add(message) }

func (w *warningCollector) Warn(msg string, args ...interface{}) { w.add(fmt.Sprintf(msg, args...)) }
func (w *warningCollector) Info(msg string, args ...interface{})  {}
func (w *warningCollector) Error(msg string, args ...interface{}) { w.add(fmt.Sprintf(msg, args...)) }
func (w *warningCollector) Debug(msg string, args ...interface{}) {}
