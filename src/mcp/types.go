// Package mcp exposes grep consoles to language models over the Model Context Protocol.
package mcp

import "grepconsole/src/contracts"

// GrepResponse is the result of the grep_text tool.
type GrepResponse struct {
	Title    string   `json:"title"`
	Matcher  string   `json:"matcher"`
	Lines    int      `json:"lines"`
	Matched  int      `json:"matched"`
	Matches  []Match  `json:"matches"`
	Warnings []string `json:"warnings,omitempty"`

	// Truncated is set when more lines matched than the limit allowed.
	Truncated bool `json:"truncated,omitempty"`
}

// Match is one forwarded line. Repeated lines are reported once with a count.
type Match struct {
	Text       string `json:"text"`
	OutputKind string `json:"output_kind"`
	Count      int    `json:"count,omitempty"`
}

// PinsResponse is the result of the list_pinned_greps tool.
type PinsResponse struct {
	RunConfiguration string                 `json:"run_configuration"`
	Pins             []contracts.PinnedGrep `json:"pins"`
}
