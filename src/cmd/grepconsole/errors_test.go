package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"grepconsole/src/config"
	"grepconsole/src/grep"
	"grepconsole/src/store"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantMessage string
	}{
		{"invalid expression", fmt.Errorf("%w: %q", grep.ErrInvalidExpression, "("), "Invalid grep expression"},
		{"configuration", fmt.Errorf("%w: GREPCONSOLE_HISTORY_LINES", config.ErrInvalidValue), "Configuration error"},
		{"encoding", fmt.Errorf("%w: klingon", errUnknownEncoding), "Unknown output encoding"},
		{"pin not found", store.ErrNotFound{RunConfiguration: "rc", ConsoleUUID: "g"}, "Not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapError(tt.err)
			var userErr *UserError
			if !errors.As(err, &userErr) {
				t.Fatalf("wrapError() = %T, want *UserError", err)
			}
			if userErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", userErr.Message, tt.wantMessage)
			}
			if !errors.Is(err, tt.err) {
				t.Error("wrapped error should unwrap to the original")
			}
			if !strings.Contains(err.Error(), "Hint:") {
				t.Errorf("Error() has no hint: %q", err.Error())
			}
		})
	}
}

func TestWrapErrorPassesThrough(t *testing.T) {
	if wrapError(nil) != nil {
		t.Error("wrapError(nil) should be nil")
	}

	plain := errors.New("boom")
	if wrapError(plain) != plain {
		t.Error("unknown errors should pass through unchanged")
	}

	userErr := &UserError{Message: "already friendly"}
	if wrapError(userErr) != userErr {
		t.Error("a UserError should not be wrapped twice")
	}
}

func TestExitCode(t *testing.T) {
	code, ok := exitCode(fmt.Errorf("run: %w", errProcessExit{code: 3}))
	if !ok || code != 3 {
		t.Errorf("exitCode() = %d, %v, want 3, true", code, ok)
	}
	if _, ok := exitCode(errors.New("other")); ok {
		t.Error("exitCode() should not match other errors")
	}
}

func TestRequireDistributed(t *testing.T) {
	appConfig = &config.Config{}
	if err := requireDistributed("consume"); err == nil || !strings.Contains(err.Error(), "REDPANDA_BROKERS") {
		t.Errorf("requireDistributed() = %v", err)
	}

	appConfig = &config.Config{RedpandaBrokers: []string{"localhost:19092"}}
	if err := requireDistributed("consume"); err != nil {
		t.Errorf("requireDistributed() = %v, want nil", err)
	}
}
