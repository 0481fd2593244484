package main

import (
	"errors"
	"fmt"

	"grepconsole/src/config"
	"grepconsole/src/grep"
	"grepconsole/src/store"
)

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

var errUnknownEncoding = errors.New("unknown encoding")

// errProcessExit carries the exit code of the command run by `run`, so
// grepconsole exits the way the command did.
type errProcessExit struct {
	code int
}

func (e errProcessExit) Error() string {
	return fmt.Sprintf("process finished with exit code %d", e.code)
}

func exitCode(err error) (int, bool) {
	var exit errProcessExit
	if errors.As(err, &exit) {
		return exit.code, true
	}
	return 0, false
}

// wrapError converts errors of the lower layers to user-friendly messages
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var userErr *UserError
	if errors.As(err, &userErr) {
		return err
	}

	if errors.Is(err, grep.ErrInvalidExpression) {
		return &UserError{
			Message: "Invalid grep expression",
			Hint:    "Without --regex the expression is matched literally. With --regex it uses Go regexp syntax (RE2).",
			Err:     err,
		}
	}

	if errors.Is(err, config.ErrInvalidValue) {
		return &UserError{
			Message: "Configuration error",
			Hint:    "Check the GREPCONSOLE_* environment variables. Durations accept Go syntax (1s, 250ms) or plain milliseconds.",
			Err:     err,
		}
	}

	if errors.Is(err, errUnknownEncoding) {
		return &UserError{
			Message: "Unknown output encoding",
			Hint:    "Use a WHATWG encoding label such as utf-8, latin1, windows-1252 or shift_jis.",
			Err:     err,
		}
	}

	var notFound store.ErrNotFound
	if errors.As(err, &notFound) {
		return &UserError{
			Message: "Not found",
			Hint:    "List the pins of a run configuration with: grepconsole pin list <name>",
			Err:     err,
		}
	}

	return err
}

// requireDistributed fails commands that only make sense with a shared broker.
func requireDistributed(command string) error {
	if appConfig.DistributedMode() {
		return nil
	}
	return &UserError{
		Message: fmt.Sprintf("%s needs a shared broker", command),
		Hint:    "Set REDPANDA_BROKERS, e.g. export REDPANDA_BROKERS=localhost:19092",
	}
}
