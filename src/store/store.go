// Package store persists pinned grep consoles and per-run-configuration settings.
package store

import (
	"context"
	"fmt"

	"grepconsole/src/contracts"
)

// Store is the persistence used to reopen pinned greps on the next run.
type Store interface {
	// SavePin stores a pin, replacing any pin with the same console UUID in the
	// same run configuration.
	SavePin(ctx context.Context, pin contracts.PinnedGrep) error

	// UpdatePinModel replaces the model of an existing pin.
	UpdatePinModel(ctx context.Context, runConfig, consoleUUID string, model contracts.GrepModel) error

	// DeletePin removes a pin.
	DeletePin(ctx context.Context, runConfig, consoleUUID string) error

	// ListPins returns the pins of a run configuration, oldest first, so a pin is
	// always listed after the pin of its parent console.
	ListPins(ctx context.Context, runConfig string) ([]contracts.PinnedGrep, error)

	// GetRunConfiguration returns the settings of a run configuration.
	GetRunConfiguration(ctx context.Context, name string) (contracts.RunConfiguration, error)

	// SaveRunConfiguration stores the settings of a run configuration.
	SaveRunConfiguration(ctx context.Context, rc contracts.RunConfiguration) error

	// Close closes the store connection
	Close() error
}

// ErrNotFound is returned when a pin or run configuration does not exist.
type ErrNotFound struct {
	RunConfiguration string
	ConsoleUUID      string
}

func (e ErrNotFound) Error() string {
	if e.ConsoleUUID != "" {
		return fmt.Sprintf("pin not found: %s/%s", e.RunConfiguration, e.ConsoleUUID)
	}
	return fmt.Sprintf("run configuration not found: %s", e.RunConfiguration)
}

var (
	_ Store = (*InMemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
