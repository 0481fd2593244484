// Package pipeline wires the broker and pin store for the configured mode and
// starts the agents that feed consoles from the broker.
// This package is used by both the CLI and the MCP server.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"grepconsole/src/broker"
	"grepconsole/src/config"
	"grepconsole/src/ingest"
	"grepconsole/src/logger"
	"grepconsole/src/source"
	"grepconsole/src/store"
)

// Mode selects where console output travels.
type Mode int

const (
	// LocalMode keeps everything in one process with the in-memory broker.
	LocalMode Mode = iota
	// DistributedMode shares console output through Redpanda.
	DistributedMode
)

func (m Mode) String() string {
	if m == DistributedMode {
		return "distributed"
	}
	return "local"
}

// DetectMode returns DistributedMode when Redpanda brokers are configured.
func DetectMode(cfg *config.Config) Mode {
	if cfg.DistributedMode() {
		return DistributedMode
	}
	return LocalMode
}

// Pipeline holds the broker and the pin store of a run.
type Pipeline struct {
	Mode   Mode
	Broker broker.Broker
	Store  store.Store
}

// Open creates the broker and store the configuration asks for. The Postgres
// schema is created when missing.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (*Pipeline, error) {
	p := &Pipeline{Mode: DetectMode(cfg)}

	if p.Mode == DistributedMode {
		brk, err := broker.NewRedpandaBroker(cfg.RedpandaBrokers, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redpanda broker: %w", err)
		}
		p.Broker = brk
	} else {
		brk := broker.NewInMemoryBroker()
		brk.SetLogger(log)
		p.Broker = brk
	}

	st, err := OpenStore(ctx, cfg)
	if err != nil {
		p.Broker.Close()
		return nil, err
	}
	p.Store = st

	log.Debug("[Pipeline] Opened in %s mode", p.Mode)
	return p, nil
}

// OpenStore opens the Postgres pin store when DATABASE_URL is set, creating the
// schema if needed, and the in-memory store otherwise.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		return store.NewInMemoryStore(), nil
	}
	pg, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Postgres store: %w", err)
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	return pg, nil
}

// Close shuts down the broker and the store.
func (p *Pipeline) Close() error {
	return errors.Join(p.Broker.Close(), p.Store.Close())
}

// Start runs an ingest agent feeding dst as a goroutine. With a non-empty
// consoleID only that console's output is consumed.
// It uses silent logging so the TUI stays clean; errors still go to stderr.
func Start(ctx context.Context, brk broker.Broker, dst source.ChunkWriter, consoleID string) {
	log := logger.NewSilentLogger()

	agent := ingest.NewAgent(brk, dst, consoleID, log)
	go func() {
		if err := agent.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			// Error logging always goes to stderr even in silent mode
			fmt.Fprintf(os.Stderr, "[Pipeline] Ingest agent error: %v\n", err)
		}
	}()
}
