// Package ingest moves console output through the broker: Publisher sends the
// output of a local process, Agent feeds published output into a local console.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"grepconsole/src/broker"
	"grepconsole/src/contracts"
	"grepconsole/src/logger"
	"grepconsole/src/source"
)

// Agent consumes raw output chunks and writes them into a console.
type Agent struct {
	broker    broker.Broker
	dst       source.ChunkWriter
	consoleID string
	groupID   string
	logger    logger.Logger
}

// NewAgent creates an ingest agent writing into dst. With a non-empty consoleID
// only that console's output is consumed.
//
// Every agent uses its own consumer group: a console needs all chunks of a
// producer to rebuild its lines.
func NewAgent(brk broker.Broker, dst source.ChunkWriter, consoleID string, log logger.Logger) *Agent {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Agent{
		broker:    brk,
		dst:       dst,
		consoleID: consoleID,
		groupID:   "grepconsole-" + uuid.NewString(),
		logger:    log,
	}
}

// Run starts the agent's main loop.
// It subscribes to grepconsole.output.raw and writes every chunk to the console.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("[IngestAgent] Starting...")

	msgChan, err := a.broker.Subscribe(ctx, contracts.TopicOutputRaw, a.groupID)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", contracts.TopicOutputRaw, err)
	}

	a.logger.Info("[IngestAgent] Listening for output on '%s' topic...", contracts.TopicOutputRaw)

	for {
		select {
		case msg, ok := <-msgChan:
			if !ok {
				a.logger.Info("[IngestAgent] Message channel closed, shutting down")
				return nil
			}

			if err := a.processChunk(msg); err != nil {
				a.logger.Error("[IngestAgent] Error processing chunk: %v", err)
			}

		case <-ctx.Done():
			a.logger.Info("[IngestAgent] Context cancelled, shutting down")
			return ctx.Err()
		}
	}
}

// processChunk writes one published chunk into the console. Producers of
// different remote consoles are kept apart.
func (a *Agent) processChunk(msg broker.Message) error {
	var raw contracts.RawChunk
	if err := json.Unmarshal(msg.Value, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal chunk: %w", err)
	}
	if a.consoleID != "" && raw.ConsoleID != a.consoleID {
		return nil
	}

	a.dst.Write(contracts.Chunk{
		Producer: Key(raw.ConsoleID, raw.Producer),
		Text:     raw.Text,
		Type:     contracts.ParseContentType(raw.ContentType),
	})
	a.logger.Debug("[IngestAgent] Chunk from %s (%d bytes, offset %d)", msg.Key, len(raw.Text), msg.Offset)
	return nil
}
