package ingest

import (
	"context"
	"encoding/json"
	"time"

	"grepconsole/src/broker"
	"grepconsole/src/contracts"
	"grepconsole/src/grep"
	"grepconsole/src/logger"
)

// Publisher writes console output to the raw output topic so other processes
// can grep it. It implements source.ChunkWriter and console.Listener.
type Publisher struct {
	ctx       context.Context
	broker    broker.Broker
	consoleID string
	logger    logger.Logger
	now       func() time.Time
}

// NewPublisher creates a publisher for the console with the given id. ctx bounds
// every publish.
func NewPublisher(ctx context.Context, brk broker.Broker, consoleID string, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Publisher{
		ctx:       ctx,
		broker:    brk,
		consoleID: consoleID,
		logger:    log,
		now:       time.Now,
	}
}

// Key returns the message key of a producer's chunks. Chunks with the same key
// land on the same partition, which keeps each producer's output in order.
func Key(consoleID, producer string) string {
	return consoleID + "/" + producer
}

// Write publishes a chunk, split into pieces if it is large.
func (p *Publisher) Write(chunk contracts.Chunk) {
	key := Key(p.consoleID, chunk.Producer)
	for _, text := range SplitText(chunk.Text, MaxChunkBytes) {
		raw := contracts.RawChunk{
			ConsoleID:   p.consoleID,
			Producer:    chunk.Producer,
			Text:        text,
			ContentType: chunk.Type.String(),
			Timestamp:   p.now().UnixMilli(),
		}
		data, err := json.Marshal(raw)
		if err != nil {
			p.logger.Error("[Publisher] Failed to marshal chunk: %v", err)
			return
		}
		if err := p.broker.Publish(p.ctx, contracts.TopicOutputRaw, key, data); err != nil {
			p.logger.Error("[Publisher] Failed to publish chunk: %v", err)
			return
		}
	}
}

// Process publishes a chunk written to the console the publisher is attached to.
func (p *Publisher) Process(producer grep.ProducerID, text string, contentType contracts.ContentType) {
	p.Write(contracts.Chunk{Producer: string(producer), Text: text, Type: contentType})
}
