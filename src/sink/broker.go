package sink

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"grepconsole/src/broker"
	"grepconsole/src/contracts"
	"grepconsole/src/logger"
)

// brokerQueueSize bounds the lines waiting to be published.
const brokerQueueSize = 4096

// BrokerSink publishes forwarded lines of one grep console to the matches topic.
// Write only queues the line; Run publishes. When the queue is full lines are
// dropped and counted, so a slow broker never stalls the console.
type BrokerSink struct {
	brk       broker.Broker
	consoleID string
	title     func() string
	log       logger.Logger
	queue     chan contracts.MatchedLine
	dropped   atomic.Int64
	now       func() time.Time
}

// NewBrokerSink creates a sink for the console with the given id. title is
// called for every line so renames are picked up.
func NewBrokerSink(brk broker.Broker, consoleID string, title func() string, log logger.Logger) *BrokerSink {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	if title == nil {
		title = func() string { return "" }
	}
	return &BrokerSink{
		brk:       brk,
		consoleID: consoleID,
		title:     title,
		log:       log,
		queue:     make(chan contracts.MatchedLine, brokerQueueSize),
		now:       time.Now,
	}
}

func (s *BrokerSink) Write(text string, kind contracts.OutputKind) {
	line := Matched(s.consoleID, s.title(), text, kind, s.now())
	select {
	case s.queue <- line:
	default:
		if n := s.dropped.Add(1); n == 1 || n%1000 == 0 {
			s.log.Warn("[BrokerSink] Queue full, dropped %d lines of %s", n, s.consoleID)
		}
	}
}

// Dropped returns the number of lines dropped because the queue was full.
func (s *BrokerSink) Dropped() int64 { return s.dropped.Load() }

// Run publishes queued lines until ctx is done.
func (s *BrokerSink) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line := <-s.queue:
			if err := s.publish(ctx, line); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

// Flush publishes the lines still queued and returns once the queue is empty.
func (s *BrokerSink) Flush(ctx context.Context) error {
	for {
		select {
		case line := <-s.queue:
			if err := s.publish(ctx, line); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		default:
			return nil
		}
	}
}

func (s *BrokerSink) publish(ctx context.Context, line contracts.MatchedLine) error {
	data, err := json.Marshal(line)
	if err != nil {
		s.log.Error("[BrokerSink] Failed to marshal line: %v", err)
		return err
	}
	if err := s.brk.Publish(ctx, contracts.TopicGrepMatches, line.ConsoleID, data); err != nil {
		if ctx.Err() == nil {
			s.log.Error("[BrokerSink] Failed to publish: %v", err)
		}
		return err
	}
	return nil
}
