package broker

import (
	"context"
	"sync"
	"time"

	"grepconsole/src/logger"
)

// subscriberBuffer is the channel capacity of each in-memory subscription.
const subscriberBuffer = 1024

type subscription struct {
	ch      chan Message
	done    chan struct{} // closed when the subscriber's context ends
	groupID string
}

// InMemoryBroker fans messages out to every subscriber of a topic within one process.
// Offsets are assigned per topic in publish order.
type InMemoryBroker struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscription
	offsets     map[string]int64
	closed      bool
	quit        chan struct{}
	quitOnce    sync.Once
	log         logger.Logger
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		subscribers: make(map[string][]*subscription),
		offsets:     make(map[string]int64),
		quit:        make(chan struct{}),
		log:         logger.NewSilentLogger(),
	}
}

// SetLogger replaces the silent default logger.
func (b *InMemoryBroker) SetLogger(l logger.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log = l
}

// Publish delivers value to every current subscriber of topic. It blocks while a
// subscriber's buffer is full, until ctx is done.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	offset := b.offsets[topic]
	b.offsets[topic] = offset + 1
	subs := b.subscribers[topic]
	log := b.log
	b.mu.Unlock()

	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     value,
		Offset:    offset,
		Timestamp: time.Now().UnixMilli(),
	}

	// Channels are only closed under the write lock.
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for _, sub := range subs {
		select {
		case sub.ch <- msg:
		case <-sub.done:
		case <-b.quit:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	log.Debug("[InMemoryBroker] Published to topic '%s' (key=%s, %d bytes)", topic, key, len(value))
	return nil
}

// Subscribe registers a subscriber for topic. Every subscription receives every
// message; groupID is only recorded.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	sub := &subscription{
		ch:      make(chan Message, subscriberBuffer),
		done:    make(chan struct{}),
		groupID: groupID,
	}
	b.subscribers[topic] = append(b.subscribers[topic], sub)

	go func() {
		select {
		case <-ctx.Done():
			close(sub.done)
			b.unsubscribe(topic, sub)
		case <-b.quit:
		}
	}()

	return sub.ch, nil
}

func (b *InMemoryBroker) unsubscribe(topic string, sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	subs := b.subscribers[topic]
	for i, s := range subs {
		if s == sub {
			b.subscribers[topic] = append(subs[:i:i], subs[i+1:]...)
			close(sub.ch)
			return
		}
	}
}

// Close closes every subscriber channel. Publishing and subscribing fail afterwards.
func (b *InMemoryBroker) Close() error {
	b.quitOnce.Do(func() { close(b.quit) })

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for topic, subs := range b.subscribers {
		for _, sub := range subs {
			close(sub.ch)
		}
		delete(b.subscribers, topic)
	}
	return nil
}
