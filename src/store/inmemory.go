package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"grepconsole/src/contracts"
)

// InMemoryStore is a thread-safe in-memory implementation of Store.
// Used when no DATABASE_URL is configured and in tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	pins    map[string]map[string]contracts.PinnedGrep // run config -> console UUID -> pin
	configs map[string]contracts.RunConfiguration
	now     func() time.Time
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		pins:    make(map[string]map[string]contracts.PinnedGrep),
		configs: make(map[string]contracts.RunConfiguration),
		now:     time.Now,
	}
}

func (s *InMemoryStore) SavePin(ctx context.Context, pin contracts.PinnedGrep) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byUUID, ok := s.pins[pin.RunConfiguration]
	if !ok {
		byUUID = make(map[string]contracts.PinnedGrep)
		s.pins[pin.RunConfiguration] = byUUID
	}

	now := s.now()
	if existing, ok := byUUID[pin.ConsoleUUID]; ok {
		pin.CreatedAt = existing.CreatedAt
	} else if pin.CreatedAt.IsZero() {
		pin.CreatedAt = now
	}
	pin.UpdatedAt = now
	byUUID[pin.ConsoleUUID] = pin
	return nil
}

func (s *InMemoryStore) UpdatePinModel(ctx context.Context, runConfig, consoleUUID string, model contracts.GrepModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pin, ok := s.pins[runConfig][consoleUUID]
	if !ok {
		return ErrNotFound{RunConfiguration: runConfig, ConsoleUUID: consoleUUID}
	}
	pin.Model = model
	pin.UpdatedAt = s.now()
	s.pins[runConfig][consoleUUID] = pin
	return nil
}

func (s *InMemoryStore) DeletePin(ctx context.Context, runConfig, consoleUUID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pins[runConfig][consoleUUID]; !ok {
		return ErrNotFound{RunConfiguration: runConfig, ConsoleUUID: consoleUUID}
	}
	delete(s.pins[runConfig], consoleUUID)
	return nil
}

func (s *InMemoryStore) ListPins(ctx context.Context, runConfig string) ([]contracts.PinnedGrep, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pins := make([]contracts.PinnedGrep, 0, len(s.pins[runConfig]))
	for _, pin := range s.pins[runConfig] {
		pins = append(pins, pin)
	}
	sort.Slice(pins, func(i, j int) bool {
		if !pins[i].CreatedAt.Equal(pins[j].CreatedAt) {
			return pins[i].CreatedAt.Before(pins[j].CreatedAt)
		}
		return pins[i].ConsoleUUID < pins[j].ConsoleUUID
	})
	return pins, nil
}

func (s *InMemoryStore) GetRunConfiguration(ctx context.Context, name string) (contracts.RunConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rc, ok := s.configs[name]
	if !ok {
		return contracts.RunConfiguration{}, ErrNotFound{RunConfiguration: name}
	}
	return rc, nil
}

func (s *InMemoryStore) SaveRunConfiguration(ctx context.Context, rc contracts.RunConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[rc.Name] = rc
	return nil
}

// Close is a no-op for in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
