package store

import (
	"context"
	"maps"
	"sync"

	"github.com/JonMunkholm/exchange/internal/exchange"
)

// Memory is an in-process Records store. Data is lost on restart.
type Memory struct {
	mu      sync.RWMutex
	records map[string][]exchange.Record
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string][]exchange.Record)}
}

// Insert appends copies of records to entity.
func (m *Memory) Insert(ctx context.Context, entity string, records []exchange.Record) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	batch := make([]exchange.Record, len(records))
	for i, r := range records {
		batch[i] = maps.Clone(r)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[entity] = append(m.records[entity], batch...)
	return len(batch), nil
}

// List returns copies of the records stored for entity.
func (m *Memory) List(ctx context.Context, entity string) ([]exchange.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]exchange.Record, len(m.records[entity]))
	for i, r := range m.records[entity] {
		out[i] = maps.Clone(r)
	}
	return out, nil
}

// Seed stores records for entity, typically registry samples for a demo.
func (m *Memory) Seed(entity string, records []exchange.Record) {
	_, _ = m.Insert(context.Background(), entity, records)
}
