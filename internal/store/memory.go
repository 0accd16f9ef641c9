package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/DeliverySync/internal/core"
)

// Memory keeps orders in a map. Records are copied in and out so callers
// never share state with the store.
type Memory struct {
	mu     sync.RWMutex
	byCode map[string]core.OrderRecord
	byID   map[string]string // id -> order code
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		byCode: make(map[string]core.OrderRecord),
		byID:   make(map[string]string),
	}
}

func (m *Memory) FindByCode(ctx context.Context, code string) (*core.OrderRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.byCode[code]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &rec, nil
}

func (m *Memory) FindByID(ctx context.Context, id string) (*core.OrderRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	code, ok := m.byID[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	rec := m.byCode[code]
	return &rec, nil
}

// InsertMany stores all records or none.
func (m *Memory) InsertMany(ctx context.Context, records []core.OrderRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, dup := m.byCode[r.OrderCode]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateCode, r.OrderCode)
		}
		if _, dup := seen[r.OrderCode]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateCode, r.OrderCode)
		}
		seen[r.OrderCode] = struct{}{}
	}

	for _, r := range records {
		m.byCode[r.OrderCode] = r
		if r.ID != "" {
			m.byID[r.ID] = r.OrderCode
		}
	}
	return nil
}

func (m *Memory) UpdateStatus(ctx context.Context, code string, status core.OrderStatus, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byCode[code]
	if !ok {
		return core.ErrNotFound
	}
	rec.Status = status
	rec.LastUpdatedAt = at
	m.byCode[code] = rec
	return nil
}

// Len returns the number of stored orders.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byCode)
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

func (m *Memory) Close() error { return nil }
