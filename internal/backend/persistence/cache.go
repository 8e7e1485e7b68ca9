package persistence

import (
	"context"
	"sync"

	"github.com/jo-hoe/takziah/internal/backend/database"
)

// GalleryCache keeps the last public listing that was loaded successfully
type GalleryCache interface {
	Load(ctx context.Context) ([]*database.Record, bool, error)
	Save(ctx context.Context, records []*database.Record) error
}

type MemoryCache struct {
	mu      sync.RWMutex
	records []*database.Record
	ok      bool
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (m *MemoryCache) Load(ctx context.Context) ([]*database.Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.ok {
		return nil, false, nil
	}
	return append([]*database.Record(nil), m.records...), true, nil
}

func (m *MemoryCache) Save(ctx context.Context, records []*database.Record) error {
	m.mu.Lock()
	m.records = append([]*database.Record(nil), records...)
	m.ok = true
	m.mu.Unlock()
	return nil
}
