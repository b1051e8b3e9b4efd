package cache

import (
	"context"
	"sync"
	"time"

	"github.com/z00rs/learn2earn-herman-test/internal/models"
)

type memoryEntry struct {
	view       *models.StatusView
	capturedAt time.Time
}

// Memory is the default in-process cache: a mutex-guarded map with TTL
// checked on read. Expired entries are dropped lazily.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ StatusCache = (*Memory)(nil)

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, address string) (*models.StatusView, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[address]
	if !ok {
		lookupsTotal.WithLabelValues("memory", "miss").Inc()
		return nil, false
	}
	if m.now().Sub(entry.capturedAt) >= m.ttl {
		delete(m.entries, address)
		lookupsTotal.WithLabelValues("memory", "expired").Inc()
		return nil, false
	}
	lookupsTotal.WithLabelValues("memory", "hit").Inc()
	return entry.view, true
}

func (m *Memory) Set(_ context.Context, address string, view *models.StatusView) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[address] = memoryEntry{view: view, capturedAt: m.now()}
}

func (m *Memory) Delete(_ context.Context, address string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, address)
}
