package alert

import (
	"golang.org/x/net/context"
	"sync"
	"time"
)

// MemoryCooldown keeps per-key expiry times in process memory.
type MemoryCooldown struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewMemoryCooldown(now func() time.Time) *MemoryCooldown {
	if now == nil {
		now = time.Now
	}
	return &MemoryCooldown{
		until: make(map[string]time.Time),
		now:   now,
	}
}

func (m *MemoryCooldown) Acquire(_ context.Context, key string, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if until, ok := m.until[key]; ok && now.Before(until) {
		return false, nil
	}
	m.until[key] = now.Add(window)
	return true, nil
}

func (m *MemoryCooldown) Release(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.until, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCooldown) Remaining(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.until[key]
	if !ok {
		return 0, nil
	}
	if left := until.Sub(m.now()); left > 0 {
		return left, nil
	}
	delete(m.until, key)
	return 0, nil
}
