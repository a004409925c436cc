package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache defines a generic keyed cache.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically cleans the registered caches.
type Manager struct {
	caches []Cleaner
	done   chan struct{}
}

func NewManager(caches ...Cleaner) *Manager {
	return &Manager{
		caches: caches,
		done:   make(chan struct{}),
	}
}

// Run cleans every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := m.CleanAll(); removed > 0 {
				slog.DebugContext(ctx, "Expired cache entries removed", "count", removed)
			}
		case <-ctx.Done():
			return
		}
	}
}

// CleanAll cleans every registered cache once.
func (m *Manager) CleanAll() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Done is closed once Run returns.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}
