// Package pending persists the pending-action flag: a single sentinel
// that survives a page navigation so the next page knows to resume a
// multi-page operation. A flag, once set, must be cleared either when
// consumed or when it goes stale.
package pending

import (
	"context"
	"sync"
	"time"
)

// Sentinel is the only stored value meaning "set". Anything else, or
// absence, means no pending action.
const Sentinel = "true"

// Store holds one pending-action flag.
type Store interface {
	Set(ctx context.Context) error
	IsSet(ctx context.Context) (bool, error)
	Clear(ctx context.Context) error
}

// Memory is an in-process Store. A zero TTL never expires.
type Memory struct {
	TTL time.Duration
	Now func() time.Time

	mu    sync.Mutex
	value string
	setAt time.Time
}

func (m *Memory) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Memory) Set(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = Sentinel
	m.setAt = m.now()
	return nil
}

func (m *Memory) IsSet(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.value != Sentinel {
		return false, nil
	}
	if m.TTL > 0 && m.now().Sub(m.setAt) > m.TTL {
		m.value = ""
		return false, nil
	}
	return true, nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = ""
	return nil
}
