package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps the persisted document in memory. Errors can be
// injected to exercise failure handling.
type MemoryBackend struct {
	mu       sync.Mutex
	data     []byte
	loadErr  error
	writeErr error
	writes   int
}

// NewMemoryBackend returns a backend preloaded with data, which may be nil.
func NewMemoryBackend(data []byte) *MemoryBackend {
	return &MemoryBackend{data: append([]byte(nil), data...)}
}

func (m *MemoryBackend) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryBackend) Write(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.data = append([]byte(nil), data...)
	m.writes++
	return nil
}

// FailLoad makes subsequent loads return err. Pass nil to recover.
func (m *MemoryBackend) FailLoad(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// FailWrite makes subsequent writes return err. Pass nil to recover.
func (m *MemoryBackend) FailWrite(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Data returns the last successfully written document.
func (m *MemoryBackend) Data() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// Writes counts successful writes.
func (m *MemoryBackend) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
