package backing

import (
	"context"
	"sync"
)

// Memory keeps parameters in process memory. It is useful for tests and for embedding a Store without a remote
// service.
type Memory struct {
	mu   sync.Mutex
	data map[Name]Entry
}

var _ Versioned = (*Memory)(nil)

// NewMemory builds an empty Memory backing.
func NewMemory() *Memory {
	return &Memory{data: map[Name]Entry{}}
}

// Get returns the value for the given parameter.
func (m *Memory) Get(ctx context.Context, name Name) (string, error) {
	e, err := m.GetVersioned(ctx, name)
	return e.Value, err
}

// Put sets the value for the given parameter.
func (m *Memory) Put(ctx context.Context, name Name, value string, overwrite bool) error {
	if err := ctx.Err(); err != nil {
		return wrap("put", name, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[name]
	if ok && !overwrite {
		return ErrAlreadyExists
	}
	m.data[name] = Entry{Value: value, Version: e.Version + 1}
	return nil
}

// GetVersioned returns the value and version for the given parameter.
func (m *Memory) GetVersioned(ctx context.Context, name Name) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, wrap("get", name, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[name]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// PutIfVersion sets the value for the given parameter if its version still matches.
func (m *Memory) PutIfVersion(ctx context.Context, name Name, value string, version Version) error {
	if err := ctx.Err(); err != nil {
		return wrap("put", name, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[name].Version != version {
		return ErrConflict
	}
	m.data[name] = Entry{Value: value, Version: version + 1}
	return nil
}

// Names lists the parameters currently held.
func (m *Memory) Names() []Name {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]Name, 0, len(m.data))
	for n := range m.data {
		names = append(names, n)
	}
	return names
}
