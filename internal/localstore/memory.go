package localstore

import (
	"errors"
	"sort"
	"sync"
)

// ErrUnavailable simulates a backend that refuses every operation.
var ErrUnavailable = errors.New("storage unavailable")

// MemoryKV is an in-process backend used by tests and the --store=:memory: flag.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string]string

	// FailReads and FailWrites make the backend return ErrUnavailable.
	FailReads  bool
	FailWrites bool
	// PanicReads makes Get panic, imitating a misbehaving driver.
	PanicReads bool
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Init() error  { return nil }
func (m *MemoryKV) Load() error  { return nil }
func (m *MemoryKV) Close() error { return nil }

func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PanicReads {
		panic("memory kv: read panic")
	}
	if m.FailReads {
		return "", false, ErrUnavailable
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return ErrUnavailable
	}
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return ErrUnavailable
	}
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Keys() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryKV) Location() string {
	return ":memory:"
}
