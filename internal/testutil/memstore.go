package testutil

import (
	"context"
	"sync"

	"github.com/biograph-io/nodenorm/pkg/errors"
)

// MemStore is an in-memory stand-in for the redis-backed MultiStore. It
// implements the read surface the normalization engine depends on, plus
// setters for seeding fixtures.
type MemStore struct {
	mu    sync.RWMutex
	data  map[string]map[string]string
	lists map[string]map[string][]string

	// Fail, when set, makes every read return a StoreUnavailable error.
	Fail bool
}

func NewMemStore() *MemStore {
	return &MemStore{
		data:  map[string]map[string]string{},
		lists: map[string]map[string][]string{},
	}
}

// Set seeds one key in the named store.
func (m *MemStore) Set(store, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[store] == nil {
		m.data[store] = map[string]string{}
	}
	m.data[store][key] = value
}

// SetList seeds one list key in the named store.
func (m *MemStore) SetList(store, key string, values ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lists[store] == nil {
		m.lists[store] = map[string][]string{}
	}
	m.lists[store][key] = values
}

func (m *MemStore) failErr() error {
	return errors.New(errors.ErrCodeStoreUnavailable, "store unavailable")
}

func (m *MemStore) MGet(ctx context.Context, store string, keys []string) ([]*string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail {
		return nil, m.failErr()
	}
	out := make([]*string, len(keys))
	for i, k := range keys {
		if v, ok := m.data[store][k]; ok {
			val := v
			out[i] = &val
		}
	}
	return out, nil
}

func (m *MemStore) Get(ctx context.Context, store, key string) (*string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail {
		return nil, m.failErr()
	}
	if v, ok := m.data[store][key]; ok {
		val := v
		return &val, nil
	}
	return nil, nil
}

func (m *MemStore) LRange(ctx context.Context, store, key string, start, stop int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail {
		return nil, m.failErr()
	}
	vals := m.lists[store][key]
	if stop == -1 {
		return append([]string(nil), vals...), nil
	}
	if start < 0 || start >= int64(len(vals)) {
		return nil, nil
	}
	end := stop + 1
	if end > int64(len(vals)) {
		end = int64(len(vals))
	}
	return append([]string(nil), vals[start:end]...), nil
}

func (m *MemStore) DBSize(ctx context.Context, store string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail {
		return 0, m.failErr()
	}
	return int64(len(m.data[store]) + len(m.lists[store])), nil
}
