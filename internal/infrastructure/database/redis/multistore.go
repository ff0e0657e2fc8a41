package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
	"github.com/biograph-io/nodenorm/pkg/errors"
)

// Store is the read surface the normalization engine depends on. Absent keys
// are nil entries; every transport failure is an ErrCodeStoreUnavailable.
type Store interface {
	// MGet returns one value per key, positionally aligned. Batches larger
	// than the configured ceiling are split into chunks issued sequentially
	// and the results concatenated in order.
	MGet(ctx context.Context, store string, keys []string) ([]*string, error)

	// Get returns a single value, or nil when the key is absent.
	Get(ctx context.Context, store, key string) (*string, error)

	// LRange returns a stored list's elements.
	LRange(ctx context.Context, store, key string, start, stop int64) ([]string, error)

	// DBSize returns the store's key count.
	DBSize(ctx context.Context, store string) (int64, error)
}

// Observer receives store round-trip timings. Satisfied by the prometheus
// collector.
type Observer interface {
	ObserveStore(store, op string, err error, elapsed time.Duration)
}

// MultiStore is the redis-backed Store plus the write surface used by
// ingestion. Serving code only ever reads.
type MultiStore struct {
	stores    map[string]*storeClient
	batchSize int
	blockSize int
	opTimeout time.Duration
	logger    logging.Logger
	observer  Observer

	mu     sync.RWMutex
	closed bool
}

var _ Store = (*MultiStore)(nil)

// SetObserver attaches a metrics observer. Must be called before serving.
func (m *MultiStore) SetObserver(o Observer) { m.observer = o }

func (m *MultiStore) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

func (m *MultiStore) client(store string) (*storeClient, error) {
	if m.isClosed() {
		return nil, ErrStoreClosed
	}
	sc, ok := m.stores[store]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeConfiguration, "unknown store %q", store)
	}
	return sc, nil
}

func (m *MultiStore) observe(store, op string, err error, started time.Time) {
	if m.observer != nil {
		m.observer.ObserveStore(store, op, err, time.Since(started))
	}
}

func (m *MultiStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.opTimeout)
}

// MGet implements Store. On clusters the batch fans out as pipelined GETs so
// keys in different slots do not break the request; standalone stores use a
// single MGET per chunk.
func (m *MultiStore) MGet(ctx context.Context, store string, keys []string) ([]*string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	sc, err := m.client(store)
	if err != nil {
		return nil, err
	}

	out := make([]*string, 0, len(keys))
	for start := 0; start < len(keys); start += m.batchSize {
		end := start + m.batchSize
		if end > len(keys) {
			end = len(keys)
		}
		chunk, err := m.mgetChunk(ctx, sc, keys[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

func (m *MultiStore) mgetChunk(ctx context.Context, sc *storeClient, keys []string) ([]*string, error) {
	opCtx, cancel := m.opCtx(ctx)
	defer cancel()
	started := time.Now()

	if sc.cluster {
		pipe := sc.rdb.Pipeline()
		cmds := make([]*redis.StringCmd, len(keys))
		for i, k := range keys {
			cmds[i] = pipe.Get(opCtx, k)
		}
		if _, err := pipe.Exec(opCtx); err != nil && err != redis.Nil {
			m.observe(sc.name, "mget", err, started)
			return nil, wrapErr(sc.name, err)
		}
		out := make([]*string, len(keys))
		for i, cmd := range cmds {
			val, err := cmd.Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				m.observe(sc.name, "mget", err, started)
				return nil, wrapErr(sc.name, err)
			}
			v := val
			out[i] = &v
		}
		m.observe(sc.name, "mget", nil, started)
		return out, nil
	}

	vals, err := sc.rdb.MGet(opCtx, keys...).Result()
	m.observe(sc.name, "mget", err, started)
	if err != nil {
		return nil, wrapErr(sc.name, err)
	}
	out := make([]*string, len(keys))
	for i, v := range vals {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			out[i] = &s
		}
	}
	return out, nil
}

// Get implements Store.
func (m *MultiStore) Get(ctx context.Context, store, key string) (*string, error) {
	sc, err := m.client(store)
	if err != nil {
		return nil, err
	}
	opCtx, cancel := m.opCtx(ctx)
	defer cancel()
	started := time.Now()

	val, err := sc.rdb.Get(opCtx, key).Result()
	if err == redis.Nil {
		m.observe(store, "get", nil, started)
		return nil, nil
	}
	m.observe(store, "get", err, started)
	if err != nil {
		return nil, wrapErr(store, err)
	}
	return &val, nil
}

// LRange implements Store.
func (m *MultiStore) LRange(ctx context.Context, store, key string, start, stop int64) ([]string, error) {
	sc, err := m.client(store)
	if err != nil {
		return nil, err
	}
	opCtx, cancel := m.opCtx(ctx)
	defer cancel()
	started := time.Now()

	vals, err := sc.rdb.LRange(opCtx, key, start, stop).Result()
	m.observe(store, "lrange", err, started)
	if err != nil {
		return nil, wrapErr(store, err)
	}
	return vals, nil
}

// DBSize implements Store.
func (m *MultiStore) DBSize(ctx context.Context, store string) (int64, error) {
	sc, err := m.client(store)
	if err != nil {
		return 0, err
	}
	opCtx, cancel := m.opCtx(ctx)
	defer cancel()

	n, err := sc.rdb.DBSize(opCtx).Result()
	if err != nil {
		return 0, wrapErr(store, err)
	}
	return n, nil
}

// Ping verifies every store connection.
func (m *MultiStore) Ping(ctx context.Context) error {
	if m.isClosed() {
		return ErrStoreClosed
	}
	for name, sc := range m.stores {
		if err := sc.rdb.Ping(ctx).Err(); err != nil {
			return wrapErr(name, err)
		}
	}
	return nil
}

// Close closes every store connection. Idempotent.
func (m *MultiStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	var first error
	for name, sc := range m.stores {
		if err := sc.rdb.Close(); err != nil && first == nil {
			first = wrapErr(name, err)
		}
	}
	return first
}
