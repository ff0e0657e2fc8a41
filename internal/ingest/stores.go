package ingest

import (
	"context"

	"github.com/biograph-io/nodenorm/internal/infrastructure/database/redis"
)

// multiStores adapts the MultiStore to the Stores surface.
type multiStores struct {
	ms *redis.MultiStore
}

// NewStores wraps the MultiStore for ingestion.
func NewStores(ms *redis.MultiStore) Stores {
	return multiStores{ms: ms}
}

func (s multiStores) Writer(store string) (Writer, error) {
	return s.ms.Writer(store)
}

func (s multiStores) Get(ctx context.Context, store, key string) (*string, error) {
	return s.ms.Get(ctx, store, key)
}

func (s multiStores) LRange(ctx context.Context, store, key string, start, stop int64) ([]string, error) {
	return s.ms.LRange(ctx, store, key, start, stop)
}
