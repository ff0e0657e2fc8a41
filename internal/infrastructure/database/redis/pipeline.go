package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
)

// Pipeline accumulates write operations against one store and executes them
// in blocks. Ingestion-only; the serve path never writes.
type Pipeline struct {
	store     *storeClient
	pipe      redis.Pipeliner
	pending   int
	blockSize int
	logger    logging.Logger
	written   int64
}

// Writer returns a block-flushing pipeline for the named store.
func (m *MultiStore) Writer(store string) (*Pipeline, error) {
	sc, err := m.client(store)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		store:     sc,
		pipe:      sc.rdb.Pipeline(),
		blockSize: m.blockSize,
		logger:    m.logger.Named("pipeline").With(logging.String("store", store)),
	}, nil
}

func (p *Pipeline) maybeFlush(ctx context.Context) error {
	p.pending++
	if p.pending < p.blockSize {
		return nil
	}
	return p.Flush(ctx)
}

// Set queues a SET, flushing when the block is full.
func (p *Pipeline) Set(ctx context.Context, key, value string) error {
	p.pipe.Set(ctx, key, value, 0)
	return p.maybeFlush(ctx)
}

// LPush queues an LPUSH, flushing when the block is full.
func (p *Pipeline) LPush(ctx context.Context, key string, values ...string) error {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	p.pipe.LPush(ctx, key, args...)
	return p.maybeFlush(ctx)
}

// Flush executes all queued operations.
func (p *Pipeline) Flush(ctx context.Context) error {
	if p.pending == 0 {
		return nil
	}
	if _, err := p.pipe.Exec(ctx); err != nil {
		return wrapErr(p.store.name, err)
	}
	p.written += int64(p.pending)
	p.pending = 0
	p.pipe = p.store.rdb.Pipeline()
	return nil
}

// Written reports the number of operations executed so far.
func (p *Pipeline) Written() int64 { return p.written }
