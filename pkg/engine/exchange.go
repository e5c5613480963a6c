package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Exchange moves encoded partials from renderers to the reducer of a run.
// Publish may be called concurrently; Collect is called by a single
// reducer and blocks until a frame arrives or ctx is done.
type Exchange interface {
	Publish(ctx context.Context, runID string, frame []byte) error
	Collect(ctx context.Context, runID string) ([]byte, error)
	// Discard drops anything left over for runID.
	Discard(ctx context.Context, runID string) error
}

// DefaultMemoryBuffer is the per-run frame buffer of a MemoryExchange.
const DefaultMemoryBuffer = 64

// MemoryExchange is an in-process Exchange backed by one buffered channel
// per run.
type MemoryExchange struct {
	mu     sync.Mutex
	buffer int
	runs   map[string]chan []byte
}

// NewMemoryExchange returns an Exchange that buffers up to buffer frames per
// run before Publish blocks (DefaultMemoryBuffer when buffer < 1).
func NewMemoryExchange(buffer int) *MemoryExchange {
	if buffer < 1 {
		buffer = DefaultMemoryBuffer
	}
	return &MemoryExchange{buffer: buffer, runs: make(map[string]chan []byte)}
}

func (m *MemoryExchange) queue(runID string) chan []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.runs[runID]
	if !ok {
		q = make(chan []byte, m.buffer)
		m.runs[runID] = q
	}
	return q
}

// Publish implements Exchange.
func (m *MemoryExchange) Publish(ctx context.Context, runID string, frame []byte) error {
	select {
	case m.queue(runID) <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Collect implements Exchange.
func (m *MemoryExchange) Collect(ctx context.Context, runID string) ([]byte, error) {
	select {
	case f := <-m.queue(runID):
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Discard implements Exchange.
func (m *MemoryExchange) Discard(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, runID)
	return nil
}

// Redis exchange defaults.
const (
	DefaultRedisPrefix = "starkviz:partials:"
	// DefaultRedisTTL bounds how long undelivered frames survive a crashed reducer.
	DefaultRedisTTL = time.Hour
	// redisPoll is the BLPOP timeout between context checks.
	redisPoll = time.Second
)

// RedisExchange moves frames through one Redis list per run: renderers
// RPUSH, the reducer BLPOPs.
type RedisExchange struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisExchange uses client with keys under prefix (DefaultRedisPrefix
// when empty).
func NewRedisExchange(client *redis.Client, prefix string) *RedisExchange {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisExchange{client: client, prefix: prefix, ttl: DefaultRedisTTL}
}

func (r *RedisExchange) key(runID string) string { return r.prefix + runID }

// Publish implements Exchange.
func (r *RedisExchange) Publish(ctx context.Context, runID string, frame []byte) error {
	key := r.key(runID)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, frame)
	pipe.Expire(ctx, key, r.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Collect implements Exchange. It polls with BLPOP so that cancellation is
// noticed within a second.
func (r *RedisExchange) Collect(ctx context.Context, runID string) ([]byte, error) {
	key := r.key(runID)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := r.client.BLPop(ctx, redisPoll, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		// res is [key, value]
		return []byte(res[1]), nil
	}
}

// Discard implements Exchange.
func (r *RedisExchange) Discard(ctx context.Context, runID string) error {
	return r.client.Del(ctx, r.key(runID)).Err()
}

var (
	_ Exchange = (*MemoryExchange)(nil)
	_ Exchange = (*RedisExchange)(nil)
)
