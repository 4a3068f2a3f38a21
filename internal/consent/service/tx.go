package service

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dErrors "xs2acms/pkg/domain-errors"
	platformsync "xs2acms/pkg/platform/sync"
)

// Shard contention metrics for monitoring lock behavior
var (
	shardLockWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xs2acms_consent_shard_lock_wait_seconds",
		Help:    "Time spent waiting to acquire shard lock",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
	shardLockAcquisitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xs2acms_consent_shard_lock_acquisitions_total",
		Help: "Total number of shard lock acquisitions",
	})
)

// Stores groups the stores a consent unit of work reads and writes.
type Stores struct {
	Consents       Store
	Authorisations AuthorisationStore
}

// ConsentStoreTx provides a transactional boundary for consent mutations.
// Implementations may wrap a database transaction or, in-memory, a sharded lock.
type ConsentStoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

// defaultConsentTxTimeout is the maximum duration for a consent transaction.
const defaultConsentTxTimeout = 5 * time.Second

type shardedConsentTx struct {
	mu      *platformsync.ShardedMutex
	stores  Stores
	timeout time.Duration
}

// NewInMemoryTx serializes units of work per consent over non-transactional stores.
// Writes are not rolled back on failure; services save last so a failed
// unit of work leaves nothing behind.
func NewInMemoryTx(stores Stores) ConsentStoreTx {
	return &shardedConsentTx{mu: platformsync.NewShardedMutex(), stores: stores}
}

func (t *shardedConsentTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultConsentTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	key := txKey(ctx)

	lockStart := time.Now()
	t.mu.Lock(key)
	shardLockWaitDuration.Observe(time.Since(lockStart).Seconds())
	shardLockAcquisitions.Inc()
	defer t.mu.Unlock(key)

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, t.stores)
}

type txKeyCtx struct{}

// withTxKey names the entity a unit of work is about, selecting its lock shard.
func withTxKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, txKeyCtx{}, key)
}

func txKey(ctx context.Context) string {
	if key, ok := ctx.Value(txKeyCtx{}).(string); ok {
		return key
	}
	return ""
}
