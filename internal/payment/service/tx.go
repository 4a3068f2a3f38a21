package service

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dErrors "xs2acms/pkg/domain-errors"
	platformsync "xs2acms/pkg/platform/sync"
)

var (
	shardLockWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xs2acms_payment_shard_lock_wait_seconds",
		Help:    "Time spent waiting to acquire the payment shard lock",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
	shardLockAcquisitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xs2acms_payment_shard_lock_acquisitions_total",
		Help: "Total number of payment shard lock acquisitions",
	})
)

// Stores groups the stores a payment unit of work reads and writes.
type Stores struct {
	Payments       Store
	Authorisations AuthorisationStore
}

// PaymentStoreTx provides a transactional boundary for payment mutations.
type PaymentStoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

const defaultPaymentTxTimeout = 5 * time.Second

type shardedPaymentTx struct {
	mu     *platformsync.ShardedMutex
	stores Stores
}

// NewInMemoryTx serializes units of work per payment over non-transactional stores.
func NewInMemoryTx(stores Stores) PaymentStoreTx {
	return &shardedPaymentTx{mu: platformsync.NewShardedMutex(), stores: stores}
}

func (t *shardedPaymentTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultPaymentTxTimeout)
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

func withTxKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, txKeyCtx{}, key)
}

func txKey(ctx context.Context) string {
	if key, ok := ctx.Value(txKeyCtx{}).(string); ok {
		return key
	}
	return ""
}
