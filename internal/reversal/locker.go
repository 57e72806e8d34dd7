package reversal

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"paynet-platform/pkg/utils"
)

// Locker short-circuits concurrent reversal attempts on the same transaction
// before any storage work happens. It is advisory only: correctness against
// double-crediting rests on the repository's duplicate-active check and the
// transaction status compare-and-swap, never on the lock.
type Locker interface {
	// TryAcquire returns a release func when the lock was taken, or ok=false
	// when another attempt holds it.
	TryAcquire(ctx context.Context, transactionID string) (release func(), ok bool, err error)
}

type RedisLocker struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: ttl, log: log}
}

func (l *RedisLocker) TryAcquire(ctx context.Context, transactionID string) (func(), bool, error) {
	key := "reversal:lock:" + transactionID
	token := uuid.NewString()

	ok, err := utils.AcquireMutex(ctx, l.rdb, key, token, l.ttl)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		// Release runs on the request's way out; a fresh short deadline keeps
		// it from inheriting an already-expired context.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := utils.ReleaseMutex(rctx, l.rdb, key, token); err != nil {
			l.log.WarnContext(rctx, "reversal lock release failed",
				slog.String("key", key), slog.Any("error", err))
		}
	}
	return release, true, nil
}

// NoopLocker always grants the lock. Used in tests and single-node setups
// without Redis; the storage-level guards still hold.
type NoopLocker struct{}

func (NoopLocker) TryAcquire(ctx context.Context, transactionID string) (func(), bool, error) {
	_ = ctx
	_ = transactionID
	return func() {}, true, nil
}
