package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/amirphl/vetverify/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisAccountLocker serializes work on an account across API instances
type RedisAccountLocker struct {
	rc        *redis.Client
	prefix    string
	ttl       time.Duration
	retryWait time.Duration
}

// NewRedisAccountLocker creates a distributed account locker
func NewRedisAccountLocker(rc *redis.Client, prefix string) *RedisAccountLocker {
	return &RedisAccountLocker{
		rc:        rc,
		prefix:    prefix + "account_lock:",
		ttl:       utils.AccountLockTTL,
		retryWait: 25 * time.Millisecond,
	}
}

// Lock blocks until the account lock is acquired or ctx is done
func (l *RedisAccountLocker) Lock(ctx context.Context, accountID uint) (func(), error) {
	key := l.prefix + strconv.FormatUint(uint64(accountID), 10)
	token := uuid.NewString()

	for {
		ok, err := l.rc.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire account lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryWait):
		}
	}

	return func() {
		// Release even when the caller's context is gone
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseLockScript.Run(releaseCtx, l.rc, []string{key}, token).Err(); err != nil {
			slog.Warn("failed to release account lock", "account_id", accountID, "error", err)
		}
	}, nil
}
