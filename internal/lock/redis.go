package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// KeyPrefix namespaces lock keys in Redis.
const KeyPrefix = "coupon-admin:lock:"

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-acquired by another runner is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// redisLocker holds locks as Redis keys set with SET NX PX.
type redisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisLocker returns a Locker shared by every process using client.
// Locks expire after ttl if never released.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, logger zerolog.Logger) Locker {
	return &redisLocker{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "redis-locker").Logger(),
	}
}

func (l *redisLocker) TryLock(ctx context.Context, key string) (Unlock, error) {
	redisKey := KeyPrefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		l.logger.Error().Err(err).Str("key", redisKey).Msg("failed to acquire lock")
		return nil, fmt.Errorf("failed to acquire lock %s: %w", redisKey, err)
	}
	if !ok {
		l.logger.Debug().Str("key", redisKey).Msg("lock already held")
		return nil, ErrHeld
	}

	l.logger.Debug().
		Str("key", redisKey).
		Dur("ttl", l.ttl).
		Msg("lock acquired")

	return func(ctx context.Context) error {
		released, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int()
		if err != nil {
			l.logger.Error().Err(err).Str("key", redisKey).Msg("failed to release lock")
			return fmt.Errorf("failed to release lock %s: %w", redisKey, err)
		}
		if released == 0 {
			l.logger.Warn().Str("key", redisKey).Msg("lock expired before release")
		}
		return nil
	}, nil
}
