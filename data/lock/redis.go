package lock

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/KotFed0t/liberdade/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lock:"

var ErrNotHeld = errors.New("error lock is not held")

// releaseScript deletes the key only while it still carries our token, so an
// expired lock taken over by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	redis *redis.Client
}

func NewRedisLocker(redisClient *redis.Client) *RedisLocker {
	return &RedisLocker{redis: redisClient}
}

// TryLock returns a release func when the lock was taken. acquired=false means
// someone else holds it.
func (l *RedisLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RedisLocker.TryLock"
	key := keyPrefix + name
	token := uuid.NewString()

	acquired, err = l.redis.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		slog.Error("failed on redis.SetNX", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, false, err
	}

	if !acquired {
		slog.Info("lock is busy", slog.String("rqID", rqID), slog.String("op", op), slog.String("key", key))
		return nil, false, nil
	}

	release = func(ctx context.Context) error {
		res, err := releaseScript.Run(ctx, l.redis, []string{key}, token).Int()
		if err != nil {
			slog.Error("failed releasing lock", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}
		if res == 0 {
			return ErrNotHeld
		}
		return nil
	}

	return release, true, nil
}
