package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/liberdade/config"
	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/utils"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("error not found in cache")

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func holidaysKey(jurisdiction string, year int) string {
	return fmt.Sprintf("holidays:%s:%d", jurisdiction, year)
}

func (r *RedisCache) SetHolidays(ctx context.Context, jurisdiction string, year int, holidays []model.Holiday) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RedisCache.SetHolidays"
	key := holidaysKey(jurisdiction, year)

	slog.Debug("SetHolidays start", slog.String("rqID", rqID), slog.String("op", op), slog.String("key", key))

	holidaysJson, err := json.Marshal(holidays)
	if err != nil {
		slog.Error("can't marshall holidays", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	err = r.redis.Set(ctx, key, holidaysJson, r.cfg.Cache.HolidaysExpiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetHolidays completed", slog.String("rqID", rqID), slog.String("op", op))

	return nil
}

func (r *RedisCache) GetHolidays(ctx context.Context, jurisdiction string, year int) ([]model.Holiday, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RedisCache.GetHolidays"
	key := holidaysKey(jurisdiction, year)

	slog.Debug("GetHolidays start", slog.String("rqID", rqID), slog.String("op", op), slog.String("key", key))

	res, err := r.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	var holidays []model.Holiday
	err = json.Unmarshal([]byte(res), &holidays)
	if err != nil {
		slog.Error("can't unmarshall holidays", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	slog.Debug("GetHolidays completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(holidays)))

	return holidays, nil
}
