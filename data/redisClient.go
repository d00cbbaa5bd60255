package data

import (
	"context"
	"log/slog"
	"net"
	"strconv"

	"github.com/KotFed0t/liberdade/config"
	"github.com/redis/go-redis/v9"
)

func NewRedisClient(cfg *config.Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Redis.Host, strconv.Itoa(cfg.Redis.Port)),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("Redis ping failed", slog.String("err", err.Error()))
		panic(err)
	}
	slog.Info("Redis connected", slog.Int("db", cfg.Redis.DB))

	return rdb
}
