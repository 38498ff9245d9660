package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/inkpress/inkpress/config"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// GetRedis returns a singleton Redis client based on loaded config, or nil when
// no Redis host is configured. Callers fall back to in-process state on nil.
func GetRedis() *redis.Client {
	redisOnce.Do(func() {
		cfg := config.Get()
		if cfg.RedisHost == "" {
			return
		}
		port := cfg.RedisPort
		if port == 0 {
			port = 6379
		}
		redisClient = redis.NewClient(&redis.Options{
			Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(port)),
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  3 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			L().Sugar().Warnf("redis ping failed addr=%s err=%v", redisClient.Options().Addr, err)
		}
	})
	return redisClient
}

// CloseRedis closes the shared client on shutdown.
func CloseRedis() {
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
