package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"ecolearn-engine/config"

	"github.com/redis/go-redis/v9"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// GetRedis returns a singleton Redis client, or nil when REDIS_HOST is
// unset (throttling hooks then fail open).
func GetRedis() *redis.Client {
	redisOnce.Do(func() {
		cfg := config.Env
		if cfg.RedisHost == "" {
			return
		}
		redisClient = redis.NewClient(&redis.Options{
			Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  3 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = redisClient.Ping(ctx).Err()
	})
	return redisClient
}

// SelfReportAllowed enforces the per-user per-challenge daily cap on
// self-reported submissions. This is the abuse-mitigation hook for
// self-certified challenges; without Redis it admits everything.
func SelfReportAllowed(userID, challengeID string, limit int) bool {
	if limit <= 0 {
		return true
	}
	cli := GetRedis()
	if cli == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	key := "selfreport:" + userID + ":" + challengeID + ":" + time.Now().UTC().Format("20060102")
	n, err := cli.Incr(ctx, key).Result()
	if err != nil {
		return true // fail-open
	}
	if n == 1 {
		_ = cli.Expire(ctx, key, 24*time.Hour).Err()
	}
	return n <= int64(limit)
}
