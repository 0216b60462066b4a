package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/yourusername/lms-api/internal/config"
)

const redisPingTimeout = 5 * time.Second

// redisOptions translates config into client options and rejects invalid mode settings.
func redisOptions(cfg config.RedisConfig) (*redis.UniversalOptions, string, error) {
	// Addr is the single-node shorthand
	addrs := cfg.Addrs
	if len(addrs) == 0 && cfg.Addr != "" {
		addrs = []string{cfg.Addr}
	}
	if len(addrs) == 0 {
		return nil, "", fmt.Errorf("redis configuration error: addrs or addr must be provided")
	}

	mode := cfg.Mode
	if mode == "" {
		mode = "single"
	}

	opts := &redis.UniversalOptions{
		Addrs:           addrs,
		Password:        cfg.Password,
		DB:              cfg.DB,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoff) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoff) * time.Millisecond,
	}

	// Mode specific checks
	switch mode {
	case "single":
		opts.Addrs = addrs[:1]
	case "sentinel":
		if cfg.MasterName == "" {
			return nil, "", fmt.Errorf("redis sentinel mode requires master_name")
		}
		opts.MasterName = cfg.MasterName
	case "cluster":
		if cfg.DB != 0 {
			return nil, "", fmt.Errorf("redis cluster mode supports only db 0")
		}
	default:
		return nil, "", fmt.Errorf("unsupported redis mode: %s", mode)
	}
	return opts, mode, nil
}

// NewUniversalRedisClient connects to Redis in single, sentinel or cluster mode
// and verifies the connection with a ping.
func NewUniversalRedisClient(cfg config.RedisConfig) (redis.UniversalClient, error) {
	opts, mode, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewUniversalClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis (mode: %s, addrs: %v): %w", mode, opts.Addrs, err)
	}

	log.Printf("[Redis] connected in %s mode to %v", mode, opts.Addrs)
	return client, nil
}
