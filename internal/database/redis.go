package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClientName identifies API connections in CLIENT LIST.
const RedisClientName = "waqf-api"

// ConnectRedis opens the redis client backing caches, sign-in state and token revocation.
// Unset timeouts get short defaults. The client is closed if the ping fails.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url must not be empty")
	}

	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if options.ClientName == "" {
		options.ClientName = RedisClientName
	}
	if options.DialTimeout == 0 {
		options.DialTimeout = 3 * time.Second
	}
	if options.ReadTimeout == 0 {
		options.ReadTimeout = time.Second
	}
	if options.WriteTimeout == 0 {
		options.WriteTimeout = time.Second
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to connect to redis at %s: %w", options.Addr, err)
	}

	return client, nil
}
