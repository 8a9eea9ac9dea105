package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// clientName tags connections in CLIENT LIST so the auth service's rate-limit
// traffic is attributable on a shared Redis.
const clientName = "registry-auth"

// Connect initializes the Redis client backing the rate-limit store. Both
// redis:// URLs and bare host:port values are accepted so local and container
// config paths stay simple.
func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		opt.ClientName = clientName
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL, ClientName: clientName}), nil
}
