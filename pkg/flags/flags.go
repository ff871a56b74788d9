package flags

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Provider resolves integer-valued feature flags. Implementations must be
// safe for concurrent use and must fall back to 0 (disabled) when a flag is
// absent or the backing service is unreachable; a missing flag is never an
// error for the consumer loop.
type Provider interface {
	Evaluate(ctx context.Context, name string) int
}

const keyPrefix = "flag:"

// RedisProvider reads flags from Redis on every call. Lookups are
// deliberately uncached so operators can flip a flag and see the consumer
// react on the next message.
type RedisProvider struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisProvider(client *redis.Client, logger *zap.Logger) *RedisProvider {
	return &RedisProvider{client: client, logger: logger}
}

func (p *RedisProvider) Evaluate(ctx context.Context, name string) int {
	val, err := p.client.Get(ctx, keyPrefix+name).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			p.logger.Warn("flag lookup failed, treating as disabled",
				zap.String("flag", name), zap.Error(err))
		}
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		p.logger.Warn("flag value is not an integer, treating as disabled",
			zap.String("flag", name), zap.String("value", val))
		return 0
	}
	return n
}

// StaticProvider serves flags from a fixed map. Used in tests and when no
// flag backend is configured; missing names evaluate to 0.
type StaticProvider map[string]int

func (p StaticProvider) Evaluate(_ context.Context, name string) int {
	return p[name]
}
