package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/radio-ops-platform/internal/config"
	"github.com/wolfman30/radio-ops-platform/internal/conversation"
	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

const (
	redisLockTTL = 2 * time.Minute
	// Room for store writes and stage advance on top of generation and delivery.
	turnOverhead = 30 * time.Second
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildLocker returns the per-(lead, channel) turn lock. "redis" serializes turns across
// replicas; anything else locks in process. The returned close func releases the client.
func BuildLocker(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (conversation.Locker, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.ConversationLocker != "redis" {
		logger.Info("using in-process conversation locks")
		return conversation.NewKeyedMutex(), func() {}, nil
	}
	client := BuildRedisClient(ctx, cfg, logger, true)
	if client == nil {
		return nil, nil, fmt.Errorf("bootstrap: redis locker requested but redis at %q is unavailable", cfg.RedisAddr)
	}
	ttl := lockTTL(cfg)
	if ttl > redisLockTTL {
		logger.Warn("raising redis lock ttl to cover the turn budget",
			"ttl", ttl, "generation_timeout", cfg.GenerationTimeout, "delivery_timeout", cfg.DeliveryTimeout)
	}
	logger.Info("using redis conversation locks", "redis", cfg.RedisAddr, "ttl", ttl)
	return conversation.NewRedisLocker(client, ttl, logger), func() { _ = client.Close() }, nil
}

// lockTTL keeps a lock alive for at least one full turn so a slow turn never loses it midway.
func lockTTL(cfg *appconfig.Config) time.Duration {
	budget := cfg.GenerationTimeout + cfg.DeliveryTimeout + turnOverhead
	if budget > redisLockTTL {
		return budget
	}
	return redisLockTTL
}
