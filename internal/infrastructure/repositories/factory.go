package repositories

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"meetrix/internal/core/ports"
	"meetrix/internal/infrastructure/repositories/memory"
	redisrepo "meetrix/internal/infrastructure/repositories/redis"
	"meetrix/pkg/config"
)

// Factory creates stores backed by Redis when it is configured and
// reachable, falling back to memory otherwise.
type Factory struct {
	useRedis    bool
	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

func NewFactory(cfg *config.Config, logger *zap.SugaredLogger) (*Factory, error) {
	factory := &Factory{
		useRedis: cfg.Redis.Enabled,
		logger:   logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory stores",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			logger.Info("using Redis stores")
		}
	}

	if !factory.useRedis {
		logger.Info("using memory stores")
	}

	return factory, nil
}

func (f *Factory) CreateViolationStore() ports.ViolationStore {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisViolationStore(f.redisClient)
	}
	return memory.NewMemoryViolationStore()
}

// RedisClient returns the shared client, or nil when running on memory stores.
func (f *Factory) RedisClient() *redis.Client {
	return f.redisClient
}

func (f *Factory) Close() error {
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	return nil
}

// HealthCheck pings Redis when it backs the stores.
func (f *Factory) HealthCheck(ctx context.Context) error {
	if f.useRedis && f.redisClient != nil {
		return f.redisClient.Ping(ctx).Err()
	}
	return nil
}
