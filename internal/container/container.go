package container

import (
	"promovote/internal/config"
	"promovote/internal/service"
	"promovote/pkg/logger"
	"promovote/pkg/redis"
)

// Container holds the process-wide application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	RedisClient *redis.Client
	Notifier    service.Notifier
}

// New creates a new dependency injection container. Redis is optional: when
// it is not configured the engine runs without caching and with notifications
// disabled.
func New(cfg *config.Config, log *logger.Logger) (*Container, error) {
	var redisClient *redis.Client
	var notifier service.Notifier = service.NoopNotifier{}

	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Redis client, proceeding without caching and notifications")
		} else {
			redisClient = client
			notifier = service.NewRedisNotifier(client, cfg.NotifyChannel, log.Logger)
			log.Info("Redis client initialized successfully")
		}
	} else {
		log.Info("Redis URL not configured, proceeding without caching and notifications")
	}

	return &Container{
		Config:      cfg,
		Logger:      log,
		RedisClient: redisClient,
		Notifier:    notifier,
	}, nil
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetRedisClient returns the Redis client (may be nil if not configured)
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}

// GetNotifier returns the notification channel
func (c *Container) GetNotifier() service.Notifier {
	return c.Notifier
}

// GetCacheService returns a cache service instance; with no Redis it degrades
// to pass-through reads.
func (c *Container) GetCacheService() *service.CacheService {
	return service.NewCacheService(c.RedisClient, c.Logger.Logger)
}
