package services

import (
	"context"
	"fmt"

	"github.com/nexconsult/mtr-api/internal/config"
	"github.com/nexconsult/mtr-api/internal/upstream"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Container holds all service dependencies
type Container struct {
	config       *config.Config
	logger       *logrus.Logger
	redisClient  *redis.Client
	Transport    *upstream.Transport
	Registry     *upstream.Registry
	MTRService   MTRServiceInterface
	StatsService StatsServiceInterface
	LoginService LoginServiceInterface
}

// NewContainer creates a new service container
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	container := &Container{
		config: cfg,
		logger: logger,
	}

	// Initialize Redis client
	if err := container.initRedis(); err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	// Initialize services
	if err := container.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return container, nil
}

// initRedis initializes the Redis client when enabled. An unreachable Redis
// is not fatal: stats fall back to memory.
func (c *Container) initRedis() error {
	if !c.config.Redis.Enabled {
		c.logger.Info("Redis disabled, stats kept in memory")
		return nil
	}

	c.redisClient = redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", c.config.Redis.Host, c.config.Redis.Port),
		Password:     c.config.Redis.Password,
		DB:           c.config.Redis.DB,
		PoolSize:     c.config.Redis.PoolSize,
		DialTimeout:  c.config.Redis.DialTimeout,
		ReadTimeout:  c.config.Redis.ReadTimeout,
		WriteTimeout: c.config.Redis.WriteTimeout,
	})

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), c.config.Redis.DialTimeout)
	defer cancel()
	if err := c.redisClient.Ping(ctx).Err(); err != nil {
		c.logger.WithError(err).Warn("Redis connection failed, running with in-memory stats")
		_ = c.redisClient.Close()
		c.redisClient = nil
	} else {
		c.logger.Info("Redis connection established")
	}

	return nil
}

// initServices initializes all services
func (c *Container) initServices() error {
	c.Transport = upstream.NewTransport(c.config.Upstream, c.logger)
	c.Registry = upstream.NewRegistry(c.config, c.Transport, c.logger)
	if len(c.Registry.Names()) == 0 {
		return fmt.Errorf("no agency adapters registered")
	}

	c.StatsService = NewStatsService(c.redisClient, c.config.Redis.KeyPrefix, c.logger)
	c.MTRService = NewMTRService(c.Registry, c.StatsService, c.logger)
	c.LoginService = NewLoginServiceChecker(c.config.Automation.LoginServiceURL, c.Transport)

	c.logger.WithField("agencies", c.Registry.Names()).Info("Agency adapters registered")
	return nil
}

// Close closes all service connections
func (c *Container) Close() error {
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}
	return nil
}

// Health checks the health of all services
func (c *Container) Health(ctx context.Context) map[string]interface{} {
	health := make(map[string]interface{})

	if c.StatsService != nil {
		health["stats"] = c.StatsService.Health()
	}
	if c.LoginService != nil {
		health["login_service"] = c.LoginService.Health(ctx)
	}
	if c.Registry != nil {
		health["agencies"] = c.Registry.Names()
	}

	return health
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logrus.Logger {
	return c.logger
}
