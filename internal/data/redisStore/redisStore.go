package redisStore

import (
	"context"
	"fmt"

	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

type Store struct {
	client *redis.Client
	Type   int
	logger *logger_i.Logger
}

// NewStore connects to one logical redis DB and pings it.
func NewStore(ctx context.Context, addr string, password string, dbType int) (*Store, error) {
	if addr == "" {
		addr = config.RedisAddr
	}
	newClient := redis.NewClient(&redis.Options{
		Addr:                  addr,
		Password:              password,
		DB:                    dbType,
		ContextTimeoutEnabled: true,
		ReadTimeout:           config.RedisCallTimeout,
		WriteTimeout:          config.RedisCallTimeout,
	})

	log := logger_i.NewLogger("redis_store").With("db", dbType)

	pingCtx, cancel := context.WithTimeout(ctx, config.RedisPingTimeout)
	defer cancel()
	if err := newClient.Ping(pingCtx).Err(); err != nil {
		_ = newClient.Close()
		return nil, fmt.Errorf("redis %s db %d is offline: %w", addr, dbType, err)
	}

	log.Info("Redis store connected", "addr", addr)
	return &Store{client: newClient, Type: dbType, logger: log}, nil
}

func (s *Store) Close() error {
	s.logger.Info("Closing redis store")
	return s.client.Close()
}

func NewTestStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		logger: logger_i.NewLogger("redis_store_test"),
	}
}
