package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"solace/internal/logging"
	"solace/internal/session"
)

const sessionKeyPrefix = "solace:session:"

// Sessions are transient conversational state; expire them after a day
// of inactivity.
const sessionTTL = 24 * time.Hour

// RedisSessionStore keeps session contexts in Redis as JSON values. It
// implements session.Store.
type RedisSessionStore struct {
	client *redis.Client
}

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisSessionStore connects to Redis and verifies the connection.
func NewRedisSessionStore(ctx context.Context, cfg RedisConfig) (*RedisSessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}
	logging.Store("session store connected to redis at %s", cfg.Addr)
	return &RedisSessionStore{client: client}, nil
}

// Close releases the client connection pool.
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (session.Context, error) {
	payload, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return session.Context{}, session.ErrNoActiveSession
	}
	if err != nil {
		return session.Context{}, fmt.Errorf("get session %s: %w", id, err)
	}

	var sess session.Context
	if err := json.Unmarshal(payload, &sess); err != nil {
		return session.Context{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return sess, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, sess session.Context) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+sess.ID, payload, sessionTTL).Err(); err != nil {
		return fmt.Errorf("put session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
