package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/promptveil/veil/internal/config"
	"github.com/promptveil/veil/internal/logger"
)

// RedisStore keeps each session's mapping table in one Redis hash, so Merge is
// a single HSet and multi-turn accumulation comes for free.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *logger.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg config.SessionConfig, log *logger.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	store := &RedisStore{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.TTL,
		logger:    log,
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("Redis session store initialized",
		zap.String("redis_url", maskRedisURL(cfg.RedisURL)),
		zap.Duration("ttl", cfg.TTL),
	)

	return store, nil
}

// Merge writes mappings into the session hash and refreshes its TTL.
func (s *RedisStore) Merge(ctx context.Context, sessionID string, mappings map[string]string) error {
	if len(mappings) == 0 {
		return nil
	}

	key := s.sessionKey(sessionID)
	fields := make(map[string]interface{}, len(mappings))
	for k, v := range mappings {
		fields[k] = v
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session mappings: %w", err)
	}

	s.logger.Debug("Session mappings stored",
		zap.String("session_id", sessionID),
		zap.Int("entries", len(mappings)),
	)
	return nil
}

// Get returns the session's accumulated mapping.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (map[string]string, error) {
	out, err := s.client.HGetAll(ctx, s.sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session mappings: %w", err)
	}
	return out, nil
}

// Delete removes the session hash.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *RedisStore) sessionKey(sessionID string) string {
	return fmt.Sprintf("%s:session:%s", s.keyPrefix, sessionID)
}

// maskRedisURL masks credentials in a Redis URL for logging.
func maskRedisURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
