package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/polku/rest_connector/internal/logging"
	"github.com/polku/rest_connector/internal/models"
	"github.com/polku/rest_connector/internal/rest"
)

// RedisSetter is the subset of *redis.Client used by RedisSink.
type RedisSetter interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisSink decorates a response handler and stores every non-nil result as
// JSON under "<prefix>:<template>:<index>".
type RedisSink struct {
	next   rest.ResponseHandler
	client RedisSetter
	prefix string
	ttl    time.Duration
}

// NewRedisSink wraps next. A zero ttl stores items without expiration.
func NewRedisSink(next rest.ResponseHandler, client RedisSetter, prefix string, ttl time.Duration) *RedisSink {
	if client == nil {
		logging.LogPanic(errors.New("redis client cannot be nil"))
	}
	return &RedisSink{next: next, client: client, prefix: prefix, ttl: ttl}
}

// NewRedisClient opens a client for cfg. The connection is established lazily.
func NewRedisClient(cfg models.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Key returns the Redis key for the item at index.
func (s *RedisSink) Key(template string, index int) string {
	return fmt.Sprintf("%s:%s:%d", s.prefix, template, index)
}

// HandleData delegates to the wrapped handler, then stores its result.
// A failed write fails the path.
func (s *RedisSink) HandleData(ctx context.Context, cfg *models.ConnectorConfig, path string, index int, data interface{}) (interface{}, error) {
	result, err := s.next.HandleData(ctx, cfg, path, index, data)
	if err != nil || result == nil {
		return result, err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal item for %s: %w", path, err)
	}
	key := s.Key(cfg.Template(), index)
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("redis set %s: %w", key, err)
	}
	log.WithFields(log.Fields{"key": key, "path": path}).Debug("Stored item in Redis")
	return result, nil
}
