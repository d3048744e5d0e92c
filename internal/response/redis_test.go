package response

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polku/rest_connector/internal/models"
	"github.com/polku/rest_connector/internal/rest"
)

type setCall struct {
	key   string
	value []byte
	ttl   time.Duration
}

type fakeRedis struct {
	calls []setCall
	err   error
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.calls = append(f.calls, setCall{key: key, value: value.([]byte), ttl: expiration})
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	return redis.NewStatusResult("OK", nil)
}

func ordersConfig() *models.ConnectorConfig {
	return &models.ConnectorConfig{AuthConfig: models.AuthConfig{Template: "orders"}}
}

func TestRedisSinkStoresItems(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeRedis{}
	sink := NewRedisSink(fixedHandler(at), store, "rest_connector", 10*time.Minute)

	got, err := sink.HandleData(context.Background(), ordersConfig(), "/v1/orders", 3, map[string]interface{}{"id": 7})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, store.calls, 1)

	call := store.calls[0]
	assert.Equal(t, "rest_connector:orders:3", call.key)
	assert.Equal(t, 10*time.Minute, call.ttl)

	var stored Item
	require.NoError(t, json.Unmarshal(call.value, &stored))
	assert.Equal(t, "/v1/orders", stored.Path)
	assert.Equal(t, 3, stored.Index)
	assert.True(t, stored.FetchedAt.Equal(at))
}

func TestRedisSinkSkipsNilResults(t *testing.T) {
	store := &fakeRedis{}
	sink := NewRedisSink(NewHandler(), store, "p", 0)

	got, err := sink.HandleData(context.Background(), ordersConfig(), "/x", 0, nil)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, store.calls)
}

func TestRedisSinkPropagatesErrors(t *testing.T) {
	store := &fakeRedis{err: errors.New("READONLY")}
	sink := NewRedisSink(NewHandler(), store, "p", 0)

	_, err := sink.HandleData(context.Background(), ordersConfig(), "/x", 0, "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis set p:orders:0")

	failing := rest.ResponseHandlerFunc(func(context.Context, *models.ConnectorConfig, string, int, interface{}) (interface{}, error) {
		return nil, errors.New("upstream")
	})
	store = &fakeRedis{}
	_, err = NewRedisSink(failing, store, "p", 0).HandleData(context.Background(), ordersConfig(), "/x", 0, "v")
	assert.EqualError(t, err, "upstream")
	assert.Empty(t, store.calls)
}

func TestNewRedisSinkPanicsWithoutClient(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	assert.Panics(t, func() { NewRedisSink(NewHandler(), nil, "p", 0) })
	assert.Contains(t, buf.String(), "redis client cannot be nil")
}

// TestRedisSinkLive runs against a local Redis when one is reachable.
func TestRedisSinkLive(t *testing.T) {
	client := NewRedisClient(models.RedisConfig{Address: "localhost:6379", DB: 15})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	sink := NewRedisSink(NewHandler(), client, "rest_connector_test", time.Minute)
	_, err := sink.HandleData(ctx, ordersConfig(), "/v1/orders", 0, []interface{}{1})
	require.NoError(t, err)

	raw, err := client.Get(ctx, "rest_connector_test:orders:0").Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"path":"/v1/orders"`)
	client.Del(ctx, "rest_connector_test:orders:0")
}
