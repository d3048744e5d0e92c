package response

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polku/rest_connector/internal/models"
)

func fixedHandler(at time.Time) *Handler {
	return &Handler{now: func() time.Time { return at }}
}

func TestHandlerWrapsData(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cfg := &models.ConnectorConfig{AuthConfig: models.AuthConfig{Template: "orders"}}

	got, err := fixedHandler(at).HandleData(context.Background(), cfg, "/v1/orders", 2, []interface{}{"a"})
	require.NoError(t, err)
	assert.Equal(t, &Item{
		Template:  "orders",
		Path:      "/v1/orders",
		Index:     2,
		FetchedAt: at,
		Data:      []interface{}{"a"},
	}, got)
}

func TestHandlerNilData(t *testing.T) {
	got, err := NewHandler().HandleData(context.Background(), &models.ConnectorConfig{}, "/x", 0, nil)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestHandlerDefaultTemplate(t *testing.T) {
	got, err := NewHandler().HandleData(context.Background(), &models.ConnectorConfig{}, "/x", 0, "v")
	require.NoError(t, err)
	assert.Equal(t, "rest", got.(*Item).Template)
}
