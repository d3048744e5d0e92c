package rest

import (
	"context"
	"net/http"

	"github.com/polku/rest_connector/internal/models"
)

// Response is a full transport response.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Transport issues one finalized request. Non-2xx answers are returned as
// *TransportError.
type Transport interface {
	Do(ctx context.Context, desc models.RequestDescriptor) (*Response, error)
}

// ResponseHandler receives every parsed body together with its path and the
// path's index in the fetched list. Its return value is the per-path result.
type ResponseHandler interface {
	HandleData(ctx context.Context, cfg *models.ConnectorConfig, path string, index int, data interface{}) (interface{}, error)
}

// ResponseHandlerFunc adapts a function to ResponseHandler.
type ResponseHandlerFunc func(ctx context.Context, cfg *models.ConnectorConfig, path string, index int, data interface{}) (interface{}, error)

// HandleData calls f.
func (f ResponseHandlerFunc) HandleData(ctx context.Context, cfg *models.ConnectorConfig, path string, index int, data interface{}) (interface{}, error) {
	return f(ctx, cfg, path, index, data)
}

// Logger is the engine's logging capability.
type Logger interface {
	Log(level, message string)
}

type nopLogger struct{}

func (nopLogger) Log(string, string) {}

// passthrough hands the parsed body on unchanged.
var passthrough = ResponseHandlerFunc(func(_ context.Context, _ *models.ConnectorConfig, _ string, _ int, data interface{}) (interface{}, error) {
	return data, nil
})
