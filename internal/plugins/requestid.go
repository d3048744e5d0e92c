package plugins

import (
	"context"

	"github.com/google/uuid"

	"github.com/polku/rest_connector/internal/models"
	"github.com/polku/rest_connector/internal/rest"
)

const (
	// RequestIDPluginName is the registry name of the request-id plugin.
	RequestIDPluginName = "requestid"

	defaultRequestIDHeader = "X-Request-ID"
)

// RequestID stamps each attempt with a fresh UUID, so a retried path is
// distinguishable from its first attempt in the target's logs.
type RequestID struct {
	header string
}

// NewRequestID builds the plugin. The optional "header" setting overrides X-Request-ID.
func NewRequestID(settings map[string]interface{}) (rest.Plugin, error) {
	header, err := stringSetting(settings, "header")
	if err != nil {
		return nil, err
	}
	if header == "" {
		header = defaultRequestIDHeader
	}
	return &RequestID{header: header}, nil
}

// Name returns "requestid".
func (r *RequestID) Name() string { return RequestIDPluginName }

// Request stamps desc with a fresh UUID, so every attempt gets its own id.
func (r *RequestID) Request(_ context.Context, _ *models.ConnectorConfig, desc models.RequestDescriptor) (models.RequestDescriptor, error) {
	desc.Headers[r.header] = uuid.NewString()
	return desc, nil
}
