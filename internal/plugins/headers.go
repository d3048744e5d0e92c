package plugins

import (
	"context"
	"errors"

	"github.com/polku/rest_connector/internal/models"
	"github.com/polku/rest_connector/internal/rest"
)

// HeadersPluginName is the registry name of the headers plugin.
const HeadersPluginName = "headers"

// Headers merges static headers into every request. Configured values
// override headers of the same name from authConfig.
type Headers struct {
	values map[string]string
}

// NewHeaders builds the plugin from a "headers" mapping.
func NewHeaders(settings map[string]interface{}) (rest.Plugin, error) {
	values, err := stringMapSetting(settings, "headers")
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.New("headers plugin requires a non-empty headers mapping")
	}
	return &Headers{values: values}, nil
}

// Name returns "headers".
func (h *Headers) Name() string { return HeadersPluginName }

// Request sets the configured headers on desc.
func (h *Headers) Request(_ context.Context, _ *models.ConnectorConfig, desc models.RequestDescriptor) (models.RequestDescriptor, error) {
	for k, v := range h.values {
		desc.Headers[k] = v
	}
	return desc, nil
}
