package rest

import (
	"context"
	"encoding/json"

	"github.com/polku/rest_connector/internal/models"
)

// Plugin is a named extension. Plugins take part in a fetch by also
// implementing one or more of RequestHook, ErrorHook and DataManipulator.
type Plugin interface {
	Name() string
}

// RequestHook rewrites the request descriptor before dispatch. Every request
// hook runs, in plugin order, each seeing the previous one's result.
type RequestHook interface {
	Plugin
	Request(ctx context.Context, cfg *models.ConnectorConfig, desc models.RequestDescriptor) (models.RequestDescriptor, error)
}

// ErrorHook decides whether a recoverable failure is retried. Only the first
// error hook in plugin order is consulted. Returning nil retries the path once.
type ErrorHook interface {
	Plugin
	OnError(ctx context.Context, cfg *models.ConnectorConfig, err *TransportError) error
}

// DataManipulator turns a raw body into the parsed value, replacing JSON
// decoding. Only the first one in plugin order is used.
type DataManipulator interface {
	Plugin
	DataManipulation(ctx context.Context, body []byte) (interface{}, error)
}

// Pipeline dispatches plugin hooks. It is read-only after construction and
// safe for concurrent use.
type Pipeline struct {
	plugins []Plugin
	logger  Logger
}

// NewPipeline returns a pipeline over plugins, keeping their order.
func NewPipeline(plugins []Plugin, logger Logger) *Pipeline {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Pipeline{
		plugins: append([]Plugin(nil), plugins...),
		logger:  logger,
	}
}

// Names returns the plugin names in dispatch order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.plugins))
	for i, pl := range p.plugins {
		names[i] = pl.Name()
	}
	return names
}

// BeforeRequest chains every request hook over desc. Each hook receives its
// own copy of the descriptor.
func (p *Pipeline) BeforeRequest(ctx context.Context, cfg *models.ConnectorConfig, desc models.RequestDescriptor) (models.RequestDescriptor, error) {
	for _, pl := range p.plugins {
		hook, ok := pl.(RequestHook)
		if !ok {
			continue
		}
		next, err := hook.Request(ctx, cfg, desc.Clone())
		if err != nil {
			return desc, err
		}
		desc = next
	}
	return desc, nil
}

// HandleError offers err to the first error hook. handled is false when no
// plugin implements ErrorHook; otherwise hookErr is that hook's verdict.
func (p *Pipeline) HandleError(ctx context.Context, cfg *models.ConnectorConfig, err *TransportError) (handled bool, hookErr error) {
	for _, pl := range p.plugins {
		if hook, ok := pl.(ErrorHook); ok {
			return true, hook.OnError(ctx, cfg, err)
		}
	}
	return false, nil
}

// HasDataManipulator reports whether a plugin replaces JSON decoding.
func (p *Pipeline) HasDataManipulator() bool {
	for _, pl := range p.plugins {
		if _, ok := pl.(DataManipulator); ok {
			return true
		}
	}
	return false
}

// TransformBody parses body with the first data manipulator, or as JSON when
// there is none. Malformed or empty JSON is logged and yields nil without an
// error.
func (p *Pipeline) TransformBody(ctx context.Context, body []byte) (interface{}, error) {
	for _, pl := range p.plugins {
		if dm, ok := pl.(DataManipulator); ok {
			return dm.DataManipulation(ctx, body)
		}
	}

	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		p.logger.Log("error", "Failed to parse response body.")
		return nil, nil
	}
	return data, nil
}
