package rest

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"reflect"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/polku/rest_connector/internal/models"
	"github.com/polku/rest_connector/internal/telemetry"
)

const (
	tracerName     = "rest-connector/fetch"
	previewMaxSize = 200
)

// Fetcher runs fetches for one connector. Calls on a Fetcher are sequential
// per invocation; separate invocations may run concurrently.
type Fetcher struct {
	cfg       *models.ConnectorConfig
	transport Transport
	handler   ResponseHandler
	pipeline  *Pipeline
	logger    Logger
	tracing   *telemetry.TracerWrapper
}

// Option configures a Fetcher.
type Option func(*fetcherOptions)

type fetcherOptions struct {
	plugins  []Plugin
	logger   Logger
	provider trace.TracerProvider
}

// WithPlugins sets the plugin list. Order is significant.
func WithPlugins(plugins ...Plugin) Option {
	return func(o *fetcherOptions) {
		o.plugins = append(o.plugins, plugins...)
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger Logger) Option {
	return func(o *fetcherOptions) {
		o.logger = logger
	}
}

// WithTracerProvider enables spans for fetches and single paths.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(o *fetcherOptions) {
		o.provider = provider
	}
}

// NewFetcher returns a Fetcher for cfg. A nil handler hands parsed bodies on
// unchanged. cfg must not be modified while the Fetcher is in use.
func NewFetcher(cfg *models.ConnectorConfig, transport Transport, handler ResponseHandler, opts ...Option) *Fetcher {
	var o fetcherOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = nopLogger{}
	}
	if handler == nil {
		handler = passthrough
	}
	return &Fetcher{
		cfg:       cfg,
		transport: transport,
		handler:   handler,
		pipeline:  NewPipeline(o.plugins, o.logger),
		logger:    o.logger,
		tracing:   telemetry.NewTracerWrapper(o.provider, tracerName),
	}
}

// GetData fetches paths one after another and returns the non-empty results
// in path order. The first unrecovered failure aborts the remaining paths and
// is returned as a *FetchError with no partial results.
func (f *Fetcher) GetData(ctx context.Context, paths []string) ([]interface{}, error) {
	ctx, span := f.tracing.StartSpan(ctx, "connector.fetch", trace.SpanKindInternal,
		trace.WithAttributes(
			attribute.String(telemetry.AttrConnectorTemplate, f.cfg.Template()),
			attribute.Int(telemetry.AttrConnectorPathCount, len(paths)),
		))
	defer span.End()

	results := make([]interface{}, 0, len(paths))
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			fe := NewFetchError(http.StatusInternalServerError, err.Error(), "context")
			recordSpanError(span, fe)
			return nil, fe
		}
		result, err := f.RequestData(ctx, path, i)
		if err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		if isEmpty(result) {
			continue
		}
		results = append(results, result)
	}

	span.SetAttributes(attribute.Int(telemetry.AttrConnectorItems, len(results)))
	span.SetStatus(codes.Ok, "")
	return results, nil
}

// RequestData fetches a single path. It returns (nil, nil) when the target
// reports the resource absent (404 or 400).
func (f *Fetcher) RequestData(ctx context.Context, path string, index int) (interface{}, error) {
	return f.requestData(ctx, path, index, 1)
}

func (f *Fetcher) requestData(ctx context.Context, path string, index, attempt int) (interface{}, error) {
	ctx, span := f.tracing.StartSpan(ctx, "connector.fetch_path", trace.SpanKindInternal,
		trace.WithAttributes(
			attribute.String(telemetry.AttrConnectorPath, path),
			attribute.Int(telemetry.AttrConnectorPathIndex, index),
			attribute.Int(telemetry.AttrConnectorAttempt, attempt),
		))
	defer span.End()

	result, err := f.execute(ctx, span, path, index, attempt)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return result, nil
}

func (f *Fetcher) execute(ctx context.Context, span trace.Span, path string, index, attempt int) (interface{}, error) {
	desc, err := ComposeRequest(f.cfg, path)
	if err != nil {
		return nil, err
	}
	desc, err = f.pipeline.BeforeRequest(ctx, f.cfg, desc)
	if err != nil {
		return nil, toFetchError(err, http.StatusInternalServerError)
	}
	desc = desc.Finalize()

	resp, err := f.transport.Do(ctx, desc)
	if err != nil {
		return f.recoverFailure(ctx, span, desc.URL, path, index, attempt, asTransportError(err))
	}
	if resp == nil {
		return nil, NewFetchError(StatusConnectionTimedOut, "Connection timed out.", "")
	}

	data, err := f.pipeline.TransformBody(ctx, resp.Body)
	if err != nil {
		return nil, toFetchError(err, http.StatusInternalServerError)
	}
	if data == nil && len(resp.Body) > 0 && !f.pipeline.HasDataManipulator() {
		f.logger.Log("debug", fmt.Sprintf(telemetry.ErrNonJSONResponseTemplate,
			f.cfg.Template(), desc.URL, resp.Header.Get("Content-Type"), preview(resp.Body)))
	}

	result, err := f.handler.HandleData(ctx, f.cfg, path, index, data)
	if err != nil {
		return nil, toFetchError(err, http.StatusInternalServerError)
	}
	return result, nil
}

// recoverFailure applies the error classes to a failed request. A recovered failure
// is retried once; the retry's own failures are never offered to plugins.
func (f *Fetcher) recoverFailure(ctx context.Context, span trace.Span, url, path string, index, attempt int, terr *TransportError) (interface{}, error) {
	template := f.cfg.Template()
	class := Classify(terr.StatusCode)
	span.SetAttributes(
		attribute.Int(telemetry.AttrHTTPStatusCode, terr.StatusCode),
		attribute.String(telemetry.AttrConnectorErrorClass, class.String()),
	)
	f.logger.Log("info", fmt.Sprintf("%s: Response with status code %d", template, terr.StatusCode))

	switch class {
	case ClassNotFound:
		return nil, nil
	case ClassConnectionFatal:
		f.logger.Log("error", fmt.Sprintf(telemetry.ErrConnectionFatalTemplate, template, url, terr.StatusCode, terr.Message))
		return nil, NewFetchError(terr.StatusCode, terr.Message, "")
	}

	if attempt > 1 {
		return nil, NewFetchError(terr.StatusCode, terr.Message, "")
	}

	handled, hookErr := f.pipeline.HandleError(ctx, f.cfg, terr)
	if !handled {
		f.logger.Log("error", fmt.Sprintf(telemetry.ErrUnrecoverableTemplate, template, url, terr.StatusCode, terr.Message))
		return nil, NewFetchError(terr.StatusCode, "", "")
	}
	if hookErr != nil {
		return nil, toFetchError(hookErr, terr.StatusCode)
	}

	f.logger.Log("info", fmt.Sprintf("%s: Retrying %s after recovered status %d", template, path, terr.StatusCode))
	return f.requestData(ctx, path, index, attempt+1)
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// isEmpty reports whether a per-path result is dropped from the result sequence.
func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case bool:
		return !t
	case string:
		return t == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f == 0 || math.IsNaN(f)
	}
	return false
}

func preview(body []byte) string {
	if len(body) > previewMaxSize {
		return string(body[:previewMaxSize]) + "..."
	}
	return string(body)
}
