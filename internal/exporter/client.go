// Package exporter provides the concrete collaborators of the fetch engine
// and the Prometheus surface of the REST connector: the resty-backed
// transport, the connector wiring, the scrape collector and its cache.
package exporter

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/polku/rest_connector/internal/models"
	"github.com/polku/rest_connector/internal/rest"
	"github.com/polku/rest_connector/internal/telemetry"
)

const (
	defaultTimeout        = 1 * time.Minute // Default timeout for HTTP requests
	httpContentTypeHeader = "Content-Type"  // HTTP header name for content type

	// Transport-level retries only cover network failures; HTTP statuses are
	// classified by the fetch engine.
	retryWaitTime    = 1 * time.Second
	retryMaxWaitTime = 10 * time.Second

	// Connection pool configuration
	maxIdleConns        = 100              // Total idle connections across all hosts
	maxIdleConnsPerHost = 20               // Idle connections per host (default is 2, too low)
	idleConnTimeout     = 90 * time.Second // Timeout for idle connections

	errorMessagePreview = 200
)

// ClientOption configures optional RestClient settings.
type ClientOption func(*clientOptions)

type clientOptions struct {
	tracerProvider trace.TracerProvider
}

// WithTracerProvider sets the TracerProvider for distributed tracing.
// If not provided, tracing operations use a noop provider (no overhead).
func WithTracerProvider(tp trace.TracerProvider) ClientOption {
	return func(o *clientOptions) {
		o.tracerProvider = tp
	}
}

// RestClient is the HTTP transport of the connector. It implements
// rest.Transport: 2xx answers become *rest.Response, other statuses and
// network failures become *rest.TransportError.
type RestClient struct {
	client  *resty.Client
	cfg     models.Config
	tracing *telemetry.TracerWrapper

	// Connection tracking for graceful shutdown
	mu         sync.Mutex    // Protects closed and closeChan
	activeReqs int32         // Count of active requests (atomic)
	closed     bool          // Whether Close() has been called
	closeChan  chan struct{} // Signaled when all requests complete
}

// NewRestClient creates the transport for cfg.
//
// The client is configured with:
//   - TLS verification based on cfg.Transport.InsecureSkipVerify (TLS 1.2 minimum)
//   - cfg.Transport.Timeout per request (1 minute when unset)
//   - cfg.Transport.RetryCount retries on network errors only
//   - Optional OpenTelemetry tracer via options
func NewRestClient(cfg models.Config, opts ...ClientOption) *RestClient {
	var options clientOptions
	for _, opt := range opts {
		opt(&options)
	}

	if cfg.Transport.InsecureSkipVerify {
		log.Error("SECURITY WARNING: TLS certificate verification disabled - this is insecure for production use")
	}

	timeout := cfg.GetTransportTimeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(cfg.Transport.RetryCount).
		SetRetryWaitTime(retryWaitTime).
		SetRetryMaxWaitTime(retryMaxWaitTime).
		AddRetryCondition(func(_ *resty.Response, err error) bool {
			return err != nil
		})

	httpClient := client.GetClient()
	httpClient.Transport = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		IdleConnTimeout:     idleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.Transport.InsecureSkipVerify,
			MinVersion:         tls.VersionTLS12,
		},
	}

	return &RestClient{
		client:  client,
		cfg:     cfg,
		tracing: telemetry.NewTracerWrapper(options.tracerProvider, "rest-connector/http-client"),
	}
}

// Do issues desc and returns the full response.
//
// When OpenTelemetry tracing is enabled, this method creates an http.request
// span, injects W3C trace context into the outgoing headers and records
// method, URL, status code, size and duration.
func (c *RestClient) Do(ctx context.Context, desc models.RequestDescriptor) (*rest.Response, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()

	ctx, span := c.tracing.StartSpan(ctx, "http.request", trace.SpanKindClient)
	defer span.End()

	method := desc.Method
	if method == "" {
		method = http.MethodGet
	}
	startTime := time.Now()

	req := c.client.R().
		SetContext(ctx).
		SetHeaders(c.injectTraceContext(ctx, desc.Headers))
	if log.IsLevelEnabled(log.DebugLevel) {
		req.EnableTrace()
	}
	resp, err := req.Execute(method, desc.URL)
	duration := time.Since(startTime)
	logResponse(resp, err)

	if err != nil {
		c.recordError(span, err)
		return nil, &rest.TransportError{
			Message: fmt.Sprintf("HTTP request to %s failed: %v", desc.URL, err),
			Err:     err,
		}
	}

	c.recordHTTPAttributes(span, method, desc.URL, resp.StatusCode(), int64(len(resp.Body())), duration)

	if resp.IsError() {
		terr := &rest.TransportError{
			StatusCode: resp.StatusCode(),
			Message:    errorMessage(resp),
		}
		c.recordError(span, terr)
		return nil, terr
	}

	span.SetStatus(codes.Ok, "Request completed successfully")
	return &rest.Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		Header:     resp.Header(),
	}, nil
}

// Ping checks that the connector's base URL answers at all. Any HTTP
// response counts as reachable; only network failures are reported.
func (c *RestClient) Ping(ctx context.Context) error {
	target := c.cfg.Connector.AuthConfig.URL
	if target == "" && len(c.cfg.Connector.Paths) > 0 {
		target = c.cfg.Connector.Paths[0]
	}
	if target == "" {
		return fmt.Errorf("no url configured to ping")
	}

	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()

	_, err := c.client.R().
		SetContext(ctx).
		SetHeaders(c.cfg.Connector.AuthConfig.Headers).
		Head(target)
	if err != nil {
		return fmt.Errorf("connectivity test failed: url=%s, error=%w", target, err)
	}
	return nil
}

// logResponse dumps status and request timings at debug level.
func logResponse(resp *resty.Response, err error) {
	if resp == nil || !log.IsLevelEnabled(log.DebugLevel) {
		return
	}
	ti := resp.Request.TraceInfo()
	log.WithFields(log.Fields{
		"url":          resp.Request.URL,
		"status":       resp.StatusCode(),
		"proto":        resp.Proto(),
		"error":        err,
		"dnsLookup":    ti.DNSLookup,
		"connTime":     ti.ConnTime,
		"tlsHandshake": ti.TLSHandshake,
		"serverTime":   ti.ServerTime,
		"totalTime":    ti.TotalTime,
		"connReused":   ti.IsConnReused,
		"attempts":     ti.RequestAttempt,
	}).Debug("HTTP exchange")
}

// errorMessage renders a failed response as "<status> - <body preview>",
// or just the status line when the body is empty.
func errorMessage(resp *resty.Response) string {
	status := resp.Status()
	if status == "" {
		status = fmt.Sprintf("%d %s", resp.StatusCode(), http.StatusText(resp.StatusCode()))
	}
	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		return status
	}
	if len(body) > errorMessagePreview {
		body = body[:errorMessagePreview] + "..."
	}
	return status + " - " + body
}

func (c *RestClient) acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("client is closed")
	}
	atomic.AddInt32(&c.activeReqs, 1)
	return nil
}

func (c *RestClient) release() {
	if atomic.AddInt32(&c.activeReqs, -1) == 0 {
		c.mu.Lock()
		if c.closed && c.closeChan != nil {
			close(c.closeChan)
			c.closeChan = nil
		}
		c.mu.Unlock()
	}
}

func (c *RestClient) recordHTTPAttributes(span trace.Span, method, url string, statusCode int, responseSize int64, duration time.Duration) {
	span.SetAttributes(
		attribute.String(telemetry.AttrHTTPMethod, method),
		attribute.String(telemetry.AttrHTTPURL, url),
		attribute.Int(telemetry.AttrHTTPStatusCode, statusCode),
		attribute.Int64(telemetry.AttrHTTPResponseContentLength, responseSize),
		attribute.Float64(telemetry.AttrHTTPDurationMS, float64(duration.Milliseconds())),
	)
}

func (c *RestClient) recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String(telemetry.AttrError, err.Error()))
}

// injectTraceContext returns a copy of headers carrying the W3C trace
// context of ctx.
func (c *RestClient) injectTraceContext(ctx context.Context, headers map[string]string) map[string]string {
	carrier := propagation.MapCarrier{}
	for k, v := range headers {
		carrier.Set(k, v)
	}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	result := make(map[string]string, len(carrier))
	for k, v := range carrier {
		result[k] = v
	}
	return result
}

// Close releases resources associated with the HTTP client.
// It waits for active requests to complete (up to 30 seconds)
// before closing connections.
func (c *RestClient) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.CloseWithContext(ctx); err != nil && err != context.DeadlineExceeded {
		return err
	}
	return nil
}

// CloseWithContext releases resources with explicit timeout control.
//
// Returns an error if the client is already closed or ctx ends while
// waiting for active requests.
func (c *RestClient) CloseWithContext(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("client already closed")
	}
	c.closed = true

	activeCount := atomic.LoadInt32(&c.activeReqs)
	if activeCount > 0 {
		c.closeChan = make(chan struct{})
		ch := c.closeChan
		c.mu.Unlock()

		select {
		case <-ch:
			log.Debug("All active requests completed during shutdown")
		case <-ctx.Done():
			log.Warnf("Context ended while waiting for %d active requests", activeCount)
			return ctx.Err()
		}
	} else {
		c.mu.Unlock()
	}

	c.client.GetClient().CloseIdleConnections()
	return nil
}
