package exporter

import (
	"context"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/polku/rest_connector/internal/logging"
	"github.com/polku/rest_connector/internal/models"
	"github.com/polku/rest_connector/internal/plugins"
	"github.com/polku/rest_connector/internal/response"
	"github.com/polku/rest_connector/internal/rest"
	"github.com/polku/rest_connector/internal/utils"
)

// ConnectorOption configures optional Connector settings.
type ConnectorOption func(*connectorOptions)

type connectorOptions struct {
	tracerProvider trace.TracerProvider
	client         ConnectorClient
	handler        rest.ResponseHandler
	now            func() time.Time
}

// WithConnectorTracerProvider shares a TracerProvider between the transport and the fetch engine.
func WithConnectorTracerProvider(tp trace.TracerProvider) ConnectorOption {
	return func(o *connectorOptions) { o.tracerProvider = tp }
}

// WithClient replaces the resty transport.
func WithClient(client ConnectorClient) ConnectorOption {
	return func(o *connectorOptions) { o.client = client }
}

// WithResponseHandler replaces the default handler and Redis sink.
func WithResponseHandler(h rest.ResponseHandler) ConnectorOption {
	return func(o *connectorOptions) { o.handler = h }
}

// WithClock overrides the clock used to derive time windows.
func WithClock(now func() time.Time) ConnectorOption {
	return func(o *connectorOptions) { o.now = now }
}

// Connector wires one configured target to the fetch engine: transport,
// plugins, response handling and logging.
type Connector struct {
	cfg      models.Config
	client   ConnectorClient
	handler  rest.ResponseHandler
	plugins  []rest.Plugin
	logger   rest.Logger
	provider trace.TracerProvider
	now      func() time.Time
	closers  []io.Closer
}

// NewConnector builds a Connector from a validated configuration.
// Plugin names are resolved here, so an unknown plugin fails construction.
func NewConnector(cfg models.Config, opts ...ConnectorOption) (*Connector, error) {
	o := connectorOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	built, err := plugins.Build(cfg.Connector.Plugins)
	if err != nil {
		return nil, fmt.Errorf("failed to build plugins: %w", err)
	}

	c := &Connector{
		cfg:      cfg,
		client:   o.client,
		handler:  o.handler,
		plugins:  built,
		logger:   logging.NewFetchLogger(cfg.Connector.Template()),
		provider: o.tracerProvider,
		now:      o.now,
	}

	if c.client == nil {
		client := NewRestClient(cfg, WithTracerProvider(o.tracerProvider))
		c.client = client
		c.closers = append(c.closers, client)
	}

	if c.handler == nil {
		c.handler = response.NewHandler()
		if cfg.Output.Redis.Address != "" {
			redisClient := response.NewRedisClient(cfg.Output.Redis)
			c.closers = append(c.closers, redisClient)
			c.handler = response.NewRedisSink(c.handler, redisClient, cfg.Output.Redis.Prefix, cfg.GetRedisTTL())
			log.Infof("Storing fetched items in Redis at %s (prefix %s)", cfg.Output.Redis.Address, cfg.Output.Redis.Prefix)
		}
	}

	return c, nil
}

// Config returns the configuration the connector was built from.
func (c *Connector) Config() models.Config {
	return c.cfg
}

// Client returns the connector's transport.
func (c *Connector) Client() ConnectorClient {
	return c.client
}

// CycleConfig returns the connector descriptor for one fetch cycle starting
// at now. When the query maps start/end and the corresponding parameter is
// absent, it is derived from the scraping interval; configured parameters
// always win.
func (c *Connector) CycleConfig(now time.Time) models.ConnectorConfig {
	cc := c.cfg.Connector
	params := make(map[string]interface{}, len(cc.Parameters)+2)
	for k, v := range cc.Parameters {
		params[k] = v
	}
	cc.Parameters = params

	query := cc.GeneralConfig.Query
	if query == nil || (query.Start == "" && query.End == "") {
		return cc
	}
	interval, err := c.cfg.GetScrapingDuration()
	if err != nil {
		return cc
	}
	start, end := utils.TimeWindow(now, interval)
	if _, ok := cc.Parameter("start"); !ok && query.Start != "" {
		params["start"] = start
	}
	if _, ok := cc.Parameter("end"); !ok && query.End != "" {
		params["end"] = end
	}
	return cc
}

// Fetch runs one fetch cycle over paths, or over the configured paths when
// paths is empty.
func (c *Connector) Fetch(ctx context.Context, paths []string) ([]interface{}, error) {
	cycle := c.CycleConfig(c.now())
	if len(paths) == 0 {
		paths = cycle.Paths
	}
	fetcher := rest.NewFetcher(&cycle, c.client, c.handler,
		rest.WithPlugins(c.plugins...),
		rest.WithLogger(c.logger),
		rest.WithTracerProvider(c.provider),
	)
	return fetcher.GetData(ctx, paths)
}

// Close releases the transport and the Redis client it created.
func (c *Connector) Close() error {
	var firstErr error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
