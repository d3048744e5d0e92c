package exporter

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/polku/rest_connector/internal/rest"
	"github.com/polku/rest_connector/internal/telemetry"
)

const collectionTimeout = 2 * time.Minute // Maximum time allowed for one fetch cycle

// CollectorOption configures optional ConnectorCollector settings.
type CollectorOption func(*collectorOptions)

type collectorOptions struct {
	tracerProvider trace.TracerProvider
}

// WithCollectorTracerProvider sets the TracerProvider for the collector.
// If not provided, tracing operations use a noop provider (no overhead).
func WithCollectorTracerProvider(tp trace.TracerProvider) CollectorOption {
	return func(o *collectorOptions) {
		o.tracerProvider = tp
	}
}

// ConnectorCollector implements the Prometheus Collector interface for one
// connector. Each scrape is served from the last fetch cycle while it is
// fresh; otherwise a new cycle runs over the configured paths.
type ConnectorCollector struct {
	connector *Connector
	cache     *ResultCache
	tracing   *telemetry.TracerWrapper
	template  string

	cycleMu sync.Mutex // serializes fetch cycles

	scrapeMu        sync.RWMutex
	lastSuccessTime time.Time
	lastErrorCode   int

	items         *prometheus.Desc
	pathItems     *prometheus.Desc
	fetchSuccess  *prometheus.Desc
	lastErrorDesc *prometheus.Desc
	fetchDuration *prometheus.Desc
}

// NewConnectorCollector creates a collector over connector.
//
// The collector exposes:
//   - rest_connector_items: records fetched in the last cycle (label: template)
//   - rest_connector_path_items: records per path (labels: template, path)
//   - rest_connector_fetch_success: 1 if the last cycle succeeded, 0 otherwise
//   - rest_connector_last_error_code: status code of the last failure, 0 after success
//   - rest_connector_fetch_duration_seconds: duration of the last cycle
//
// Example:
//
//	collector := NewConnectorCollector(connector, WithCollectorTracerProvider(tp))
//	prometheus.MustRegister(collector)
func NewConnectorCollector(connector *Connector, opts ...CollectorOption) *ConnectorCollector {
	var options collectorOptions
	for _, opt := range opts {
		opt(&options)
	}

	cfg := connector.Config()
	c := &ConnectorCollector{
		connector: connector,
		cache:     NewResultCache(cfg.GetCacheTTL()),
		tracing:   telemetry.NewTracerWrapper(options.tracerProvider, "rest-connector/collector"),
		template:  cfg.Connector.Template(),
		items: prometheus.NewDesc(
			"rest_connector_items",
			"The quantity of records fetched in the last cycle",
			[]string{"template"}, nil,
		),
		pathItems: prometheus.NewDesc(
			"rest_connector_path_items",
			"The quantity of records fetched per path in the last cycle",
			[]string{"template", "path"}, nil,
		),
		fetchSuccess: prometheus.NewDesc(
			"rest_connector_fetch_success",
			"Whether the last fetch cycle succeeded",
			[]string{"template"}, nil,
		),
		lastErrorDesc: prometheus.NewDesc(
			"rest_connector_last_error_code",
			"The status code of the last failed fetch cycle, 0 when it succeeded",
			[]string{"template"}, nil,
		),
		fetchDuration: prometheus.NewDesc(
			"rest_connector_fetch_duration_seconds",
			"The duration of the last fetch cycle",
			[]string{"template"}, nil,
		),
	}
	log.Debugf("Collector for %s serves fetch cycles for %v", c.template, c.cache.TTL())
	return c
}

// Describe sends the descriptors of each metric to the provided channel.
func (c *ConnectorCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.items
	ch <- c.pathItems
	ch <- c.fetchSuccess
	ch <- c.lastErrorDesc
	ch <- c.fetchDuration
}

// Collect exposes the metrics of the current fetch cycle.
//
// A failed cycle still exposes the success, error code and duration gauges,
// so Prometheus sees the outage instead of a missing scrape.
func (c *ConnectorCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectionTimeout)
	defer cancel()

	ctx, span := c.tracing.StartSpan(ctx, "prometheus.scrape", trace.SpanKindServer)
	defer span.End()

	cycle, cached := c.currentCycle(ctx)
	c.updateScrapeSpan(span, cycle, cached)
	c.exposeMetrics(ch, cycle)
}

// Refresh runs a fetch cycle now, bypassing the cache.
func (c *ConnectorCollector) Refresh(ctx context.Context) CycleResult {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()
	return c.runCycle(ctx)
}

// Flush drops the cached cycle. Use when the target changes.
func (c *ConnectorCollector) Flush() {
	c.cache.Flush()
}

// currentCycle returns the cached cycle or runs a new one. Concurrent
// scrapes share a single cycle.
func (c *ConnectorCollector) currentCycle(ctx context.Context) (CycleResult, bool) {
	if cycle, ok := c.cache.Get(); ok {
		return cycle, true
	}
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()
	if cycle, ok := c.cache.Get(); ok {
		return cycle, true
	}
	return c.runCycle(ctx), false
}

func (c *ConnectorCollector) runCycle(ctx context.Context) CycleResult {
	start := time.Now()
	items, err := c.connector.Fetch(ctx, nil)
	cycle := CycleResult{
		Items:     items,
		Err:       err,
		Duration:  time.Since(start),
		FetchedAt: start,
	}
	c.cache.Set(cycle)

	c.scrapeMu.Lock()
	if err != nil {
		c.lastErrorCode = errorCode(err)
		log.Errorf("Fetch cycle for %s failed: %v", c.template, err)
	} else {
		c.lastErrorCode = 0
		c.lastSuccessTime = cycle.FetchedAt
		log.Debugf("Fetch cycle for %s returned %d items in %v", c.template, len(items), cycle.Duration)
	}
	c.scrapeMu.Unlock()
	return cycle
}

func errorCode(err error) int {
	if fe, ok := rest.AsFetchError(err); ok {
		return fe.HTTPStatusCode
	}
	return 500
}

func (c *ConnectorCollector) updateScrapeSpan(span trace.Span, cycle CycleResult, cached bool) {
	status := "success"
	if cycle.Err != nil {
		status = "failure"
		span.SetStatus(codes.Error, cycle.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(
		attribute.Float64(telemetry.AttrScrapeDurationMS, float64(cycle.Duration.Milliseconds())),
		attribute.Bool(telemetry.AttrScrapeCached, cached),
		attribute.Int64(telemetry.AttrScrapeCycleAgeMS, time.Since(c.cache.GetLastCollectionTime()).Milliseconds()),
		attribute.String(telemetry.AttrScrapeStatus, status),
		attribute.Int(telemetry.AttrConnectorItems, len(cycle.Items)),
	)
}

func (c *ConnectorCollector) exposeMetrics(ch chan<- prometheus.Metric, cycle CycleResult) {
	success := 1.0
	if cycle.Err != nil {
		success = 0
	}
	c.scrapeMu.RLock()
	lastErr := c.lastErrorCode
	c.scrapeMu.RUnlock()

	ch <- prometheus.MustNewConstMetric(c.fetchSuccess, prometheus.GaugeValue, success, c.template)
	ch <- prometheus.MustNewConstMetric(c.lastErrorDesc, prometheus.GaugeValue, float64(lastErr), c.template)
	ch <- prometheus.MustNewConstMetric(c.fetchDuration, prometheus.GaugeValue, cycle.Duration.Seconds(), c.template)

	if cycle.Err != nil {
		return
	}
	perPath, total := countByPath(c.template, cycle.Items)
	ch <- prometheus.MustNewConstMetric(c.items, prometheus.GaugeValue, total, c.template)
	for key, value := range perPath {
		ch <- prometheus.MustNewConstMetric(c.pathItems, prometheus.GaugeValue, value, key.Labels()...)
	}
}

// Close releases the connector's transport and sinks.
func (c *ConnectorCollector) Close() error {
	return c.connector.Close()
}
