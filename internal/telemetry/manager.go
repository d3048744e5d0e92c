package telemetry

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	defaultServiceName    = "rest-connector"
	defaultServiceVersion = "dev"
)

// Manager owns the TracerProvider for the process: it builds the OTLP
// exporter, registers the provider globally and flushes it on shutdown.
type Manager struct {
	enabled        bool
	tracerProvider *sdktrace.TracerProvider
	config         Config
}

// Config holds OpenTelemetry settings for the manager.
type Config struct {
	Enabled bool

	// Endpoint is the OTLP gRPC collector endpoint (e.g., "localhost:4317")
	Endpoint string

	// Insecure disables TLS towards the collector
	Insecure bool

	// SamplingRate is the fraction of traces kept (0.0 to 1.0)
	SamplingRate float64

	ServiceName    string
	ServiceVersion string

	// TargetSystem is the connector template or host being fetched, recorded as peer.service
	TargetSystem string
}

// NewManager creates a manager. Nothing is exported until Initialize is called.
func NewManager(cfg Config) *Manager {
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = defaultServiceVersion
	}
	return &Manager{
		enabled: cfg.Enabled,
		config:  cfg,
	}
}

// Initialize builds the exporter, resource and sampler and installs the
// global TracerProvider.
//
// Failures disable tracing instead of failing startup: the connector keeps
// fetching without spans. The returned error is therefore always nil today;
// it is kept so callers don't change when a fatal mode is added.
func (m *Manager) Initialize(ctx context.Context) error {
	if !m.config.Enabled {
		logrus.Debug("OpenTelemetry is disabled in configuration")
		return nil
	}

	exporter, err := m.createExporter(ctx)
	if err != nil {
		logrus.Warnf("Failed to initialize OpenTelemetry: %v. Continuing without tracing.", err)
		m.enabled = false
		return nil
	}

	res, err := m.createResource()
	if err != nil {
		logrus.Warnf("Failed to create OpenTelemetry resource: %v. Continuing without tracing.", err)
		m.enabled = false
		return nil
	}

	m.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(m.createSampler()),
	)
	otel.SetTracerProvider(m.tracerProvider)

	logrus.Infof("OpenTelemetry initialized (endpoint: %s, sampling: %.2f, target: %s)",
		m.config.Endpoint, m.config.SamplingRate, m.config.TargetSystem)
	return nil
}

func (m *Manager) createExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(m.config.Endpoint),
	}
	if m.config.Insecure {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return exporter, nil
}

func (m *Manager) createResource() (*resource.Resource, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	attrs := []resource.Option{
		resource.WithAttributes(
			semconv.ServiceNameKey.String(m.config.ServiceName),
			semconv.ServiceVersionKey.String(m.config.ServiceVersion),
			semconv.HostNameKey.String(hostname),
		),
	}
	if m.config.TargetSystem != "" {
		attrs = append(attrs, resource.WithAttributes(
			semconv.PeerServiceKey.String(m.config.TargetSystem),
		))
	}

	return resource.New(context.Background(), attrs...)
}

func (m *Manager) createSampler() sdktrace.Sampler {
	if m.config.SamplingRate >= 1.0 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(m.config.SamplingRate))
}

// Shutdown flushes pending spans. It is a no-op when tracing never started.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.enabled || m.tracerProvider == nil {
		logrus.Debug("OpenTelemetry shutdown skipped (not enabled or not initialized)")
		return nil
	}

	logrus.Info("Shutting down OpenTelemetry TracerProvider...")
	if err := m.tracerProvider.Shutdown(ctx); err != nil {
		logrus.Errorf("Error during OpenTelemetry shutdown: %v", err)
		return fmt.Errorf("failed to shutdown TracerProvider: %w", err)
	}
	return nil
}

// IsEnabled reports whether tracing is operational. It turns false when
// Initialize degraded to no-tracing mode.
func (m *Manager) IsEnabled() bool {
	return m.enabled
}

// TracerProvider returns the provider for explicit injection, or nil when
// tracing is off.
func (m *Manager) TracerProvider() trace.TracerProvider {
	if m.tracerProvider == nil {
		return nil
	}
	return m.tracerProvider
}
