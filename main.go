// REST Connector fetches data from a configured REST API through a plugin
// pipeline and exposes the outcome of each fetch cycle as Prometheus metrics.
//
// Each cycle requests every configured path in order, lets plugins decorate
// requests and recover failures, and hands parsed bodies to the response
// handler (optionally persisted in Redis).
//
// Usage:
//
//	rest_connector --config config.yaml [--debug]
//	rest_connector fetch --config config.yaml [--path /api/items]
//
// The configuration file is watched: edits (or SIGHUP) rebuild the connector
// without restarting the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/polku/rest_connector/internal/config"
	"github.com/polku/rest_connector/internal/exporter"
	"github.com/polku/rest_connector/internal/logging"
	"github.com/polku/rest_connector/internal/models"
	"github.com/polku/rest_connector/internal/rest"
	"github.com/polku/rest_connector/internal/telemetry"
	"github.com/polku/rest_connector/internal/utils"
)

const (
	programName       = "rest_connector"
	programVersion    = "1.0.0"
	shutdownTimeout   = 10 * time.Second // Maximum time to wait for graceful shutdown
	readHeaderTimeout = 5 * time.Second  // HTTP server read header timeout
)

var (
	configFile string
	debug      bool
	fetchPaths []string
)

// Server encapsulates the HTTP server and its dependencies for serving Prometheus metrics.
// It owns the current connector collector and swaps it when the configuration
// file is reloaded.
//
// Server errors (such as port binding failures) are communicated through the
// ErrorChan() channel rather than calling log.Fatal, so the caller can still
// shut down gracefully.
type Server struct {
	cfg              *models.SafeConfig
	configPath       string
	httpSrv          *http.Server
	registry         *prometheus.Registry
	telemetryManager *telemetry.Manager // nil if disabled
	tracerProvider   trace.TracerProvider
	watcher          *config.Watcher

	mu        sync.RWMutex // protects collector
	collector *exporter.ConnectorCollector

	// serverErrChan is buffered so the listener goroutine can report an
	// error before the caller starts selecting on it.
	serverErrChan chan error
}

// NewServer creates a server for cfg. configPath is the file watched for
// reloads; an empty path disables hot reload.
func NewServer(cfg models.Config, configPath string) *Server {
	var telemetryMgr *telemetry.Manager
	if cfg.IsOTelEnabled() {
		telemetryMgr = telemetry.NewManager(telemetry.Config{
			Enabled:        cfg.OpenTelemetry.Enabled,
			Endpoint:       cfg.OpenTelemetry.Endpoint,
			Insecure:       cfg.OpenTelemetry.Insecure,
			SamplingRate:   cfg.OpenTelemetry.SamplingRate,
			ServiceName:    "rest-connector",
			ServiceVersion: programVersion,
			TargetSystem:   cfg.Connector.Template(),
		})
	}

	return &Server{
		cfg:              models.NewSafeConfig(&cfg),
		configPath:       configPath,
		registry:         prometheus.NewRegistry(),
		telemetryManager: telemetryMgr,
		serverErrChan:    make(chan error, 1),
	}
}

// Start initializes telemetry, registers the collector, starts the config
// watcher and serves HTTP in a goroutine.
//
// The server exposes:
//   - Metrics endpoint at the configured URI (default: /metrics)
//   - Health check endpoint at /health
func (s *Server) Start() error {
	if err := s.setup(); err != nil {
		return err
	}

	if s.configPath != "" {
		watcher, err := config.Watch(context.Background(), s.configPath, s.reload)
		if err != nil {
			log.Warnf("Config hot reload disabled: %v", err)
		} else {
			s.watcher = watcher
		}
	}

	cfg := s.cfg.Get()
	s.httpSrv = &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Infof("Starting %s on %s%s", programName, cfg.GetServerAddress(), cfg.Server.URI)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	return nil
}

// setup initializes telemetry and registers the first collector.
func (s *Server) setup() error {
	if s.telemetryManager != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.telemetryManager.Initialize(ctx); err != nil {
			log.Warnf("Failed to initialize OpenTelemetry: %v. Continuing without tracing.", err)
		}

		if s.telemetryManager.IsEnabled() {
			s.tracerProvider = s.telemetryManager.TracerProvider()
			otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
				propagation.TraceContext{},
				propagation.Baggage{},
			))
			log.Info("OpenTelemetry trace context propagation configured")
		}
	}

	collector, err := s.buildCollector(*s.cfg.Get())
	if err != nil {
		return err
	}
	if err := s.registry.Register(collector); err != nil {
		_ = collector.Close()
		return fmt.Errorf("failed to register collector: %w", err)
	}

	s.mu.Lock()
	s.collector = collector
	s.mu.Unlock()
	return nil
}

func (s *Server) buildCollector(cfg models.Config) (*exporter.ConnectorCollector, error) {
	connector, err := exporter.NewConnector(cfg, exporter.WithConnectorTracerProvider(s.tracerProvider))
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}
	return exporter.NewConnectorCollector(connector, exporter.WithCollectorTracerProvider(s.tracerProvider)), nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	prometheusHandler := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
	if s.telemetryManager != nil && s.telemetryManager.IsEnabled() {
		prometheusHandler = s.extractTraceContextMiddleware(prometheusHandler)
	}

	mux.Handle(s.cfg.Get().Server.URI, prometheusHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// currentCollector returns the collector serving scrapes.
func (s *Server) currentCollector() *exporter.ConnectorCollector {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collector
}

// reload applies the configuration file at path. An invalid file, or one
// whose connector cannot be built, leaves the running collector in place.
// Listen address changes only take effect after a restart.
func (s *Server) reload(path string) error {
	previous := *s.cfg.Get()
	targetChanged, err := s.cfg.ReloadConfig(path)
	if err != nil {
		logging.LogError(fmt.Sprintf("Config reload rejected: %v", err))
		return err
	}
	current := *s.cfg.Get()
	if current.GetServerAddress() != previous.GetServerAddress() || current.Server.URI != previous.Server.URI {
		log.Warnf("Server address changes require a restart (still serving %s%s)", previous.GetServerAddress(), previous.Server.URI)
	}

	next, err := s.buildCollector(current)
	if err != nil {
		logging.LogError(fmt.Sprintf("Config reload rejected: %v", err))
		return err
	}

	s.mu.Lock()
	old := s.collector
	s.registry.Unregister(old)
	if err := s.registry.Register(next); err != nil {
		_ = s.registry.Register(old)
		s.mu.Unlock()
		_ = next.Close()
		return fmt.Errorf("failed to register collector: %w", err)
	}
	s.collector = next
	s.mu.Unlock()

	if targetChanged {
		old.Flush()
	}
	if err := old.Close(); err != nil {
		log.Warnf("Closing previous collector: %v", err)
	}
	log.Infof("Connector %s rebuilt from %s", current.Connector.Template(), path)
	return nil
}

// ErrorChan returns the channel for receiving server errors.
func (s *Server) ErrorChan() <-chan error {
	return s.serverErrChan
}

// Shutdown gracefully shuts down the server components in order:
//  1. Stop the config watcher
//  2. Stop HTTP server (no new scrapes accepted)
//  3. Shutdown OpenTelemetry (flush pending spans)
//  4. Close collector (drains API connections)
//
// Returns the first error encountered.
func (s *Server) Shutdown() error {
	var errs []error

	if s.watcher != nil {
		_ = s.watcher.Close()
	}

	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info("Shutting down HTTP server...")
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		}
	}

	if s.telemetryManager != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info("Shutting down telemetry...")
		if err := s.telemetryManager.Shutdown(ctx); err != nil {
			log.Warnf("Telemetry shutdown warning: %v", err)
		}
	}

	if collector := s.currentCollector(); collector != nil {
		log.Info("Closing collector connections...")
		if err := collector.Close(); err != nil {
			errs = append(errs, fmt.Errorf("collector close: %w", err))
		}
	}

	close(s.serverErrChan)

	if len(errs) > 0 {
		log.Errorf("Shutdown completed with %d errors", len(errs))
		return errs[0]
	}

	log.Info("Server stopped gracefully")
	return nil
}

// extractTraceContextMiddleware extracts W3C trace context from incoming
// scrape requests so collection spans join the caller's trace.
func (s *Server) extractTraceContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// healthHandler answers 200 once a fetch cycle has succeeded or the target
// is reachable, 503 otherwise.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	collector := s.currentCollector()
	if collector == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(w, "UNAVAILABLE: no connector\n")
		return
	}
	if collector.IsHealthy() {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "OK\n")
		return
	}
	if err := collector.TestConnectivity(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(w, "UNAVAILABLE: %v\n", err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK\n")
}

// validateConfig checks if the configuration file exists, loads it, and validates its contents.
func validateConfig(configPath string) (*models.Config, error) {
	if !utils.FileExists(configPath) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}
	return utils.LoadConfig(configPath)
}

// setupLogging initializes the logging system with the configured log file,
// writing console output to console. Debug mode enables DEBUG level.
func setupLogging(cfg models.Config, console io.Writer, debugMode bool) error {
	if err := logging.PrepareLogsTo(console, cfg.Server.LogName); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	if debugMode {
		log.SetLevel(log.DebugLevel)
		log.Debug("Debug mode enabled")
	}

	return nil
}

// waitForShutdown blocks until SIGINT/SIGTERM or a server error.
// Returns the server error, nil for a signal.
func waitForShutdown(serverErr <-chan error) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case sig := <-stop:
		log.Infof("Received signal %v, initiating graceful shutdown...", sig)
		return nil
	case err := <-serverErr:
		return err
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := validateConfig(configFile)
	if err != nil {
		return err
	}
	if err := setupLogging(*cfg, os.Stdout, debug); err != nil {
		return err
	}

	logging.LogInfo(fmt.Sprintf("Starting %s %s...", programName, programVersion))
	log.Infof("Connector %s: %s (%d paths)", cfg.Connector.Template(), cfg.Connector.AuthConfig.URL, len(cfg.Connector.Paths))
	log.Infof("Scraping interval: %s", cfg.Server.ScrapingInterval)
	if debug {
		log.Infof("Headers: %v", cfg.MaskHeaders())
	}

	server := NewServer(*cfg, configFile)
	if err := server.Start(); err != nil {
		return err
	}

	if err := waitForShutdown(server.ErrorChan()); err != nil {
		log.Errorf("Server error: %v", err)
	}

	return server.Shutdown()
}

// runFetch performs a single fetch cycle and writes the items to out as
// indented JSON. A failed cycle wraps the *rest.FetchError.
func runFetch(ctx context.Context, cfg models.Config, paths []string, out io.Writer) error {
	connector, err := exporter.NewConnector(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = connector.Close() }()

	items, err := connector.Fetch(ctx, paths)
	if err != nil {
		return fmt.Errorf("%s fetch cycle failed: %w", cfg.Connector.Template(), err)
	}
	if items == nil {
		items = []interface{}{}
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(items)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          programName,
		Short:        "Fetch REST API data through a plugin pipeline",
		Long:         "REST Connector fetches configured paths from a REST API and exposes fetch metrics in Prometheus format",
		Version:      programVersion,
		SilenceUsage: true,
		RunE:         runServe,
	}

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run one fetch cycle and print the items as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := validateConfig(configFile)
			if err != nil {
				return err
			}
			if err := setupLogging(*cfg, cmd.ErrOrStderr(), debug); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runFetch(ctx, *cfg, fetchPaths, cmd.OutOrStdout())
		},
	}
	fetchCmd.Flags().StringSliceVarP(&fetchPaths, "path", "p", nil, "Paths to fetch instead of the configured ones")
	rootCmd.AddCommand(fetchCmd)

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file (required)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug mode")
	_ = rootCmd.MarkPersistentFlagRequired("config")

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var fe *rest.FetchError
		if errors.As(err, &fe) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
