// Package telemetry provides OpenTelemetry integration for the REST connector.
//
// # Key Components
//
// Manager: OpenTelemetry initialization, lifecycle management and shutdown.
// Initialization failures degrade to no tracing rather than failing startup.
//
// TracerWrapper: nil-safe span creation used by the fetch engine and the
// HTTP transport; without a provider every span is a noop.
//
// Attributes: span attribute keys grouped by HTTP, connector and scrape.
//
// Error Templates: operator-facing messages for connection failures,
// unrecoverable statuses and non-JSON bodies.
//
// # Spans
//
//   - connector.fetch: one fetch cycle over all configured paths
//   - connector.fetch_path: one path, with its attempt number
//   - http.request: one transport call, with W3C trace context injected
//
// # Usage Example
//
//	manager := telemetry.NewManager(telemetry.Config{
//	    Enabled:      true,
//	    Endpoint:     "localhost:4317",
//	    Insecure:     true,
//	    SamplingRate: 1.0,
//	    TargetSystem: "orders",
//	})
//	if err := manager.Initialize(ctx); err != nil {
//	    log.Fatalf("Failed to initialize telemetry: %v", err)
//	}
//	defer manager.Shutdown(ctx)
//
//	tracing := telemetry.NewTracerWrapper(manager.TracerProvider(), "rest-connector/fetch")
//	ctx, span := tracing.StartSpan(ctx, "connector.fetch", trace.SpanKindInternal)
//	defer span.End()
package telemetry
