// Package testutil provides shared testing utilities and constants for the REST connector.
//
// This package centralizes common test constants, helper functions, and mock builders
// to reduce duplication across test files.
//
// # Key Components
//
// Constants: Shared test values (headers, paths, error messages) defined in constants.go
//
// MockServerBuilder: Fluent interface for creating mock REST servers with configurable endpoints
//
// Helper Functions: Config builders and YAML fixtures for cleaner test code
//
// # Usage Examples
//
// Creating a mock server:
//
//	server := testutil.NewMockServer().
//	    WithJSONEndpoint(testutil.TestPathItems, itemsResponse).
//	    WithErrorResponse(testutil.TestPathMissing, http.StatusNotFound).
//	    Build()
//	defer server.Close()
//
// Building a connector config pointed at it:
//
//	cfg := testutil.ConnectorConfig(server.URL, testutil.TestPathItems)
package testutil

// HTTP headers
const (
	ContentTypeHeader   = "Content-Type"
	AcceptHeader        = "Accept"
	AuthorizationHeader = "Authorization"
	RequestIDHeader     = "X-Request-ID"
)

// Common test values
const (
	ContentTypeJSON = "application/json"
	ContentTypeHTML = "text/html; charset=utf-8"
	TestAPIKey      = "Bearer test-api-key-12345678"
	TestTemplate    = "test-template"
)

// Test endpoints and paths
const (
	TestPathItems    = "/api/items"
	TestPathOrders   = "/api/orders"
	TestPathMissing  = "/api/missing"
	TestPathBroken   = "/api/broken"
	TestPathTeapot   = "/api/teapot"
	TestPathHTML     = "/page"
	TestPathMetrics  = "/metrics"
	TestBaseURL      = "https://api.example.com"
	TestAbsoluteURL  = "https://other.example.com/v2/things"
	TestServerHost   = "localhost"
	TestServerPort   = "2112"
	TestOTELEndpoint = "localhost:4317"
)

// Test error messages
const (
	TestErrorExpectedError           = "Expected error, got nil"
	TestErrorUnexpected              = "Unexpected error: %v"
	TestErrorValidateUnexpected      = "Validate() unexpected error = %v"
	TestErrorExpectedErrorContaining = "Expected error containing %q, got %q"
	TestErrorGetDataUnexpected       = "GetData() unexpected error = %v"
)

// Test log and service identifiers
const (
	TestLogName        = "test.log"
	TestServiceName    = "rest-connector-test"
	TestServiceVersion = "1.0.0-test"
)
