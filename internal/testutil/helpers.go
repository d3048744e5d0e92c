// Package testutil provides shared test utilities and helper functions.
// This file contains fluent builders and common test helpers to reduce
// duplication across test files and improve test maintainability.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/polku/rest_connector/internal/models"
)

// MockServerBuilder provides a fluent interface for creating mock REST servers.
// Every request is recorded so tests can assert on what the connector sent.
//
// Example usage:
//
//	server := testutil.NewMockServer().
//	    WithJSONEndpoint(testutil.TestPathItems, items).
//	    Build()
//	defer server.Close()
type MockServerBuilder struct {
	handlers map[string]http.HandlerFunc
	useTLS   bool
	recorder *RequestRecorder
}

// RequestRecorder keeps every request received by a mock server.
type RequestRecorder struct {
	mu       sync.Mutex
	requests []*http.Request
}

// Requests returns a snapshot of the recorded requests.
func (r *RequestRecorder) Requests() []*http.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*http.Request(nil), r.requests...)
}

// Count returns how many requests hit path.
func (r *RequestRecorder) Count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, req := range r.requests {
		if req.URL.Path == path {
			n++
		}
	}
	return n
}

func (r *RequestRecorder) record(req *http.Request) {
	r.mu.Lock()
	r.requests = append(r.requests, req.Clone(req.Context()))
	r.mu.Unlock()
}

// NewMockServer creates a new MockServerBuilder.
func NewMockServer() *MockServerBuilder {
	return &MockServerBuilder{
		handlers: make(map[string]http.HandlerFunc),
		recorder: &RequestRecorder{},
	}
}

// WithTLS enables TLS for the mock server.
func (b *MockServerBuilder) WithTLS() *MockServerBuilder {
	b.useTLS = true
	return b
}

// WithJSONEndpoint adds a handler that answers path with response encoded as JSON.
func (b *MockServerBuilder) WithJSONEndpoint(path string, response interface{}) *MockServerBuilder {
	b.handlers[path] = func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(w, response)
	}
	return b
}

// WithRawEndpoint adds a handler that answers path with body verbatim.
func (b *MockServerBuilder) WithRawEndpoint(path, contentType, body string) *MockServerBuilder {
	b.handlers[path] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(ContentTypeHeader, contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}
	return b
}

// WithCustomEndpoint adds a custom handler for the specified path.
func (b *MockServerBuilder) WithCustomEndpoint(path string, handler http.HandlerFunc) *MockServerBuilder {
	b.handlers[path] = handler
	return b
}

// WithErrorResponse adds a handler that returns the specified HTTP status code.
func (b *MockServerBuilder) WithErrorResponse(path string, statusCode int) *MockServerBuilder {
	b.handlers[path] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statusCode)
		if statusCode >= 400 {
			writeJSONResponse(w, map[string]string{
				"errorMessage": http.StatusText(statusCode),
			})
		}
	}
	return b
}

// WithFlakyEndpoint adds a handler that fails with statusCode for the first
// failures requests to path and then answers with response.
func (b *MockServerBuilder) WithFlakyEndpoint(path string, statusCode, failures int, response interface{}) *MockServerBuilder {
	var mu sync.Mutex
	calls := 0
	b.handlers[path] = func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n <= failures {
			w.WriteHeader(statusCode)
			writeJSONResponse(w, map[string]string{"errorMessage": http.StatusText(statusCode)})
			return
		}
		writeJSONResponse(w, response)
	}
	return b
}

// Recorder returns the request recorder shared with the built server.
func (b *MockServerBuilder) Recorder() *RequestRecorder {
	return b.recorder
}

// Build creates and returns the configured HTTP test server.
func (b *MockServerBuilder) Build() *httptest.Server {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.recorder.record(r)
		if handler, ok := b.handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		writeJSONResponse(w, map[string]string{
			"errorMessage": "Endpoint not found",
		})
	})

	if b.useTLS {
		return httptest.NewTLSServer(handler)
	}
	return httptest.NewServer(handler)
}

// ConnectorConfig returns a connector descriptor targeting baseURL with the given paths.
func ConnectorConfig(baseURL string, paths ...string) models.ConnectorConfig {
	return models.ConnectorConfig{
		AuthConfig: models.AuthConfig{
			URL:      baseURL,
			Template: TestTemplate,
			Headers:  map[string]string{AuthorizationHeader: TestAPIKey},
		},
		Paths: paths,
	}
}

// ValidConfig returns a complete application config that passes Validate().
func ValidConfig(baseURL string, paths ...string) models.Config {
	var cfg models.Config
	cfg.Server.Host = TestServerHost
	cfg.Server.Port = TestServerPort
	cfg.Server.URI = TestPathMetrics
	cfg.Server.ScrapingInterval = "5m"
	cfg.Connector = ConnectorConfig(baseURL, paths...)
	return cfg
}

// WriteConfigFile writes content to a config.yaml under a fresh temp dir and returns its path.
func WriteConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := t.TempDir() + "/config.yaml"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

// LoadTestData loads test data from a file.
func LoadTestData(t *testing.T, filename string) []byte {
	t.Helper()
	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("Failed to read test data file %s: %v", filename, err)
	}
	return data
}

// writeJSONResponse writes a JSON response to the ResponseWriter.
func writeJSONResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set(ContentTypeHeader, ContentTypeJSON)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// AssertContains is a helper that fails the test if the string doesn't contain the substring.
func AssertContains(t *testing.T, s, substr string, msgAndArgs ...interface{}) {
	t.Helper()
	if !strings.Contains(s, substr) {
		if len(msgAndArgs) > 0 {
			format := msgAndArgs[0].(string)
			t.Fatalf(format, msgAndArgs[1:]...)
		} else {
			t.Fatalf("String %q does not contain %q", s, substr)
		}
	}
}
