package rest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/polku/rest_connector/internal/models"
)

// fakeTransport answers by URL. Each URL holds a queue of outcomes; the last
// one repeats once the queue is drained.
type fakeTransport struct {
	mu       sync.Mutex
	outcomes map[string][]outcome
	calls    []models.RequestDescriptor
}

type outcome struct {
	resp *Response
	err  error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{outcomes: make(map[string][]outcome)}
}

func (t *fakeTransport) ok(url, body string) *fakeTransport {
	t.outcomes[url] = append(t.outcomes[url], outcome{resp: &Response{StatusCode: 200, Body: []byte(body)}})
	return t
}

func (t *fakeTransport) fail(url string, status int) *fakeTransport {
	t.outcomes[url] = append(t.outcomes[url], outcome{err: &TransportError{StatusCode: status, Message: fmt.Sprintf("status %d", status)}})
	return t
}

func (t *fakeTransport) null(url string) *fakeTransport {
	t.outcomes[url] = append(t.outcomes[url], outcome{})
	return t
}

func (t *fakeTransport) Do(_ context.Context, desc models.RequestDescriptor) (*Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, desc)

	key := desc.URL
	if i := strings.Index(key, "?"); i >= 0 {
		key = key[:i]
	}
	queue, ok := t.outcomes[key]
	if !ok || len(queue) == 0 {
		return nil, errors.New("dial tcp: connection refused")
	}
	next := queue[0]
	if len(queue) > 1 {
		t.outcomes[key] = queue[1:]
	}
	return next.resp, next.err
}

func (t *fakeTransport) callCount(url string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.calls {
		if strings.HasPrefix(c.URL, url) {
			n++
		}
	}
	return n
}

// recordingLogger keeps every entry as "level|message".
type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *recordingLogger) Log(level, message string) {
	l.mu.Lock()
	l.entries = append(l.entries, level+"|"+message)
	l.mu.Unlock()
}

func (l *recordingLogger) contains(level, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if strings.HasPrefix(e, level+"|") && strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

type namedPlugin struct{ name string }

func (p namedPlugin) Name() string { return p.name }

type headerHook struct {
	namedPlugin
	key, value string
}

func (h headerHook) Request(_ context.Context, _ *models.ConnectorConfig, desc models.RequestDescriptor) (models.RequestDescriptor, error) {
	desc.Headers[h.key] = desc.Headers[h.key] + h.value
	return desc, nil
}

type failingRequestHook struct{ namedPlugin }

func (failingRequestHook) Request(_ context.Context, _ *models.ConnectorConfig, desc models.RequestDescriptor) (models.RequestDescriptor, error) {
	return desc, errors.New("signing key unavailable")
}

// errorHook counts invocations and returns verdict.
type errorHook struct {
	namedPlugin
	mu      sync.Mutex
	calls   int
	seen    []int
	verdict error
}

func (h *errorHook) OnError(_ context.Context, _ *models.ConnectorConfig, err *TransportError) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	h.seen = append(h.seen, err.StatusCode)
	return h.verdict
}

type upperManipulator struct{ namedPlugin }

func (upperManipulator) DataManipulation(_ context.Context, body []byte) (interface{}, error) {
	return strings.ToUpper(string(body)), nil
}
