package exporter

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/polku/rest_connector/internal/models"
	"github.com/polku/rest_connector/internal/rest"
	"github.com/polku/rest_connector/internal/testutil"
)

func newTestCollector(t *testing.T, cfg models.Config, opts ...CollectorOption) *ConnectorCollector {
	t.Helper()
	connector, err := NewConnector(cfg)
	require.NoError(t, err)
	collector := NewConnectorCollector(connector, opts...)
	t.Cleanup(func() { _ = collector.Close() })
	return collector
}

// gatherValues collects every metric once and returns the gauge values keyed
// by metric name and label values.
func gatherValues(t *testing.T, c prometheus.Collector) map[string]float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 32)
	c.Collect(ch)
	close(ch)

	values := make(map[string]float64)
	for m := range ch {
		var pb dto.Metric
		require.NoError(t, m.Write(&pb))
		name := metricName(m.Desc())
		labels := make([]string, 0, len(pb.GetLabel()))
		for _, l := range pb.GetLabel() {
			labels = append(labels, l.GetValue())
		}
		values[name+"{"+strings.Join(labels, ",")+"}"] = pb.GetGauge().GetValue()
	}
	return values
}

func metricName(desc *prometheus.Desc) string {
	s := desc.String()
	start := strings.Index(s, `fqName: "`) + len(`fqName: "`)
	end := strings.Index(s[start:], `"`)
	return s[start : start+end]
}

func TestConnectorCollectorDescribe(t *testing.T) {
	collector := newTestCollector(t, testutil.ValidConfig(testutil.TestBaseURL, testPathItems))

	ch := make(chan *prometheus.Desc, 10)
	collector.Describe(ch)
	close(ch)

	var names []string
	for desc := range ch {
		names = append(names, metricName(desc))
	}
	assert.ElementsMatch(t, []string{
		"rest_connector_items",
		"rest_connector_path_items",
		"rest_connector_fetch_success",
		"rest_connector_last_error_code",
		"rest_connector_fetch_duration_seconds",
	}, names)
}

func TestConnectorCollectorCollectSuccess(t *testing.T) {
	server := testutil.NewMockServer().
		WithJSONEndpoint(testPathItems, map[string]interface{}{"data": []int{1, 2, 3}}).
		WithJSONEndpoint(testPathOrders, []string{"a", "b"}).
		Build()
	defer server.Close()

	collector := newTestCollector(t, testutil.ValidConfig(server.URL, testPathItems, testPathOrders))
	values := gatherValues(t, collector)

	assert.Equal(t, 5.0, values["rest_connector_items{"+testTemplate+"}"])
	assert.Equal(t, 3.0, values["rest_connector_path_items{"+testTemplate+","+testPathItems+"}"])
	assert.Equal(t, 2.0, values["rest_connector_path_items{"+testTemplate+","+testPathOrders+"}"])
	assert.Equal(t, 1.0, values["rest_connector_fetch_success{"+testTemplate+"}"])
	assert.Equal(t, 0.0, values["rest_connector_last_error_code{"+testTemplate+"}"])
	assert.Contains(t, values, "rest_connector_fetch_duration_seconds{"+testTemplate+"}")
	assert.True(t, collector.IsHealthy())
}

func TestConnectorCollectorCollectFailure(t *testing.T) {
	server := testutil.NewMockServer().WithErrorResponse(testPathBroken, http.StatusServiceUnavailable).Build()
	defer server.Close()

	collector := newTestCollector(t, testutil.ValidConfig(server.URL, testPathBroken))
	values := gatherValues(t, collector)

	assert.Equal(t, 0.0, values["rest_connector_fetch_success{"+testTemplate+"}"])
	assert.Equal(t, 503.0, values["rest_connector_last_error_code{"+testTemplate+"}"])
	assert.NotContains(t, values, "rest_connector_items{"+testTemplate+"}")
	assert.False(t, collector.IsHealthy())
}

func TestConnectorCollectorServesCachedCycle(t *testing.T) {
	builder := testutil.NewMockServer().WithJSONEndpoint(testPathItems, []int{1})
	server := builder.Build()
	defer server.Close()

	collector := newTestCollector(t, testutil.ValidConfig(server.URL, testPathItems))

	gatherValues(t, collector)
	gatherValues(t, collector)
	assert.Equal(t, 1, builder.Recorder().Count(testPathItems))

	collector.Flush()
	gatherValues(t, collector)
	assert.Equal(t, 2, builder.Recorder().Count(testPathItems))
}

func TestConnectorCollectorConcurrentScrapesShareCycle(t *testing.T) {
	builder := testutil.NewMockServer().WithCustomEndpoint(testPathItems, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.Header().Set(contentTypeHeader, contentTypeJSON)
		_, _ = w.Write([]byte(`[1,2]`))
	})
	server := builder.Build()
	defer server.Close()

	collector := newTestCollector(t, testutil.ValidConfig(server.URL, testPathItems))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := make(chan prometheus.Metric, 32)
			collector.Collect(ch)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, builder.Recorder().Count(testPathItems))
}

func TestConnectorCollectorRefresh(t *testing.T) {
	builder := testutil.NewMockServer().WithJSONEndpoint(testPathItems, []int{1})
	server := builder.Build()
	defer server.Close()

	collector := newTestCollector(t, testutil.ValidConfig(server.URL, testPathItems))
	gatherValues(t, collector)

	cycle := collector.Refresh(context.Background())
	require.NoError(t, cycle.Err)
	assert.Len(t, cycle.Items, 1)
	assert.Equal(t, 2, builder.Recorder().Count(testPathItems))

	cached, ok := collector.cache.Get()
	require.True(t, ok)
	assert.Equal(t, cycle.FetchedAt, cached.FetchedAt)
}

func TestConnectorCollectorRegistry(t *testing.T) {
	server := testutil.NewMockServer().WithJSONEndpoint(testPathItems, []int{1, 2}).Build()
	defer server.Close()

	collector := newTestCollector(t, testutil.ValidConfig(server.URL, testPathItems))
	registry := prometheus.NewRegistry()
	require.NoError(t, registry.Register(collector))

	expected := `
# HELP rest_connector_items The quantity of records fetched in the last cycle
# TYPE rest_connector_items gauge
rest_connector_items{template="test-template"} 2
# HELP rest_connector_fetch_success Whether the last fetch cycle succeeded
# TYPE rest_connector_fetch_success gauge
rest_connector_fetch_success{template="test-template"} 1
`
	err := promtestutil.GatherAndCompare(registry, strings.NewReader(expected),
		"rest_connector_items", "rest_connector_fetch_success")
	assert.NoError(t, err)
}

func TestConnectorCollectorScrapeSpan(t *testing.T) {
	server := testutil.NewMockServer().WithJSONEndpoint(testPathItems, []int{1}).Build()
	defer server.Close()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	collector := newTestCollector(t, testutil.ValidConfig(server.URL, testPathItems),
		WithCollectorTracerProvider(provider))

	gatherValues(t, collector)
	gatherValues(t, collector)

	var scrapes []sdktrace.ReadOnlySpan
	for _, s := range recorder.Ended() {
		if s.Name() == "prometheus.scrape" {
			scrapes = append(scrapes, s)
		}
	}
	require.Len(t, scrapes, 2)

	attr := func(s sdktrace.ReadOnlySpan, key string) interface{} {
		for _, kv := range s.Attributes() {
			if string(kv.Key) == key {
				return kv.Value.AsInterface()
			}
		}
		return nil
	}
	assert.Equal(t, false, attr(scrapes[0], "scrape.cached"))
	assert.Equal(t, true, attr(scrapes[1], "scrape.cached"))

	age, ok := attr(scrapes[1], "scrape.cycle_age_ms").(int64)
	require.True(t, ok, "cached scrape should report the age of the cycle it served")
	assert.GreaterOrEqual(t, age, int64(0))
	assert.Less(t, age, int64(collector.cache.TTL()/time.Millisecond))
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, 500, errorCode(assert.AnError))
	assert.Equal(t, 404, errorCode(rest.NewFetchError(404, "missing", "")))
}
