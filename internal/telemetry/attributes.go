package telemetry

// HTTP semantic convention attributes
const (
	AttrHTTPMethod                = "http.method"
	AttrHTTPURL                   = "http.url"
	AttrHTTPStatusCode            = "http.status_code"
	AttrHTTPResponseContentLength = "http.response_content_length"
	AttrHTTPDurationMS            = "http.duration_ms"
)

// Connector attributes
const (
	AttrConnectorTemplate   = "connector.template"
	AttrConnectorPath       = "connector.path"
	AttrConnectorPathIndex  = "connector.path_index"
	AttrConnectorPathCount  = "connector.path_count"
	AttrConnectorAttempt    = "connector.attempt"
	AttrConnectorItems      = "connector.items"
	AttrConnectorErrorClass = "connector.error_class"
	AttrConnectorPlugin     = "connector.plugin"
)

// Scrape cycle attributes
const (
	AttrScrapeDurationMS = "scrape.duration_ms"
	AttrScrapeCached     = "scrape.cached"
	AttrScrapeStatus     = "scrape.status"
	AttrScrapeCycleAgeMS = "scrape.cycle_age_ms"
)

// Error attributes
const (
	AttrError = "error"
)
