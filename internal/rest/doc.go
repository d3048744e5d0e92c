// Package rest is the fetch engine of the REST connector.
//
// Given a connector descriptor and a list of resource paths it fetches each
// resource in order, runs the plugin pipeline around every request, classifies
// transport failures and recovers from them at most once per path, and returns
// the handled payloads.
//
// # Key Components
//
// ComposeRequest: builds the request descriptor for one path from the
// connector's base URL, headers and query mapping.
//
// Pipeline: dispatches the request, error and data-manipulation hooks of the
// configured plugins in list order.
//
// Classify: sorts a failed status code into not-found, connection-fatal or
// recoverable.
//
// Fetcher: executes single paths (RequestData) and whole path lists (GetData).
//
// # Usage Example
//
//	fetcher := rest.NewFetcher(&cfg.Connector, client, handler,
//	    rest.WithPlugins(plugins...),
//	    rest.WithLogger(logging.NewFetchLogger(cfg.Connector.Template())),
//	)
//	items, err := fetcher.GetData(ctx, cfg.Connector.Paths)
//	if fe, ok := rest.AsFetchError(err); ok {
//	    log.Errorf("fetch failed with %d: %s", fe.HTTPStatusCode, fe.Message)
//	}
package rest
