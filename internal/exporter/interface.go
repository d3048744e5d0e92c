package exporter

import (
	"context"

	"github.com/polku/rest_connector/internal/rest"
)

// ConnectorClient is the transport used by a Connector. It abstracts the
// HTTP client so collectors and commands can be tested against fakes.
//
// The primary implementation is RestClient, which uses Resty for HTTP communication.
type ConnectorClient interface {
	rest.Transport

	// Ping reports whether the target system is reachable.
	Ping(ctx context.Context) error

	// Close releases idle connections once in-flight requests finish.
	Close() error
}

var _ ConnectorClient = (*RestClient)(nil)
