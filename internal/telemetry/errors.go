package telemetry

// Error message templates for operator-facing failures. Each template names
// the likely causes and what to check, followed by the request context.
const (
	// ErrConnectionFatalTemplate is logged when a path fails with a connection-class status
	ErrConnectionFatalTemplate = `%s: request to %s failed with HTTP %d, treated as a connection failure.

Connection-class statuses (500, 502, 503, 504, 522) are never retried and
never offered to plugins. This usually indicates:
1. The target system or a proxy in front of it is down
2. The request timed out upstream (522)
3. authConfig.url points at the wrong host

Message: %s`

	// ErrUnrecoverableTemplate is logged when no plugin can handle a failure
	ErrUnrecoverableTemplate = `%s: request to %s failed with HTTP %d and no plugin handles errors.

Add an error-handling plugin (for example "retry") to the connector's plugin
list if this status is expected to be transient.

Message: %s`

	// ErrNonJSONResponseTemplate is logged when a body cannot be decoded as JSON
	ErrNonJSONResponseTemplate = `%s: response from %s is not valid JSON (Content-Type: %s).

The payload is handed on as empty. Configure a data-manipulation plugin
(for example "html") if this endpoint does not return JSON.

Response preview: %s`
)
