package rest

import (
	"errors"
	"fmt"
	"net/http"
)

const defaultFetchErrorMessage = "Internal Server Error."

// FetchError is the failure shape surfaced to callers of the engine.
type FetchError struct {
	HTTPStatusCode int
	Message        string
	// Reference optionally names the cause, such as the plugin that rejected the fetch.
	Reference string
}

// NewFetchError builds a FetchError. A zero code becomes 500 and an empty
// message becomes "Internal Server Error.".
func NewFetchError(code int, message, reference string) *FetchError {
	if code == 0 {
		code = http.StatusInternalServerError
	}
	if message == "" {
		message = defaultFetchErrorMessage
	}
	return &FetchError{HTTPStatusCode: code, Message: message, Reference: reference}
}

// Error implements error.
func (e *FetchError) Error() string {
	if e.Reference != "" {
		return fmt.Sprintf("fetch failed with status %d: %s (%s)", e.HTTPStatusCode, e.Message, e.Reference)
	}
	return fmt.Sprintf("fetch failed with status %d: %s", e.HTTPStatusCode, e.Message)
}

// AsFetchError extracts a *FetchError from err's chain.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// toFetchError passes FetchErrors through and wraps anything else with code.
func toFetchError(err error, code int) *FetchError {
	if fe, ok := AsFetchError(err); ok {
		return fe
	}
	return NewFetchError(code, err.Error(), "")
}

// TransportError is returned by transports when a request fails. StatusCode
// is zero when no HTTP response was received.
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements error.
func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("transport failure: %s", e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Unwrap returns the underlying network error, if any.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// asTransportError normalizes any transport failure into a *TransportError.
func asTransportError(err error) *TransportError {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	return &TransportError{Message: err.Error(), Err: err}
}

// ErrorClass is the recovery tier of a failed request.
type ErrorClass int

const (
	// ClassRecoverable failures are offered to the first error-handling plugin.
	ClassRecoverable ErrorClass = iota
	// ClassNotFound failures resolve to an empty result.
	ClassNotFound
	// ClassConnectionFatal failures abort the fetch without plugin involvement.
	ClassConnectionFatal
)

// String returns the class name used in span attributes.
func (c ErrorClass) String() string {
	switch c {
	case ClassNotFound:
		return "not_found"
	case ClassConnectionFatal:
		return "connection_fatal"
	default:
		return "recoverable"
	}
}

// Classify returns the recovery tier for a failed request's status code.
func Classify(statusCode int) ErrorClass {
	switch statusCode {
	case http.StatusNotFound, http.StatusBadRequest:
		return ClassNotFound
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		StatusConnectionTimedOut:
		return ClassConnectionFatal
	default:
		return ClassRecoverable
	}
}

// StatusConnectionTimedOut is the non-standard 522 status used when a
// transport returns neither a response nor an error.
const StatusConnectionTimedOut = 522
