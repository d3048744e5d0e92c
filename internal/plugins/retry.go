package plugins

import (
	"context"
	"net/http"
	"time"

	"github.com/polku/rest_connector/internal/models"
	"github.com/polku/rest_connector/internal/rest"
)

// RetryPluginName is the registry name of the retry plugin.
const RetryPluginName = "retry"

var defaultRetryStatuses = []int{
	http.StatusUnauthorized,
	http.StatusRequestTimeout,
	http.StatusTooManyRequests,
}

// Retry recovers failures whose status is in its list, after an optional
// delay. Anything else is rejected with the original status.
type Retry struct {
	statuses map[int]struct{}
	delay    time.Duration
}

// NewRetry builds the plugin from the optional "statuses" list and "delay" duration.
func NewRetry(settings map[string]interface{}) (rest.Plugin, error) {
	statuses, err := intListSetting(settings, "statuses")
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		statuses = defaultRetryStatuses
	}
	delay, err := durationSetting(settings, "delay")
	if err != nil {
		return nil, err
	}

	r := &Retry{statuses: make(map[int]struct{}, len(statuses)), delay: delay}
	for _, s := range statuses {
		r.statuses[s] = struct{}{}
	}
	return r, nil
}

// Name returns "retry".
func (r *Retry) Name() string { return RetryPluginName }

// OnError returns nil to have the path fetched again.
func (r *Retry) OnError(ctx context.Context, _ *models.ConnectorConfig, err *rest.TransportError) error {
	if _, ok := r.statuses[err.StatusCode]; !ok {
		return rest.NewFetchError(err.StatusCode, err.Message, "retry plugin")
	}
	if r.delay <= 0 {
		return nil
	}

	timer := time.NewTimer(r.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return rest.NewFetchError(http.StatusInternalServerError, ctx.Err().Error(), "retry plugin")
	}
}
