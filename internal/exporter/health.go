package exporter

import (
	"context"
	"fmt"
	"time"
)

// healthCheckTimeout is the default timeout for connectivity tests.
const healthCheckTimeout = 5 * time.Second

// TestConnectivity verifies the target system is reachable.
// It pings the base URL with a short timeout (5s) unless ctx already has a
// deadline. Returns nil if the target answered at all.
func (c *ConnectorCollector) TestConnectivity(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()
	}

	if err := c.connector.Client().Ping(ctx); err != nil {
		return fmt.Errorf("%s connectivity test failed: %w", c.template, err)
	}
	return nil
}

// IsHealthy returns true if at least one fetch cycle has succeeded.
// This is a quick check without making an API call.
func (c *ConnectorCollector) IsHealthy() bool {
	c.scrapeMu.RLock()
	defer c.scrapeMu.RUnlock()
	return !c.lastSuccessTime.IsZero()
}

// LastSuccess returns when the last successful cycle started.
func (c *ConnectorCollector) LastSuccess() time.Time {
	c.scrapeMu.RLock()
	defer c.scrapeMu.RUnlock()
	return c.lastSuccessTime
}
