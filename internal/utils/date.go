// Package utils provides small helpers shared by the CLI and the exporter:
// configuration file loading and fetch time-window formatting.
package utils

import (
	"time"
)

// FormatTime renders t as RFC3339Nano, the format used for start/end parameters.
func FormatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// TimeWindow returns the start and end of the window of length interval
// ending at now.
func TimeWindow(now time.Time, interval time.Duration) (start, end string) {
	return FormatTime(now.Add(-interval)), FormatTime(now)
}
