package exporter

import (
	"github.com/polku/rest_connector/internal/response"
)

// PathMetricKey is the label set of the per-path item gauge.
type PathMetricKey struct {
	Template string
	Path     string
}

// String returns a string representation for map keys.
func (k PathMetricKey) String() string {
	return k.Template + "|" + k.Path
}

// Labels returns the metric labels as a slice.
func (k PathMetricKey) Labels() []string {
	return []string{k.Template, k.Path}
}

// itemCount is the number of records an item stands for: the length of a
// list payload, otherwise one.
func itemCount(item interface{}) int {
	data := item
	if it, ok := item.(*response.Item); ok {
		data = it.Data
	}
	switch v := data.(type) {
	case []interface{}:
		return len(v)
	case map[string]interface{}:
		if inner, ok := v["data"].([]interface{}); ok {
			return len(inner)
		}
	}
	return 1
}

// countByPath totals itemCount per path. Items that do not carry their path
// are counted under unknownPath.
func countByPath(template string, items []interface{}) (map[PathMetricKey]float64, float64) {
	perPath := make(map[PathMetricKey]float64)
	var total float64
	for _, item := range items {
		n := float64(itemCount(item))
		total += n
		path := unknownPath
		if it, ok := item.(*response.Item); ok {
			path = it.Path
		}
		perPath[PathMetricKey{Template: template, Path: path}] += n
	}
	return perPath, total
}

const unknownPath = "unknown"
