package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/polku/rest_connector/internal/response"
)

func TestPathMetricKey(t *testing.T) {
	k := PathMetricKey{Template: "orders", Path: "/v1/orders"}
	assert.Equal(t, "orders|/v1/orders", k.String())
	assert.Equal(t, []string{"orders", "/v1/orders"}, k.Labels())
}

func TestItemCount(t *testing.T) {
	tests := []struct {
		name string
		item interface{}
		want int
	}{
		{name: "list item", item: &response.Item{Data: []interface{}{1, 2, 3}}, want: 3},
		{name: "envelope item", item: &response.Item{Data: map[string]interface{}{"data": []interface{}{1, 2}}}, want: 2},
		{name: "object item", item: &response.Item{Data: map[string]interface{}{"id": 1}}, want: 1},
		{name: "raw list", item: []interface{}{1, 2}, want: 2},
		{name: "raw scalar", item: "x", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, itemCount(tt.item))
		})
	}
}

func TestCountByPath(t *testing.T) {
	items := []interface{}{
		&response.Item{Path: "/a", Data: []interface{}{1, 2}},
		&response.Item{Path: "/b", Data: map[string]interface{}{"id": 1}},
		"raw",
	}

	perPath, total := countByPath("orders", items)
	assert.Equal(t, 4.0, total)
	assert.Equal(t, map[PathMetricKey]float64{
		{Template: "orders", Path: "/a"}:        2,
		{Template: "orders", Path: "/b"}:        1,
		{Template: "orders", Path: unknownPath}: 1,
	}, perPath)
}
