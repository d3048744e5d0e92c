// Package response implements the downstream stage of a fetch: wrapping each
// parsed body into an Item and optionally persisting it.
package response

import (
	"context"
	"time"

	"github.com/polku/rest_connector/internal/models"
)

// Item is the per-path result produced by Handler.
type Item struct {
	Template  string      `json:"template"`
	Path      string      `json:"path"`
	Index     int         `json:"index"`
	FetchedAt time.Time   `json:"fetchedAt"`
	Data      interface{} `json:"data"`
}

// Handler is the default response handler. It implements rest.ResponseHandler.
type Handler struct {
	now func() time.Time
}

// NewHandler returns a Handler stamping items with the current UTC time.
func NewHandler() *Handler {
	return &Handler{now: func() time.Time { return time.Now().UTC() }}
}

// HandleData wraps data into an *Item. A nil body yields nil so the path is
// left out of the result sequence.
func (h *Handler) HandleData(_ context.Context, cfg *models.ConnectorConfig, path string, index int, data interface{}) (interface{}, error) {
	if data == nil {
		return nil, nil
	}
	return &Item{
		Template:  cfg.Template(),
		Path:      path,
		Index:     index,
		FetchedAt: h.now(),
		Data:      data,
	}, nil
}
