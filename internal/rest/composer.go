package rest

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/polku/rest_connector/internal/models"
)

// ComposeRequest builds the request descriptor for path.
//
// Absolute paths (containing "://") are used verbatim, anything else is
// appended to authConfig.url. Query entries are collected in the order start,
// end, properties; start and end are only added when both the query key is
// configured and the runtime parameter exists. Nothing is escaped.
func ComposeRequest(cfg *models.ConnectorConfig, path string) (models.RequestDescriptor, error) {
	var target string
	switch {
	case strings.Contains(path, "://"):
		target = path
	case cfg.AuthConfig.URL != "":
		target = cfg.AuthConfig.URL + path
	default:
		return models.RequestDescriptor{}, NewFetchError(http.StatusInternalServerError, "No url or path found in authConfig.", "")
	}

	desc := models.RequestDescriptor{
		Method:       http.MethodGet,
		URL:          target,
		Headers:      make(map[string]string, len(cfg.AuthConfig.Headers)),
		FullResponse: true,
	}
	for k, v := range cfg.AuthConfig.Headers {
		desc.Headers[k] = v
	}

	query := cfg.GeneralConfig.Query
	if query == nil {
		return desc, nil
	}
	if query.Start != "" {
		if v, ok := cfg.Parameter("start"); ok {
			desc.Query = append(desc.Query, models.QueryEntry{Key: query.Start, Value: fmt.Sprint(v)})
		}
	}
	if query.End != "" {
		if v, ok := cfg.Parameter("end"); ok {
			desc.Query = append(desc.Query, models.QueryEntry{Key: query.End, Value: fmt.Sprint(v)})
		}
	}
	desc.Query = append(desc.Query, query.Properties...)
	return desc, nil
}
