package plugins

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/polku/rest_connector/internal/rest"
)

// HTMLPluginName is the registry name of the html plugin.
const HTMLPluginName = "html"

// HTML parses bodies as HTML and returns the text of every node matching
// selector, or the value of attr when set. Nodes without attr are skipped.
type HTML struct {
	selector string
	attr     string
}

// NewHTML builds the plugin from the required "selector" and optional "attr" settings.
func NewHTML(settings map[string]interface{}) (rest.Plugin, error) {
	selector, err := stringSetting(settings, "selector")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(selector) == "" {
		return nil, errors.New("html plugin requires a selector")
	}
	attr, err := stringSetting(settings, "attr")
	if err != nil {
		return nil, err
	}
	return &HTML{selector: selector, attr: attr}, nil
}

// Name returns "html".
func (h *HTML) Name() string { return HTMLPluginName }

// DataManipulation returns the matched values as a list, in document order.
func (h *HTML) DataManipulation(_ context.Context, body []byte) (interface{}, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	values := make([]interface{}, 0)
	doc.Find(h.selector).Each(func(_ int, s *goquery.Selection) {
		if h.attr == "" {
			values = append(values, strings.TrimSpace(s.Text()))
			return
		}
		if v, ok := s.Attr(h.attr); ok {
			values = append(values, strings.TrimSpace(v))
		}
	})
	return values, nil
}
