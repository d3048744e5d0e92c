package models

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v2"
)

// QueryEntry is a single query-string key/value pair.
type QueryEntry struct {
	Key   string
	Value string
}

// String renders the entry as key=value without escaping either side.
func (e QueryEntry) String() string {
	return e.Key + "=" + e.Value
}

// QueryEntries is an ordered list of query entries. Decoded from YAML it
// keeps the mapping's own key order.
type QueryEntries []QueryEntry

// UnmarshalYAML decodes a YAML mapping into ordered entries.
//
// A scalar value yields name=value. A single-entry mapping value yields its
// inner key and value, so both of these produce "fields=id,name":
//
//	properties:
//	  fields: id,name
//	  select: {fields: "id,name"}
func (q *QueryEntries) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw yaml.MapSlice
	if err := unmarshal(&raw); err != nil {
		return err
	}
	entries := make(QueryEntries, 0, len(raw))
	for _, item := range raw {
		name := fmt.Sprint(item.Key)
		switch v := item.Value.(type) {
		case yaml.MapSlice:
			if len(v) != 1 {
				return fmt.Errorf("query property %s must hold exactly one key/value pair, got %d", name, len(v))
			}
			entries = append(entries, QueryEntry{Key: fmt.Sprint(v[0].Key), Value: fmt.Sprint(v[0].Value)})
		case nil:
			entries = append(entries, QueryEntry{Key: name})
		default:
			entries = append(entries, QueryEntry{Key: name, Value: fmt.Sprint(v)})
		}
	}
	*q = entries
	return nil
}

// RequestDescriptor describes one outgoing request. It is a value: stages
// that change it work on a Clone and return the copy.
//
// Query holds entries not yet serialized into URL. Finalize moves them into
// the URL; transports only ever see finalized descriptors.
type RequestDescriptor struct {
	Method       string
	URL          string
	Headers      map[string]string
	FullResponse bool
	Query        []QueryEntry
}

// Clone returns a deep copy of the descriptor.
func (d RequestDescriptor) Clone() RequestDescriptor {
	out := d
	out.Headers = make(map[string]string, len(d.Headers))
	for k, v := range d.Headers {
		out.Headers[k] = v
	}
	if d.Query != nil {
		out.Query = append([]QueryEntry(nil), d.Query...)
	}
	return out
}

// Finalize serializes pending query entries into the URL and returns a copy
// with no pending entries.
func (d RequestDescriptor) Finalize() RequestDescriptor {
	out := d.Clone()
	out.URL = AppendQuery(d.URL, d.Query)
	out.Query = nil
	return out
}

// AppendQuery appends entries to rawURL by plain concatenation.
// The segment opens with '?' when rawURL has no '?' at all, reuses a trailing
// '?', and opens with '&' otherwise, so it never adds a second '?'. Keys
// and values are not escaped.
func AppendQuery(rawURL string, entries []QueryEntry) string {
	if len(entries) == 0 {
		return rawURL
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.String()
	}
	return rawURL + querySeparator(rawURL) + strings.Join(parts, "&")
}

// querySeparator looks at the raw string only; "a;b" or "&" count as a query.
func querySeparator(rawURL string) string {
	switch {
	case strings.HasSuffix(rawURL, "?"):
		return ""
	case strings.Contains(rawURL, "?"):
		return "&"
	default:
		return "?"
	}
}
