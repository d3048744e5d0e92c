package plugins

import (
	"fmt"
	"strconv"
	"time"
)

// Settings decoded by yaml.v2 arrive as map[interface{}]interface{} for
// nested mappings and []interface{} for lists; these helpers accept both
// those and their string-keyed equivalents.

func stringSetting(settings map[string]interface{}, key string) (string, error) {
	v, ok := settings[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("setting %s must be a string, got %T", key, v)
	}
	return s, nil
}

func durationSetting(settings map[string]interface{}, key string) (time.Duration, error) {
	s, err := stringSetting(settings, key)
	if err != nil || s == "" {
		return 0, err
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("setting %s: %w", key, err)
	}
	return d, nil
}

func intListSetting(settings map[string]interface{}, key string) ([]int, error) {
	v, ok := settings[key]
	if !ok || v == nil {
		return nil, nil
	}
	items, ok := v.([]interface{})
	if !ok {
		if ints, isInts := v.([]int); isInts {
			return ints, nil
		}
		return nil, fmt.Errorf("setting %s must be a list, got %T", key, v)
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		switch n := item.(type) {
		case int:
			out = append(out, n)
		case string:
			i, err := strconv.Atoi(n)
			if err != nil {
				return nil, fmt.Errorf("setting %s: %w", key, err)
			}
			out = append(out, i)
		default:
			return nil, fmt.Errorf("setting %s: unsupported item %v (%T)", key, item, item)
		}
	}
	return out, nil
}

func stringMapSetting(settings map[string]interface{}, key string) (map[string]string, error) {
	v, ok := settings[key]
	if !ok || v == nil {
		return nil, nil
	}
	out := make(map[string]string)
	switch m := v.(type) {
	case map[interface{}]interface{}:
		for k, val := range m {
			out[fmt.Sprint(k)] = fmt.Sprint(val)
		}
	case map[string]interface{}:
		for k, val := range m {
			out[k] = fmt.Sprint(val)
		}
	case map[string]string:
		for k, val := range m {
			out[k] = val
		}
	default:
		return nil, fmt.Errorf("setting %s must be a mapping, got %T", key, v)
	}
	return out, nil
}
