package gateway

import (
	"fmt"
	"strings"
	"time"

	"aquarium_dashboard/internal/models"

	"github.com/spf13/cast"
)

// The backend is loosely typed: numbers sometimes arrive as strings and
// field names drift between snake_case and camelCase. Helpers below accept
// the first present key among aliases.

func lookup(m map[string]interface{}, keys ...string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
				continue
			}
			return v, true
		}
	}
	return nil, false
}

func optFloat(m map[string]interface{}, keys ...string) (*float64, error) {
	v, ok := lookup(m, keys...)
	if !ok {
		return nil, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", keys[0], err)
	}
	return &f, nil
}

func floatOrZero(m map[string]interface{}, keys ...string) (float64, error) {
	f, err := optFloat(m, keys...)
	if err != nil || f == nil {
		return 0, err
	}
	return *f, nil
}

func intOrZero(m map[string]interface{}, keys ...string) (int, error) {
	f, err := optFloat(m, keys...)
	if err != nil || f == nil {
		return 0, err
	}
	return int(*f), nil
}

func stringOf(m map[string]interface{}, keys ...string) string {
	v, ok := lookup(m, keys...)
	if !ok {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

// parseTimestamp accepts time strings and epoch seconds or milliseconds.
func parseTimestamp(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case string:
		if f, err := cast.ToFloat64E(t); err == nil {
			return fromEpoch(f), nil
		}
		return models.ParseTime(t, time.UTC)
	case float64, int, int64, float32:
		return fromEpoch(cast.ToFloat64(t)), nil
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %T", v)
}

func fromEpoch(f float64) time.Time {
	if f > 1e12 {
		return time.UnixMilli(int64(f)).UTC()
	}
	return time.Unix(int64(f), 0).UTC()
}

// formatFeedTime is the wire form of a scheduled time; it is also the string
// the backend keys the event by.
func formatFeedTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
