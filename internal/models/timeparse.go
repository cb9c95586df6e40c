package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	layoutDateTime      = "2006-01-02 15:04:05"
	layoutDateTimeShort = "2006-01-02 15:04"
	layoutLocalInput    = "2006-01-02T15:04"
	layoutLocalSeconds  = "2006-01-02T15:04:05"
)

// ParseTime accepts the timestamp shapes seen from the backend and from
// operator input. Zone-less values are interpreted in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range []string{layoutDateTime, layoutLocalSeconds, layoutLocalInput, layoutDateTimeShort} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected RFC3339, 'YYYY-MM-DDTHH:MM' or 'YYYY-MM-DD HH:MM:SS'", s)
}
