package service

import (
	"errors"
	"strings"
	"time"
)

// ErrBadTimestamp indicates a telemetry timestamp in none of the accepted shapes.
var ErrBadTimestamp = errors.New("unrecognized timestamp format")

// Charger firmware pushes timestamps in a handful of loose shapes: RFC 3339,
// RFC 3339 without the zone suffix, and "2006-01-02 15:04:05" with a space
// instead of the T. The set is fixed here at the boundary; unzoned values are
// taken as UTC.
var telemetryLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999Z07:00",
	"2006-01-02T15:04:05.999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
	"2006-01-02 15:04:05",
}

// ParseTelemetryTime normalizes a telemetry timestamp string to UTC.
func ParseTelemetryTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrBadTimestamp
	}
	for _, layout := range telemetryLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, ErrBadTimestamp
}

// ParseOptionalTelemetryTime parses a possibly-absent timestamp field.
func ParseOptionalTelemetryTime(value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	ts, err := ParseTelemetryTime(*value)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}
