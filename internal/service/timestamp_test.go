package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTelemetryTimeAcceptedShapes(t *testing.T) {
	expected := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

	for _, value := range []string{
		"2026-03-01T10:30:00Z",
		"2026-03-01T10:30:00",
		"2026-03-01 10:30:00",
	} {
		parsed, err := ParseTelemetryTime(value)
		require.NoError(t, err, value)
		assert.Equal(t, expected, parsed, value)
	}
}

func TestParseTelemetryTimeKeepsExplicitZone(t *testing.T) {
	parsed, err := ParseTelemetryTime("2026-03-01T12:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC), parsed)
}

func TestParseTelemetryTimeFractionalSeconds(t *testing.T) {
	parsed, err := ParseTelemetryTime("2026-03-01 10:30:00.250")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 30, 0, 250000000, time.UTC), parsed)
}

func TestParseTelemetryTimeRejectsGarbage(t *testing.T) {
	for _, value := range []string{"", "yesterday", "01/03/2026", "1709287800"} {
		_, err := ParseTelemetryTime(value)
		assert.ErrorIs(t, err, ErrBadTimestamp, value)
	}
}

func TestParseOptionalTelemetryTime(t *testing.T) {
	parsed, err := ParseOptionalTelemetryTime(nil)
	require.NoError(t, err)
	assert.Nil(t, parsed)

	empty := "  "
	parsed, err = ParseOptionalTelemetryTime(&empty)
	require.NoError(t, err)
	assert.Nil(t, parsed)

	value := "2026-03-01T10:30:00"
	parsed, err = ParseOptionalTelemetryTime(&value)
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC), *parsed)

	bad := "not a timestamp"
	_, err = ParseOptionalTelemetryTime(&bad)
	assert.ErrorIs(t, err, ErrBadTimestamp)
}
