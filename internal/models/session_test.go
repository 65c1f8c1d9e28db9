package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrFloat(f float64) *float64    { return &f }
func ptrString(s string) *string     { return &s }

func TestCloseComputesConsumptionAndDuration(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	session := &ChargingSession{
		ControllerUID:  "CTRL-1",
		StartTimestamp: ptrTime(start),
		StartRealPower: ptrFloat(10000),
	}

	session.Close(CloseEvent{
		EndTimestamp: start.Add(time.Hour),
		EndRealPower: ptrFloat(12500),
	})

	require.NotNil(t, session.EndTimestamp)
	assert.Equal(t, start.Add(time.Hour), *session.EndTimestamp)
	require.NotNil(t, session.Consumption)
	assert.Equal(t, 2500.0, *session.Consumption)
	require.NotNil(t, session.Duration)
	assert.Equal(t, int64(3600), *session.Duration)
	assert.False(t, session.Open())
}

func TestCloseWithoutMeterReadingLeavesConsumptionNull(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	session := &ChargingSession{
		ControllerUID:  "CTRL-1",
		StartTimestamp: ptrTime(start),
		StartRealPower: ptrFloat(10000),
	}

	session.Close(CloseEvent{EndTimestamp: start.Add(time.Minute)})

	assert.Nil(t, session.Consumption)
	assert.Nil(t, session.EndRealPower)
	require.NotNil(t, session.Duration)
	assert.Equal(t, int64(60), *session.Duration)
}

func TestCloseKeepsRfidRecordedAtStart(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tagged := start.Add(time.Minute)
	session := &ChargingSession{
		ControllerUID:  "CTRL-1",
		StartTimestamp: ptrTime(start),
		RfidTag:        ptrString("TAG-START"),
		RfidTimestamp:  ptrTime(tagged),
	}

	session.Close(CloseEvent{
		EndTimestamp:  start.Add(time.Hour),
		RfidTag:       ptrString("TAG-END"),
		RfidTimestamp: ptrTime(start.Add(2 * time.Hour)),
	})

	require.NotNil(t, session.RfidTag)
	assert.Equal(t, "TAG-START", *session.RfidTag)
	require.NotNil(t, session.RfidTimestamp)
	assert.Equal(t, tagged, *session.RfidTimestamp)
}

func TestCloseAcceptsRfidInsideSessionWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	tagged := start.Add(30 * time.Minute)
	session := &ChargingSession{
		ControllerUID:  "CTRL-1",
		StartTimestamp: ptrTime(start),
	}

	session.Close(CloseEvent{
		EndTimestamp:  end,
		RfidTag:       ptrString("TAG-END"),
		RfidTimestamp: ptrTime(tagged),
	})

	require.NotNil(t, session.RfidTag)
	assert.Equal(t, "TAG-END", *session.RfidTag)
	require.NotNil(t, session.RfidTimestamp)
	assert.Equal(t, tagged, *session.RfidTimestamp)
}

func TestCloseDiscardsRfidOutsideSessionWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	for name, tagged := range map[string]time.Time{
		"before start": start.Add(-time.Minute),
		"after end":    end.Add(time.Minute),
	} {
		t.Run(name, func(t *testing.T) {
			session := &ChargingSession{
				ControllerUID:  "CTRL-1",
				StartTimestamp: ptrTime(start),
			}

			session.Close(CloseEvent{
				EndTimestamp:  end,
				RfidTag:       ptrString("TAG-END"),
				RfidTimestamp: ptrTime(tagged),
			})

			assert.Nil(t, session.RfidTag)
			assert.Nil(t, session.RfidTimestamp)
		})
	}
}

func TestCloseWithoutStartTimestampLeavesDurationNull(t *testing.T) {
	session := &ChargingSession{ControllerUID: "CTRL-1"}

	session.Close(CloseEvent{EndTimestamp: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)})

	assert.Nil(t, session.Duration)
	assert.NotNil(t, session.EndTimestamp)
}
