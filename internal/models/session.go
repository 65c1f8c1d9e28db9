package models

import "time"

// ChargingSession is one start-to-stop charge event on a controller.
// A row with a null end timestamp is the controller's open session; the
// schema guarantees at most one such row per controller.
type ChargingSession struct {
	ID             int64      `db:"id" json:"id"`
	ControllerUID  string     `db:"controller_uid" json:"controller_uid"`
	StartTimestamp *time.Time `db:"start_timestamp" json:"start_timestamp"`
	EndTimestamp   *time.Time `db:"end_timestamp" json:"end_timestamp"`
	StartRealPower *float64   `db:"start_real_power" json:"start_real_power_wh"`
	EndRealPower   *float64   `db:"end_real_power" json:"end_real_power_wh"`
	Consumption    *float64   `db:"consumption" json:"consumption_wh"`
	Duration       *int64     `db:"duration" json:"duration_sec"`
	RfidTag        *string    `db:"rfid_tag" json:"rfid_tag"`
	RfidTimestamp  *time.Time `db:"rfid_timestamp" json:"rfid_timestamp"`
}

// Open reports whether the session has not been closed yet.
func (s *ChargingSession) Open() bool {
	return s.EndTimestamp == nil
}

// CloseEvent carries the fields of an end telemetry push.
type CloseEvent struct {
	EndTimestamp  time.Time
	EndRealPower  *float64
	RfidTag       *string
	RfidTimestamp *time.Time
}

// Close applies an end event to an open session.
//
// RFID reconciliation: a tag recorded at session open is immutable — incoming
// RFID fields are ignored. When the session has no tag yet, the incoming RFID
// timestamp must fall inside [start, end]; otherwise both incoming RFID
// fields are discarded and the session closes with null RFID data.
func (s *ChargingSession) Close(ev CloseEvent) {
	tag, ts := ev.RfidTag, ev.RfidTimestamp
	if s.RfidTag != nil || s.RfidTimestamp != nil {
		tag, ts = s.RfidTag, s.RfidTimestamp
	} else if ts != nil && s.StartTimestamp != nil {
		if ts.Before(*s.StartTimestamp) || ts.After(ev.EndTimestamp) {
			tag, ts = nil, nil
		}
	}
	s.RfidTag, s.RfidTimestamp = tag, ts

	s.EndRealPower = ev.EndRealPower
	s.Consumption = nil
	if ev.EndRealPower != nil && s.StartRealPower != nil {
		consumption := *ev.EndRealPower - *s.StartRealPower
		s.Consumption = &consumption
	}

	end := ev.EndTimestamp
	s.EndTimestamp = &end
	if s.StartTimestamp != nil {
		duration := int64(end.Sub(*s.StartTimestamp) / time.Second)
		s.Duration = &duration
	}
}
