package models

import "time"

// ChargingController is one physical charging point under a charger. The
// device-supplied UID is the primary key; telemetry upserts are keyed on it.
type ChargingController struct {
	DeviceUID         string  `db:"device_uid" json:"device_uid"`
	ChargingPointID   *string `db:"charging_point_id" json:"charging_point_id"`
	ChargingPointName *string `db:"charging_point_name" json:"charging_point_name"`
	DeviceName        *string `db:"device_name" json:"device_name"`
	ParentDeviceUID   *string `db:"parent_device_uid" json:"parent_device_uid"`
	Position          *int    `db:"position" json:"position"`
	FirmwareVersion   *string `db:"firmware_version" json:"firmware_version"`
	HardwareVersion   *string `db:"hardware_version" json:"hardware_version"`
	ChargerID         int64   `db:"charger_id" json:"charger_id"`
}

// ControllerData is the latest-known telemetry snapshot for a controller.
// One row per controller, replaced on every push; not historical.
type ControllerData struct {
	ControllerUID       string    `db:"controller_uid" json:"controller_uid"`
	Iec61851State       *string   `db:"iec_61851_state" json:"iec_61851_state"`
	ConnectedState      *string   `db:"connected_state" json:"connected_state"`
	ApparentEnergy      *float64  `db:"apparent_energy" json:"apparent_energy"`
	EnergyRealPower     *float64  `db:"energy_real_power" json:"energy_real_power"`
	Frequency           *float64  `db:"frequency" json:"frequency"`
	PartApparentEnergy  *float64  `db:"part_apparent_energy" json:"part_apparent_energy"`
	PartEnergyRealPower *float64  `db:"part_energy_real_power" json:"part_energy_real_power"`
	ApparentPower       *float64  `db:"apparent_power" json:"apparent_power"`
	RealPower           *float64  `db:"real_power" json:"real_power"`
	I1                  *float64  `db:"i1" json:"i1"`
	I2                  *float64  `db:"i2" json:"i2"`
	I3                  *float64  `db:"i3" json:"i3"`
	U1                  *float64  `db:"u1" json:"u1"`
	U2                  *float64  `db:"u2" json:"u2"`
	U3                  *float64  `db:"u3" json:"u3"`
	ConnectedTimeSec    *int64    `db:"connected_time_sec" json:"connected_time_sec"`
	ChargeTimeSec       *int64    `db:"charge_time_sec" json:"charge_time_sec"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}
