package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chargehub/internal/models"
)

const controllerColumns = `device_uid, charging_point_id, charging_point_name, device_name,
		parent_device_uid, position, firmware_version, hardware_version, charger_id`

// ControllerRepository handles charging controllers and their telemetry snapshots.
type ControllerRepository struct {
	db *sql.DB
}

// NewControllerRepository returns repository.
func NewControllerRepository(db *sql.DB) *ControllerRepository {
	return &ControllerRepository{db: db}
}

func scanController(row interface{ Scan(...interface{}) error }) (*models.ChargingController, error) {
	var c models.ChargingController
	err := row.Scan(
		&c.DeviceUID,
		&c.ChargingPointID,
		&c.ChargingPointName,
		&c.DeviceName,
		&c.ParentDeviceUID,
		&c.Position,
		&c.FirmwareVersion,
		&c.HardwareVersion,
		&c.ChargerID,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByUID returns one controller.
func (r *ControllerRepository) GetByUID(ctx context.Context, deviceUID string) (*models.ChargingController, error) {
	query := fmt.Sprintf(`SELECT %s FROM charging_controllers WHERE device_uid = $1`, controllerColumns)
	controller, err := scanController(r.db.QueryRowContext(ctx, query, deviceUID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return controller, nil
}

// ListByCharger returns all controllers of a charger ordered by position.
func (r *ControllerRepository) ListByCharger(ctx context.Context, chargerID int64) ([]models.ChargingController, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM charging_controllers
		WHERE charger_id = $1
		ORDER BY position NULLS LAST, device_uid
	`, controllerColumns)
	rows, err := r.db.QueryContext(ctx, query, chargerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var controllers []models.ChargingController
	for rows.Next() {
		controller, err := scanController(rows)
		if err != nil {
			return nil, err
		}
		controllers = append(controllers, *controller)
	}
	return controllers, rows.Err()
}

// Upsert inserts or refreshes controller metadata keyed by the device UID.
func (r *ControllerRepository) Upsert(ctx context.Context, controller *models.ChargingController) error {
	const query = `
		INSERT INTO charging_controllers (device_uid, charging_point_id, charging_point_name,
			device_name, parent_device_uid, position, firmware_version, hardware_version, charger_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (device_uid) DO UPDATE SET
			charging_point_id = EXCLUDED.charging_point_id,
			charging_point_name = EXCLUDED.charging_point_name,
			device_name = EXCLUDED.device_name,
			parent_device_uid = EXCLUDED.parent_device_uid,
			position = EXCLUDED.position,
			firmware_version = EXCLUDED.firmware_version,
			hardware_version = EXCLUDED.hardware_version
	`
	_, err := r.db.ExecContext(ctx, query,
		controller.DeviceUID,
		controller.ChargingPointID,
		controller.ChargingPointName,
		controller.DeviceName,
		controller.ParentDeviceUID,
		controller.Position,
		controller.FirmwareVersion,
		controller.HardwareVersion,
		controller.ChargerID,
	)
	return err
}

// Rename updates the display name of a charging point.
func (r *ControllerRepository) Rename(ctx context.Context, deviceUID string, chargingPointName *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE charging_controllers SET charging_point_name = $2 WHERE device_uid = $1`,
		deviceUID, chargingPointName)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// UpsertData replaces the controller's latest telemetry snapshot.
func (r *ControllerRepository) UpsertData(ctx context.Context, data *models.ControllerData) error {
	const query = `
		INSERT INTO controller_data (controller_uid, iec_61851_state, connected_state,
			apparent_energy, energy_real_power, frequency, part_apparent_energy,
			part_energy_real_power, apparent_power, real_power,
			i1, i2, i3, u1, u2, u3, connected_time_sec, charge_time_sec, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, timezone('utc', now()))
		ON CONFLICT (controller_uid) DO UPDATE SET
			iec_61851_state = EXCLUDED.iec_61851_state,
			connected_state = EXCLUDED.connected_state,
			apparent_energy = EXCLUDED.apparent_energy,
			energy_real_power = EXCLUDED.energy_real_power,
			frequency = EXCLUDED.frequency,
			part_apparent_energy = EXCLUDED.part_apparent_energy,
			part_energy_real_power = EXCLUDED.part_energy_real_power,
			apparent_power = EXCLUDED.apparent_power,
			real_power = EXCLUDED.real_power,
			i1 = EXCLUDED.i1,
			i2 = EXCLUDED.i2,
			i3 = EXCLUDED.i3,
			u1 = EXCLUDED.u1,
			u2 = EXCLUDED.u2,
			u3 = EXCLUDED.u3,
			connected_time_sec = EXCLUDED.connected_time_sec,
			charge_time_sec = EXCLUDED.charge_time_sec,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		data.ControllerUID,
		data.Iec61851State,
		data.ConnectedState,
		data.ApparentEnergy,
		data.EnergyRealPower,
		data.Frequency,
		data.PartApparentEnergy,
		data.PartEnergyRealPower,
		data.ApparentPower,
		data.RealPower,
		data.I1, data.I2, data.I3,
		data.U1, data.U2, data.U3,
		data.ConnectedTimeSec,
		data.ChargeTimeSec,
	)
	return err
}

// GetData returns the latest telemetry snapshot, or ErrNotFound when the
// controller has never reported.
func (r *ControllerRepository) GetData(ctx context.Context, controllerUID string) (*models.ControllerData, error) {
	const query = `
		SELECT controller_uid, iec_61851_state, connected_state, apparent_energy,
		       energy_real_power, frequency, part_apparent_energy, part_energy_real_power,
		       apparent_power, real_power, i1, i2, i3, u1, u2, u3,
		       connected_time_sec, charge_time_sec, updated_at
		FROM controller_data
		WHERE controller_uid = $1
	`
	var d models.ControllerData
	err := r.db.QueryRowContext(ctx, query, controllerUID).Scan(
		&d.ControllerUID,
		&d.Iec61851State,
		&d.ConnectedState,
		&d.ApparentEnergy,
		&d.EnergyRealPower,
		&d.Frequency,
		&d.PartApparentEnergy,
		&d.PartEnergyRealPower,
		&d.ApparentPower,
		&d.RealPower,
		&d.I1, &d.I2, &d.I3,
		&d.U1, &d.U2, &d.U3,
		&d.ConnectedTimeSec,
		&d.ChargeTimeSec,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// CountByCharger returns total and disconnected controller counts per charger.
func (r *ControllerRepository) CountByCharger(ctx context.Context, chargerID int64) (total int64, disconnected int64, err error) {
	const query = `
		SELECT COUNT(cc.device_uid),
		       COUNT(cd.controller_uid) FILTER (WHERE cd.connected_state = 'disconnected')
		FROM charging_controllers cc
		LEFT JOIN controller_data cd ON cd.controller_uid = cc.device_uid
		WHERE cc.charger_id = $1
	`
	err = r.db.QueryRowContext(ctx, query, chargerID).Scan(&total, &disconnected)
	return total, disconnected, err
}
