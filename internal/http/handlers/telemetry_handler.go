package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"chargehub/internal/models"
	"chargehub/internal/service"
)

// TelemetryHandlers serves the public ingestion endpoints called by charger
// hardware. Both endpoints authenticate with the charger's bearer API key.
// Auth failures are the only non-2xx responses; any failure past auth is
// reported as {"success":false} with HTTP 200 so firmware does not retry
// events that can never apply.
type TelemetryHandlers struct {
	ingest *service.IngestService
	logger *zap.Logger
}

// NewTelemetryHandlers builds handlers.
func NewTelemetryHandlers(ingest *service.IngestService, logger *zap.Logger) *TelemetryHandlers {
	return &TelemetryHandlers{ingest: ingest, logger: logger}
}

type sessionEventPayload struct {
	DeviceUID        string   `json:"deviceUid"`
	StartTimestamp   *string  `json:"startTimestamp"`
	EndTimestamp     *string  `json:"endTimestamp"`
	StartRealPowerWh *float64 `json:"startRealPowerWh"`
	EndRealPowerWh   *float64 `json:"endRealPowerWh"`
	RfidTag          *string  `json:"rfidTag"`
	RfidTimestamp    *string  `json:"rfidTimestamp"`
}

// ChargingSession handles POST /api/public/charging-session. An event without
// an end timestamp opens a session, one with an end timestamp closes it.
func (h *TelemetryHandlers) ChargingSession(w http.ResponseWriter, r *http.Request) {
	charger, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var payload sessionEventPayload
	if err := decodeJSON(r, &payload); err != nil {
		softFail(w, "invalid json body")
		return
	}
	if payload.DeviceUID == "" {
		writeError(w, http.StatusUnauthorized, "device UID is missing")
		return
	}

	ev := service.SessionEvent{
		DeviceUID:        payload.DeviceUID,
		StartRealPowerWh: payload.StartRealPowerWh,
		EndRealPowerWh:   payload.EndRealPowerWh,
		RfidTag:          payload.RfidTag,
	}

	var err error
	if ev.StartTimestamp, err = service.ParseOptionalTelemetryTime(payload.StartTimestamp); err != nil {
		softFail(w, err.Error())
		return
	}
	if ev.EndTimestamp, err = service.ParseOptionalTelemetryTime(payload.EndTimestamp); err != nil {
		softFail(w, err.Error())
		return
	}
	if ev.RfidTimestamp, err = service.ParseOptionalTelemetryTime(payload.RfidTimestamp); err != nil {
		softFail(w, err.Error())
		return
	}

	if err := h.ingest.RecordSessionEvent(r.Context(), charger, ev); err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownController), errors.Is(err, service.ErrForeignController):
			writeJSON(w, http.StatusForbidden, nil)
		default:
			h.logger.Warn("session event rejected",
				zap.String("controller_uid", payload.DeviceUID), zap.Error(err))
			softFail(w, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type meterValue struct {
	Value *float64 `json:"value"`
}

func (v *meterValue) float() *float64 {
	if v == nil {
		return nil
	}
	return v.Value
}

type chargingDataPayload struct {
	Iec61851State       *string     `json:"iec_61851_state"`
	ConnectedState      *string     `json:"connected_state"`
	ApparentEnergy      *meterValue `json:"apparent_energy"`
	EnergyRealPower     *meterValue `json:"energy_real_power"`
	Frequency           *meterValue `json:"frequency"`
	PartApparentEnergy  *meterValue `json:"part_apparent_energy"`
	PartEnergyRealPower *meterValue `json:"part_energy_real_power"`
	ApparentPower       *meterValue `json:"apparent_power"`
	RealPower           *meterValue `json:"real_power"`
	I1                  *meterValue `json:"i1"`
	I2                  *meterValue `json:"i2"`
	I3                  *meterValue `json:"i3"`
	U1                  *meterValue `json:"u1"`
	U2                  *meterValue `json:"u2"`
	U3                  *meterValue `json:"u3"`
	ConnectedTimeSec    *int64      `json:"connected_time_sec"`
	ChargeTimeSec       *int64      `json:"charge_time_sec"`
}

type controllerReportPayload struct {
	ControllerUID     string              `json:"controller_uid"`
	ChargingPointID   *string             `json:"charging_point_id"`
	ChargingPointName *string             `json:"charging_point_name"`
	DeviceName        *string             `json:"device_name"`
	ParentDeviceUID   *string             `json:"parent_device_uid"`
	Position          *int                `json:"position"`
	FirmwareVersion   *string             `json:"firmware_version"`
	HardwareVersion   *string             `json:"hardware_version"`
	ChargingData      chargingDataPayload `json:"charging_data"`
}

// ControllerData handles POST /api/public/controller-data. The body is a map
// keyed by an arbitrary label per controller; each entry refreshes controller
// metadata and its latest-state snapshot.
func (h *TelemetryHandlers) ControllerData(w http.ResponseWriter, r *http.Request) {
	charger, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var payload map[string]controllerReportPayload
	if err := decodeJSON(r, &payload); err != nil {
		softFail(w, "invalid json body")
		return
	}

	reports := make([]service.ControllerReport, 0, len(payload))
	for _, entry := range payload {
		reports = append(reports, service.ControllerReport{
			Controller: models.ChargingController{
				DeviceUID:         entry.ControllerUID,
				ChargingPointID:   entry.ChargingPointID,
				ChargingPointName: entry.ChargingPointName,
				DeviceName:        entry.DeviceName,
				ParentDeviceUID:   entry.ParentDeviceUID,
				Position:          entry.Position,
				FirmwareVersion:   entry.FirmwareVersion,
				HardwareVersion:   entry.HardwareVersion,
			},
			Data: models.ControllerData{
				Iec61851State:       entry.ChargingData.Iec61851State,
				ConnectedState:      entry.ChargingData.ConnectedState,
				ApparentEnergy:      entry.ChargingData.ApparentEnergy.float(),
				EnergyRealPower:     entry.ChargingData.EnergyRealPower.float(),
				Frequency:           entry.ChargingData.Frequency.float(),
				PartApparentEnergy:  entry.ChargingData.PartApparentEnergy.float(),
				PartEnergyRealPower: entry.ChargingData.PartEnergyRealPower.float(),
				ApparentPower:       entry.ChargingData.ApparentPower.float(),
				RealPower:           entry.ChargingData.RealPower.float(),
				I1:                  entry.ChargingData.I1.float(),
				I2:                  entry.ChargingData.I2.float(),
				I3:                  entry.ChargingData.I3.float(),
				U1:                  entry.ChargingData.U1.float(),
				U2:                  entry.ChargingData.U2.float(),
				U3:                  entry.ChargingData.U3.float(),
				ConnectedTimeSec:    entry.ChargingData.ConnectedTimeSec,
				ChargeTimeSec:       entry.ChargingData.ChargeTimeSec,
				UpdatedAt:           time.Now().UTC(),
			},
		})
	}

	if err := h.ingest.RecordControllerReports(r.Context(), charger, reports); err != nil {
		h.logger.Warn("controller report rejected", zap.Error(err))
		softFail(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *TelemetryHandlers) authenticate(w http.ResponseWriter, r *http.Request) (*models.Charger, bool) {
	charger, err := h.ingest.Authenticate(r.Context(), bearerKey(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAPIKeyMissing):
			writeError(w, http.StatusUnauthorized, "API key is missing")
		case errors.Is(err, service.ErrUnknownAPIKey):
			writeJSON(w, http.StatusForbidden, nil)
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return nil, false
	}
	return charger, true
}

func softFail(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "error": message})
}
