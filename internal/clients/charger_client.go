// Package clients talks to the REST API exposed by physical chargers.
package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"chargehub/internal/models"
)

// ErrChargerUnreachable means the charger has no address configured or the
// call failed.
var ErrChargerUnreachable = errors.New("charger is not reachable")

// LiveChargingData is the on-demand reading fetched straight from a charger.
type LiveChargingData struct {
	ControllerUID       string   `json:"controller_uid"`
	State               string   `json:"state"`
	EnergyRealPower     *float64 `json:"energy_real_power"`
	PartEnergyRealPower *float64 `json:"part_energy_real_power"`
	RealPower           *float64 `json:"real_power"`
	ConnectedTimeSec    *int64   `json:"connected_time_sec"`
	ChargeTimeSec       *int64   `json:"charge_time_sec"`
}

// IecStateMapper maps an IEC 61851 state to connected/disconnected.
type IecStateMapper func(state string) string

// ChargerClient calls charger REST APIs. Every call runs under the
// configured timeout so a stalled charger cannot pin a request handler.
type ChargerClient struct {
	http     *resty.Client
	mapState IecStateMapper
	logger   *zap.Logger
}

// NewChargerClient builds client.
func NewChargerClient(timeout time.Duration, mapState IecStateMapper, logger *zap.Logger) *ChargerClient {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(1)
	return &ChargerClient{http: client, mapState: mapState, logger: logger}
}

func controllerURL(charger *models.Charger, controllerUID string) (string, error) {
	if charger.IPAddress == nil || charger.RestAPIPort == nil {
		return "", ErrChargerUnreachable
	}
	return fmt.Sprintf("http://%s:%d/api/v1.0/charging-controllers/%s",
		*charger.IPAddress, *charger.RestAPIPort, controllerUID), nil
}

// Restart asks the charger to reboot one controller.
func (c *ChargerClient) Restart(ctx context.Context, charger *models.Charger, controllerUID string) error {
	url, err := controllerURL(charger, controllerUID)
	if err != nil {
		return err
	}

	resp, err := c.http.R().SetContext(ctx).Post(url + "/restart")
	if err != nil {
		c.logger.Warn("controller restart call failed",
			zap.String("controller_uid", controllerUID), zap.Error(err))
		return ErrChargerUnreachable
	}
	if resp.IsError() {
		return fmt.Errorf("restart %s: charger returned %d", controllerUID, resp.StatusCode())
	}
	return nil
}

type energyReading struct {
	Energy struct {
		EnergyRealPower     *float64 `json:"energy_real_power"`
		PartEnergyRealPower *float64 `json:"part_energy_real_power"`
		RealPower           *float64 `json:"real_power"`
	} `json:"energy"`
}

// FetchChargingData pulls the controller's live energy reading, connection
// state and timers from the charger.
func (c *ChargerClient) FetchChargingData(ctx context.Context, charger *models.Charger, controllerUID string) (*LiveChargingData, error) {
	url, err := controllerURL(charger, controllerUID)
	if err != nil {
		return nil, err
	}

	data := &LiveChargingData{ControllerUID: controllerUID}

	var energy energyReading
	if err := c.getJSON(ctx, url+"/data?param_list=energy", &energy); err != nil {
		return nil, err
	}
	data.EnergyRealPower = energy.Energy.EnergyRealPower
	data.PartEnergyRealPower = energy.Energy.PartEnergyRealPower
	data.RealPower = energy.Energy.RealPower

	var connected struct {
		ConnectedTimeSec *int64 `json:"connected_time_sec"`
	}
	if err := c.getJSON(ctx, url+"/data?param_list=connected_time_sec", &connected); err != nil {
		return nil, err
	}
	data.ConnectedTimeSec = connected.ConnectedTimeSec

	var charge struct {
		ChargeTimeSec *int64 `json:"charge_time_sec"`
	}
	if err := c.getJSON(ctx, url+"/data?param_list=charge_time_sec", &charge); err != nil {
		return nil, err
	}
	data.ChargeTimeSec = charge.ChargeTimeSec

	var state struct {
		Iec61851State string `json:"iec_61851_state"`
	}
	if err := c.getJSON(ctx, url+"/data?param_list=iec_61851_state", &state); err != nil {
		return nil, err
	}
	data.State = c.mapState(state.Iec61851State)

	return data, nil
}

func (c *ChargerClient) getJSON(ctx context.Context, url string, out interface{}) error {
	resp, err := c.http.R().SetContext(ctx).SetResult(out).Get(url)
	if err != nil {
		return ErrChargerUnreachable
	}
	if resp.IsError() {
		return fmt.Errorf("charger returned %d", resp.StatusCode())
	}
	return nil
}
