package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chargehub/internal/models"
	"chargehub/internal/repository"
)

type fakeChargerStore struct {
	chargers map[string]*models.Charger
	touched  []int64
	touchErr error
}

func (f *fakeChargerStore) GetByAPIKey(_ context.Context, apiKey string) (*models.Charger, error) {
	charger, ok := f.chargers[apiKey]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return charger, nil
}

func (f *fakeChargerStore) TouchLastConnected(_ context.Context, id int64) error {
	if f.touchErr != nil {
		return f.touchErr
	}
	f.touched = append(f.touched, id)
	return nil
}

type fakeControllerStore struct {
	controllers map[string]*models.ChargingController
	upserted    []models.ChargingController
	dataUpserts []models.ControllerData
}

func (f *fakeControllerStore) GetByUID(_ context.Context, deviceUID string) (*models.ChargingController, error) {
	controller, ok := f.controllers[deviceUID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return controller, nil
}

func (f *fakeControllerStore) Upsert(_ context.Context, controller *models.ChargingController) error {
	f.upserted = append(f.upserted, *controller)
	return nil
}

func (f *fakeControllerStore) UpsertData(_ context.Context, data *models.ControllerData) error {
	f.dataUpserts = append(f.dataUpserts, *data)
	return nil
}

type fakeSessionStore struct {
	started    []models.ChargingSession
	insertedOK bool
	closed     []models.CloseEvent
	closeErr   error
}

func (f *fakeSessionStore) StartSession(_ context.Context, session *models.ChargingSession) (bool, error) {
	f.started = append(f.started, *session)
	return f.insertedOK, nil
}

func (f *fakeSessionStore) CloseOpenSession(_ context.Context, controllerUID string, ev models.CloseEvent) (*models.ChargingSession, error) {
	if f.closeErr != nil {
		return nil, f.closeErr
	}
	f.closed = append(f.closed, ev)
	session := &models.ChargingSession{ControllerUID: controllerUID}
	session.Close(ev)
	return session, nil
}

func newIngestFixture() (*IngestService, *fakeChargerStore, *fakeControllerStore, *fakeSessionStore) {
	chargers := &fakeChargerStore{chargers: map[string]*models.Charger{
		"valid-key": {ID: 1, Name: "Garage"},
	}}
	controllers := &fakeControllerStore{controllers: map[string]*models.ChargingController{
		"CTRL-1": {DeviceUID: "CTRL-1", ChargerID: 1},
		"CTRL-9": {DeviceUID: "CTRL-9", ChargerID: 9},
	}}
	sessions := &fakeSessionStore{insertedOK: true}
	svc := NewIngestService(chargers, controllers, sessions, zap.NewNop())
	return svc, chargers, controllers, sessions
}

func TestAuthenticate(t *testing.T) {
	svc, _, _, _ := newIngestFixture()

	_, err := svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, ErrAPIKeyMissing)

	_, err = svc.Authenticate(context.Background(), "bogus")
	assert.ErrorIs(t, err, ErrUnknownAPIKey)

	charger, err := svc.Authenticate(context.Background(), "valid-key")
	require.NoError(t, err)
	assert.Equal(t, int64(1), charger.ID)
}

func TestRecordSessionEventStart(t *testing.T) {
	svc, chargers, _, sessions := newIngestFixture()
	charger := chargers.chargers["valid-key"]

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	err := svc.RecordSessionEvent(context.Background(), charger, SessionEvent{
		DeviceUID:        "CTRL-1",
		StartTimestamp:   &start,
		StartRealPowerWh: ptrFloat(10000),
	})
	require.NoError(t, err)

	require.Len(t, sessions.started, 1)
	assert.Equal(t, "CTRL-1", sessions.started[0].ControllerUID)
	assert.Equal(t, []int64{1}, chargers.touched)
}

func TestRecordSessionEventDuplicateStartIsNoOp(t *testing.T) {
	svc, chargers, _, sessions := newIngestFixture()
	sessions.insertedOK = false

	err := svc.RecordSessionEvent(context.Background(), chargers.chargers["valid-key"], SessionEvent{
		DeviceUID: "CTRL-1",
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, chargers.touched)
}

func TestRecordSessionEventEnd(t *testing.T) {
	svc, chargers, _, sessions := newIngestFixture()

	end := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	err := svc.RecordSessionEvent(context.Background(), chargers.chargers["valid-key"], SessionEvent{
		DeviceUID:      "CTRL-1",
		EndTimestamp:   &end,
		EndRealPowerWh: ptrFloat(12500),
	})
	require.NoError(t, err)

	require.Len(t, sessions.closed, 1)
	assert.Equal(t, end, sessions.closed[0].EndTimestamp)
	assert.Empty(t, sessions.started)
}

func TestRecordSessionEventEndWithoutOpenSession(t *testing.T) {
	svc, chargers, _, sessions := newIngestFixture()
	sessions.closeErr = repository.ErrNoOpenSession

	end := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	err := svc.RecordSessionEvent(context.Background(), chargers.chargers["valid-key"], SessionEvent{
		DeviceUID:    "CTRL-1",
		EndTimestamp: &end,
	})
	assert.ErrorIs(t, err, repository.ErrNoOpenSession)
	// A failed event must not refresh the charger's last-seen timestamp.
	assert.Empty(t, chargers.touched)
}

func TestRecordSessionEventValidation(t *testing.T) {
	svc, chargers, _, _ := newIngestFixture()
	charger := chargers.chargers["valid-key"]

	err := svc.RecordSessionEvent(context.Background(), charger, SessionEvent{})
	assert.ErrorIs(t, err, ErrDeviceUIDMissing)

	err = svc.RecordSessionEvent(context.Background(), charger, SessionEvent{DeviceUID: "CTRL-404"})
	assert.ErrorIs(t, err, ErrUnknownController)

	err = svc.RecordSessionEvent(context.Background(), charger, SessionEvent{DeviceUID: "CTRL-9"})
	assert.ErrorIs(t, err, ErrForeignController)
	assert.Empty(t, chargers.touched)
}

func TestRecordControllerReports(t *testing.T) {
	svc, chargers, controllers, _ := newIngestFixture()
	charger := chargers.chargers["valid-key"]

	state := "B2"
	err := svc.RecordControllerReports(context.Background(), charger, []ControllerReport{
		{
			Controller: models.ChargingController{DeviceUID: "CTRL-1"},
			Data:       models.ControllerData{Iec61851State: &state},
		},
		{
			Controller: models.ChargingController{DeviceUID: "CTRL-NEW"},
			Data:       models.ControllerData{},
		},
	})
	require.NoError(t, err)

	require.Len(t, controllers.upserted, 2)
	// Ownership always follows the authenticated charger.
	assert.Equal(t, int64(1), controllers.upserted[0].ChargerID)
	assert.Equal(t, int64(1), controllers.upserted[1].ChargerID)
	require.Len(t, controllers.dataUpserts, 2)
	assert.Equal(t, "CTRL-1", controllers.dataUpserts[0].ControllerUID)
	assert.Equal(t, "CTRL-NEW", controllers.dataUpserts[1].ControllerUID)
	assert.Equal(t, []int64{1, 1}, chargers.touched)
}

func TestRecordControllerReportsRejectsMissingUID(t *testing.T) {
	svc, chargers, controllers, _ := newIngestFixture()

	err := svc.RecordControllerReports(context.Background(), chargers.chargers["valid-key"], []ControllerReport{
		{Controller: models.ChargingController{}},
	})
	assert.ErrorIs(t, err, ErrDeviceUIDMissing)
	assert.Empty(t, controllers.upserted)
}

func TestRecordSessionEventSurfacesTouchError(t *testing.T) {
	svc, chargers, _, _ := newIngestFixture()
	chargers.touchErr = errors.New("db down")

	err := svc.RecordSessionEvent(context.Background(), chargers.chargers["valid-key"], SessionEvent{
		DeviceUID: "CTRL-1",
	})
	assert.EqualError(t, err, "db down")
}

func ptrFloat(f float64) *float64 { return &f }
