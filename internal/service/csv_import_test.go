package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chargehub/internal/models"
)

type fakeImportStore struct {
	inserted []models.ChargingSession
}

func (f *fakeImportStore) InsertImported(_ context.Context, session *models.ChargingSession) error {
	f.inserted = append(f.inserted, *session)
	return nil
}

func newImportFixture() (*CSVImporter, *fakeImportStore, *models.Charger) {
	controllers := &fakeControllerStore{controllers: map[string]*models.ChargingController{
		"CTRL-1": {DeviceUID: "CTRL-1", ChargerID: 1},
		"CTRL-9": {DeviceUID: "CTRL-9", ChargerID: 9},
	}}
	store := &fakeImportStore{}
	return NewCSVImporter(controllers, store), store, &models.Charger{ID: 1, Name: "Garage"}
}

func TestImportInsertsClosedSessions(t *testing.T) {
	importer, store, charger := newImportFixture()

	file := strings.Join([]string{
		"controllerId,startTimestamp,endTimestamp,duration,startRealPower,endRealPower,consumption,rfidTag,rfidTimestamp",
		"CTRL-1,2026-03-01 10:00:00,2026-03-01 11:00:00,3600,10000,12500,2500,TAG-1,2026-03-01 10:05:00",
		"CTRL-1,2026-03-01 12:00:00,2026-03-01 12:30:00,1800,12500,13000,500,,",
	}, "\n")

	imported, err := importer.Import(context.Background(), charger, strings.NewReader(file))
	require.NoError(t, err)
	assert.Equal(t, 2, imported)

	require.Len(t, store.inserted, 2)
	first := store.inserted[0]
	assert.Equal(t, "CTRL-1", first.ControllerUID)
	require.NotNil(t, first.StartTimestamp)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), *first.StartTimestamp)
	require.NotNil(t, first.Consumption)
	assert.Equal(t, 2500.0, *first.Consumption)
	require.NotNil(t, first.RfidTag)
	assert.Equal(t, "TAG-1", *first.RfidTag)

	second := store.inserted[1]
	assert.Nil(t, second.RfidTag)
	assert.Nil(t, second.RfidTimestamp)
}

func TestImportResolvesColumnAliases(t *testing.T) {
	importer, store, charger := newImportFixture()

	// Header shape produced by newer firmware exports.
	file := strings.Join([]string{
		"deviceUid,startTimestamp,endTimestamp,duration,startRealPowerWh,endRealPowerWh,consumptionWh,rfidTag,rfidTimestamp",
		"CTRL-1,2026-03-01 10:00:00,2026-03-01 11:00:00,3600,10000,12500,2500,,",
	}, "\n")

	imported, err := importer.Import(context.Background(), charger, strings.NewReader(file))
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	require.Len(t, store.inserted, 1)
	require.NotNil(t, store.inserted[0].StartRealPower)
	assert.Equal(t, 10000.0, *store.inserted[0].StartRealPower)
}

func TestImportRejectsMissingColumns(t *testing.T) {
	importer, store, charger := newImportFixture()

	file := "controllerId,startTimestamp\nCTRL-1,2026-03-01 10:00:00\n"
	_, err := importer.Import(context.Background(), charger, strings.NewReader(file))
	assert.ErrorIs(t, err, ErrBadCSVStructure)
	assert.Empty(t, store.inserted)
}

func TestImportRejectsForeignController(t *testing.T) {
	importer, store, charger := newImportFixture()

	file := strings.Join([]string{
		"controllerId,startTimestamp,endTimestamp,duration,startRealPower,endRealPower,consumption,rfidTag,rfidTimestamp",
		"CTRL-9,2026-03-01 10:00:00,2026-03-01 11:00:00,3600,,,,,",
	}, "\n")

	_, err := importer.Import(context.Background(), charger, strings.NewReader(file))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not belong")
	assert.Empty(t, store.inserted)
}

func TestImportRejectsUnknownController(t *testing.T) {
	importer, store, charger := newImportFixture()

	file := strings.Join([]string{
		"controllerId,startTimestamp,endTimestamp,duration,startRealPower,endRealPower,consumption,rfidTag,rfidTimestamp",
		"CTRL-404,2026-03-01 10:00:00,,,,,,,",
	}, "\n")

	_, err := importer.Import(context.Background(), charger, strings.NewReader(file))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown controller")
	assert.Empty(t, store.inserted)
}

func TestImportRejectsBadTimestamp(t *testing.T) {
	importer, _, charger := newImportFixture()

	file := strings.Join([]string{
		"controllerId,startTimestamp,endTimestamp,duration,startRealPower,endRealPower,consumption,rfidTag,rfidTimestamp",
		"CTRL-1,01/03/2026,,,,,,,",
	}, "\n")

	_, err := importer.Import(context.Background(), charger, strings.NewReader(file))
	assert.ErrorIs(t, err, ErrBadCSVStructure)
}
