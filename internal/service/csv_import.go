package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"chargehub/internal/models"
	"chargehub/internal/repository"
)

// ErrBadCSVStructure means the uploaded file is missing required columns.
var ErrBadCSVStructure = errors.New("uploaded file has an unexpected data structure")

// ImportStore inserts historical sessions from CSV files.
type ImportStore interface {
	InsertImported(ctx context.Context, session *models.ChargingSession) error
}

// Exported data may come from different firmware revisions, so several
// columns are accepted under more than one name. The alias set is fixed here
// and resolved once against the header instead of probing keys per row.
var csvColumnAliases = map[string][]string{
	"controllerId":   {"controllerId", "deviceUid"},
	"startTimestamp": {"startTimestamp"},
	"endTimestamp":   {"endTimestamp"},
	"duration":       {"duration"},
	"startRealPower": {"startRealPower", "startRealPowerWh"},
	"endRealPower":   {"endRealPower", "endRealPowerWh"},
	"consumption":    {"consumption", "consumptionWh"},
	"rfidTag":        {"rfidTag"},
	"rfidTimestamp":  {"rfidTimestamp"},
}

// CSVImporter loads historical charging sessions exported by charger
// firmware into the session table.
type CSVImporter struct {
	controllers ControllerStore
	sessions    ImportStore
}

// NewCSVImporter builds importer.
func NewCSVImporter(controllers ControllerStore, sessions ImportStore) *CSVImporter {
	return &CSVImporter{controllers: controllers, sessions: sessions}
}

// Import reads the CSV stream and inserts one closed session per row. Every
// referenced controller must belong to the given charger. Returns the number
// of imported rows.
func (i *CSVImporter) Import(ctx context.Context, charger *models.Charger, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return 0, ErrBadCSVStructure
	}

	columns, err := resolveColumns(header)
	if err != nil {
		return 0, err
	}

	imported := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, ErrBadCSVStructure
		}

		session, err := i.rowToSession(ctx, charger, columns, record)
		if err != nil {
			return imported, err
		}
		if err := i.sessions.InsertImported(ctx, session); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

func (i *CSVImporter) rowToSession(ctx context.Context, charger *models.Charger, columns map[string]int, record []string) (*models.ChargingSession, error) {
	cell := func(name string) string {
		idx := columns[name]
		if idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	controllerUID := cell("controllerId")
	if controllerUID == "" {
		return nil, ErrBadCSVStructure
	}
	controller, err := i.controllers.GetByUID(ctx, controllerUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("unknown controller %q", controllerUID)
		}
		return nil, err
	}
	if controller.ChargerID != charger.ID {
		return nil, fmt.Errorf("controller %q does not belong to this charger", controllerUID)
	}

	session := &models.ChargingSession{ControllerUID: controllerUID}

	if session.StartTimestamp, err = parseOptionalCell(cell("startTimestamp")); err != nil {
		return nil, err
	}
	if session.EndTimestamp, err = parseOptionalCell(cell("endTimestamp")); err != nil {
		return nil, err
	}
	if session.RfidTimestamp, err = parseOptionalCell(cell("rfidTimestamp")); err != nil {
		return nil, err
	}
	if tag := cell("rfidTag"); tag != "" {
		session.RfidTag = &tag
	}

	if session.StartRealPower, err = parseOptionalFloat(cell("startRealPower")); err != nil {
		return nil, err
	}
	if session.EndRealPower, err = parseOptionalFloat(cell("endRealPower")); err != nil {
		return nil, err
	}
	if session.Consumption, err = parseOptionalFloat(cell("consumption")); err != nil {
		return nil, err
	}
	if raw := cell("duration"); raw != "" {
		duration, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, ErrBadCSVStructure
		}
		session.Duration = &duration
	}
	return session, nil
}

// resolveColumns maps each logical column to its index in the header, trying
// every accepted alias.
func resolveColumns(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	columns := make(map[string]int, len(csvColumnAliases))
	for logical, aliases := range csvColumnAliases {
		found := false
		for _, alias := range aliases {
			if i, ok := index[alias]; ok {
				columns[logical] = i
				found = true
				break
			}
		}
		if !found {
			return nil, ErrBadCSVStructure
		}
	}
	return columns, nil
}

func parseOptionalCell(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	ts, err := ParseTelemetryTime(value)
	if err != nil {
		return nil, ErrBadCSVStructure
	}
	return &ts, nil
}

func parseOptionalFloat(value string) (*float64, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, ErrBadCSVStructure
	}
	return &parsed, nil
}
