package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"chargehub/internal/models"
	"chargehub/internal/repository"
)

var (
	// ErrAPIKeyMissing means the Authorization header carried no bearer key.
	ErrAPIKeyMissing = errors.New("ingest: api key is missing")
	// ErrUnknownAPIKey means no charger matches the supplied key.
	ErrUnknownAPIKey = errors.New("ingest: unknown api key")
	// ErrDeviceUIDMissing means the payload named no controller.
	ErrDeviceUIDMissing = errors.New("ingest: device uid is missing")
	// ErrForeignController means the controller exists but belongs to a
	// different charger than the one the key authenticates.
	ErrForeignController = errors.New("ingest: controller not owned by charger")
	// ErrUnknownController means the referenced controller does not exist.
	ErrUnknownController = errors.New("ingest: unknown controller")
)

// ChargerStore is the charger persistence used by ingestion.
type ChargerStore interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*models.Charger, error)
	TouchLastConnected(ctx context.Context, id int64) error
}

// ControllerStore is the controller persistence used by ingestion.
type ControllerStore interface {
	GetByUID(ctx context.Context, deviceUID string) (*models.ChargingController, error)
	Upsert(ctx context.Context, controller *models.ChargingController) error
	UpsertData(ctx context.Context, data *models.ControllerData) error
}

// SessionStore is the session persistence used by ingestion.
type SessionStore interface {
	StartSession(ctx context.Context, session *models.ChargingSession) (bool, error)
	CloseOpenSession(ctx context.Context, controllerUID string, ev models.CloseEvent) (*models.ChargingSession, error)
}

// IngestService maintains session lifecycle records and latest-known
// controller state from telemetry pushed by charger hardware.
type IngestService struct {
	chargers    ChargerStore
	controllers ControllerStore
	sessions    SessionStore
	logger      *zap.Logger
}

// NewIngestService builds service.
func NewIngestService(chargers ChargerStore, controllers ControllerStore, sessions SessionStore, logger *zap.Logger) *IngestService {
	return &IngestService{
		chargers:    chargers,
		controllers: controllers,
		sessions:    sessions,
		logger:      logger,
	}
}

// Authenticate resolves the charger a bearer API key identifies.
func (s *IngestService) Authenticate(ctx context.Context, apiKey string) (*models.Charger, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyMissing
	}
	charger, err := s.chargers.GetByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownAPIKey
		}
		return nil, err
	}
	return charger, nil
}

// SessionEvent is a parsed charging-session telemetry push.
type SessionEvent struct {
	DeviceUID        string
	StartTimestamp   *time.Time
	EndTimestamp     *time.Time
	StartRealPowerWh *float64
	EndRealPowerWh   *float64
	RfidTag          *string
	RfidTimestamp    *time.Time
}

// RecordSessionEvent applies a start or end event to the controller's session
// record, then refreshes the charger's last-seen timestamp. A start event is
// idempotent against duplicate pushes; an end event with no open session is a
// detected no-op surfaced as ErrNoOpenSession.
func (s *IngestService) RecordSessionEvent(ctx context.Context, charger *models.Charger, ev SessionEvent) error {
	if ev.DeviceUID == "" {
		return ErrDeviceUIDMissing
	}

	controller, err := s.controllers.GetByUID(ctx, ev.DeviceUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnknownController
		}
		return err
	}
	if controller.ChargerID != charger.ID {
		return ErrForeignController
	}

	if ev.EndTimestamp == nil {
		inserted, err := s.sessions.StartSession(ctx, &models.ChargingSession{
			ControllerUID:  ev.DeviceUID,
			StartTimestamp: ev.StartTimestamp,
			StartRealPower: ev.StartRealPowerWh,
			RfidTag:        ev.RfidTag,
			RfidTimestamp:  ev.RfidTimestamp,
		})
		if err != nil {
			return err
		}
		if !inserted {
			s.logger.Debug("duplicate start event ignored",
				zap.String("controller_uid", ev.DeviceUID))
		}
	} else {
		_, err := s.sessions.CloseOpenSession(ctx, ev.DeviceUID, models.CloseEvent{
			EndTimestamp:  *ev.EndTimestamp,
			EndRealPower:  ev.EndRealPowerWh,
			RfidTag:       ev.RfidTag,
			RfidTimestamp: ev.RfidTimestamp,
		})
		if err != nil {
			return err
		}
	}

	return s.chargers.TouchLastConnected(ctx, charger.ID)
}

// ControllerReport is one controller's entry in a batched state push.
type ControllerReport struct {
	Controller models.ChargingController
	Data       models.ControllerData
}

// RecordControllerReports upserts controller metadata and the latest-state
// snapshot for each controller in a batch. Each controller is applied
// independently and the charger's last-seen timestamp refreshed per
// iteration; a failure aborts the batch without rolling back prior entries.
func (s *IngestService) RecordControllerReports(ctx context.Context, charger *models.Charger, reports []ControllerReport) error {
	for _, report := range reports {
		if report.Controller.DeviceUID == "" {
			return ErrDeviceUIDMissing
		}

		controller := report.Controller
		controller.ChargerID = charger.ID
		if err := s.controllers.Upsert(ctx, &controller); err != nil {
			return err
		}

		data := report.Data
		data.ControllerUID = controller.DeviceUID
		if err := s.controllers.UpsertData(ctx, &data); err != nil {
			return err
		}

		if err := s.chargers.TouchLastConnected(ctx, charger.ID); err != nil {
			return err
		}
	}
	return nil
}
