package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"chargehub/internal/authz"
	"chargehub/internal/clients"
	"chargehub/internal/forms"
	"chargehub/internal/http/middleware"
	"chargehub/internal/models"
	"chargehub/internal/repository"
	"chargehub/internal/service"
)

// ChargerHandlers serves charger CRUD, key rotation, controller restarts and
// historical CSV import.
type ChargerHandlers struct {
	chargers    *repository.ChargerRepository
	controllers *repository.ControllerRepository
	client      *clients.ChargerClient
	importer    *service.CSVImporter
	logger      *zap.Logger
}

// NewChargerHandlers builds handlers.
func NewChargerHandlers(
	chargers *repository.ChargerRepository,
	controllers *repository.ControllerRepository,
	client *clients.ChargerClient,
	importer *service.CSVImporter,
	logger *zap.Logger,
) *ChargerHandlers {
	return &ChargerHandlers{
		chargers:    chargers,
		controllers: controllers,
		client:      client,
		importer:    importer,
		logger:      logger,
	}
}

type chargerView struct {
	models.Charger
	Status                  string `json:"status"`
	ControllerCount         int64  `json:"controller_count"`
	DisconnectedControllers int64  `json:"disconnected_controllers"`
}

// List handles GET /api/chargers.
func (h *ChargerHandlers) List(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	chargers, err := h.chargers.List(r.Context(), scope)
	if err != nil {
		h.logger.Error("listing chargers failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	now := time.Now().UTC()
	views := make([]chargerView, 0, len(chargers))
	for _, charger := range chargers {
		total, disconnected, err := h.controllers.CountByCharger(r.Context(), charger.ID)
		if err != nil {
			h.logger.Error("counting controllers failed",
				zap.Int64("charger_id", charger.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		views = append(views, chargerView{
			Charger:                 charger,
			Status:                  service.ChargerStatus(charger.LastConnected, now),
			ControllerCount:         total,
			DisconnectedControllers: disconnected,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

type controllerView struct {
	models.ChargingController
	Status string                 `json:"status"`
	Data   *models.ControllerData `json:"data"`
}

type chargerDetail struct {
	chargerView
	Controllers []controllerView `json:"controllers"`
}

// Get handles GET /api/chargers/{chargerID}.
func (h *ChargerHandlers) Get(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	charger, ok := h.loadCharger(w, r, scope)
	if !ok {
		return
	}

	controllers, err := h.controllers.ListByCharger(r.Context(), charger.ID)
	if err != nil {
		h.logger.Error("listing controllers failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	views := make([]controllerView, 0, len(controllers))
	for _, controller := range controllers {
		view := controllerView{ChargingController: controller, Status: service.ControllerStatusOffline}
		data, err := h.controllers.GetData(r.Context(), controller.DeviceUID)
		switch {
		case err == nil:
			view.Data = data
			view.Status = service.ControllerStatus(data.ConnectedState)
		case !errors.Is(err, repository.ErrNotFound):
			h.logger.Error("loading controller data failed",
				zap.String("controller_uid", controller.DeviceUID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		views = append(views, view)
	}

	total, disconnected, err := h.controllers.CountByCharger(r.Context(), charger.ID)
	if err != nil {
		h.logger.Error("counting controllers failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, chargerDetail{
		chargerView: chargerView{
			Charger:                 *charger,
			Status:                  service.ChargerStatus(charger.LastConnected, time.Now().UTC()),
			ControllerCount:         total,
			DisconnectedControllers: disconnected,
		},
		Controllers: views,
	})
}

// Create handles POST /api/chargers. The generated API key is returned once
// in the response and never surfaced again.
func (h *ChargerHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var form forms.ChargerForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if errs := form.Validate(); !errs.Valid() {
		writeFormErrors(w, errs)
		return
	}

	apiKey := service.NewAPIKey()
	charger := &models.Charger{
		Name:        form.Name,
		Description: form.Description,
		IPAddress:   form.IPAddress,
		RestAPIPort: form.RestAPIPort,
		APIKey:      &apiKey,
		CompanyID:   form.CompanyID,
		UserID:      form.UserID,
	}
	if err := h.chargers.Create(r.Context(), charger); err != nil {
		h.logger.Error("creating charger failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"charger": charger,
		"api_key": apiKey,
	})
}

// Update handles PUT /api/chargers/{chargerID}.
func (h *ChargerHandlers) Update(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	charger, ok := h.loadCharger(w, r, scope)
	if !ok {
		return
	}

	var form forms.ChargerForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if errs := form.Validate(); !errs.Valid() {
		writeFormErrors(w, errs)
		return
	}

	charger.Name = form.Name
	charger.Description = form.Description
	charger.IPAddress = form.IPAddress
	charger.RestAPIPort = form.RestAPIPort
	charger.CompanyID = form.CompanyID
	charger.UserID = form.UserID
	if err := h.chargers.Update(r.Context(), charger); err != nil {
		h.logger.Error("updating charger failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, charger)
}

// Delete handles DELETE /api/chargers/{chargerID}.
func (h *ChargerHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	charger, ok := h.loadCharger(w, r, scope)
	if !ok {
		return
	}
	if err := h.chargers.Delete(r.Context(), charger.ID); err != nil {
		h.logger.Error("deleting charger failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RegenerateAPIKey handles POST /api/chargers/{chargerID}/api-key. The old
// key stops working immediately.
func (h *ChargerHandlers) RegenerateAPIKey(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	charger, ok := h.loadCharger(w, r, scope)
	if !ok {
		return
	}

	apiKey := service.NewAPIKey()
	if err := h.chargers.SetAPIKey(r.Context(), charger.ID, apiKey); err != nil {
		h.logger.Error("rotating api key failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"api_key": apiKey})
}

// Restart handles POST /api/chargers/{chargerID}/restart and asks the charger
// to reboot every controller it owns. A controller that cannot be reached is
// reported but does not abort the rest.
func (h *ChargerHandlers) Restart(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	charger, ok := h.loadCharger(w, r, scope)
	if !ok {
		return
	}

	controllers, err := h.controllers.ListByCharger(r.Context(), charger.ID)
	if err != nil {
		h.logger.Error("listing controllers failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	failed := make([]string, 0)
	for _, controller := range controllers {
		if err := h.client.Restart(r.Context(), charger, controller.DeviceUID); err != nil {
			failed = append(failed, controller.DeviceUID)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": len(failed) == 0,
		"failed":  failed,
	})
}

// ImportCSV handles POST /api/chargers/{chargerID}/import. The request body
// is the raw CSV export produced by charger firmware.
func (h *ChargerHandlers) ImportCSV(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	charger, ok := h.loadCharger(w, r, scope)
	if !ok {
		return
	}

	imported, err := h.importer.Import(r.Context(), charger, r.Body)
	if err != nil {
		if errors.Is(err, service.ErrBadCSVStructure) {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
		h.logger.Error("csv import failed",
			zap.Int64("charger_id", charger.ID), zap.Int("imported", imported), zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  false,
			"error":    err.Error(),
			"imported": imported,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"imported": imported,
	})
}

// loadCharger resolves the {chargerID} path parameter inside the request's
// scope. Rows outside the scope surface as 404, same as missing ones.
func (h *ChargerHandlers) loadCharger(w http.ResponseWriter, r *http.Request, scope authz.Scope) (*models.Charger, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "chargerID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid charger id")
		return nil, false
	}

	charger, err := h.chargers.GetByID(r.Context(), scope, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "charger not found")
			return nil, false
		}
		h.logger.Error("loading charger failed", zap.Int64("charger_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return charger, true
}
