package handlers

import (
	"errors"
	"net/http"

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

// ControllerHandlers serves single-controller reads, renames and the
// on-demand live reading proxied from the charger.
type ControllerHandlers struct {
	controllers *repository.ControllerRepository
	chargers    *repository.ChargerRepository
	client      *clients.ChargerClient
	logger      *zap.Logger
}

// NewControllerHandlers builds handlers.
func NewControllerHandlers(
	controllers *repository.ControllerRepository,
	chargers *repository.ChargerRepository,
	client *clients.ChargerClient,
	logger *zap.Logger,
) *ControllerHandlers {
	return &ControllerHandlers{
		controllers: controllers,
		chargers:    chargers,
		client:      client,
		logger:      logger,
	}
}

// Get handles GET /api/controllers/{controllerUID}.
func (h *ControllerHandlers) Get(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	controller, _, ok := h.loadController(w, r, scope)
	if !ok {
		return
	}

	view := controllerView{ChargingController: *controller, Status: service.ControllerStatusOffline}
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
	writeJSON(w, http.StatusOK, view)
}

// Rename handles PUT /api/controllers/{controllerUID}. Only the display name
// is editable; everything else is device-reported.
func (h *ControllerHandlers) Rename(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	controller, _, ok := h.loadController(w, r, scope)
	if !ok {
		return
	}

	var form forms.ControllerForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	form.Validate()

	if err := h.controllers.Rename(r.Context(), controller.DeviceUID, form.ChargingPointName); err != nil {
		h.logger.Error("renaming controller failed",
			zap.String("controller_uid", controller.DeviceUID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// LiveData handles GET /api/controllers/{controllerUID}/charging-data and
// fetches the reading straight from the charger instead of the snapshot table.
func (h *ControllerHandlers) LiveData(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	controller, charger, ok := h.loadController(w, r, scope)
	if !ok {
		return
	}

	data, err := h.client.FetchChargingData(r.Context(), charger, controller.DeviceUID)
	if err != nil {
		if errors.Is(err, clients.ErrChargerUnreachable) {
			writeError(w, http.StatusBadGateway, "charger is not reachable")
			return
		}
		h.logger.Error("live data fetch failed",
			zap.String("controller_uid", controller.DeviceUID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "charger returned an error")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// loadController resolves the {controllerUID} path parameter and checks the
// owning charger is inside the request's scope.
func (h *ControllerHandlers) loadController(w http.ResponseWriter, r *http.Request, scope authz.Scope) (*models.ChargingController, *models.Charger, bool) {
	uid := chi.URLParam(r, "controllerUID")
	controller, err := h.controllers.GetByUID(r.Context(), uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "controller not found")
			return nil, nil, false
		}
		h.logger.Error("loading controller failed", zap.String("controller_uid", uid), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, nil, false
	}

	charger, err := h.chargers.GetByID(r.Context(), scope, controller.ChargerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "controller not found")
			return nil, nil, false
		}
		h.logger.Error("loading charger failed", zap.Int64("charger_id", controller.ChargerID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, nil, false
	}
	return controller, charger, true
}
