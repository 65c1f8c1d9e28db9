package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"chargehub/internal/http/middleware"
	"chargehub/internal/repository"
	"chargehub/internal/service"
)

// DashboardHandlers serves the aggregate numbers shown on the landing page.
type DashboardHandlers struct {
	sessions    *repository.SessionRepository
	chargers    *repository.ChargerRepository
	controllers *repository.ControllerRepository
	logger      *zap.Logger
}

// NewDashboardHandlers builds handlers.
func NewDashboardHandlers(
	sessions *repository.SessionRepository,
	chargers *repository.ChargerRepository,
	controllers *repository.ControllerRepository,
	logger *zap.Logger,
) *DashboardHandlers {
	return &DashboardHandlers{
		sessions:    sessions,
		chargers:    chargers,
		controllers: controllers,
		logger:      logger,
	}
}

type dashboardView struct {
	ConsumptionTodayWh float64 `json:"consumption_today_wh"`
	SessionsToday      int64   `json:"sessions_today"`
	Chargers           struct {
		Total       int `json:"total"`
		Online      int `json:"online"`
		Offline     int `json:"offline"`
		Unavailable int `json:"unavailable"`
	} `json:"chargers"`
	Controllers struct {
		Total        int64 `json:"total"`
		Disconnected int64 `json:"disconnected"`
	} `json:"controllers"`
}

// Overview handles GET /api/dashboard. All numbers respect the request's
// scope; today starts at midnight UTC.
func (h *DashboardHandlers) Overview(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())

	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var view dashboardView
	var err error
	view.ConsumptionTodayWh, view.SessionsToday, err = h.sessions.ConsumptionSince(r.Context(), scope, midnight)
	if err != nil {
		h.logger.Error("aggregating consumption failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	chargers, err := h.chargers.List(r.Context(), scope)
	if err != nil {
		h.logger.Error("listing chargers failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	view.Chargers.Total = len(chargers)
	for _, charger := range chargers {
		switch service.ChargerStatus(charger.LastConnected, now) {
		case service.ChargerStatusOnline:
			view.Chargers.Online++
		case service.ChargerStatusOffline:
			view.Chargers.Offline++
		default:
			view.Chargers.Unavailable++
		}

		total, disconnected, err := h.controllers.CountByCharger(r.Context(), charger.ID)
		if err != nil {
			h.logger.Error("counting controllers failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		view.Controllers.Total += total
		view.Controllers.Disconnected += disconnected
	}

	writeJSON(w, http.StatusOK, view)
}

// CompanyConsumption handles GET /api/dashboard/companies and breaks total
// consumption down per company.
func (h *DashboardHandlers) CompanyConsumption(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())

	totals, err := h.sessions.ConsumptionByCompany(r.Context(), scope)
	if err != nil {
		h.logger.Error("aggregating company consumption failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, totals)
}
