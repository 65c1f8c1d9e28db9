package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"chargehub/internal/http/middleware"
	"chargehub/internal/models"
	"chargehub/internal/repository"
)

const (
	defaultSessionLimit = 100
	exportSessionLimit  = 50000
)

// SessionHandlers serves charging-session reads and the CSV export.
type SessionHandlers struct {
	sessions *repository.SessionRepository
	logger   *zap.Logger
}

// NewSessionHandlers builds handlers.
func NewSessionHandlers(sessions *repository.SessionRepository, logger *zap.Logger) *SessionHandlers {
	return &SessionHandlers{sessions: sessions, logger: logger}
}

// ListByController handles GET /api/controllers/{controllerUID}/sessions.
// Results are newest first; limit defaults to 100.
func (h *SessionHandlers) ListByController(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())

	limit := defaultSessionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	sessions, err := h.sessions.ListByController(r.Context(), scope, chi.URLParam(r, "controllerUID"), limit)
	if err != nil {
		h.logger.Error("listing sessions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// Get handles GET /api/sessions/{sessionID}.
func (h *SessionHandlers) Get(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "sessionID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := h.sessions.GetByID(r.Context(), scope, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("loading session failed", zap.Int64("session_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Export handles GET /api/controllers/{controllerUID}/sessions/export and
// streams the controller's sessions as CSV. Column names mirror the firmware
// export so the file can be re-imported.
func (h *SessionHandlers) Export(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	uid := chi.URLParam(r, "controllerUID")

	sessions, err := h.sessions.ListByController(r.Context(), scope, uid, exportSessionLimit)
	if err != nil {
		h.logger.Error("exporting sessions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "charging-sessions-"+uid+".csv"))

	writer := csv.NewWriter(w)
	_ = writer.Write([]string{
		"controllerId", "startTimestamp", "endTimestamp", "duration",
		"startRealPower", "endRealPower", "consumption", "rfidTag", "rfidTimestamp",
	})
	for _, session := range sessions {
		_ = writer.Write(sessionRecord(&session))
	}
	writer.Flush()
}

func sessionRecord(s *models.ChargingSession) []string {
	return []string{
		s.ControllerUID,
		formatTime(s.StartTimestamp),
		formatTime(s.EndTimestamp),
		formatInt(s.Duration),
		formatFloat(s.StartRealPower),
		formatFloat(s.EndRealPower),
		formatFloat(s.Consumption),
		formatString(s.RfidTag),
		formatTime(s.RfidTimestamp),
	}
}

func formatTime(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

func formatFloat(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}

func formatInt(value *int64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatInt(*value, 10)
}

func formatString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
