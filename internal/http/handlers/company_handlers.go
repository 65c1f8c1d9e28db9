package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"chargehub/internal/authz"
	"chargehub/internal/forms"
	"chargehub/internal/http/middleware"
	"chargehub/internal/models"
	"chargehub/internal/repository"
)

// CompanyStore is the company persistence the handlers work against.
type CompanyStore interface {
	GetByID(ctx context.Context, scope authz.Scope, id int64) (*models.Company, error)
	List(ctx context.Context, scope authz.Scope) ([]models.Company, error)
	Create(ctx context.Context, company *models.Company) error
	Update(ctx context.Context, company *models.Company) error
	Delete(ctx context.Context, id int64) error
	Members(ctx context.Context, companyID int64) ([]models.CompanyMember, error)
	MembershipsForUser(ctx context.Context, userID string) ([]models.CompanyMember, error)
	AddMember(ctx context.Context, member *models.CompanyMember) error
	RemoveMember(ctx context.Context, userID string, companyID int64) error
	SetMemberRfid(ctx context.Context, member *models.CompanyMember) error
	ToggleFollow(ctx context.Context, userID string, companyID int64) (bool, error)
}

// CompanyHandlers serves company CRUD, follows, membership management and the
// shared RFID tag pool. Company creation and deletion are admin-only; member
// and RFID management is also open to the company's managers.
type CompanyHandlers struct {
	companies CompanyStore
	rfids     *repository.RfidRepository
	logger    *zap.Logger
}

// NewCompanyHandlers builds handlers.
func NewCompanyHandlers(companies CompanyStore, rfids *repository.RfidRepository, logger *zap.Logger) *CompanyHandlers {
	return &CompanyHandlers{companies: companies, rfids: rfids, logger: logger}
}

// List handles GET /api/companies.
func (h *CompanyHandlers) List(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	companies, err := h.companies.List(r.Context(), scope)
	if err != nil {
		h.logger.Error("listing companies failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

// Get handles GET /api/companies/{companyID}.
func (h *CompanyHandlers) Get(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	company, ok := h.loadCompany(w, r, scope)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, company)
}

// Create handles POST /api/companies.
func (h *CompanyHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var form forms.CompanyForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if errs := form.Validate(); !errs.Valid() {
		writeFormErrors(w, errs)
		return
	}

	company := companyFromForm(&form)
	if err := h.companies.Create(r.Context(), company); err != nil {
		h.logger.Error("creating company failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, company)
}

// Update handles PUT /api/companies/{companyID}.
func (h *CompanyHandlers) Update(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	company, ok := h.loadCompany(w, r, scope)
	if !ok {
		return
	}

	var form forms.CompanyForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if errs := form.Validate(); !errs.Valid() {
		writeFormErrors(w, errs)
		return
	}

	updated := companyFromForm(&form)
	updated.ID = company.ID
	if err := h.companies.Update(r.Context(), updated); err != nil {
		h.logger.Error("updating company failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/companies/{companyID}.
func (h *CompanyHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	company, ok := h.loadCompany(w, r, scope)
	if !ok {
		return
	}
	if err := h.companies.Delete(r.Context(), company.ID); err != nil {
		h.logger.Error("deleting company failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Follow handles POST /api/companies/{companyID}/follow. The endpoint is a
// toggle: following an already-followed company unfollows it again.
func (h *CompanyHandlers) Follow(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	company, ok := h.loadCompany(w, r, scope)
	if !ok {
		return
	}

	following, err := h.companies.ToggleFollow(r.Context(), scope.UserID, company.ID)
	if err != nil {
		h.logger.Error("toggling company follow failed",
			zap.Int64("company_id", company.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"following": following,
	})
}

// Members handles GET /api/companies/{companyID}/members.
func (h *CompanyHandlers) Members(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	company, ok := h.loadCompany(w, r, scope)
	if !ok {
		return
	}

	members, err := h.companies.Members(r.Context(), company.ID)
	if err != nil {
		h.logger.Error("listing members failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// AddMember handles POST /api/companies/{companyID}/members. Adding a user
// who is already a member updates their role.
func (h *CompanyHandlers) AddMember(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	company, ok := h.loadCompany(w, r, scope)
	if !ok {
		return
	}
	if !h.requireManager(w, r, scope, company.ID) {
		return
	}

	var form forms.EmployeeForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if errs := form.Validate(); !errs.Valid() {
		writeFormErrors(w, errs)
		return
	}

	member := &models.CompanyMember{
		UserID:    form.UserID,
		CompanyID: company.ID,
		Role:      form.Role,
	}
	if err := h.companies.AddMember(r.Context(), member); err != nil {
		h.logger.Error("adding member failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

// RemoveMember handles DELETE /api/companies/{companyID}/members/{userID}.
func (h *CompanyHandlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	company, ok := h.loadCompany(w, r, scope)
	if !ok {
		return
	}
	if !h.requireManager(w, r, scope, company.ID) {
		return
	}

	err := h.companies.RemoveMember(r.Context(), chi.URLParam(r, "userID"), company.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "member not found")
			return
		}
		h.logger.Error("removing member failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// SetMemberRfid handles PUT /api/companies/{companyID}/members/{userID}/rfid.
// An empty tag clears the member's personal RFID assignment.
func (h *CompanyHandlers) SetMemberRfid(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	company, ok := h.loadCompany(w, r, scope)
	if !ok {
		return
	}
	if !h.requireManager(w, r, scope, company.ID) {
		return
	}

	var form forms.EmployeeRfidForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	form.UserID = chi.URLParam(r, "userID")
	if errs := form.Validate(); !errs.Valid() {
		writeFormErrors(w, errs)
		return
	}

	member := &models.CompanyMember{
		UserID:        form.UserID,
		CompanyID:     company.ID,
		RfidValidTill: form.RfidValidTill,
	}
	if form.RfidTag != "" {
		member.RfidTag = &form.RfidTag
	}
	if err := h.companies.SetMemberRfid(r.Context(), member); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "member not found")
			return
		}
		h.logger.Error("assigning member rfid failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// ListRfidTags handles GET /api/companies/{companyID}/rfid-tags.
func (h *CompanyHandlers) ListRfidTags(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	company, ok := h.loadCompany(w, r, scope)
	if !ok {
		return
	}

	tags, err := h.rfids.ListByCompany(r.Context(), company.ID)
	if err != nil {
		h.logger.Error("listing rfid tags failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// SaveRfidTag handles POST /api/companies/{companyID}/rfid-tags. A form with
// an id edits the existing pool entry, without one it creates a new entry.
func (h *CompanyHandlers) SaveRfidTag(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	company, ok := h.loadCompany(w, r, scope)
	if !ok {
		return
	}
	if !h.requireManager(w, r, scope, company.ID) {
		return
	}

	var form forms.RfidForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if errs := form.Validate(); !errs.Valid() {
		writeFormErrors(w, errs)
		return
	}

	tag := &models.RfidTag{
		CompanyID:     company.ID,
		RfidTag:       form.RfidTag,
		RfidValidTill: form.RfidValidTill,
		Description:   form.Description,
	}
	if form.ID != nil {
		tag.ID = *form.ID
	}
	if err := h.rfids.Save(r.Context(), tag); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "rfid tag not found")
			return
		}
		h.logger.Error("saving rfid tag failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// DeleteRfidTag handles DELETE /api/companies/{companyID}/rfid-tags/{rfidID}.
func (h *CompanyHandlers) DeleteRfidTag(w http.ResponseWriter, r *http.Request) {
	scope, _ := middleware.ScopeFromContext(r.Context())
	company, ok := h.loadCompany(w, r, scope)
	if !ok {
		return
	}
	if !h.requireManager(w, r, scope, company.ID) {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "rfidID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rfid tag id")
		return
	}
	if err := h.rfids.Delete(r.Context(), id, company.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "rfid tag not found")
			return
		}
		h.logger.Error("deleting rfid tag failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *CompanyHandlers) loadCompany(w http.ResponseWriter, r *http.Request, scope authz.Scope) (*models.Company, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "companyID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company id")
		return nil, false
	}

	company, err := h.companies.GetByID(r.Context(), scope, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "company not found")
			return nil, false
		}
		h.logger.Error("loading company failed", zap.Int64("company_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return company, true
}

// requireManager allows admins and the company's managers through.
func (h *CompanyHandlers) requireManager(w http.ResponseWriter, r *http.Request, scope authz.Scope, companyID int64) bool {
	if scope.Admin {
		return true
	}

	memberships, err := h.companies.MembershipsForUser(r.Context(), scope.UserID)
	if err != nil {
		h.logger.Error("loading memberships failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return false
	}
	for _, m := range memberships {
		if m.CompanyID == companyID && m.Role == models.MemberRoleManager {
			return true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden")
	return false
}

func companyFromForm(form *forms.CompanyForm) *models.Company {
	return &models.Company{
		Name:   form.Name,
		IC:     form.IC,
		DIC:    form.DIC,
		Street: form.Street,
		City:   form.City,
		Zip:    form.Zip,
	}
}
