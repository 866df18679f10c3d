// Package handler exposes the tenant backend over HTTP
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/domain"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/service"
	"github.com/tenantdesk/tenantdesk-backend/pkg/httputil"
	"github.com/tenantdesk/tenantdesk-backend/pkg/logger"
	"github.com/tenantdesk/tenantdesk-backend/pkg/permissions"
)

// TenantHandler serves tenant detail routes
type TenantHandler struct {
	backend *service.Backend
	access  *service.Access
	logger  *logger.Logger
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(backend *service.Backend, access *service.Access, log *logger.Logger) *TenantHandler {
	return &TenantHandler{
		backend: backend,
		access:  access,
		logger:  log.WithComponent("tenant_handler"),
	}
}

// RegisterRoutes mounts the tenant routes on r. Authentication is applied
// by the caller; every tenant route is authorized against the actor before
// its body is read.
func (h *TenantHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tenants/{tenantID}", func(r chi.Router) {
			r.Get("/profile", h.GetProfile)
			r.Get("/family-members", h.ListFamilyMembers)
			r.Post("/family-members", h.AddFamilyMember)
			r.Get("/documents", h.ListDocuments)
			r.Post("/documents", h.AddDocument)
			r.Get("/bills", h.ListBills)
			r.Post("/bills", h.AddBill)
			r.Get("/meter-readings", h.ListMeterReadings)
			r.Post("/meter-readings", h.AddMeterReading)
			r.Put("/room", h.UpdateRoom)
		})
		r.Put("/family-members/{id}", h.UpdateFamilyMember)
		r.Delete("/family-members/{id}", h.DeleteFamilyMember)
		r.Get("/schema/status", h.SchemaStatus)
	})
}

// GetProfile handles GET /api/v1/tenants/{tenantID}/profile
func (h *TenantHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if !h.allowTenant(w, r, tenantID, permissions.OpRead) {
		return
	}
	writeResult(w, http.StatusOK, h.backend.GetTenantProfile(r.Context(), tenantID))
}

// ListFamilyMembers handles GET /api/v1/tenants/{tenantID}/family-members
func (h *TenantHandler) ListFamilyMembers(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if !h.allowTenant(w, r, tenantID, permissions.OpRead) {
		return
	}
	writeResult(w, http.StatusOK, h.backend.GetFamilyMembers(r.Context(), tenantID))
}

// AddFamilyMember handles POST /api/v1/tenants/{tenantID}/family-members
func (h *TenantHandler) AddFamilyMember(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if !h.allowTenant(w, r, tenantID, permissions.OpWrite) {
		return
	}
	var in domain.FamilyMemberInput
	if !decode(w, r, &in) {
		return
	}
	writeResult(w, http.StatusCreated, h.backend.AddFamilyMember(r.Context(), tenantID, in))
}

// UpdateFamilyMember handles PUT /api/v1/family-members/{id}
func (h *TenantHandler) UpdateFamilyMember(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.allow(w, h.access.FamilyMember(r.Context(), id, permissions.OpWrite)) {
		return
	}
	var in domain.FamilyMemberInput
	if !decode(w, r, &in) {
		return
	}
	writeResult(w, http.StatusOK, h.backend.UpdateFamilyMember(r.Context(), id, in))
}

// DeleteFamilyMember handles DELETE /api/v1/family-members/{id}
func (h *TenantHandler) DeleteFamilyMember(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.allow(w, h.access.FamilyMember(r.Context(), id, permissions.OpWrite)) {
		return
	}
	writeResult(w, http.StatusOK, h.backend.DeleteFamilyMember(r.Context(), id))
}

// ListDocuments handles GET /api/v1/tenants/{tenantID}/documents
func (h *TenantHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if !h.allowTenant(w, r, tenantID, permissions.OpRead) {
		return
	}
	writeResult(w, http.StatusOK, h.backend.GetDocuments(r.Context(), tenantID))
}

// AddDocument handles POST /api/v1/tenants/{tenantID}/documents
func (h *TenantHandler) AddDocument(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if !h.allowTenant(w, r, tenantID, permissions.OpWrite) {
		return
	}
	var in domain.DocumentInput
	if !decode(w, r, &in) {
		return
	}
	writeResult(w, http.StatusCreated, h.backend.AddDocument(r.Context(), tenantID, in))
}

// ListBills handles GET /api/v1/tenants/{tenantID}/bills
func (h *TenantHandler) ListBills(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if !h.allowTenant(w, r, tenantID, permissions.OpRead) {
		return
	}
	writeResult(w, http.StatusOK, h.backend.GetBills(r.Context(), tenantID))
}

// AddBill handles POST /api/v1/tenants/{tenantID}/bills
func (h *TenantHandler) AddBill(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if !h.allowTenant(w, r, tenantID, permissions.OpManage) {
		return
	}
	var in domain.BillInput
	if !decode(w, r, &in) {
		return
	}
	writeResult(w, http.StatusCreated, h.backend.AddBill(r.Context(), tenantID, in))
}

// ListMeterReadings handles GET /api/v1/tenants/{tenantID}/meter-readings
func (h *TenantHandler) ListMeterReadings(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if !h.allowTenant(w, r, tenantID, permissions.OpRead) {
		return
	}
	writeResult(w, http.StatusOK, h.backend.GetMeterReadings(r.Context(), tenantID))
}

// AddMeterReading handles POST /api/v1/tenants/{tenantID}/meter-readings
func (h *TenantHandler) AddMeterReading(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if !h.allowTenant(w, r, tenantID, permissions.OpWrite) {
		return
	}
	var in domain.MeterReadingInput
	if !decode(w, r, &in) {
		return
	}
	writeResult(w, http.StatusCreated, h.backend.AddMeterReading(r.Context(), tenantID, in))
}

// UpdateRoom handles PUT /api/v1/tenants/{tenantID}/room
func (h *TenantHandler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if !h.allowTenant(w, r, tenantID, permissions.OpManage) {
		return
	}
	var in domain.RoomInput
	if !decode(w, r, &in) {
		return
	}
	writeResult(w, http.StatusOK, h.backend.UpdateRoomInfo(r.Context(), tenantID, in))
}

// SchemaStatus handles GET /api/v1/schema/status
func (h *TenantHandler) SchemaStatus(w http.ResponseWriter, r *http.Request) {
	writeResult(w, http.StatusOK, h.backend.GetMigrationStatus(r.Context()))
}

func (h *TenantHandler) allowTenant(w http.ResponseWriter, r *http.Request, tenantID string, op permissions.Operation) bool {
	return h.allow(w, h.access.Tenant(r.Context(), tenantID, op))
}

// allow writes a failed result when the access check failed
func (h *TenantHandler) allow(w http.ResponseWriter, err error) bool {
	if err != nil {
		writeResult(w, http.StatusOK, domain.Fail[struct{}](err))
		return false
	}
	return true
}

// decode reads and validates a request body, writing a failed result when
// either step fails
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := httputil.DecodeJSON(r, v)
	if err == nil {
		err = httputil.FlattenValidation(httputil.Validate(v))
	}
	if err != nil {
		writeResult(w, http.StatusOK, domain.Fail[struct{}](err))
		return false
	}
	return true
}

func writeResult[T any](w http.ResponseWriter, successStatus int, result domain.Result[T]) {
	status := successStatus
	if !result.Success {
		status = result.StatusCode
		if status == 0 {
			status = http.StatusInternalServerError
		}
	}
	httputil.Raw(w, status, result)
}
