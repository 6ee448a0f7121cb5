package employeehandler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"staffhub/internal/domain/audit"
	"staffhub/internal/domain/staff"
	"staffhub/internal/platform/requestctx"
	"staffhub/internal/transport/http/api"
	"staffhub/internal/transport/http/middleware"
	"staffhub/internal/transport/http/shared"
)

type Handler struct {
	Store staff.Store
	Audit audit.Recorder
}

func NewHandler(store staff.Store, recorder audit.Recorder) *Handler {
	return &Handler{Store: store, Audit: recorder}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Route("/{employeeID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Put("/", h.handleUpdate)
			r.Delete("/", h.handleDelete)
		})
	})
}

type employeeRequest struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Status   string `json:"status"`
}

func (p employeeRequest) validate() *shared.Validator {
	v := shared.NewValidator()
	v.Required("name", p.Name, "is required")
	v.Required("position", p.Position, "is required")
	v.Email("email", p.Email)
	v.Enum("status", p.Status, staff.EmployeeStatuses, "must be one of active, inactive, on-leave")
	return v
}

func (p employeeRequest) employee() staff.Employee {
	return staff.Employee{
		Name:     strings.TrimSpace(p.Name),
		Position: strings.TrimSpace(p.Position),
		Email:    strings.TrimSpace(p.Email),
		Phone:    strings.TrimSpace(p.Phone),
		Status:   strings.ToLower(strings.TrimSpace(p.Status)),
	}
}

func actorID(r *http.Request) string {
	if user, ok := middleware.GetUser(r.Context()); ok {
		return user.UserID
	}
	return ""
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		shared.FailStore(w, r, err, "employee", "employee_list_failed")
		return
	}
	if employees == nil {
		employees = []staff.Employee{}
	}
	api.Success(w, employees, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		shared.FailStore(w, r, err, "employee", "employee_fetch_failed")
		return
	}
	api.Success(w, emp, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	var payload employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	if payload.validate().Reject(w, requestID) {
		return
	}

	created, err := h.Store.CreateEmployee(r.Context(), payload.employee())
	if err != nil {
		shared.FailStore(w, r, err, "employee", "employee_create_failed")
		return
	}
	shared.RecordAudit(r, h.Audit, actorID(r), audit.ActionCreate, "employee", created.ID, nil, created)
	api.Created(w, created, requestID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	employeeID := chi.URLParam(r, "employeeID")
	var payload employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	if payload.validate().Reject(w, requestID) {
		return
	}

	before, err := h.Store.GetEmployee(r.Context(), employeeID)
	if err != nil {
		shared.FailStore(w, r, err, "employee", "employee_update_failed")
		return
	}
	updated, err := h.Store.UpdateEmployee(r.Context(), employeeID, payload.employee())
	if err != nil {
		shared.FailStore(w, r, err, "employee", "employee_update_failed")
		return
	}
	shared.RecordAudit(r, h.Audit, actorID(r), audit.ActionUpdate, "employee", updated.ID, before, updated)
	api.Success(w, updated, requestID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	before, err := h.Store.GetEmployee(r.Context(), employeeID)
	if err != nil {
		shared.FailStore(w, r, err, "employee", "employee_delete_failed")
		return
	}
	if err := h.Store.DeleteEmployee(r.Context(), employeeID); err != nil {
		shared.FailStore(w, r, err, "employee", "employee_delete_failed")
		return
	}
	shared.RecordAudit(r, h.Audit, actorID(r), audit.ActionDelete, "employee", before.ID, before, nil)
	api.Success(w, map[string]string{"status": "deleted", "id": before.ID}, requestctx.GetRequestID(r.Context()))
}
