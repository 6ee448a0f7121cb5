package expensehandler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"staffhub/internal/domain/audit"
	"staffhub/internal/domain/staff"
	"staffhub/internal/platform/requestctx"
	"staffhub/internal/transport/http/api"
	"staffhub/internal/transport/http/middleware"
	"staffhub/internal/transport/http/shared"
)

type Handler struct {
	Store       staff.Store
	Audit       audit.Recorder
	Idempotency middleware.IdempotencyStore
}

func NewHandler(store staff.Store, recorder audit.Recorder, idempotency middleware.IdempotencyStore) *Handler {
	return &Handler{Store: store, Audit: recorder, Idempotency: idempotency}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/expenses", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.With(middleware.Idempotent(h.Idempotency)).Post("/", h.handleCreate)
		r.Get("/date/{date}", h.handleByDate)
		r.Get("/employee/{employeeID}", h.handleByEmployee)
		r.Route("/{expenseID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Put("/", h.handleUpdate)
			r.Delete("/", h.handleDelete)
		})
	})
}

type expenseRequest struct {
	EmployeeID  json.RawMessage  `json:"employeeId"`
	Date        string           `json:"date"`
	Amount      *decimal.Decimal `json:"amount"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
}

// expense validates the payload and resolves the employee it names. ok is
// false when a response has already been written.
func (h *Handler) expense(w http.ResponseWriter, r *http.Request) (staff.Expense, bool) {
	requestID := requestctx.GetRequestID(r.Context())
	var payload expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return staff.Expense{}, false
	}

	v := shared.NewValidator()
	ref := staff.DecodeEmployeeRef(payload.EmployeeID)
	if staff.RefIDOf(ref) == "" {
		v.Add("employeeId", "is required")
	}
	day, _ := v.Day("date", payload.Date)
	amount := decimal.Zero
	if payload.Amount != nil {
		amount = *payload.Amount
	}
	v.Amount("amount", amount, payload.Amount != nil)
	if v.Reject(w, requestID) {
		return staff.Expense{}, false
	}

	emp, err := h.Store.GetEmployee(r.Context(), ref.ID())
	if err != nil {
		shared.FailStore(w, r, err, "employee", "expense_save_failed")
		return staff.Expense{}, false
	}
	return staff.Expense{
		Employee:    staff.RefID(emp.ID),
		Date:        day,
		Amount:      amount,
		Description: strings.TrimSpace(payload.Description),
		Category:    strings.TrimSpace(payload.Category),
	}, true
}

func actorID(r *http.Request) string {
	if user, ok := middleware.GetUser(r.Context()); ok {
		return user.UserID
	}
	return ""
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	period, err := shared.PeriodFromQuery(r, staff.Period{})
	if err != nil {
		shared.FailValidation(w, requestctx.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "date", Reason: err.Error()}})
		return
	}
	h.writeList(w, r, staff.RecordFilter{Period: period, EmployeeID: strings.TrimSpace(r.URL.Query().Get("employeeId"))})
}

func (h *Handler) handleByDate(w http.ResponseWriter, r *http.Request) {
	day, err := staff.ParseDay(chi.URLParam(r, "date"))
	if err != nil {
		shared.FailValidation(w, requestctx.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "date", Reason: "must be a valid date in YYYY-MM-DD format"}})
		return
	}
	h.writeList(w, r, staff.RecordFilter{Period: staff.DayPeriod(day)})
}

func (h *Handler) handleByEmployee(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	if _, err := h.Store.GetEmployee(r.Context(), employeeID); err != nil {
		shared.FailStore(w, r, err, "employee", "expense_list_failed")
		return
	}
	h.writeList(w, r, staff.RecordFilter{EmployeeID: employeeID})
}

func (h *Handler) writeList(w http.ResponseWriter, r *http.Request, filter staff.RecordFilter) {
	expenses, err := h.Store.ListExpenses(r.Context(), filter)
	if err != nil {
		shared.FailStore(w, r, err, "expense", "expense_list_failed")
		return
	}
	if expenses == nil {
		expenses = []staff.Expense{}
	}
	api.Success(w, expenses, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	exp, err := h.Store.GetExpense(r.Context(), chi.URLParam(r, "expenseID"))
	if err != nil {
		shared.FailStore(w, r, err, "expense", "expense_fetch_failed")
		return
	}
	api.Success(w, exp, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	exp, ok := h.expense(w, r)
	if !ok {
		return
	}
	created, err := h.Store.CreateExpense(r.Context(), exp)
	if err != nil {
		shared.FailStore(w, r, err, "expense", "expense_create_failed")
		return
	}
	shared.RecordAudit(r, h.Audit, actorID(r), audit.ActionCreate, "expense", created.ID, nil, created)
	api.Created(w, created, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	expenseID := chi.URLParam(r, "expenseID")
	before, err := h.Store.GetExpense(r.Context(), expenseID)
	if err != nil {
		shared.FailStore(w, r, err, "expense", "expense_update_failed")
		return
	}
	exp, ok := h.expense(w, r)
	if !ok {
		return
	}
	updated, err := h.Store.UpdateExpense(r.Context(), expenseID, exp)
	if err != nil {
		shared.FailStore(w, r, err, "expense", "expense_update_failed")
		return
	}
	shared.RecordAudit(r, h.Audit, actorID(r), audit.ActionUpdate, "expense", updated.ID, before, updated)
	api.Success(w, updated, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	expenseID := chi.URLParam(r, "expenseID")
	before, err := h.Store.GetExpense(r.Context(), expenseID)
	if err != nil {
		shared.FailStore(w, r, err, "expense", "expense_delete_failed")
		return
	}
	if err := h.Store.DeleteExpense(r.Context(), expenseID); err != nil {
		shared.FailStore(w, r, err, "expense", "expense_delete_failed")
		return
	}
	shared.RecordAudit(r, h.Audit, actorID(r), audit.ActionDelete, "expense", before.ID, before, nil)
	api.Success(w, map[string]string{"status": "deleted", "id": before.ID}, requestctx.GetRequestID(r.Context()))
}
