package attendancehandler

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

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

type Handler struct {
	Store staff.Store
	Audit audit.Recorder
}

func NewHandler(store staff.Store, recorder audit.Recorder) *Handler {
	return &Handler{Store: store, Audit: recorder}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/attendance", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/date/{date}", h.handleByDate)
		r.Get("/employee/{employeeID}", h.handleByEmployee)
		r.Post("/mark", h.handleMark)
	})
}

type listResponse struct {
	Items  []staff.AttendanceRecord `json:"items"`
	Total  int                      `json:"total"`
	Limit  int                      `json:"limit"`
	Offset int                      `json:"offset"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	period, err := shared.PeriodFromQuery(r, staff.Period{})
	if err != nil {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "date", Reason: err.Error()}})
		return
	}
	filter := staff.RecordFilter{Period: period, EmployeeID: strings.TrimSpace(r.URL.Query().Get("employeeId"))}
	h.writeList(w, r, filter)
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
		shared.FailStore(w, r, err, "employee", "attendance_list_failed")
		return
	}
	h.writeList(w, r, staff.RecordFilter{EmployeeID: employeeID})
}

func (h *Handler) writeList(w http.ResponseWriter, r *http.Request, filter staff.RecordFilter) {
	records, err := h.Store.ListAttendance(r.Context(), filter)
	if err != nil {
		shared.FailStore(w, r, err, "attendance", "attendance_list_failed")
		return
	}
	page := shared.ParsePagination(r, defaultPageSize, maxPageSize)
	items, total := shared.Page(records, page)
	if items == nil {
		items = []staff.AttendanceRecord{}
	}
	api.Success(w, listResponse{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}, requestctx.GetRequestID(r.Context()))
}

type markRequest struct {
	EmployeeID json.RawMessage `json:"employeeId"`
	Date       string          `json:"date"`
	Present    *bool           `json:"present"`
}

// handleMark upserts the attendance for one employee and day; repeating the
// call for the same day overwrites the earlier value.
func (h *Handler) handleMark(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	var payload markRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	v := shared.NewValidator()
	ref := staff.DecodeEmployeeRef(payload.EmployeeID)
	if staff.RefIDOf(ref) == "" {
		v.Add("employeeId", "is required")
	}
	day, _ := v.Day("date", payload.Date)
	if payload.Present == nil {
		v.Add("present", "is required")
	}
	if v.Reject(w, requestID) {
		return
	}

	emp, err := h.Store.GetEmployee(r.Context(), ref.ID())
	if err != nil {
		shared.FailStore(w, r, err, "employee", "attendance_mark_failed")
		return
	}

	record, created, err := h.Store.MarkAttendance(r.Context(), emp.ID, day, *payload.Present)
	if err != nil {
		shared.FailStore(w, r, err, "attendance", "attendance_mark_failed")
		return
	}
	record.Employee = staff.EmbeddedRef{EmployeeID: emp.ID, Name: emp.Name}

	actor := ""
	if user, ok := middleware.GetUser(r.Context()); ok {
		actor = user.UserID
	}
	action := audit.ActionUpdate
	if created {
		action = audit.ActionCreate
	}
	shared.RecordAudit(r, h.Audit, actor, action, "attendance", record.ID, nil, record)

	if created {
		api.Created(w, record, requestID)
		return
	}
	api.Success(w, record, requestID)
}
