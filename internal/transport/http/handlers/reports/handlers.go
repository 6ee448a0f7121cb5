package reportshandler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"staffhub/internal/domain/reports"
	"staffhub/internal/domain/staff"
	"staffhub/internal/platform/metrics"
	"staffhub/internal/platform/requestctx"
	"staffhub/internal/transport/http/api"
	"staffhub/internal/transport/http/shared"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"

	maxActivityLimit = 50
)

type Handler struct {
	Service *reports.Service
	Metrics *metrics.Collector
	Now     func() time.Time
}

func NewHandler(service *reports.Service, collector *metrics.Collector) *Handler {
	return &Handler{Service: service, Metrics: collector, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/daily", h.handleDaily)
		r.Get("/stats", h.handleStats)
		r.Get("/activity", h.handleActivity)
		r.Get("/export/{file}", h.handleExport)
	})
	r.Get("/dashboard/stats", h.handleDashboard)
}

// period reads ?date= or ?month=, defaulting to the current month.
func (h *Handler) period(w http.ResponseWriter, r *http.Request) (staff.Period, bool) {
	period, err := shared.PeriodFromQuery(r, shared.CurrentMonth(h.Now()))
	if err != nil {
		shared.FailValidation(w, requestctx.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "period", Reason: err.Error()}})
		return staff.Period{}, false
	}
	return period, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, code string, err error) {
	requestID := requestctx.GetRequestID(r.Context())
	slog.Error("report failed", "code", code, "err", err, "requestId", requestID)
	api.Fail(w, http.StatusInternalServerError, code, "failed to build report", requestID)
}

func employeeFilter(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("employeeId"))
}

func (h *Handler) handleDaily(w http.ResponseWriter, r *http.Request) {
	period, ok := h.period(w, r)
	if !ok {
		return
	}
	buckets, err := h.Service.DailySummary(r.Context(), period, employeeFilter(r))
	if err != nil {
		h.fail(w, r, "daily_report_failed", err)
		return
	}
	if buckets == nil {
		buckets = []reports.DayBucket{}
	}
	api.Success(w, map[string]any{
		"period":  period,
		"buckets": buckets,
	}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	period, ok := h.period(w, r)
	if !ok {
		return
	}
	stats, err := h.Service.MonthStats(r.Context(), period, employeeFilter(r))
	if err != nil {
		h.fail(w, r, "stats_report_failed", err)
		return
	}
	api.Success(w, stats, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			shared.FailValidation(w, requestctx.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "limit", Reason: "must be a positive integer"}})
			return
		}
		limit = min(parsed, maxActivityLimit)
	}
	items, err := h.Service.Activity(r.Context(), limit)
	if err != nil {
		h.fail(w, r, "activity_failed", err)
		return
	}
	if items == nil {
		items = []reports.ActivityItem{}
	}
	api.Success(w, items, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.Service.Dashboard(r.Context())
	if err != nil {
		h.fail(w, r, "dashboard_failed", err)
		return
	}
	api.Success(w, dash, requestctx.GetRequestID(r.Context()))
}

func periodLabel(p staff.Period) string {
	if p.From == p.To {
		return p.From.String()
	}
	return p.From.Month()
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	period, ok := h.period(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	employeeID := employeeFilter(r)
	label := periodLabel(period)

	var (
		body        []byte
		contentType string
		filename    string
		format      string
		err         error
	)
	switch chi.URLParam(r, "file") {
	case "attendance.csv":
		var text string
		text, err = h.Service.ExportAttendanceCSV(ctx, period, employeeID)
		body, contentType, filename, format = []byte(text), contentTypeCSV, "attendance-"+label+".csv", "csv"
	case "expenses.csv":
		var text string
		text, err = h.Service.ExportExpensesCSV(ctx, period, employeeID)
		body, contentType, filename, format = []byte(text), contentTypeCSV, "expenses-"+label+".csv", "csv"
	case "report.xlsx":
		body, err = h.Service.ExportXLSX(ctx, period, employeeID)
		contentType, filename, format = contentTypeXLSX, "report-"+label+".xlsx", "xlsx"
	case "monthly.pdf":
		body, err = h.Service.ExportMonthlyPDF(ctx, period, employeeID)
		contentType, filename, format = contentTypePDF, "monthly-"+label+".pdf", "pdf"
	default:
		api.Fail(w, http.StatusNotFound, "unknown_export", "unknown export format", requestctx.GetRequestID(ctx))
		return
	}
	if err != nil {
		h.fail(w, r, "export_failed", err)
		return
	}
	h.Metrics.RecordExport(format)
	api.Attachment(w, contentType, filename, body)
}
