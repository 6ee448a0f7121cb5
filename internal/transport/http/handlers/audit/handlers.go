package audithandler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"staffhub/internal/domain/audit"
	"staffhub/internal/domain/reports"
	"staffhub/internal/platform/requestctx"
	"staffhub/internal/transport/http/api"
	"staffhub/internal/transport/http/shared"
)

const exportLimit = 10000

var eventColumns = []reports.Column[audit.Event]{
	{Header: "id", Value: func(e audit.Event) string { return e.ID }},
	{Header: "actor", Value: func(e audit.Event) string { return e.ActorID }},
	{Header: "action", Value: func(e audit.Event) string { return e.Action }},
	{Header: "entity_type", Value: func(e audit.Event) string { return e.EntityType }},
	{Header: "entity_id", Value: func(e audit.Event) string { return e.EntityID }},
	{Header: "request_id", Value: func(e audit.Event) string { return e.RequestID }},
	{Header: "ip", Value: func(e audit.Event) string { return e.IP }},
	{Header: "created_at", Value: func(e audit.Event) string { return e.CreatedAt.UTC().Format(time.RFC3339) }},
}

type Handler struct {
	Recorder audit.Recorder
}

func NewHandler(recorder audit.Recorder) *Handler {
	return &Handler{Recorder: recorder}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Get("/events", h.handleListEvents)
		r.Get("/events/export.csv", h.handleExportEvents)
	})
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 100, 500)
	events, err := h.Recorder.List(r.Context(), page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", requestctx.GetRequestID(r.Context()))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	api.Success(w, events, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Recorder.List(r.Context(), exportLimit, 0)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit events", requestctx.GetRequestID(r.Context()))
		return
	}
	text, err := reports.ExportCSV(events, eventColumns)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit events", requestctx.GetRequestID(r.Context()))
		return
	}
	api.Attachment(w, "text/csv; charset=utf-8", "audit-events.csv", []byte(text))
}
