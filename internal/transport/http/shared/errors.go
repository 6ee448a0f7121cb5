package shared

import (
	"errors"
	"log/slog"
	"net/http"

	"staffhub/internal/domain/audit"
	"staffhub/internal/domain/staff"
	"staffhub/internal/platform/requestctx"
	"staffhub/internal/transport/http/api"
)

// FailStore maps entity store errors onto the response envelope. entity is
// the noun used in messages, e.g. "employee".
func FailStore(w http.ResponseWriter, r *http.Request, err error, entity, code string) {
	requestID := requestctx.GetRequestID(r.Context())
	switch {
	case errors.Is(err, staff.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", entity+" not found", requestID)
	case errors.Is(err, staff.ErrInvalidID):
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid "+entity+" id", requestID)
	case errors.Is(err, staff.ErrConflict):
		api.Fail(w, http.StatusConflict, "conflict", entity+" already exists", requestID)
	default:
		slog.Error("store operation failed", "entity", entity, "code", code, "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, code, "failed to process "+entity, requestID)
	}
}

// RecordAudit stores an audit event for a mutation. Failures are logged and
// never change the response.
func RecordAudit(r *http.Request, recorder audit.Recorder, actorID, action, entityType, entityID string, before, after any) {
	if recorder == nil {
		return
	}
	ctx := r.Context()
	evt, err := audit.NewEvent(actorID, action, entityType, entityID, requestctx.GetRequestID(ctx), requestctx.GetClientIP(ctx), before, after)
	if err == nil {
		err = recorder.Record(ctx, evt)
	}
	if err != nil {
		slog.Warn("audit record failed", "action", action, "entityType", entityType, "entityId", entityID, "err", err)
	}
}
