package authhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"staffhub/internal/domain/audit"
	"staffhub/internal/domain/auth"
	"staffhub/internal/platform/requestctx"
	"staffhub/internal/transport/http/api"
	"staffhub/internal/transport/http/middleware"
	"staffhub/internal/transport/http/shared"
)

type Handler struct {
	Auth         *auth.Authenticator
	Audit        audit.Recorder
	SecureCookie bool
}

func NewHandler(authenticator *auth.Authenticator, recorder audit.Recorder, secureCookie bool) *Handler {
	return &Handler{Auth: authenticator, Audit: recorder, SecureCookie: secureCookie}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/logout", h.HandleLogout)
	r.Get("/auth/verify", h.HandleVerify)
}

type loginRequest struct {
	Password string `json:"password"`
	MFACode  string `json:"mfaCode"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	if payload.Password == "" {
		api.Fail(w, http.StatusBadRequest, "password_required", "password is required", requestID)
		return
	}

	token, expires, err := h.Auth.Login(payload.Password, payload.MFACode)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		slog.Warn("admin login failed", "ip", requestctx.GetClientIP(r.Context()), "requestId", requestID)
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestID)
		return
	case errors.Is(err, auth.ErrMFARequired):
		api.Fail(w, http.StatusUnauthorized, "mfa_required", "mfa code required", requestID)
		return
	case errors.Is(err, auth.ErrMFAInvalid):
		api.Fail(w, http.StatusUnauthorized, "mfa_invalid", "invalid mfa code", requestID)
		return
	case err != nil:
		slog.Error("issue session token failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to create session", requestID)
		return
	}

	http.SetCookie(w, h.sessionCookie(token, expires))
	shared.RecordAudit(r, h.Audit, auth.RoleAdmin, audit.ActionLogin, "session", auth.RoleAdmin, nil, nil)
	api.Success(w, map[string]any{
		"token":     token,
		"expiresAt": expires.UTC().Format(time.RFC3339),
	}, requestID)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.sessionCookie("", time.Unix(0, 0)))
	api.Success(w, map[string]string{"status": "logged_out"}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestctx.GetRequestID(r.Context()))
		return
	}
	data := map[string]any{
		"authenticated": true,
		"role":          user.RoleName,
	}
	if !user.ExpiresAt.IsZero() {
		data["expiresAt"] = user.ExpiresAt.UTC().Format(time.RFC3339)
	}
	api.Success(w, data, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) sessionCookie(value string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     auth.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		cookie.MaxAge = -1
	} else {
		cookie.MaxAge = int(time.Until(expires).Seconds())
	}
	return cookie
}
