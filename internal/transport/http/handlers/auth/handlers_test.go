package authhandler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"staffhub/internal/domain/audit"
	"staffhub/internal/domain/auth"
	"staffhub/internal/transport/http/api"
	"staffhub/internal/transport/http/middleware"
)

func newRouter(t *testing.T) (http.Handler, *auth.Authenticator) {
	t.Helper()
	a, err := auth.NewAuthenticator(auth.Options{Secret: "test-secret", Password: "admin123", TTL: time.Hour})
	if err != nil {
		t.Fatalf("authenticator: %v", err)
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Auth(a))
	NewHandler(a, audit.NewLogRecorder(nil), false).RegisterRoutes(r)
	return r, a
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) api.Envelope {
	t.Helper()
	var env api.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env
}

func TestLoginSetsCookieAndVerifies(t *testing.T) {
	router, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"password":"admin123"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			session = c
		}
	}
	if session == nil || session.Value == "" || !session.HttpOnly {
		t.Fatalf("expected http-only session cookie, got %+v", session)
	}
	env := decode(t, rec)
	data := env.Data.(map[string]any)
	if data["token"] != session.Value {
		t.Fatal("token in body should match cookie")
	}

	verify := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
	verify.AddCookie(session)
	verifyRec := httptest.NewRecorder()
	router.ServeHTTP(verifyRec, verify)
	if verifyRec.Code != http.StatusOK {
		t.Fatalf("expected verify to pass, got %d", verifyRec.Code)
	}
	if decode(t, verifyRec).Data.(map[string]any)["authenticated"] != true {
		t.Fatal("expected authenticated flag")
	}
}

func TestLoginFailures(t *testing.T) {
	router, _ := newRouter(t)
	tests := []struct {
		name string
		body string
		want int
		code string
	}{
		{name: "wrong password", body: `{"password":"nope"}`, want: http.StatusUnauthorized, code: "invalid_credentials"},
		{name: "missing password", body: `{}`, want: http.StatusBadRequest, code: "password_required"},
		{name: "bad json", body: `{`, want: http.StatusBadRequest, code: "invalid_payload"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(tc.body)))
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
			if env := decode(t, rec); env.Error == nil || env.Error.Code != tc.code {
				t.Fatalf("unexpected envelope %+v", env)
			}
		})
	}
}

func TestVerifyWithoutSession(t *testing.T) {
	router, _ := newRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/verify", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	router, _ := newRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != auth.CookieName || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected expired session cookie, got %+v", cookies)
	}
}
