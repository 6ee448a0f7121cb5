package employeehandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"staffhub/internal/domain/audit"
	"staffhub/internal/domain/auth"
	"staffhub/internal/domain/staff"
	"staffhub/internal/transport/http/api"
	"staffhub/internal/transport/http/middleware"
)

type memoryRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (m *memoryRecorder) Record(_ context.Context, evt audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *memoryRecorder) List(_ context.Context, limit, offset int) ([]audit.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audit.Event(nil), m.events...), nil
}

func newRouter(t *testing.T) (http.Handler, *memoryRecorder) {
	t.Helper()
	store, err := staff.OpenFileStore(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	recorder := &memoryRecorder{}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := auth.UserContext{UserID: "admin-user-id", RoleName: auth.RoleAdmin}
			next.ServeHTTP(w, r.WithContext(middleware.WithUser(r.Context(), user)))
		})
	})
	NewHandler(store, recorder).RegisterRoutes(r)
	return r, recorder
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestCreateEmployeeAuditsActor(t *testing.T) {
	router, recorder := newRouter(t)
	rec := serve(router, http.MethodPost, "/employees", `{"name":" Grace ","position":"Analyst","email":"grace@example.com","status":"Active"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var env api.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	created := env.Data.(map[string]any)
	if created["name"] != "Grace" || created["status"] != staff.EmployeeStatusActive {
		t.Fatalf("unexpected employee %+v", created)
	}

	if len(recorder.events) != 1 {
		t.Fatalf("expected one audit event, got %d", len(recorder.events))
	}
	evt := recorder.events[0]
	if evt.ActorID != "admin-user-id" || evt.Action != audit.ActionCreate || evt.EntityType != "employee" || evt.RequestID == "" {
		t.Fatalf("unexpected audit event %+v", evt)
	}
}

func TestEmployeeValidation(t *testing.T) {
	router, recorder := newRouter(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "missing name", method: http.MethodPost, path: "/employees", body: `{"position":"X"}`, want: http.StatusBadRequest},
		{name: "bad email", method: http.MethodPost, path: "/employees", body: `{"name":"A","position":"B","email":"nope"}`, want: http.StatusBadRequest},
		{name: "bad status", method: http.MethodPost, path: "/employees", body: `{"name":"A","position":"B","status":"fired"}`, want: http.StatusBadRequest},
		{name: "duplicate email", method: http.MethodPost, path: "/employees", body: `{"name":"A","position":"B","email":"john@nmdecor.com"}`, want: http.StatusConflict},
		{name: "update unknown", method: http.MethodPut, path: "/employees/missing", body: `{"name":"A","position":"B"}`, want: http.StatusNotFound},
		{name: "delete unknown", method: http.MethodDelete, path: "/employees/missing", want: http.StatusNotFound},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(router, tc.method, tc.path, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
	if len(recorder.events) != 0 {
		t.Fatalf("failed writes should not be audited, got %d events", len(recorder.events))
	}
}

func TestDeleteEmployee(t *testing.T) {
	router, recorder := newRouter(t)
	if rec := serve(router, http.MethodDelete, "/employees/3", ""); rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/employees/3", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if len(recorder.events) != 1 || recorder.events[0].Action != audit.ActionDelete || len(recorder.events[0].Before) == 0 {
		t.Fatalf("expected delete audit with before snapshot, got %+v", recorder.events)
	}
}
