package attendancehandler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"staffhub/internal/domain/audit"
	"staffhub/internal/domain/staff"
	"staffhub/internal/transport/http/api"
	"staffhub/internal/transport/http/middleware"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := staff.OpenFileStore(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	NewHandler(store, audit.NewLogRecorder(nil)).RegisterRoutes(r)
	return r
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env api.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env.Data.(map[string]any)
}

func TestMarkUpsertsPerEmployeeAndDay(t *testing.T) {
	router := newRouter(t)

	rec := serve(router, http.MethodPost, "/attendance/mark", `{"employeeId":"4","date":"2025-05-02","present":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	record := decodeList(t, rec)
	if record["employeeName"] != "Emily Davis" {
		t.Fatalf("expected employee name in response, got %+v", record)
	}

	rec = serve(router, http.MethodPost, "/attendance/mark", `{"employeeId":{"_id":"4"},"date":"2025-05-02","present":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on overwrite, got %d: %s", rec.Code, rec.Body.String())
	}
	if decodeList(t, rec)["present"] != false {
		t.Fatal("expected later mark to win")
	}

	rec = serve(router, http.MethodGet, "/attendance/employee/4", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("by employee: %d", rec.Code)
	}
	if total := decodeList(t, rec)["total"].(float64); total != 1 {
		t.Fatalf("expected a single record, got %v", total)
	}
}

func TestMarkValidation(t *testing.T) {
	router := newRouter(t)
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "bad json", body: `{`, want: http.StatusBadRequest},
		{name: "missing employee", body: `{"date":"2025-05-02","present":true}`, want: http.StatusBadRequest},
		{name: "bad date", body: `{"employeeId":"1","date":"02/05/2025","present":true}`, want: http.StatusBadRequest},
		{name: "missing present", body: `{"employeeId":"1","date":"2025-05-02"}`, want: http.StatusBadRequest},
		{name: "unknown employee", body: `{"employeeId":"404","date":"2025-05-02","present":true}`, want: http.StatusNotFound},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(router, http.MethodPost, "/attendance/mark", tc.body)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestListFiltersAndPaginates(t *testing.T) {
	router := newRouter(t)
	for _, body := range []string{
		`{"employeeId":"1","date":"2025-05-01","present":true}`,
		`{"employeeId":"2","date":"2025-05-01","present":true}`,
		`{"employeeId":"3","date":"2025-05-01","present":false}`,
		`{"employeeId":"1","date":"2025-06-01","present":true}`,
	} {
		if rec := serve(router, http.MethodPost, "/attendance/mark", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed mark: %d", rec.Code)
		}
	}

	rec := serve(router, http.MethodGet, "/attendance?month=2025-05&limit=2&offset=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	data := decodeList(t, rec)
	if data["total"].(float64) != 3 || len(data["items"].([]any)) != 2 {
		t.Fatalf("unexpected page %+v", data)
	}

	rec = serve(router, http.MethodGet, "/attendance?employeeId=1", "")
	if decodeList(t, rec)["total"].(float64) != 2 {
		t.Fatal("expected employee filter to keep both months")
	}

	rec = serve(router, http.MethodGet, "/attendance/date/2025-06-01", "")
	if decodeList(t, rec)["total"].(float64) != 1 {
		t.Fatal("expected a single record for the day")
	}

	if rec := serve(router, http.MethodGet, "/attendance?month=May", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed month, got %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/attendance/employee/missing", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown employee, got %d", rec.Code)
	}
}
