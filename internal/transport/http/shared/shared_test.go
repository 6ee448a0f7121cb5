package shared

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"staffhub/internal/domain/staff"
	"staffhub/internal/transport/http/api"
)

func TestPeriodFromQuery(t *testing.T) {
	fallback := staff.MonthPeriod(2024, time.January)
	tests := []struct {
		name    string
		query   string
		want    staff.Period
		wantErr bool
	}{
		{name: "none", query: "", want: fallback},
		{name: "date", query: "?date=2024-03-05", want: staff.DayPeriod("2024-03-05")},
		{name: "date with time", query: "?date=2024-03-05T23:00:00Z", want: staff.DayPeriod("2024-03-05")},
		{name: "month", query: "?month=2024-02", want: staff.Period{From: "2024-02-01", To: "2024-02-29"}},
		{name: "date wins", query: "?month=2024-02&date=2024-03-05", want: staff.DayPeriod("2024-03-05")},
		{name: "bad date", query: "?date=nope", wantErr: true},
		{name: "bad month", query: "?month=2024-13", wantErr: true},
		{name: "day as month", query: "?month=2024-02-01", wantErr: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/"+tc.query, nil)
			got, err := PeriodFromQuery(req, fallback)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	page, total := Page(items, Pagination{Limit: 2, Offset: 1})
	if total != 5 || len(page) != 2 || page[0] != 2 {
		t.Fatalf("unexpected page %v total %d", page, total)
	}
	page, _ = Page(items, Pagination{Limit: 10, Offset: 4})
	if len(page) != 1 || page[0] != 5 {
		t.Fatalf("unexpected tail page %v", page)
	}
	page, _ = Page(items, Pagination{Limit: 2, Offset: 9})
	if len(page) != 0 {
		t.Fatalf("expected empty page, got %v", page)
	}
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&offset=-1", nil)
	p := ParsePagination(req, 50, 200)
	if p.Limit != 200 || p.Offset != 0 {
		t.Fatalf("unexpected pagination %+v", p)
	}
}

func TestValidatorReject(t *testing.T) {
	v := NewValidator()
	v.Required("name", " ", "is required")
	v.Email("email", "not-an-email")
	v.Email("email2", "")
	v.Day("date", "2024-99-01")
	v.Amount("amount", decimal.NewFromInt(-1), true)
	v.Amount("amount2", decimal.Zero, false)
	v.Enum("status", "retired", staff.EmployeeStatuses, "must be active, inactive or on-leave")

	rec := httptest.NewRecorder()
	if !v.Reject(rec, "req-1") {
		t.Fatal("expected rejection")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var env api.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	details := env.Error.Details.(map[string]any)
	fields := details["fields"].([]any)
	if len(fields) != 6 {
		t.Fatalf("expected 6 issues, got %d: %v", len(fields), fields)
	}
	if fields[0].(map[string]any)["field"] != "amount" {
		t.Fatalf("issues should be sorted by field, got %v", fields[0])
	}
}
