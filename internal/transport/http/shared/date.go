package shared

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"staffhub/internal/domain/staff"
)

// PeriodFromQuery reads ?date= (single day) or ?month= (YYYY-MM). date wins
// when both are present. With neither, fallback is returned.
func PeriodFromQuery(r *http.Request, fallback staff.Period) (staff.Period, error) {
	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("date")); raw != "" {
		day, err := staff.ParseDay(raw)
		if err != nil {
			return staff.Period{}, fmt.Errorf("date: %w", err)
		}
		return staff.DayPeriod(day), nil
	}
	if raw := strings.TrimSpace(query.Get("month")); raw != "" {
		if len(raw) != 7 {
			return staff.Period{}, fmt.Errorf("month: expected YYYY-MM")
		}
		period, err := staff.ParsePeriod(raw)
		if err != nil {
			return staff.Period{}, fmt.Errorf("month: %w", err)
		}
		return period, nil
	}
	return fallback, nil
}

// CurrentMonth is the UTC calendar month containing now.
func CurrentMonth(now time.Time) staff.Period {
	now = now.UTC()
	return staff.MonthPeriod(now.Year(), now.Month())
}
