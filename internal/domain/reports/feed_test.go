package reports

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"staffhub/internal/domain/staff"
)

func TestRelativeTime(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{name: "seconds", at: now.Add(-30 * time.Second), want: "Just now"},
		{name: "future", at: now.Add(time.Hour), want: "Just now"},
		{name: "one minute", at: now.Add(-time.Minute), want: "1 minute ago"},
		{name: "minutes", at: now.Add(-59 * time.Minute), want: "59 minutes ago"},
		{name: "one hour", at: now.Add(-61 * time.Minute), want: "1 hour ago"},
		{name: "hours", at: now.Add(-23 * time.Hour), want: "23 hours ago"},
		{name: "yesterday", at: now.Add(-25 * time.Hour), want: "Yesterday"},
		{name: "days", at: now.Add(-72 * time.Hour), want: "3 days ago"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := RelativeTime(tc.at, now); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestBuildActivityFeedOrderingAndLimit(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	employees := []staff.Employee{
		{ID: "1", Name: "Alice", CreatedAt: now.Add(-240 * time.Hour)},
		{ID: "2", Name: "Bob"},
	}
	var attendance []staff.AttendanceRecord
	for i := 0; i < 6; i++ {
		attendance = append(attendance, staff.AttendanceRecord{
			ID:        fmt.Sprintf("a%d", i),
			Employee:  staff.RefID("1"),
			Date:      staff.DayOf(now),
			Present:   true,
			CreatedAt: now.Add(-time.Duration(i*10+5) * time.Minute),
		})
	}
	expenses := []staff.Expense{
		{ID: "x1", Employee: staff.RefID("99"), Date: staff.DayOf(now), Amount: decimal.RequireFromString("50"), CreatedAt: now.Add(-2 * time.Minute)},
	}

	feed := BuildActivityFeed(attendance, expenses, employees, FeedOptions{Limit: 5, Now: now})
	if len(feed) != 5 {
		t.Fatalf("expected 5 items, got %d", len(feed))
	}
	for i := 1; i < len(feed); i++ {
		if !feed[i-1].OccurredAt.After(feed[i].OccurredAt) {
			t.Fatalf("feed not strictly descending at %d: %v then %v", i, feed[i-1].OccurredAt, feed[i].OccurredAt)
		}
	}

	top := feed[0]
	if top.Kind != ActivityExpense || top.Message != "Staff Member submitted an expense of ₹50" || top.Time != "2 minutes ago" {
		t.Fatalf("unexpected top item %+v", top)
	}
	if feed[1].Message != "Alice marked attendance" || feed[1].Time != "5 minutes ago" {
		t.Fatalf("unexpected second item %+v", feed[1])
	}
	for _, item := range feed {
		if item.Kind == ActivityEmployee {
			t.Fatalf("old employee addition should be cut by the limit: %+v", item)
		}
	}
}

func TestBuildActivityFeedEmployeeEventsAndFallbacks(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	employees := []staff.Employee{
		{ID: "1", Name: "Alice", CreatedAt: now.Add(-3 * time.Hour)},
		{ID: "2", Name: "Bob"},
	}
	attendance := []staff.AttendanceRecord{
		{ID: "a1", Employee: staff.RefID("2"), Date: "2024-03-09", Present: true},
		{ID: "a2", Employee: staff.RefID("2")},
	}

	feed := BuildActivityFeed(attendance, nil, employees, FeedOptions{Now: now, CurrencySymbol: "$"})
	if len(feed) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(feed), feed)
	}
	if feed[0].Message != "New employee Alice added to the system" || feed[0].Time != "3 hours ago" {
		t.Fatalf("unexpected employee item %+v", feed[0])
	}
	if feed[1].Message != "Bob marked attendance" || feed[1].Time != "Yesterday" {
		t.Fatalf("attendance without createdAt should use its day, got %+v", feed[1])
	}
}

func TestBuildActivityFeedDefaultLimit(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	var expenses []staff.Expense
	for i := 0; i < 8; i++ {
		expenses = append(expenses, staff.Expense{
			Employee:  staff.RefID("1"),
			Amount:    decimal.NewFromInt(int64(i)),
			CreatedAt: now.Add(-time.Duration(i+1) * time.Hour),
		})
	}
	feed := BuildActivityFeed(nil, expenses, nil, FeedOptions{Limit: 0, Now: now})
	if len(feed) != DefaultFeedLimit {
		t.Fatalf("expected default limit %d, got %d", DefaultFeedLimit, len(feed))
	}
}

func TestBuildDashboard(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	employees := []staff.Employee{{ID: "1", Name: "Alice"}, {ID: "2", Name: "Bob"}, {ID: "3", Name: "Cara"}}
	attendance := []staff.AttendanceRecord{
		{Employee: staff.RefID("1"), Date: "2024-03-10", Present: true},
		{Employee: staff.RefID("2"), Date: "2024-03-10", Present: true},
		{Employee: staff.RefID("3"), Date: "2024-03-10", Present: false},
		{Employee: staff.RefID("3"), Date: "2024-03-09", Present: true},
	}
	expenses := []staff.Expense{
		{Employee: staff.RefID("1"), Date: "2024-03-01", Amount: decimal.RequireFromString("100.50")},
		{Employee: staff.RefID("1"), Date: "2024-02-28", Amount: decimal.RequireFromString("999")},
	}

	dash := BuildDashboard(employees, attendance, expenses, now, FeedOptions{})
	if dash.TotalEmployees != 3 || dash.PresentToday != 2 {
		t.Fatalf("unexpected headline numbers %+v", dash)
	}
	if dash.AttendanceRate != 67 {
		t.Fatalf("expected rounded rate 67, got %d", dash.AttendanceRate)
	}
	if !dash.MonthlyExpenses.Equal(decimal.RequireFromString("100.5")) {
		t.Fatalf("expected monthly 100.5, got %s", dash.MonthlyExpenses)
	}
	if len(dash.RecentActivity) == 0 {
		t.Fatal("expected recent activity")
	}
}

func TestBuildMonthStats(t *testing.T) {
	employees := []staff.Employee{{ID: "1", Name: "Alice"}}
	attendance := []staff.AttendanceRecord{
		{Employee: staff.RefID("1"), Date: "2024-03-01", Present: true},
		{Employee: staff.RefID("1"), Date: "2024-03-02", Present: true},
		{Employee: staff.RefID("1"), Date: "2024-03-03", Present: false},
		{Employee: staff.RefID("1"), Date: "2024-04-01", Present: false},
	}
	expenses := []staff.Expense{
		{Employee: staff.RefID("1"), Date: "2024-03-01", Amount: decimal.NewFromInt(30), Category: "Travel"},
		{Employee: staff.RefID("1"), Date: "2024-03-02", Amount: decimal.NewFromInt(50), Category: "Materials"},
		{Employee: staff.RefID("1"), Date: "2024-03-05", Amount: decimal.NewFromInt(40), Category: "Travel"},
		{Employee: staff.RefID("1"), Date: "2024-03-06", Amount: decimal.NewFromInt(5)},
	}

	stats := BuildMonthStats(attendance, expenses, employees, staff.MonthPeriod(2024, time.March), "")
	if stats.Attendance.TotalDays != 3 || stats.Attendance.PresentDays != 2 || stats.Attendance.AbsentDays != 1 {
		t.Fatalf("unexpected attendance stats %+v", stats.Attendance)
	}
	if stats.Attendance.AttendanceRate != 66.67 {
		t.Fatalf("expected 66.67, got %v", stats.Attendance.AttendanceRate)
	}
	if !stats.Expenses.TotalAmount.Equal(decimal.NewFromInt(125)) || stats.Expenses.ExpenseCount != 4 {
		t.Fatalf("unexpected expense stats %+v", stats.Expenses)
	}
	if stats.Expenses.TopCategory != "Travel" {
		t.Fatalf("expected Travel on top, got %q", stats.Expenses.TopCategory)
	}
	if len(stats.Expenses.Categories) != 3 || stats.Expenses.Categories[2].Category != staff.DefaultExpenseCategory {
		t.Fatalf("unexpected categories %+v", stats.Expenses.Categories)
	}

	empty := BuildMonthStats(nil, nil, nil, staff.MonthPeriod(2024, time.May), "")
	if empty.Attendance.AttendanceRate != 0 || !empty.Expenses.TotalAmount.IsZero() {
		t.Fatalf("expected zero stats, got %+v", empty)
	}
}
