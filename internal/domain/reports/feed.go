package reports

import (
	"fmt"
	"sort"
	"time"

	"staffhub/internal/domain/staff"
)

const (
	DefaultFeedLimit      = 5
	DefaultCurrencySymbol = "₹"
)

type ActivityKind string

const (
	ActivityAttendance ActivityKind = "attendance"
	ActivityExpense    ActivityKind = "expense"
	ActivityEmployee   ActivityKind = "employee"
)

type ActivityItem struct {
	Kind       ActivityKind `json:"type"`
	Message    string       `json:"message"`
	Time       string       `json:"time"`
	OccurredAt time.Time    `json:"date"`
	Record     any          `json:"raw,omitempty"`
}

type FeedOptions struct {
	Limit          int
	Now            time.Time
	CurrencySymbol string
}

// BuildActivityFeed merges attendance marks, expenses and employee additions
// into one list, newest first, cut to opts.Limit. Events with no usable time
// are left out.
func BuildActivityFeed(attendance []staff.AttendanceRecord, expenses []staff.Expense, employees []staff.Employee, opts FeedOptions) []ActivityItem {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	symbol := opts.CurrencySymbol
	if symbol == "" {
		symbol = DefaultCurrencySymbol
	}
	resolver := NewResolver(employees, FallbackStaff)

	items := make([]ActivityItem, 0, len(attendance)+len(expenses)+len(employees))
	for _, rec := range attendance {
		at := eventTime(rec.CreatedAt, rec.Date)
		if at.IsZero() {
			continue
		}
		items = append(items, ActivityItem{
			Kind:       ActivityAttendance,
			Message:    fmt.Sprintf("%s marked attendance", resolver.Resolve(rec.Employee).EmployeeName),
			OccurredAt: at,
			Record:     rec,
		})
	}
	for _, exp := range expenses {
		at := eventTime(exp.CreatedAt, exp.Date)
		if at.IsZero() {
			continue
		}
		items = append(items, ActivityItem{
			Kind:       ActivityExpense,
			Message:    fmt.Sprintf("%s submitted an expense of %s%s", resolver.Resolve(exp.Employee).EmployeeName, symbol, exp.Amount.String()),
			OccurredAt: at,
			Record:     exp,
		})
	}
	for _, emp := range employees {
		if emp.CreatedAt.IsZero() {
			continue
		}
		items = append(items, ActivityItem{
			Kind:       ActivityEmployee,
			Message:    fmt.Sprintf("New employee %s added to the system", emp.Name),
			OccurredAt: emp.CreatedAt,
			Record:     emp,
		})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].OccurredAt.After(items[j].OccurredAt) })
	if len(items) > limit {
		items = items[:limit]
	}
	for i := range items {
		items[i].Time = RelativeTime(items[i].OccurredAt, now)
	}
	return items
}

func eventTime(createdAt time.Time, day staff.Day) time.Time {
	if !createdAt.IsZero() {
		return createdAt
	}
	return day.Time()
}

// RelativeTime renders how long before now t happened. Future times read
// "Just now".
func RelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	days := int(diff / (24 * time.Hour))
	hours := int(diff / time.Hour)
	minutes := int(diff / time.Minute)

	switch {
	case days > 0:
		if days == 1 {
			return "Yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	case hours > 0:
		return fmt.Sprintf("%d hour%s ago", hours, plural(hours))
	case minutes > 0:
		return fmt.Sprintf("%d minute%s ago", minutes, plural(minutes))
	default:
		return "Just now"
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
