package reports

import (
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"staffhub/internal/domain/staff"
)

type AttendanceEntry struct {
	ID           string    `json:"id"`
	Date         staff.Day `json:"date"`
	EmployeeID   string    `json:"employeeId"`
	EmployeeName string    `json:"employeeName"`
	Present      bool      `json:"present"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

type ExpenseEntry struct {
	ID           string          `json:"id"`
	Date         staff.Day       `json:"date"`
	EmployeeID   string          `json:"employeeId"`
	EmployeeName string          `json:"employeeName"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	CreatedAt    time.Time       `json:"createdAt,omitempty"`
}

// DayBucket summarises one calendar day.
type DayBucket struct {
	Date         staff.Day         `json:"date"`
	Label        string            `json:"formattedDate"`
	Attendance   []AttendanceEntry `json:"attendanceRecords"`
	Expenses     []ExpenseEntry    `json:"expenseRecords"`
	PresentCount int               `json:"presentCount"`
	AbsentCount  int               `json:"absentCount"`
	TotalExpense decimal.Decimal   `json:"totalExpense"`
}

// ResolveAttendance keeps the records inside period that belong to
// employeeFilter (empty for all), resolves their names and collapses repeated
// marks for the same employee and day. The later mark wins: by CreatedAt
// when both carry one, otherwise by input position.
func ResolveAttendance(records []staff.AttendanceRecord, resolver *Resolver, period staff.Period, employeeFilter string) []AttendanceEntry {
	out := make([]AttendanceEntry, 0, len(records))
	seen := make(map[string]int, len(records))
	for _, rec := range records {
		if !period.Contains(rec.Date) || !resolver.Matches(rec.Employee, employeeFilter) {
			continue
		}
		resolved := resolver.Resolve(rec.Employee)
		entry := AttendanceEntry{
			ID:           rec.ID,
			Date:         rec.Date,
			EmployeeID:   resolved.EmployeeID,
			EmployeeName: resolved.EmployeeName,
			Present:      rec.Present,
			CreatedAt:    rec.CreatedAt,
		}
		if resolved.EmployeeID == "" {
			out = append(out, entry)
			continue
		}
		key := string(rec.Date) + "|" + resolved.EmployeeID
		if idx, ok := seen[key]; ok {
			prev := out[idx]
			if !prev.CreatedAt.IsZero() && !entry.CreatedAt.IsZero() && entry.CreatedAt.Before(prev.CreatedAt) {
				continue
			}
			out[idx] = entry
			continue
		}
		seen[key] = len(out)
		out = append(out, entry)
	}
	return out
}

// ResolveExpenses keeps the expenses inside period that belong to
// employeeFilter and resolves their names. Input order is preserved.
func ResolveExpenses(records []staff.Expense, resolver *Resolver, period staff.Period, employeeFilter string) []ExpenseEntry {
	out := make([]ExpenseEntry, 0, len(records))
	for _, exp := range records {
		if !period.Contains(exp.Date) || !resolver.Matches(exp.Employee, employeeFilter) {
			continue
		}
		resolved := resolver.Resolve(exp.Employee)
		category := exp.Category
		if category == "" {
			category = staff.DefaultExpenseCategory
		}
		out = append(out, ExpenseEntry{
			ID:           exp.ID,
			Date:         exp.Date,
			EmployeeID:   resolved.EmployeeID,
			EmployeeName: resolved.EmployeeName,
			Amount:       exp.Amount,
			Description:  exp.Description,
			Category:     category,
			CreatedAt:    exp.CreatedAt,
		})
	}
	return out
}

// BuildDailySummary groups the records of period into one bucket per day,
// newest day first. Days without attendance or expenses are not returned.
func BuildDailySummary(attendance []staff.AttendanceRecord, expenses []staff.Expense, employees []staff.Employee, period staff.Period, employeeFilter string) []DayBucket {
	resolver := NewResolver(employees, FallbackUnknown)
	return bucketize(
		ResolveAttendance(attendance, resolver, period, employeeFilter),
		ResolveExpenses(expenses, resolver, period, employeeFilter),
	)
}

func bucketize(attendance []AttendanceEntry, expenses []ExpenseEntry) []DayBucket {
	byDay := make(map[staff.Day]*DayBucket)
	bucket := func(day staff.Day) *DayBucket {
		b, ok := byDay[day]
		if !ok {
			b = &DayBucket{
				Date:         day,
				Label:        day.Label(),
				Attendance:   []AttendanceEntry{},
				Expenses:     []ExpenseEntry{},
				TotalExpense: decimal.Zero,
			}
			byDay[day] = b
		}
		return b
	}

	for _, entry := range attendance {
		b := bucket(entry.Date)
		b.Attendance = append(b.Attendance, entry)
		if entry.Present {
			b.PresentCount++
		} else {
			b.AbsentCount++
		}
	}
	for _, entry := range expenses {
		b := bucket(entry.Date)
		b.Expenses = append(b.Expenses, entry)
		b.TotalExpense = b.TotalExpense.Add(entry.Amount)
	}

	out := make([]DayBucket, 0, len(byDay))
	for _, b := range byDay {
		if len(b.Attendance) == 0 && len(b.Expenses) == 0 {
			continue
		}
		sort.SliceStable(b.Attendance, func(i, j int) bool {
			return lessEmployeeID(b.Attendance[i].EmployeeID, b.Attendance[j].EmployeeID)
		})
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// lessEmployeeID orders numeric ids numerically and everything else as text.
// Numeric ids sort before non-numeric ones.
func lessEmployeeID(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
