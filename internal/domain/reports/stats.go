package reports

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"staffhub/internal/domain/staff"
)

type AttendanceStats struct {
	TotalDays      int     `json:"totalDays"`
	PresentDays    int     `json:"presentDays"`
	AbsentDays     int     `json:"absentDays"`
	AttendanceRate float64 `json:"attendanceRate"`
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

type ExpenseStats struct {
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	ExpenseCount int             `json:"expenseCount"`
	// Categories is ordered by amount, largest first.
	Categories  []CategoryTotal `json:"categories"`
	TopCategory string          `json:"topCategory,omitempty"`
}

type MonthStats struct {
	Period     staff.Period    `json:"period"`
	EmployeeID string          `json:"employeeId,omitempty"`
	Attendance AttendanceStats `json:"attendance"`
	Expenses   ExpenseStats    `json:"expenses"`
}

// BuildMonthStats computes the attendance and expense statistics shown on
// the reports page. The attendance rate is present marks over all marks.
func BuildMonthStats(attendance []staff.AttendanceRecord, expenses []staff.Expense, employees []staff.Employee, period staff.Period, employeeFilter string) MonthStats {
	resolver := NewResolver(employees, FallbackUnknown)
	return MonthStats{
		Period:     period,
		EmployeeID: employeeFilter,
		Attendance: attendanceStats(ResolveAttendance(attendance, resolver, period, employeeFilter)),
		Expenses:   expenseStats(ResolveExpenses(expenses, resolver, period, employeeFilter)),
	}
}

func attendanceStats(entries []AttendanceEntry) AttendanceStats {
	days := make(map[staff.Day]struct{})
	var stats AttendanceStats
	for _, entry := range entries {
		days[entry.Date] = struct{}{}
		if entry.Present {
			stats.PresentDays++
		} else {
			stats.AbsentDays++
		}
	}
	stats.TotalDays = len(days)
	if len(entries) > 0 {
		rate := float64(stats.PresentDays) / float64(len(entries)) * 100
		stats.AttendanceRate = math.Round(rate*100) / 100
	}
	return stats
}

func expenseStats(entries []ExpenseEntry) ExpenseStats {
	stats := ExpenseStats{TotalAmount: decimal.Zero, ExpenseCount: len(entries), Categories: []CategoryTotal{}}
	totals := make(map[string]decimal.Decimal)
	var order []string
	for _, entry := range entries {
		stats.TotalAmount = stats.TotalAmount.Add(entry.Amount)
		if _, ok := totals[entry.Category]; !ok {
			order = append(order, entry.Category)
		}
		totals[entry.Category] = totals[entry.Category].Add(entry.Amount)
	}
	for _, category := range order {
		stats.Categories = append(stats.Categories, CategoryTotal{Category: category, Amount: totals[category]})
	}
	sort.SliceStable(stats.Categories, func(i, j int) bool {
		return stats.Categories[i].Amount.GreaterThan(stats.Categories[j].Amount)
	})
	if len(stats.Categories) > 0 {
		stats.TopCategory = stats.Categories[0].Category
	}
	return stats
}

type Dashboard struct {
	TotalEmployees  int             `json:"totalEmployees"`
	PresentToday    int             `json:"presentToday"`
	AttendanceRate  int             `json:"attendanceRate"`
	MonthlyExpenses decimal.Decimal `json:"monthlyExpenses"`
	RecentActivity  []ActivityItem  `json:"recentActivity"`
}

// BuildDashboard computes the dashboard headline numbers for the UTC day and
// month of now, plus the recent activity feed.
func BuildDashboard(employees []staff.Employee, attendance []staff.AttendanceRecord, expenses []staff.Expense, now time.Time, feed FeedOptions) Dashboard {
	if feed.Now.IsZero() {
		feed.Now = now
	}
	resolver := NewResolver(employees, FallbackUnknown)
	today := staff.DayOf(now)

	dash := Dashboard{
		TotalEmployees:  len(employees),
		MonthlyExpenses: decimal.Zero,
	}
	for _, entry := range ResolveAttendance(attendance, resolver, staff.DayPeriod(today), "") {
		if entry.Present {
			dash.PresentToday++
		}
	}
	if dash.TotalEmployees > 0 {
		dash.AttendanceRate = int(math.Round(float64(dash.PresentToday) / float64(dash.TotalEmployees) * 100))
	}
	month := today.Month()
	for _, exp := range expenses {
		if exp.Date.Month() == month {
			dash.MonthlyExpenses = dash.MonthlyExpenses.Add(exp.Amount)
		}
	}
	dash.RecentActivity = BuildActivityFeed(attendance, expenses, employees, feed)
	return dash
}
