package reports

import (
	"context"
	"fmt"
	"time"

	"staffhub/internal/domain/staff"
)

type Options struct {
	FeedLimit      int
	CurrencySymbol string
	CurrencyCode   string
	Now            func() time.Time
}

// Service fetches a snapshot from the Store and hands it to the builders.
// Store errors are returned unchanged.
type Service struct {
	Store staff.Store
	opts  Options
}

func NewService(store staff.Store, opts Options) *Service {
	if opts.FeedLimit <= 0 {
		opts.FeedLimit = DefaultFeedLimit
	}
	if opts.CurrencySymbol == "" {
		opts.CurrencySymbol = DefaultCurrencySymbol
	}
	if opts.CurrencyCode == "" {
		opts.CurrencyCode = "INR"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{Store: store, opts: opts}
}

type snapshot struct {
	employees  []staff.Employee
	attendance []staff.AttendanceRecord
	expenses   []staff.Expense
}

func (s *Service) load(ctx context.Context, period staff.Period) (snapshot, error) {
	var snap snapshot
	var err error
	if snap.employees, err = s.Store.ListEmployees(ctx); err != nil {
		return snapshot{}, err
	}
	filter := staff.RecordFilter{Period: period}
	if snap.attendance, err = s.Store.ListAttendance(ctx, filter); err != nil {
		return snapshot{}, err
	}
	if snap.expenses, err = s.Store.ListExpenses(ctx, filter); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func (s *Service) DailySummary(ctx context.Context, period staff.Period, employeeID string) ([]DayBucket, error) {
	snap, err := s.load(ctx, period)
	if err != nil {
		return nil, err
	}
	return BuildDailySummary(snap.attendance, snap.expenses, snap.employees, period, employeeID), nil
}

func (s *Service) MonthStats(ctx context.Context, period staff.Period, employeeID string) (MonthStats, error) {
	snap, err := s.load(ctx, period)
	if err != nil {
		return MonthStats{}, err
	}
	return BuildMonthStats(snap.attendance, snap.expenses, snap.employees, period, employeeID), nil
}

// Activity returns the most recent events. limit <= 0 uses the configured
// feed limit.
func (s *Service) Activity(ctx context.Context, limit int) ([]ActivityItem, error) {
	snap, err := s.load(ctx, staff.Period{})
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.opts.FeedLimit
	}
	return BuildActivityFeed(snap.attendance, snap.expenses, snap.employees, FeedOptions{
		Limit:          limit,
		Now:            s.opts.Now(),
		CurrencySymbol: s.opts.CurrencySymbol,
	}), nil
}

func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	snap, err := s.load(ctx, staff.Period{})
	if err != nil {
		return Dashboard{}, err
	}
	now := s.opts.Now()
	return BuildDashboard(snap.employees, snap.attendance, snap.expenses, now, FeedOptions{
		Limit:          s.opts.FeedLimit,
		Now:            now,
		CurrencySymbol: s.opts.CurrencySymbol,
	}), nil
}

// Entries returns the resolved attendance and expense rows used by the
// exports, newest day first.
func (s *Service) Entries(ctx context.Context, period staff.Period, employeeID string) ([]AttendanceEntry, []ExpenseEntry, error) {
	snap, err := s.load(ctx, period)
	if err != nil {
		return nil, nil, err
	}
	resolver := NewResolver(snap.employees, FallbackUnknown)
	attendance := ResolveAttendance(snap.attendance, resolver, period, employeeID)
	expenses := ResolveExpenses(snap.expenses, resolver, period, employeeID)
	return attendance, expenses, nil
}

func (s *Service) ExportAttendanceCSV(ctx context.Context, period staff.Period, employeeID string) (string, error) {
	attendance, _, err := s.Entries(ctx, period, employeeID)
	if err != nil {
		return "", err
	}
	return ExportCSV(attendance, AttendanceColumns)
}

func (s *Service) ExportExpensesCSV(ctx context.Context, period staff.Period, employeeID string) (string, error) {
	_, expenses, err := s.Entries(ctx, period, employeeID)
	if err != nil {
		return "", err
	}
	return ExportCSV(expenses, ExpenseColumns)
}

func (s *Service) ExportXLSX(ctx context.Context, period staff.Period, employeeID string) ([]byte, error) {
	attendance, expenses, err := s.Entries(ctx, period, employeeID)
	if err != nil {
		return nil, err
	}
	return ExportXLSX(attendance, expenses)
}

func (s *Service) ExportMonthlyPDF(ctx context.Context, period staff.Period, employeeID string) ([]byte, error) {
	snap, err := s.load(ctx, period)
	if err != nil {
		return nil, err
	}
	stats := BuildMonthStats(snap.attendance, snap.expenses, snap.employees, period, employeeID)
	buckets := BuildDailySummary(snap.attendance, snap.expenses, snap.employees, period, employeeID)
	return ExportMonthlyPDF(reportTitle(period), stats, buckets, s.opts.CurrencyCode)
}

// reportTitle names the PDF after the day it covers, or the month otherwise.
func reportTitle(period staff.Period) string {
	if period.From == period.To && !period.From.IsZero() {
		return fmt.Sprintf("Daily report %s", period.From)
	}
	return fmt.Sprintf("Monthly report %s", period.From.Month())
}
