package staff

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrInvalidID = errors.New("invalid id")
	ErrConflict  = errors.New("already exists")
)

// RecordFilter narrows attendance and expense listings. Zero values mean no
// restriction.
type RecordFilter struct {
	Period     Period
	EmployeeID string
}

// Store is the Entity Store: durable CRUD for employees, attendance and
// expenses. Dates handed out by a Store are always canonical Days.
type Store interface {
	Ping(ctx context.Context) error

	ListEmployees(ctx context.Context) ([]Employee, error)
	GetEmployee(ctx context.Context, id string) (*Employee, error)
	CreateEmployee(ctx context.Context, emp Employee) (Employee, error)
	UpdateEmployee(ctx context.Context, id string, emp Employee) (Employee, error)
	DeleteEmployee(ctx context.Context, id string) error

	ListAttendance(ctx context.Context, filter RecordFilter) ([]AttendanceRecord, error)
	// MarkAttendance upserts the record for (employee, day) and reports whether
	// a new record was created.
	MarkAttendance(ctx context.Context, employeeID string, day Day, present bool) (AttendanceRecord, bool, error)

	ListExpenses(ctx context.Context, filter RecordFilter) ([]Expense, error)
	GetExpense(ctx context.Context, id string) (*Expense, error)
	CreateExpense(ctx context.Context, exp Expense) (Expense, error)
	UpdateExpense(ctx context.Context, id string, exp Expense) (Expense, error)
	DeleteExpense(ctx context.Context, id string) error
}
