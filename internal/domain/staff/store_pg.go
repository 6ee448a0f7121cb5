package staff

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps the entities in Postgres. Attendance and expense rows hold a
// weak employee reference (no foreign key) so deleting an employee leaves
// their records readable.
type PGStore struct {
	DB *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{DB: db}
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.DB.Ping(ctx)
}

const employeeColumns = `id::text, COALESCE(legacy_id, ''), name, position, COALESCE(email, ''), COALESCE(phone, ''), status, created_at, updated_at`

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	err := row.Scan(&emp.ID, &emp.LegacyID, &emp.Name, &emp.Position, &emp.Email, &emp.Phone, &emp.Status, &emp.CreatedAt, &emp.UpdatedAt)
	return emp, err
}

func (s *PGStore) ListEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *PGStore) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	emp, err := scanEmployee(s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE id::text = $1 OR legacy_id = $1
    LIMIT 1
  `, strings.TrimSpace(id)))
	if err != nil {
		return nil, mapPGError("get employee", err)
	}
	return &emp, nil
}

func (s *PGStore) CreateEmployee(ctx context.Context, emp Employee) (Employee, error) {
	if emp.Status == "" {
		emp.Status = EmployeeStatusActive
	}
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (legacy_id, name, position, email, phone, status)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id::text, created_at, updated_at
  `, nullIfEmpty(emp.LegacyID), emp.Name, emp.Position, nullIfEmpty(strings.ToLower(emp.Email)), nullIfEmpty(emp.Phone), emp.Status,
	).Scan(&emp.ID, &emp.CreatedAt, &emp.UpdatedAt)
	if err != nil {
		return Employee{}, mapPGError("create employee", err)
	}
	emp.Email = strings.ToLower(emp.Email)
	return emp, nil
}

func (s *PGStore) UpdateEmployee(ctx context.Context, id string, emp Employee) (Employee, error) {
	if emp.Status == "" {
		emp.Status = EmployeeStatusActive
	}
	updated, err := scanEmployee(s.DB.QueryRow(ctx, `
    UPDATE employees
    SET name = $1,
        position = $2,
        email = $3,
        phone = $4,
        status = $5,
        updated_at = now()
    WHERE id::text = $6 OR legacy_id = $6
    RETURNING `+employeeColumns,
		emp.Name, emp.Position, nullIfEmpty(strings.ToLower(emp.Email)), nullIfEmpty(emp.Phone), emp.Status, strings.TrimSpace(id)))
	if err != nil {
		return Employee{}, mapPGError("update employee", err)
	}
	return updated, nil
}

func (s *PGStore) DeleteEmployee(ctx context.Context, id string) error {
	cmd, err := s.DB.Exec(ctx, `DELETE FROM employees WHERE id::text = $1 OR legacy_id = $1`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// recordQuery appends the period and employee conditions shared by the
// attendance and expense listings. alias is the record table alias.
func recordQuery(base, alias string, filter RecordFilter) (string, []any) {
	query := base + " WHERE 1=1"
	var args []any
	if !filter.Period.From.IsZero() {
		args = append(args, string(filter.Period.From))
		query += " AND " + alias + ".day >= $" + strconv.Itoa(len(args)) + "::date"
	}
	if !filter.Period.To.IsZero() {
		args = append(args, string(filter.Period.To))
		query += " AND " + alias + ".day <= $" + strconv.Itoa(len(args)) + "::date"
	}
	if id := strings.TrimSpace(filter.EmployeeID); id != "" {
		args = append(args, id)
		pos := strconv.Itoa(len(args))
		query += " AND (" + alias + ".employee_id = $" + pos + " OR e.id::text = $" + pos + " OR e.legacy_id = $" + pos + ")"
	}
	return query, args
}

func joinedRef(employeeID, name string) EmployeeRef {
	if strings.TrimSpace(employeeID) == "" {
		return nil
	}
	if name != "" {
		return EmbeddedRef{EmployeeID: employeeID, Name: name}
	}
	return RefID(employeeID)
}

func (s *PGStore) ListAttendance(ctx context.Context, filter RecordFilter) ([]AttendanceRecord, error) {
	query, args := recordQuery(`
    SELECT a.id::text, a.employee_id, COALESCE(e.name, ''), a.day, a.present, a.created_at
    FROM attendance a
    LEFT JOIN employees e ON e.id::text = a.employee_id OR e.legacy_id = a.employee_id
  `, "a", filter)
	query += " ORDER BY a.day DESC, a.created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var out []AttendanceRecord
	for rows.Next() {
		var rec AttendanceRecord
		var employeeID, name string
		var day time.Time
		if err := rows.Scan(&rec.ID, &employeeID, &name, &day, &rec.Present, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		rec.Employee = joinedRef(employeeID, name)
		rec.Date = DayOf(day)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PGStore) MarkAttendance(ctx context.Context, employeeID string, day Day, present bool) (AttendanceRecord, bool, error) {
	if strings.TrimSpace(employeeID) == "" || day.IsZero() {
		return AttendanceRecord{}, false, ErrInvalidID
	}
	rec := AttendanceRecord{Employee: RefID(strings.TrimSpace(employeeID)), Date: day, Present: present}
	var inserted bool
	err := s.DB.QueryRow(ctx, `
    INSERT INTO attendance (employee_id, day, present)
    VALUES ($1, $2::date, $3)
    ON CONFLICT (employee_id, day)
    DO UPDATE SET present = EXCLUDED.present, updated_at = now()
    RETURNING id::text, created_at, (xmax = 0)
  `, strings.TrimSpace(employeeID), string(day), present).Scan(&rec.ID, &rec.CreatedAt, &inserted)
	if err != nil {
		return AttendanceRecord{}, false, mapPGError("mark attendance", err)
	}
	return rec, inserted, nil
}

const expenseSelect = `
    SELECT x.id::text, x.employee_id, COALESCE(e.name, ''), x.day, x.amount::text, COALESCE(x.description, ''), x.category, x.created_at
    FROM expenses x
    LEFT JOIN employees e ON e.id::text = x.employee_id OR e.legacy_id = x.employee_id
  `

func scanExpense(row pgx.Row) (Expense, error) {
	var exp Expense
	var employeeID, name, amount string
	var day time.Time
	if err := row.Scan(&exp.ID, &employeeID, &name, &day, &amount, &exp.Description, &exp.Category, &exp.CreatedAt); err != nil {
		return Expense{}, err
	}
	exp.Employee = joinedRef(employeeID, name)
	exp.Date = DayOf(day)
	exp.Amount = ParseAmount(amount)
	return exp, nil
}

func (s *PGStore) ListExpenses(ctx context.Context, filter RecordFilter) ([]Expense, error) {
	query, args := recordQuery(expenseSelect, "x", filter)
	query += " ORDER BY x.day DESC, x.created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		exp, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, exp)
	}
	return out, rows.Err()
}

func (s *PGStore) GetExpense(ctx context.Context, id string) (*Expense, error) {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return nil, ErrInvalidID
	}
	exp, err := scanExpense(s.DB.QueryRow(ctx, expenseSelect+" WHERE x.id = $1", strings.TrimSpace(id)))
	if err != nil {
		return nil, mapPGError("get expense", err)
	}
	return &exp, nil
}

func (s *PGStore) CreateExpense(ctx context.Context, exp Expense) (Expense, error) {
	if strings.TrimSpace(exp.Category) == "" {
		exp.Category = DefaultExpenseCategory
	}
	err := s.DB.QueryRow(ctx, `
    INSERT INTO expenses (employee_id, day, amount, description, category)
    VALUES ($1, $2::date, $3::numeric, $4, $5)
    RETURNING id::text, created_at
  `, RefIDOf(exp.Employee), string(exp.Date), exp.Amount.Round(2).String(), exp.Description, exp.Category).Scan(&exp.ID, &exp.CreatedAt)
	if err != nil {
		return Expense{}, mapPGError("create expense", err)
	}
	return exp, nil
}

func (s *PGStore) UpdateExpense(ctx context.Context, id string, exp Expense) (Expense, error) {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return Expense{}, ErrInvalidID
	}
	if strings.TrimSpace(exp.Category) == "" {
		exp.Category = DefaultExpenseCategory
	}
	exp.ID = strings.TrimSpace(id)
	err := s.DB.QueryRow(ctx, `
    UPDATE expenses
    SET employee_id = $1, day = $2::date, amount = $3::numeric, description = $4, category = $5
    WHERE id = $6
    RETURNING created_at
  `, RefIDOf(exp.Employee), string(exp.Date), exp.Amount.Round(2).String(), exp.Description, exp.Category, exp.ID).Scan(&exp.CreatedAt)
	if err != nil {
		return Expense{}, mapPGError("update expense", err)
	}
	return exp, nil
}

func (s *PGStore) DeleteExpense(ctx context.Context, id string) error {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return ErrInvalidID
	}
	cmd, err := s.DB.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func mapPGError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

var _ Store = (*PGStore)(nil)
