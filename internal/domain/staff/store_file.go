package staff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fileDocument is the on-disk layout of a FileStore.
type fileDocument struct {
	Employees  []Employee         `json:"employees"`
	Attendance []AttendanceRecord `json:"attendance"`
	Expenses   []Expense          `json:"expenses"`
}

// FileStore keeps every entity in a single JSON document. Each mutation
// rewrites the whole file through a temp file and rename.
type FileStore struct {
	path string
	now  func() time.Time

	mu  sync.RWMutex
	doc fileDocument
}

// OpenFileStore loads path, creating it with the default roster when it does
// not exist yet.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, now: time.Now}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.doc = fileDocument{Employees: DefaultRoster(s.now())}
		if err := s.flush(); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read data file: %w", err)
	}
	if len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, &s.doc); err != nil {
			return nil, fmt.Errorf("decode data file: %w", err)
		}
	}
	return s, nil
}

// DefaultRoster is the employee list a fresh data file starts with.
func DefaultRoster(now time.Time) []Employee {
	seed := []struct{ name, position, email, phone string }{
		{"John Doe", "Designer", "john@nmdecor.com", "555-1234"},
		{"Jane Smith", "Carpenter", "jane@nmdecor.com", "555-2345"},
		{"Michael Johnson", "Painter", "michael@nmdecor.com", "555-3456"},
		{"Emily Davis", "Interior Designer", "emily@nmdecor.com", "555-4567"},
		{"Robert Wilson", "Electrician", "robert@nmdecor.com", "555-5678"},
		{"Sarah Brown", "Plumber", "sarah@nmdecor.com", "555-6789"},
		{"David Miller", "Architect", "david@nmdecor.com", "555-7890"},
		{"Jennifer Taylor", "Project Manager", "jennifer@nmdecor.com", "555-8901"},
		{"William Anderson", "Supervisor", "william@nmdecor.com", "555-9012"},
		{"Lisa Thomas", "Assistant", "lisa@nmdecor.com", "555-0123"},
	}
	out := make([]Employee, 0, len(seed))
	for i, s := range seed {
		out = append(out, Employee{
			ID:        fmt.Sprint(i + 1),
			Name:      s.name,
			Position:  s.position,
			Email:     s.email,
			Phone:     s.phone,
			Status:    EmployeeStatusActive,
			CreatedAt: now.UTC(),
			UpdatedAt: now.UTC(),
		})
	}
	return out
}

func (s *FileStore) Ping(ctx context.Context) error {
	_, err := os.Stat(s.path)
	return err
}

// flush must be called with the write lock held (or before the store is shared).
func (s *FileStore) flush() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode data file: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".staffhub-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}

func (s *FileStore) employeeIndex(id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return -1
	}
	for i, emp := range s.doc.Employees {
		if emp.ID == id || (emp.LegacyID != "" && emp.LegacyID == id) {
			return i
		}
	}
	return -1
}

func (s *FileStore) emailTaken(email string, except int) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for i, emp := range s.doc.Employees {
		if i != except && strings.EqualFold(emp.Email, email) {
			return true
		}
	}
	return false
}

func (s *FileStore) ListEmployees(ctx context.Context) ([]Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]Employee(nil), s.doc.Employees...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *FileStore) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.employeeIndex(id)
	if idx < 0 {
		return nil, ErrNotFound
	}
	emp := s.doc.Employees[idx]
	return &emp, nil
}

func (s *FileStore) CreateEmployee(ctx context.Context, emp Employee) (Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailTaken(emp.Email, -1) {
		return Employee{}, ErrConflict
	}
	now := s.now().UTC()
	emp.ID = uuid.NewString()
	emp.Email = strings.ToLower(strings.TrimSpace(emp.Email))
	if emp.Status == "" {
		emp.Status = EmployeeStatusActive
	}
	emp.CreatedAt = now
	emp.UpdatedAt = now
	s.doc.Employees = append(s.doc.Employees, emp)
	if err := s.flush(); err != nil {
		s.doc.Employees = s.doc.Employees[:len(s.doc.Employees)-1]
		return Employee{}, err
	}
	return emp, nil
}

func (s *FileStore) UpdateEmployee(ctx context.Context, id string, emp Employee) (Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.employeeIndex(id)
	if idx < 0 {
		return Employee{}, ErrNotFound
	}
	if s.emailTaken(emp.Email, idx) {
		return Employee{}, ErrConflict
	}
	prev := s.doc.Employees[idx]
	emp.ID = prev.ID
	emp.LegacyID = prev.LegacyID
	emp.CreatedAt = prev.CreatedAt
	emp.UpdatedAt = s.now().UTC()
	emp.Email = strings.ToLower(strings.TrimSpace(emp.Email))
	if emp.Status == "" {
		emp.Status = EmployeeStatusActive
	}
	s.doc.Employees[idx] = emp
	if err := s.flush(); err != nil {
		s.doc.Employees[idx] = prev
		return Employee{}, err
	}
	return emp, nil
}

func (s *FileStore) DeleteEmployee(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.employeeIndex(id)
	if idx < 0 {
		return ErrNotFound
	}
	prev := s.doc.Employees
	next := make([]Employee, 0, len(prev)-1)
	next = append(next, prev[:idx]...)
	next = append(next, prev[idx+1:]...)
	s.doc.Employees = next
	if err := s.flush(); err != nil {
		s.doc.Employees = prev
		return err
	}
	return nil
}

// matchesEmployee reports whether ref points at the employee filter id, either
// directly or through the employee's alternate key.
func (s *FileStore) matchesEmployee(ref EmployeeRef, filterID string) bool {
	filterID = strings.TrimSpace(filterID)
	if filterID == "" {
		return true
	}
	refID := RefIDOf(ref)
	if refID == "" {
		return false
	}
	if refID == filterID {
		return true
	}
	if idx := s.employeeIndex(filterID); idx >= 0 {
		emp := s.doc.Employees[idx]
		return refID == emp.ID || (emp.LegacyID != "" && refID == emp.LegacyID)
	}
	return false
}

// embed upgrades a bare reference to an embedded one when the employee exists.
func (s *FileStore) embed(ref EmployeeRef) EmployeeRef {
	id, ok := ref.(RefID)
	if !ok {
		return ref
	}
	if idx := s.employeeIndex(string(id)); idx >= 0 {
		return EmbeddedRef{EmployeeID: id.ID(), Name: s.doc.Employees[idx].Name}
	}
	return ref
}

func (s *FileStore) ListAttendance(ctx context.Context, filter RecordFilter) ([]AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []AttendanceRecord
	for _, rec := range s.doc.Attendance {
		if !filter.Period.IsZero() && !filter.Period.Contains(rec.Date) {
			continue
		}
		if !s.matchesEmployee(rec.Employee, filter.EmployeeID) {
			continue
		}
		rec.Employee = s.embed(rec.Employee)
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *FileStore) MarkAttendance(ctx context.Context, employeeID string, day Day, present bool) (AttendanceRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" || day.IsZero() {
		return AttendanceRecord{}, false, ErrInvalidID
	}
	// Legacy documents may hold several rows for one employee and day; a
	// mark folds them into the first so the new value is the only one left.
	prev := s.doc.Attendance
	kept := make([]AttendanceRecord, 0, len(prev))
	match := -1
	for _, rec := range prev {
		if rec.Date == day && s.matchesEmployee(rec.Employee, employeeID) {
			if match >= 0 {
				continue
			}
			rec.Present = present
			match = len(kept)
		}
		kept = append(kept, rec)
	}
	if match >= 0 {
		s.doc.Attendance = kept
		if err := s.flush(); err != nil {
			s.doc.Attendance = prev
			return AttendanceRecord{}, false, err
		}
		return kept[match], false, nil
	}
	rec := AttendanceRecord{
		ID:        uuid.NewString(),
		Employee:  RefID(employeeID),
		Date:      day,
		Present:   present,
		CreatedAt: s.now().UTC(),
	}
	s.doc.Attendance = append(s.doc.Attendance, rec)
	if err := s.flush(); err != nil {
		s.doc.Attendance = s.doc.Attendance[:len(s.doc.Attendance)-1]
		return AttendanceRecord{}, false, err
	}
	return rec, true, nil
}

func (s *FileStore) expenseIndex(id string) int {
	id = strings.TrimSpace(id)
	for i, exp := range s.doc.Expenses {
		if exp.ID == id {
			return i
		}
	}
	return -1
}

func (s *FileStore) ListExpenses(ctx context.Context, filter RecordFilter) ([]Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Expense
	for _, exp := range s.doc.Expenses {
		if !filter.Period.IsZero() && !filter.Period.Contains(exp.Date) {
			continue
		}
		if !s.matchesEmployee(exp.Employee, filter.EmployeeID) {
			continue
		}
		exp.Employee = s.embed(exp.Employee)
		out = append(out, exp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *FileStore) GetExpense(ctx context.Context, id string) (*Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidID
	}
	idx := s.expenseIndex(id)
	if idx < 0 {
		return nil, ErrNotFound
	}
	exp := s.doc.Expenses[idx]
	exp.Employee = s.embed(exp.Employee)
	return &exp, nil
}

func (s *FileStore) CreateExpense(ctx context.Context, exp Expense) (Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp.ID = uuid.NewString()
	exp.Employee = RefID(RefIDOf(exp.Employee))
	exp.Amount = exp.Amount.Round(2)
	if strings.TrimSpace(exp.Category) == "" {
		exp.Category = DefaultExpenseCategory
	}
	exp.CreatedAt = s.now().UTC()
	s.doc.Expenses = append(s.doc.Expenses, exp)
	if err := s.flush(); err != nil {
		s.doc.Expenses = s.doc.Expenses[:len(s.doc.Expenses)-1]
		return Expense{}, err
	}
	return exp, nil
}

func (s *FileStore) UpdateExpense(ctx context.Context, id string, exp Expense) (Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(id) == "" {
		return Expense{}, ErrInvalidID
	}
	idx := s.expenseIndex(id)
	if idx < 0 {
		return Expense{}, ErrNotFound
	}
	prev := s.doc.Expenses[idx]
	exp.ID = prev.ID
	exp.CreatedAt = prev.CreatedAt
	exp.Employee = RefID(RefIDOf(exp.Employee))
	exp.Amount = exp.Amount.Round(2)
	if strings.TrimSpace(exp.Category) == "" {
		exp.Category = DefaultExpenseCategory
	}
	s.doc.Expenses[idx] = exp
	if err := s.flush(); err != nil {
		s.doc.Expenses[idx] = prev
		return Expense{}, err
	}
	return exp, nil
}

func (s *FileStore) DeleteExpense(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(id) == "" {
		return ErrInvalidID
	}
	idx := s.expenseIndex(id)
	if idx < 0 {
		return ErrNotFound
	}
	prev := s.doc.Expenses
	next := make([]Expense, 0, len(prev)-1)
	next = append(next, prev[:idx]...)
	next = append(next, prev[idx+1:]...)
	s.doc.Expenses = next
	if err := s.flush(); err != nil {
		s.doc.Expenses = prev
		return err
	}
	return nil
}

var _ Store = (*FileStore)(nil)
