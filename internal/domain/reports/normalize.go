package reports

import (
	"strconv"
	"strings"

	"staffhub/internal/domain/staff"
)

const (
	FallbackUnknown = "Unknown"
	FallbackStaff   = "Staff Member"
)

// Resolved is an employee reference after name resolution. Known is false
// when the name is the fallback label.
type Resolved struct {
	EmployeeID   string `json:"employeeId"`
	EmployeeName string `json:"employeeName"`
	Known        bool   `json:"-"`
}

// Resolver maps employee references to display names. Build one per request
// from the employee snapshot; it is read-only afterwards.
type Resolver struct {
	employees []staff.Employee
	byKey     map[string]int
	fallback  string
}

func NewResolver(employees []staff.Employee, fallback string) *Resolver {
	if fallback == "" {
		fallback = FallbackUnknown
	}
	r := &Resolver{
		employees: employees,
		byKey:     make(map[string]int, len(employees)*2),
		fallback:  fallback,
	}
	for i, emp := range employees {
		for _, key := range []string{emp.ID, emp.LegacyID} {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			if _, taken := r.byKey[key]; !taken {
				r.byKey[key] = i
			}
		}
	}
	return r
}

// lookup finds the employee for an identifier: exact key first, then a scan
// comparing identifiers loosely (case-insensitive, numeric equivalence).
func (r *Resolver) lookup(id string) (staff.Employee, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return staff.Employee{}, false
	}
	if idx, ok := r.byKey[id]; ok {
		return r.employees[idx], true
	}
	for _, emp := range r.employees {
		if sameID(emp.ID, id) || sameID(emp.LegacyID, id) {
			return emp, true
		}
	}
	return staff.Employee{}, false
}

func sameID(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	if strings.EqualFold(a, b) {
		return true
	}
	na, errA := strconv.ParseFloat(a, 64)
	nb, errB := strconv.ParseFloat(b, 64)
	return errA == nil && errB == nil && na == nb
}

// Resolve never fails: an embedded name wins, then the employee snapshot,
// then the fallback label.
func (r *Resolver) Resolve(ref staff.EmployeeRef) Resolved {
	switch v := ref.(type) {
	case staff.EmbeddedRef:
		if name := strings.TrimSpace(v.Name); name != "" {
			id := v.ID()
			if emp, ok := r.lookup(id); ok {
				id = emp.ID
			}
			return Resolved{EmployeeID: id, EmployeeName: name, Known: true}
		}
		return r.resolveID(v.ID())
	case staff.RefID:
		return r.resolveID(v.ID())
	default:
		return Resolved{EmployeeName: r.fallback}
	}
}

func (r *Resolver) resolveID(id string) Resolved {
	if emp, ok := r.lookup(id); ok {
		return Resolved{EmployeeID: emp.ID, EmployeeName: emp.Name, Known: true}
	}
	return Resolved{EmployeeID: id, EmployeeName: r.fallback}
}

// CanonicalID returns the primary id of the employee known under id, or id
// itself when no employee matches.
func (r *Resolver) CanonicalID(id string) string {
	if emp, ok := r.lookup(id); ok {
		return emp.ID
	}
	return strings.TrimSpace(id)
}

// Matches reports whether ref refers to employeeID. An empty employeeID
// matches every reference.
func (r *Resolver) Matches(ref staff.EmployeeRef, employeeID string) bool {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return true
	}
	refID := staff.RefIDOf(ref)
	if refID == "" {
		return false
	}
	return r.CanonicalID(refID) == r.CanonicalID(employeeID)
}
