package staff

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EmployeeStatusActive   = "active"
	EmployeeStatusInactive = "inactive"
	EmployeeStatusOnLeave  = "on-leave"

	DefaultExpenseCategory = "Other"
)

var EmployeeStatuses = []string{EmployeeStatusActive, EmployeeStatusInactive, EmployeeStatusOnLeave}

type Employee struct {
	ID        string
	LegacyID  string
	Name      string
	Position  string
	Email     string
	Phone     string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type AttendanceRecord struct {
	ID        string
	Employee  EmployeeRef
	Date      Day
	Present   bool
	CreatedAt time.Time
}

type Expense struct {
	ID          string
	Employee    EmployeeRef
	Date        Day
	Amount      decimal.Decimal
	Description string
	Category    string
	CreatedAt   time.Time
}

type employeeJSON struct {
	MongoID   json.RawMessage `json:"_id,omitempty"`
	ID        json.RawMessage `json:"id,omitempty"`
	LegacyID  string          `json:"legacyId,omitempty"`
	Name      string          `json:"name"`
	Position  string          `json:"position"`
	Email     string          `json:"email,omitempty"`
	Phone     string          `json:"phone,omitempty"`
	Status    string          `json:"status,omitempty"`
	CreatedAt string          `json:"createdAt,omitempty"`
	UpdatedAt string          `json:"updatedAt,omitempty"`
}

func (e Employee) MarshalJSON() ([]byte, error) {
	id, _ := json.Marshal(e.ID)
	return json.Marshal(employeeJSON{
		ID:        id,
		LegacyID:  e.LegacyID,
		Name:      e.Name,
		Position:  e.Position,
		Email:     e.Email,
		Phone:     e.Phone,
		Status:    e.Status,
		CreatedAt: formatTimestamp(e.CreatedAt),
		UpdatedAt: formatTimestamp(e.UpdatedAt),
	})
}

// UnmarshalJSON accepts documents keyed by "_id" (with "id" then read as the
// legacy key) as well as plain "id" documents with string or numeric ids.
func (e *Employee) UnmarshalJSON(data []byte) error {
	var wire employeeJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*e = Employee{
		LegacyID:  strings.TrimSpace(wire.LegacyID),
		Name:      strings.TrimSpace(wire.Name),
		Position:  strings.TrimSpace(wire.Position),
		Email:     strings.TrimSpace(wire.Email),
		Phone:     strings.TrimSpace(wire.Phone),
		Status:    strings.TrimSpace(wire.Status),
		CreatedAt: parseTimestamp(wire.CreatedAt),
		UpdatedAt: parseTimestamp(wire.UpdatedAt),
	}
	if mongoID := stringifyID(wire.MongoID); mongoID != "" {
		e.ID = mongoID
		if legacy := stringifyID(wire.ID); legacy != "" && legacy != mongoID && e.LegacyID == "" {
			e.LegacyID = legacy
		}
	} else {
		e.ID = stringifyID(wire.ID)
	}
	return nil
}

type recordJSON struct {
	ID           json.RawMessage `json:"id,omitempty"`
	MongoID      json.RawMessage `json:"_id,omitempty"`
	EmployeeID   json.RawMessage `json:"employeeId,omitempty"`
	EmployeeAlt  json.RawMessage `json:"employee_id,omitempty"`
	EmployeeDoc  json.RawMessage `json:"employee,omitempty"`
	EmployeeName string          `json:"employeeName,omitempty"`
	Date         json.RawMessage `json:"date,omitempty"`
	Present      *bool           `json:"present,omitempty"`
	Amount       json.RawMessage `json:"amount,omitempty"`
	Description  string          `json:"description,omitempty"`
	Category     string          `json:"category,omitempty"`
	CreatedAt    string          `json:"createdAt,omitempty"`
}

func (w recordJSON) recordID() string {
	if id := stringifyID(w.MongoID); id != "" {
		return id
	}
	return stringifyID(w.ID)
}

func (w recordJSON) employeeRef() EmployeeRef {
	for _, raw := range []json.RawMessage{w.EmployeeID, w.EmployeeAlt, w.EmployeeDoc} {
		if ref := DecodeEmployeeRef(raw); ref != nil {
			if id, ok := ref.(RefID); ok && strings.TrimSpace(w.EmployeeName) != "" {
				return EmbeddedRef{EmployeeID: string(id), Name: strings.TrimSpace(w.EmployeeName)}
			}
			return ref
		}
	}
	return nil
}

// recordDay decodes the date field, which may be a string or {"$date": ...}.
// An unusable date yields the zero Day so the record drops out of day buckets.
func (w recordJSON) recordDay() Day {
	raw := strings.TrimSpace(string(w.Date))
	if raw == "" || raw == "null" {
		return ""
	}
	var value string
	if strings.HasPrefix(raw, "{") {
		var wrapped struct {
			Date string `json:"$date"`
		}
		if err := json.Unmarshal(w.Date, &wrapped); err != nil {
			return ""
		}
		value = wrapped.Date
	} else if err := json.Unmarshal(w.Date, &value); err != nil {
		return ""
	}
	day, err := ParseDay(value)
	if err != nil {
		return ""
	}
	return day
}

func refJSON(ref EmployeeRef) (json.RawMessage, string) {
	if ref == nil {
		return nil, ""
	}
	id, _ := json.Marshal(ref.ID())
	if embedded, ok := ref.(EmbeddedRef); ok {
		return id, embedded.Name
	}
	return id, ""
}

func (a AttendanceRecord) MarshalJSON() ([]byte, error) {
	id, _ := json.Marshal(a.ID)
	employeeID, employeeName := refJSON(a.Employee)
	date, _ := json.Marshal(string(a.Date))
	present := a.Present
	return json.Marshal(recordJSON{
		ID:           id,
		EmployeeID:   employeeID,
		EmployeeName: employeeName,
		Date:         date,
		Present:      &present,
		CreatedAt:    formatTimestamp(a.CreatedAt),
	})
}

func (a *AttendanceRecord) UnmarshalJSON(data []byte) error {
	var wire recordJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*a = AttendanceRecord{
		ID:        wire.recordID(),
		Employee:  wire.employeeRef(),
		Date:      wire.recordDay(),
		Present:   wire.Present != nil && *wire.Present,
		CreatedAt: parseTimestamp(wire.CreatedAt),
	}
	return nil
}

func (e Expense) MarshalJSON() ([]byte, error) {
	id, _ := json.Marshal(e.ID)
	employeeID, employeeName := refJSON(e.Employee)
	date, _ := json.Marshal(string(e.Date))
	amount, _ := json.Marshal(e.Amount.InexactFloat64())
	return json.Marshal(recordJSON{
		ID:           id,
		EmployeeID:   employeeID,
		EmployeeName: employeeName,
		Date:         date,
		Amount:       amount,
		Description:  e.Description,
		Category:     e.Category,
		CreatedAt:    formatTimestamp(e.CreatedAt),
	})
}

func (e *Expense) UnmarshalJSON(data []byte) error {
	var wire recordJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	category := strings.TrimSpace(wire.Category)
	if category == "" {
		category = DefaultExpenseCategory
	}
	*e = Expense{
		ID:          wire.recordID(),
		Employee:    wire.employeeRef(),
		Date:        wire.recordDay(),
		Amount:      ParseAmountJSON(wire.Amount),
		Description: wire.Description,
		Category:    category,
		CreatedAt:   parseTimestamp(wire.CreatedAt),
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(raw string) time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}
	}
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed
	}
	if parsed, err := time.Parse(DayLayout, value); err == nil {
		return parsed
	}
	return time.Time{}
}
