package staff

import (
	"bytes"
	"encoding/json"
	"strings"
)

// EmployeeRef is the employee reference carried by attendance and expense
// records. It is either a RefID (bare identifier) or an EmbeddedRef (the
// employee document was joined in). A nil EmployeeRef means the reference is
// missing.
type EmployeeRef interface {
	ID() string
	isEmployeeRef()
}

// RefID is a bare employee identifier.
type RefID string

func (r RefID) ID() string   { return strings.TrimSpace(string(r)) }
func (RefID) isEmployeeRef() {}

// EmbeddedRef is an employee reference that already carries the display name.
type EmbeddedRef struct {
	EmployeeID string
	Name       string
}

func (r EmbeddedRef) ID() string   { return strings.TrimSpace(r.EmployeeID) }
func (EmbeddedRef) isEmployeeRef() {}

// RefIDOf returns the identifier of ref, or "" when ref is nil.
func RefIDOf(ref EmployeeRef) string {
	if ref == nil {
		return ""
	}
	return ref.ID()
}

// DecodeEmployeeRef converts the loose JSON forms found in stored documents and
// request bodies into an EmployeeRef: a string or number becomes a RefID, an
// object with an _id/id and a name becomes an EmbeddedRef, anything else nil.
func DecodeEmployeeRef(raw json.RawMessage) EmployeeRef {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	switch raw[0] {
	case '{':
		var doc struct {
			MongoID json.RawMessage `json:"_id"`
			ID      json.RawMessage `json:"id"`
			Name    string          `json:"name"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil
		}
		id := stringifyID(doc.MongoID)
		if id == "" {
			id = stringifyID(doc.ID)
		}
		if id == "" {
			id = stringifyID(raw)
		}
		name := strings.TrimSpace(doc.Name)
		if name != "" {
			return EmbeddedRef{EmployeeID: id, Name: name}
		}
		if id == "" {
			return nil
		}
		return RefID(id)
	default:
		id := stringifyID(raw)
		if id == "" {
			return nil
		}
		return RefID(id)
	}
}

// stringifyID renders a JSON string, number or {"$oid": "..."} value as an
// identifier string.
func stringifyID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	case '{':
		var oid struct {
			OID string `json:"$oid"`
		}
		if err := json.Unmarshal(raw, &oid); err != nil {
			return ""
		}
		return strings.TrimSpace(oid.OID)
	default:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return ""
		}
		return n.String()
	}
}
