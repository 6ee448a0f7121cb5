package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Column describes one exported field.
type Column[T any] struct {
	Header string
	Value  func(T) string
}

// ExportCSV writes a header row followed by one row per record. Fields are
// quoted only when they contain a comma, quote or line break.
func ExportCSV[T any](rows []T, columns []Column[T]) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = col.Header
	}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = col.Value(row)
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return buf.String(), nil
}

func presentLabel(present bool) string {
	if present {
		return "Present"
	}
	return "Absent"
}

var AttendanceColumns = []Column[AttendanceEntry]{
	{Header: "Date", Value: func(e AttendanceEntry) string { return e.Date.String() }},
	{Header: "Employee", Value: func(e AttendanceEntry) string { return e.EmployeeName }},
	{Header: "Status", Value: func(e AttendanceEntry) string { return presentLabel(e.Present) }},
}

var ExpenseColumns = []Column[ExpenseEntry]{
	{Header: "Date", Value: func(e ExpenseEntry) string { return e.Date.String() }},
	{Header: "Employee", Value: func(e ExpenseEntry) string { return e.EmployeeName }},
	{Header: "Amount", Value: func(e ExpenseEntry) string { return e.Amount.StringFixed(2) }},
	{Header: "Category", Value: func(e ExpenseEntry) string { return e.Category }},
	{Header: "Description", Value: func(e ExpenseEntry) string { return e.Description }},
}
