package reports

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	attendanceSheet = "Attendance"
	expenseSheet    = "Expenses"
)

// ExportXLSX builds a workbook with an attendance sheet and an expense
// sheet, using the same columns as the CSV exports. Amounts are written as
// numbers so spreadsheet formulas work on them.
func ExportXLSX(attendance []AttendanceEntry, expenses []ExpenseEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", attendanceSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(expenseSheet); err != nil {
		return nil, fmt.Errorf("add sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	attendanceRows := make([][]any, 0, len(attendance))
	for _, e := range attendance {
		attendanceRows = append(attendanceRows, []any{e.Date.String(), e.EmployeeName, presentLabel(e.Present)})
	}
	if err := writeSheet(f, attendanceSheet, headerStyle, columnHeaders(AttendanceColumns), attendanceRows); err != nil {
		return nil, err
	}

	expenseRows := make([][]any, 0, len(expenses))
	for _, e := range expenses {
		expenseRows = append(expenseRows, []any{e.Date.String(), e.EmployeeName, e.Amount.Round(2).InexactFloat64(), e.Category, e.Description})
	}
	if err := writeSheet(f, expenseSheet, headerStyle, columnHeaders(ExpenseColumns), expenseRows); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func columnHeaders[T any](columns []Column[T]) []any {
	out := make([]any, len(columns))
	for i, col := range columns {
		out[i] = col.Header
	}
	return out
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return fmt.Errorf("size %s columns: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
