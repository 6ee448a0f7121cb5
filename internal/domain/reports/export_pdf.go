package reports

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// ExportMonthlyPDF renders the month summary followed by one table row per
// day bucket. gofpdf's core fonts are latin-1 only, so amounts carry the
// currency code rather than a symbol.
func ExportMonthlyPDF(title string, stats MonthStats, buckets []DayBucket, currency string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, title)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s to %s", stats.Period.From, stats.Period.To))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Attendance rate: %.2f%% (%d present, %d absent)", stats.Attendance.AttendanceRate, stats.Attendance.PresentDays, stats.Attendance.AbsentDays))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Expenses: %s %s across %d entries", stats.Expenses.TotalAmount.StringFixed(2), currency, stats.Expenses.ExpenseCount))
	pdf.Ln(7)
	if stats.Expenses.TopCategory != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Top category: %s", stats.Expenses.TopCategory))
		pdf.Ln(7)
	}
	pdf.Ln(5)

	widths := []float64{45, 30, 30, 50}
	pdf.SetFont("Helvetica", "B", 11)
	for i, header := range []string{"Day", "Present", "Absent", "Expenses"} {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 11)
	for _, b := range buckets {
		pdf.CellFormat(widths[0], 7, b.Label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, fmt.Sprint(b.PresentCount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, fmt.Sprint(b.AbsentCount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, b.TotalExpense.StringFixed(2)+" "+currency, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	if len(buckets) == 0 {
		pdf.CellFormat(widths[0]+widths[1]+widths[2]+widths[3], 7, "No records for this period", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
