package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	expensesSheet = "Expenses"

	// XLSXContentType is the MIME type of WriteAnnualXLSX output.
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var cellBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
}

// WriteAnnualXLSX writes the annual report as a workbook: one row per month
// with a totals row on "Summary", category totals on "Expenses".
func WriteAnnualXLSX(w io.Writer, r *Annual) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(expensesSheet); err != nil {
		return err
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    cellBorder,
	})
	if err != nil {
		return err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4, Border: cellBorder})
	if err != nil {
		return err
	}
	totals, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		NumFmt: 4,
		Border: cellBorder,
	})
	if err != nil {
		return err
	}

	// Summary sheet
	headers := []string{"Month", "Gains", "Expenses", "Profit/Loss", "Active students"}
	if err := writeHeader(f, summarySheet, headers, header); err != nil {
		return err
	}
	if err := setColWidths(f, summarySheet, map[string]float64{"A": 12, "B": 16, "C": 16, "D": 16, "E": 16}); err != nil {
		return err
	}

	for i, m := range r.Months {
		row := i + 2
		values := []any{
			fmt.Sprintf("%d-%02d", m.Year, int(m.Month)),
			asFloat(m.Gains),
			asFloat(m.TotalExpenses),
			asFloat(m.ProfitLoss),
			m.ActiveStudents,
		}
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return err
		}
		if err := f.SetCellStyle(summarySheet, fmt.Sprintf("B%d", row), fmt.Sprintf("D%d", row), money); err != nil {
			return err
		}
	}

	totalRow := len(r.Months) + 2
	totalValues := []any{
		fmt.Sprintf("%d", r.Year),
		asFloat(r.Gains),
		asFloat(r.TotalExpenses),
		asFloat(r.ProfitLoss),
		asFloat(r.AvgActiveStudents),
	}
	if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", totalRow), &totalValues); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("E%d", totalRow), totals); err != nil {
		return err
	}

	// Expenses sheet
	if err := writeHeader(f, expensesSheet, []string{"Category", "Total"}, header); err != nil {
		return err
	}
	if err := setColWidths(f, expensesSheet, map[string]float64{"A": 24, "B": 16}); err != nil {
		return err
	}

	labels := make([]string, 0, len(r.ExpensesByCategory))
	for label := range r.ExpensesByCategory {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for i, label := range labels {
		row := i + 2
		values := []any{label, asFloat(r.ExpensesByCategory[label])}
		if err := f.SetSheetRow(expensesSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return err
		}
		if err := f.SetCellStyle(expensesSheet, fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), money); err != nil {
			return err
		}
	}
	sumRow := len(labels) + 2
	sumValues := []any{"Total", asFloat(r.TotalExpenses)}
	if err := f.SetSheetRow(expensesSheet, fmt.Sprintf("A%d", sumRow), &sumValues); err != nil {
		return err
	}
	if err := f.SetCellStyle(expensesSheet, fmt.Sprintf("A%d", sumRow), fmt.Sprintf("B%d", sumRow), totals); err != nil {
		return err
	}

	return f.Write(w)
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

func setColWidths(f *excelize.File, sheet string, widths map[string]float64) error {
	for col, width := range widths {
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

// asFloat is for spreadsheet cells only; sums are done on decimals before this.
func asFloat(d decimal.Decimal) float64 {
	v, _ := d.Round(2).Float64()
	return v
}
