package workflow

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteReportXlsx renders a financial report as a workbook with a Summary
// sheet (aggregate plus monthly series) and an Expenses sheet (line items).
func WriteReportXlsx(report *FinancialReport, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	summary := "Summary"
	f.SetSheetName("Sheet1", summary)

	f.SetCellValue(summary, "A1", "GeneratedAt")
	f.SetCellValue(summary, "B1", report.GeneratedAt.Format("2006-01-02 15:04:05"))
	f.SetCellValue(summary, "A2", "Revenue")
	f.SetCellValue(summary, "B2", report.Revenue.InexactFloat64())
	f.SetCellValue(summary, "A3", "Expense")
	f.SetCellValue(summary, "B3", report.Expense.InexactFloat64())
	f.SetCellValue(summary, "A4", "Profit")
	f.SetCellValue(summary, "B4", report.Profit.InexactFloat64())

	f.SetCellValue(summary, "A6", "Month")
	f.SetCellValue(summary, "B6", "Revenue")
	f.SetCellValue(summary, "C6", "Expense")
	f.SetCellValue(summary, "D6", "Profit")
	for i, m := range report.Months {
		row := fmt.Sprint(i + 7)
		f.SetCellValue(summary, "A"+row, m.Month)
		f.SetCellValue(summary, "B"+row, m.Revenue.InexactFloat64())
		f.SetCellValue(summary, "C"+row, m.Expense.InexactFloat64())
		f.SetCellValue(summary, "D"+row, m.Profit.InexactFloat64())
	}

	expenses := "Expenses"
	if _, err := f.NewSheet(expenses); err != nil {
		return err
	}
	f.SetCellValue(expenses, "A1", "RequestId")
	f.SetCellValue(expenses, "B1", "Supplier")
	f.SetCellValue(expenses, "C1", "Material")
	f.SetCellValue(expenses, "D1", "Color")
	f.SetCellValue(expenses, "E1", "QuantityKg")
	f.SetCellValue(expenses, "F1", "UnitCost")
	f.SetCellValue(expenses, "G1", "Cost")
	f.SetCellValue(expenses, "H1", "Estimated")
	f.SetCellValue(expenses, "I1", "Month")
	for i, line := range report.Expenses {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(expenses, "A"+row, line.MaterialRequestId)
		f.SetCellValue(expenses, "B"+row, line.SupplierName)
		f.SetCellValue(expenses, "C"+row, line.Material)
		f.SetCellValue(expenses, "D"+row, line.Color)
		f.SetCellValue(expenses, "E"+row, line.QuantityKg.InexactFloat64())
		f.SetCellValue(expenses, "F"+row, line.UnitCost.InexactFloat64())
		f.SetCellValue(expenses, "G"+row, line.Cost.InexactFloat64())
		f.SetCellValue(expenses, "H"+row, line.IsEstimated)
		f.SetCellValue(expenses, "I"+row, line.Month)
	}

	return f.Write(w)
}
