package ledger

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

var dailyHeader = []string{"Date", "Total buy", "Buy day", "Buy month", "Total sell", "Sell day", "Sell month", "Time"}

// ExportXLSX renders a year of daily rows as a workbook with a summary sheet and
// a days sheet.
func ExportXLSX(year int, rows []DailyRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "summary"
	daysSheet := "days"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(daysSheet); err != nil {
		return nil, err
	}

	buy, sell := yearTotals(rows)
	_ = f.SetCellValue(summarySheet, "A1", "Energy Ledger")
	_ = f.SetCellValue(summarySheet, "A3", "Year")
	_ = f.SetCellValue(summarySheet, "B3", year)
	_ = f.SetCellValue(summarySheet, "A4", "Days")
	_ = f.SetCellValue(summarySheet, "B4", len(rows))
	_ = f.SetCellValue(summarySheet, "A5", "Buy (kWh)")
	_ = f.SetCellValue(summarySheet, "B5", buy)
	_ = f.SetCellValue(summarySheet, "A6", "Sell (kWh)")
	_ = f.SetCellValue(summarySheet, "B6", sell)

	for i, h := range dailyHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(daysSheet, cell, h)
	}
	for i, r := range rows {
		row := i + 2
		_ = f.SetCellValue(daysSheet, fmt.Sprintf("A%d", row), r.Date)
		_ = f.SetCellValue(daysSheet, fmt.Sprintf("B%d", row), r.TotalBuy)
		_ = f.SetCellValue(daysSheet, fmt.Sprintf("C%d", row), r.BuyDay)
		_ = f.SetCellValue(daysSheet, fmt.Sprintf("D%d", row), r.BuyMonth)
		_ = f.SetCellValue(daysSheet, fmt.Sprintf("E%d", row), r.TotalSell)
		_ = f.SetCellValue(daysSheet, fmt.Sprintf("F%d", row), r.SellDay)
		_ = f.SetCellValue(daysSheet, fmt.Sprintf("G%d", row), r.SellMonth)
		_ = f.SetCellValue(daysSheet, fmt.Sprintf("H%d", row), r.Time)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportPDF renders a year of daily rows as a single table.
func ExportPDF(year int, rows []DailyRow) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	buy, sell := yearTotals(rows)
	pdf.Cell(0, 8, fmt.Sprintf("Energy Ledger %d", year))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Days: %d", len(rows)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Buy (kWh): %.3f", buy))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Sell (kWh): %.3f", sell))
	pdf.Ln(8)

	widths := []float64{24, 24, 20, 22, 24, 20, 22, 18}
	pdf.SetFont("Arial", "B", 8)
	for i, h := range dailyHeader {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 8)
	for _, r := range rows {
		cells := []string{
			r.Date,
			fmt.Sprintf("%.3f", r.TotalBuy),
			fmt.Sprintf("%.3f", r.BuyDay),
			fmt.Sprintf("%.3f", r.BuyMonth),
			fmt.Sprintf("%.3f", r.TotalSell),
			fmt.Sprintf("%.3f", r.SellDay),
			fmt.Sprintf("%.3f", r.SellMonth),
			r.Time,
		}
		for i, c := range cells {
			align := "R"
			if i == 0 || i == len(cells)-1 {
				align = "C"
			}
			pdf.CellFormat(widths[i], 6, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// yearTotals sums the daily consumption columns.
func yearTotals(rows []DailyRow) (buy, sell float64) {
	for _, r := range rows {
		buy += r.BuyDay
		sell += r.SellDay
	}
	return buy, sell
}
