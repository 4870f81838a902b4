package payroll

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const summarySheet = "Synthese"

var summaryHeaders = []string{
	"Bulletin", "Matricule", "Employé", "Salaire brut", "Net à payer",
	"Montant payé", "Reste à payer", "Statut", "Paiements",
}

func (s *service) ExportPayrollSummary(ctx context.Context, companyID, payRunID string) ([]byte, string, error) {
	summary, err := s.GetPayrollSummary(ctx, companyID, payRunID)
	if err != nil {
		return nil, "", err
	}

	data, err := buildSummaryWorkbook(summary)
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("synthese_paie_%s.xlsx", summary.Reference)
	return data, filename, nil
}

func buildSummaryWorkbook(summary PayrollSummaryResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(summarySheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	f.SetCellValue(summarySheet, "A1", "Période de paie")
	f.SetCellValue(summarySheet, "B1", summary.Reference)
	f.SetCellValue(summarySheet, "C1", summary.PeriodStart+" - "+summary.PeriodEnd)
	f.SetCellValue(summarySheet, "D1", summary.Status)

	headerRow := 3
	for i, h := range summaryHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		f.SetCellValue(summarySheet, cell, h)
	}

	row := headerRow + 1
	for _, p := range summary.Payslips {
		values := []any{
			p.Number, p.EmployeeCode, p.EmployeeName, p.GrossSalary, p.NetSalary,
			p.AmountPaid, p.AmountRemaining, p.PaymentStatus, len(p.Payments),
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			f.SetCellValue(summarySheet, cell, v)
		}
		row++
	}

	f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "TOTAL")
	f.SetCellValue(summarySheet, fmt.Sprintf("D%d", row), summary.TotalGross)
	f.SetCellValue(summarySheet, fmt.Sprintf("E%d", row), summary.TotalNet)
	f.SetCellValue(summarySheet, fmt.Sprintf("F%d", row), summary.TotalPaid)
	f.SetCellValue(summarySheet, fmt.Sprintf("G%d", row), summary.TotalRemaining)

	f.SetColWidth(summarySheet, "A", "B", 14)
	f.SetColWidth(summarySheet, "C", "C", 30)
	f.SetColWidth(summarySheet, "D", "G", 16)
	f.SetColWidth(summarySheet, "H", "I", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
