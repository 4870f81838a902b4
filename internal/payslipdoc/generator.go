package payslipdoc

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"go-payroll/internal/payroll"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PayslipSource loads a payslip with its pay run, employee, components and
// payments. payroll.Repository satisfies it.
type PayslipSource interface {
	FindPayslipDetail(ctx context.Context, companyID string, id int64) (*payroll.Payslip, error)
}

type Options struct {
	CompanyName string
	Currency    string
	Logger      *zap.Logger
}

// Generator renders payslips to PDF and hands them to Storage.
type Generator struct {
	source      PayslipSource
	storage     Storage
	companyName string
	currency    string
	printer     *message.Printer
	logger      *zap.Logger
}

func NewGenerator(source PayslipSource, storage Storage, opts Options) *Generator {
	l := zap.L().Named("payslipdoc.generator")
	if opts.Logger != nil {
		l = opts.Logger.Named("payslipdoc.generator")
	}
	currency := opts.Currency
	if currency == "" {
		currency = "F CFA"
	}
	return &Generator{
		source:      source,
		storage:     storage,
		companyName: opts.CompanyName,
		currency:    currency,
		printer:     message.NewPrinter(language.French),
		logger:      l,
	}
}

func (g *Generator) GeneratePayslipDocument(ctx context.Context, companyID string, payslipID int64) (string, error) {
	payslip, err := g.source.FindPayslipDetail(ctx, companyID, payslipID)
	if err != nil {
		return "", fmt.Errorf("load payslip %d: %w", payslipID, err)
	}

	data, err := g.Render(payslip)
	if err != nil {
		return "", fmt.Errorf("render payslip %d: %w", payslipID, err)
	}

	path, err := g.storage.Save(ctx, documentName(companyID, payslip), data)
	if err != nil {
		return "", err
	}

	g.logger.Debug("payslip document stored",
		zap.Int64("payslip_id", payslipID),
		zap.String("path", path),
		zap.Int("bytes", len(data)),
	)
	return path, nil
}

// GenerateBulkPayslipDocuments renders each payslip in order. Per-payslip
// failures are reported in the result; only cancellation aborts the batch.
func (g *Generator) GenerateBulkPayslipDocuments(ctx context.Context, companyID string, payslipIDs []int64) ([]payroll.GeneratedDocument, error) {
	results := make([]payroll.GeneratedDocument, 0, len(payslipIDs))
	for _, id := range payslipIDs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		path, err := g.GeneratePayslipDocument(ctx, companyID, id)
		if err != nil {
			g.logger.Warn("payslip document failed", zap.Int64("payslip_id", id), zap.Error(err))
		}
		results = append(results, payroll.GeneratedDocument{PayslipID: id, Path: path, Err: err})
	}
	return results, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func documentName(companyID string, p *payroll.Payslip) string {
	number := unsafeName.ReplaceAllString(p.Number, "_")
	if number == "" {
		number = strconv.FormatInt(p.ID, 10)
	}
	return companyID + "/bulletin_" + number + ".pdf"
}

func (g *Generator) money(v int64) string {
	return g.printer.Sprintf("%d", v) + " " + g.currency
}

func (g *Generator) Render(p *payroll.Payslip) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} / {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(7, g.companyName, props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Left}),
		text.NewCol(5, "BULLETIN DE PAIE", props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Right}),
	)

	period := ""
	reference := ""
	if p.PayRun != nil {
		period = p.PayRun.PeriodStart.Format("02/01/2006") + " - " + p.PayRun.PeriodEnd.Format("02/01/2006")
		reference = p.PayRun.Reference
	}
	employeeName, employeeCode := "", ""
	if p.Employee != nil {
		employeeName = p.Employee.FullName
		employeeCode = p.Employee.EmployeeCode
	}

	m.AddRow(22,
		col.New(6).Add(
			text.New("Bulletin : "+p.Number, props.Text{Top: 0}),
			text.New("Période : "+period, props.Text{Top: 5}),
			text.New("Paie : "+reference, props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New(employeeName, props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.New("Matricule : "+employeeCode, props.Text{Top: 5, Align: align.Right}),
		),
	)

	header := props.Text{Style: fontstyle.Bold, Size: 9}
	headerRight := props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}
	cell := props.Text{Size: 9}
	cellRight := props.Text{Size: 9, Align: align.Right}

	m.AddRow(10,
		text.NewCol(8, "Rubrique", header),
		text.NewCol(4, "Montant", headerRight),
	)
	for _, line := range []struct {
		label  string
		amount int64
	}{
		{"Salaire de base", p.BaseSalary},
		{"Heures supplémentaires", p.OvertimeAmount},
		{"Primes", p.BonusAmount},
		{"Indemnités", p.Allowances},
	} {
		if line.amount == 0 {
			continue
		}
		m.AddRow(7, text.NewCol(8, line.label, cell), text.NewCol(4, g.money(line.amount), cellRight))
	}
	for _, c := range p.Components {
		amount := c.TotalAmount
		if c.ComponentType == payroll.ComponentTypeDeduction {
			amount = -amount
		}
		m.AddRow(7, text.NewCol(8, c.ComponentName, cell), text.NewCol(4, g.money(amount), cellRight))
	}

	m.AddRow(8,
		col.New(4),
		text.NewCol(4, "Salaire brut", header),
		text.NewCol(4, g.money(p.GrossSalary), cellRight),
	)
	m.AddRow(8,
		col.New(4),
		text.NewCol(4, "Total retenues", header),
		text.NewCol(4, g.money(p.TotalDeductions), cellRight),
	)
	m.AddRow(10,
		col.New(4),
		text.NewCol(4, "Net à payer", props.Text{Style: fontstyle.Bold, Size: 11}),
		text.NewCol(4, g.money(p.NetSalary), props.Text{Style: fontstyle.Bold, Size: 11, Align: align.Right}),
	)

	m.AddRow(12,
		text.NewCol(12, "Règlement", props.Text{Style: fontstyle.Bold, Size: 11, Top: 4}),
	)
	m.AddRow(7,
		text.NewCol(4, "Payé : "+g.money(p.AmountPaid), cell),
		text.NewCol(4, "Reste : "+g.money(p.AmountRemaining), cell),
		text.NewCol(4, "Statut : "+p.PaymentStatus, cellRight),
	)

	if len(p.Payments) > 0 {
		m.AddRow(9,
			text.NewCol(3, "Date", header),
			text.NewCol(4, "Référence", header),
			text.NewCol(2, "Mode", header),
			text.NewCol(3, "Montant", headerRight),
		)
		for _, pay := range p.Payments {
			m.AddRow(7,
				text.NewCol(3, pay.PaidAt.Format("02/01/2006"), cell),
				text.NewCol(4, pay.Reference, cell),
				text.NewCol(2, pay.Method, cell),
				text.NewCol(3, g.money(pay.Amount), cellRight),
			)
		}
	}

	m.AddRow(10,
		text.NewCol(12, "Édité le "+time.Now().UTC().Format("02/01/2006 15:04"), props.Text{Size: 7, Top: 4, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
