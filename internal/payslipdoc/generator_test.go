package payslipdoc

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-payroll/internal/payroll"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const companyID = "0b5e7c1e-7c55-4a4b-9d43-2f1f1d3a9e10"

type fakeSource struct {
	payslips map[int64]*payroll.Payslip
}

func (f *fakeSource) FindPayslipDetail(_ context.Context, _ string, id int64) (*payroll.Payslip, error) {
	p, ok := f.payslips[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

type memoryStorage struct {
	files map[string][]byte
	err   error
}

func (m *memoryStorage) Save(_ context.Context, name string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[name] = data
	return "/files/payslips/" + name, nil
}

func samplePayslip() *payroll.Payslip {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	return &payroll.Payslip{
		ID:              7,
		Number:          "BP-2026/09-007",
		PayRunID:        3,
		PayRun:          &payroll.PayRun{ID: 3, Reference: "PAIE-2026-09", PeriodStart: start, PeriodEnd: start.AddDate(0, 1, -1)},
		Employee:        &payroll.PayslipEmployee{ID: 11, FullName: "Awa Traoré", EmployeeCode: "EMP-011"},
		BaseSalary:      700000,
		BonusAmount:     50000,
		GrossSalary:     750000,
		TotalDeductions: 30000,
		NetSalary:       720000,
		AmountPaid:      500000,
		AmountRemaining: 220000,
		PaymentStatus:   payroll.PayslipStatusPending,
		Components: []payroll.PayslipComponent{
			{ComponentType: payroll.ComponentTypeDeduction, ComponentName: "CNPS", TotalAmount: 30000},
		},
		Payments: []payroll.Payment{
			{Reference: "PAY1759300000007-AB", Amount: 500000, Method: payroll.PaymentMethodBankTransfer, PaidAt: start.AddDate(0, 1, 0)},
		},
	}
}

func TestGenerator_GeneratePayslipDocument(t *testing.T) {
	storage := &memoryStorage{}
	g := NewGenerator(&fakeSource{payslips: map[int64]*payroll.Payslip{7: samplePayslip()}}, storage, Options{
		CompanyName: "Acme SARL",
		Logger:      zap.NewNop(),
	})

	path, err := g.GeneratePayslipDocument(context.Background(), companyID, 7)
	require.NoError(t, err)
	assert.Equal(t, "/files/payslips/"+companyID+"/bulletin_BP-2026_09-007.pdf", path)

	data := storage.files[companyID+"/bulletin_BP-2026_09-007.pdf"]
	require.NotEmpty(t, data)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestGenerator_GeneratePayslipDocument_Errors(t *testing.T) {
	t.Run("MissingPayslip", func(t *testing.T) {
		g := NewGenerator(&fakeSource{}, &memoryStorage{}, Options{Logger: zap.NewNop()})

		_, err := g.GeneratePayslipDocument(context.Background(), companyID, 99)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("StorageFailure", func(t *testing.T) {
		storageErr := errors.New("disk full")
		g := NewGenerator(&fakeSource{payslips: map[int64]*payroll.Payslip{7: samplePayslip()}},
			&memoryStorage{err: storageErr}, Options{Logger: zap.NewNop()})

		_, err := g.GeneratePayslipDocument(context.Background(), companyID, 7)
		assert.ErrorIs(t, err, storageErr)
	})
}

func TestGenerator_GenerateBulkPayslipDocuments(t *testing.T) {
	second := samplePayslip()
	second.ID = 8
	second.Number = "BP-2026/09-008"
	g := NewGenerator(&fakeSource{payslips: map[int64]*payroll.Payslip{7: samplePayslip(), 8: second}},
		&memoryStorage{}, Options{Logger: zap.NewNop()})

	docs, err := g.GenerateBulkPayslipDocuments(context.Background(), companyID, []int64{7, 42, 8})
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, int64(7), docs[0].PayslipID)
	assert.NoError(t, docs[0].Err)
	assert.Equal(t, int64(42), docs[1].PayslipID)
	assert.Error(t, docs[1].Err)
	assert.Empty(t, docs[1].Path)
	assert.Equal(t, int64(8), docs[2].PayslipID)
	assert.Contains(t, docs[2].Path, "bulletin_BP-2026_09-008.pdf")
}

func TestGenerator_GenerateBulkPayslipDocuments_Cancelled(t *testing.T) {
	g := NewGenerator(&fakeSource{payslips: map[int64]*payroll.Payslip{7: samplePayslip()}},
		&memoryStorage{}, Options{Logger: zap.NewNop()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs, err := g.GenerateBulkPayslipDocuments(ctx, companyID, []int64{7})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, docs)
}

func TestLocalStorage_Save(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewLocalStorage(dir, "/files/payslips/")
	require.NoError(t, err)

	path, err := storage.Save(context.Background(), companyID+"/bulletin_1.pdf", []byte("%PDF-1.3"))
	require.NoError(t, err)
	assert.Equal(t, "/files/payslips/"+companyID+"/bulletin_1.pdf", path)

	data, err := os.ReadFile(filepath.Join(dir, companyID, "bulletin_1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))

	t.Run("OverwritesInPlace", func(t *testing.T) {
		_, err := storage.Save(context.Background(), companyID+"/bulletin_1.pdf", []byte("%PDF-1.4"))
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dir, companyID, "bulletin_1.pdf"))
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4", string(data))
	})

	t.Run("StaysInsideDir", func(t *testing.T) {
		path, err := storage.Save(context.Background(), "../../escape.pdf", []byte("x"))
		require.NoError(t, err)
		assert.Equal(t, "/files/payslips/escape.pdf", path)
		_, statErr := os.Stat(filepath.Join(dir, "escape.pdf"))
		assert.NoError(t, statErr)
	})
}
