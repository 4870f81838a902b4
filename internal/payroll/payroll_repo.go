package payroll

import (
	"context"
	"database/sql"
	"time"

	"go-payroll/internal/tenant"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	FindPayslipByID(ctx context.Context, companyID string, id int64) (*Payslip, error)
	// FindPayslipForUpdate reads the payslip holding a row lock where the
	// database supports one.
	FindPayslipForUpdate(ctx context.Context, companyID string, id int64) (*Payslip, error)
	FindPayslipDetail(ctx context.Context, companyID string, id int64) (*Payslip, error)
	CreatePayment(ctx context.Context, payment *Payment) error
	ApplySettlement(ctx context.Context, update SettlementUpdate) (bool, error)
	UpdateDocumentPath(ctx context.Context, companyID string, payslipID int64, path string, generatedAt time.Time) error
	FindPayRunByID(ctx context.Context, companyID string, id int64, withPayslips bool) (*PayRun, error)
	ListPayslipIDsByPayRun(ctx context.Context, companyID string, payRunID int64) ([]int64, error)
	ListPaymentsByPayslip(ctx context.Context, companyID string, payslipID int64) ([]Payment, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx binds the repository to a transaction opened on the same *sql.DB
// that backs the gorm handle. The shared handle is left untouched.
func (r *repository) WithTx(tx *sql.Tx) Repository {
	if tx == nil {
		return r
	}
	// Setting Context makes gorm clone the statement, so ConnPool is only
	// swapped on this session.
	gtx := r.db.Session(&gorm.Session{NewDB: true, Context: context.Background()})
	gtx.Statement.ConnPool = tx
	return &repository{db: gtx}
}

func (r *repository) supportsRowLocks() bool {
	return r.db.Dialector.Name() == "postgres"
}

func (r *repository) FindPayslipByID(ctx context.Context, companyID string, id int64) (*Payslip, error) {
	var payslip Payslip
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&payslip, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &payslip, nil
}

func (r *repository) FindPayslipForUpdate(ctx context.Context, companyID string, id int64) (*Payslip, error) {
	q := r.db.WithContext(ctx).Scopes(tenant.Scope(companyID))
	if r.supportsRowLocks() {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var payslip Payslip
	if err := q.First(&payslip, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payslip, nil
}

func (r *repository) FindPayslipDetail(ctx context.Context, companyID string, id int64) (*Payslip, error) {
	var payslip Payslip
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Preload("PayRun").
		Preload("Employee").
		Preload("Components", func(db *gorm.DB) *gorm.DB {
			return db.Order("component_type ASC, id ASC")
		}).
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("paid_at ASC, id ASC")
		}).
		First(&payslip, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &payslip, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) ApplySettlement(ctx context.Context, update SettlementUpdate) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&Payslip{}).
		Scopes(tenant.Scope(update.CompanyID)).
		Where("id = ? AND amount_paid = ?", update.PayslipID, update.ExpectedAmountPaid).
		Updates(map[string]any{
			"amount_paid":      update.AmountPaid,
			"amount_remaining": update.AmountRemaining,
			"payment_status":   update.PaymentStatus,
			"updated_at":       update.UpdatedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) UpdateDocumentPath(
	ctx context.Context,
	companyID string,
	payslipID int64,
	path string,
	generatedAt time.Time,
) error {
	res := r.db.WithContext(ctx).
		Model(&Payslip{}).
		Scopes(tenant.Scope(companyID)).
		Where("id = ?", payslipID).
		Updates(map[string]any{
			"document_path":         path,
			"document_generated_at": generatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) FindPayRunByID(ctx context.Context, companyID string, id int64, withPayslips bool) (*PayRun, error) {
	q := r.db.WithContext(ctx).Scopes(tenant.Scope(companyID))
	if withPayslips {
		q = q.
			Preload("Payslips", func(db *gorm.DB) *gorm.DB {
				return db.Order("id ASC")
			}).
			Preload("Payslips.Employee").
			Preload("Payslips.Payments", func(db *gorm.DB) *gorm.DB {
				return db.Order("paid_at ASC, id ASC")
			})
	}

	var run PayRun
	if err := q.First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *repository) ListPayslipIDsByPayRun(ctx context.Context, companyID string, payRunID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&Payslip{}).
		Scopes(tenant.Scope(companyID)).
		Where("pay_run_id = ?", payRunID).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *repository) ListPaymentsByPayslip(ctx context.Context, companyID string, payslipID int64) ([]Payment, error) {
	var payments []Payment
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("payslip_id = ?", payslipID).
		Order("paid_at ASC, id ASC").
		Find(&payments).Error
	return payments, err
}
