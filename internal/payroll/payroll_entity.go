package payroll

import (
	"time"

	"github.com/google/uuid"
)

const (
	PayRunStatusDraft    = "BROUILLON"
	PayRunStatusApproved = "APPROUVE"
	PayRunStatusClosed   = "CLOTURE"
)

// Payslip payment status.
const (
	PayslipStatusPending = "EN_ATTENTE"
	PayslipStatusPaid    = "PAYE"
)

// Payment record status. Only PaymentStatusProcessed is written by settlement.
const (
	PaymentStatusPending   = "EN_ATTENTE"
	PaymentStatusProcessed = "TRAITE"
	PaymentStatusFailed    = "ECHOUE"
	PaymentStatusCancelled = "ANNULE"
)

const (
	PaymentMethodCash         = "ESPECES"
	PaymentMethodCheck        = "CHEQUE"
	PaymentMethodBankTransfer = "VIREMENT_BANCAIRE"
	PaymentMethodMobileMoney  = "MOBILE_MONEY"
	PaymentMethodOther        = "AUTRE"
)

const (
	ComponentTypeAllowance = "ALLOWANCE"
	ComponentTypeDeduction = "DEDUCTION"
)

func IsValidPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodCash, PaymentMethodCheck, PaymentMethodBankTransfer, PaymentMethodMobileMoney, PaymentMethodOther:
		return true
	default:
		return false
	}
}

type PayRun struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	CompanyID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Reference     string    `gorm:"type:varchar(50);not null;uniqueIndex:uq_pay_runs_reference"`
	PeriodStart   time.Time `gorm:"type:date;not null"`
	PeriodEnd     time.Time `gorm:"type:date;not null"`
	Status        string    `gorm:"type:varchar(20);not null;default:'BROUILLON'"`
	TotalGross    int64     `gorm:"type:bigint;not null;default:0"`
	TotalNet      int64     `gorm:"type:bigint;not null;default:0"`
	EmployeeCount int       `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Payslips []Payslip `gorm:"foreignKey:PayRunID"`
}

func (PayRun) TableName() string {
	return "pay_runs"
}

// Payslip amounts are stored in the smallest currency unit. NetSalary is
// fixed at pay-run generation; only the settlement fields move afterwards.
type Payslip struct {
	ID         int64            `gorm:"primaryKey;autoIncrement"`
	CompanyID  uuid.UUID        `gorm:"type:uuid;not null;index"`
	Number     string           `gorm:"type:varchar(50);not null;uniqueIndex:uq_payslips_number"`
	PayRunID   int64            `gorm:"not null;index"`
	PayRun     *PayRun          `gorm:"foreignKey:PayRunID;references:ID"`
	EmployeeID int64            `gorm:"not null;index"`
	Employee   *PayslipEmployee `gorm:"foreignKey:EmployeeID;references:ID"`

	BaseSalary      int64 `gorm:"type:bigint;not null;default:0"`
	OvertimeAmount  int64 `gorm:"type:bigint;not null;default:0"`
	BonusAmount     int64 `gorm:"type:bigint;not null;default:0"`
	Allowances      int64 `gorm:"type:bigint;not null;default:0"`
	GrossSalary     int64 `gorm:"type:bigint;not null;default:0"`
	TotalDeductions int64 `gorm:"type:bigint;not null;default:0"`
	NetSalary       int64 `gorm:"type:bigint;not null;default:0"`

	AmountPaid      int64  `gorm:"type:bigint;not null;default:0"`
	AmountRemaining int64  `gorm:"type:bigint;not null;default:0"`
	PaymentStatus   string `gorm:"type:varchar(20);not null;default:'EN_ATTENTE';index"`
	IsLocked        bool   `gorm:"not null;default:false"`

	DocumentPath        *string
	DocumentGeneratedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Components []PayslipComponent `gorm:"foreignKey:PayslipID"`
	Payments   []Payment          `gorm:"foreignKey:PayslipID"`
}

func (Payslip) TableName() string {
	return "payslips"
}

func (p Payslip) IsSettled() bool {
	return p.PaymentStatus == PayslipStatusPaid
}

type PayslipComponent struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	PayslipID     int64     `gorm:"not null;index"`
	CompanyID     uuid.UUID `gorm:"type:uuid;not null;index"`
	ComponentType string    `gorm:"type:varchar(20);not null"`
	ComponentName string    `gorm:"type:varchar(120);not null"`
	Quantity      int64     `gorm:"type:bigint;not null;default:1"`
	UnitAmount    int64     `gorm:"type:bigint;not null;default:0"`
	TotalAmount   int64     `gorm:"type:bigint;not null;default:0"`
	CreatedAt     time.Time
}

func (PayslipComponent) TableName() string {
	return "payslip_components"
}

// Payment rows are append-only.
type Payment struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;index"`
	PayslipID   int64     `gorm:"not null;index"`
	Reference   string    `gorm:"type:varchar(80);not null;uniqueIndex:uq_payments_reference"`
	Amount      int64     `gorm:"type:bigint;not null"`
	Method      string    `gorm:"type:varchar(30);not null"`
	PaidAt      time.Time `gorm:"not null"`
	Notes       *string   `gorm:"type:text"`
	ProcessedBy int64     `gorm:"not null"`
	Status      string    `gorm:"type:varchar(20);not null"`
	CreatedAt   time.Time
}

func (Payment) TableName() string {
	return "payments"
}

type PayslipEmployee struct {
	ID           int64     `gorm:"primaryKey"`
	CompanyID    uuid.UUID `gorm:"type:uuid"`
	FullName     string    `gorm:"column:full_name"`
	EmployeeCode string    `gorm:"column:employee_code"`
}

func (PayslipEmployee) TableName() string {
	return "employees"
}

// SettlementUpdate is the optimistic write applied to a payslip row. It only
// lands when the stored amount_paid still equals ExpectedAmountPaid.
type SettlementUpdate struct {
	CompanyID          string
	PayslipID          int64
	ExpectedAmountPaid int64
	AmountPaid         int64
	AmountRemaining    int64
	PaymentStatus      string
	UpdatedAt          time.Time
}

func newSettlementUpdate(companyID string, payslip Payslip, amount int64, now time.Time) SettlementUpdate {
	paid := payslip.AmountPaid + amount
	remaining := payslip.NetSalary - paid
	status := PayslipStatusPending
	if remaining <= 0 {
		status = PayslipStatusPaid
	}
	return SettlementUpdate{
		CompanyID:          companyID,
		PayslipID:          payslip.ID,
		ExpectedAmountPaid: payslip.AmountPaid,
		AmountPaid:         paid,
		AmountRemaining:    remaining,
		PaymentStatus:      status,
		UpdatedAt:          now,
	}
}
