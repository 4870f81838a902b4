package payroll

type ProcessPaymentRequest struct {
	Amount    int64   `json:"amount" binding:"required,gt=0"`
	Method    string  `json:"method" binding:"required,oneof=ESPECES CHEQUE VIREMENT_BANCAIRE MOBILE_MONEY AUTRE"`
	Reference *string `json:"reference" binding:"omitempty,max=64"`
	Notes     *string `json:"notes" binding:"omitempty,max=500"`
	PaidAt    *string `json:"paid_at"`
}

// BulkPaymentRequest applies one payment template to every payslip, in order.
// With SettleInFull each payslip is paid its own remaining balance and Amount
// is ignored.
type BulkPaymentRequest struct {
	PayslipIDs   []int64 `json:"payslip_ids" binding:"required,min=1,dive,gt=0"`
	Amount       int64   `json:"amount" binding:"omitempty,gt=0"`
	SettleInFull bool    `json:"settle_in_full"`
	Method       string  `json:"method" binding:"required,oneof=ESPECES CHEQUE VIREMENT_BANCAIRE MOBILE_MONEY AUTRE"`
	Reference    *string `json:"reference" binding:"omitempty,max=48"`
	Notes        *string `json:"notes" binding:"omitempty,max=500"`
	PaidAt       *string `json:"paid_at"`
}

type PaymentResponse struct {
	ID          int64   `json:"id"`
	PayslipID   int64   `json:"payslip_id"`
	Reference   string  `json:"reference"`
	Amount      int64   `json:"amount"`
	Method      string  `json:"method"`
	PaidAt      string  `json:"paid_at"`
	Notes       *string `json:"notes,omitempty"`
	ProcessedBy int64   `json:"processed_by"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
}

type PayslipResponse struct {
	ID                  int64   `json:"id"`
	Number              string  `json:"number"`
	PayRunID            int64   `json:"pay_run_id"`
	EmployeeID          int64   `json:"employee_id"`
	NetSalary           int64   `json:"net_salary"`
	AmountPaid          int64   `json:"amount_paid"`
	AmountRemaining     int64   `json:"amount_remaining"`
	PaymentStatus       string  `json:"payment_status"`
	IsLocked            bool    `json:"is_locked"`
	DocumentPath        *string `json:"document_path,omitempty"`
	DocumentGeneratedAt *string `json:"document_generated_at,omitempty"`
}

type DocumentErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SettlementResponse is returned for every committed settlement. A non-nil
// DocumentError means the money side succeeded but the payslip document
// could not be refreshed; a retry has been queued.
type SettlementResponse struct {
	Payment       PaymentResponse        `json:"payment"`
	Payslip       PayslipResponse        `json:"payslip"`
	DocumentPath  *string                `json:"document_path,omitempty"`
	DocumentError *DocumentErrorResponse `json:"document_error,omitempty"`
}

type BulkItemError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type BulkPaymentItemResult struct {
	PayslipID int64               `json:"payslip_id"`
	Success   bool                `json:"success"`
	Result    *SettlementResponse `json:"result,omitempty"`
	Error     *BulkItemError      `json:"error,omitempty"`
}

type BulkPaymentResponse struct {
	Results   []BulkPaymentItemResult `json:"results"`
	Succeeded int                     `json:"succeeded"`
	Failed    int                     `json:"failed"`
}

type PayslipSummaryResponse struct {
	ID              int64             `json:"id"`
	Number          string            `json:"number"`
	EmployeeID      int64             `json:"employee_id"`
	EmployeeName    string            `json:"employee_name"`
	EmployeeCode    string            `json:"employee_code"`
	GrossSalary     int64             `json:"gross_salary"`
	NetSalary       int64             `json:"net_salary"`
	AmountPaid      int64             `json:"amount_paid"`
	AmountRemaining int64             `json:"amount_remaining"`
	PaymentStatus   string            `json:"payment_status"`
	DocumentPath    *string           `json:"document_path,omitempty"`
	Payments        []PaymentResponse `json:"payments"`
}

type PayrollSummaryResponse struct {
	PayRunID        int64                    `json:"pay_run_id"`
	Reference       string                   `json:"reference"`
	Status          string                   `json:"status"`
	PeriodStart     string                   `json:"period_start"`
	PeriodEnd       string                   `json:"period_end"`
	TotalGross      int64                    `json:"total_gross"`
	TotalNet        int64                    `json:"total_net"`
	EmployeeCount   int                      `json:"employee_count"`
	TotalPaid       int64                    `json:"total_paid"`
	TotalRemaining  int64                    `json:"total_remaining"`
	PaidPayslips    int                      `json:"paid_payslips"`
	PendingPayslips int                      `json:"pending_payslips"`
	Payslips        []PayslipSummaryResponse `json:"payslips"`
}

type DocumentFailure struct {
	PayslipID int64  `json:"payslip_id"`
	Message   string `json:"message"`
}

type PayslipGenerationResponse struct {
	PayRunID       int64             `json:"pay_run_id"`
	TotalBulletins int               `json:"total_bulletins"`
	GeneratedPDFs  int               `json:"generated_pdfs"`
	Paths          []string          `json:"paths"`
	Failures       []DocumentFailure `json:"failures,omitempty"`
}

type PayslipDocumentResponse struct {
	PayslipID   int64  `json:"payslip_id"`
	Path        string `json:"path"`
	GeneratedAt string `json:"generated_at"`
}
