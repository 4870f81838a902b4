package payrollerrors

import (
	"net/http"

	"go-payroll/internal/shared/apperror"
)

const (
	CodeAlreadySettled           = "ALREADY_SETTLED"
	CodeAmountExceedsBalance     = "AMOUNT_EXCEEDS_BALANCE"
	CodeDocumentGenerationFailed = "DOCUMENT_GENERATION_FAILED"
	CodeConcurrentSettlement     = "CONCURRENT_SETTLEMENT"
)

var (
	ErrInvalidCompanyID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid company id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid processor id",
		http.StatusBadRequest,
	)
	ErrInvalidPayslipID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid payslip id",
		http.StatusBadRequest,
	)
	ErrInvalidPayRunID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid pay run id",
		http.StatusBadRequest,
	)
	ErrInvalidAmount = apperror.New(
		apperror.CodeInvalidInput,
		"amount must be greater than zero",
		http.StatusBadRequest,
	)
	ErrInvalidPaymentMethod = apperror.New(
		apperror.CodeInvalidInput,
		"invalid payment method",
		http.StatusBadRequest,
	)
	ErrInvalidPaymentDate = apperror.New(
		apperror.CodeInvalidInput,
		"invalid paid_at format, expected RFC3339",
		http.StatusBadRequest,
	)
	ErrEmptyBulkRequest = apperror.New(
		apperror.CodeInvalidInput,
		"payslip_ids must contain at least one id",
		http.StatusBadRequest,
	)
	ErrBulkRequestTooLarge = apperror.New(
		apperror.CodeInvalidInput,
		"payslip_ids exceeds the maximum batch size",
		http.StatusBadRequest,
	)
	ErrBulkAmountRequired = apperror.New(
		apperror.CodeInvalidInput,
		"amount is required unless settle_in_full is set",
		http.StatusBadRequest,
	)
	ErrPayslipNotFound = apperror.New(
		apperror.CodeNotFound,
		"payslip not found",
		http.StatusNotFound,
	)
	ErrPayRunNotFound = apperror.New(
		apperror.CodeNotFound,
		"pay run not found",
		http.StatusNotFound,
	)
	ErrPayslipAlreadySettled = apperror.New(
		CodeAlreadySettled,
		"payslip is already fully paid",
		http.StatusConflict,
	)
	ErrPayslipLocked = apperror.New(
		CodeAlreadySettled,
		"payslip is locked and cannot accept payments",
		http.StatusConflict,
	)
	ErrAmountExceedsBalance = apperror.New(
		CodeAmountExceedsBalance,
		"payment amount exceeds the remaining balance",
		http.StatusUnprocessableEntity,
	)
	ErrDuplicateReference = apperror.New(
		apperror.CodeConflict,
		"payment reference already exists",
		http.StatusConflict,
	)
	ErrConcurrentSettlement = apperror.New(
		CodeConcurrentSettlement,
		"payslip was modified concurrently, retry the payment",
		http.StatusConflict,
	)
	ErrDocumentGenerationFailed = apperror.New(
		CodeDocumentGenerationFailed,
		"payslip document generation failed",
		http.StatusBadGateway,
	)
	ErrDocumentGeneratorUnavailable = apperror.New(
		apperror.CodeServiceUnavailable,
		"payslip document generator is not configured",
		http.StatusServiceUnavailable,
	)
)

type BalanceDetails struct {
	AmountRequested int64 `json:"amount_requested"`
	AmountRemaining int64 `json:"amount_remaining"`
}

// NewAmountExceedsBalance reports the balance the caller may still settle.
func NewAmountExceedsBalance(requested, remaining int64) *apperror.AppError {
	return ErrAmountExceedsBalance.WithDetails(BalanceDetails{
		AmountRequested: requested,
		AmountRemaining: remaining,
	})
}

func NewDocumentGenerationFailed(cause error) *apperror.AppError {
	err := *ErrDocumentGenerationFailed
	err.Err = cause
	return &err
}
