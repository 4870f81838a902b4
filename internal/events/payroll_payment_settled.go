package events

import "time"

const PaymentSettledTopic = "payroll.payment.settled.v1"

const PaymentSettledEventType = "payment_settled"

type PaymentSettledEvent struct {
	EventType       string    `json:"event_type"`
	RequestID       string    `json:"request_id,omitempty"`
	CompanyID       string    `json:"company_id"`
	PayslipID       int64     `json:"payslip_id"`
	PayRunID        int64     `json:"pay_run_id"`
	PaymentID       int64     `json:"payment_id"`
	Reference       string    `json:"reference"`
	Amount          int64     `json:"amount"`
	Method          string    `json:"method"`
	AmountPaid      int64     `json:"amount_paid"`
	AmountRemaining int64     `json:"amount_remaining"`
	PaymentStatus   string    `json:"payment_status"`
	ProcessedBy     int64     `json:"processed_by"`
	OccurredAt      time.Time `json:"occurred_at"`
}
