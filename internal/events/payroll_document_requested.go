package events

import "time"

const PayslipDocumentRequestedTopic = "payroll.payslip.document.requested.v1"

const PayslipDocumentRequestedEventType = "payslip_document_requested"

// PayslipDocumentRequestedEvent asks the consumer to (re)build a payslip
// document, typically after generation failed during settlement.
type PayslipDocumentRequestedEvent struct {
	EventType  string    `json:"event_type"`
	RequestID  string    `json:"request_id,omitempty"`
	CompanyID  string    `json:"company_id"`
	PayslipID  int64     `json:"payslip_id"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}
