package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"go-payroll/internal/bootstrap"
	"go-payroll/internal/events"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const PaymentSettledAuditAction = "PAYMENT_SETTLED"

// ConsumePaymentSettled writes an audit entry for every settled payment.
func ConsumePaymentSettled(
	ctx context.Context,
	reader MessageReader,
	auditLogger bootstrap.AuditLogger,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.payment_settled")
	log.Info("payment settled consumer started")

	run(ctx, reader, log, func(ctx context.Context, msg kafkago.Message) error {
		return handlePaymentSettled(ctx, msg, auditLogger, log)
	})
}

func handlePaymentSettled(ctx context.Context, msg kafkago.Message, auditLogger bootstrap.AuditLogger, log *zap.Logger) error {
	var event events.PaymentSettledEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error("decode payment_settled event failed", zap.Error(err))
		return errSkip
	}
	if event.EventType != events.PaymentSettledEventType {
		log.Warn("unexpected event type", zap.String("event_type", event.EventType))
		return errSkip
	}

	auditLogger.Log(ctx, bootstrap.AuditLog{
		Action:  PaymentSettledAuditAction,
		Message: fmt.Sprintf("payment %s of %d settled on payslip %d", event.Reference, event.Amount, event.PayslipID),
		Meta: map[string]any{
			"request_id":       event.RequestID,
			"company_id":       event.CompanyID,
			"pay_run_id":       event.PayRunID,
			"payslip_id":       event.PayslipID,
			"payment_id":       event.PaymentID,
			"reference":        event.Reference,
			"amount":           event.Amount,
			"method":           event.Method,
			"amount_paid":      event.AmountPaid,
			"amount_remaining": event.AmountRemaining,
			"payment_status":   event.PaymentStatus,
			"processed_by":     event.ProcessedBy,
			"occurred_at":      event.OccurredAt,
		},
	})
	return nil
}
