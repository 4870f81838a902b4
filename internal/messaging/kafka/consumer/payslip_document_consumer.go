package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"go-payroll/internal/events"
	"go-payroll/internal/payroll"
	payrollerrors "go-payroll/internal/payroll/errors"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// DocumentRegenerator is the slice of payroll.Service this consumer needs.
type DocumentRegenerator interface {
	RegeneratePayslipDocument(ctx context.Context, companyID, payslipID string) (payroll.PayslipDocumentResponse, error)
}

// ConsumePayslipDocumentRequested rebuilds payslip documents whose
// generation failed during settlement.
func ConsumePayslipDocumentRequested(
	ctx context.Context,
	reader MessageReader,
	documents DocumentRegenerator,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.payslip_document")
	log.Info("payslip document consumer started")

	run(ctx, reader, log, func(ctx context.Context, msg kafkago.Message) error {
		return handlePayslipDocumentRequested(ctx, msg, documents, log)
	})
}

func handlePayslipDocumentRequested(ctx context.Context, msg kafkago.Message, documents DocumentRegenerator, log *zap.Logger) error {
	var event events.PayslipDocumentRequestedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error("decode payslip_document_requested event failed", zap.Error(err))
		return errSkip
	}

	payslipID := strconv.FormatInt(event.PayslipID, 10)
	doc, err := documents.RegeneratePayslipDocument(ctx, event.CompanyID, payslipID)
	if err != nil {
		if errors.Is(err, payrollerrors.ErrPayslipNotFound) || errors.Is(err, payrollerrors.ErrInvalidPayslipID) ||
			errors.Is(err, payrollerrors.ErrInvalidCompanyID) {
			log.Warn("payslip document request dropped",
				zap.String("payslip_id", payslipID),
				zap.String("company_id", event.CompanyID),
				zap.Error(err),
			)
			return errSkip
		}
		return err
	}

	log.Info("payslip document regenerated",
		zap.String("payslip_id", payslipID),
		zap.String("company_id", event.CompanyID),
		zap.String("path", doc.Path),
	)
	return nil
}
