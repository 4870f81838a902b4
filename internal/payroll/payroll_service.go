package payroll

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go-payroll/internal/events"
	"go-payroll/internal/messaging/kafka"
	"go-payroll/internal/observability/metrics"
	payrollerrors "go-payroll/internal/payroll/errors"
	"go-payroll/internal/shared/apperror"
	"go-payroll/internal/shared/contextutil"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	PayrollSummaryKeyPrefix = "payroll:summary:"
	SummaryVersionKeyPrefix = "payroll:summary-version:"
	SummaryCacheTTL         = 5 * time.Minute
	MaxBulkPayments         = 500

	maxSettlementAttempts = 3
)

// GetPayrollSummaryKey names one generation of a cached summary. Writes bump
// the generation instead of deleting, so a load that raced a settlement can
// only fill a generation nobody reads any more.
func GetPayrollSummaryKey(companyID string, payRunID, version int64) string {
	return fmt.Sprintf("%s%s:%d:v%d", PayrollSummaryKeyPrefix, companyID, payRunID, version)
}

func GetSummaryVersionKey(companyID string, payRunID int64) string {
	return fmt.Sprintf("%s%s:%d", SummaryVersionKeyPrefix, companyID, payRunID)
}

// errOptimisticConflict means another settlement moved amount_paid between
// our read and our write. It never leaves the service.
var errOptimisticConflict = errors.New("payslip amount_paid changed during settlement")

// DocumentGenerator renders and stores payslip documents and returns the path
// under which each one is served.
type DocumentGenerator interface {
	GeneratePayslipDocument(ctx context.Context, companyID string, payslipID int64) (string, error)
	GenerateBulkPayslipDocuments(ctx context.Context, companyID string, payslipIDs []int64) ([]GeneratedDocument, error)
}

type GeneratedDocument struct {
	PayslipID int64
	Path      string
	Err       error
}

type Service interface {
	ProcessPayment(ctx context.Context, companyID, actorID, payslipID string, req ProcessPaymentRequest) (SettlementResponse, error)
	ProcessBulkPayments(ctx context.Context, companyID, actorID string, req BulkPaymentRequest) (BulkPaymentResponse, error)
	GetPayrollSummary(ctx context.Context, companyID, payRunID string) (PayrollSummaryResponse, error)
	GeneratePayslipsForPayRun(ctx context.Context, companyID, payRunID string) (PayslipGenerationResponse, error)
	RegeneratePayslipDocument(ctx context.Context, companyID, payslipID string) (PayslipDocumentResponse, error)
	GetPayslipPayments(ctx context.Context, companyID, payslipID string) ([]PaymentResponse, error)
	ExportPayrollSummary(ctx context.Context, companyID, payRunID string) ([]byte, string, error)
}

type Options struct {
	Outbox     kafka.OutboxRepository
	Cache      *redis.Client
	References ReferenceGenerator
	Metrics    *metrics.SettlementMetrics
	Logger     *zap.Logger
	Now        func() time.Time
}

type service struct {
	db        *sql.DB
	repo      Repository
	documents DocumentGenerator
	outbox    kafka.OutboxRepository
	rdb       *redis.Client
	sf        *singleflight.Group
	refs      ReferenceGenerator
	metrics   *metrics.SettlementMetrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(db *sql.DB, repo Repository, documents DocumentGenerator, opts Options) Service {
	l := zap.L().Named("payroll.service")
	if opts.Logger != nil {
		l = opts.Logger.Named("payroll.service")
	}

	refs := opts.References
	if refs == nil {
		refs, _ = NewReferenceGenerator(1)
	}

	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &service{
		db:        db,
		repo:      repo,
		documents: documents,
		outbox:    opts.Outbox,
		rdb:       opts.Cache,
		sf:        &singleflight.Group{},
		refs:      refs,
		metrics:   opts.Metrics,
		logger:    l,
		now:       now,
	}
}

type settlementCommand struct {
	companyID    string
	companyUUID  uuid.UUID
	processorID  int64
	payslipID    int64
	amount       int64
	settleInFull bool
	method       string
	reference    string
	notes        *string
	paidAt       *time.Time
}

func (s *service) ProcessPayment(
	ctx context.Context,
	companyID, actorID, payslipID string,
	req ProcessPaymentRequest,
) (SettlementResponse, error) {
	companyUUID, processorID, err := parseScope(companyID, actorID)
	if err != nil {
		return SettlementResponse{}, err
	}
	id, err := parseID(payslipID, payrollerrors.ErrInvalidPayslipID)
	if err != nil {
		return SettlementResponse{}, err
	}
	if req.Amount <= 0 {
		return SettlementResponse{}, payrollerrors.ErrInvalidAmount
	}
	if !IsValidPaymentMethod(req.Method) {
		return SettlementResponse{}, payrollerrors.ErrInvalidPaymentMethod
	}
	paidAt, err := parsePaidAt(req.PaidAt)
	if err != nil {
		return SettlementResponse{}, err
	}

	return s.settle(ctx, settlementCommand{
		companyID:   companyID,
		companyUUID: companyUUID,
		processorID: processorID,
		payslipID:   id,
		amount:      req.Amount,
		method:      req.Method,
		reference:   trimmed(req.Reference),
		notes:       req.Notes,
		paidAt:      paidAt,
	})
}

func (s *service) ProcessBulkPayments(
	ctx context.Context,
	companyID, actorID string,
	req BulkPaymentRequest,
) (BulkPaymentResponse, error) {
	companyUUID, processorID, err := parseScope(companyID, actorID)
	if err != nil {
		return BulkPaymentResponse{}, err
	}
	if len(req.PayslipIDs) == 0 {
		return BulkPaymentResponse{}, payrollerrors.ErrEmptyBulkRequest
	}
	if len(req.PayslipIDs) > MaxBulkPayments {
		return BulkPaymentResponse{}, payrollerrors.ErrBulkRequestTooLarge
	}
	if !req.SettleInFull && req.Amount <= 0 {
		return BulkPaymentResponse{}, payrollerrors.ErrBulkAmountRequired
	}
	if !IsValidPaymentMethod(req.Method) {
		return BulkPaymentResponse{}, payrollerrors.ErrInvalidPaymentMethod
	}
	paidAt, err := parsePaidAt(req.PaidAt)
	if err != nil {
		return BulkPaymentResponse{}, err
	}

	template := settlementCommand{
		companyID:    companyID,
		companyUUID:  companyUUID,
		processorID:  processorID,
		amount:       req.Amount,
		settleInFull: req.SettleInFull,
		method:       req.Method,
		notes:        req.Notes,
		paidAt:       paidAt,
	}
	if req.SettleInFull {
		template.amount = 0
	}
	baseReference := trimmed(req.Reference)

	log := s.requestLogger(ctx)
	log.Info("bulk settlement started",
		zap.String("company_id", companyID),
		zap.Int("count", len(req.PayslipIDs)),
		zap.Bool("settle_in_full", req.SettleInFull),
	)

	resp := BulkPaymentResponse{Results: make([]BulkPaymentItemResult, 0, len(req.PayslipIDs))}
	for _, payslipID := range req.PayslipIDs {
		item := BulkPaymentItemResult{PayslipID: payslipID}

		var result SettlementResponse
		var err error
		if payslipID <= 0 {
			err = payrollerrors.ErrInvalidPayslipID
		} else {
			cmd := template
			cmd.payslipID = payslipID
			if baseReference != "" {
				cmd.reference = bulkReference(baseReference, payslipID)
			}
			result, err = s.settle(ctx, cmd)
		}

		if err != nil {
			item.Error = toBulkItemError(err)
			resp.Failed++
		} else {
			item.Success = true
			item.Result = &result
			resp.Succeeded++
		}
		s.metrics.IncBulkItem(item.Success)
		resp.Results = append(resp.Results, item)
	}

	log.Info("bulk settlement finished",
		zap.String("company_id", companyID),
		zap.Int("succeeded", resp.Succeeded),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

func (s *service) settle(ctx context.Context, cmd settlementCommand) (SettlementResponse, error) {
	start := s.now()
	log := s.requestLogger(ctx).With(
		zap.String("company_id", cmd.companyID),
		zap.Int64("payslip_id", cmd.payslipID),
	)
	log.Debug("settlement requested",
		zap.Int64("amount", cmd.amount),
		zap.Bool("settle_in_full", cmd.settleInFull),
		zap.String("method", cmd.method),
	)

	var (
		payment *Payment
		payslip *Payslip
		err     error
	)
	for attempt := 1; attempt <= maxSettlementAttempts; attempt++ {
		payment, payslip, err = s.settleOnce(ctx, cmd)
		if !errors.Is(err, errOptimisticConflict) {
			break
		}
		s.metrics.IncRetry()
		log.Warn("settlement lost optimistic check", zap.Int("attempt", attempt))
	}
	if errors.Is(err, errOptimisticConflict) {
		err = payrollerrors.ErrConcurrentSettlement
	}
	if err != nil {
		outcome := settlementOutcome(err)
		s.metrics.ObserveSettlement(outcome, cmd.method, cmd.amount, s.now().Sub(start))
		if outcome == metrics.OutcomeError {
			log.Error("settlement failed", zap.Error(err))
		} else {
			log.Warn("settlement rejected", zap.String("outcome", outcome), zap.Error(err))
		}
		return SettlementResponse{}, err
	}

	resp := SettlementResponse{
		Payment: mapPaymentResponse(*payment),
		Payslip: mapPayslipResponse(*payslip),
	}

	outcome := metrics.OutcomeSettled
	doc, docErr := s.refreshDocument(ctx, cmd.companyID, payslip.ID)
	if docErr != nil {
		outcome = metrics.OutcomeSettledDegraded
		s.metrics.IncDocumentFailure(metrics.DocumentStageSettlement)
		log.Error("payslip document regeneration failed after settlement",
			zap.String("reference", payment.Reference),
			zap.Error(docErr),
		)
		resp.DocumentError = &DocumentErrorResponse{
			Code:    payrollerrors.CodeDocumentGenerationFailed,
			Message: docErr.Error(),
		}
		s.requestDocumentRetry(ctx, cmd.companyID, payslip.ID, docErr)
	} else {
		resp.DocumentPath = &doc.Path
		resp.Payslip.DocumentPath = &doc.Path
		resp.Payslip.DocumentGeneratedAt = &doc.GeneratedAt
	}

	s.invalidateSummary(ctx, cmd.companyID, payslip.PayRunID)
	s.metrics.ObserveSettlement(outcome, payment.Method, payment.Amount, s.now().Sub(start))

	log.Info("payment settled",
		zap.String("reference", payment.Reference),
		zap.Int64("amount", payment.Amount),
		zap.Int64("amount_remaining", payslip.AmountRemaining),
		zap.String("payment_status", payslip.PaymentStatus),
	)
	return resp, nil
}

// settleOnce runs one read-validate-write cycle inside a single transaction.
func (s *service) settleOnce(ctx context.Context, cmd settlementCommand) (*Payment, *Payslip, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	payslip, err := qtx.FindPayslipForUpdate(ctx, cmd.companyID, cmd.payslipID)
	if err != nil {
		return nil, nil, mapRepositoryError(err, payrollerrors.ErrPayslipNotFound)
	}

	amount := cmd.amount
	if cmd.settleInFull {
		amount = payslip.AmountRemaining
	}
	if err := checkSettleable(*payslip, amount); err != nil {
		return nil, nil, err
	}

	now := s.now()
	reference := cmd.reference
	if reference == "" {
		reference = s.refs.Next(payslip.ID, now)
	}
	paidAt := now
	if cmd.paidAt != nil {
		paidAt = *cmd.paidAt
	}

	payment := &Payment{
		CompanyID:   cmd.companyUUID,
		PayslipID:   payslip.ID,
		Reference:   reference,
		Amount:      amount,
		Method:      cmd.method,
		PaidAt:      paidAt,
		Notes:       cmd.notes,
		ProcessedBy: cmd.processorID,
		Status:      PaymentStatusProcessed,
		CreatedAt:   now,
	}
	if err := qtx.CreatePayment(ctx, payment); err != nil {
		return nil, nil, mapRepositoryError(err, payrollerrors.ErrPayslipNotFound)
	}

	update := newSettlementUpdate(cmd.companyID, *payslip, amount, now)
	applied, err := qtx.ApplySettlement(ctx, update)
	if err != nil {
		return nil, nil, err
	}
	if !applied {
		return nil, nil, errOptimisticConflict
	}

	payslip.AmountPaid = update.AmountPaid
	payslip.AmountRemaining = update.AmountRemaining
	payslip.PaymentStatus = update.PaymentStatus
	payslip.UpdatedAt = now

	if s.outbox != nil {
		if err := s.queueSettledEvent(ctx, tx, *payment, *payslip); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return payment, payslip, nil
}

// checkSettleable applies the settlement preconditions in order: settled or
// locked first, then the balance.
func checkSettleable(payslip Payslip, amount int64) error {
	if payslip.IsSettled() {
		return payrollerrors.ErrPayslipAlreadySettled
	}
	if payslip.IsLocked {
		return payrollerrors.ErrPayslipLocked
	}
	if amount <= 0 {
		return payrollerrors.ErrInvalidAmount
	}
	if amount > payslip.AmountRemaining {
		return payrollerrors.NewAmountExceedsBalance(amount, payslip.AmountRemaining)
	}
	return nil
}

func (s *service) queueSettledEvent(ctx context.Context, tx *sql.Tx, payment Payment, payslip Payslip) error {
	rid := contextutil.GetRequestID(ctx)
	event := events.PaymentSettledEvent{
		EventType:       events.PaymentSettledEventType,
		RequestID:       rid,
		CompanyID:       payment.CompanyID.String(),
		PayslipID:       payslip.ID,
		PayRunID:        payslip.PayRunID,
		PaymentID:       payment.ID,
		Reference:       payment.Reference,
		Amount:          payment.Amount,
		Method:          payment.Method,
		AmountPaid:      payslip.AmountPaid,
		AmountRemaining: payslip.AmountRemaining,
		PaymentStatus:   payslip.PaymentStatus,
		ProcessedBy:     payment.ProcessedBy,
		OccurredAt:      payment.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     rid,
		AggregateType: "payslip",
		AggregateID:   strconv.FormatInt(payslip.ID, 10),
		EventType:     event.EventType,
		Topic:         events.PaymentSettledTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

// requestDocumentRetry queues a document rebuild outside any transaction.
// The settlement is already committed, so failures are only logged.
func (s *service) requestDocumentRetry(ctx context.Context, companyID string, payslipID int64, cause error) {
	if s.outbox == nil {
		return
	}
	rid := contextutil.GetRequestID(ctx)
	event := events.PayslipDocumentRequestedEvent{
		EventType:  events.PayslipDocumentRequestedEventType,
		RequestID:  rid,
		CompanyID:  companyID,
		PayslipID:  payslipID,
		Reason:     cause.Error(),
		OccurredAt: s.now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal document request failed", zap.String("request_id", rid), zap.Error(err))
		return
	}

	if err := s.outbox.Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     rid,
		AggregateType: "payslip",
		AggregateID:   strconv.FormatInt(payslipID, 10),
		EventType:     event.EventType,
		Topic:         events.PayslipDocumentRequestedTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	}); err != nil {
		s.logger.Error("queue document request failed",
			zap.String("request_id", rid),
			zap.Int64("payslip_id", payslipID),
			zap.Error(err),
		)
	}
}

func (s *service) refreshDocument(ctx context.Context, companyID string, payslipID int64) (PayslipDocumentResponse, error) {
	if s.documents == nil {
		return PayslipDocumentResponse{}, payrollerrors.ErrDocumentGeneratorUnavailable
	}

	path, err := s.documents.GeneratePayslipDocument(ctx, companyID, payslipID)
	if err != nil {
		return PayslipDocumentResponse{}, err
	}

	generatedAt := s.now()
	if err := s.repo.UpdateDocumentPath(ctx, companyID, payslipID, path, generatedAt); err != nil {
		return PayslipDocumentResponse{}, fmt.Errorf("persist document path: %w", err)
	}

	return PayslipDocumentResponse{
		PayslipID:   payslipID,
		Path:        path,
		GeneratedAt: generatedAt.Format(time.RFC3339),
	}, nil
}

func (s *service) RegeneratePayslipDocument(
	ctx context.Context,
	companyID, payslipID string,
) (PayslipDocumentResponse, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return PayslipDocumentResponse{}, payrollerrors.ErrInvalidCompanyID
	}
	id, err := parseID(payslipID, payrollerrors.ErrInvalidPayslipID)
	if err != nil {
		return PayslipDocumentResponse{}, err
	}

	payslip, err := s.repo.FindPayslipByID(ctx, companyID, id)
	if err != nil {
		return PayslipDocumentResponse{}, mapRepositoryError(err, payrollerrors.ErrPayslipNotFound)
	}

	doc, err := s.refreshDocument(ctx, companyID, id)
	if err != nil {
		s.metrics.IncDocumentFailure(metrics.DocumentStageRegenerate)
		s.requestLogger(ctx).Error("regenerate payslip document failed",
			zap.String("company_id", companyID),
			zap.Int64("payslip_id", id),
			zap.Error(err),
		)
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return PayslipDocumentResponse{}, err
		}
		return PayslipDocumentResponse{}, payrollerrors.NewDocumentGenerationFailed(err)
	}

	s.invalidateSummary(ctx, companyID, payslip.PayRunID)
	return doc, nil
}

func (s *service) GetPayslipPayments(ctx context.Context, companyID, payslipID string) ([]PaymentResponse, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return nil, payrollerrors.ErrInvalidCompanyID
	}
	id, err := parseID(payslipID, payrollerrors.ErrInvalidPayslipID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.FindPayslipByID(ctx, companyID, id); err != nil {
		return nil, mapRepositoryError(err, payrollerrors.ErrPayslipNotFound)
	}

	payments, err := s.repo.ListPaymentsByPayslip(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return mapPaymentList(payments), nil
}

func (s *service) GetPayrollSummary(ctx context.Context, companyID, payRunID string) (PayrollSummaryResponse, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return PayrollSummaryResponse{}, payrollerrors.ErrInvalidCompanyID
	}
	runID, err := parseID(payRunID, payrollerrors.ErrInvalidPayRunID)
	if err != nil {
		return PayrollSummaryResponse{}, err
	}

	cacheKey, cacheable := s.summaryCacheKey(ctx, companyID, runID)
	if cacheable {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var resp PayrollSummaryResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return resp, nil
			}
		}
	}

	sfKey := cacheKey
	if !cacheable {
		sfKey = fmt.Sprintf("%s%s:%d", PayrollSummaryKeyPrefix, companyID, runID)
	}

	// Concurrent misses for the same pay run share one database load. The
	// load must not die with whichever caller happened to start it.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := s.sf.Do(sfKey, func() (interface{}, error) {
		run, err := s.repo.FindPayRunByID(loadCtx, companyID, runID, true)
		if err != nil {
			return nil, mapRepositoryError(err, payrollerrors.ErrPayRunNotFound)
		}

		resp := buildPayrollSummary(*run)

		if cacheable {
			if jsonData, err := json.Marshal(resp); err == nil {
				if err := s.rdb.Set(loadCtx, cacheKey, jsonData, SummaryCacheTTL).Err(); err != nil {
					s.logger.Warn("cache payroll summary failed", zap.String("key", cacheKey), zap.Error(err))
				}
			}
		}
		return resp, nil
	})
	if err != nil {
		return PayrollSummaryResponse{}, err
	}

	return v.(PayrollSummaryResponse), nil
}

func (s *service) GeneratePayslipsForPayRun(
	ctx context.Context,
	companyID, payRunID string,
) (PayslipGenerationResponse, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return PayslipGenerationResponse{}, payrollerrors.ErrInvalidCompanyID
	}
	runID, err := parseID(payRunID, payrollerrors.ErrInvalidPayRunID)
	if err != nil {
		return PayslipGenerationResponse{}, err
	}

	if _, err := s.repo.FindPayRunByID(ctx, companyID, runID, false); err != nil {
		return PayslipGenerationResponse{}, mapRepositoryError(err, payrollerrors.ErrPayRunNotFound)
	}

	ids, err := s.repo.ListPayslipIDsByPayRun(ctx, companyID, runID)
	if err != nil {
		return PayslipGenerationResponse{}, err
	}

	resp := PayslipGenerationResponse{
		PayRunID:       runID,
		TotalBulletins: len(ids),
		Paths:          []string{},
	}
	if len(ids) == 0 {
		return resp, nil
	}
	if s.documents == nil {
		return PayslipGenerationResponse{}, payrollerrors.ErrDocumentGeneratorUnavailable
	}

	log := s.requestLogger(ctx).With(zap.String("company_id", companyID), zap.Int64("pay_run_id", runID))

	docs, err := s.documents.GenerateBulkPayslipDocuments(ctx, companyID, ids)
	if err != nil {
		s.metrics.IncDocumentFailure(metrics.DocumentStageBulk)
		log.Error("bulk payslip generation failed", zap.Error(err))
		return PayslipGenerationResponse{}, payrollerrors.NewDocumentGenerationFailed(err)
	}

	generatedAt := s.now()
	for _, doc := range docs {
		if doc.Err != nil {
			s.metrics.IncDocumentFailure(metrics.DocumentStageBulk)
			resp.Failures = append(resp.Failures, DocumentFailure{PayslipID: doc.PayslipID, Message: doc.Err.Error()})
			continue
		}
		if err := s.repo.UpdateDocumentPath(ctx, companyID, doc.PayslipID, doc.Path, generatedAt); err != nil {
			log.Error("persist payslip document path failed", zap.Int64("payslip_id", doc.PayslipID), zap.Error(err))
			resp.Failures = append(resp.Failures, DocumentFailure{PayslipID: doc.PayslipID, Message: err.Error()})
			continue
		}
		resp.Paths = append(resp.Paths, doc.Path)
	}
	resp.GeneratedPDFs = len(resp.Paths)

	s.invalidateSummary(ctx, companyID, runID)

	log.Info("payslips generated for pay run",
		zap.Int("total", resp.TotalBulletins),
		zap.Int("generated", resp.GeneratedPDFs),
		zap.Int("failed", len(resp.Failures)),
	)
	return resp, nil
}

// summaryCacheKey resolves the current summary generation. The cache is
// bypassed when the generation cannot be read.
func (s *service) summaryCacheKey(ctx context.Context, companyID string, payRunID int64) (string, bool) {
	if s.rdb == nil {
		return "", false
	}
	version, err := s.rdb.Get(ctx, GetSummaryVersionKey(companyID, payRunID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn("read payroll summary version failed", zap.Error(err))
		return "", false
	}
	return GetPayrollSummaryKey(companyID, payRunID, version), true
}

func (s *service) invalidateSummary(ctx context.Context, companyID string, payRunID int64) {
	if s.rdb == nil {
		return
	}
	versionKey := GetSummaryVersionKey(companyID, payRunID)
	if err := s.rdb.Incr(ctx, versionKey).Err(); err != nil {
		s.logger.Error("failed to invalidate payroll summary cache",
			zap.Error(err),
			zap.String("key", versionKey),
		)
	}
}

func (s *service) requestLogger(ctx context.Context) *zap.Logger {
	md := contextutil.ExtractMetadata(ctx)
	return s.logger.With(zap.String("request_id", md.RequestID), zap.String("user_id", md.UserID))
}

func settlementOutcome(err error) string {
	switch {
	case errors.Is(err, payrollerrors.ErrPayslipNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, payrollerrors.ErrPayslipAlreadySettled), errors.Is(err, payrollerrors.ErrPayslipLocked):
		return metrics.OutcomeAlreadySettled
	case errors.Is(err, payrollerrors.ErrAmountExceedsBalance):
		return metrics.OutcomeExceedsBalance
	case errors.Is(err, payrollerrors.ErrDuplicateReference):
		return metrics.OutcomeDuplicateReference
	case errors.Is(err, payrollerrors.ErrConcurrentSettlement):
		return metrics.OutcomeConflict
	case errors.Is(err, payrollerrors.ErrInvalidAmount):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}

func toBulkItemError(err error) *BulkItemError {
	httpErr := apperror.ToHTTP(err)
	return &BulkItemError{
		Code:    httpErr.Code,
		Message: httpErr.Message,
		Details: httpErr.Details,
	}
}

func parseScope(companyID, actorID string) (uuid.UUID, int64, error) {
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return uuid.Nil, 0, payrollerrors.ErrInvalidCompanyID
	}
	processorID, err := parseID(actorID, payrollerrors.ErrInvalidActorID)
	if err != nil {
		return uuid.Nil, 0, err
	}
	return companyUUID, processorID, nil
}

func parseID(raw string, invalid error) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid
	}
	return id, nil
}

func parsePaidAt(v *string) (*time.Time, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*v))
	if err != nil {
		return nil, payrollerrors.ErrInvalidPaymentDate
	}
	t = t.UTC()
	return &t, nil
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func mapPaymentResponse(p Payment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID,
		PayslipID:   p.PayslipID,
		Reference:   p.Reference,
		Amount:      p.Amount,
		Method:      p.Method,
		PaidAt:      p.PaidAt.Format(time.RFC3339),
		Notes:       p.Notes,
		ProcessedBy: p.ProcessedBy,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}

func mapPaymentList(payments []Payment) []PaymentResponse {
	resp := make([]PaymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = mapPaymentResponse(p)
	}
	return resp
}

func mapPayslipResponse(p Payslip) PayslipResponse {
	resp := PayslipResponse{
		ID:              p.ID,
		Number:          p.Number,
		PayRunID:        p.PayRunID,
		EmployeeID:      p.EmployeeID,
		NetSalary:       p.NetSalary,
		AmountPaid:      p.AmountPaid,
		AmountRemaining: p.AmountRemaining,
		PaymentStatus:   p.PaymentStatus,
		IsLocked:        p.IsLocked,
		DocumentPath:    p.DocumentPath,
	}
	if p.DocumentGeneratedAt != nil {
		v := p.DocumentGeneratedAt.Format(time.RFC3339)
		resp.DocumentGeneratedAt = &v
	}
	return resp
}

func buildPayrollSummary(run PayRun) PayrollSummaryResponse {
	resp := PayrollSummaryResponse{
		PayRunID:      run.ID,
		Reference:     run.Reference,
		Status:        run.Status,
		PeriodStart:   run.PeriodStart.Format("2006-01-02"),
		PeriodEnd:     run.PeriodEnd.Format("2006-01-02"),
		TotalGross:    run.TotalGross,
		TotalNet:      run.TotalNet,
		EmployeeCount: run.EmployeeCount,
		Payslips:      make([]PayslipSummaryResponse, 0, len(run.Payslips)),
	}

	for _, p := range run.Payslips {
		row := PayslipSummaryResponse{
			ID:              p.ID,
			Number:          p.Number,
			EmployeeID:      p.EmployeeID,
			GrossSalary:     p.GrossSalary,
			NetSalary:       p.NetSalary,
			AmountPaid:      p.AmountPaid,
			AmountRemaining: p.AmountRemaining,
			PaymentStatus:   p.PaymentStatus,
			DocumentPath:    p.DocumentPath,
			Payments:        mapPaymentList(p.Payments),
		}
		if p.Employee != nil {
			row.EmployeeName = p.Employee.FullName
			row.EmployeeCode = p.Employee.EmployeeCode
		}

		resp.TotalPaid += p.AmountPaid
		resp.TotalRemaining += p.AmountRemaining
		if p.IsSettled() {
			resp.PaidPayslips++
		} else {
			resp.PendingPayslips++
		}
		resp.Payslips = append(resp.Payslips, row)
	}

	return resp
}
