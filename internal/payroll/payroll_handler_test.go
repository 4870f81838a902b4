package payroll_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-payroll/internal/payroll"
	payrollerrors "go-payroll/internal/payroll/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

type apiEnvelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

func mustDecodeEnvelope(t *testing.T, body []byte) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	err := json.Unmarshal(body, &env)
	assert.NoError(t, err)
	return env
}

type fakePayrollService struct {
	processFn    func(ctx context.Context, companyID, actorID, payslipID string, req payroll.ProcessPaymentRequest) (payroll.SettlementResponse, error)
	bulkFn       func(ctx context.Context, companyID, actorID string, req payroll.BulkPaymentRequest) (payroll.BulkPaymentResponse, error)
	summaryFn    func(ctx context.Context, companyID, payRunID string) (payroll.PayrollSummaryResponse, error)
	generateFn   func(ctx context.Context, companyID, payRunID string) (payroll.PayslipGenerationResponse, error)
	regenerateFn func(ctx context.Context, companyID, payslipID string) (payroll.PayslipDocumentResponse, error)
	paymentsFn   func(ctx context.Context, companyID, payslipID string) ([]payroll.PaymentResponse, error)
	exportFn     func(ctx context.Context, companyID, payRunID string) ([]byte, string, error)
}

func (f *fakePayrollService) ProcessPayment(ctx context.Context, companyID, actorID, payslipID string, req payroll.ProcessPaymentRequest) (payroll.SettlementResponse, error) {
	return f.processFn(ctx, companyID, actorID, payslipID, req)
}

func (f *fakePayrollService) ProcessBulkPayments(ctx context.Context, companyID, actorID string, req payroll.BulkPaymentRequest) (payroll.BulkPaymentResponse, error) {
	return f.bulkFn(ctx, companyID, actorID, req)
}

func (f *fakePayrollService) GetPayrollSummary(ctx context.Context, companyID, payRunID string) (payroll.PayrollSummaryResponse, error) {
	return f.summaryFn(ctx, companyID, payRunID)
}

func (f *fakePayrollService) GeneratePayslipsForPayRun(ctx context.Context, companyID, payRunID string) (payroll.PayslipGenerationResponse, error) {
	return f.generateFn(ctx, companyID, payRunID)
}

func (f *fakePayrollService) RegeneratePayslipDocument(ctx context.Context, companyID, payslipID string) (payroll.PayslipDocumentResponse, error) {
	return f.regenerateFn(ctx, companyID, payslipID)
}

func (f *fakePayrollService) GetPayslipPayments(ctx context.Context, companyID, payslipID string) ([]payroll.PaymentResponse, error) {
	return f.paymentsFn(ctx, companyID, payslipID)
}

func (f *fakePayrollService) ExportPayrollSummary(ctx context.Context, companyID, payRunID string) ([]byte, string, error) {
	return f.exportFn(ctx, companyID, payRunID)
}

func newJSONContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func TestPayrollHandler_ProcessPayment(t *testing.T) {
	companyID := uuid.New().String()

	svc := &fakePayrollService{
		processFn: func(ctx context.Context, cid, aid, pid string, req payroll.ProcessPaymentRequest) (payroll.SettlementResponse, error) {
			assert.Equal(t, companyID, cid)
			assert.Equal(t, "42", aid)
			assert.Equal(t, "7", pid)
			assert.Equal(t, int64(500000), req.Amount)
			assert.Equal(t, payroll.PaymentMethodBankTransfer, req.Method)
			return payroll.SettlementResponse{
				Payment: payroll.PaymentResponse{ID: 1, PayslipID: 7, Amount: req.Amount, Status: payroll.PaymentStatusProcessed},
				Payslip: payroll.PayslipResponse{ID: 7, AmountPaid: 500000, AmountRemaining: 220000, PaymentStatus: payroll.PayslipStatusPending},
			}, nil
		},
	}

	h := payroll.NewHandler(svc)
	c, w := newJSONContext(http.MethodPost, "/payslips/7/payments", `{"amount":500000,"method":"VIREMENT_BANCAIRE"}`)
	c.Params = []gin.Param{{Key: "id", Value: "7"}}
	c.Set("company_id", companyID)
	c.Set("user_id_validated", "42")

	h.ProcessPayment(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	env := mustDecodeEnvelope(t, w.Body.Bytes())
	assert.True(t, env.Ok)

	var resp payroll.SettlementResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, int64(220000), resp.Payslip.AmountRemaining)
	assert.Equal(t, payroll.PayslipStatusPending, resp.Payslip.PaymentStatus)
}

func TestPayrollHandler_ProcessPayment_BindError(t *testing.T) {
	called := false
	svc := &fakePayrollService{
		processFn: func(context.Context, string, string, string, payroll.ProcessPaymentRequest) (payroll.SettlementResponse, error) {
			called = true
			return payroll.SettlementResponse{}, nil
		},
	}

	h := payroll.NewHandler(svc)
	c, w := newJSONContext(http.MethodPost, "/payslips/7/payments", `{"amount":-5,"method":"VIREMENT_BANCAIRE"}`)
	c.Params = []gin.Param{{Key: "id", Value: "7"}}
	c.Set("company_id", uuid.New().String())
	c.Set("user_id", "42")

	h.ProcessPayment(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := mustDecodeEnvelope(t, w.Body.Bytes())
	assert.False(t, env.Ok)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.False(t, called)
}

func TestPayrollHandler_ProcessPayment_ExceedsBalance(t *testing.T) {
	svc := &fakePayrollService{
		processFn: func(context.Context, string, string, string, payroll.ProcessPaymentRequest) (payroll.SettlementResponse, error) {
			return payroll.SettlementResponse{}, payrollerrors.NewAmountExceedsBalance(300000, 220000)
		},
	}

	h := payroll.NewHandler(svc)
	c, w := newJSONContext(http.MethodPost, "/payslips/7/payments", `{"amount":300000,"method":"ESPECES"}`)
	c.Params = []gin.Param{{Key: "id", Value: "7"}}
	c.Set("company_id", uuid.New().String())
	c.Set("user_id", "42")

	h.ProcessPayment(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env := mustDecodeEnvelope(t, w.Body.Bytes())
	require.NotNil(t, env.Error)
	assert.Equal(t, payrollerrors.CodeAmountExceedsBalance, env.Error.Code)

	var details payrollerrors.BalanceDetails
	require.NoError(t, json.Unmarshal(env.Error.Details, &details))
	assert.Equal(t, int64(220000), details.AmountRemaining)
	assert.Equal(t, int64(300000), details.AmountRequested)
}

func TestPayrollHandler_ProcessPayment_AlreadySettled(t *testing.T) {
	svc := &fakePayrollService{
		processFn: func(context.Context, string, string, string, payroll.ProcessPaymentRequest) (payroll.SettlementResponse, error) {
			return payroll.SettlementResponse{}, payrollerrors.ErrPayslipAlreadySettled
		},
	}

	h := payroll.NewHandler(svc)
	c, w := newJSONContext(http.MethodPost, "/payslips/7/payments", `{"amount":1,"method":"ESPECES"}`)
	c.Params = []gin.Param{{Key: "id", Value: "7"}}
	c.Set("company_id", uuid.New().String())
	c.Set("user_id", "42")

	h.ProcessPayment(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	env := mustDecodeEnvelope(t, w.Body.Bytes())
	assert.Equal(t, payrollerrors.CodeAlreadySettled, env.Error.Code)
}

func TestPayrollHandler_ProcessBulkPayments(t *testing.T) {
	companyID := uuid.New().String()

	svc := &fakePayrollService{
		bulkFn: func(ctx context.Context, cid, aid string, req payroll.BulkPaymentRequest) (payroll.BulkPaymentResponse, error) {
			assert.Equal(t, []int64{1, 2, 3}, req.PayslipIDs)
			assert.True(t, req.SettleInFull)
			return payroll.BulkPaymentResponse{
				Results: []payroll.BulkPaymentItemResult{
					{PayslipID: 1, Success: true},
					{PayslipID: 2, Error: &payroll.BulkItemError{Code: payrollerrors.CodeAlreadySettled}},
					{PayslipID: 3, Success: true},
				},
				Succeeded: 2,
				Failed:    1,
			}, nil
		},
	}

	h := payroll.NewHandler(svc)
	c, w := newJSONContext(http.MethodPost, "/payments/bulk", `{"payslip_ids":[1,2,3],"settle_in_full":true,"method":"MOBILE_MONEY"}`)
	c.Set("company_id", companyID)
	c.Set("user_id", "42")

	h.ProcessBulkPayments(c)

	assert.Equal(t, http.StatusOK, w.Code)
	env := mustDecodeEnvelope(t, w.Body.Bytes())
	var resp payroll.BulkPaymentResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Len(t, resp.Results, 3)
	assert.Equal(t, int64(2), resp.Results[1].PayslipID)
	assert.False(t, resp.Results[1].Success)
	assert.Equal(t, 1, resp.Failed)
}

func TestPayrollHandler_ProcessBulkPayments_EmptyIDs(t *testing.T) {
	h := payroll.NewHandler(&fakePayrollService{})
	c, w := newJSONContext(http.MethodPost, "/payments/bulk", `{"payslip_ids":[],"amount":1000,"method":"ESPECES"}`)
	c.Set("company_id", uuid.New().String())
	c.Set("user_id", "42")

	h.ProcessBulkPayments(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPayrollHandler_GetPayrollSummary(t *testing.T) {
	companyID := uuid.New().String()

	t.Run("Found", func(t *testing.T) {
		svc := &fakePayrollService{
			summaryFn: func(ctx context.Context, cid, runID string) (payroll.PayrollSummaryResponse, error) {
				assert.Equal(t, companyID, cid)
				assert.Equal(t, "3", runID)
				return payroll.PayrollSummaryResponse{PayRunID: 3, Reference: "PAIE-2026-09", TotalPaid: 600000}, nil
			},
		}

		h := payroll.NewHandler(svc)
		c, w := newJSONContext(http.MethodGet, "/payruns/3/summary", "")
		c.Params = []gin.Param{{Key: "id", Value: "3"}}
		c.Set("company_id", companyID)

		h.GetPayrollSummary(c)

		assert.Equal(t, http.StatusOK, w.Code)
		env := mustDecodeEnvelope(t, w.Body.Bytes())
		var resp payroll.PayrollSummaryResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Equal(t, int64(600000), resp.TotalPaid)
	})

	t.Run("NotFound", func(t *testing.T) {
		svc := &fakePayrollService{
			summaryFn: func(context.Context, string, string) (payroll.PayrollSummaryResponse, error) {
				return payroll.PayrollSummaryResponse{}, payrollerrors.ErrPayRunNotFound
			},
		}

		h := payroll.NewHandler(svc)
		c, w := newJSONContext(http.MethodGet, "/payruns/3/summary", "")
		c.Params = []gin.Param{{Key: "id", Value: "3"}}
		c.Set("company_id", companyID)

		h.GetPayrollSummary(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		env := mustDecodeEnvelope(t, w.Body.Bytes())
		assert.Equal(t, "NOT_FOUND", env.Error.Code)
	})
}

func TestPayrollHandler_ExportPayrollSummary(t *testing.T) {
	svc := &fakePayrollService{
		exportFn: func(context.Context, string, string) ([]byte, string, error) {
			return []byte("PK\x03\x04"), "synthese_paie_PAIE-2026-09.xlsx", nil
		},
	}

	h := payroll.NewHandler(svc)
	c, w := newJSONContext(http.MethodGet, "/payruns/3/summary/export", "")
	c.Params = []gin.Param{{Key: "id", Value: "3"}}
	c.Set("company_id", uuid.New().String())

	h.ExportPayrollSummary(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="synthese_paie_PAIE-2026-09.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "PK\x03\x04", w.Body.String())
}

func TestPayrollHandler_GeneratePayslips(t *testing.T) {
	svc := &fakePayrollService{
		generateFn: func(ctx context.Context, cid, runID string) (payroll.PayslipGenerationResponse, error) {
			return payroll.PayslipGenerationResponse{
				PayRunID:       3,
				TotalBulletins: 2,
				GeneratedPDFs:  2,
				Paths:          []string{"/files/payslips/a.pdf", "/files/payslips/b.pdf"},
			}, nil
		},
	}

	h := payroll.NewHandler(svc)
	c, w := newJSONContext(http.MethodPost, "/payruns/3/payslips/generate", "")
	c.Params = []gin.Param{{Key: "id", Value: "3"}}
	c.Set("company_id", uuid.New().String())

	h.GeneratePayslips(c)

	assert.Equal(t, http.StatusOK, w.Code)
	env := mustDecodeEnvelope(t, w.Body.Bytes())
	var resp payroll.PayslipGenerationResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 2, resp.GeneratedPDFs)
	assert.Len(t, resp.Paths, 2)
}

func TestPayrollHandler_RegenerateDocument_Failure(t *testing.T) {
	svc := &fakePayrollService{
		regenerateFn: func(context.Context, string, string) (payroll.PayslipDocumentResponse, error) {
			return payroll.PayslipDocumentResponse{}, payrollerrors.NewDocumentGenerationFailed(errors.New("disk full"))
		},
	}

	h := payroll.NewHandler(svc)
	c, w := newJSONContext(http.MethodPost, "/payslips/7/document", "")
	c.Params = []gin.Param{{Key: "id", Value: "7"}}
	c.Set("company_id", uuid.New().String())

	h.RegenerateDocument(c)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	env := mustDecodeEnvelope(t, w.Body.Bytes())
	assert.Equal(t, payrollerrors.CodeDocumentGenerationFailed, env.Error.Code)
	assert.NotContains(t, w.Body.String(), "disk full")
}

func TestPayrollHandler_InternalError(t *testing.T) {
	svc := &fakePayrollService{
		paymentsFn: func(context.Context, string, string) ([]payroll.PaymentResponse, error) {
			return nil, errors.New("boom")
		},
	}

	h := payroll.NewHandler(svc)
	c, w := newJSONContext(http.MethodGet, "/payslips/7/payments", "")
	c.Params = []gin.Param{{Key: "id", Value: "7"}}
	c.Set("company_id", uuid.New().String())

	h.GetPayslipPayments(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	env := mustDecodeEnvelope(t, w.Body.Bytes())
	assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
}
