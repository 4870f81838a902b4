package payroll

import (
	"errors"
	"net/http"

	"go-payroll/internal/middleware"
	"go-payroll/internal/shared/apperror"
	"go-payroll/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	service Service
	rdb     *redis.Client
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func NewHandlerWithRedis(service Service, rdb *redis.Client) *Handler {
	return &Handler{service: service, rdb: rdb}
}

func getActorID(c *gin.Context) string {
	actorID := c.GetString("user_id_validated")
	if actorID == "" {
		actorID = c.GetString("user_id")
	}
	return actorID
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) writeBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		mapped := apperror.ToHTTP(apperror.MapValidationError(verrs))
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", mapped.Message, err.Error())
		return
	}
	response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", err.Error())
}

// releaseLock drops the in-flight lock taken by middleware.Idempotency.
func (h *Handler) releaseLock(c *gin.Context) {
	if h.rdb == nil {
		return
	}
	lockKey, _ := c.Get("idempotency_lock_key")
	if lk, ok := lockKey.(string); ok && lk != "" {
		h.rdb.Del(c.Request.Context(), lk)
	}
}

// rememberResponse stores a successful response so replays of the same
// Idempotency-Key get it back without settling twice.
func (h *Handler) rememberResponse(c *gin.Context, status int, resp any) {
	if err := middleware.StoreIdempotentResponse(c, h.rdb, status, resp); err != nil {
		zap.L().Named("payroll.handler").Warn("store idempotent response failed",
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
	}
}

func (h *Handler) ProcessPayment(c *gin.Context) {
	defer h.releaseLock(c)

	companyID := c.GetString("company_id")
	actorID := getActorID(c)

	var req ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	resp, err := h.service.ProcessPayment(c.Request.Context(), companyID, actorID, c.Param("id"), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	h.rememberResponse(c, http.StatusCreated, resp)
	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) ProcessBulkPayments(c *gin.Context) {
	defer h.releaseLock(c)

	companyID := c.GetString("company_id")
	actorID := getActorID(c)

	var req BulkPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	resp, err := h.service.ProcessBulkPayments(c.Request.Context(), companyID, actorID, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	h.rememberResponse(c, http.StatusOK, resp)
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetPayslipPayments(c *gin.Context) {
	ctx := c.Request.Context()
	companyID := c.GetString("company_id")

	resp, err := h.service.GetPayslipPayments(ctx, companyID, c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) RegenerateDocument(c *gin.Context) {
	ctx := c.Request.Context()
	companyID := c.GetString("company_id")

	resp, err := h.service.RegeneratePayslipDocument(ctx, companyID, c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetPayrollSummary(c *gin.Context) {
	ctx := c.Request.Context()
	companyID := c.GetString("company_id")

	resp, err := h.service.GetPayrollSummary(ctx, companyID, c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) ExportPayrollSummary(c *gin.Context) {
	ctx := c.Request.Context()
	companyID := c.GetString("company_id")

	data, filename, err := h.service.ExportPayrollSummary(ctx, companyID, c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *Handler) GeneratePayslips(c *gin.Context) {
	ctx := c.Request.Context()
	companyID := c.GetString("company_id")

	resp, err := h.service.GeneratePayslipsForPayRun(ctx, companyID, c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}
