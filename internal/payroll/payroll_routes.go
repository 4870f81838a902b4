package payroll

import (
	"go-payroll/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService middleware.RBACService,
	rdb ...*redis.Client,
) {
	var redisClient *redis.Client
	if len(rdb) > 0 {
		redisClient = rdb[0]
	}

	// settlement writes get Idempotency-Key protection when redis is available
	writeGuard := func(resource, action string, h gin.HandlerFunc) []gin.HandlerFunc {
		chain := []gin.HandlerFunc{middleware.ExtractUserID()}
		if redisClient != nil {
			chain = append(chain, middleware.Idempotency(redisClient))
		}
		return append(chain, middleware.RBACAuthorize(rbacService, resource, action), h)
	}

	payslips := r.Group("/payslips")
	payslips.Use(middleware.AuthMiddleware())
	{
		payslips.POST("/:id/payments", writeGuard("payment", "create", handler.ProcessPayment)...)
		payslips.GET("/:id/payments", middleware.RBACAuthorize(rbacService, "payment", "read"), handler.GetPayslipPayments)
		payslips.POST("/:id/document", middleware.RBACAuthorize(rbacService, "payslip", "generate"), handler.RegenerateDocument)
	}

	payments := r.Group("/payments")
	payments.Use(middleware.AuthMiddleware())
	{
		payments.POST("/bulk", writeGuard("payment", "create", handler.ProcessBulkPayments)...)
	}

	payruns := r.Group("/payruns")
	payruns.Use(middleware.AuthMiddleware())
	{
		payruns.GET("/:id/summary", middleware.RBACAuthorize(rbacService, "payrun", "read"), handler.GetPayrollSummary)
		payruns.GET("/:id/summary/export", middleware.RBACAuthorize(rbacService, "payrun", "read"), handler.ExportPayrollSummary)
		payruns.POST("/:id/payslips/generate", middleware.RBACAuthorize(rbacService, "payslip", "generate"), handler.GeneratePayslips)
	}
}
