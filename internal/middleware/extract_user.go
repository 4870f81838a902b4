package middleware

import (
	"net/http"

	"go-payroll/internal/shared/contextutil"
	"go-payroll/internal/shared/response"

	"github.com/gin-gonic/gin"
)

// ExtractUserID checks the identity set by AuthMiddleware and propagates it
// into the request context for services and logs.
func ExtractUserID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userID, exists := ctx.Get("user_id")
		if !exists {
			response.Error(ctx, http.StatusUnauthorized, "UNAUTHORIZED", "User is not authenticated", nil)
			ctx.Abort()
			return
		}

		userIDStr, ok := userID.(string)
		if !ok || userIDStr == "" {
			response.Error(ctx, http.StatusUnauthorized, "INVALID_USER_ID", "Invalid user_id format", nil)
			ctx.Abort()
			return
		}

		ctx.Set("user_id_validated", userIDStr)

		reqCtx := contextutil.WithUserID(ctx.Request.Context(), userIDStr)
		reqCtx = contextutil.WithCompanyID(reqCtx, ctx.GetString("company_id"))
		ctx.Request = ctx.Request.WithContext(reqCtx)

		ctx.Next()
	}
}
