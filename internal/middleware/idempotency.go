package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go-payroll/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	idempotencyLockTTL     = 30 * time.Second
	idempotencyResponseTTL = 24 * time.Hour
)

type idempotentResponse struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// Idempotency replays the stored response for a repeated Idempotency-Key and
// rejects a duplicate while the first request is still in flight. Keys are
// scoped to the company, the user and the concrete request path. Handlers
// store the response with StoreIdempotentResponse and release
// idempotency_lock_key when done.
func Idempotency(rdb *redis.Client) gin.HandlerFunc {
	log := zap.L().Named("middleware.idempotency")

	return func(c *gin.Context) {
		idempKey := c.GetHeader("Idempotency-Key")
		userID := c.GetString("user_id_validated")

		if idempKey == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		cacheKey := fmt.Sprintf("idemp:%s:%s:%s:%s", c.GetString("company_id"), userID, c.Request.URL.Path, idempKey)
		lockKey := cacheKey + ":lock"

		val, err := rdb.Get(c.Request.Context(), cacheKey).Result()
		if err == nil {
			var cached idempotentResponse
			if json.Unmarshal([]byte(val), &cached) == nil && cached.Status != 0 {
				log.Debug("idempotent replay", zap.String("key", cacheKey))
				c.Header("Idempotent-Replayed", "true")
				response.Success(c, cached.Status, cached.Data, nil)
				c.Abort()
				return
			}
		}

		isNew, err := rdb.SetNX(c.Request.Context(), lockKey, "locked", idempotencyLockTTL).Result()
		if err != nil {
			log.Warn("idempotency lock unavailable, continuing without it", zap.Error(err))
			c.Next()
			return
		}
		if !isNew {
			response.Error(c, http.StatusConflict, "PROCESSING", "A request with this Idempotency-Key is still being processed", nil)
			c.Abort()
			return
		}

		c.Set("idempotency_cache_key", cacheKey)
		c.Set("idempotency_lock_key", lockKey)

		c.Next()
	}
}

// StoreIdempotentResponse saves a successful response under the key reserved
// by Idempotency. It does nothing when the request carried no key.
func StoreIdempotentResponse(c *gin.Context, rdb *redis.Client, status int, data any) error {
	cacheKey := c.GetString("idempotency_cache_key")
	if rdb == nil || cacheKey == "" {
		return nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(idempotentResponse{Status: status, Data: raw})
	if err != nil {
		return err
	}
	return rdb.Set(c.Request.Context(), cacheKey, payload, idempotencyResponseTTL).Err()
}
