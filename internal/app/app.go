package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"go-payroll/internal/config"
	"go-payroll/internal/middleware"
	"go-payroll/internal/migration"
	"go-payroll/internal/observability/metrics"
	"go-payroll/internal/shared/connection"
	"go-payroll/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func BuildApp(router *gin.Engine, cfg config.Config) error {
	logger := zap.L().Named("app")

	// 1. Setup Infrastructure
	gormDB, err := connection.ConnectGORMWithRetry(cfg, cfg.DBMaxRetries)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	logger.Info("database connection established", zap.String("db_type", cfg.DBType))

	if err := prepareSchema(cfg, sqlDB, gormDB); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = connection.ConnectRedisWithRetry(cfg.RedisAddr, cfg.DBMaxRetries)
		if err != nil {
			return err
		}
		logger.Info("redis connection established")
	} else {
		logger.Warn("REDIS_ADDR not set, summary cache and idempotency disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	settlementMetrics := metrics.NewSettlementMetrics(registry)

	// 2. Global middleware
	router.Use(
		middleware.RequestID(),
		middleware.ContextLogger(zap.L()),
	)

	router.GET("/healthz", healthz(sqlDB, redisClient))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.Static(cfg.PayslipPublicBaseURL, cfg.PayslipStorageDir)

	// 3. Register Modules & Routes
	api := router.Group("/api/v1")
	api.Use(middleware.RateLimitByIP(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst))

	return registerModules(api, cfg, sqlDB, gormDB, redisClient, settlementMetrics)
}

// prepareSchema runs the embedded migrations on postgres and gorm
// AutoMigrate on sqlite.
func prepareSchema(cfg config.Config, sqlDB *sql.DB, gormDB *gorm.DB) error {
	if !cfg.DBAutoMigrate {
		return nil
	}
	if cfg.DBType == config.DBTypeSQLite {
		return migration.AutoMigrate(gormDB)
	}
	return migration.RunMigrations(sqlDB)
}

func healthz(db *sql.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{"database": "ok"}
		healthy := true
		if err := db.PingContext(ctx); err != nil {
			checks["database"] = err.Error()
			healthy = false
		}
		if rdb != nil {
			checks["redis"] = "ok"
			if err := rdb.Ping(ctx).Err(); err != nil {
				checks["redis"] = err.Error()
				healthy = false
			}
		}

		if !healthy {
			response.Error(c, http.StatusServiceUnavailable, "UNHEALTHY", "dependency check failed", checks)
			return
		}
		response.Success(c, http.StatusOK, checks, nil)
	}
}
