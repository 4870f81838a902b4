package app

import (
	"database/sql"

	"go-payroll/internal/config"
	"go-payroll/internal/messaging/kafka"
	"go-payroll/internal/observability/metrics"
	"go-payroll/internal/payroll"
	"go-payroll/internal/payslipdoc"
	"go-payroll/internal/rbac"
	"go-payroll/internal/rbac/infra"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// newPayrollService wires the settlement engine with its collaborators. The
// outbox is only available on postgres.
func newPayrollService(
	cfg config.Config,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	settlementMetrics *metrics.SettlementMetrics,
) (payroll.Service, error) {
	payrollRepo := payroll.NewRepository(gormDB)

	var outboxRepo kafka.OutboxRepository
	if cfg.DBType == config.DBTypePostgres {
		outboxRepo = kafka.NewOutboxRepository(db)
	}

	storage, err := payslipdoc.NewLocalStorage(cfg.PayslipStorageDir, cfg.PayslipPublicBaseURL)
	if err != nil {
		return nil, err
	}
	documents := payslipdoc.NewGenerator(payrollRepo, storage, payslipdoc.Options{
		CompanyName: cfg.CompanyName,
	})

	refs, err := payroll.NewReferenceGenerator(cfg.SnowflakeNode)
	if err != nil {
		return nil, err
	}

	return payroll.NewService(db, payrollRepo, documents, payroll.Options{
		Outbox:     outboxRepo,
		Cache:      rdb,
		References: refs,
		Metrics:    settlementMetrics,
	}), nil
}

func registerModules(
	api *gin.RouterGroup,
	cfg config.Config,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	settlementMetrics *metrics.SettlementMetrics,
) error {
	// --- RBAC Core ---
	enforcer, err := infra.NewEnforcer()
	if err != nil {
		return err
	}
	rbacService := rbac.NewService(rbac.NewRepository(gormDB), enforcer)

	// --- Services ---
	payrollService, err := newPayrollService(cfg, db, gormDB, rdb, settlementMetrics)
	if err != nil {
		return err
	}

	// --- Handlers ---
	payrollHandler := payroll.NewHandlerWithRedis(payrollService, rdb)

	// --- Routes Registration ---
	if rdb != nil {
		payroll.RegisterRoutes(api, payrollHandler, rbacService, rdb)
	} else {
		payroll.RegisterRoutes(api, payrollHandler, rbacService)
	}

	return nil
}
