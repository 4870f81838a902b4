package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"go-payroll/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()

	assert.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, config.DBTypePostgres, cfg.DBType)
	assert.Equal(t, int64(1), cfg.SnowflakeNode)
	assert.Equal(t, "/files/payslips", cfg.PayslipPublicBaseURL)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("DB_SQLITE_PATH", "/tmp/payroll-test.db")
	t.Setenv("PORT", "8081")
	t.Setenv("APP_ENV", "production")
	t.Setenv("SNOWFLAKE_NODE", "7")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := config.Load()

	assert.NoError(t, err)
	assert.Equal(t, config.DBTypeSQLite, cfg.DBType)
	assert.Equal(t, "/tmp/payroll-test.db", cfg.DBSQLitePath)
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, int64(7), cfg.SnowflakeNode)
	assert.True(t, cfg.IsProduction())
}

func TestLoadFrom_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "port: \"9090\"\ncompany_name: Société Ivoirienne\nkafka_broker: kafka:9092\n"
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.LoadFrom(path)

	assert.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "Société Ivoirienne", cfg.CompanyName)
	assert.Equal(t, "kafka:9092", cfg.KafkaBroker)
}

func TestLoad_RejectsUnknownDBType(t *testing.T) {
	t.Setenv("DB_TYPE", "oracle")

	_, err := config.Load()

	assert.Error(t, err)
}

func TestLoad_ProductionRequiresJWTSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := config.Load()

	assert.EqualError(t, err, "jwt_secret is required in production")
}
