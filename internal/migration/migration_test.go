package migration

import (
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"go-payroll/internal/payroll"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file %s", name)
		}
	}
	assert.Equal(t, ups, downs)

	payrollSQL, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/000001_payroll.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(payrollSQL), "uq_payments_reference")
}

func TestAutoMigrate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "payroll.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(db))

	for _, table := range []any{&payroll.PayRun{}, &payroll.Payslip{}, &payroll.Payment{}, "roles", "employee_roles"} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %v", table)
	}
	assert.True(t, db.Migrator().HasIndex(&payroll.Payment{}, "uq_payments_reference"))
}
