package tenant

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type payslip struct {
	ID        int64
	CompanyID string
}

func dryRun(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db.Session(&gorm.Session{DryRun: true})
}

func TestScope(t *testing.T) {
	stmt := dryRun(t).Scopes(Scope("c-1")).Find(&[]payslip{}).Statement

	assert.Equal(t, "SELECT * FROM `payslips` WHERE `payslips`.`company_id` = ?", stmt.SQL.String())
	assert.Equal(t, []any{"c-1"}, stmt.Vars)
}

func TestScope_EmptyCompanyMatchesNothing(t *testing.T) {
	stmt := dryRun(t).Scopes(Scope("")).Find(&[]payslip{}).Statement

	assert.Equal(t, "SELECT * FROM `payslips` WHERE 1 = 0", stmt.SQL.String())
	assert.Empty(t, stmt.Vars)
}
