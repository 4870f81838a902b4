package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"go-payroll/internal/payroll"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed sql/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "sql"

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// migrator.Close would close the shared *sql.DB.

	return nil
}

type role struct {
	ID          string `gorm:"primaryKey"`
	CompanyID   string
	Name        string
	Description string
}

func (role) TableName() string { return "roles" }

type permission struct {
	ID       string `gorm:"primaryKey"`
	Resource string
	Action   string
	Label    string
	Category string
}

func (permission) TableName() string { return "permissions" }

type rolePermission struct {
	RoleID       string `gorm:"primaryKey"`
	PermissionID string `gorm:"primaryKey"`
}

func (rolePermission) TableName() string { return "role_permissions" }

type employeeRole struct {
	EmployeeID string `gorm:"primaryKey"`
	RoleID     string `gorm:"primaryKey"`
}

func (employeeRole) TableName() string { return "employee_roles" }

// AutoMigrate builds the schema through gorm for the sqlite profile, where
// the postgres migrations do not apply. The outbox is postgres-only.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&payroll.PayslipEmployee{},
		&payroll.PayRun{},
		&payroll.Payslip{},
		&payroll.PayslipComponent{},
		&payroll.Payment{},
		&role{},
		&permission{},
		&rolePermission{},
		&employeeRole{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
