package payroll

import (
	"errors"
	"strings"

	payrollerrors "go-payroll/internal/payroll/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const paymentReferenceConstraint = "uq_payments_reference"

func mapRepositoryError(err error, notFound error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" && pgErr.ConstraintName == paymentReferenceConstraint {
			return payrollerrors.ErrDuplicateReference
		}
	}

	// sqlite reports "UNIQUE constraint failed: payments.reference"
	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, paymentReferenceConstraint) ||
		(strings.Contains(errMsg, "unique constraint failed") && strings.Contains(errMsg, "payments.reference")) {
		return payrollerrors.ErrDuplicateReference
	}

	return err
}
