package repository

import (
	"errors"
	"fmt"

	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/allocation"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the allocation schema relies on.
const (
	pgCheckViolation  = "23514"
	pgUniqueViolation = "23505"
)

// translate maps driver errors onto the allocation error taxonomy. what names the
// row being read or written and is only used in the message.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %w", what, allocation.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCheckViolation:
			// batches_quantity_nonnegative and the tier/batch check
			if pgErr.ConstraintName == "batches_quantity_nonnegative" {
				return fmt.Errorf("%s: %w", what, allocation.ErrInsufficientStock)
			}
			return fmt.Errorf("%s: %s: %w", what, pgErr.ConstraintName, allocation.ErrValidation)
		case pgUniqueViolation:
			return fmt.Errorf("%s: duplicate %s: %w", what, pgErr.ConstraintName, allocation.ErrValidation)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}
