package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

const uniqueViolationCode = "23505"

// isUniqueViolation detects Postgres unique violations from both pgx and lib/pq drivers.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode {
		return true
	}
	return false
}

// translateError maps driver errors onto application sentinels.
func translateError(err error, what string) error {
	if err == nil {
		return nil
	}
	// what names the entity in the message
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", apperrors.ErrNotFound, what)
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s already exists", apperrors.ErrConflict, what)
	}
	return fmt.Errorf("%s: %w", what, err)
}
