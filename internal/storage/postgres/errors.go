package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"orgstructure/pkg/platform/sentinel"
)

// translate maps driver errors onto storage sentinels, keeping the original
// error in the chain for logging.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", sentinel.ErrNotFound, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w (%s): %w", sentinel.ErrAlreadyUsed, pqErr.Constraint, err)
		case "23503":
			return fmt.Errorf("%w (%s): %w", sentinel.ErrReferenced, pqErr.Constraint, err)
		case "40001", "40P01":
			return fmt.Errorf("%w: %w", sentinel.ErrConflict, err)
		}
		switch pqErr.Code.Class() {
		case "08", "53", "57":
			return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
		}
		return err
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	return err
}
