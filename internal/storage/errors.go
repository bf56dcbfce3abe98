package storage

import (
	"context"
	"errors"

	dErrors "orgstructure/pkg/domain-errors"
	"orgstructure/pkg/platform/sentinel"
)

// IsNotFound reports whether err is a missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}

// IsTransient reports whether retrying the transaction may succeed.
func IsTransient(err error) bool {
	return errors.Is(err, sentinel.ErrUnavailable) || errors.Is(err, sentinel.ErrConflict)
}

// DomainError translates a gateway error about entity into a coded domain
// error. Errors that already carry a code pass through unchanged.
func DomainError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, entity+" not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.Wrap(err, dErrors.CodeInvariantViolation, entity+" already exists")
	case errors.Is(err, sentinel.ErrReferenced):
		return dErrors.Wrap(err, dErrors.CodeInvariantViolation, entity+" references a missing record")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request deadline exceeded")
	case IsTransient(err):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "storage temporarily unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "storage failure")
	}
}
