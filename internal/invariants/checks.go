package invariants

import (
	"context"
	"fmt"

	"orgstructure/internal/models"
	"orgstructure/internal/storage"
	dErrors "orgstructure/pkg/domain-errors"
)

// Exists loads the row with id or returns a not-found domain error naming entity.
func Exists[T any](ctx context.Context, repo storage.Repository[T], id int64, entity string) (*T, error) {
	row, err := repo.Get(ctx, id)
	if err != nil {
		return nil, storage.DomainError(err, fmt.Sprintf("%s %d", entity, id))
	}
	return row, nil
}

// ExistsOptional is Exists for nullable references.
func ExistsOptional[T any](ctx context.Context, repo storage.Repository[T], id *int64, entity string) error {
	if id == nil {
		return nil
	}
	_, err := Exists(ctx, repo, *id, entity)
	return err
}

// RequireLocation checks that id, when set, names an organization of type
// location. field is used in the error message.
func RequireLocation(ctx context.Context, orgs storage.Repository[models.Organization], id *int64, field string) error {
	if id == nil {
		return nil
	}
	org, err := Exists(ctx, orgs, *id, "organization")
	if err != nil {
		return err
	}
	if org.OrgType != models.OrgTypeLocation {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"%s must reference a location organization, got %s", field, org.OrgType)
	}
	return nil
}

// DateRange rejects an end date before the start date.
func DateRange(start models.Date, end *models.Date) error {
	if end != nil && end.Before(start) {
		return dErrors.New(dErrors.CodeInvariantViolation, "invalid date range: end_date is before start_date")
	}
	return nil
}

// OptionalDateRange is DateRange where both ends may be missing.
func OptionalDateRange(start, end *models.Date, endField string) error {
	if start == nil || end == nil {
		return nil
	}
	if end.Before(*start) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "invalid date range: %s is before start_date", endField)
	}
	return nil
}

// NoDuplicate rejects the write when another row (id != selfID) matches conds.
func NoDuplicate[T any](ctx context.Context, repo storage.Repository[T], selfID int64, what string, conds ...storage.Cond) error {
	if selfID != 0 {
		conds = append(conds, storage.NotEq{Field: "id", Value: selfID})
	}
	n, err := repo.Count(ctx, conds...)
	if err != nil {
		return storage.DomainError(err, what)
	}
	if n > 0 {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "duplicate %s", what)
	}
	return nil
}
