// Package service owns the reference data of the organizational structure:
// organizations, divisions, sections, functions, value functions and
// positions. Every write runs in one transaction together with its
// invariant checks and cascades.
package service

import (
	"context"

	"orgstructure/internal/crud"
	"orgstructure/internal/invariants"
	"orgstructure/internal/models"
	"orgstructure/internal/storage"
	dErrors "orgstructure/pkg/domain-errors"
)

type Service struct {
	runner         *crud.Runner
	orgs           *crud.Resource[models.Organization, *models.Organization]
	divisions      *crud.Resource[models.Division, *models.Division]
	sections       *crud.Resource[models.Section, *models.Section]
	functions      *crud.Resource[models.Function, *models.Function]
	valueFunctions *crud.Resource[models.ValueFunction, *models.ValueFunction]
	positions      *crud.Resource[models.Position, *models.Position]
}

func New(runner *crud.Runner) *Service {
	s := &Service{runner: runner}
	s.orgs = crud.NewResource[models.Organization](runner, "organization", storage.Gateway.Organizations, crud.Hooks[models.Organization]{
		Check: func(ctx context.Context, tx storage.Gateway, rec, _ *models.Organization) error {
			return invariants.OrganizationPlacement(ctx, tx.Organizations(), rec)
		},
		BeforeDelete: s.organizationDependents,
	})
	s.divisions = crud.NewResource[models.Division](runner, "division", storage.Gateway.Divisions, crud.Hooks[models.Division]{
		Check: func(ctx context.Context, tx storage.Gateway, rec, _ *models.Division) error {
			return invariants.DivisionPlacement(ctx, tx, rec)
		},
		BeforeDelete: s.divisionCascade,
	})
	s.sections = crud.NewResource[models.Section](runner, "section", storage.Gateway.Sections, crud.Hooks[models.Section]{
		Check: func(ctx context.Context, tx storage.Gateway, rec, _ *models.Section) error {
			_, err := invariants.Exists(ctx, tx.Divisions(), rec.DivisionID, "division")
			return err
		},
		BeforeDelete: s.sectionCascade,
	})
	s.functions = crud.NewResource[models.Function](runner, "function", storage.Gateway.Functions, crud.Hooks[models.Function]{
		Check: func(ctx context.Context, tx storage.Gateway, rec, _ *models.Function) error {
			return invariants.ExistsOptional(ctx, tx.Sections(), rec.SectionID, "section")
		},
		BeforeDelete: s.functionCascade,
	})
	s.valueFunctions = crud.NewResource[models.ValueFunction](runner, "value_function", storage.Gateway.ValueFunctions, crud.Hooks[models.ValueFunction]{
		Check: func(ctx context.Context, tx storage.Gateway, rec, _ *models.ValueFunction) error {
			if _, err := invariants.Exists(ctx, tx.Functions(), rec.FunctionID, "function"); err != nil {
				return err
			}
			return invariants.OptionalDateRange(rec.StartDate, rec.TargetDate, "target_date")
		},
	})
	s.positions = crud.NewResource[models.Position](runner, "position", storage.Gateway.Positions, crud.Hooks[models.Position]{
		Check: func(ctx context.Context, tx storage.Gateway, rec, _ *models.Position) error {
			return invariants.PositionPlacement(ctx, tx, rec)
		},
		BeforeDelete: s.positionCascade,
	})
	return s
}

// dependent counts rows that block a delete.
type dependent struct {
	what  string
	count func(ctx context.Context) (int, error)
}

func dependents[T any](what string, repo storage.Repository[T], conds ...storage.Cond) dependent {
	return dependent{what: what, count: func(ctx context.Context) (int, error) {
		return repo.Count(ctx, conds...)
	}}
}

// refuseDependents returns a conflict naming the first kind of dependent
// row that exists.
func refuseDependents(ctx context.Context, entity string, deps ...dependent) error {
	for _, d := range deps {
		n, err := d.count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return dErrors.Newf(dErrors.CodeConflict, "cannot delete %s: %d dependent %s", entity, n, d.what)
		}
	}
	return nil
}

func eq(field string, v any) storage.Cond {
	return storage.Eq{Field: field, Value: v}
}
