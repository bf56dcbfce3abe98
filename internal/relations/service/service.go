// Package service is the relation engine: the time-bounded links between
// staff, positions, functions, locations and managed units. It enforces
// referential typing, date windows, active-pair uniqueness, hierarchy
// acyclicity and the one-primary-per-group rule.
package service

import (
	"context"

	"orgstructure/internal/crud"
	"orgstructure/internal/invariants"
	"orgstructure/internal/models"
	"orgstructure/internal/storage"
	dErrors "orgstructure/pkg/domain-errors"
	"orgstructure/pkg/requestcontext"
)

type Service struct {
	runner         *crud.Runner
	staffPositions *crud.Resource[models.StaffPosition, *models.StaffPosition]
	staffFunctions *crud.Resource[models.StaffFunction, *models.StaffFunction]
	staffLocations *crud.Resource[models.StaffLocation, *models.StaffLocation]
	assignments    *crud.Resource[models.FunctionalAssignment, *models.FunctionalAssignment]
	functionalRels *crud.Resource[models.FunctionalRelation, *models.FunctionalRelation]
	hierarchyRels  *crud.Resource[models.HierarchyRelation, *models.HierarchyRelation]
	unitManagement *crud.Resource[models.UnitManagement, *models.UnitManagement]
}

func staffOwner(tx storage.Gateway) invariants.Locker    { return tx.Staff() }
func positionOwner(tx storage.Gateway) invariants.Locker { return tx.Positions() }

func New(runner *crud.Runner) *Service {
	return &Service{
		runner: runner,
		staffPositions: crud.NewResource[models.StaffPosition](runner, "staff_position", storage.Gateway.StaffPositions, crud.Hooks[models.StaffPosition]{
			Check: checkStaffPosition,
			Flag: &crud.UniqueFlag[models.StaffPosition]{
				Flag:  invariants.StaffPositionPrimary,
				Owner: staffOwner,
				Value: func(r *models.StaffPosition) *bool { return &r.IsPrimary },
				Group: func(r *models.StaffPosition) int64 { return r.StaffID },
			},
		}),
		staffFunctions: crud.NewResource[models.StaffFunction](runner, "staff_function", storage.Gateway.StaffFunctions, crud.Hooks[models.StaffFunction]{
			Check: checkStaffFunction,
			Flag: &crud.UniqueFlag[models.StaffFunction]{
				Flag:  invariants.StaffFunctionPrimary,
				Owner: staffOwner,
				Value: func(r *models.StaffFunction) *bool { return &r.IsPrimary },
				Group: func(r *models.StaffFunction) int64 { return r.StaffID },
			},
		}),
		staffLocations: crud.NewResource[models.StaffLocation](runner, "staff_location", storage.Gateway.StaffLocations, crud.Hooks[models.StaffLocation]{
			Check: checkStaffLocation,
			Flag: &crud.UniqueFlag[models.StaffLocation]{
				Flag:  invariants.StaffLocationCurrent,
				Owner: staffOwner,
				Value: func(r *models.StaffLocation) *bool { return &r.IsCurrent },
				Group: func(r *models.StaffLocation) int64 { return r.StaffID },
			},
		}),
		assignments: crud.NewResource[models.FunctionalAssignment](runner, "functional_assignment", storage.Gateway.FunctionalAssignments, crud.Hooks[models.FunctionalAssignment]{
			Check: checkAssignment,
			Flag: &crud.UniqueFlag[models.FunctionalAssignment]{
				Flag:  invariants.AssignmentPrimary,
				Owner: positionOwner,
				Value: func(r *models.FunctionalAssignment) *bool { return &r.IsPrimary },
				Group: func(r *models.FunctionalAssignment) int64 { return r.PositionID },
			},
		}),
		functionalRels: crud.NewResource[models.FunctionalRelation](runner, "functional_relation", storage.Gateway.FunctionalRelations, crud.Hooks[models.FunctionalRelation]{
			Check: checkFunctionalRelation,
		}),
		hierarchyRels: crud.NewResource[models.HierarchyRelation](runner, "hierarchy_relation", storage.Gateway.HierarchyRelations, crud.Hooks[models.HierarchyRelation]{
			Check: checkHierarchyRelation,
		}),
		unitManagement: crud.NewResource[models.UnitManagement](runner, "unit_management", storage.Gateway.UnitManagement, crud.Hooks[models.UnitManagement]{
			Check: checkUnitManagement,
		}),
	}
}

func today(ctx context.Context) models.Date {
	return models.DateOf(requestcontext.Now(ctx))
}

func eq(field string, v any) storage.Cond {
	return storage.Eq{Field: field, Value: v}
}

// activeDuplicate rejects a second active row for the same key. Inactive
// rows never collide.
func activeDuplicate[T any](ctx context.Context, repo storage.Repository[T], p models.Period, selfID int64, what string, conds ...storage.Cond) error {
	if !p.IsActive {
		return nil
	}
	conds = append(conds, storage.Active())
	return invariants.NoDuplicate(ctx, repo, selfID, what, conds...)
}

// currentConds restricts a flagged lookup to rows current at the date, or to
// active rows when no date is given.
func currentConds(at *models.Date, conds ...storage.Cond) []storage.Cond {
	if at != nil {
		return append(conds, storage.ActiveOn{Date: at.Time})
	}
	return append(conds, storage.Active())
}

func noneFlagged(what string, owner string, id int64) error {
	return dErrors.Newf(dErrors.CodeNotFound, "no %s for %s %d", what, owner, id)
}
