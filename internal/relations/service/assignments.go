package service

import (
	"context"

	"orgstructure/internal/invariants"
	"orgstructure/internal/models"
	"orgstructure/internal/storage"
)

func checkAssignment(ctx context.Context, tx storage.Gateway, rec, _ *models.FunctionalAssignment) error {
	if _, err := invariants.Exists(ctx, tx.Positions(), rec.PositionID, "position"); err != nil {
		return err
	}
	if _, err := invariants.Exists(ctx, tx.Functions(), rec.FunctionID, "function"); err != nil {
		return err
	}
	if err := invariants.DateRange(rec.StartDate, rec.EndDate); err != nil {
		return err
	}
	return activeDuplicate(ctx, tx.FunctionalAssignments(), rec.Period, rec.ID, "functional assignment",
		eq("position_id", rec.PositionID), eq("function_id", rec.FunctionID))
}

func (s *Service) CreateAssignment(ctx context.Context, in models.FunctionalAssignmentCreate) (*models.FunctionalAssignment, error) {
	return s.assignments.Create(ctx, in.Build(today(ctx)))
}

func (s *Service) GetAssignment(ctx context.Context, id int64) (*models.FunctionalAssignment, error) {
	return s.assignments.Get(ctx, id)
}

func (s *Service) ListAssignments(ctx context.Context, q storage.Query) ([]*models.FunctionalAssignment, int, error) {
	return s.assignments.List(ctx, q)
}

func (s *Service) UpdateAssignment(ctx context.Context, id int64, in models.FunctionalAssignmentUpdate) (*models.FunctionalAssignment, error) {
	return s.assignments.Update(ctx, id, func(r *models.FunctionalAssignment) { in.Apply(r) })
}

func (s *Service) DeleteAssignment(ctx context.Context, id int64) error {
	_, err := s.assignments.Delete(ctx, id)
	return err
}

func (s *Service) SetPrimaryAssignment(ctx context.Context, id int64) (*models.FunctionalAssignment, error) {
	return s.assignments.SetFlag(ctx, id)
}

// PositionPrimaryFunction returns the primary functional assignment of a
// position.
func (s *Service) PositionPrimaryFunction(ctx context.Context, positionID int64, at *models.Date) (*models.FunctionalAssignment, error) {
	if err := s.requirePosition(ctx, positionID); err != nil {
		return nil, err
	}
	row, err := s.assignments.Repo(s.runner.Store()).Find(ctx,
		currentConds(at, eq("position_id", positionID), eq("is_primary", true))...)
	if storage.IsNotFound(err) {
		return nil, noneFlagged("primary function", "position", positionID)
	}
	return row, storage.DomainError(err, "functional assignment")
}

// PositionFunctions lists the functions attached to a position through its
// active assignments, in function order.
func (s *Service) PositionFunctions(ctx context.Context, positionID int64, at *models.Date) ([]*models.Function, error) {
	store := s.runner.Store()
	if err := s.requirePosition(ctx, positionID); err != nil {
		return nil, err
	}
	rows, err := store.FunctionalAssignments().List(ctx, storage.Where(currentConds(at, eq("position_id", positionID))...))
	if err != nil {
		return nil, storage.DomainError(err, "functional assignment")
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.FunctionID)
	}
	fns, err := store.Functions().List(ctx, storage.Where(storage.In{Field: "id", Values: ids}))
	if err != nil {
		return nil, storage.DomainError(err, "function")
	}
	if fns == nil {
		fns = []*models.Function{}
	}
	return fns, nil
}

func (s *Service) requirePosition(ctx context.Context, id int64) error {
	_, err := invariants.Exists(ctx, s.runner.Store().Positions(), id, "position")
	return err
}
