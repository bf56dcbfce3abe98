package service

import (
	"context"

	"orgstructure/internal/invariants"
	"orgstructure/internal/models"
	"orgstructure/internal/storage"
	dErrors "orgstructure/pkg/domain-errors"
)

// checkFunctionalRelation allows several relations between the same pair of
// staff as long as their relation types differ.
func checkFunctionalRelation(ctx context.Context, tx storage.Gateway, rec, _ *models.FunctionalRelation) error {
	if rec.ManagerID == rec.SubordinateID {
		return dErrors.New(dErrors.CodeInvariantViolation, "self-loop: a staff member cannot manage themselves")
	}
	if _, err := invariants.Exists(ctx, tx.Staff(), rec.ManagerID, "manager staff"); err != nil {
		return err
	}
	if _, err := invariants.Exists(ctx, tx.Staff(), rec.SubordinateID, "subordinate staff"); err != nil {
		return err
	}
	if err := invariants.DateRange(rec.StartDate, rec.EndDate); err != nil {
		return err
	}
	return activeDuplicate(ctx, tx.FunctionalRelations(), rec.Period, rec.ID, "functional relation",
		eq("manager_id", rec.ManagerID), eq("subordinate_id", rec.SubordinateID),
		eq("relation_type", string(rec.RelationType)))
}

// checkHierarchyRelation only runs the cycle search for active edges; an
// inactive edge is never traversed.
func checkHierarchyRelation(ctx context.Context, tx storage.Gateway, rec, _ *models.HierarchyRelation) error {
	if _, err := invariants.Exists(ctx, tx.Positions(), rec.SuperiorPositionID, "superior position"); err != nil {
		return err
	}
	if _, err := invariants.Exists(ctx, tx.Positions(), rec.SubordinatePositionID, "subordinate position"); err != nil {
		return err
	}
	if err := invariants.DateRange(rec.StartDate, rec.EndDate); err != nil {
		return err
	}
	if rec.SuperiorPositionID == rec.SubordinatePositionID || rec.IsActive {
		if err := invariants.HierarchyAcyclic(ctx, tx,
			rec.SuperiorPositionID, rec.SubordinatePositionID, rec.ID); err != nil {
			return err
		}
	}
	return activeDuplicate(ctx, tx.HierarchyRelations(), rec.Period, rec.ID, "hierarchy relation",
		eq("superior_position_id", rec.SuperiorPositionID), eq("subordinate_position_id", rec.SubordinatePositionID))
}

func checkUnitManagement(ctx context.Context, tx storage.Gateway, rec, _ *models.UnitManagement) error {
	if _, err := invariants.Exists(ctx, tx.Positions(), rec.PositionID, "position"); err != nil {
		return err
	}
	if err := invariants.ManagedUnit(ctx, tx, rec.ManagedType, rec.ManagedID); err != nil {
		return err
	}
	if err := invariants.DateRange(rec.StartDate, rec.EndDate); err != nil {
		return err
	}
	return activeDuplicate(ctx, tx.UnitManagement(), rec.Period, rec.ID, "unit management",
		eq("position_id", rec.PositionID), eq("managed_type", string(rec.ManagedType)), eq("managed_id", rec.ManagedID))
}

func (s *Service) CreateFunctionalRelation(ctx context.Context, in models.FunctionalRelationCreate) (*models.FunctionalRelation, error) {
	return s.functionalRels.Create(ctx, in.Build(today(ctx)))
}

func (s *Service) GetFunctionalRelation(ctx context.Context, id int64) (*models.FunctionalRelation, error) {
	return s.functionalRels.Get(ctx, id)
}

func (s *Service) ListFunctionalRelations(ctx context.Context, q storage.Query) ([]*models.FunctionalRelation, int, error) {
	return s.functionalRels.List(ctx, q)
}

func (s *Service) UpdateFunctionalRelation(ctx context.Context, id int64, in models.FunctionalRelationUpdate) (*models.FunctionalRelation, error) {
	return s.functionalRels.Update(ctx, id, func(r *models.FunctionalRelation) { in.Apply(r) })
}

func (s *Service) DeleteFunctionalRelation(ctx context.Context, id int64) error {
	_, err := s.functionalRels.Delete(ctx, id)
	return err
}

func (s *Service) CreateHierarchyRelation(ctx context.Context, in models.HierarchyRelationCreate) (*models.HierarchyRelation, error) {
	return s.hierarchyRels.Create(ctx, in.Build(today(ctx)))
}

func (s *Service) GetHierarchyRelation(ctx context.Context, id int64) (*models.HierarchyRelation, error) {
	return s.hierarchyRels.Get(ctx, id)
}

func (s *Service) ListHierarchyRelations(ctx context.Context, q storage.Query) ([]*models.HierarchyRelation, int, error) {
	return s.hierarchyRels.List(ctx, q)
}

func (s *Service) UpdateHierarchyRelation(ctx context.Context, id int64, in models.HierarchyRelationUpdate) (*models.HierarchyRelation, error) {
	return s.hierarchyRels.Update(ctx, id, func(r *models.HierarchyRelation) { in.Apply(r) })
}

func (s *Service) DeleteHierarchyRelation(ctx context.Context, id int64) error {
	_, err := s.hierarchyRels.Delete(ctx, id)
	return err
}

func (s *Service) CreateUnitManagement(ctx context.Context, in models.UnitManagementCreate) (*models.UnitManagement, error) {
	return s.unitManagement.Create(ctx, in.Build(today(ctx)))
}

func (s *Service) GetUnitManagement(ctx context.Context, id int64) (*models.UnitManagement, error) {
	return s.unitManagement.Get(ctx, id)
}

func (s *Service) ListUnitManagement(ctx context.Context, q storage.Query) ([]*models.UnitManagement, int, error) {
	return s.unitManagement.List(ctx, q)
}

func (s *Service) UpdateUnitManagement(ctx context.Context, id int64, in models.UnitManagementUpdate) (*models.UnitManagement, error) {
	return s.unitManagement.Update(ctx, id, func(r *models.UnitManagement) { in.Apply(r) })
}

func (s *Service) DeleteUnitManagement(ctx context.Context, id int64) error {
	_, err := s.unitManagement.Delete(ctx, id)
	return err
}
