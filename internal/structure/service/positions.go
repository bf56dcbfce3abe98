package service

import (
	"context"

	"orgstructure/internal/models"
	"orgstructure/internal/storage"
)

func (s *Service) CreatePosition(ctx context.Context, in models.PositionCreate) (*models.Position, error) {
	return s.positions.Create(ctx, in.Build())
}

func (s *Service) GetPosition(ctx context.Context, id int64) (*models.Position, error) {
	return s.positions.Get(ctx, id)
}

func (s *Service) ListPositions(ctx context.Context, q storage.Query) ([]*models.Position, int, error) {
	return s.positions.List(ctx, q)
}

func (s *Service) UpdatePosition(ctx context.Context, id int64, in models.PositionUpdate) (*models.Position, error) {
	return s.positions.Update(ctx, id, func(p *models.Position) { in.Apply(p) })
}

func (s *Service) DeletePosition(ctx context.Context, id int64) error {
	_, err := s.positions.Delete(ctx, id)
	return err
}

// positionCascade drops every relation row that names the position.
func (s *Service) positionCascade(ctx context.Context, tx storage.Gateway, p *models.Position) error {
	if _, err := tx.StaffPositions().DeleteWhere(ctx, eq("position_id", p.ID)); err != nil {
		return err
	}
	if _, err := tx.FunctionalAssignments().DeleteWhere(ctx, eq("position_id", p.ID)); err != nil {
		return err
	}
	if _, err := tx.HierarchyRelations().DeleteWhere(ctx, eq("superior_position_id", p.ID)); err != nil {
		return err
	}
	if _, err := tx.HierarchyRelations().DeleteWhere(ctx, eq("subordinate_position_id", p.ID)); err != nil {
		return err
	}
	_, err := tx.UnitManagement().DeleteWhere(ctx, eq("position_id", p.ID))
	return err
}
