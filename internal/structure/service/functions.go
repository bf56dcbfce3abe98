package service

import (
	"context"

	"orgstructure/internal/models"
	"orgstructure/internal/storage"
)

func (s *Service) CreateFunction(ctx context.Context, in models.FunctionCreate) (*models.Function, error) {
	return s.functions.Create(ctx, in.Build())
}

func (s *Service) GetFunction(ctx context.Context, id int64) (*models.Function, error) {
	return s.functions.Get(ctx, id)
}

func (s *Service) ListFunctions(ctx context.Context, q storage.Query) ([]*models.Function, int, error) {
	return s.functions.List(ctx, q)
}

func (s *Service) UpdateFunction(ctx context.Context, id int64, in models.FunctionUpdate) (*models.Function, error) {
	return s.functions.Update(ctx, id, func(f *models.Function) { in.Apply(f) })
}

func (s *Service) DeleteFunction(ctx context.Context, id int64) error {
	_, err := s.functions.Delete(ctx, id)
	return err
}

func (s *Service) functionCascade(ctx context.Context, tx storage.Gateway, f *models.Function) error {
	if _, err := tx.ValueFunctions().DeleteWhere(ctx, eq("function_id", f.ID)); err != nil {
		return err
	}
	if _, err := tx.StaffFunctions().DeleteWhere(ctx, eq("function_id", f.ID)); err != nil {
		return err
	}
	_, err := tx.FunctionalAssignments().DeleteWhere(ctx, eq("function_id", f.ID))
	return err
}

func (s *Service) CreateValueFunction(ctx context.Context, in models.ValueFunctionCreate) (*models.ValueFunction, error) {
	return s.valueFunctions.Create(ctx, in.Build())
}

func (s *Service) GetValueFunction(ctx context.Context, id int64) (*models.ValueFunction, error) {
	return s.valueFunctions.Get(ctx, id)
}

func (s *Service) ListValueFunctions(ctx context.Context, q storage.Query) ([]*models.ValueFunction, int, error) {
	return s.valueFunctions.List(ctx, q)
}

func (s *Service) UpdateValueFunction(ctx context.Context, id int64, in models.ValueFunctionUpdate) (*models.ValueFunction, error) {
	return s.valueFunctions.Update(ctx, id, func(v *models.ValueFunction) { in.Apply(v) })
}

func (s *Service) DeleteValueFunction(ctx context.Context, id int64) error {
	_, err := s.valueFunctions.Delete(ctx, id)
	return err
}
