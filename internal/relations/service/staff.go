package service

import (
	"context"

	"orgstructure/internal/invariants"
	"orgstructure/internal/models"
	"orgstructure/internal/storage"
)

func checkStaffPosition(ctx context.Context, tx storage.Gateway, rec, _ *models.StaffPosition) error {
	if _, err := invariants.Exists(ctx, tx.Staff(), rec.StaffID, "staff"); err != nil {
		return err
	}
	if _, err := invariants.Exists(ctx, tx.Positions(), rec.PositionID, "position"); err != nil {
		return err
	}
	if err := invariants.ExistsOptional(ctx, tx.Divisions(), rec.DivisionID, "division"); err != nil {
		return err
	}
	if err := invariants.RequireLocation(ctx, tx.Organizations(), rec.LocationID, "location_id"); err != nil {
		return err
	}
	if err := invariants.DateRange(rec.StartDate, rec.EndDate); err != nil {
		return err
	}
	return activeDuplicate(ctx, tx.StaffPositions(), rec.Period, rec.ID, "staff position",
		eq("staff_id", rec.StaffID), eq("position_id", rec.PositionID))
}

func checkStaffFunction(ctx context.Context, tx storage.Gateway, rec, _ *models.StaffFunction) error {
	if _, err := invariants.Exists(ctx, tx.Staff(), rec.StaffID, "staff"); err != nil {
		return err
	}
	if _, err := invariants.Exists(ctx, tx.Functions(), rec.FunctionID, "function"); err != nil {
		return err
	}
	if err := invariants.DateRange(rec.StartDate, rec.EndDate); err != nil {
		return err
	}
	return activeDuplicate(ctx, tx.StaffFunctions(), rec.Period, rec.ID, "staff function",
		eq("staff_id", rec.StaffID), eq("function_id", rec.FunctionID))
}

func checkStaffLocation(ctx context.Context, tx storage.Gateway, rec, _ *models.StaffLocation) error {
	if _, err := invariants.Exists(ctx, tx.Staff(), rec.StaffID, "staff"); err != nil {
		return err
	}
	if err := invariants.RequireLocation(ctx, tx.Organizations(), &rec.LocationID, "location_id"); err != nil {
		return err
	}
	if err := invariants.DateRange(rec.StartDate, rec.EndDate); err != nil {
		return err
	}
	return activeDuplicate(ctx, tx.StaffLocations(), rec.Period, rec.ID, "staff location",
		eq("staff_id", rec.StaffID), eq("location_id", rec.LocationID))
}

func (s *Service) CreateStaffPosition(ctx context.Context, in models.StaffPositionCreate) (*models.StaffPosition, error) {
	return s.staffPositions.Create(ctx, in.Build(today(ctx)))
}

func (s *Service) GetStaffPosition(ctx context.Context, id int64) (*models.StaffPosition, error) {
	return s.staffPositions.Get(ctx, id)
}

func (s *Service) ListStaffPositions(ctx context.Context, q storage.Query) ([]*models.StaffPosition, int, error) {
	return s.staffPositions.List(ctx, q)
}

func (s *Service) UpdateStaffPosition(ctx context.Context, id int64, in models.StaffPositionUpdate) (*models.StaffPosition, error) {
	return s.staffPositions.Update(ctx, id, func(r *models.StaffPosition) { in.Apply(r) })
}

func (s *Service) DeleteStaffPosition(ctx context.Context, id int64) error {
	_, err := s.staffPositions.Delete(ctx, id)
	return err
}

func (s *Service) SetPrimaryStaffPosition(ctx context.Context, id int64) (*models.StaffPosition, error) {
	return s.staffPositions.SetFlag(ctx, id)
}

func (s *Service) CreateStaffFunction(ctx context.Context, in models.StaffFunctionCreate) (*models.StaffFunction, error) {
	return s.staffFunctions.Create(ctx, in.Build(today(ctx)))
}

func (s *Service) GetStaffFunction(ctx context.Context, id int64) (*models.StaffFunction, error) {
	return s.staffFunctions.Get(ctx, id)
}

func (s *Service) ListStaffFunctions(ctx context.Context, q storage.Query) ([]*models.StaffFunction, int, error) {
	return s.staffFunctions.List(ctx, q)
}

func (s *Service) UpdateStaffFunction(ctx context.Context, id int64, in models.StaffFunctionUpdate) (*models.StaffFunction, error) {
	return s.staffFunctions.Update(ctx, id, func(r *models.StaffFunction) { in.Apply(r) })
}

func (s *Service) DeleteStaffFunction(ctx context.Context, id int64) error {
	_, err := s.staffFunctions.Delete(ctx, id)
	return err
}

func (s *Service) SetPrimaryStaffFunction(ctx context.Context, id int64) (*models.StaffFunction, error) {
	return s.staffFunctions.SetFlag(ctx, id)
}

func (s *Service) CreateStaffLocation(ctx context.Context, in models.StaffLocationCreate) (*models.StaffLocation, error) {
	return s.staffLocations.Create(ctx, in.Build(today(ctx)))
}

func (s *Service) GetStaffLocation(ctx context.Context, id int64) (*models.StaffLocation, error) {
	return s.staffLocations.Get(ctx, id)
}

func (s *Service) ListStaffLocations(ctx context.Context, q storage.Query) ([]*models.StaffLocation, int, error) {
	return s.staffLocations.List(ctx, q)
}

func (s *Service) UpdateStaffLocation(ctx context.Context, id int64, in models.StaffLocationUpdate) (*models.StaffLocation, error) {
	return s.staffLocations.Update(ctx, id, func(r *models.StaffLocation) { in.Apply(r) })
}

func (s *Service) DeleteStaffLocation(ctx context.Context, id int64) error {
	_, err := s.staffLocations.Delete(ctx, id)
	return err
}

func (s *Service) SetCurrentStaffLocation(ctx context.Context, id int64) (*models.StaffLocation, error) {
	return s.staffLocations.SetFlag(ctx, id)
}

// PrimaryPosition returns the primary staff position of a staff member,
// optionally restricted to rows current at a date.
func (s *Service) PrimaryPosition(ctx context.Context, staffID int64, at *models.Date) (*models.StaffPosition, error) {
	if err := s.requireStaff(ctx, staffID); err != nil {
		return nil, err
	}
	row, err := s.staffPositions.Repo(s.runner.Store()).Find(ctx,
		currentConds(at, eq("staff_id", staffID), eq("is_primary", true))...)
	if storage.IsNotFound(err) {
		return nil, noneFlagged("primary position", "staff", staffID)
	}
	return row, storage.DomainError(err, "staff position")
}

func (s *Service) PrimaryFunction(ctx context.Context, staffID int64, at *models.Date) (*models.StaffFunction, error) {
	if err := s.requireStaff(ctx, staffID); err != nil {
		return nil, err
	}
	row, err := s.staffFunctions.Repo(s.runner.Store()).Find(ctx,
		currentConds(at, eq("staff_id", staffID), eq("is_primary", true))...)
	if storage.IsNotFound(err) {
		return nil, noneFlagged("primary function", "staff", staffID)
	}
	return row, storage.DomainError(err, "staff function")
}

func (s *Service) CurrentLocation(ctx context.Context, staffID int64, at *models.Date) (*models.StaffLocation, error) {
	if err := s.requireStaff(ctx, staffID); err != nil {
		return nil, err
	}
	row, err := s.staffLocations.Repo(s.runner.Store()).Find(ctx,
		currentConds(at, eq("staff_id", staffID), eq("is_current", true))...)
	if storage.IsNotFound(err) {
		return nil, noneFlagged("current location", "staff", staffID)
	}
	return row, storage.DomainError(err, "staff location")
}

func (s *Service) requireStaff(ctx context.Context, id int64) error {
	_, err := invariants.Exists(ctx, s.runner.Store().Staff(), id, "staff")
	return err
}
