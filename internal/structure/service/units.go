package service

import (
	"context"

	"orgstructure/internal/models"
	"orgstructure/internal/storage"
)

func (s *Service) CreateDivision(ctx context.Context, in models.DivisionCreate) (*models.Division, error) {
	return s.divisions.Create(ctx, in.Build())
}

func (s *Service) GetDivision(ctx context.Context, id int64) (*models.Division, error) {
	return s.divisions.Get(ctx, id)
}

func (s *Service) ListDivisions(ctx context.Context, q storage.Query) ([]*models.Division, int, error) {
	return s.divisions.List(ctx, q)
}

func (s *Service) UpdateDivision(ctx context.Context, id int64, in models.DivisionUpdate) (*models.Division, error) {
	return s.divisions.Update(ctx, id, func(d *models.Division) { in.Apply(d) })
}

func (s *Service) DeleteDivision(ctx context.Context, id int64) error {
	_, err := s.divisions.Delete(ctx, id)
	return err
}

// DivisionSections lists the sections of an existing division.
func (s *Service) DivisionSections(ctx context.Context, id int64, q storage.Query) ([]*models.Section, int, error) {
	if _, err := s.divisions.Get(ctx, id); err != nil {
		return nil, 0, err
	}
	q.Conds = append(q.Conds, eq("division_id", id))
	return s.sections.List(ctx, q)
}

// divisionCascade refuses while child units exist, detaches positions and
// staff positions, and drops unit management rows.
func (s *Service) divisionCascade(ctx context.Context, tx storage.Gateway, d *models.Division) error {
	if err := refuseDependents(ctx, "division",
		dependents("child divisions", tx.Divisions(), eq("parent_id", d.ID)),
		dependents("sections", tx.Sections(), eq("division_id", d.ID)),
	); err != nil {
		return err
	}
	if _, err := tx.Positions().SetWhere(ctx, "division_id", nil, eq("division_id", d.ID)); err != nil {
		return err
	}
	if _, err := tx.StaffPositions().SetWhere(ctx, "division_id", nil, eq("division_id", d.ID)); err != nil {
		return err
	}
	_, err := tx.UnitManagement().DeleteWhere(ctx,
		eq("managed_type", string(models.ManagedDivision)), eq("managed_id", d.ID))
	return err
}

func (s *Service) CreateSection(ctx context.Context, in models.SectionCreate) (*models.Section, error) {
	return s.sections.Create(ctx, in.Build())
}

func (s *Service) GetSection(ctx context.Context, id int64) (*models.Section, error) {
	return s.sections.Get(ctx, id)
}

func (s *Service) ListSections(ctx context.Context, q storage.Query) ([]*models.Section, int, error) {
	return s.sections.List(ctx, q)
}

func (s *Service) UpdateSection(ctx context.Context, id int64, in models.SectionUpdate) (*models.Section, error) {
	return s.sections.Update(ctx, id, func(sec *models.Section) { in.Apply(sec) })
}

func (s *Service) DeleteSection(ctx context.Context, id int64) error {
	_, err := s.sections.Delete(ctx, id)
	return err
}

func (s *Service) sectionCascade(ctx context.Context, tx storage.Gateway, sec *models.Section) error {
	if _, err := tx.Functions().SetWhere(ctx, "section_id", nil, eq("section_id", sec.ID)); err != nil {
		return err
	}
	if _, err := tx.Positions().SetWhere(ctx, "section_id", nil, eq("section_id", sec.ID)); err != nil {
		return err
	}
	_, err := tx.UnitManagement().DeleteWhere(ctx,
		eq("managed_type", string(models.ManagedSection)), eq("managed_id", sec.ID))
	return err
}
