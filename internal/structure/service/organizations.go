package service

import (
	"context"

	"orgstructure/internal/models"
	"orgstructure/internal/storage"
)

func (s *Service) CreateOrganization(ctx context.Context, in models.OrganizationCreate) (*models.Organization, error) {
	return s.orgs.Create(ctx, in.Build())
}

func (s *Service) GetOrganization(ctx context.Context, id int64) (*models.Organization, error) {
	return s.orgs.Get(ctx, id)
}

func (s *Service) ListOrganizations(ctx context.Context, q storage.Query) ([]*models.Organization, int, error) {
	return s.orgs.List(ctx, q)
}

// OrganizationChildren lists the direct children of an existing organization.
func (s *Service) OrganizationChildren(ctx context.Context, id int64, q storage.Query) ([]*models.Organization, int, error) {
	if _, err := s.orgs.Get(ctx, id); err != nil {
		return nil, 0, err
	}
	q.Conds = append(q.Conds, eq("parent_id", id))
	return s.orgs.List(ctx, q)
}

func (s *Service) UpdateOrganization(ctx context.Context, id int64, in models.OrganizationUpdate) (*models.Organization, error) {
	return s.orgs.Update(ctx, id, func(o *models.Organization) { in.Apply(o) })
}

func (s *Service) DeleteOrganization(ctx context.Context, id int64) error {
	_, err := s.orgs.Delete(ctx, id)
	return err
}

func (s *Service) organizationDependents(ctx context.Context, tx storage.Gateway, org *models.Organization) error {
	return refuseDependents(ctx, "organization",
		dependents("child organizations", tx.Organizations(), eq("parent_id", org.ID)),
		dependents("divisions", tx.Divisions(), eq("organization_id", org.ID)),
		dependents("staff", tx.Staff(), eq("organization_id", org.ID)),
		dependents("staff (primary organization)", tx.Staff(), eq("primary_organization_id", org.ID)),
		dependents("staff (location)", tx.Staff(), eq("location_id", org.ID)),
		dependents("staff positions", tx.StaffPositions(), eq("location_id", org.ID)),
		dependents("staff locations", tx.StaffLocations(), eq("location_id", org.ID)),
	)
}
