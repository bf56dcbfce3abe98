// Package service manages staff records and the photo and document blobs
// they own. A row and its blobs change together: blobs written for a
// failed transaction are deleted, and blobs a committed change replaced or
// orphaned are deleted after commit.
package service

import (
	"context"
	"log/slog"

	"orgstructure/internal/blob"
	"orgstructure/internal/crud"
	"orgstructure/internal/invariants"
	"orgstructure/internal/models"
	"orgstructure/internal/storage"
)

type Service struct {
	runner *crud.Runner
	staff  *crud.Resource[models.Staff, *models.Staff]
	blobs  blob.Store
	logger *slog.Logger
}

func New(runner *crud.Runner, blobs blob.Store) *Service {
	return &Service{
		runner: runner,
		blobs:  blobs,
		logger: runner.Logger(),
		staff: crud.NewResource[models.Staff](runner, "staff", storage.Gateway.Staff, crud.Hooks[models.Staff]{
			Check:        checkStaff,
			BeforeDelete: staffCascade,
		}),
	}
}

func checkStaff(ctx context.Context, tx storage.Gateway, rec, _ *models.Staff) error {
	if err := invariants.ExistsOptional(ctx, tx.Organizations(), rec.OrganizationID, "organization"); err != nil {
		return err
	}
	if err := invariants.ExistsOptional(ctx, tx.Organizations(), rec.PrimaryOrganizationID, "organization"); err != nil {
		return err
	}
	if err := invariants.RequireLocation(ctx, tx.Organizations(), rec.LocationID, "location_id"); err != nil {
		return err
	}
	return invariants.ExistsOptional(ctx, tx.Users(), rec.UserID, "user")
}

// staffCascade drops the relation rows that name the staff member.
func staffCascade(ctx context.Context, tx storage.Gateway, rec *models.Staff) error {
	if _, err := tx.StaffPositions().DeleteWhere(ctx, eq("staff_id", rec.ID)); err != nil {
		return err
	}
	if _, err := tx.StaffFunctions().DeleteWhere(ctx, eq("staff_id", rec.ID)); err != nil {
		return err
	}
	if _, err := tx.StaffLocations().DeleteWhere(ctx, eq("staff_id", rec.ID)); err != nil {
		return err
	}
	if _, err := tx.FunctionalRelations().DeleteWhere(ctx, eq("manager_id", rec.ID)); err != nil {
		return err
	}
	_, err := tx.FunctionalRelations().DeleteWhere(ctx, eq("subordinate_id", rec.ID))
	return err
}

func eq(field string, v any) storage.Cond {
	return storage.Eq{Field: field, Value: v}
}

func (s *Service) CreateStaff(ctx context.Context, in models.StaffCreate) (*models.Staff, error) {
	return s.staff.Create(ctx, in.Build())
}

func (s *Service) GetStaff(ctx context.Context, id int64) (*models.Staff, error) {
	return s.staff.Get(ctx, id)
}

func (s *Service) ListStaff(ctx context.Context, q storage.Query) ([]*models.Staff, int, error) {
	return s.staff.List(ctx, q)
}

func (s *Service) UpdateStaff(ctx context.Context, id int64, in models.StaffUpdate) (*models.Staff, error) {
	return s.staff.Update(ctx, id, func(st *models.Staff) { in.Apply(st) })
}

// DeleteStaff removes the row and its relations, then its blobs.
func (s *Service) DeleteStaff(ctx context.Context, id int64) error {
	deleted, err := s.staff.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.discard(ctx, deleted.BlobKeys())
	return nil
}

// ReferencedBlobs lists the blob keys of every staff row; the orphan
// sweeper keeps these.
func (s *Service) ReferencedBlobs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.runner.Store().Staff().List(ctx, storage.Query{})
	if err != nil {
		return nil, storage.DomainError(err, "staff")
	}
	refs := make(map[string]bool)
	for _, st := range rows {
		for _, key := range st.BlobKeys() {
			refs[key] = true
		}
	}
	return refs, nil
}

// discard deletes blobs nothing references any more. Failures are logged;
// the sweeper collects what is left.
func (s *Service) discard(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "blob cleanup failed", "key", key, "error", err)
		}
	}
}
