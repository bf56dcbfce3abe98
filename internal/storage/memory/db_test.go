package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"orgstructure/internal/models"
	"orgstructure/internal/storage"
	"orgstructure/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	db  *DB
	ctx context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.db = New()
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) createOrg(code string, orgType models.OrgType, parent *int64) *models.Organization {
	org := &models.Organization{Name: code, Code: code, OrgType: orgType, ParentID: parent, IsActive: true}
	s.Require().NoError(s.db.Organizations().Create(s.ctx, org))
	return org
}

func (s *MemoryStoreSuite) TestCreateAssignsMonotonicIDs() {
	a := s.createOrg("A", models.OrgTypeHolding, nil)
	b := s.createOrg("B", models.OrgTypeHolding, nil)
	s.Equal(int64(1), a.ID)
	s.Equal(int64(2), b.ID)
}

func (s *MemoryStoreSuite) TestGetReturnsCopy() {
	org := s.createOrg("H", models.OrgTypeHolding, nil)

	got, err := s.db.Organizations().Get(s.ctx, org.ID)
	s.Require().NoError(err)
	got.Name = "mutated"

	again, err := s.db.Organizations().Get(s.ctx, org.ID)
	s.Require().NoError(err)
	s.Equal("H", again.Name)
}

func (s *MemoryStoreSuite) TestMissingRows() {
	_, err := s.db.Positions().Get(s.ctx, 42)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.db.Positions().Delete(s.ctx, 42), sentinel.ErrNotFound)

	_, err = s.db.Positions().Find(s.ctx, storage.Eq{Field: "name", Value: "nobody"})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestUniqueIndexes() {
	s.createOrg("DUP", models.OrgTypeHolding, nil)
	err := s.db.Organizations().Create(s.ctx, &models.Organization{Name: "x", Code: "DUP", OrgType: models.OrgTypeBoard})
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	other := s.createOrg("OTHER", models.OrgTypeBoard, nil)
	other.Code = "DUP"
	s.ErrorIs(s.db.Organizations().Update(s.ctx, other), sentinel.ErrAlreadyUsed)
}

func (s *MemoryStoreSuite) TestListOrdersByNaturalKeyAndPaginates() {
	for _, code := range []string{"C", "A", "B"} {
		s.createOrg(code, models.OrgTypeHolding, nil)
	}

	all, err := s.db.Organizations().List(s.ctx, storage.Query{})
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal([]string{"A", "B", "C"}, []string{all[0].Code, all[1].Code, all[2].Code})

	page, err := s.db.Organizations().List(s.ctx, storage.Query{Offset: 1, Limit: 1})
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal("B", page[0].Code)

	empty, err := s.db.Organizations().List(s.ctx, storage.Query{Offset: 10})
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *MemoryStoreSuite) TestConditions() {
	holding := s.createOrg("H", models.OrgTypeHolding, nil)
	s.createOrg("LE1", models.OrgTypeLegalEntity, &holding.ID)
	s.createOrg("LE2", models.OrgTypeLegalEntity, &holding.ID)

	s.Run("eq on pointer column", func() {
		n, err := s.db.Organizations().Count(s.ctx, storage.Eq{Field: "parent_id", Value: holding.ID})
		s.Require().NoError(err)
		s.Equal(2, n)
	})

	s.Run("eq nil matches null", func() {
		n, err := s.db.Organizations().Count(s.ctx, storage.Eq{Field: "parent_id", Value: nil})
		s.Require().NoError(err)
		s.Equal(1, n)
	})

	s.Run("enum value", func() {
		n, err := s.db.Organizations().Count(s.ctx, storage.Eq{Field: "org_type", Value: models.OrgTypeLegalEntity})
		s.Require().NoError(err)
		s.Equal(2, n)
	})

	s.Run("in", func() {
		n, err := s.db.Organizations().Count(s.ctx, storage.In{Field: "id", Values: []int64{1, 3, 99}})
		s.Require().NoError(err)
		s.Equal(2, n)
	})

	s.Run("search is case insensitive", func() {
		n, err := s.db.Organizations().Count(s.ctx, storage.Search{Fields: []string{"name", "code"}, Term: "le"})
		s.Require().NoError(err)
		s.Equal(2, n)
	})
}

func (s *MemoryStoreSuite) TestActiveOn() {
	end := models.NewDate(2024, time.June, 30)
	rows := []models.StaffPosition{
		{StaffID: 1, PositionID: 1, Period: models.Period{IsActive: true, StartDate: models.NewDate(2024, time.January, 1), EndDate: &end}},
		{StaffID: 1, PositionID: 2, Period: models.Period{IsActive: true, StartDate: models.NewDate(2024, time.March, 1)}},
		{StaffID: 1, PositionID: 3, Period: models.Period{IsActive: false, StartDate: models.NewDate(2024, time.January, 1)}},
	}
	for i := range rows {
		s.Require().NoError(s.db.StaffPositions().Create(s.ctx, &rows[i]))
	}

	at := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)
	current, err := s.db.StaffPositions().List(s.ctx, storage.Where(storage.ActiveOn{Date: at}))
	s.Require().NoError(err)
	s.Require().Len(current, 1)
	s.Equal(int64(2), current[0].PositionID)

	withInactive, err := s.db.StaffPositions().Count(s.ctx, storage.ActiveOn{Date: at, IncludeInactive: true})
	s.Require().NoError(err)
	s.Equal(2, withInactive)
}

func (s *MemoryStoreSuite) TestSetWhereAndDeleteWhere() {
	for _, pos := range []int64{1, 2, 3} {
		rec := &models.StaffPosition{StaffID: 10, PositionID: pos, IsPrimary: true}
		s.Require().NoError(s.db.StaffPositions().Create(s.ctx, rec))
	}

	n, err := s.db.StaffPositions().SetWhere(s.ctx, "is_primary", false,
		storage.Eq{Field: "staff_id", Value: int64(10)}, storage.NotEq{Field: "id", Value: int64(3)})
	s.Require().NoError(err)
	s.Equal(2, n)

	primaries, err := s.db.StaffPositions().List(s.ctx, storage.Where(storage.Eq{Field: "is_primary", Value: true}))
	s.Require().NoError(err)
	s.Require().Len(primaries, 1)
	s.Equal(int64(3), primaries[0].ID)

	n, err = s.db.StaffPositions().SetWhere(s.ctx, "division_id", int64(7), storage.Eq{Field: "id", Value: int64(1)})
	s.Require().NoError(err)
	s.Equal(1, n)
	got, err := s.db.StaffPositions().Get(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().NotNil(got.DivisionID)
	s.Equal(int64(7), *got.DivisionID)

	deleted, err := s.db.StaffPositions().DeleteWhere(s.ctx, storage.Eq{Field: "staff_id", Value: int64(10)})
	s.Require().NoError(err)
	s.Equal(3, deleted)
}

func (s *MemoryStoreSuite) TestRunInTxRollsBackOnError() {
	boom := errors.New("boom")
	err := s.db.RunInTx(s.ctx, func(ctx context.Context, tx storage.Gateway) error {
		org := &models.Organization{Name: "T", Code: "T", OrgType: models.OrgTypeHolding}
		if err := tx.Organizations().Create(ctx, org); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	n, err := s.db.Organizations().Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)

	// the sequence is restored too
	org := s.createOrg("AFTER", models.OrgTypeHolding, nil)
	s.Equal(int64(1), org.ID)
}

func (s *MemoryStoreSuite) TestRunInTxCommits() {
	err := s.db.RunInTx(s.ctx, func(ctx context.Context, tx storage.Gateway) error {
		return tx.Positions().Create(ctx, &models.Position{Name: "CEO", Attribute: models.AttributeTopMgmt})
	})
	s.Require().NoError(err)

	_, err = s.db.Positions().Find(s.ctx, storage.Eq{Field: "name", Value: "CEO"})
	s.NoError(err)
}

func (s *MemoryStoreSuite) TestRunInTxCancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	err := s.db.RunInTx(ctx, func(context.Context, storage.Gateway) error { return nil })
	s.ErrorIs(err, sentinel.ErrUnavailable)
}
