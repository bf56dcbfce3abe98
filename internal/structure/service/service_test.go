package service_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"orgstructure/internal/crud"
	"orgstructure/internal/models"
	"orgstructure/internal/storage"
	"orgstructure/internal/storage/memory"
	"orgstructure/internal/structure/service"
	dErrors "orgstructure/pkg/domain-errors"
	"orgstructure/pkg/requestcontext"
)

type StructureSuite struct {
	suite.Suite
	db  *memory.DB
	svc *service.Service
	ctx context.Context
}

func TestStructureSuite(t *testing.T) {
	suite.Run(t, new(StructureSuite))
}

func (s *StructureSuite) SetupTest() {
	s.db = memory.New()
	runner := crud.NewRunner(s.db, crud.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	s.svc = service.New(runner)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
}

func ptr[T any](v T) *T { return &v }

func (s *StructureSuite) holding(code string) *models.Organization {
	org, err := s.svc.CreateOrganization(s.ctx, models.OrganizationCreate{Name: code, Code: code, OrgType: models.OrgTypeHolding})
	s.Require().NoError(err)
	return org
}

func (s *StructureSuite) TestOrganizationComposition() {
	h := s.holding("H")
	le, err := s.svc.CreateOrganization(s.ctx, models.OrganizationCreate{Name: "LE", Code: "LE", OrgType: models.OrgTypeLegalEntity, ParentID: &h.ID})
	s.Require().NoError(err)
	_, err = s.svc.CreateOrganization(s.ctx, models.OrganizationCreate{Name: "LOC", Code: "LOC", OrgType: models.OrgTypeLocation, ParentID: &le.ID})
	s.Require().NoError(err)

	_, err = s.svc.CreateOrganization(s.ctx, models.OrganizationCreate{Name: "BAD", Code: "BAD", OrgType: models.OrgTypeLocation, ParentID: &h.ID})
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = s.svc.CreateOrganization(s.ctx, models.OrganizationCreate{Name: "X", Code: "X", OrgType: models.OrgTypeLegalEntity, ParentID: ptr(int64(999))})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	children, total, err := s.svc.OrganizationChildren(s.ctx, h.ID, storage.Query{})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal(le.ID, children[0].ID)
}

func (s *StructureSuite) TestDeleteOrganizationWithChildrenConflicts() {
	h := s.holding("H")
	_, err := s.svc.CreateOrganization(s.ctx, models.OrganizationCreate{Name: "LE", Code: "LE", OrgType: models.OrgTypeLegalEntity, ParentID: &h.ID})
	s.Require().NoError(err)

	err = s.svc.DeleteOrganization(s.ctx, h.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	_, err = s.svc.GetOrganization(s.ctx, h.ID)
	s.NoError(err)
}

func (s *StructureSuite) TestDeleteOrganizationWithDivisionsConflicts() {
	h := s.holding("H")
	_, err := s.svc.CreateDivision(s.ctx, models.DivisionCreate{Name: "D", Code: "D", OrganizationID: h.ID})
	s.Require().NoError(err)
	s.True(dErrors.HasCode(s.svc.DeleteOrganization(s.ctx, h.ID), dErrors.CodeConflict))
}

func (s *StructureSuite) TestDivisionRequiresHolding() {
	board, err := s.svc.CreateOrganization(s.ctx, models.OrganizationCreate{Name: "B", Code: "B", OrgType: models.OrgTypeBoard})
	s.Require().NoError(err)
	_, err = s.svc.CreateDivision(s.ctx, models.DivisionCreate{Name: "D", Code: "D", OrganizationID: board.ID})
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *StructureSuite) TestDeleteDivisionDetachesPositions() {
	h := s.holding("H")
	div, err := s.svc.CreateDivision(s.ctx, models.DivisionCreate{Name: "D", Code: "D", OrganizationID: h.ID})
	s.Require().NoError(err)
	pos, err := s.svc.CreatePosition(s.ctx, models.PositionCreate{Name: "Head", DivisionID: &div.ID})
	s.Require().NoError(err)
	s.Require().NoError(s.db.UnitManagement().Create(s.ctx, &models.UnitManagement{
		PositionID: pos.ID, ManagedType: models.ManagedDivision, ManagedID: div.ID,
		Period: models.Period{IsActive: true, StartDate: models.NewDate(2024, 1, 1)},
	}))

	s.Require().NoError(s.svc.DeleteDivision(s.ctx, div.ID))

	got, err := s.svc.GetPosition(s.ctx, pos.ID)
	s.Require().NoError(err)
	s.Nil(got.DivisionID)
	n, err := s.db.UnitManagement().Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *StructureSuite) TestDeleteDivisionWithSectionsConflicts() {
	h := s.holding("H")
	div, err := s.svc.CreateDivision(s.ctx, models.DivisionCreate{Name: "D", Code: "D", OrganizationID: h.ID})
	s.Require().NoError(err)
	_, err = s.svc.CreateSection(s.ctx, models.SectionCreate{Name: "S", DivisionID: div.ID})
	s.Require().NoError(err)
	s.True(dErrors.HasCode(s.svc.DeleteDivision(s.ctx, div.ID), dErrors.CodeConflict))

	sections, total, err := s.svc.DivisionSections(s.ctx, div.ID, storage.Query{})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal("S", sections[0].Name)
}

func (s *StructureSuite) TestPositionSectionMustBelongToDivision() {
	h := s.holding("H")
	d1, err := s.svc.CreateDivision(s.ctx, models.DivisionCreate{Name: "D1", Code: "D1", OrganizationID: h.ID})
	s.Require().NoError(err)
	d2, err := s.svc.CreateDivision(s.ctx, models.DivisionCreate{Name: "D2", Code: "D2", OrganizationID: h.ID})
	s.Require().NoError(err)
	sec, err := s.svc.CreateSection(s.ctx, models.SectionCreate{Name: "S", DivisionID: d1.ID})
	s.Require().NoError(err)

	_, err = s.svc.CreatePosition(s.ctx, models.PositionCreate{Name: "P", DivisionID: &d2.ID, SectionID: &sec.ID})
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *StructureSuite) TestFunctionNameAndCodeUnique() {
	_, err := s.svc.CreateFunction(s.ctx, models.FunctionCreate{Name: "Sales", Code: "F1"})
	s.Require().NoError(err)
	_, err = s.svc.CreateFunction(s.ctx, models.FunctionCreate{Name: "Sales", Code: "F2"})
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	_, err = s.svc.CreateFunction(s.ctx, models.FunctionCreate{Name: "Other", Code: "F1"})
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *StructureSuite) TestValueFunctionTargetDate() {
	fn, err := s.svc.CreateFunction(s.ctx, models.FunctionCreate{Name: "Sales", Code: "F1"})
	s.Require().NoError(err)
	_, err = s.svc.CreateValueFunction(s.ctx, models.ValueFunctionCreate{
		FunctionID: fn.ID, Name: "Q1",
		StartDate:  ptr(models.NewDate(2024, 3, 1)),
		TargetDate: ptr(models.NewDate(2024, 2, 1)),
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	vf, err := s.svc.CreateValueFunction(s.ctx, models.ValueFunctionCreate{FunctionID: fn.ID, Name: "Q1", Progress: ptr(30)})
	s.Require().NoError(err)
	s.Equal(models.StatusNotStarted, vf.Status)
	s.Equal(1, vf.Priority)

	_, err = s.svc.UpdateValueFunction(s.ctx, vf.ID, models.ValueFunctionUpdate{Progress: models.Some(150)})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *StructureSuite) TestDeleteFunctionCascades() {
	fn, err := s.svc.CreateFunction(s.ctx, models.FunctionCreate{Name: "Sales", Code: "F1"})
	s.Require().NoError(err)
	_, err = s.svc.CreateValueFunction(s.ctx, models.ValueFunctionCreate{FunctionID: fn.ID, Name: "Q1"})
	s.Require().NoError(err)

	s.Require().NoError(s.svc.DeleteFunction(s.ctx, fn.ID))
	_, total, err := s.svc.ListValueFunctions(s.ctx, storage.Query{})
	s.Require().NoError(err)
	s.Zero(total)
}

func (s *StructureSuite) TestDeletePositionCascadesHierarchy() {
	a, err := s.svc.CreatePosition(s.ctx, models.PositionCreate{Name: "A"})
	s.Require().NoError(err)
	b, err := s.svc.CreatePosition(s.ctx, models.PositionCreate{Name: "B"})
	s.Require().NoError(err)
	s.Require().NoError(s.db.HierarchyRelations().Create(s.ctx, &models.HierarchyRelation{
		SuperiorPositionID: a.ID, SubordinatePositionID: b.ID, Priority: 1,
		Period: models.Period{IsActive: true, StartDate: models.NewDate(2024, 1, 1)},
	}))

	s.Require().NoError(s.svc.DeletePosition(s.ctx, b.ID))
	n, err := s.db.HierarchyRelations().Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *StructureSuite) TestRoundTrip() {
	h := s.holding("H")
	got, err := s.svc.GetOrganization(s.ctx, h.ID)
	s.Require().NoError(err)
	s.Equal("H", got.Name)

	updated, err := s.svc.UpdateOrganization(s.ctx, h.ID, models.OrganizationUpdate{})
	s.Require().NoError(err)
	s.Equal(got.Name, updated.Name)
	s.Equal(got.Code, updated.Code)

	s.Require().NoError(s.svc.DeleteOrganization(s.ctx, h.ID))
	_, err = s.svc.GetOrganization(s.ctx, h.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.True(dErrors.HasCode(s.svc.DeleteOrganization(s.ctx, h.ID), dErrors.CodeNotFound))
}
