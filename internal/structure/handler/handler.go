// Package handler exposes the reference data endpoints. Reads need an
// authenticated user; writes need a superuser.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"orgstructure/internal/models"
	"orgstructure/internal/platform/middleware"
	"orgstructure/internal/storage"
	"orgstructure/internal/transport/http/filter"
	"orgstructure/internal/transport/http/rest"
)

// Service is the reference data API consumed by the handler.
type Service interface {
	CreateOrganization(ctx context.Context, in models.OrganizationCreate) (*models.Organization, error)
	GetOrganization(ctx context.Context, id int64) (*models.Organization, error)
	ListOrganizations(ctx context.Context, q storage.Query) ([]*models.Organization, int, error)
	OrganizationChildren(ctx context.Context, id int64, q storage.Query) ([]*models.Organization, int, error)
	UpdateOrganization(ctx context.Context, id int64, in models.OrganizationUpdate) (*models.Organization, error)
	DeleteOrganization(ctx context.Context, id int64) error

	CreateDivision(ctx context.Context, in models.DivisionCreate) (*models.Division, error)
	GetDivision(ctx context.Context, id int64) (*models.Division, error)
	ListDivisions(ctx context.Context, q storage.Query) ([]*models.Division, int, error)
	DivisionSections(ctx context.Context, id int64, q storage.Query) ([]*models.Section, int, error)
	UpdateDivision(ctx context.Context, id int64, in models.DivisionUpdate) (*models.Division, error)
	DeleteDivision(ctx context.Context, id int64) error

	CreateSection(ctx context.Context, in models.SectionCreate) (*models.Section, error)
	GetSection(ctx context.Context, id int64) (*models.Section, error)
	ListSections(ctx context.Context, q storage.Query) ([]*models.Section, int, error)
	UpdateSection(ctx context.Context, id int64, in models.SectionUpdate) (*models.Section, error)
	DeleteSection(ctx context.Context, id int64) error

	CreateFunction(ctx context.Context, in models.FunctionCreate) (*models.Function, error)
	GetFunction(ctx context.Context, id int64) (*models.Function, error)
	ListFunctions(ctx context.Context, q storage.Query) ([]*models.Function, int, error)
	UpdateFunction(ctx context.Context, id int64, in models.FunctionUpdate) (*models.Function, error)
	DeleteFunction(ctx context.Context, id int64) error

	CreateValueFunction(ctx context.Context, in models.ValueFunctionCreate) (*models.ValueFunction, error)
	GetValueFunction(ctx context.Context, id int64) (*models.ValueFunction, error)
	ListValueFunctions(ctx context.Context, q storage.Query) ([]*models.ValueFunction, int, error)
	UpdateValueFunction(ctx context.Context, id int64, in models.ValueFunctionUpdate) (*models.ValueFunction, error)
	DeleteValueFunction(ctx context.Context, id int64) error

	CreatePosition(ctx context.Context, in models.PositionCreate) (*models.Position, error)
	GetPosition(ctx context.Context, id int64) (*models.Position, error)
	ListPositions(ctx context.Context, q storage.Query) ([]*models.Position, int, error)
	UpdatePosition(ctx context.Context, id int64, in models.PositionUpdate) (*models.Position, error)
	DeletePosition(ctx context.Context, id int64) error
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the routes on an authenticated router.
func (h *Handler) Register(r chi.Router) {
	admin := middleware.RequireSuperuser(h.logger)

	rest.Resource[models.OrganizationCreate, models.OrganizationUpdate, *models.Organization]{
		List: h.svc.ListOrganizations, Query: organizationQuery,
		Create: h.svc.CreateOrganization, Get: h.svc.GetOrganization,
		Update: h.svc.UpdateOrganization, Delete: h.svc.DeleteOrganization,
	}.Mount(r, "/organizations", h.logger, admin)
	r.Get("/organizations/{id}/children", rest.ListOf(h.logger, organizationQuery, h.svc.OrganizationChildren))

	rest.Resource[models.DivisionCreate, models.DivisionUpdate, *models.Division]{
		List: h.svc.ListDivisions, Query: divisionQuery,
		Create: h.svc.CreateDivision, Get: h.svc.GetDivision,
		Update: h.svc.UpdateDivision, Delete: h.svc.DeleteDivision,
	}.Mount(r, "/divisions", h.logger, admin)
	r.Get("/divisions/{id}/sections", rest.ListOf(h.logger, sectionQuery, h.svc.DivisionSections))

	rest.Resource[models.SectionCreate, models.SectionUpdate, *models.Section]{
		List: h.svc.ListSections, Query: sectionQuery,
		Create: h.svc.CreateSection, Get: h.svc.GetSection,
		Update: h.svc.UpdateSection, Delete: h.svc.DeleteSection,
	}.Mount(r, "/sections", h.logger, admin)

	rest.Resource[models.FunctionCreate, models.FunctionUpdate, *models.Function]{
		List: h.svc.ListFunctions, Query: functionQuery,
		Create: h.svc.CreateFunction, Get: h.svc.GetFunction,
		Update: h.svc.UpdateFunction, Delete: h.svc.DeleteFunction,
	}.Mount(r, "/functions", h.logger, admin)

	rest.Resource[models.ValueFunctionCreate, models.ValueFunctionUpdate, *models.ValueFunction]{
		List: h.svc.ListValueFunctions, Query: valueFunctionQuery,
		Create: h.svc.CreateValueFunction, Get: h.svc.GetValueFunction,
		Update: h.svc.UpdateValueFunction, Delete: h.svc.DeleteValueFunction,
	}.Mount(r, "/value-functions", h.logger, admin)

	rest.Resource[models.PositionCreate, models.PositionUpdate, *models.Position]{
		List: h.svc.ListPositions, Query: positionQuery,
		Create: h.svc.CreatePosition, Get: h.svc.GetPosition,
		Update: h.svc.UpdatePosition, Delete: h.svc.DeletePosition,
	}.Mount(r, "/positions", h.logger, admin)
}

func organizationQuery(r *http.Request) (storage.Query, error) {
	return filter.New(r).
		Enum("org_type", "org_type", filter.OrgTypes()...).
		ID("parent_id", "parent_id").
		Active().
		Search("name", "code").
		Query()
}

func divisionQuery(r *http.Request) (storage.Query, error) {
	return filter.New(r).
		ID("organization_id", "organization_id").
		ID("parent_id", "parent_id").
		Active().
		Search("name", "code").
		Query()
}

func sectionQuery(r *http.Request) (storage.Query, error) {
	return filter.New(r).ID("division_id", "division_id").Active().Search("name").Query()
}

func functionQuery(r *http.Request) (storage.Query, error) {
	return filter.New(r).ID("section_id", "section_id").Active().Search("name", "code").Query()
}

func valueFunctionQuery(r *http.Request) (storage.Query, error) {
	return filter.New(r).
		ID("function_id", "function_id").
		Enum("status", "status", "not_started", "in_progress", "completed", "blocked", "delayed").
		Enum("function_type", "function_type", "strategic", "operational", "supportive", "innovative").
		Active().
		Search("name").
		Query()
}

func positionQuery(r *http.Request) (storage.Query, error) {
	return filter.New(r).
		ID("division_id", "division_id").
		ID("section_id", "section_id").
		Enum("attribute", "attribute", "Board", "TopMgmt", "Director", "DeptHead", "SectionHead", "Specialist").
		Active().
		Search("name").
		Query()
}
