// Package handler exposes the relation endpoints and the primary/current
// lookups hanging off staff and positions.
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
	"orgstructure/pkg/platform/httputil"
)

type Service interface {
	CreateStaffPosition(ctx context.Context, in models.StaffPositionCreate) (*models.StaffPosition, error)
	GetStaffPosition(ctx context.Context, id int64) (*models.StaffPosition, error)
	ListStaffPositions(ctx context.Context, q storage.Query) ([]*models.StaffPosition, int, error)
	UpdateStaffPosition(ctx context.Context, id int64, in models.StaffPositionUpdate) (*models.StaffPosition, error)
	DeleteStaffPosition(ctx context.Context, id int64) error
	SetPrimaryStaffPosition(ctx context.Context, id int64) (*models.StaffPosition, error)

	CreateStaffFunction(ctx context.Context, in models.StaffFunctionCreate) (*models.StaffFunction, error)
	GetStaffFunction(ctx context.Context, id int64) (*models.StaffFunction, error)
	ListStaffFunctions(ctx context.Context, q storage.Query) ([]*models.StaffFunction, int, error)
	UpdateStaffFunction(ctx context.Context, id int64, in models.StaffFunctionUpdate) (*models.StaffFunction, error)
	DeleteStaffFunction(ctx context.Context, id int64) error
	SetPrimaryStaffFunction(ctx context.Context, id int64) (*models.StaffFunction, error)

	CreateStaffLocation(ctx context.Context, in models.StaffLocationCreate) (*models.StaffLocation, error)
	GetStaffLocation(ctx context.Context, id int64) (*models.StaffLocation, error)
	ListStaffLocations(ctx context.Context, q storage.Query) ([]*models.StaffLocation, int, error)
	UpdateStaffLocation(ctx context.Context, id int64, in models.StaffLocationUpdate) (*models.StaffLocation, error)
	DeleteStaffLocation(ctx context.Context, id int64) error
	SetCurrentStaffLocation(ctx context.Context, id int64) (*models.StaffLocation, error)

	CreateAssignment(ctx context.Context, in models.FunctionalAssignmentCreate) (*models.FunctionalAssignment, error)
	GetAssignment(ctx context.Context, id int64) (*models.FunctionalAssignment, error)
	ListAssignments(ctx context.Context, q storage.Query) ([]*models.FunctionalAssignment, int, error)
	UpdateAssignment(ctx context.Context, id int64, in models.FunctionalAssignmentUpdate) (*models.FunctionalAssignment, error)
	DeleteAssignment(ctx context.Context, id int64) error
	SetPrimaryAssignment(ctx context.Context, id int64) (*models.FunctionalAssignment, error)

	CreateFunctionalRelation(ctx context.Context, in models.FunctionalRelationCreate) (*models.FunctionalRelation, error)
	GetFunctionalRelation(ctx context.Context, id int64) (*models.FunctionalRelation, error)
	ListFunctionalRelations(ctx context.Context, q storage.Query) ([]*models.FunctionalRelation, int, error)
	UpdateFunctionalRelation(ctx context.Context, id int64, in models.FunctionalRelationUpdate) (*models.FunctionalRelation, error)
	DeleteFunctionalRelation(ctx context.Context, id int64) error

	CreateHierarchyRelation(ctx context.Context, in models.HierarchyRelationCreate) (*models.HierarchyRelation, error)
	GetHierarchyRelation(ctx context.Context, id int64) (*models.HierarchyRelation, error)
	ListHierarchyRelations(ctx context.Context, q storage.Query) ([]*models.HierarchyRelation, int, error)
	UpdateHierarchyRelation(ctx context.Context, id int64, in models.HierarchyRelationUpdate) (*models.HierarchyRelation, error)
	DeleteHierarchyRelation(ctx context.Context, id int64) error

	CreateUnitManagement(ctx context.Context, in models.UnitManagementCreate) (*models.UnitManagement, error)
	GetUnitManagement(ctx context.Context, id int64) (*models.UnitManagement, error)
	ListUnitManagement(ctx context.Context, q storage.Query) ([]*models.UnitManagement, int, error)
	UpdateUnitManagement(ctx context.Context, id int64, in models.UnitManagementUpdate) (*models.UnitManagement, error)
	DeleteUnitManagement(ctx context.Context, id int64) error

	PrimaryPosition(ctx context.Context, staffID int64, at *models.Date) (*models.StaffPosition, error)
	PrimaryFunction(ctx context.Context, staffID int64, at *models.Date) (*models.StaffFunction, error)
	CurrentLocation(ctx context.Context, staffID int64, at *models.Date) (*models.StaffLocation, error)
	PositionPrimaryFunction(ctx context.Context, positionID int64, at *models.Date) (*models.FunctionalAssignment, error)
	PositionFunctions(ctx context.Context, positionID int64, at *models.Date) ([]*models.Function, error)
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

	rest.Resource[models.StaffPositionCreate, models.StaffPositionUpdate, *models.StaffPosition]{
		List: h.svc.ListStaffPositions, Query: staffPositionQuery,
		Create: h.svc.CreateStaffPosition, Get: h.svc.GetStaffPosition,
		Update: h.svc.UpdateStaffPosition, Delete: h.svc.DeleteStaffPosition,
	}.Mount(r, "/staff-positions", h.logger, admin)
	r.With(admin).Post("/staff-positions/{id}/set-primary", rest.Get(h.logger, h.svc.SetPrimaryStaffPosition))

	rest.Resource[models.StaffFunctionCreate, models.StaffFunctionUpdate, *models.StaffFunction]{
		List: h.svc.ListStaffFunctions, Query: staffFunctionQuery,
		Create: h.svc.CreateStaffFunction, Get: h.svc.GetStaffFunction,
		Update: h.svc.UpdateStaffFunction, Delete: h.svc.DeleteStaffFunction,
	}.Mount(r, "/staff-functions", h.logger, admin)
	r.With(admin).Post("/staff-functions/{id}/set-primary", rest.Get(h.logger, h.svc.SetPrimaryStaffFunction))

	rest.Resource[models.StaffLocationCreate, models.StaffLocationUpdate, *models.StaffLocation]{
		List: h.svc.ListStaffLocations, Query: staffLocationQuery,
		Create: h.svc.CreateStaffLocation, Get: h.svc.GetStaffLocation,
		Update: h.svc.UpdateStaffLocation, Delete: h.svc.DeleteStaffLocation,
	}.Mount(r, "/staff-locations", h.logger, admin)
	r.With(admin).Post("/staff-locations/{id}/set-current", rest.Get(h.logger, h.svc.SetCurrentStaffLocation))

	rest.Resource[models.FunctionalAssignmentCreate, models.FunctionalAssignmentUpdate, *models.FunctionalAssignment]{
		List: h.svc.ListAssignments, Query: assignmentQuery,
		Create: h.svc.CreateAssignment, Get: h.svc.GetAssignment,
		Update: h.svc.UpdateAssignment, Delete: h.svc.DeleteAssignment,
	}.Mount(r, "/functional-assignments", h.logger, admin)
	r.With(admin).Post("/functional-assignments/{id}/set-primary", rest.Get(h.logger, h.svc.SetPrimaryAssignment))

	rest.Resource[models.FunctionalRelationCreate, models.FunctionalRelationUpdate, *models.FunctionalRelation]{
		List: h.svc.ListFunctionalRelations, Query: functionalRelationQuery,
		Create: h.svc.CreateFunctionalRelation, Get: h.svc.GetFunctionalRelation,
		Update: h.svc.UpdateFunctionalRelation, Delete: h.svc.DeleteFunctionalRelation,
	}.Mount(r, "/functional-relations", h.logger, admin)

	rest.Resource[models.HierarchyRelationCreate, models.HierarchyRelationUpdate, *models.HierarchyRelation]{
		List: h.svc.ListHierarchyRelations, Query: hierarchyRelationQuery,
		Create: h.svc.CreateHierarchyRelation, Get: h.svc.GetHierarchyRelation,
		Update: h.svc.UpdateHierarchyRelation, Delete: h.svc.DeleteHierarchyRelation,
	}.Mount(r, "/hierarchy-relations", h.logger, admin)

	rest.Resource[models.UnitManagementCreate, models.UnitManagementUpdate, *models.UnitManagement]{
		List: h.svc.ListUnitManagement, Query: unitManagementQuery,
		Create: h.svc.CreateUnitManagement, Get: h.svc.GetUnitManagement,
		Update: h.svc.UpdateUnitManagement, Delete: h.svc.DeleteUnitManagement,
	}.Mount(r, "/unit-management", h.logger, admin)

	r.Get("/staff/{id}/primary-position", lookup(h, h.svc.PrimaryPosition))
	r.Get("/staff/{id}/primary-function", lookup(h, h.svc.PrimaryFunction))
	r.Get("/staff/{id}/current-location", lookup(h, h.svc.CurrentLocation))
	r.Get("/positions/{id}/primary-function", lookup(h, h.svc.PositionPrimaryFunction))
	r.Get("/positions/{id}/functions", lookup(h, h.svc.PositionFunctions))
}

// lookup serves a read keyed by {id} with an optional at=YYYY-MM-DD.
func lookup[T any](h *Handler, fn func(ctx context.Context, id int64, at *models.Date) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := rest.ID(r)
		if err != nil {
			rest.WriteError(w, r, h.logger, err)
			return
		}
		at, err := filter.At(r)
		if err != nil {
			rest.WriteError(w, r, h.logger, err)
			return
		}
		out, err := fn(r.Context(), id, at)
		if err != nil {
			rest.WriteError(w, r, h.logger, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, out)
	}
}

func staffPositionQuery(r *http.Request) (storage.Query, error) {
	return filter.New(r).
		ID("staff_id", "staff_id").
		ID("position_id", "position_id").
		ID("division_id", "division_id").
		ID("location_id", "location_id").
		Bool("is_primary", "is_primary").
		Current().
		Query()
}

func staffFunctionQuery(r *http.Request) (storage.Query, error) {
	return filter.New(r).
		ID("staff_id", "staff_id").
		ID("function_id", "function_id").
		Bool("is_primary", "is_primary").
		Current().
		Query()
}

func staffLocationQuery(r *http.Request) (storage.Query, error) {
	return filter.New(r).
		ID("staff_id", "staff_id").
		ID("location_id", "location_id").
		Bool("is_current", "is_current").
		Current().
		Query()
}

func assignmentQuery(r *http.Request) (storage.Query, error) {
	return filter.New(r).
		ID("position_id", "position_id").
		ID("function_id", "function_id").
		Bool("is_primary", "is_primary").
		Current().
		Query()
}

func functionalRelationQuery(r *http.Request) (storage.Query, error) {
	return filter.New(r).
		ID("manager_id", "manager_id").
		ID("subordinate_id", "subordinate_id").
		Enum("relation_type", "relation_type", filter.RelationTypes()...).
		Current().
		Query()
}

func hierarchyRelationQuery(r *http.Request) (storage.Query, error) {
	return filter.New(r).
		ID("superior_position_id", "superior_position_id").
		ID("subordinate_position_id", "subordinate_position_id").
		Current().
		Query()
}

func unitManagementQuery(r *http.Request) (storage.Query, error) {
	return filter.New(r).
		ID("position_id", "position_id").
		Enum("managed_type", "managed_type", string(models.ManagedDivision), string(models.ManagedSection)).
		ID("managed_id", "managed_id").
		Current().
		Query()
}
