// Package memory is an in-process storage backend for tests and local
// development. Transactions serialize on a single lock and roll back by
// restoring table snapshots.
package memory

import (
	"context"
	"fmt"
	"sync"

	"orgstructure/internal/models"
	"orgstructure/internal/storage"
	"orgstructure/pkg/platform/sentinel"
)

var (
	specOrganizations  = tableSpec{name: "organizations", order: []string{"code"}, uniques: [][]string{{"code"}}}
	specDivisions      = tableSpec{name: "divisions", order: []string{"code"}, uniques: [][]string{{"code"}}}
	specSections       = tableSpec{name: "sections", order: []string{"name"}}
	specFunctions      = tableSpec{name: "functions", order: []string{"code"}, uniques: [][]string{{"code"}, {"name"}}}
	specValueFunctions = tableSpec{name: "value_functions", order: []string{"function_id", "name"}, uniques: [][]string{{"name", "function_id"}}}
	specPositions      = tableSpec{name: "positions", order: []string{"name"}, uniques: [][]string{{"name"}}}
	specStaff          = tableSpec{name: "staff", order: []string{"email"}, uniques: [][]string{{"email"}}}
	specUsers          = tableSpec{name: "users", order: []string{"email"}, uniques: [][]string{{"email"}}}
	specStaffPositions = tableSpec{name: "staff_positions"}
	specStaffFunctions = tableSpec{name: "staff_functions"}
	specStaffLocations = tableSpec{name: "staff_locations"}
	specAssignments    = tableSpec{name: "functional_assignments"}
	specFunctionalRels = tableSpec{name: "functional_relations"}
	specHierarchyRels  = tableSpec{name: "hierarchy_relations"}
	specUnitManagement = tableSpec{name: "unit_management"}
)

// DB holds every table. It implements storage.Store.
type DB struct {
	mu sync.RWMutex

	organizations  *rows[models.Organization]
	divisions      *rows[models.Division]
	sections       *rows[models.Section]
	functions      *rows[models.Function]
	valueFunctions *rows[models.ValueFunction]
	positions      *rows[models.Position]
	staff          *rows[models.Staff]
	users          *rows[models.User]
	staffPositions *rows[models.StaffPosition]
	staffFunctions *rows[models.StaffFunction]
	staffLocations *rows[models.StaffLocation]
	assignments    *rows[models.FunctionalAssignment]
	functionalRels *rows[models.FunctionalRelation]
	hierarchyRels  *rows[models.HierarchyRelation]
	unitManagement *rows[models.UnitManagement]

	root *gateway
}

var _ storage.Store = (*DB)(nil)

// New returns an empty database.
func New() *DB {
	db := &DB{
		organizations:  newRows[models.Organization](),
		divisions:      newRows[models.Division](),
		sections:       newRows[models.Section](),
		functions:      newRows[models.Function](),
		valueFunctions: newRows[models.ValueFunction](),
		positions:      newRows[models.Position](),
		staff:          newRows[models.Staff](),
		users:          newRows[models.User](),
		staffPositions: newRows[models.StaffPosition](),
		staffFunctions: newRows[models.StaffFunction](),
		staffLocations: newRows[models.StaffLocation](),
		assignments:    newRows[models.FunctionalAssignment](),
		functionalRels: newRows[models.FunctionalRelation](),
		hierarchyRels:  newRows[models.HierarchyRelation](),
		unitManagement: newRows[models.UnitManagement](),
	}
	db.root = db.newGateway(false)
	return db
}

// RunInTx holds the write lock for the whole of fn and restores every table
// if fn fails or the context ends first.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx storage.Gateway) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w: %w", sentinel.ErrUnavailable, err)
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	restore := db.snapshot()
	if err := fn(ctx, db.newGateway(true)); err != nil {
		restore()
		return err
	}
	if err := ctx.Err(); err != nil {
		restore()
		return fmt.Errorf("commit transaction: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (db *DB) snapshot() func() {
	restores := []func(){
		db.organizations.snapshot(), db.divisions.snapshot(), db.sections.snapshot(),
		db.functions.snapshot(), db.valueFunctions.snapshot(), db.positions.snapshot(),
		db.staff.snapshot(), db.users.snapshot(), db.staffPositions.snapshot(),
		db.staffFunctions.snapshot(), db.staffLocations.snapshot(), db.assignments.snapshot(),
		db.functionalRels.snapshot(), db.hierarchyRels.snapshot(), db.unitManagement.snapshot(),
	}
	return func() {
		for _, r := range restores {
			r()
		}
	}
}

func (db *DB) Ping(context.Context) error { return nil }

func (db *DB) Close() error { return nil }

func (db *DB) Organizations() storage.Repository[models.Organization] {
	return db.root.organizations
}
func (db *DB) Divisions() storage.Repository[models.Division]   { return db.root.divisions }
func (db *DB) Sections() storage.Repository[models.Section]     { return db.root.sections }
func (db *DB) Functions() storage.Repository[models.Function]   { return db.root.functions }
func (db *DB) Positions() storage.Repository[models.Position]   { return db.root.positions }
func (db *DB) Staff() storage.Repository[models.Staff]          { return db.root.staff }
func (db *DB) Users() storage.Repository[models.User]           { return db.root.users }
func (db *DB) ValueFunctions() storage.Repository[models.ValueFunction] {
	return db.root.valueFunctions
}
func (db *DB) StaffPositions() storage.Repository[models.StaffPosition] {
	return db.root.staffPositions
}
func (db *DB) StaffFunctions() storage.Repository[models.StaffFunction] {
	return db.root.staffFunctions
}
func (db *DB) StaffLocations() storage.Repository[models.StaffLocation] {
	return db.root.staffLocations
}
func (db *DB) FunctionalAssignments() storage.Repository[models.FunctionalAssignment] {
	return db.root.assignments
}
func (db *DB) FunctionalRelations() storage.Repository[models.FunctionalRelation] {
	return db.root.functionalRels
}
func (db *DB) HierarchyRelations() storage.Repository[models.HierarchyRelation] {
	return db.root.hierarchyRels
}
func (db *DB) UnitManagement() storage.Repository[models.UnitManagement] {
	return db.root.unitManagement
}

func (db *DB) Serialize(ctx context.Context, name string) error {
	return db.root.Serialize(ctx, name)
}

type gateway struct {
	organizations  *table[models.Organization, *models.Organization]
	divisions      *table[models.Division, *models.Division]
	sections       *table[models.Section, *models.Section]
	functions      *table[models.Function, *models.Function]
	valueFunctions *table[models.ValueFunction, *models.ValueFunction]
	positions      *table[models.Position, *models.Position]
	staff          *table[models.Staff, *models.Staff]
	users          *table[models.User, *models.User]
	staffPositions *table[models.StaffPosition, *models.StaffPosition]
	staffFunctions *table[models.StaffFunction, *models.StaffFunction]
	staffLocations *table[models.StaffLocation, *models.StaffLocation]
	assignments    *table[models.FunctionalAssignment, *models.FunctionalAssignment]
	functionalRels *table[models.FunctionalRelation, *models.FunctionalRelation]
	hierarchyRels  *table[models.HierarchyRelation, *models.HierarchyRelation]
	unitManagement *table[models.UnitManagement, *models.UnitManagement]
}

func (db *DB) newGateway(inTx bool) *gateway {
	return &gateway{
		organizations:  newTable[models.Organization, *models.Organization](db, db.organizations, specOrganizations, inTx),
		divisions:      newTable[models.Division, *models.Division](db, db.divisions, specDivisions, inTx),
		sections:       newTable[models.Section, *models.Section](db, db.sections, specSections, inTx),
		functions:      newTable[models.Function, *models.Function](db, db.functions, specFunctions, inTx),
		valueFunctions: newTable[models.ValueFunction, *models.ValueFunction](db, db.valueFunctions, specValueFunctions, inTx),
		positions:      newTable[models.Position, *models.Position](db, db.positions, specPositions, inTx),
		staff:          newTable[models.Staff, *models.Staff](db, db.staff, specStaff, inTx),
		users:          newTable[models.User, *models.User](db, db.users, specUsers, inTx),
		staffPositions: newTable[models.StaffPosition, *models.StaffPosition](db, db.staffPositions, specStaffPositions, inTx),
		staffFunctions: newTable[models.StaffFunction, *models.StaffFunction](db, db.staffFunctions, specStaffFunctions, inTx),
		staffLocations: newTable[models.StaffLocation, *models.StaffLocation](db, db.staffLocations, specStaffLocations, inTx),
		assignments:    newTable[models.FunctionalAssignment, *models.FunctionalAssignment](db, db.assignments, specAssignments, inTx),
		functionalRels: newTable[models.FunctionalRelation, *models.FunctionalRelation](db, db.functionalRels, specFunctionalRels, inTx),
		hierarchyRels:  newTable[models.HierarchyRelation, *models.HierarchyRelation](db, db.hierarchyRels, specHierarchyRels, inTx),
		unitManagement: newTable[models.UnitManagement, *models.UnitManagement](db, db.unitManagement, specUnitManagement, inTx),
	}
}

func (g *gateway) Organizations() storage.Repository[models.Organization] { return g.organizations }
func (g *gateway) Divisions() storage.Repository[models.Division]         { return g.divisions }
func (g *gateway) Sections() storage.Repository[models.Section]           { return g.sections }
func (g *gateway) Functions() storage.Repository[models.Function]         { return g.functions }
func (g *gateway) ValueFunctions() storage.Repository[models.ValueFunction] {
	return g.valueFunctions
}
func (g *gateway) Positions() storage.Repository[models.Position] { return g.positions }
func (g *gateway) Staff() storage.Repository[models.Staff]        { return g.staff }
func (g *gateway) Users() storage.Repository[models.User]         { return g.users }
func (g *gateway) StaffPositions() storage.Repository[models.StaffPosition] {
	return g.staffPositions
}
func (g *gateway) StaffFunctions() storage.Repository[models.StaffFunction] {
	return g.staffFunctions
}
func (g *gateway) StaffLocations() storage.Repository[models.StaffLocation] {
	return g.staffLocations
}
func (g *gateway) FunctionalAssignments() storage.Repository[models.FunctionalAssignment] {
	return g.assignments
}
func (g *gateway) FunctionalRelations() storage.Repository[models.FunctionalRelation] {
	return g.functionalRels
}
func (g *gateway) HierarchyRelations() storage.Repository[models.HierarchyRelation] {
	return g.hierarchyRels
}
func (g *gateway) UnitManagement() storage.Repository[models.UnitManagement] {
	return g.unitManagement
}

// Serialize is a no-op: RunInTx already holds the store lock for the whole
// transaction.
func (g *gateway) Serialize(ctx context.Context, _ string) error {
	return ctx.Err()
}
