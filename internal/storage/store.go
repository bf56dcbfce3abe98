// Package storage defines the persistence gateway. Implementations live in
// the memory and postgres subpackages and are interchangeable: every service
// depends only on these interfaces.
package storage

import (
	"context"

	"orgstructure/internal/models"
)

// Repository is the per-entity persistence contract. Implementations return
// sentinel errors (pkg/platform/sentinel), optionally wrapped.
type Repository[T any] interface {
	Get(ctx context.Context, id int64) (*T, error)
	// Find returns the first row matching conds in the default order.
	Find(ctx context.Context, conds ...Cond) (*T, error)
	List(ctx context.Context, q Query) ([]*T, error)
	Count(ctx context.Context, conds ...Cond) (int, error)
	// Create assigns rec.ID. Timestamps are set by the caller.
	Create(ctx context.Context, rec *T) error
	// Update writes every column of rec.
	Update(ctx context.Context, rec *T) error
	Delete(ctx context.Context, id int64) error
	DeleteWhere(ctx context.Context, conds ...Cond) (int, error)
	// SetWhere assigns value to field on matching rows and refreshes updated_at.
	SetWhere(ctx context.Context, field string, value any, conds ...Cond) (int, error)
	// Lock takes a row lock for the rest of the transaction.
	Lock(ctx context.Context, id int64) error
}

// Gateway groups the repositories of every entity kind.
type Gateway interface {
	Organizations() Repository[models.Organization]
	Divisions() Repository[models.Division]
	Sections() Repository[models.Section]
	Functions() Repository[models.Function]
	ValueFunctions() Repository[models.ValueFunction]
	Positions() Repository[models.Position]
	Staff() Repository[models.Staff]
	Users() Repository[models.User]
	StaffPositions() Repository[models.StaffPosition]
	StaffFunctions() Repository[models.StaffFunction]
	StaffLocations() Repository[models.StaffLocation]
	FunctionalAssignments() Repository[models.FunctionalAssignment]
	FunctionalRelations() Repository[models.FunctionalRelation]
	HierarchyRelations() Repository[models.HierarchyRelation]
	UnitManagement() Repository[models.UnitManagement]
	// Serialize waits for and takes the named lock. It is held until the
	// surrounding transaction ends.
	Serialize(ctx context.Context, name string) error
}

// Transactor runs fn atomically. fn receives a Gateway bound to the
// transaction; returning an error rolls everything back.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Gateway) error) error
}

// Store is a complete storage backend.
type Store interface {
	Gateway
	Transactor
	Ping(ctx context.Context) error
	Close() error
}
