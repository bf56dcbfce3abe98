// Package postgres is the SQL storage backend. Queries are plain SQL built
// per table; schema lives in the embedded goose migrations.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"orgstructure/internal/models"
	"orgstructure/internal/storage"
	dErrors "orgstructure/pkg/domain-errors"
)

const defaultTxTimeout = 5 * time.Second

var tracer = otel.Tracer("orgstructure/storage/postgres")

var (
	specOrganizations  = tableSpec{name: "organizations", order: []string{"code"}}
	specDivisions      = tableSpec{name: "divisions", order: []string{"code"}}
	specSections       = tableSpec{name: "sections", order: []string{"name"}}
	specFunctions      = tableSpec{name: "functions", order: []string{"code"}}
	specValueFunctions = tableSpec{name: "value_functions", order: []string{"function_id", "name"}}
	specPositions      = tableSpec{name: "positions", order: []string{"name"}}
	specStaff          = tableSpec{name: "staff", order: []string{"email"}}
	specUsers          = tableSpec{name: "users", order: []string{"email"}}
	specStaffPositions = tableSpec{name: "staff_positions"}
	specStaffFunctions = tableSpec{name: "staff_functions"}
	specStaffLocations = tableSpec{name: "staff_locations"}
	specAssignments    = tableSpec{name: "functional_assignments"}
	specFunctionalRels = tableSpec{name: "functional_relations"}
	specHierarchyRels  = tableSpec{name: "hierarchy_relations"}
	specUnitManagement = tableSpec{name: "unit_management"}
)

// DB implements storage.Store over a Postgres connection pool.
type DB struct {
	db        *sqlx.DB
	logger    *slog.Logger
	txTimeout time.Duration
	root      *gateway
}

var _ storage.Store = (*DB)(nil)

type Option func(*DB)

func WithLogger(logger *slog.Logger) Option {
	return func(d *DB) {
		d.logger = logger
	}
}

// WithTxTimeout bounds transactions whose context carries no deadline.
func WithTxTimeout(timeout time.Duration) Option {
	return func(d *DB) {
		if timeout > 0 {
			d.txTimeout = timeout
		}
	}
}

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func WithPool(cfg PoolConfig) Option {
	return func(d *DB) {
		if cfg.MaxOpenConns > 0 {
			d.db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			d.db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			d.db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string, opts ...Option) (*DB, error) {
	conn, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	d := New(conn.DB, opts...)
	if err := d.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return d, nil
}

// New wraps an existing *sql.DB.
func New(conn *sql.DB, opts ...Option) *DB {
	d := &DB{
		db:        sqlx.NewDb(conn, "postgres"),
		logger:    slog.Default(),
		txTimeout: defaultTxTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.root = newGateway(d.db)
	return d
}

// SQL exposes the underlying pool for migrations.
func (d *DB) SQL() *sql.DB {
	return d.db.DB
}

func (d *DB) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", translate(err))
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// RunInTx runs fn in a read-committed transaction. A transient failure
// (serialization, deadlock, lost connection) is retried once.
func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx storage.Gateway) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.txTimeout)
		defer cancel()
	}

	ctx, span := tracer.Start(ctx, "postgres.RunInTx", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	err := d.runOnce(ctx, fn)
	if err != nil && storage.IsTransient(err) && ctx.Err() == nil {
		d.logger.WarnContext(ctx, "retrying transaction after transient failure", "error", err)
		span.SetAttributes(attribute.Bool("db.tx.retried", true))
		err = d.runOnce(ctx, fn)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
	}
	return err
}

func (d *DB) runOnce(ctx context.Context, fn func(ctx context.Context, tx storage.Gateway) error) error {
	tx, err := d.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", translate(err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, newGateway(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", translate(err))
	}
	return nil
}

func (d *DB) Organizations() storage.Repository[models.Organization] {
	return d.root.Organizations()
}
func (d *DB) Divisions() storage.Repository[models.Division] { return d.root.Divisions() }
func (d *DB) Sections() storage.Repository[models.Section]   { return d.root.Sections() }
func (d *DB) Functions() storage.Repository[models.Function] { return d.root.Functions() }
func (d *DB) ValueFunctions() storage.Repository[models.ValueFunction] {
	return d.root.ValueFunctions()
}
func (d *DB) Positions() storage.Repository[models.Position] { return d.root.Positions() }
func (d *DB) Staff() storage.Repository[models.Staff]        { return d.root.Staff() }
func (d *DB) Users() storage.Repository[models.User]         { return d.root.Users() }
func (d *DB) StaffPositions() storage.Repository[models.StaffPosition] {
	return d.root.StaffPositions()
}
func (d *DB) StaffFunctions() storage.Repository[models.StaffFunction] {
	return d.root.StaffFunctions()
}
func (d *DB) StaffLocations() storage.Repository[models.StaffLocation] {
	return d.root.StaffLocations()
}
func (d *DB) FunctionalAssignments() storage.Repository[models.FunctionalAssignment] {
	return d.root.FunctionalAssignments()
}
func (d *DB) FunctionalRelations() storage.Repository[models.FunctionalRelation] {
	return d.root.FunctionalRelations()
}
func (d *DB) HierarchyRelations() storage.Repository[models.HierarchyRelation] {
	return d.root.HierarchyRelations()
}
func (d *DB) UnitManagement() storage.Repository[models.UnitManagement] {
	return d.root.UnitManagement()
}

// Serialize outside RunInTx releases the lock as soon as it is taken.
func (d *DB) Serialize(ctx context.Context, name string) error {
	return d.root.Serialize(ctx, name)
}

// gateway binds every table to one query handle (pool or transaction).
type gateway struct {
	q              sqlx.ExtContext
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

func newGateway(q sqlx.ExtContext) *gateway {
	return &gateway{
		q:              q,
		organizations:  newTable[models.Organization, *models.Organization](q, specOrganizations),
		divisions:      newTable[models.Division, *models.Division](q, specDivisions),
		sections:       newTable[models.Section, *models.Section](q, specSections),
		functions:      newTable[models.Function, *models.Function](q, specFunctions),
		valueFunctions: newTable[models.ValueFunction, *models.ValueFunction](q, specValueFunctions),
		positions:      newTable[models.Position, *models.Position](q, specPositions),
		staff:          newTable[models.Staff, *models.Staff](q, specStaff),
		users:          newTable[models.User, *models.User](q, specUsers),
		staffPositions: newTable[models.StaffPosition, *models.StaffPosition](q, specStaffPositions),
		staffFunctions: newTable[models.StaffFunction, *models.StaffFunction](q, specStaffFunctions),
		staffLocations: newTable[models.StaffLocation, *models.StaffLocation](q, specStaffLocations),
		assignments:    newTable[models.FunctionalAssignment, *models.FunctionalAssignment](q, specAssignments),
		functionalRels: newTable[models.FunctionalRelation, *models.FunctionalRelation](q, specFunctionalRels),
		hierarchyRels:  newTable[models.HierarchyRelation, *models.HierarchyRelation](q, specHierarchyRels),
		unitManagement: newTable[models.UnitManagement, *models.UnitManagement](q, specUnitManagement),
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

// Serialize takes a transaction-scoped advisory lock keyed by name.
func (g *gateway) Serialize(ctx context.Context, name string) error {
	if _, err := g.q.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", name); err != nil {
		return fmt.Errorf("serialize %s: %w", name, translate(err))
	}
	return nil
}
