// Package hierarchy renders the position subordination graph as a tree of
// nodes and edges for the frontend graph view.
package hierarchy

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"orgstructure/internal/invariants"
	"orgstructure/internal/models"
	"orgstructure/internal/platform/metrics"
	"orgstructure/internal/storage"
	dErrors "orgstructure/pkg/domain-errors"
)

const DefaultMaxNodes = 10000

// MaxDepth caps requested depths. Every level adds at least one node, so a
// deeper walk would hit the node limit first.
const MaxDepth = DefaultMaxNodes

var tracer = otel.Tracer("orgstructure/hierarchy")

// Params selects the part of the graph to render. Depth 0 renders the
// roots only; nil means unbounded.
type Params struct {
	RootPositionID *int64
	OrganizationID *int64
	Depth          *int
}

// Key identifies the rendering for caching.
func (p Params) Key() string {
	return fmt.Sprintf("root=%s:org=%s:depth=%s", optional(p.RootPositionID), optional(p.OrganizationID), optional(p.Depth))
}

func optional[T int | int64](v *T) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

type Node struct {
	ID        string                   `json:"id"`
	DBID      int64                    `json:"db_id"`
	Label     string                   `json:"label"`
	Attribute models.PositionAttribute `json:"attribute"`
	Level     int                      `json:"level"`
}

type Edge struct {
	ID       string `json:"id"`
	DBID     int64  `json:"db_id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Priority int    `json:"priority"`
}

type Tree struct {
	Nodes     []Node `json:"nodes"`
	Edges     []Edge `json:"edges"`
	Truncated bool   `json:"truncated"`
}

func nodeID(positionID int64) string { return fmt.Sprintf("pos-%d", positionID) }

// Builder walks the active hierarchy relations breadth first.
type Builder struct {
	store    storage.Gateway
	logger   *slog.Logger
	metrics  *metrics.Metrics
	maxNodes int
}

type Option func(*Builder)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) {
		b.metrics = m
	}
}

// WithMaxNodes caps the number of nodes in one tree; values <= 0 keep the
// default.
func WithMaxNodes(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxNodes = n
		}
	}
}

func NewBuilder(store storage.Gateway, opts ...Option) *Builder {
	b := &Builder{
		store:    store,
		logger:   slog.Default(),
		maxNodes: DefaultMaxNodes,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type visit struct {
	id     int64
	level  int
	parent int64
}

// Build renders the tree selected by p. A missing organization or root
// position is a not-found error.
func (b *Builder) Build(ctx context.Context, p Params) (*Tree, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "hierarchy.build", trace.WithAttributes(
		attribute.String("tree.params", p.Key()),
	))
	defer span.End()

	tree, err := b.build(ctx, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("tree.nodes", len(tree.Nodes)),
		attribute.Int("tree.edges", len(tree.Edges)),
		attribute.Bool("tree.truncated", tree.Truncated),
	)
	b.metrics.ObserveTreeBuild(time.Since(start), len(tree.Nodes))
	return tree, nil
}

func (b *Builder) build(ctx context.Context, p Params) (*Tree, error) {
	tree := &Tree{Nodes: []Node{}, Edges: []Edge{}}

	var scope map[int64]bool
	if p.OrganizationID != nil {
		held, err := b.heldByOrganization(ctx, *p.OrganizationID)
		if err != nil {
			return nil, err
		}
		scope = held
	}

	edges, err := b.store.HierarchyRelations().List(ctx, storage.Where(storage.Active()))
	if err != nil {
		return nil, storage.DomainError(err, "hierarchy relation")
	}
	children := make(map[int64][]*models.HierarchyRelation)
	subordinate := make(map[int64]bool)
	for _, e := range edges {
		children[e.SuperiorPositionID] = append(children[e.SuperiorPositionID], e)
		subordinate[e.SubordinatePositionID] = true
	}
	for _, out := range children {
		slices.SortFunc(out, func(a, b *models.HierarchyRelation) int {
			return cmp.Or(cmp.Compare(a.Priority, b.Priority), cmp.Compare(a.ID, b.ID))
		})
	}

	positions, err := b.positions(ctx)
	if err != nil {
		return nil, err
	}

	var roots []int64
	if p.RootPositionID != nil {
		if _, ok := positions[*p.RootPositionID]; !ok {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "position %d not found", *p.RootPositionID)
		}
		if scope == nil || scope[*p.RootPositionID] {
			roots = []int64{*p.RootPositionID}
		}
	} else {
		for id, pos := range positions {
			if !pos.IsActive || subordinate[id] {
				continue
			}
			if scope != nil && !scope[id] {
				continue
			}
			roots = append(roots, id)
		}
		slices.Sort(roots)
	}

	seen := make(map[int64]visit)
	queue := make([]visit, 0, len(roots))
	for _, id := range roots {
		if len(seen) >= b.maxNodes {
			tree.Truncated = true
			break
		}
		v := visit{id: id}
		seen[id] = v
		queue = append(queue, v)
	}

	for i := 0; i < len(queue); i++ {
		cur := queue[i]
		pos, ok := positions[cur.id]
		if !ok {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "position %d not found", cur.id)
		}
		tree.Nodes = append(tree.Nodes, Node{
			ID:        nodeID(pos.ID),
			DBID:      pos.ID,
			Label:     pos.Name,
			Attribute: pos.Attribute,
			Level:     cur.level,
		})
		if p.Depth != nil && cur.level >= *p.Depth {
			continue
		}
		for _, e := range children[cur.id] {
			next := e.SubordinatePositionID
			if _, ok := seen[next]; !ok {
				if len(seen) >= b.maxNodes {
					tree.Truncated = true
					continue
				}
				v := visit{id: next, level: cur.level + 1, parent: cur.id}
				seen[next] = v
				queue = append(queue, v)
			} else if isAncestor(seen, cur, next) {
				b.logger.WarnContext(ctx, "hierarchy back-edge skipped",
					"edge_id", e.ID,
					"superior_position_id", e.SuperiorPositionID,
					"subordinate_position_id", next,
				)
			}
			tree.Edges = append(tree.Edges, Edge{
				ID:       fmt.Sprintf("edge-%d", e.ID),
				DBID:     e.ID,
				Source:   nodeID(e.SuperiorPositionID),
				Target:   nodeID(next),
				Priority: e.Priority,
			})
		}
	}
	return tree, nil
}

// isAncestor follows first-discovery parents from cur looking for target.
func isAncestor(seen map[int64]visit, cur visit, target int64) bool {
	for v := cur; ; {
		if v.id == target {
			return true
		}
		if v.level == 0 {
			return false
		}
		v = seen[v.parent]
	}
}

// heldByOrganization returns the positions held through active staff
// positions by staff of the organization.
func (b *Builder) heldByOrganization(ctx context.Context, orgID int64) (map[int64]bool, error) {
	if _, err := invariants.Exists(ctx, b.store.Organizations(), orgID, "organization"); err != nil {
		return nil, err
	}
	staff, err := b.store.Staff().List(ctx, storage.Where(storage.Eq{Field: "organization_id", Value: orgID}))
	if err != nil {
		return nil, storage.DomainError(err, "staff")
	}
	ids := make([]int64, 0, len(staff))
	for _, s := range staff {
		ids = append(ids, s.ID)
	}
	held, err := b.store.StaffPositions().List(ctx, storage.Where(
		storage.Active(),
		storage.In{Field: "staff_id", Values: ids},
	))
	if err != nil {
		return nil, storage.DomainError(err, "staff position")
	}
	out := make(map[int64]bool, len(held))
	for _, sp := range held {
		out[sp.PositionID] = true
	}
	return out, nil
}

func (b *Builder) positions(ctx context.Context) (map[int64]*models.Position, error) {
	all, err := b.store.Positions().List(ctx, storage.Query{})
	if err != nil {
		return nil, storage.DomainError(err, "position")
	}
	out := make(map[int64]*models.Position, len(all))
	for _, pos := range all {
		out[pos.ID] = pos
	}
	return out, nil
}
