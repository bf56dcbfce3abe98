package invariants

import (
	"context"

	"orgstructure/internal/models"
	"orgstructure/internal/storage"
	dErrors "orgstructure/pkg/domain-errors"
)

// maxAncestorWalk bounds parent-chain walks on data that predates the checks.
const maxAncestorWalk = 10_000

// HierarchyLock is held by every transaction that checks a hierarchy edge.
const HierarchyLock = "hierarchy_relations"

// HierarchyAcyclic rejects the edge superior->subordinate when superior is
// already reachable from subordinate through active edges. skipEdge excludes
// the edge being updated (0 on insert). It takes HierarchyLock first and
// must run inside the transaction that writes the edge.
func HierarchyAcyclic(ctx context.Context, tx storage.Gateway, superior, subordinate, skipEdge int64) error {
	if superior == subordinate {
		return dErrors.New(dErrors.CodeInvariantViolation, "cycle: a position cannot be its own superior")
	}
	if err := tx.Serialize(ctx, HierarchyLock); err != nil {
		return storage.DomainError(err, "hierarchy relation")
	}
	edges := tx.HierarchyRelations()
	visited := map[int64]bool{subordinate: true}
	frontier := []int64{subordinate}
	for len(frontier) > 0 {
		conds := []storage.Cond{
			storage.Active(),
			storage.In{Field: "superior_position_id", Values: frontier},
		}
		if skipEdge != 0 {
			conds = append(conds, storage.NotEq{Field: "id", Value: skipEdge})
		}
		out, err := edges.List(ctx, storage.Where(conds...))
		if err != nil {
			return storage.DomainError(err, "hierarchy relation")
		}
		frontier = frontier[:0]
		for _, e := range out {
			next := e.SubordinatePositionID
			if next == superior {
				return dErrors.Newf(dErrors.CodeInvariantViolation,
					"cycle: position %d is already subordinate to position %d", superior, subordinate)
			}
			if !visited[next] {
				visited[next] = true
				frontier = append(frontier, next)
			}
		}
	}
	return nil
}

// DivisionPlacement checks that a division belongs to a holding and that its
// parent, when set, is a division of the same organization that does not
// descend from it.
func DivisionPlacement(ctx context.Context, g storage.Gateway, d *models.Division) error {
	org, err := Exists(ctx, g.Organizations(), d.OrganizationID, "organization")
	if err != nil {
		return err
	}
	if org.OrgType != models.OrgTypeHolding {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"a division must belong to a holding, got %s", org.OrgType)
	}
	if d.ParentID == nil {
		return nil
	}
	if d.ID != 0 && *d.ParentID == d.ID {
		return dErrors.New(dErrors.CodeInvariantViolation, "cycle: a division cannot be its own parent")
	}
	parent, err := Exists(ctx, g.Divisions(), *d.ParentID, "parent division")
	if err != nil {
		return err
	}
	if parent.OrganizationID != d.OrganizationID {
		return dErrors.New(dErrors.CodeInvariantViolation, "parent division belongs to another organization")
	}
	if d.ID == 0 {
		return nil
	}
	cursor := parent
	for range maxAncestorWalk {
		if cursor.ParentID == nil {
			return nil
		}
		if *cursor.ParentID == d.ID {
			return dErrors.New(dErrors.CodeInvariantViolation, "cycle: a division cannot descend from itself")
		}
		cursor, err = Exists(ctx, g.Divisions(), *cursor.ParentID, "division")
		if err != nil {
			return err
		}
	}
	return dErrors.New(dErrors.CodeInvariantViolation, "division ancestry is too deep")
}

// PositionPlacement checks the optional division and section of a position;
// when both are set the section must belong to the division.
func PositionPlacement(ctx context.Context, g storage.Gateway, p *models.Position) error {
	if err := ExistsOptional(ctx, g.Divisions(), p.DivisionID, "division"); err != nil {
		return err
	}
	if p.SectionID == nil {
		return nil
	}
	sec, err := Exists(ctx, g.Sections(), *p.SectionID, "section")
	if err != nil {
		return err
	}
	if p.DivisionID != nil && sec.DivisionID != *p.DivisionID {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"section %d does not belong to division %d", sec.ID, *p.DivisionID)
	}
	return nil
}

// ManagedUnit checks that the target of a unit-management row exists.
func ManagedUnit(ctx context.Context, g storage.Gateway, kind models.ManagedType, id int64) error {
	switch kind {
	case models.ManagedDivision:
		_, err := Exists(ctx, g.Divisions(), id, "division")
		return err
	case models.ManagedSection:
		_, err := Exists(ctx, g.Sections(), id, "section")
		return err
	default:
		return dErrors.Newf(dErrors.CodeValidation, "unknown managed_type %q", kind)
	}
}
