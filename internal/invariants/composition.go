// Package invariants holds the cross-entity rules checked inside write
// transactions. Every check returns a coded domain error; none are retried.
package invariants

import (
	"context"
	"fmt"
	"slices"

	"orgstructure/internal/models"
	"orgstructure/internal/storage"
	dErrors "orgstructure/pkg/domain-errors"
)

// allowedChildren is the organization composition table. Types missing from
// it are terminal.
var allowedChildren = map[models.OrgType][]models.OrgType{
	models.OrgTypeHolding:     {models.OrgTypeLegalEntity},
	models.OrgTypeLegalEntity: {models.OrgTypeLocation},
}

var rootTypes = []models.OrgType{models.OrgTypeBoard, models.OrgTypeHolding}

// CanContain reports whether an organization of type parent may have a
// direct child of type child.
func CanContain(parent, child models.OrgType) bool {
	return slices.Contains(allowedChildren[parent], child)
}

// CanBeRoot reports whether t may have no parent.
func CanBeRoot(t models.OrgType) bool {
	return slices.Contains(rootTypes, t)
}

// CheckComposition validates the pairing of a parent type (nil for a root)
// with a child type.
func CheckComposition(parent *models.OrgType, child models.OrgType) error {
	if parent == nil {
		if !CanBeRoot(child) {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"invalid composition: %s cannot be a root organization", child)
		}
		return nil
	}
	if !CanContain(*parent, child) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"invalid composition: %s cannot contain %s", *parent, child)
	}
	return nil
}

// OrganizationPlacement checks org against its parent and, for an existing
// row, against its current children.
func OrganizationPlacement(ctx context.Context, orgs storage.Repository[models.Organization], org *models.Organization) error {
	var parentType *models.OrgType
	if org.ParentID != nil {
		if org.ID != 0 && *org.ParentID == org.ID {
			return dErrors.New(dErrors.CodeInvariantViolation, "an organization cannot be its own parent")
		}
		parent, err := orgs.Get(ctx, *org.ParentID)
		if err != nil {
			return storage.DomainError(err, fmt.Sprintf("parent organization %d", *org.ParentID))
		}
		parentType = &parent.OrgType
	}
	if err := CheckComposition(parentType, org.OrgType); err != nil {
		return err
	}
	if org.ID == 0 {
		return nil
	}
	children, err := orgs.List(ctx, storage.Where(storage.Eq{Field: "parent_id", Value: org.ID}))
	if err != nil {
		return storage.DomainError(err, "organization")
	}
	for _, child := range children {
		if !CanContain(org.OrgType, child.OrgType) {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"invalid composition: %s cannot contain existing child %s (%s)", org.OrgType, child.Code, child.OrgType)
		}
	}
	return nil
}
