package models

// Position is a role held by staff and a node of the hierarchy graph.
type Position struct {
	Base
	Name        string            `db:"name" json:"name" validate:"required,max=255"`
	Description *string           `db:"description" json:"description"`
	Attribute   PositionAttribute `db:"attribute" json:"attribute" validate:"required,oneof=Board TopMgmt Director DeptHead SectionHead Specialist"`
	DivisionID  *int64            `db:"division_id" json:"division_id"`
	SectionID   *int64            `db:"section_id" json:"section_id"`
	IsActive    bool              `db:"is_active" json:"is_active"`
}

type PositionCreate struct {
	Name        string            `json:"name"`
	Description *string           `json:"description"`
	Attribute   PositionAttribute `json:"attribute"`
	DivisionID  *int64            `json:"division_id"`
	SectionID   *int64            `json:"section_id"`
	IsActive    *bool             `json:"is_active"`
}

func (c PositionCreate) Build() *Position {
	attr := c.Attribute
	if attr == "" {
		attr = AttributeSpecialist
	}
	return &Position{
		Name:        c.Name,
		Description: c.Description,
		Attribute:   attr,
		DivisionID:  c.DivisionID,
		SectionID:   c.SectionID,
		IsActive:    boolOr(c.IsActive, true),
	}
}

type PositionUpdate struct {
	Name        Optional[string]            `json:"name,omitzero"`
	Description Optional[*string]           `json:"description,omitzero"`
	Attribute   Optional[PositionAttribute] `json:"attribute,omitzero"`
	DivisionID  Optional[*int64]            `json:"division_id,omitzero"`
	SectionID   Optional[*int64]            `json:"section_id,omitzero"`
	IsActive    Optional[bool]              `json:"is_active,omitzero"`
}

func (u PositionUpdate) Apply(p *Position) {
	u.Name.ApplyTo(&p.Name)
	u.Description.ApplyTo(&p.Description)
	u.Attribute.ApplyTo(&p.Attribute)
	u.DivisionID.ApplyTo(&p.DivisionID)
	u.SectionID.ApplyTo(&p.SectionID)
	u.IsActive.ApplyTo(&p.IsActive)
}
