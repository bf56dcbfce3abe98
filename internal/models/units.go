package models

// Division is an internal unit under a holding.
type Division struct {
	Base
	Name           string  `db:"name" json:"name" validate:"required,max=255"`
	Code           string  `db:"code" json:"code" validate:"required,max=64"`
	Description    *string `db:"description" json:"description"`
	OrganizationID int64   `db:"organization_id" json:"organization_id" validate:"required"`
	ParentID       *int64  `db:"parent_id" json:"parent_id"`
	CKP            *string `db:"ckp" json:"ckp" validate:"omitempty,max=64"`
	IsActive       bool    `db:"is_active" json:"is_active"`
}

type DivisionCreate struct {
	Name           string  `json:"name"`
	Code           string  `json:"code"`
	Description    *string `json:"description"`
	OrganizationID int64   `json:"organization_id"`
	ParentID       *int64  `json:"parent_id"`
	CKP            *string `json:"ckp"`
	IsActive       *bool   `json:"is_active"`
}

func (c DivisionCreate) Build() *Division {
	return &Division{
		Name:           c.Name,
		Code:           c.Code,
		Description:    c.Description,
		OrganizationID: c.OrganizationID,
		ParentID:       c.ParentID,
		CKP:            c.CKP,
		IsActive:       boolOr(c.IsActive, true),
	}
}

type DivisionUpdate struct {
	Name           Optional[string]  `json:"name,omitzero"`
	Code           Optional[string]  `json:"code,omitzero"`
	Description    Optional[*string] `json:"description,omitzero"`
	OrganizationID Optional[int64]   `json:"organization_id,omitzero"`
	ParentID       Optional[*int64]  `json:"parent_id,omitzero"`
	CKP            Optional[*string] `json:"ckp,omitzero"`
	IsActive       Optional[bool]    `json:"is_active,omitzero"`
}

func (u DivisionUpdate) Apply(d *Division) {
	u.Name.ApplyTo(&d.Name)
	u.Code.ApplyTo(&d.Code)
	u.Description.ApplyTo(&d.Description)
	u.OrganizationID.ApplyTo(&d.OrganizationID)
	u.ParentID.ApplyTo(&d.ParentID)
	u.CKP.ApplyTo(&d.CKP)
	u.IsActive.ApplyTo(&d.IsActive)
}

// Section is a sub-unit of a Division. Code is not unique.
type Section struct {
	Base
	Name        string  `db:"name" json:"name" validate:"required,max=255"`
	Code        *string `db:"code" json:"code" validate:"omitempty,max=64"`
	Description *string `db:"description" json:"description"`
	DivisionID  int64   `db:"division_id" json:"division_id" validate:"required"`
	IsActive    bool    `db:"is_active" json:"is_active"`
}

type SectionCreate struct {
	Name        string  `json:"name"`
	Code        *string `json:"code"`
	Description *string `json:"description"`
	DivisionID  int64   `json:"division_id"`
	IsActive    *bool   `json:"is_active"`
}

func (c SectionCreate) Build() *Section {
	return &Section{
		Name:        c.Name,
		Code:        c.Code,
		Description: c.Description,
		DivisionID:  c.DivisionID,
		IsActive:    boolOr(c.IsActive, true),
	}
}

type SectionUpdate struct {
	Name        Optional[string]  `json:"name,omitzero"`
	Code        Optional[*string] `json:"code,omitzero"`
	Description Optional[*string] `json:"description,omitzero"`
	DivisionID  Optional[int64]   `json:"division_id,omitzero"`
	IsActive    Optional[bool]    `json:"is_active,omitzero"`
}

func (u SectionUpdate) Apply(s *Section) {
	u.Name.ApplyTo(&s.Name)
	u.Code.ApplyTo(&s.Code)
	u.Description.ApplyTo(&s.Description)
	u.DivisionID.ApplyTo(&s.DivisionID)
	u.IsActive.ApplyTo(&s.IsActive)
}
