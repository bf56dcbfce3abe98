package models

// Organization is a node of the legal hierarchy.
//
// Invariants:
//   - Code is globally unique
//   - the parent/child org_type pairing follows the composition table
type Organization struct {
	Base
	Name            string  `db:"name" json:"name" validate:"required,max=255"`
	Code            string  `db:"code" json:"code" validate:"required,max=64"`
	Description     *string `db:"description" json:"description"`
	OrgType         OrgType `db:"org_type" json:"org_type" validate:"required,oneof=board holding legal_entity location"`
	ParentID        *int64  `db:"parent_id" json:"parent_id"`
	INN             *string `db:"inn" json:"inn" validate:"omitempty,max=12"`
	KPP             *string `db:"kpp" json:"kpp" validate:"omitempty,max=9"`
	CKP             *string `db:"ckp" json:"ckp" validate:"omitempty,max=64"`
	LegalAddress    *string `db:"legal_address" json:"legal_address"`
	PhysicalAddress *string `db:"physical_address" json:"physical_address"`
	IsActive        bool    `db:"is_active" json:"is_active"`
}

type OrganizationCreate struct {
	Name            string  `json:"name"`
	Code            string  `json:"code"`
	Description     *string `json:"description"`
	OrgType         OrgType `json:"org_type"`
	ParentID        *int64  `json:"parent_id"`
	INN             *string `json:"inn"`
	KPP             *string `json:"kpp"`
	CKP             *string `json:"ckp"`
	LegalAddress    *string `json:"legal_address"`
	PhysicalAddress *string `json:"physical_address"`
	IsActive        *bool   `json:"is_active"`
}

func (c OrganizationCreate) Build() *Organization {
	return &Organization{
		Name:            c.Name,
		Code:            c.Code,
		Description:     c.Description,
		OrgType:         c.OrgType,
		ParentID:        c.ParentID,
		INN:             c.INN,
		KPP:             c.KPP,
		CKP:             c.CKP,
		LegalAddress:    c.LegalAddress,
		PhysicalAddress: c.PhysicalAddress,
		IsActive:        boolOr(c.IsActive, true),
	}
}

type OrganizationUpdate struct {
	Name            Optional[string]  `json:"name,omitzero"`
	Code            Optional[string]  `json:"code,omitzero"`
	Description     Optional[*string] `json:"description,omitzero"`
	OrgType         Optional[OrgType] `json:"org_type,omitzero"`
	ParentID        Optional[*int64]  `json:"parent_id,omitzero"`
	INN             Optional[*string] `json:"inn,omitzero"`
	KPP             Optional[*string] `json:"kpp,omitzero"`
	CKP             Optional[*string] `json:"ckp,omitzero"`
	LegalAddress    Optional[*string] `json:"legal_address,omitzero"`
	PhysicalAddress Optional[*string] `json:"physical_address,omitzero"`
	IsActive        Optional[bool]    `json:"is_active,omitzero"`
}

func (u OrganizationUpdate) Apply(o *Organization) {
	u.Name.ApplyTo(&o.Name)
	u.Code.ApplyTo(&o.Code)
	u.Description.ApplyTo(&o.Description)
	u.OrgType.ApplyTo(&o.OrgType)
	u.ParentID.ApplyTo(&o.ParentID)
	u.INN.ApplyTo(&o.INN)
	u.KPP.ApplyTo(&o.KPP)
	u.CKP.ApplyTo(&o.CKP)
	u.LegalAddress.ApplyTo(&o.LegalAddress)
	u.PhysicalAddress.ApplyTo(&o.PhysicalAddress)
	u.IsActive.ApplyTo(&o.IsActive)
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
