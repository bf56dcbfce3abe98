package models

import "orgstructure/pkg/email"

// Staff is a person; optionally linked to a login principal.
//
// Invariants:
//   - Email is unique
//   - LocationID references an Organization of type location
//   - PhotoPath and DocumentPaths keys are owned by this row
type Staff struct {
	Base
	Email                 string        `db:"email" json:"email" validate:"required,email,max=255"`
	FirstName             string        `db:"first_name" json:"first_name" validate:"required,max=100"`
	LastName              string        `db:"last_name" json:"last_name" validate:"required,max=100"`
	MiddleName            *string       `db:"middle_name" json:"middle_name" validate:"omitempty,max=100"`
	Phone                 *string       `db:"phone" json:"phone" validate:"omitempty,max=32"`
	Description           *string       `db:"description" json:"description"`
	WorkAddress           *string       `db:"work_address" json:"work_address"`
	HomeAddress           *string       `db:"home_address" json:"home_address"`
	Telegram              *string       `db:"telegram" json:"telegram" validate:"omitempty,max=64"`
	VK                    *string       `db:"vk" json:"vk" validate:"omitempty,max=128"`
	Instagram             *string       `db:"instagram" json:"instagram" validate:"omitempty,max=64"`
	OrganizationID        *int64        `db:"organization_id" json:"organization_id"`
	PrimaryOrganizationID *int64        `db:"primary_organization_id" json:"primary_organization_id"`
	LocationID            *int64        `db:"location_id" json:"location_id"`
	UserID                *int64        `db:"user_id" json:"user_id"`
	PhotoPath             *string       `db:"photo_path" json:"photo_path"`
	DocumentPaths         DocumentPaths `db:"document_paths" json:"document_paths"`
	IsActive              bool          `db:"is_active" json:"is_active"`
}

// BlobKeys lists every blob key the row owns.
func (s *Staff) BlobKeys() []string {
	keys := make([]string, 0, len(s.DocumentPaths)+1)
	if s.PhotoPath != nil && *s.PhotoPath != "" {
		keys = append(keys, *s.PhotoPath)
	}
	for _, key := range s.DocumentPaths {
		if key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// FullName joins last, first and middle names.
func (s *Staff) FullName() string {
	name := s.LastName + " " + s.FirstName
	if s.MiddleName != nil && *s.MiddleName != "" {
		name += " " + *s.MiddleName
	}
	return name
}

type StaffCreate struct {
	Email                 string  `json:"email"`
	FirstName             string  `json:"first_name"`
	LastName              string  `json:"last_name"`
	MiddleName            *string `json:"middle_name"`
	Phone                 *string `json:"phone"`
	Description           *string `json:"description"`
	WorkAddress           *string `json:"work_address"`
	HomeAddress           *string `json:"home_address"`
	Telegram              *string `json:"telegram"`
	VK                    *string `json:"vk"`
	Instagram             *string `json:"instagram"`
	OrganizationID        *int64  `json:"organization_id"`
	PrimaryOrganizationID *int64  `json:"primary_organization_id"`
	LocationID            *int64  `json:"location_id"`
	UserID                *int64  `json:"user_id"`
	IsActive              *bool   `json:"is_active"`
}

// Build leaves the photo and document keys empty; blobs are attached from
// uploads only.
func (c StaffCreate) Build() *Staff {
	return &Staff{
		Email:                 email.Normalize(c.Email),
		FirstName:             c.FirstName,
		LastName:              c.LastName,
		MiddleName:            c.MiddleName,
		Phone:                 c.Phone,
		Description:           c.Description,
		WorkAddress:           c.WorkAddress,
		HomeAddress:           c.HomeAddress,
		Telegram:              c.Telegram,
		VK:                    c.VK,
		Instagram:             c.Instagram,
		OrganizationID:        c.OrganizationID,
		PrimaryOrganizationID: c.PrimaryOrganizationID,
		LocationID:            c.LocationID,
		UserID:                c.UserID,
		IsActive:              boolOr(c.IsActive, true),
	}
}

type StaffUpdate struct {
	Email                 Optional[string]  `json:"email,omitzero"`
	FirstName             Optional[string]  `json:"first_name,omitzero"`
	LastName              Optional[string]  `json:"last_name,omitzero"`
	MiddleName            Optional[*string] `json:"middle_name,omitzero"`
	Phone                 Optional[*string] `json:"phone,omitzero"`
	Description           Optional[*string] `json:"description,omitzero"`
	WorkAddress           Optional[*string] `json:"work_address,omitzero"`
	HomeAddress           Optional[*string] `json:"home_address,omitzero"`
	Telegram              Optional[*string] `json:"telegram,omitzero"`
	VK                    Optional[*string] `json:"vk,omitzero"`
	Instagram             Optional[*string] `json:"instagram,omitzero"`
	OrganizationID        Optional[*int64]  `json:"organization_id,omitzero"`
	PrimaryOrganizationID Optional[*int64]  `json:"primary_organization_id,omitzero"`
	LocationID            Optional[*int64]  `json:"location_id,omitzero"`
	UserID                Optional[*int64]  `json:"user_id,omitzero"`
	IsActive              Optional[bool]    `json:"is_active,omitzero"`
}

// Apply leaves blob fields alone; those change only through uploads.
func (u StaffUpdate) Apply(s *Staff) {
	if u.Email.Set {
		s.Email = email.Normalize(u.Email.Value)
	}
	u.FirstName.ApplyTo(&s.FirstName)
	u.LastName.ApplyTo(&s.LastName)
	u.MiddleName.ApplyTo(&s.MiddleName)
	u.Phone.ApplyTo(&s.Phone)
	u.Description.ApplyTo(&s.Description)
	u.WorkAddress.ApplyTo(&s.WorkAddress)
	u.HomeAddress.ApplyTo(&s.HomeAddress)
	u.Telegram.ApplyTo(&s.Telegram)
	u.VK.ApplyTo(&s.VK)
	u.Instagram.ApplyTo(&s.Instagram)
	u.OrganizationID.ApplyTo(&s.OrganizationID)
	u.PrimaryOrganizationID.ApplyTo(&s.PrimaryOrganizationID)
	u.LocationID.ApplyTo(&s.LocationID)
	u.UserID.ApplyTo(&s.UserID)
	u.IsActive.ApplyTo(&s.IsActive)
}
