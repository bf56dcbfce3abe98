package models

// User is an authentication principal.
type User struct {
	Base
	Email          string  `db:"email" json:"email" validate:"required,email,max=255"`
	HashedPassword string  `db:"hashed_password" json:"-"`
	FullName       *string `db:"full_name" json:"full_name" validate:"omitempty,max=255"`
	IsActive       bool    `db:"is_active" json:"is_active"`
	IsSuperuser    bool    `db:"is_superuser" json:"is_superuser"`
}
