// Package models holds the request and response payloads of the login,
// registration and user endpoints.
package models

import "orgstructure/internal/models"

// Credentials is the login form.
type Credentials struct {
	Username string `json:"username" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register is the self-registration payload.
type Register struct {
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=8,max=128"`
	FullName *string `json:"full_name" validate:"omitempty,max=255"`
}

// CreateUser is the superuser payload for provisioning an account.
type CreateUser struct {
	Register
	IsActive    *bool `json:"is_active"`
	IsSuperuser bool  `json:"is_superuser"`
}

// Token is the login response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UpdateUser is the partial superuser update of an account.
type UpdateUser struct {
	FullName    models.Optional[*string] `json:"full_name,omitzero"`
	Password    models.Optional[string]  `json:"password,omitzero"`
	IsActive    models.Optional[bool]    `json:"is_active,omitzero"`
	IsSuperuser models.Optional[bool]    `json:"is_superuser,omitzero"`
}
