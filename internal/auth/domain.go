package auth

import (
	"time"

	"github.com/odyssey-erp/erp-api/internal/shared"
)

// User represents an API account.
type User struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Role         shared.Role `json:"role"`
	IsActive     bool        `json:"isActive"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Identity converts the account into the request identity.
func (u *User) Identity() *shared.Identity {
	return &shared.Identity{UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Session is returned by register, login and profile updates.
type Session struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      shared.Role `json:"role"`
	IsActive  bool        `json:"isActive"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// RegisterInput is the body of POST /api/auth/register.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=Admin Sales Purchase Inventory"`
}

// LoginInput is the body of POST /api/auth/login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput lists the fields a user may change on their own account.
type ProfileInput struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=50"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6,max=128"`
}
