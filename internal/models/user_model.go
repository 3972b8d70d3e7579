package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser       Role = "USER"
	RoleProvider   Role = "PROVIDER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Rank orders roles USER < PROVIDER < ADMIN < SUPER_ADMIN. Unknown roles rank below USER.
func (r Role) Rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleProvider:
		return 2
	case RoleAdmin:
		return 3
	case RoleSuperAdmin:
		return 4
	default:
		return 0
	}
}

func (r Role) Valid() bool { return r.Rank() > 0 }

func (r Role) AtLeast(min Role) bool { return r.Valid() && r.Rank() >= min.Rank() }

func (r Role) IsAdmin() bool { return r == RoleAdmin || r == RoleSuperAdmin }

type User struct {
	Base
	Name         string    `gorm:"size:100;not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Phone        *string   `gorm:"uniqueIndex;size:30" json:"phone,omitempty"`
	Password     string    `gorm:"size:255" json:"-"`
	Role         Role      `gorm:"size:20;not null;index" json:"role"`
	IsActive     bool      `gorm:"not null" json:"isActive"`
	IsVerified   bool      `gorm:"not null" json:"isVerified"`
	AuthProvider string    `gorm:"size:20;not null" json:"authProvider"`
	Provider     *Provider `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"provider,omitempty"`
}

type RefreshToken struct {
	Base
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"userId"`
	TokenHash string    `gorm:"uniqueIndex;size:64;not null" json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"expiresAt"`
	Revoked   bool      `gorm:"not null" json:"revoked"`
}
