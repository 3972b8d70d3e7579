package models

import (
	"time"

	"github.com/google/uuid"
)

type ProviderStatus string

const (
	ProviderPending   ProviderStatus = "PENDING"
	ProviderApproved  ProviderStatus = "APPROVED"
	ProviderRejected  ProviderStatus = "REJECTED"
	ProviderSuspended ProviderStatus = "SUSPENDED"
)

func (s ProviderStatus) Valid() bool {
	switch s {
	case ProviderPending, ProviderApproved, ProviderRejected, ProviderSuspended:
		return true
	default:
		return false
	}
}

type Provider struct {
	Base
	UserID          uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	User            *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BusinessName    string         `gorm:"size:150;not null" json:"businessName"`
	Description     string         `gorm:"type:text" json:"description,omitempty"`
	BusinessAddress string         `gorm:"size:500;not null" json:"businessAddress"`
	DocumentURL     string         `gorm:"size:1000" json:"documentUrl,omitempty"`
	Status          ProviderStatus `gorm:"size:20;not null;index" json:"status"`
	Rating          float64        `gorm:"not null;default:0" json:"rating"`
	TotalReviews    int            `gorm:"not null;default:0" json:"totalReviews"`
	RejectionReason string         `gorm:"type:text" json:"rejectionReason,omitempty"`
	ApprovedAt      *time.Time     `json:"approvedAt,omitempty"`
	ApprovedBy      *uuid.UUID     `gorm:"type:uuid" json:"approvedBy,omitempty"`
	SuspendedAt     *time.Time     `json:"suspendedAt,omitempty"`
}
