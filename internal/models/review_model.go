package models

import (
	"time"

	"github.com/google/uuid"
)

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "PENDING"
	ReviewApproved ReviewStatus = "APPROVED"
	ReviewRejected ReviewStatus = "REJECTED"
)

func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewPending, ReviewApproved, ReviewRejected:
		return true
	default:
		return false
	}
}

type Review struct {
	Base
	OrderID         uuid.UUID     `gorm:"type:uuid;uniqueIndex;not null" json:"orderId"`
	Order           *Order        `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	UserID          uuid.UUID     `gorm:"type:uuid;index;not null" json:"userId"`
	User            *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	SubscriptionID  uuid.UUID     `gorm:"type:uuid;index;not null" json:"subscriptionId"`
	Subscription    *Subscription `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
	Rating          int           `gorm:"not null;check:chk_reviews_rating,rating >= 1 AND rating <= 5" json:"rating"`
	Comment         *string       `gorm:"type:text" json:"comment,omitempty"`
	Status          ReviewStatus  `gorm:"size:20;not null;index" json:"status"`
	ModeratedBy     *uuid.UUID    `gorm:"type:uuid" json:"moderatedBy,omitempty"`
	ModeratedAt     *time.Time    `json:"moderatedAt,omitempty"`
	RejectionReason *string       `gorm:"type:text" json:"rejectionReason,omitempty"`
}
