package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderReady     OrderStatus = "READY"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// AllOrderStatuses lists every status in lifecycle order.
var AllOrderStatuses = []OrderStatus{
	OrderPending, OrderConfirmed, OrderReady, OrderCompleted, OrderDelivered, OrderCancelled,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderReady, OrderCompleted, OrderDelivered, OrderCancelled:
		return true
	default:
		return false
	}
}

func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderCompleted, OrderDelivered, OrderCancelled:
		return true
	case OrderPending, OrderConfirmed, OrderReady:
		return false
	default:
		return false
	}
}

// IsFulfilled reports whether the order was redeemed.
func (s OrderStatus) IsFulfilled() bool {
	return s == OrderCompleted || s == OrderDelivered
}

type DeliveryMethod string

const (
	DeliveryMethodDelivery DeliveryMethod = "DELIVERY"
	DeliveryMethodPickup   DeliveryMethod = "PICKUP"
)

// RedeemedStatus is where a READY order ends up once its code is scanned.
func (m DeliveryMethod) RedeemedStatus() OrderStatus {
	if m == DeliveryMethodPickup {
		return OrderCompleted
	}
	return OrderDelivered
}

type Order struct {
	Base
	OrderNumber     string          `gorm:"uniqueIndex;size:32;not null" json:"orderNumber"`
	UserID          uuid.UUID       `gorm:"type:uuid;index;not null" json:"userId"`
	User            *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	SubscriptionID  uuid.UUID       `gorm:"type:uuid;index;not null" json:"subscriptionId"`
	Subscription    *Subscription   `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	DeliveryMethod  DeliveryMethod  `gorm:"size:20;not null" json:"deliveryMethod"`
	DeliveryAddress *string         `gorm:"size:500" json:"deliveryAddress,omitempty"`
	PickupLocation  *string         `gorm:"size:500" json:"pickupLocation,omitempty"`
	ScheduledFor    *time.Time      `json:"scheduledFor,omitempty"`
	QRCode          string          `gorm:"column:qr_code;uniqueIndex;size:32;not null" json:"qrCode"`
	QRRegenerations int             `gorm:"column:qr_regenerations;not null;default:0" json:"qrRegenerations"`
	Status          OrderStatus     `gorm:"size:20;not null;index" json:"status"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
	CancelledAt     *time.Time      `json:"cancelledAt,omitempty"`
}

// OrderStatusHistory records every transition. ChangedBy is nil for
// anonymous redemption scans.
type OrderStatusHistory struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID    uuid.UUID   `gorm:"type:uuid;index;not null" json:"orderId"`
	FromStatus OrderStatus `gorm:"size:20" json:"fromStatus"`
	ToStatus   OrderStatus `gorm:"size:20;not null" json:"toStatus"`
	ChangedBy  *uuid.UUID  `gorm:"type:uuid" json:"changedBy,omitempty"`
	Note       string      `gorm:"type:text" json:"note,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

func (OrderStatusHistory) TableName() string { return "order_status_history" }

func (h *OrderStatusHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// OrderSequence hands out per-month order numbers.
type OrderSequence struct {
	Period string `gorm:"primaryKey;size:6"`
	Value  int64  `gorm:"not null"`
}
