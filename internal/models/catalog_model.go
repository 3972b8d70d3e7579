package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type MealType string

const (
	MealBreakfast MealType = "BREAKFAST"
	MealLunch     MealType = "LUNCH"
	MealDinner    MealType = "DINNER"
	MealSnack     MealType = "SNACK"
)

type Meal struct {
	Base
	ProviderID  uuid.UUID       `gorm:"type:uuid;index;not null" json:"providerId"`
	Name        string          `gorm:"size:100;not null" json:"name"`
	Description string          `gorm:"size:500" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	ImageURL    string          `gorm:"size:1000" json:"imageUrl"`
	MealType    MealType        `gorm:"size:20;not null" json:"mealType"`
	IsActive    bool            `gorm:"not null;index" json:"isActive"`
}

type SubscriptionType string

const (
	SubscriptionBreakfast       SubscriptionType = "BREAKFAST"
	SubscriptionLunch           SubscriptionType = "LUNCH"
	SubscriptionDinner          SubscriptionType = "DINNER"
	SubscriptionSnack           SubscriptionType = "SNACK"
	SubscriptionBreakfastLunch  SubscriptionType = "BREAKFAST_LUNCH"
	SubscriptionBreakfastDinner SubscriptionType = "BREAKFAST_DINNER"
	SubscriptionLunchDinner     SubscriptionType = "LUNCH_DINNER"
	SubscriptionFullDay         SubscriptionType = "FULL_DAY"
	SubscriptionCustom          SubscriptionType = "CUSTOM"
)

type SubscriptionCategory string

const (
	CategoryAfrican    SubscriptionCategory = "AFRICAN"
	CategoryEuropean   SubscriptionCategory = "EUROPEAN"
	CategoryAsian      SubscriptionCategory = "ASIAN"
	CategoryAmerican   SubscriptionCategory = "AMERICAN"
	CategoryFusion     SubscriptionCategory = "FUSION"
	CategoryVegetarian SubscriptionCategory = "VEGETARIAN"
	CategoryVegan      SubscriptionCategory = "VEGAN"
	CategoryHalal      SubscriptionCategory = "HALAL"
	CategoryOther      SubscriptionCategory = "OTHER"
)

type SubscriptionDuration string

const (
	DurationDay       SubscriptionDuration = "DAY"
	DurationThreeDays SubscriptionDuration = "THREE_DAYS"
	DurationWeek      SubscriptionDuration = "WEEK"
	DurationTwoWeeks  SubscriptionDuration = "TWO_WEEKS"
	DurationMonth     SubscriptionDuration = "MONTH"
)

type Subscription struct {
	Base
	ProviderID      uuid.UUID            `gorm:"type:uuid;index;not null" json:"providerId"`
	Provider        *Provider            `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
	Name            string               `gorm:"size:100;not null" json:"name"`
	Description     string               `gorm:"type:text" json:"description"`
	Price           decimal.Decimal      `gorm:"type:decimal(12,2);not null" json:"price"`
	Type            SubscriptionType     `gorm:"size:30;not null;index" json:"type"`
	Category        SubscriptionCategory `gorm:"size:30;not null;index" json:"category"`
	Duration        SubscriptionDuration `gorm:"size:20;not null" json:"duration"`
	DeliveryZones   datatypes.JSON       `json:"deliveryZones,omitempty"`
	PickupLocations datatypes.JSON       `json:"pickupLocations,omitempty"`
	ImageURL        string               `gorm:"size:1000" json:"imageUrl,omitempty"`
	IsActive        bool                 `gorm:"not null;index" json:"isActive"`
	IsPublic        bool                 `gorm:"not null;index" json:"isPublic"`
	SubscriberCount int                  `gorm:"not null;default:0" json:"subscriberCount"`
	Rating          float64              `gorm:"not null;default:0" json:"rating"`
	TotalReviews    int                  `gorm:"not null;default:0" json:"totalReviews"`
	Meals           []SubscriptionMeal   `gorm:"foreignKey:SubscriptionID;constraint:OnDelete:CASCADE" json:"meals,omitempty"`
}

// SubscriptionMeal is the join row carrying the per-meal quantity.
type SubscriptionMeal struct {
	SubscriptionID uuid.UUID `gorm:"type:uuid;primaryKey" json:"subscriptionId"`
	MealID         uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"mealId"`
	Meal           *Meal     `gorm:"foreignKey:MealID" json:"meal,omitempty"`
	Quantity       int       `gorm:"not null;default:1" json:"quantity"`
}
