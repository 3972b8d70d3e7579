package subscription

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Kyz7/juna/internal/apperror"
	"github.com/Kyz7/juna/internal/cache"
	"github.com/Kyz7/juna/internal/meal"
	"github.com/Kyz7/juna/internal/models"
	"github.com/Kyz7/juna/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	cache    cache.Cache
	cacheTTL time.Duration
	log      logrus.FieldLogger
}

func NewService(db *gorm.DB, c cache.Cache, cacheTTL time.Duration, log logrus.FieldLogger) *Service {
	return &Service{db: db, cache: c, cacheTTL: cacheTTL, log: log}
}

type MealItem struct {
	MealID   uuid.UUID `json:"mealId" validate:"required"`
	Quantity int       `json:"quantity" validate:"omitempty,min=1,max=50"`
}

type CreateInput struct {
	Name            string                      `json:"name" validate:"required,min=3,max=100"`
	Description     string                      `json:"description" validate:"required,min=10,max=1000"`
	Price           decimal.Decimal             `json:"price"`
	Type            models.SubscriptionType     `json:"type" validate:"required,oneof=BREAKFAST LUNCH DINNER SNACK BREAKFAST_LUNCH BREAKFAST_DINNER LUNCH_DINNER FULL_DAY CUSTOM"`
	Category        models.SubscriptionCategory `json:"category" validate:"required,oneof=AFRICAN EUROPEAN ASIAN AMERICAN FUSION VEGETARIAN VEGAN HALAL OTHER"`
	Duration        models.SubscriptionDuration `json:"duration" validate:"required,oneof=DAY THREE_DAYS WEEK TWO_WEEKS MONTH"`
	DeliveryZones   datatypes.JSON              `json:"deliveryZones"`
	PickupLocations datatypes.JSON              `json:"pickupLocations"`
	ImageURL        string                      `json:"imageUrl" validate:"omitempty,url,max=1000"`
	IsPublic        *bool                       `json:"isPublic"`
	MealIDs         []uuid.UUID                 `json:"mealIds"`
	Meals           []MealItem                  `json:"meals" validate:"omitempty,dive"`
}

type UpdateInput struct {
	Name            *string                      `json:"name" validate:"omitempty,min=3,max=100"`
	Description     *string                      `json:"description" validate:"omitempty,min=10,max=1000"`
	Price           *decimal.Decimal             `json:"price"`
	Type            *models.SubscriptionType     `json:"type" validate:"omitempty,oneof=BREAKFAST LUNCH DINNER SNACK BREAKFAST_LUNCH BREAKFAST_DINNER LUNCH_DINNER FULL_DAY CUSTOM"`
	Category        *models.SubscriptionCategory `json:"category" validate:"omitempty,oneof=AFRICAN EUROPEAN ASIAN AMERICAN FUSION VEGETARIAN VEGAN HALAL OTHER"`
	Duration        *models.SubscriptionDuration `json:"duration" validate:"omitempty,oneof=DAY THREE_DAYS WEEK TWO_WEEKS MONTH"`
	DeliveryZones   datatypes.JSON               `json:"deliveryZones"`
	PickupLocations datatypes.JSON               `json:"pickupLocations"`
	ImageURL        *string                      `json:"imageUrl" validate:"omitempty,url,max=1000"`
	IsActive        *bool                        `json:"isActive"`
	IsPublic        *bool                        `json:"isPublic"`
	MealIDs         []uuid.UUID                  `json:"mealIds"`
	Meals           []MealItem                   `json:"meals" validate:"omitempty,dive"`
}

// mealItems merges the mealIds shorthand (quantity 1) with explicit items.
func mealItems(ids []uuid.UUID, items []MealItem) []MealItem {
	out := make([]MealItem, 0, len(ids)+len(items))
	for _, id := range ids {
		out = append(out, MealItem{MealID: id, Quantity: 1})
	}
	for _, item := range items {
		if item.Quantity == 0 {
			item.Quantity = 1
		}
		out = append(out, item)
	}
	return out
}

func (s *Service) Create(ctx context.Context, providerID uuid.UUID, in CreateInput) (*models.Subscription, error) {
	if err := meal.CheckPrice(in.Price); err != nil {
		return nil, err
	}
	items := mealItems(in.MealIDs, in.Meals)

	sub := models.Subscription{
		ProviderID:      providerID,
		Name:            utils.SanitizeText(in.Name),
		Description:     utils.SanitizeText(in.Description),
		Price:           in.Price.Round(2),
		Type:            in.Type,
		Category:        in.Category,
		Duration:        in.Duration,
		DeliveryZones:   in.DeliveryZones,
		PickupLocations: in.PickupLocations,
		ImageURL:        in.ImageURL,
		IsActive:        true,
		IsPublic:        in.IsPublic == nil || *in.IsPublic,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUniqueName(tx, providerID, sub.Name, uuid.Nil); err != nil {
			return err
		}
		if err := meal.ValidateForSubscription(tx, providerID, ids(items)); err != nil {
			return err
		}
		if err := tx.Omit("Meals").Create(&sub).Error; err != nil {
			return apperror.FromDB(err, "Subscription")
		}
		return replaceMeals(tx, sub.ID, items)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"subscription_id": sub.ID, "provider_id": providerID}).Info("subscription created")
	s.invalidate(ctx, sub.ID)
	return s.Get(ctx, sub.ID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).
		Preload("Meals.Meal").
		Preload("Provider").
		First(&sub, "id = ?", id).Error
	if err != nil {
		return nil, apperror.FromDB(err, "Subscription")
	}
	return &sub, nil
}

// GetPublic returns a subscription visible to the public, or to its owner
// when it is hidden.
func (s *Service) GetPublic(ctx context.Context, id uuid.UUID, viewerProviderID *uuid.UUID) (*models.Subscription, error) {
	key := cache.SubscriptionKey(id)

	var cached models.Subscription
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache read failed")
	} else if hit {
		return &cached, nil
	}

	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	visible := sub.IsActive && sub.IsPublic && sub.Provider != nil && sub.Provider.Status == models.ProviderApproved
	if !visible {
		if viewerProviderID != nil && *viewerProviderID == sub.ProviderID {
			return sub, nil
		}
		return nil, apperror.NotFound("Subscription")
	}

	if err := s.cache.Set(ctx, key, sub, s.cacheTTL); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
	return sub, nil
}

func (s *Service) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.WithContext(ctx).
		Preload("Meals.Meal").
		Where("provider_id = ?", providerID).
		Order("created_at DESC").
		Find(&subs).Error
	if err != nil {
		return nil, apperror.FromDB(err, "Subscription")
	}
	return subs, nil
}

type ListFilter struct {
	Type       models.SubscriptionType
	Category   models.SubscriptionCategory
	Duration   models.SubscriptionDuration
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	ProviderID *uuid.UUID
	Search     string
	Page       int
	Limit      int
}

func (f ListFilter) key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "type=%s&category=%s&duration=%s", f.Type, f.Category, f.Duration)
	if f.MinPrice != nil {
		fmt.Fprintf(&b, "&min=%s", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		fmt.Fprintf(&b, "&max=%s", f.MaxPrice.String())
	}
	if f.ProviderID != nil {
		fmt.Fprintf(&b, "&provider=%s", f.ProviderID)
	}
	fmt.Fprintf(&b, "&q=%s&page=%d&limit=%d", strings.ToLower(f.Search), f.Page, f.Limit)
	return b.String()
}

type Page struct {
	Items []models.Subscription `json:"items"`
	Total int64                 `json:"total"`
}

// ListPublic lists active public subscriptions of approved providers,
// best rated first.
func (s *Service) ListPublic(ctx context.Context, f ListFilter) (*Page, error) {
	key := cache.SubscriptionListKey(f.key())

	var page Page
	if hit, err := s.cache.Get(ctx, key, &page); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache read failed")
	} else if hit {
		return &page, nil
	}

	q := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("is_active = ? AND is_public = ?", true, true).
		Where("provider_id IN (?)", s.db.Model(&models.Provider{}).Select("id").Where("status = ?", models.ProviderApproved))
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Duration != "" {
		q = q.Where("duration = ?", f.Duration)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	if f.ProviderID != nil {
		q = q.Where("provider_id = ?", *f.ProviderID)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	if err := q.Count(&page.Total).Error; err != nil {
		return nil, apperror.FromDB(err, "Subscription")
	}

	err := q.Preload("Provider").
		Order("rating DESC").
		Order("subscriber_count DESC").
		Order("created_at DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&page.Items).Error
	if err != nil {
		return nil, apperror.FromDB(err, "Subscription")
	}

	if err := s.cache.Set(ctx, key, &page, s.cacheTTL); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
	return &page, nil
}

func (s *Service) Update(ctx context.Context, providerID, id uuid.UUID, in UpdateInput) (*models.Subscription, error) {
	sub, err := s.owned(ctx, providerID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = utils.SanitizeText(*in.Name)
	}
	if in.Description != nil {
		updates["description"] = utils.SanitizeText(*in.Description)
	}
	if in.Price != nil {
		if err := meal.CheckPrice(*in.Price); err != nil {
			return nil, err
		}
		updates["price"] = in.Price.Round(2)
	}
	if in.Type != nil {
		updates["type"] = *in.Type
	}
	if in.Category != nil {
		updates["category"] = *in.Category
	}
	if in.Duration != nil {
		updates["duration"] = *in.Duration
	}
	if in.DeliveryZones != nil {
		updates["delivery_zones"] = in.DeliveryZones
	}
	if in.PickupLocations != nil {
		updates["pickup_locations"] = in.PickupLocations
	}
	if in.ImageURL != nil {
		updates["image_url"] = *in.ImageURL
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if in.IsPublic != nil {
		updates["is_public"] = *in.IsPublic
	}

	replace := in.MealIDs != nil || in.Meals != nil
	items := mealItems(in.MealIDs, in.Meals)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if name, ok := updates["name"].(string); ok && !strings.EqualFold(name, sub.Name) {
			if err := ensureUniqueName(tx, providerID, name, id); err != nil {
				return err
			}
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Subscription{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return apperror.FromDB(err, "Subscription")
			}
		}
		if !replace {
			return nil
		}
		if err := meal.ValidateForSubscription(tx, providerID, ids(items)); err != nil {
			return err
		}
		if err := tx.Where("subscription_id = ?", id).Delete(&models.SubscriptionMeal{}).Error; err != nil {
			return apperror.FromDB(err, "Subscription")
		}
		return replaceMeals(tx, id, items)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	return s.Get(ctx, id)
}

func (s *Service) ToggleActive(ctx context.Context, providerID, id uuid.UUID) (*models.Subscription, error) {
	return s.toggle(ctx, providerID, id, "is_active", func(sub *models.Subscription) bool { return sub.IsActive })
}

func (s *Service) TogglePublic(ctx context.Context, providerID, id uuid.UUID) (*models.Subscription, error) {
	return s.toggle(ctx, providerID, id, "is_public", func(sub *models.Subscription) bool { return sub.IsPublic })
}

func (s *Service) toggle(ctx context.Context, providerID, id uuid.UUID, column string, current func(*models.Subscription) bool) (*models.Subscription, error) {
	sub, err := s.owned(ctx, providerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Subscription{}).Where("id = ?", id).Update(column, !current(sub)).Error; err != nil {
		return nil, apperror.FromDB(err, "Subscription")
	}

	s.invalidate(ctx, id)
	return s.Get(ctx, id)
}

// Delete removes a subscription nobody is subscribed to. The subscriber
// check is part of the delete predicate.
func (s *Service) Delete(ctx context.Context, providerID, id uuid.UUID) error {
	if _, err := s.owned(ctx, providerID, id); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("subscription_id = ?", id).Delete(&models.SubscriptionMeal{}).Error; err != nil {
			return apperror.FromDB(err, "Subscription")
		}

		result := tx.Where("id = ? AND subscriber_count = ?", id, 0).Delete(&models.Subscription{})
		if result.Error != nil {
			return apperror.FromDB(result.Error, "Subscription")
		}
		if result.RowsAffected == 0 {
			return apperror.Conflict("SUBSCRIPTION_HAS_SUBSCRIBERS", "Subscription has active subscribers")
		}

		var orders int64
		if err := tx.Model(&models.Order{}).Where("subscription_id = ?", id).Count(&orders).Error; err != nil {
			return apperror.FromDB(err, "Subscription")
		}
		if orders > 0 {
			return apperror.Conflict("SUBSCRIPTION_HAS_ORDERS", "Subscription has order history, deactivate it instead")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"subscription_id": id, "provider_id": providerID}).Info("subscription deleted")
	s.invalidate(ctx, id)
	return nil
}

func (s *Service) owned(ctx context.Context, providerID, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		return nil, apperror.FromDB(err, "Subscription")
	}
	if sub.ProviderID != providerID {
		return nil, apperror.Forbidden("", "You do not own this subscription")
	}
	return &sub, nil
}

// Invalidate drops every cached view of the subscription.
func (s *Service) Invalidate(ctx context.Context, id uuid.UUID) {
	s.invalidate(ctx, id)
}

func (s *Service) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Delete(ctx, cache.SubscriptionKey(id), cache.SubscriptionStatsKey(id)); err != nil {
		s.log.WithError(err).Warn("cache invalidation failed")
	}
	if err := s.cache.DeletePattern(ctx, cache.SubscriptionListPattern); err != nil {
		s.log.WithError(err).Warn("cache invalidation failed")
	}
}

func ensureUniqueName(tx *gorm.DB, providerID uuid.UUID, name string, exclude uuid.UUID) error {
	var count int64
	err := tx.Model(&models.Subscription{}).
		Where("provider_id = ? AND LOWER(name) = LOWER(?) AND id <> ?", providerID, name, exclude).
		Count(&count).Error
	if err != nil {
		return apperror.FromDB(err, "Subscription")
	}
	if count > 0 {
		return apperror.Conflict("SUBSCRIPTION_NAME_EXISTS", "A subscription with this name already exists")
	}
	return nil
}

func replaceMeals(tx *gorm.DB, subscriptionID uuid.UUID, items []MealItem) error {
	rows := make([]models.SubscriptionMeal, 0, len(items))
	for _, item := range items {
		rows = append(rows, models.SubscriptionMeal{
			SubscriptionID: subscriptionID,
			MealID:         item.MealID,
			Quantity:       item.Quantity,
		})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return apperror.FromDB(err, "Subscription meal")
	}
	return nil
}

func ids(items []MealItem) []uuid.UUID {
	out := make([]uuid.UUID, len(items))
	for i, item := range items {
		out[i] = item.MealID
	}
	return out
}
