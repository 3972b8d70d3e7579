package meal

import (
	"context"
	"errors"
	"strings"

	"github.com/Kyz7/juna/internal/apperror"
	"github.com/Kyz7/juna/internal/cache"
	"github.com/Kyz7/juna/internal/models"
	"github.com/Kyz7/juna/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MinPrice is the lowest price accepted for meals and subscriptions.
var MinPrice = decimal.NewFromInt(100)

type Service struct {
	db    *gorm.DB
	cache cache.Cache
	log   logrus.FieldLogger
}

func NewService(db *gorm.DB, c cache.Cache, log logrus.FieldLogger) *Service {
	return &Service{db: db, cache: c, log: log}
}

type CreateInput struct {
	Name        string          `json:"name" validate:"required,min=2,max=100"`
	Description string          `json:"description" validate:"required,min=5,max=500"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl" validate:"omitempty,url,max=1000"`
	MealType    models.MealType `json:"mealType" validate:"required,oneof=BREAKFAST LUNCH DINNER SNACK"`
}

type UpdateInput struct {
	Name        *string          `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string          `json:"description" validate:"omitempty,min=5,max=500"`
	Price       *decimal.Decimal `json:"price"`
	ImageURL    *string          `json:"imageUrl" validate:"omitempty,url,max=1000"`
	MealType    *models.MealType `json:"mealType" validate:"omitempty,oneof=BREAKFAST LUNCH DINNER SNACK"`
	IsActive    *bool            `json:"isActive"`
}

// CheckPrice rejects prices below MinPrice.
func CheckPrice(price decimal.Decimal) error {
	if price.LessThan(MinPrice) {
		return apperror.Validation("", "Validation failed").
			WithDetails(map[string]string{"price": "price must be at least " + MinPrice.String()})
	}
	return nil
}

func (s *Service) Create(ctx context.Context, providerID uuid.UUID, in CreateInput) (*models.Meal, error) {
	if err := CheckPrice(in.Price); err != nil {
		return nil, err
	}

	name := utils.SanitizeText(in.Name)
	if err := s.ensureUniqueName(ctx, providerID, name, uuid.Nil); err != nil {
		return nil, err
	}

	meal := models.Meal{
		ProviderID:  providerID,
		Name:        name,
		Description: utils.SanitizeText(in.Description),
		Price:       in.Price.Round(2),
		ImageURL:    in.ImageURL,
		MealType:    in.MealType,
		IsActive:    true,
	}
	if err := s.db.WithContext(ctx).Create(&meal).Error; err != nil {
		return nil, apperror.FromDB(err, "Meal")
	}
	return &meal, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Meal, error) {
	var meal models.Meal
	if err := s.db.WithContext(ctx).First(&meal, "id = ?", id).Error; err != nil {
		return nil, apperror.FromDB(err, "Meal")
	}
	return &meal, nil
}

// GetPublic hides inactive meals from everyone but their owner.
func (s *Service) GetPublic(ctx context.Context, id uuid.UUID, viewerProviderID *uuid.UUID) (*models.Meal, error) {
	meal, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !meal.IsActive && (viewerProviderID == nil || *viewerProviderID != meal.ProviderID) {
		return nil, apperror.NotFound("Meal")
	}
	return meal, nil
}

func (s *Service) ListByProvider(ctx context.Context, providerID uuid.UUID, activeOnly bool) ([]models.Meal, error) {
	q := s.db.WithContext(ctx).Where("provider_id = ?", providerID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	var meals []models.Meal
	if err := q.Order("created_at DESC").Find(&meals).Error; err != nil {
		return nil, apperror.FromDB(err, "Meal")
	}
	return meals, nil
}

func (s *Service) Update(ctx context.Context, providerID, id uuid.UUID, in UpdateInput) (*models.Meal, error) {
	meal, err := s.owned(ctx, providerID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := utils.SanitizeText(*in.Name)
		if !strings.EqualFold(name, meal.Name) {
			if err := s.ensureUniqueName(ctx, providerID, name, id); err != nil {
				return nil, err
			}
		}
		updates["name"] = name
	}
	if in.Description != nil {
		updates["description"] = utils.SanitizeText(*in.Description)
	}
	if in.Price != nil {
		if err := CheckPrice(*in.Price); err != nil {
			return nil, err
		}
		updates["price"] = in.Price.Round(2)
	}
	if in.ImageURL != nil {
		updates["image_url"] = *in.ImageURL
	}
	if in.MealType != nil {
		updates["meal_type"] = *in.MealType
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(meal).Updates(updates).Error; err != nil {
			return nil, apperror.FromDB(err, "Meal")
		}
		s.invalidate(ctx)
	}
	return s.Get(ctx, id)
}

func (s *Service) ToggleActive(ctx context.Context, providerID, id uuid.UUID) (*models.Meal, error) {
	meal, err := s.owned(ctx, providerID, id)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(meal).Update("is_active", !meal.IsActive).Error; err != nil {
		return nil, apperror.FromDB(err, "Meal")
	}
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, providerID, id uuid.UUID) error {
	if _, err := s.owned(ctx, providerID, id); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var uses int64
		if err := tx.Model(&models.SubscriptionMeal{}).Where("meal_id = ?", id).Count(&uses).Error; err != nil {
			return apperror.FromDB(err, "Meal")
		}
		if uses > 0 {
			return apperror.Conflict("MEAL_IN_USE", "Meal is used by one or more subscriptions")
		}
		if err := tx.Delete(&models.Meal{}, "id = ?", id).Error; err != nil {
			return deleteError(err)
		}
		return nil
	})
}

// deleteError reports a subscription that linked the meal after the usage
// count as MEAL_IN_USE.
func deleteError(err error) error {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return apperror.Conflict("MEAL_IN_USE", "Meal is used by one or more subscriptions")
	}
	return apperror.FromDB(err, "Meal")
}

func (s *Service) owned(ctx context.Context, providerID, id uuid.UUID) (*models.Meal, error) {
	meal, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if meal.ProviderID != providerID {
		return nil, apperror.Forbidden("", "You do not own this meal")
	}
	return meal, nil
}

func (s *Service) ensureUniqueName(ctx context.Context, providerID uuid.UUID, name string, exclude uuid.UUID) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Meal{}).
		Where("provider_id = ? AND LOWER(name) = LOWER(?) AND id <> ?", providerID, name, exclude).
		Count(&count).Error
	if err != nil {
		return apperror.FromDB(err, "Meal")
	}
	if count > 0 {
		return apperror.Conflict("MEAL_NAME_EXISTS", "A meal with this name already exists")
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	for _, pattern := range []string{cache.SubscriptionPattern, cache.SubscriptionListPattern} {
		if err := s.cache.DeletePattern(ctx, pattern); err != nil {
			s.log.WithError(err).Warn("cache invalidation failed")
		}
	}
}

// ValidateForSubscription checks that every id names an active meal owned
// by the provider. It runs on db so callers can pass a transaction.
func ValidateForSubscription(db *gorm.DB, providerID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return apperror.Validation("", "At least one meal is required")
	}

	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return apperror.Validation("", "Duplicate meal "+id.String())
		}
		seen[id] = struct{}{}
	}

	var meals []models.Meal
	if err := db.Select("id", "provider_id", "is_active").Where("id IN ?", ids).Find(&meals).Error; err != nil {
		return apperror.FromDB(err, "Meal")
	}
	if len(meals) != len(ids) {
		return apperror.NotFound("Meal")
	}
	for _, m := range meals {
		if m.ProviderID != providerID {
			return apperror.Forbidden("", "Meal "+m.ID.String()+" belongs to another provider")
		}
		if !m.IsActive {
			return apperror.Validation("MEAL_INACTIVE", "Meal "+m.ID.String()+" is not active")
		}
	}
	return nil
}
