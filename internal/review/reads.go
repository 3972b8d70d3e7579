package review

import (
	"context"

	"github.com/Kyz7/juna/internal/apperror"
	"github.com/Kyz7/juna/internal/auth"
	"github.com/Kyz7/juna/internal/models"
	"github.com/Kyz7/juna/internal/response"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func authorName(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name")
}

// ListBySubscription lists the approved reviews of a subscription.
func (s *Service) ListBySubscription(ctx context.Context, subscriptionID uuid.UUID, page, limit int) ([]models.Review, int64, error) {
	return s.List(ctx, ListFilter{
		SubscriptionID: &subscriptionID,
		Status:         models.ReviewApproved,
		Page:           page,
		Limit:          limit,
	})
}

func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.WithContext(ctx).
		Preload("Subscription").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, apperror.FromDB(err, "Review")
	}
	return reviews, nil
}

// GetByOrder returns the review of an order. Reviews still in moderation
// are only visible to their author and admins.
func (s *Service) GetByOrder(ctx context.Context, caller *auth.Identity, orderID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := s.db.WithContext(ctx).
		Preload("User", authorName).
		First(&review, "order_id = ?", orderID).Error
	if err != nil {
		return nil, apperror.FromDB(err, "Review")
	}
	if review.Status != models.ReviewApproved && review.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, apperror.NotFound("Review")
	}
	return &review, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := s.db.WithContext(ctx).
		Preload("User", authorName).
		Preload("Order").
		Preload("Subscription").
		First(&review, "id = ?", id).Error
	if err != nil {
		return nil, apperror.FromDB(err, "Review")
	}
	return &review, nil
}

type ListFilter struct {
	SubscriptionID *uuid.UUID
	UserID         *uuid.UUID
	Status         models.ReviewStatus
	Rating         int
	Page           int
	Limit          int
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Review, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Review{})
	if f.SubscriptionID != nil {
		q = q.Where("subscription_id = ?", *f.SubscriptionID)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Rating > 0 {
		q = q.Where("rating = ?", f.Rating)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperror.FromDB(err, "Review")
	}

	var reviews []models.Review
	err := q.Preload("User", authorName).
		Order("created_at DESC").
		Offset(response.Offset(f.Page, f.Limit)).
		Limit(f.Limit).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, apperror.FromDB(err, "Review")
	}
	return reviews, total, nil
}

func (s *Service) PendingCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Review{}).
		Where("status = ?", models.ReviewPending).
		Count(&count).Error
	if err != nil {
		return 0, apperror.FromDB(err, "Review")
	}
	return count, nil
}
