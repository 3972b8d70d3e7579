package review

import (
	"context"
	"time"

	"github.com/Kyz7/juna/internal/apperror"
	"github.com/Kyz7/juna/internal/auth"
	"github.com/Kyz7/juna/internal/cache"
	"github.com/Kyz7/juna/internal/metrics"
	"github.com/Kyz7/juna/internal/models"
	"github.com/Kyz7/juna/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db       *gorm.DB
	cache    cache.Cache
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
}

func NewService(db *gorm.DB, c cache.Cache, cacheTTL time.Duration, m *metrics.Metrics, log logrus.FieldLogger) *Service {
	return &Service{db: db, cache: c, cacheTTL: cacheTTL, metrics: m, log: log}
}

type CreateInput struct {
	OrderID        uuid.UUID  `json:"orderId" validate:"required"`
	SubscriptionID *uuid.UUID `json:"subscriptionId"`
	Rating         int        `json:"rating" validate:"required,min=1,max=5"`
	Comment        *string    `json:"comment" validate:"omitempty,max=1000"`
}

// Create records a PENDING review for a fulfilled order of the caller.
func (s *Service) Create(ctx context.Context, caller *auth.Identity, in CreateInput) (*models.Review, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, "id = ?", in.OrderID).Error; err != nil {
		return nil, apperror.FromDB(err, "Order")
	}
	if order.UserID != caller.UserID {
		return nil, apperror.Forbidden("", "You can only review your own orders")
	}
	if !order.Status.IsFulfilled() {
		return nil, apperror.Validation("ORDER_NOT_COMPLETED", "Only delivered or completed orders can be reviewed")
	}
	if in.SubscriptionID != nil && *in.SubscriptionID != order.SubscriptionID {
		return nil, apperror.Validation("", "subscriptionId does not match the order")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Review{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		return nil, apperror.FromDB(err, "Review")
	}
	if count > 0 {
		return nil, apperror.Conflict("REVIEW_ALREADY_EXISTS", "This order has already been reviewed")
	}

	review := models.Review{
		OrderID:        order.ID,
		UserID:         caller.UserID,
		SubscriptionID: order.SubscriptionID,
		Rating:         in.Rating,
		Comment:        utils.SanitizeOptional(in.Comment),
		Status:         models.ReviewPending,
	}
	if err := s.db.WithContext(ctx).Create(&review).Error; err != nil {
		if apperror.Is(apperror.FromDB(err, "Review"), apperror.KindConflict) {
			return nil, apperror.Conflict("REVIEW_ALREADY_EXISTS", "This order has already been reviewed")
		}
		return nil, apperror.FromDB(err, "Review")
	}
	return &review, nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := s.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, apperror.FromDB(err, "Review")
	}
	return &review, nil
}

// editable returns the review when the caller authored it and it is still
// awaiting moderation.
func (s *Service) editable(ctx context.Context, caller *auth.Identity, id uuid.UUID) (*models.Review, error) {
	review, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.UserID != caller.UserID {
		return nil, apperror.Forbidden("", "You can only change your own reviews")
	}
	if review.Status != models.ReviewPending {
		return nil, apperror.Validation("REVIEW_ALREADY_MODERATED", "Moderated reviews cannot be changed")
	}
	return review, nil
}

type UpdateInput struct {
	Rating  *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=1000"`
}

func (s *Service) Update(ctx context.Context, caller *auth.Identity, id uuid.UUID, in UpdateInput) (*models.Review, error) {
	review, err := s.editable(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Rating != nil {
		updates["rating"] = *in.Rating
	}
	if in.Comment != nil {
		updates["comment"] = utils.SanitizeText(*in.Comment)
	}
	if len(updates) == 0 {
		return review, nil
	}

	result := s.db.WithContext(ctx).Model(&models.Review{}).
		Where("id = ? AND status = ?", id, models.ReviewPending).
		Updates(updates)
	if result.Error != nil {
		return nil, apperror.FromDB(result.Error, "Review")
	}
	if result.RowsAffected == 0 {
		return nil, apperror.Validation("REVIEW_ALREADY_MODERATED", "Moderated reviews cannot be changed")
	}
	return s.get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, caller *auth.Identity, id uuid.UUID) error {
	if _, err := s.editable(ctx, caller, id); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.ReviewPending).
		Delete(&models.Review{})
	if result.Error != nil {
		return apperror.FromDB(result.Error, "Review")
	}
	if result.RowsAffected == 0 {
		return apperror.Validation("REVIEW_ALREADY_MODERATED", "Moderated reviews cannot be changed")
	}
	return nil
}

type ModerateInput struct {
	Status          models.ReviewStatus `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	RejectionReason *string             `json:"rejectionReason" validate:"omitempty,max=1000"`
}

// Moderate settles a PENDING review. Approval recomputes the subscription
// and provider ratings in the same transaction, with the subscription and
// provider rows locked in that order.
func (s *Service) Moderate(ctx context.Context, admin *auth.Identity, id uuid.UUID, in ModerateInput) (*models.Review, error) {
	var review models.Review
	var sub models.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&review, "id = ?", id).Error; err != nil {
			return apperror.FromDB(err, "Review")
		}

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&sub, "id = ?", review.SubscriptionID).Error
		if err != nil {
			return apperror.FromDB(err, "Subscription")
		}

		updates := map[string]interface{}{
			"status":       in.Status,
			"moderated_by": admin.UserID,
			"moderated_at": time.Now(),
		}
		if in.Status == models.ReviewRejected && in.RejectionReason != nil {
			updates["rejection_reason"] = utils.SanitizeText(*in.RejectionReason)
		}

		result := tx.Model(&models.Review{}).
			Where("id = ? AND status = ?", id, models.ReviewPending).
			Updates(updates)
		if result.Error != nil {
			return apperror.FromDB(result.Error, "Review")
		}
		if result.RowsAffected == 0 {
			return apperror.Conflict("REVIEW_ALREADY_MODERATED", "Review has already been moderated")
		}

		if in.Status != models.ReviewApproved {
			return nil
		}
		return recompute(tx, &sub)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ReviewModerated(string(in.Status))
	s.log.WithFields(logrus.Fields{
		"review_id": id,
		"status":    in.Status,
		"admin_id":  admin.UserID,
	}).Info("review moderated")

	if in.Status == models.ReviewApproved {
		s.invalidate(ctx, &sub)
	}
	return s.get(ctx, id)
}

// Stats returns the approved-review statistics of a subscription.
func (s *Service) Stats(ctx context.Context, subscriptionID uuid.UUID) (*Stats, error) {
	key := cache.SubscriptionStatsKey(subscriptionID)

	var cached Stats
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.metrics.CacheError()
		s.log.WithError(err).WithField("key", key).Warn("cache read failed")
	} else if hit {
		return &cached, nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Subscription{}).Where("id = ?", subscriptionID).Count(&count).Error; err != nil {
		return nil, apperror.FromDB(err, "Subscription")
	}
	if count == 0 {
		return nil, apperror.NotFound("Subscription")
	}

	stats, err := computeStats(s.db.WithContext(ctx), subscriptionID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, stats, s.cacheTTL); err != nil {
		s.metrics.CacheError()
		s.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
	return stats, nil
}

func (s *Service) invalidate(ctx context.Context, sub *models.Subscription) {
	keys := []string{
		cache.SubscriptionKey(sub.ID),
		cache.SubscriptionStatsKey(sub.ID),
		cache.ProviderKey(sub.ProviderID),
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.metrics.CacheError()
		s.log.WithError(err).Warn("cache invalidation failed")
	}
	if err := s.cache.DeletePattern(ctx, cache.SubscriptionListPattern); err != nil {
		s.metrics.CacheError()
		s.log.WithError(err).Warn("cache invalidation failed")
	}
}
