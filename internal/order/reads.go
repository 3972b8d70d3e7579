package order

import (
	"context"

	"github.com/Kyz7/juna/internal/apperror"
	"github.com/Kyz7/juna/internal/auth"
	"github.com/Kyz7/juna/internal/models"
	"github.com/Kyz7/juna/internal/response"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Subscription").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, apperror.FromDB(err, "Order")
	}
	return &order, nil
}

// canView lets the ordering user, the subscription's provider and admins
// read an order.
func canView(caller *auth.Identity, order *models.Order) bool {
	return order.UserID == caller.UserID ||
		caller.IsAdmin() ||
		(order.Subscription != nil && caller.OwnsProvider(order.Subscription.ProviderID))
}

func (s *Service) Get(ctx context.Context, caller *auth.Identity, id uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(caller, order) {
		return nil, apperror.Forbidden("", "You cannot view this order")
	}
	return order, nil
}

func (s *Service) GetByNumber(ctx context.Context, caller *auth.Identity, number string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Subscription").
		First(&order, "order_number = ?", number).Error
	if err != nil {
		return nil, apperror.FromDB(err, "Order")
	}
	if !canView(caller, &order) {
		return nil, apperror.Forbidden("", "You cannot view this order")
	}
	return &order, nil
}

func (s *Service) History(ctx context.Context, caller *auth.Identity, id uuid.UUID) ([]models.OrderStatusHistory, error) {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return nil, err
	}

	var history []models.OrderStatusHistory
	err := s.db.WithContext(ctx).
		Where("order_id = ?", id).
		Order("created_at ASC").
		Find(&history).Error
	if err != nil {
		return nil, apperror.FromDB(err, "Order history")
	}
	return history, nil
}

type ListFilter struct {
	UserID         *uuid.UUID
	SubscriptionID *uuid.UUID
	ProviderID     *uuid.UUID
	Status         models.OrderStatus
	DeliveryMethod models.DeliveryMethod
	Page           int
	Limit          int
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Order, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Order{})
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.SubscriptionID != nil {
		q = q.Where("subscription_id = ?", *f.SubscriptionID)
	}
	if f.ProviderID != nil {
		q = q.Where("subscription_id IN (?)",
			s.db.Model(&models.Subscription{}).Select("id").Where("provider_id = ?", *f.ProviderID))
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.DeliveryMethod != "" {
		q = q.Where("delivery_method = ?", f.DeliveryMethod)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperror.FromDB(err, "Order")
	}

	var orders []models.Order
	err := q.Preload("Subscription").
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "email", "phone")
		}).
		Order("created_at DESC").
		Offset(response.Offset(f.Page, f.Limit)).
		Limit(f.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, apperror.FromDB(err, "Order")
	}
	return orders, total, nil
}

func (s *Service) PendingCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("status = ?", models.OrderPending).
		Count(&count).Error
	if err != nil {
		return 0, apperror.FromDB(err, "Order")
	}
	return count, nil
}
