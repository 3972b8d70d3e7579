package admin

import (
	"context"

	"github.com/Kyz7/juna/internal/apperror"
	"github.com/Kyz7/juna/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Dashboard struct {
	Users          UserCounts         `json:"users"`
	Providers      map[string]int64   `json:"providers"`
	Subscriptions  SubscriptionCounts `json:"subscriptions"`
	Orders         map[string]int64   `json:"orders"`
	PendingReviews int64              `json:"pendingReviews"`
	Revenue        decimal.Decimal    `json:"revenue"`
}

type UserCounts struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

type SubscriptionCounts struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type statusCount struct {
	Status string
	Count  int64
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	d := &Dashboard{
		Providers: map[string]int64{},
		Orders:    map[string]int64{},
	}

	if err := db.Model(&models.User{}).Count(&d.Users.Total).Error; err != nil {
		return nil, apperror.FromDB(err, "User")
	}
	if err := db.Model(&models.User{}).Where("is_active = ?", true).Count(&d.Users.Active).Error; err != nil {
		return nil, apperror.FromDB(err, "User")
	}

	for _, st := range []models.ProviderStatus{
		models.ProviderPending, models.ProviderApproved, models.ProviderRejected, models.ProviderSuspended,
	} {
		d.Providers[string(st)] = 0
	}
	if err := countByStatus(db.Model(&models.Provider{}), d.Providers); err != nil {
		return nil, apperror.FromDB(err, "Provider")
	}

	if err := db.Model(&models.Subscription{}).Count(&d.Subscriptions.Total).Error; err != nil {
		return nil, apperror.FromDB(err, "Subscription")
	}
	if err := db.Model(&models.Subscription{}).Where("is_active = ?", true).Count(&d.Subscriptions.Active).Error; err != nil {
		return nil, apperror.FromDB(err, "Subscription")
	}

	for _, st := range models.AllOrderStatuses {
		d.Orders[string(st)] = 0
	}
	if err := countByStatus(db.Model(&models.Order{}), d.Orders); err != nil {
		return nil, apperror.FromDB(err, "Order")
	}

	err := db.Model(&models.Review{}).Where("status = ?", models.ReviewPending).Count(&d.PendingReviews).Error
	if err != nil {
		return nil, apperror.FromDB(err, "Review")
	}

	var revenue decimal.NullDecimal
	err = db.Model(&models.Order{}).
		Select("SUM(amount)").
		Where("status IN ?", []models.OrderStatus{models.OrderCompleted, models.OrderDelivered}).
		Row().Scan(&revenue)
	if err != nil {
		return nil, apperror.FromDB(err, "Order")
	}
	d.Revenue = decimal.Zero
	if revenue.Valid {
		d.Revenue = revenue.Decimal
	}

	return d, nil
}

func countByStatus(q *gorm.DB, into map[string]int64) error {
	var rows []statusCount
	if err := q.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return err
	}
	for _, r := range rows {
		into[r.Status] = r.Count
	}
	return nil
}
