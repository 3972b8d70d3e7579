package user

import (
	"context"
	"strings"

	"github.com/Kyz7/juna/internal/apperror"
	"github.com/Kyz7/juna/internal/models"
	"github.com/Kyz7/juna/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewService(db *gorm.DB, log logrus.FieldLogger) *Service {
	return &Service{db: db, log: log}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Provider").First(&user, "id = ?", id).Error; err != nil {
		return nil, apperror.FromDB(err, "User")
	}
	return &user, nil
}

type UpdateInput struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=100"`
	Phone *string `json:"phone" validate:"omitempty,min=8,max=20"`
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = utils.SanitizeText(*in.Name)
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		if user.Phone == nil || *user.Phone != phone {
			var count int64
			err := s.db.WithContext(ctx).Model(&models.User{}).
				Where("phone = ? AND id <> ?", phone, id).
				Count(&count).Error
			if err != nil {
				return nil, apperror.FromDB(err, "User")
			}
			if count > 0 {
				return nil, apperror.Conflict("PHONE_ALREADY_EXISTS", "Phone number already registered")
			}
		}
		updates["phone"] = phone
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, apperror.FromDB(err, "User")
	}
	return s.Get(ctx, id)
}

// Delete removes the account for good. Accounts with orders still in
// flight are refused so providers are never left with orphaned work.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, password string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.Password != "" && !utils.CheckPasswordHash(password, user.Password) {
		return apperror.Unauthorized("INVALID_CREDENTIALS", "Password is incorrect")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open int64
		err := tx.Model(&models.Order{}).
			Where("user_id = ? AND status IN ?", id, []models.OrderStatus{
				models.OrderPending, models.OrderConfirmed, models.OrderReady,
			}).
			Count(&open).Error
		if err != nil {
			return apperror.FromDB(err, "Order")
		}
		if open > 0 {
			return apperror.Conflict("", "Account has orders in progress")
		}

		if err := tx.Where("user_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
			return apperror.FromDB(err, "Refresh token")
		}
		if err := tx.Delete(&models.User{}, "id = ?", id).Error; err != nil {
			return apperror.FromDB(err, "User")
		}

		s.log.WithField("user_id", id).Info("account deleted")
		return nil
	})
}

type ListFilter struct {
	Role     models.Role
	IsActive *bool
	Search   string
	Page     int
	Limit    int
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.User, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.User{})
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperror.FromDB(err, "User")
	}

	var users []models.User
	err := q.Order("created_at DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, apperror.FromDB(err, "User")
	}
	return users, total, nil
}

// SetActive suspends or reactivates an account. Admin accounts cannot be
// suspended from here. Suspension also revokes every refresh token.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !active && user.Role.IsAdmin() {
		return nil, apperror.Forbidden("", "Admin accounts cannot be suspended")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Update("is_active", active).Error; err != nil {
			return apperror.FromDB(err, "User")
		}
		if active {
			return nil
		}
		return tx.Model(&models.RefreshToken{}).
			Where("user_id = ? AND revoked = ?", id, false).
			Update("revoked", true).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": id, "active": active}).Info("account status changed")
	return user, nil
}
