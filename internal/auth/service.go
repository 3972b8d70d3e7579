package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Kyz7/juna/internal/apperror"
	"github.com/Kyz7/juna/internal/models"
	"github.com/Kyz7/juna/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Service struct {
	db         *gorm.DB
	tokens     *utils.TokenManager
	bcryptCost int
	log        logrus.FieldLogger
}

func NewService(db *gorm.DB, tokens *utils.TokenManager, bcryptCost int, log logrus.FieldLogger) *Service {
	return &Service{db: db, tokens: tokens, bcryptCost: bcryptCost, log: log}
}

type RegisterInput struct {
	Name     string  `json:"name" validate:"required,min=2,max=100"`
	Email    string  `json:"email" validate:"required,email,max=255"`
	Phone    *string `json:"phone" validate:"omitempty,min=8,max=20"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
}

type Result struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int          `json:"expiresIn"`
	User         *models.User `json:"user"`
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	email := normalizeEmail(in.Email)
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apperror.FromDB(err, "User")
	}
	if count > 0 {
		return nil, apperror.Conflict("EMAIL_ALREADY_EXISTS", "Email already registered")
	}

	if in.Phone != nil && *in.Phone != "" {
		if err := db.Model(&models.User{}).Where("phone = ?", *in.Phone).Count(&count).Error; err != nil {
			return nil, apperror.FromDB(err, "User")
		}
		if count > 0 {
			return nil, apperror.Conflict("PHONE_ALREADY_EXISTS", "Phone number already registered")
		}
	} else {
		in.Phone = nil
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperror.Internal("Failed to hash password", err)
	}

	user := models.User{
		Name:         utils.SanitizeText(in.Name),
		Email:        email,
		Phone:        in.Phone,
		Password:     hash,
		Role:         models.RoleUser,
		IsActive:     true,
		AuthProvider: "local",
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, apperror.FromDB(err, "User")
	}

	s.log.WithField("user_id", user.ID).Info("user registered")
	return s.issue(ctx, &user)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.FromDB(err, "User")
	}
	if err != nil || !utils.CheckPasswordHash(password, user.Password) {
		return nil, apperror.Unauthorized("INVALID_CREDENTIALS", "Invalid email or password")
	}
	if !user.IsActive {
		return nil, apperror.Forbidden("ACCOUNT_DISABLED", "Account is disabled")
	}

	return s.issue(ctx, &user)
}

// Refresh rotates a refresh token. The old token is revoked with a
// conditional update so a token can be used at most once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Result, error) {
	userID, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, apperror.Unauthorized("INVALID_REFRESH_TOKEN", "Invalid or expired refresh token")
	}

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.RefreshToken{}).
			Where("user_id = ? AND token_hash = ? AND revoked = ? AND expires_at > ?",
				userID, utils.HashToken(refreshToken), false, time.Now()).
			Update("revoked", true)
		if result.Error != nil {
			return apperror.FromDB(result.Error, "Refresh token")
		}
		if result.RowsAffected != 1 {
			return apperror.Unauthorized("INVALID_REFRESH_TOKEN", "Invalid or expired refresh token")
		}

		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return apperror.Unauthorized("INVALID_REFRESH_TOKEN", "User no longer exists")
		}
		if !user.IsActive {
			return apperror.Forbidden("ACCOUNT_DISABLED", "Account is disabled")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, &user)
}

// Logout revokes the given refresh token, or every token of the user when
// none is given.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	q := s.db.WithContext(ctx).Model(&models.RefreshToken{}).Where("user_id = ? AND revoked = ?", userID, false)
	if refreshToken != "" {
		q = q.Where("token_hash = ?", utils.HashToken(refreshToken))
	}
	if err := q.Update("revoked", true).Error; err != nil {
		return apperror.FromDB(err, "Refresh token")
	}
	return nil
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72,nefield=CurrentPassword"`
}

func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, in ChangePasswordInput) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return apperror.FromDB(err, "User")
	}
	if !utils.CheckPasswordHash(in.CurrentPassword, user.Password) {
		return apperror.Unauthorized("INVALID_CREDENTIALS", "Current password is incorrect")
	}

	hash, err := utils.HashPassword(in.NewPassword, s.bcryptCost)
	if err != nil {
		return apperror.Internal("Failed to hash password", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("password", hash).Error; err != nil {
			return apperror.FromDB(err, "User")
		}
		return tx.Model(&models.RefreshToken{}).
			Where("user_id = ? AND revoked = ?", userID, false).
			Update("revoked", true).Error
	})
}

// LoginExternal signs in a user authenticated by a third party, creating
// the account on first use.
func (s *Service) LoginExternal(ctx context.Context, authProvider, email, name string) (*Result, error) {
	email = normalizeEmail(email)
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Name:         utils.SanitizeText(name),
			Email:        email,
			Role:         models.RoleUser,
			IsActive:     true,
			IsVerified:   true,
			AuthProvider: authProvider,
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, apperror.FromDB(err, "User")
		}
		s.log.WithFields(logrus.Fields{"user_id": user.ID, "auth_provider": authProvider}).Info("user registered")
	case err != nil:
		return nil, apperror.FromDB(err, "User")
	case !user.IsActive:
		return nil, apperror.Forbidden("ACCOUNT_DISABLED", "Account is disabled")
	}

	return s.issue(ctx, &user)
}

func (s *Service) issue(ctx context.Context, user *models.User) (*Result, error) {
	access, err := s.tokens.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, apperror.Internal("Failed to generate access token", err)
	}

	refresh, expires, err := s.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, apperror.Internal("Failed to generate refresh token", err)
	}

	row := models.RefreshToken{UserID: user.ID, TokenHash: utils.HashToken(refresh), ExpiresAt: expires}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, apperror.FromDB(err, "Refresh token")
	}

	return &Result{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.tokens.AccessTTL().Seconds()),
		User:         user,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
