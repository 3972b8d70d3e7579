package admin

import (
	"context"
	"errors"
	"strings"

	"github.com/Kyz7/juna/internal/config"
	"github.com/Kyz7/juna/internal/models"
	"github.com/Kyz7/juna/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SeedSuperAdmin creates the bootstrap SUPER_ADMIN account when credentials
// are configured and no user holds that email yet.
func SeedSuperAdmin(ctx context.Context, db *gorm.DB, cfg config.SuperAdminConfig, bcryptCost int, log logrus.FieldLogger) error {
	email := strings.ToLower(strings.TrimSpace(cfg.Email))
	if email == "" || cfg.Password == "" {
		log.Debug("super admin credentials not set, skipping seed")
		return nil
	}

	var existing models.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := utils.HashPassword(cfg.Password, bcryptCost)
	if err != nil {
		return err
	}

	name := cfg.Name
	if name == "" {
		name = "Super Admin"
	}
	user := models.User{
		Name:         name,
		Email:        email,
		Password:     hash,
		Role:         models.RoleSuperAdmin,
		IsActive:     true,
		IsVerified:   true,
		AuthProvider: "local",
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return err
	}

	log.WithField("email", email).Info("super admin seeded")
	return nil
}
