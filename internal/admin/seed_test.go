package admin_test

import (
	"context"
	"testing"

	"github.com/Kyz7/juna/internal/admin"
	"github.com/Kyz7/juna/internal/config"
	"github.com/Kyz7/juna/internal/logger"
	"github.com/Kyz7/juna/internal/models"
	"github.com/Kyz7/juna/internal/testutils"
	"github.com/Kyz7/juna/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedSuperAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - Skips without credentials", func(t *testing.T) {
		db := testutils.TestDB(t)
		require.NoError(t, admin.SeedSuperAdmin(ctx, db, config.SuperAdminConfig{}, 4, logger.Discard()))

		var count int64
		db.Model(&models.User{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("Success - Creates super admin once", func(t *testing.T) {
		db := testutils.TestDB(t)
		cfg := config.SuperAdminConfig{Email: " Root@Juna.id ", Password: "supersecret123"}

		require.NoError(t, admin.SeedSuperAdmin(ctx, db, cfg, 4, logger.Discard()))
		require.NoError(t, admin.SeedSuperAdmin(ctx, db, cfg, 4, logger.Discard()))

		var users []models.User
		require.NoError(t, db.Find(&users).Error)
		require.Len(t, users, 1)
		assert.Equal(t, "root@juna.id", users[0].Email)
		assert.Equal(t, models.RoleSuperAdmin, users[0].Role)
		assert.Equal(t, "Super Admin", users[0].Name)
		assert.True(t, utils.CheckPasswordHash("supersecret123", users[0].Password))
	})
}
