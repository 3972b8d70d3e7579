package models_test

import (
	"testing"

	"github.com/Kyz7/juna/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestRoleHierarchy(t *testing.T) {
	assert.True(t, models.RoleSuperAdmin.AtLeast(models.RoleAdmin))
	assert.True(t, models.RoleAdmin.AtLeast(models.RoleProvider))
	assert.True(t, models.RoleProvider.AtLeast(models.RoleUser))
	assert.False(t, models.RoleUser.AtLeast(models.RoleProvider))
	assert.False(t, models.Role("GUEST").AtLeast(models.RoleUser))
	assert.True(t, models.RoleSuperAdmin.IsAdmin())
	assert.False(t, models.RoleProvider.IsAdmin())
}

func TestOrderStatus(t *testing.T) {
	terminal := map[models.OrderStatus]bool{
		models.OrderPending:   false,
		models.OrderConfirmed: false,
		models.OrderReady:     false,
		models.OrderCompleted: true,
		models.OrderDelivered: true,
		models.OrderCancelled: true,
	}
	for _, s := range models.AllOrderStatuses {
		assert.True(t, s.Valid())
		assert.Equal(t, terminal[s], s.IsTerminal(), string(s))
	}
	assert.False(t, models.OrderStatus("SHIPPED").Valid())

	assert.Equal(t, models.OrderCompleted, models.DeliveryMethodPickup.RedeemedStatus())
	assert.Equal(t, models.OrderDelivered, models.DeliveryMethodDelivery.RedeemedStatus())
}
