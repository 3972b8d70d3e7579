package order_test

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/Kyz7/juna/internal/apperror"
	"github.com/Kyz7/juna/internal/cache"
	"github.com/Kyz7/juna/internal/logger"
	"github.com/Kyz7/juna/internal/models"
	"github.com/Kyz7/juna/internal/order"
	"github.com/Kyz7/juna/internal/testutils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	app           *fiber.App
	db            *gorm.DB
	customerToken string
	providerToken string
	adminToken    string
	subscription  *models.Subscription
}

func setup(t *testing.T) *fixture {
	app, db := testutils.SetupTestApp(t)

	customer := testutils.CreateTestUser(t, db, "customer@test.com", "password123", models.RoleUser)
	owner := testutils.CreateTestUser(t, db, "kitchen@test.com", "password123", models.RoleUser)
	admin := testutils.CreateTestUser(t, db, "admin@test.com", "password123", models.RoleAdmin)
	provider := testutils.CreateTestProvider(t, db, owner, models.ProviderApproved)

	sub := &models.Subscription{
		ProviderID:  provider.ID,
		Name:        "Weekly Lunch",
		Description: "Five healthy lunches a week",
		Price:       decimal.NewFromInt(5000),
		Type:        models.SubscriptionLunch,
		Category:    models.CategoryAsian,
		Duration:    models.DurationWeek,
		IsActive:    true,
		IsPublic:    true,
	}
	require.NoError(t, db.Create(sub).Error)

	return &fixture{
		app:           app,
		db:            db,
		customerToken: testutils.GetAuthToken(t, customer),
		providerToken: testutils.GetAuthToken(t, owner),
		adminToken:    testutils.GetAuthToken(t, admin),
		subscription:  sub,
	}
}

func (f *fixture) placeOrder(t *testing.T, method models.DeliveryMethod) models.Order {
	body := map[string]interface{}{
		"subscriptionId": f.subscription.ID,
		"deliveryMethod": method,
	}
	if method == models.DeliveryMethodPickup {
		body["pickupLocation"] = "Front desk, Tower A"
	} else {
		body["deliveryAddress"] = "Jl. Thamrin No. 10, Jakarta"
	}

	resp, err := testutils.MakeRequest(f.app, "POST", "/orders", body, f.customerToken)
	require.NoError(t, err)
	require.Equal(t, 201, resp.Code, resp.Body.String())

	var order models.Order
	testutils.ParseData(t, resp, &order)
	return order
}

func (f *fixture) subscriberCount(t *testing.T) int {
	var sub models.Subscription
	require.NoError(t, f.db.First(&sub, "id = ?", f.subscription.ID).Error)
	return sub.SubscriberCount
}

func (f *fixture) advance(t *testing.T, orderID interface{}, steps ...string) {
	for _, step := range steps {
		resp, err := testutils.MakeRequest(f.app, "PUT", fmt.Sprintf("/orders/%v/%s", orderID, step), nil, f.providerToken)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code, resp.Body.String())
	}
}

func TestCreateOrderHandler(t *testing.T) {
	f := setup(t)

	t.Run("Success - Purchase subscription", func(t *testing.T) {
		assert.Equal(t, 0, f.subscriberCount(t))

		order := f.placeOrder(t, models.DeliveryMethodPickup)

		assert.Equal(t, models.OrderPending, order.Status)
		assert.True(t, decimal.NewFromInt(5000).Equal(order.Amount))
		assert.Regexp(t, regexp.MustCompile(`^ORD-\d{6}-\d{5}$`), order.OrderNumber)
		assert.Regexp(t, regexp.MustCompile(`^JUNA-[0-9A-F]{8}$`), order.QRCode)
		assert.Equal(t, 1, f.subscriberCount(t))
	})

	t.Run("Success - Order numbers and codes are unique", func(t *testing.T) {
		a := f.placeOrder(t, models.DeliveryMethodDelivery)
		b := f.placeOrder(t, models.DeliveryMethodDelivery)

		assert.NotEqual(t, a.OrderNumber, b.OrderNumber)
		assert.NotEqual(t, a.QRCode, b.QRCode)
	})

	t.Run("Error - Delivery without address", func(t *testing.T) {
		body := map[string]interface{}{
			"subscriptionId": f.subscription.ID,
			"deliveryMethod": "DELIVERY",
		}
		resp, err := testutils.MakeRequest(f.app, "POST", "/orders", body, f.customerToken)
		assert.NoError(t, err)
		assert.Equal(t, 400, resp.Code)

		testutils.AssertError(t, resp, "VALIDATION_ERROR")
	})

	t.Run("Error - Unknown delivery method", func(t *testing.T) {
		body := map[string]interface{}{
			"subscriptionId": f.subscription.ID,
			"deliveryMethod": "DRONE",
		}
		resp, err := testutils.MakeRequest(f.app, "POST", "/orders", body, f.customerToken)
		assert.NoError(t, err)
		assert.Equal(t, 400, resp.Code)
	})

	t.Run("Error - Subscription not found", func(t *testing.T) {
		body := map[string]interface{}{
			"subscriptionId": "6f1c2b1e-0000-4000-8000-000000000000",
			"deliveryMethod": "PICKUP",
			"pickupLocation": "Front desk",
		}
		resp, err := testutils.MakeRequest(f.app, "POST", "/orders", body, f.customerToken)
		assert.NoError(t, err)
		assert.Equal(t, 404, resp.Code)

		testutils.AssertError(t, resp, "NOT_FOUND")
	})

	t.Run("Error - Inactive subscription", func(t *testing.T) {
		require.NoError(t, f.db.Model(f.subscription).Update("is_active", false).Error)
		defer f.db.Model(f.subscription).Update("is_active", true)

		body := map[string]interface{}{
			"subscriptionId": f.subscription.ID,
			"deliveryMethod": "PICKUP",
			"pickupLocation": "Front desk",
		}
		resp, err := testutils.MakeRequest(f.app, "POST", "/orders", body, f.customerToken)
		assert.NoError(t, err)
		assert.Equal(t, 400, resp.Code)

		testutils.AssertError(t, resp, "SUBSCRIPTION_UNAVAILABLE")
	})

	t.Run("Error - Private subscription", func(t *testing.T) {
		require.NoError(t, f.db.Model(f.subscription).Update("is_public", false).Error)
		defer f.db.Model(f.subscription).Update("is_public", true)
		before := f.subscriberCount(t)

		body := map[string]interface{}{
			"subscriptionId": f.subscription.ID,
			"deliveryMethod": "PICKUP",
			"pickupLocation": "Front desk",
		}
		resp, err := testutils.MakeRequest(f.app, "POST", "/orders", body, f.customerToken)
		assert.NoError(t, err)
		assert.Equal(t, 400, resp.Code)

		testutils.AssertError(t, resp, "SUBSCRIPTION_UNAVAILABLE")
		assert.Equal(t, before, f.subscriberCount(t))
	})

	t.Run("Error - Provider not approved", func(t *testing.T) {
		providers := f.db.Model(&models.Provider{}).Where("id = ?", f.subscription.ProviderID)
		require.NoError(t, providers.Update("status", models.ProviderSuspended).Error)
		defer f.db.Model(&models.Provider{}).Where("id = ?", f.subscription.ProviderID).Update("status", models.ProviderApproved)
		before := f.subscriberCount(t)

		body := map[string]interface{}{
			"subscriptionId": f.subscription.ID,
			"deliveryMethod": "PICKUP",
			"pickupLocation": "Front desk",
		}
		resp, err := testutils.MakeRequest(f.app, "POST", "/orders", body, f.customerToken)
		assert.NoError(t, err)
		assert.Equal(t, 403, resp.Code)

		testutils.AssertError(t, resp, "PROVIDER_NOT_APPROVED")
		assert.Equal(t, before, f.subscriberCount(t))
	})

	t.Run("Error - Missing token", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.app, "POST", "/orders", map[string]interface{}{}, "")
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)

		testutils.AssertError(t, resp, "UNAUTHORIZED")
	})
}

func TestRedeemOrderHandler(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, models.DeliveryMethodPickup)

	t.Run("Error - Not ready yet", func(t *testing.T) {
		body := map[string]interface{}{"qrCode": order.QRCode}
		resp, err := testutils.MakeRequest(f.app, "POST", "/orders/"+order.ID.String()+"/complete", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 400, resp.Code)

		testutils.AssertError(t, resp, "ORDER_NOT_READY")
	})

	f.advance(t, order.ID, "confirm", "ready")

	t.Run("Error - Wrong code", func(t *testing.T) {
		body := map[string]interface{}{"qrCode": "JUNA-00000000"}
		resp, err := testutils.MakeRequest(f.app, "POST", "/orders/"+order.ID.String()+"/complete", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 400, resp.Code)

		testutils.AssertError(t, resp, "QR_CODE_INVALID")
	})

	t.Run("Success - Anonymous redemption completes pickup order", func(t *testing.T) {
		body := map[string]interface{}{"qrCode": order.QRCode}
		resp, err := testutils.MakeRequest(f.app, "POST", "/orders/"+order.ID.String()+"/complete", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		var redeemed models.Order
		testutils.ParseData(t, resp, &redeemed)
		assert.Equal(t, models.OrderCompleted, redeemed.Status)
		assert.NotNil(t, redeemed.CompletedAt)
	})

	t.Run("Error - Code already used", func(t *testing.T) {
		body := map[string]interface{}{"qrCode": order.QRCode}
		resp, err := testutils.MakeRequest(f.app, "POST", "/orders/"+order.ID.String()+"/complete", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 409, resp.Code)

		testutils.AssertError(t, resp, "QR_CODE_ALREADY_USED")
	})

	t.Run("Error - Scan surface shares the same guard", func(t *testing.T) {
		url := fmt.Sprintf("/orders/scan/%s/%s", order.ID, order.QRCode)
		resp, err := testutils.MakeRequest(f.app, "POST", url, nil, "")
		assert.NoError(t, err)
		assert.Equal(t, 409, resp.Code)

		testutils.AssertError(t, resp, "QR_CODE_ALREADY_USED")
	})

	t.Run("Success - History records every transition", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.app, "GET", "/orders/"+order.ID.String()+"/history", nil, f.customerToken)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		var history []models.OrderStatusHistory
		testutils.ParseData(t, resp, &history)
		require.Len(t, history, 4)
		assert.Equal(t, models.OrderPending, history[0].ToStatus)
		assert.Equal(t, models.OrderCompleted, history[3].ToStatus)
		assert.Nil(t, history[3].ChangedBy)
	})
}

func TestScanDeliveryOrder(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, models.DeliveryMethodDelivery)
	f.advance(t, order.ID, "confirm", "ready")

	url := fmt.Sprintf("/orders/scan/%s/%s", order.ID, order.QRCode)
	resp, err := testutils.MakeRequest(f.app, "POST", url, nil, "")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Code)

	var redeemed models.Order
	testutils.ParseData(t, resp, &redeemed)
	assert.Equal(t, models.OrderDelivered, redeemed.Status)
}

func TestProviderOwnerActions(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, models.DeliveryMethodPickup)

	other := testutils.CreateTestUser(t, f.db, "rival@test.com", "password123", models.RoleUser)
	testutils.CreateTestProvider(t, f.db, other, models.ProviderApproved)
	otherToken := testutils.GetAuthToken(t, other)

	for _, tc := range []struct {
		name  string
		token string
	}{
		{"Error - Other provider cannot confirm", otherToken},
		{"Error - Admin cannot confirm", f.adminToken},
		{"Error - Customer cannot confirm", f.customerToken},
	} {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := testutils.MakeRequest(f.app, "PUT", "/orders/"+order.ID.String()+"/confirm", nil, tc.token)
			assert.NoError(t, err)
			assert.Equal(t, 403, resp.Code)

			testutils.AssertError(t, resp, "FORBIDDEN")
		})
	}

	t.Run("Error - Ready before confirm", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.app, "PUT", "/orders/"+order.ID.String()+"/ready", nil, f.providerToken)
		assert.NoError(t, err)
		assert.Equal(t, 400, resp.Code)
	})

	t.Run("Success - Owner confirms", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.app, "PUT", "/orders/"+order.ID.String()+"/confirm", nil, f.providerToken)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		var confirmed models.Order
		testutils.ParseData(t, resp, &confirmed)
		assert.Equal(t, models.OrderConfirmed, confirmed.Status)
	})

	t.Run("Error - Confirm twice", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.app, "PUT", "/orders/"+order.ID.String()+"/confirm", nil, f.providerToken)
		assert.NoError(t, err)
		assert.Equal(t, 409, resp.Code)
	})

	t.Run("Success - Provider lists its orders", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.app, "GET", "/orders/provider/me", nil, f.providerToken)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		result := testutils.ParseData(t, resp, nil)
		require.NotNil(t, result.Meta)
		assert.Equal(t, int64(1), result.Meta.Total)
	})

	t.Run("Error - Other provider cannot view", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.app, "GET", "/orders/"+order.ID.String(), nil, otherToken)
		assert.NoError(t, err)
		assert.Equal(t, 403, resp.Code)
	})
}

func TestRegenerateCode(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, models.DeliveryMethodPickup)
	url := "/orders/" + order.ID.String() + "/qrcode"

	codes := map[string]bool{order.QRCode: true}
	for i := 0; i < 2; i++ {
		resp, err := testutils.MakeRequest(f.app, "PUT", url, nil, f.providerToken)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code, resp.Body.String())

		var updated models.Order
		testutils.ParseData(t, resp, &updated)
		assert.False(t, codes[updated.QRCode], "code must change")
		codes[updated.QRCode] = true
		assert.Equal(t, models.OrderPending, updated.Status)
		assert.Equal(t, i+1, updated.QRRegenerations)
	}

	t.Run("Error - Regeneration cap reached", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.app, "PUT", url, nil, f.providerToken)
		assert.NoError(t, err)
		assert.Equal(t, 409, resp.Code)

		testutils.AssertError(t, resp, "QR_REGENERATION_LIMIT")
	})

	t.Run("Error - Old code no longer redeems", func(t *testing.T) {
		f.advance(t, order.ID, "confirm", "ready")

		body := map[string]interface{}{"qrCode": order.QRCode}
		resp, err := testutils.MakeRequest(f.app, "POST", "/orders/"+order.ID.String()+"/complete", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 400, resp.Code)

		testutils.AssertError(t, resp, "QR_CODE_INVALID")
	})
}

func TestCancelOrderHandler(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, models.DeliveryMethodPickup)
	require.Equal(t, 1, f.subscriberCount(t))

	t.Run("Error - Other user cannot cancel", func(t *testing.T) {
		stranger := testutils.CreateTestUser(t, f.db, "stranger@test.com", "password123", models.RoleUser)
		resp, err := testutils.MakeRequest(f.app, "DELETE", "/orders/"+order.ID.String(), nil, testutils.GetAuthToken(t, stranger))
		assert.NoError(t, err)
		assert.Equal(t, 403, resp.Code)
	})

	t.Run("Success - Owner cancels pending order", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.app, "DELETE", "/orders/"+order.ID.String(), nil, f.customerToken)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		var cancelled models.Order
		testutils.ParseData(t, resp, &cancelled)
		assert.Equal(t, models.OrderCancelled, cancelled.Status)
		assert.NotNil(t, cancelled.CancelledAt)
		assert.Equal(t, 0, f.subscriberCount(t))
	})

	t.Run("Error - Cancel twice", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.app, "DELETE", "/orders/"+order.ID.String(), nil, f.customerToken)
		assert.NoError(t, err)
		assert.Equal(t, 409, resp.Code)

		testutils.AssertError(t, resp, "CONFLICT")
		assert.Equal(t, 0, f.subscriberCount(t))
	})

	t.Run("Success - Admin cancels ready order", func(t *testing.T) {
		other := f.placeOrder(t, models.DeliveryMethodPickup)
		f.advance(t, other.ID, "confirm", "ready")

		resp, err := testutils.MakeRequest(f.app, "DELETE", "/orders/"+other.ID.String(), nil, f.adminToken)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)
		assert.Equal(t, 0, f.subscriberCount(t))
	})
}

func TestSubscriberCountInvariant(t *testing.T) {
	f := setup(t)

	var orders []models.Order
	for i := 0; i < 4; i++ {
		orders = append(orders, f.placeOrder(t, models.DeliveryMethodPickup))
	}
	for _, o := range orders[:2] {
		resp, err := testutils.MakeRequest(f.app, "DELETE", "/orders/"+o.ID.String(), nil, f.customerToken)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)
	}

	var live int64
	require.NoError(t, f.db.Model(&models.Order{}).
		Where("subscription_id = ? AND status <> ?", f.subscription.ID, models.OrderCancelled).
		Count(&live).Error)
	assert.Equal(t, int64(2), live)
	assert.Equal(t, int(live), f.subscriberCount(t))
}

func TestAdminOrderEndpoints(t *testing.T) {
	f := setup(t)
	f.placeOrder(t, models.DeliveryMethodPickup)
	f.placeOrder(t, models.DeliveryMethodDelivery)

	t.Run("Success - Pending count", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.app, "GET", "/orders/pending/count", nil, f.adminToken)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		var data struct {
			Count int64 `json:"count"`
		}
		testutils.ParseData(t, resp, &data)
		assert.Equal(t, int64(2), data.Count)
	})

	t.Run("Success - List filtered by delivery method", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.app, "GET", "/orders?deliveryMethod=DELIVERY", nil, f.adminToken)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		var orders []models.Order
		result := testutils.ParseData(t, resp, &orders)
		require.Len(t, orders, 1)
		assert.Equal(t, models.DeliveryMethodDelivery, orders[0].DeliveryMethod)
		assert.Equal(t, int64(1), result.Meta.Total)
	})

	t.Run("Error - Customer cannot list all orders", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.app, "GET", "/orders", nil, f.customerToken)
		assert.NoError(t, err)
		assert.Equal(t, 403, resp.Code)
	})

	t.Run("Success - Customer lists own orders", func(t *testing.T) {
		resp, err := testutils.MakeRequest(f.app, "GET", "/orders/me", nil, f.customerToken)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		var orders []models.Order
		testutils.ParseData(t, resp, &orders)
		assert.Len(t, orders, 2)
	})
}

func TestConcurrentRedemption(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, models.DeliveryMethodPickup)
	f.advance(t, order.ID, "confirm", "ready")

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = map[int]int{}
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := map[string]interface{}{"qrCode": order.QRCode}
			resp, err := testutils.MakeRequest(f.app, "POST", "/orders/"+order.ID.String()+"/complete", body, "")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				codes[0]++
				return
			}
			codes[resp.Code]++
		}()
	}
	wg.Wait()

	assert.Equal(t, map[int]int{200: 1, 409: 9}, codes)

	var history int64
	require.NoError(t, f.db.Model(&models.OrderStatusHistory{}).
		Where("order_id = ? AND to_status = ?", order.ID, models.OrderCompleted).
		Count(&history).Error)
	assert.Equal(t, int64(1), history)
}

func TestConcurrentCreateCancel(t *testing.T) {
	f := setup(t)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		orders []models.Order
	)
	body := map[string]interface{}{
		"subscriptionId": f.subscription.ID,
		"deliveryMethod": "PICKUP",
		"pickupLocation": "Front desk, Tower A",
	}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := testutils.MakeRequest(f.app, "POST", "/orders", body, f.customerToken)
			if err != nil || resp.Code != 201 {
				return
			}
			var envelope struct {
				Data models.Order `json:"data"`
			}
			if json.Unmarshal(resp.Body.Bytes(), &envelope) != nil {
				return
			}
			mu.Lock()
			orders = append(orders, envelope.Data)
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Len(t, orders, 20)
	assert.Equal(t, 20, f.subscriberCount(t))

	cancelled := 0
	for _, o := range orders[:10] {
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				resp, err := testutils.MakeRequest(f.app, "DELETE", "/orders/"+id, nil, f.customerToken)
				if err == nil && resp.Code == 200 {
					mu.Lock()
					cancelled++
					mu.Unlock()
				}
			}(o.ID.String())
		}
	}
	wg.Wait()

	assert.Equal(t, 10, cancelled)

	var live int64
	require.NoError(t, f.db.Model(&models.Order{}).
		Where("subscription_id = ? AND status <> ?", f.subscription.ID, models.OrderCancelled).
		Count(&live).Error)
	assert.Equal(t, int64(10), live)
	assert.Equal(t, int(live), f.subscriberCount(t))
}

func TestRedeemThrottle(t *testing.T) {
	f := setup(t)
	placed := f.placeOrder(t, models.DeliveryMethodPickup)
	f.advance(t, placed.ID, "confirm", "ready")

	svc := order.NewService(f.db, cache.Noop{}, nil, order.Options{ScanPerSecond: 0.001, ScanBurst: 1}, logger.Discard())

	t.Run("Error - Unknown ids are never throttled", func(t *testing.T) {
		unknown := uuid.New()
		for i := 0; i < 3; i++ {
			_, err := svc.Redeem(t.Context(), unknown, "JUNA-00000000")
			assert.True(t, apperror.Is(err, apperror.KindNotFound))
		}
	})

	t.Run("Error - Known id throttled after burst", func(t *testing.T) {
		_, err := svc.Redeem(t.Context(), placed.ID, "JUNA-00000000")
		assert.Equal(t, "QR_CODE_INVALID", apperror.As(err).Code)

		_, err = svc.Redeem(t.Context(), placed.ID, placed.QRCode)
		assert.True(t, apperror.Is(err, apperror.KindTooManyRequests))
	})
}
