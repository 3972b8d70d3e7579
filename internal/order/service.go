package order

import (
	"context"
	"errors"
	"strings"
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
)

// MaxCodeRegenerations caps how often a provider may reissue an order's
// redemption code.
const MaxCodeRegenerations = 2

const codeAttempts = 5

// errStale means a conditional update matched no row because the order
// moved under us.
var errStale = errors.New("order changed concurrently")

type Service struct {
	db      *gorm.DB
	cache   cache.Cache
	metrics *metrics.Metrics
	scans   *keyedLimiter
	log     logrus.FieldLogger
}

type Options struct {
	ScanPerSecond float64
	ScanBurst     int
}

func NewService(db *gorm.DB, c cache.Cache, m *metrics.Metrics, opts Options, log logrus.FieldLogger) *Service {
	return &Service{
		db:      db,
		cache:   c,
		metrics: m,
		scans:   newKeyedLimiter(opts.ScanPerSecond, opts.ScanBurst),
		log:     log,
	}
}

type CreateInput struct {
	SubscriptionID  uuid.UUID             `json:"subscriptionId" validate:"required"`
	DeliveryMethod  models.DeliveryMethod `json:"deliveryMethod" validate:"required,oneof=DELIVERY PICKUP"`
	DeliveryAddress *string               `json:"deliveryAddress" validate:"omitempty,min=5,max=500"`
	PickupLocation  *string               `json:"pickupLocation" validate:"omitempty,min=2,max=500"`
	ScheduledFor    *time.Time            `json:"scheduledFor"`
}

func (in *CreateInput) check(now time.Time) error {
	details := map[string]string{}
	switch in.DeliveryMethod {
	case models.DeliveryMethodDelivery:
		if in.DeliveryAddress == nil || strings.TrimSpace(*in.DeliveryAddress) == "" {
			details["deliveryAddress"] = "deliveryAddress is required for delivery"
		}
		in.PickupLocation = nil
	case models.DeliveryMethodPickup:
		if in.PickupLocation == nil || strings.TrimSpace(*in.PickupLocation) == "" {
			details["pickupLocation"] = "pickupLocation is required for pickup"
		}
		in.DeliveryAddress = nil
	}
	if in.ScheduledFor != nil && in.ScheduledFor.Before(now) {
		details["scheduledFor"] = "scheduledFor must be in the future"
	}
	if len(details) > 0 {
		return apperror.Validation("", "Validation failed").WithDetails(details)
	}
	return nil
}

// Create places an order for the caller. The order row, its first history
// entry and the subscriber count increment commit together.
func (s *Service) Create(ctx context.Context, caller *auth.Identity, in CreateInput) (*models.Order, error) {
	now := time.Now()
	if err := in.check(now); err != nil {
		return nil, err
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		if err := tx.Preload("Provider").First(&sub, "id = ?", in.SubscriptionID).Error; err != nil {
			return apperror.FromDB(err, "Subscription")
		}
		if !sub.IsActive || !sub.IsPublic {
			return apperror.Validation("SUBSCRIPTION_UNAVAILABLE", "Subscription is not available")
		}
		if sub.Provider == nil || sub.Provider.Status != models.ProviderApproved {
			return apperror.Forbidden("PROVIDER_NOT_APPROVED", "Provider is not approved")
		}

		number, err := nextOrderNumber(tx, now)
		if err != nil {
			return err
		}
		code, err := uniqueCode(tx)
		if err != nil {
			return err
		}

		order = models.Order{
			OrderNumber:     number,
			UserID:          caller.UserID,
			SubscriptionID:  sub.ID,
			Amount:          sub.Price,
			DeliveryMethod:  in.DeliveryMethod,
			DeliveryAddress: utils.SanitizeOptional(in.DeliveryAddress),
			PickupLocation:  utils.SanitizeOptional(in.PickupLocation),
			ScheduledFor:    in.ScheduledFor,
			QRCode:          code,
			Status:          models.OrderPending,
		}
		if err := tx.Create(&order).Error; err != nil {
			return apperror.FromDB(err, "Order")
		}

		err = tx.Model(&models.Subscription{}).
			Where("id = ?", sub.ID).
			Update("subscriber_count", gorm.Expr("subscriber_count + ?", 1)).Error
		if err != nil {
			return apperror.FromDB(err, "Subscription")
		}

		return recordHistory(tx, order.ID, "", models.OrderPending, &caller.UserID, "")
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderCreated()
	s.invalidateSubscription(ctx, order.SubscriptionID)
	s.log.WithFields(logrus.Fields{
		"order_id":        order.ID,
		"order_number":    order.OrderNumber,
		"subscription_id": order.SubscriptionID,
	}).Info("order created")
	return &order, nil
}

func (s *Service) Confirm(ctx context.Context, caller *auth.Identity, id uuid.UUID) (*models.Order, error) {
	return s.providerAction(ctx, caller, id, ActionConfirm)
}

func (s *Service) MarkReady(ctx context.Context, caller *auth.Identity, id uuid.UUID) (*models.Order, error) {
	return s.providerAction(ctx, caller, id, ActionMarkReady)
}

func (s *Service) providerAction(ctx context.Context, caller *auth.Identity, id uuid.UUID, action Action) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.OwnsProvider(order.Subscription.ProviderID) {
		return nil, apperror.Forbidden("", "Only the provider of this order can "+action.String()+" it")
	}
	if err := Check(action, order.Status); err != nil {
		return nil, err
	}

	to := target(action, order)
	err = s.apply(ctx, order, step{
		to:    to,
		from:  sourcesOf(to),
		actor: &caller.UserID,
	})
	if err != nil {
		return nil, s.staleError(ctx, id, action, err)
	}

	s.metrics.OrderTransition(string(to))
	return s.load(ctx, id)
}

// Redeem completes a READY order when code matches its redemption code.
// It needs no caller identity, the code is the credential. Unknown ids are
// rejected before the per-order throttle. The code check is repeated in the
// update predicate so concurrent scans redeem once.
func (s *Service) Redeem(ctx context.Context, id uuid.UUID, code string) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, apperror.FromDB(err, "Order")
	}

	if !s.scans.Allow(id.String()) {
		s.metrics.Redemption("throttled")
		return nil, apperror.TooManyRequests("Too many redemption attempts for this order")
	}

	if !utils.CodesEqual(code, order.QRCode) {
		s.metrics.Redemption("invalid_code")
		return nil, apperror.Validation("QR_CODE_INVALID", "Invalid redemption code")
	}
	if err := Check(ActionRedeem, order.Status); err != nil {
		s.metrics.Redemption(redemptionOutcome(order.Status))
		return nil, err
	}

	now := time.Now()
	to := target(ActionRedeem, &order)
	err := s.apply(ctx, &order, step{
		to:     to,
		from:   sourcesOf(to),
		qrCode: order.QRCode,
		set:    map[string]interface{}{"completed_at": now},
		note:   "redeemed",
	})
	if err != nil {
		err = s.staleError(ctx, id, ActionRedeem, err)
		if appErr := apperror.As(err); appErr.Code == "QR_CODE_ALREADY_USED" {
			s.metrics.Redemption("already_used")
		}
		return nil, err
	}

	s.metrics.Redemption("success")
	s.metrics.OrderTransition(string(to))
	s.log.WithFields(logrus.Fields{"order_id": id, "status": to}).Info("order redeemed")
	return s.load(ctx, id)
}

func redemptionOutcome(status models.OrderStatus) string {
	switch {
	case status.IsFulfilled():
		return "already_used"
	case status == models.OrderCancelled:
		return "cancelled"
	default:
		return "not_ready"
	}
}

// RegenerateCode issues a fresh redemption code without changing status.
func (s *Service) RegenerateCode(ctx context.Context, caller *auth.Identity, id uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.OwnsProvider(order.Subscription.ProviderID) {
		return nil, apperror.Forbidden("", "Only the provider of this order can regenerate its code")
	}
	if err := Check(ActionRegenerateCode, order.Status); err != nil {
		return nil, err
	}
	if order.QRRegenerations >= MaxCodeRegenerations {
		return nil, apperror.Conflict("QR_REGENERATION_LIMIT", "Redemption code can no longer be regenerated")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := uniqueCode(tx)
		if err != nil {
			return err
		}

		result := tx.Model(&models.Order{}).
			Where("id = ? AND status = ? AND qr_regenerations < ?", id, order.Status, MaxCodeRegenerations).
			Updates(map[string]interface{}{
				"qr_code":          code,
				"qr_regenerations": gorm.Expr("qr_regenerations + ?", 1),
			})
		if result.Error != nil {
			return apperror.FromDB(result.Error, "Order")
		}
		if result.RowsAffected == 0 {
			return errStale
		}
		return recordHistory(tx, id, order.Status, order.Status, &caller.UserID, "redemption code regenerated")
	})
	if errors.Is(err, errStale) {
		current, loadErr := s.load(ctx, id)
		if loadErr != nil {
			return nil, loadErr
		}
		if current.QRRegenerations >= MaxCodeRegenerations {
			return nil, apperror.Conflict("QR_REGENERATION_LIMIT", "Redemption code can no longer be regenerated")
		}
		if err := Check(ActionRegenerateCode, current.Status); err != nil {
			return nil, err
		}
		return nil, apperror.Conflict("", "Order changed, retry")
	}
	if err != nil {
		return nil, err
	}

	return s.load(ctx, id)
}

// Cancel is open to the ordering user and to admins. The subscriber count
// is decremented in the same transaction.
func (s *Service) Cancel(ctx context.Context, caller *auth.Identity, id uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, apperror.Forbidden("", "You cannot cancel this order")
	}
	if err := Check(ActionCancel, order.Status); err != nil {
		return nil, err
	}

	err = s.apply(ctx, order, step{
		to:    models.OrderCancelled,
		from:  sourcesOf(models.OrderCancelled),
		actor: &caller.UserID,
		set:   map[string]interface{}{"cancelled_at": time.Now()},
		after: func(tx *gorm.DB) error {
			return tx.Model(&models.Subscription{}).
				Where("id = ? AND subscriber_count > ?", order.SubscriptionID, 0).
				Update("subscriber_count", gorm.Expr("subscriber_count - ?", 1)).Error
		},
	})
	if err != nil {
		return nil, s.staleError(ctx, id, ActionCancel, err)
	}

	s.metrics.OrderTransition(string(models.OrderCancelled))
	s.invalidateSubscription(ctx, order.SubscriptionID)
	s.log.WithFields(logrus.Fields{"order_id": id, "by": caller.UserID}).Info("order cancelled")
	return s.load(ctx, id)
}

// step is one conditional status change.
type step struct {
	to     models.OrderStatus
	from   []models.OrderStatus
	actor  *uuid.UUID
	note   string
	qrCode string
	set    map[string]interface{}
	after  func(tx *gorm.DB) error
}

// apply runs UPDATE ... WHERE id = ? AND status IN (from) and records the
// history row. It returns errStale when the predicate matched nothing.
func (s *Service) apply(ctx context.Context, order *models.Order, st step) error {
	updates := map[string]interface{}{"status": st.to}
	for k, v := range st.set {
		updates[k] = v
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.Order{}).Where("id = ? AND status IN ?", order.ID, st.from)
		if st.qrCode != "" {
			q = q.Where("qr_code = ?", st.qrCode)
		}
		result := q.Updates(updates)
		if result.Error != nil {
			return apperror.FromDB(result.Error, "Order")
		}
		if result.RowsAffected == 0 {
			return errStale
		}

		if err := recordHistory(tx, order.ID, order.Status, st.to, st.actor, st.note); err != nil {
			return err
		}
		if st.after != nil {
			return st.after(tx)
		}
		return nil
	})
}

// staleError turns errStale into the error the current status calls for.
func (s *Service) staleError(ctx context.Context, id uuid.UUID, action Action, err error) error {
	if !errors.Is(err, errStale) {
		return err
	}
	current, loadErr := s.load(ctx, id)
	if loadErr != nil {
		return loadErr
	}
	if checkErr := Check(action, current.Status); checkErr != nil {
		return checkErr
	}
	if action == ActionRedeem {
		return apperror.Validation("QR_CODE_INVALID", "Invalid redemption code")
	}
	return apperror.Conflict("", "Order changed, retry")
}

func recordHistory(tx *gorm.DB, orderID uuid.UUID, from, to models.OrderStatus, actor *uuid.UUID, note string) error {
	entry := models.OrderStatusHistory{
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		ChangedBy:  actor,
		Note:       note,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return apperror.FromDB(err, "Order history")
	}
	return nil
}

// nextOrderNumber bumps the month's counter in one statement, so two
// concurrent orders never share a number.
func nextOrderNumber(tx *gorm.DB, now time.Time) (string, error) {
	period := utils.OrderPeriod(now)

	var value int64
	err := tx.Raw(`INSERT INTO order_sequences (period, value) VALUES (?, 1)
ON CONFLICT (period) DO UPDATE SET value = order_sequences.value + 1
RETURNING value`, period).Scan(&value).Error
	if err != nil {
		return "", apperror.Internal("Failed to allocate order number", err)
	}
	return utils.FormatOrderNumber(period, value), nil
}

func uniqueCode(tx *gorm.DB) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := utils.GenerateQRCode()
		if err != nil {
			return "", apperror.Internal("Failed to generate redemption code", err)
		}

		var count int64
		if err := tx.Model(&models.Order{}).Where("qr_code = ?", code).Count(&count).Error; err != nil {
			return "", apperror.FromDB(err, "Order")
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", apperror.Internal("Failed to generate a unique redemption code", nil)
}

func (s *Service) invalidateSubscription(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Delete(ctx, cache.SubscriptionKey(id)); err != nil {
		s.metrics.CacheError()
		s.log.WithError(err).Warn("cache invalidation failed")
	}
	if err := s.cache.DeletePattern(ctx, cache.SubscriptionListPattern); err != nil {
		s.metrics.CacheError()
		s.log.WithError(err).Warn("cache invalidation failed")
	}
}
