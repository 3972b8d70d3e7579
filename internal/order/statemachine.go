package order

import (
	"strings"

	"github.com/Kyz7/juna/internal/apperror"
	"github.com/Kyz7/juna/internal/models"
)

// transitions is the order lifecycle graph. Terminal statuses have no
// outgoing edges.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:   {models.OrderConfirmed, models.OrderCancelled},
	models.OrderConfirmed: {models.OrderReady, models.OrderCancelled},
	models.OrderReady:     {models.OrderCompleted, models.OrderDelivered, models.OrderCancelled},
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// sourcesOf lists the statuses that may move to status.
func sourcesOf(status models.OrderStatus) []models.OrderStatus {
	var out []models.OrderStatus
	for _, from := range models.AllOrderStatuses {
		if CanTransition(from, status) {
			out = append(out, from)
		}
	}
	return out
}

type Action int

const (
	ActionConfirm Action = iota
	ActionMarkReady
	ActionRedeem
	ActionCancel
	ActionRegenerateCode
)

func (a Action) String() string {
	switch a {
	case ActionConfirm:
		return "confirm"
	case ActionMarkReady:
		return "mark ready"
	case ActionRedeem:
		return "redeem"
	case ActionCancel:
		return "cancel"
	case ActionRegenerateCode:
		return "regenerate code"
	default:
		return "unknown"
	}
}

// Check reports why action is not allowed on an order in status, or nil
// when it is.
func Check(action Action, status models.OrderStatus) error {
	if status.IsTerminal() {
		if action == ActionRedeem && status.IsFulfilled() {
			return apperror.Conflict("QR_CODE_ALREADY_USED", "Redemption code has already been used")
		}
		return apperror.Conflict("", "Order is already "+strings.ToLower(string(status)))
	}

	switch action {
	case ActionConfirm:
		if status != models.OrderPending {
			return apperror.Conflict("", "Only pending orders can be confirmed")
		}
	case ActionMarkReady:
		if status != models.OrderConfirmed {
			return apperror.Validation("", "Only confirmed orders can be marked ready")
		}
	case ActionRedeem:
		if status != models.OrderReady {
			return apperror.Validation("ORDER_NOT_READY", "Order is not ready for pickup or delivery")
		}
	case ActionCancel, ActionRegenerateCode:
		return nil
	default:
		return apperror.Validation("", "Unknown order action")
	}
	return nil
}

// target is the status an order moves to when action succeeds. Code
// regeneration keeps the current status.
func target(action Action, o *models.Order) models.OrderStatus {
	switch action {
	case ActionConfirm:
		return models.OrderConfirmed
	case ActionMarkReady:
		return models.OrderReady
	case ActionRedeem:
		return o.DeliveryMethod.RedeemedStatus()
	case ActionCancel:
		return models.OrderCancelled
	case ActionRegenerateCode:
		return o.Status
	default:
		return o.Status
	}
}
