package models

import "time"

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusCaptured OrderStatus = "captured"
	OrderStatusFailed   OrderStatus = "failed"
	OrderStatusRefunded OrderStatus = "refunded"
)

// orderTransitions lists the legal source states for every target state.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCaptured: {OrderStatusPending},
	OrderStatusFailed:   {OrderStatusPending},
	OrderStatusRefunded: {OrderStatusCaptured},
}

// CanTransitionTo reports whether s -> to is an edge of the order state machine.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, from := range orderTransitions[to] {
		if from == s {
			return true
		}
	}
	return false
}

// TransitionSources returns the states an order may be in to move to the given status.
func TransitionSources(to OrderStatus) []OrderStatus {
	return append([]OrderStatus(nil), orderTransitions[to]...)
}

// PaymentOrder is a gateway-side payment intent mirrored locally. Amount is in minor units.
type PaymentOrder struct {
	ID             uint        `gorm:"primaryKey" json:"-"`
	GatewayOrderID string      `gorm:"type:varchar(64);not null;uniqueIndex:ux_payment_orders_gateway_order" json:"order_id"`
	Amount         int64       `gorm:"not null" json:"amount"`
	Currency       string      `gorm:"type:varchar(3);not null;default:'INR'" json:"currency"`
	Status         OrderStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	UserID         uint        `gorm:"not null;default:0;index" json:"user_id,omitempty"`
	Email          string      `gorm:"type:varchar(200);index" json:"email,omitempty"`
	PlanID         string      `gorm:"type:varchar(32)" json:"plan_id,omitempty"`
	PlanName       string      `gorm:"type:varchar(100)" json:"plan_name,omitempty"`
	Receipt        string      `gorm:"type:varchar(64)" json:"receipt"`
	PaymentID      string      `gorm:"type:varchar(64);index" json:"payment_id,omitempty"`
	CreatedAt      time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PaymentOrder) TableName() string { return "payment_orders" }
