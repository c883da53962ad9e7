package models

import "time"

const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusExpired   = "expired"
)

// Plan data stamped on subscriptions granted for orders without plan metadata.
const (
	OneTimePlanID   = "one-time"
	OneTimePlanName = "Manual Plan"
)

// Subscription is a recurring entitlement. ActiveKey carries the owner's identity key
// while the row is active and is NULL otherwise; its unique index allows at most one
// active subscription per identity.
type Subscription struct {
	ID        string     `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;default:0;index:idx_subscriptions_user_status,priority:1" json:"user_id,omitempty"`
	Email     string     `gorm:"type:varchar(200);index:idx_subscriptions_email_status,priority:1" json:"email,omitempty"`
	PlanID    string     `gorm:"type:varchar(32);not null" json:"plan_id"`
	PlanName  string     `gorm:"type:varchar(100);not null" json:"plan_name"`
	OrderID   string     `gorm:"type:varchar(64);index" json:"order_id,omitempty"`
	PaymentID string     `gorm:"type:varchar(64)" json:"payment_id,omitempty"`
	Status    string     `gorm:"type:varchar(16);not null;default:'active';index:idx_subscriptions_user_status,priority:2;index:idx_subscriptions_email_status,priority:2" json:"status"`
	ActiveKey *string    `gorm:"type:varchar(255);uniqueIndex:ux_subscriptions_active_key" json:"-"`
	StartedAt time.Time  `gorm:"not null" json:"started_at"`
	ExpiresAt *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}
