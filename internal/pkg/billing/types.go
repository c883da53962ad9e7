package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/ManuelReschke/PayFox/internal/pkg/pricing"
)

// Warnings reported alongside a successful gateway-side result.
const (
	WarningOrderNotPersisted      = "order_not_persisted"
	WarningOrderNotFound          = "order_not_found"
	WarningDBUpdateFailed         = "db_update_failed"
	WarningAlreadySubscribed      = "already_subscribed"
	WarningSubscriptionNotCreated = "subscription_not_created"
	WarningNoOwner                = "no_owner"
	// a verified payment for an order that is already failed or refunded
	WarningOrderStateConflict = "order_state_conflict"
)

// Config holds billing secrets and defaults.
type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Currency      string
	LockEnabled   bool
	LockTTL       time.Duration
}

// LoadConfig reads the billing configuration from the environment.
func LoadConfig() Config {
	return Config{
		KeyID:         env.GetEnv("RAZORPAY_KEY_ID", ""),
		KeySecret:     env.GetEnv("RAZORPAY_KEY_SECRET", ""),
		WebhookSecret: env.GetEnv("RAZORPAY_WEBHOOK_SECRET", ""),
		Currency:      strings.ToUpper(env.GetEnv("BILLING_CURRENCY", pricing.DefaultCurrency)),
		LockEnabled:   env.GetEnvBool("BILLING_LOCK_ENABLED", false),
		LockTTL:       env.GetEnvDuration("BILLING_LOCK_TTL", 10*time.Second),
	}
}

// Identity is who owns an order or subscription. UserID wins over Email when set.
type Identity struct {
	UserID uint   `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
}

func (i Identity) IsZero() bool {
	return i.UserID == 0 && i.Email == ""
}

// Key is the identity key the one-active-subscription rule is enforced on.
func (i Identity) Key() string {
	if i.UserID != 0 {
		return fmt.Sprintf("user:%d", i.UserID)
	}
	if i.Email != "" {
		return "email:" + i.Email
	}
	return ""
}

// IdentityOf returns the identity an order was placed under.
func IdentityOf(order *models.PaymentOrder) Identity {
	if order == nil {
		return Identity{}
	}
	return Identity{UserID: order.UserID, Email: models.NormalizeEmail(order.Email)}
}

// Caller describes who is making a request. Session values come from a verified
// sign-in; ClaimedEmail is whatever the client put in the request body.
type Caller struct {
	SessionUserID uint
	SessionEmail  string
	ClaimedEmail  string
}

type CreateOrderInput struct {
	PlanID   string
	Amount   *float64
	Currency string
	Receipt  string
	Caller   Caller
}

type CreateOrderResult struct {
	GatewayOrder *GatewayOrder
	Order        *models.PaymentOrder
	Warning      string
}

type CreateSubscriptionInput struct {
	PlanID string
	Caller Caller
}

type VerifyInput struct {
	OrderID   string
	PaymentID string
	Signature string
	Caller    Caller
}

// VerifyResult is returned for every verification attempt with complete input.
type VerifyResult struct {
	Valid        bool                 `json:"valid"`
	Order        *models.PaymentOrder `json:"order"`
	Subscription *models.Subscription `json:"subscription"`
	DBUpdated    bool                 `json:"dbUpdated"`
	Warning      string               `json:"warning,omitempty"`
}

type WebhookInput struct {
	Body      []byte
	Signature string
	EventID   string
}

// WebhookResult describes how a webhook delivery was handled.
type WebhookResult struct {
	EventID   string
	Event     string
	Verified  bool
	Duplicate bool
	Processed bool
	Message   string
}
