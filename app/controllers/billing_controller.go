package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/billing"
	"github.com/ManuelReschke/PayFox/internal/pkg/pricing"
	"github.com/ManuelReschke/PayFox/internal/pkg/usercontext"
)

const billingRequestTimeout = 15 * time.Second

var validate = validator.New()

// BillingController serves the checkout, verification and webhook endpoints.
type BillingController struct {
	svc *billing.Service
}

func NewBillingController(svc *billing.Service) *BillingController {
	return &BillingController{svc: svc}
}

type createOrderRequest struct {
	PlanID    string   `json:"planId" validate:"max=32"`
	Amount    *float64 `json:"amount"`
	Currency  string   `json:"currency" validate:"omitempty,len=3,alpha"`
	Receipt   string   `json:"receipt" validate:"max=40"`
	UserEmail string   `json:"userEmail" validate:"omitempty,email,max=200"`
}

type createSubscriptionRequest struct {
	PlanID    string `json:"planId" validate:"required,max=32"`
	UserEmail string `json:"userEmail" validate:"omitempty,email,max=200"`
}

type verifyRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// subscriptionView is the public shape of a subscription row.
type subscriptionView struct {
	ID        string     `json:"id"`
	PlanID    string     `json:"plan_id"`
	PlanName  string     `json:"plan_name"`
	Status    string     `json:"status"`
	StartedAt time.Time  `json:"started_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func callerFrom(c *fiber.Ctx, claimedEmail string) billing.Caller {
	userCtx := usercontext.GetUserContext(c)
	caller := billing.Caller{ClaimedEmail: claimedEmail}
	if userCtx.IsLoggedIn {
		caller.SessionUserID = userCtx.UserID
		caller.SessionEmail = userCtx.Email
	}
	return caller
}

// billingErrorStatus maps billing errors to HTTP status codes.
func billingErrorStatus(err error) int {
	switch {
	case errors.Is(err, billing.ErrInvalidRequest),
		errors.Is(err, billing.ErrPlanNotConfigured),
		errors.Is(err, billing.ErrSignatureInvalid):
		return fiber.StatusBadRequest
	case errors.Is(err, billing.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, billing.ErrAlreadySubscribed):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// HandleCreateOrder creates a gateway order for a plan or a legacy amount.
func (bc *BillingController) HandleCreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), billingRequestTimeout)
	defer cancel()

	res, err := bc.svc.CreateOrder(ctx, billing.CreateOrderInput{
		PlanID:   req.PlanID,
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Caller:   callerFrom(c, req.UserEmail),
	})
	if err != nil {
		status := billingErrorStatus(err)
		switch status {
		case fiber.StatusConflict:
			return c.Status(status).JSON(fiber.Map{"error": billing.WarningAlreadySubscribed})
		case fiber.StatusInternalServerError:
			log.Errorf("[Billing] create order failed: %v", err)
			return c.Status(status).JSON(fiber.Map{"error": "Failed to create order"})
		default:
			return c.Status(status).JSON(fiber.Map{"error": err.Error()})
		}
	}

	body := withWarning(res.GatewayOrder.Body(), res.Warning)
	return c.JSON(body)
}

// HandleCreateSubscription starts a recurring subscription at the gateway.
func (bc *BillingController) HandleCreateSubscription(c *fiber.Ctx) error {
	var req createSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid plan"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid plan"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), billingRequestTimeout)
	defer cancel()

	sub, err := bc.svc.CreateSubscription(ctx, billing.CreateSubscriptionInput{
		PlanID: req.PlanID,
		Caller: callerFrom(c, req.UserEmail),
	})
	switch {
	case err == nil:
		return c.JSON(sub.Body())
	case errors.Is(err, billing.ErrPlanNotConfigured):
		plan, _ := pricing.Lookup(req.PlanID)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "plan_not_configured",
			"hint":  "Set " + pricing.ExternalPlanEnvKey(plan.ID),
		})
	case errors.Is(err, billing.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid plan"})
	case errors.Is(err, billing.ErrAlreadySubscribed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": billing.WarningAlreadySubscribed})
	default:
		log.Errorf("[Billing] create subscription failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create subscription"})
	}
}

// HandleVerifyPayment checks the checkout signature and reconciles the order.
func (bc *BillingController) HandleVerifyPayment(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"valid": false, "reason": "missing fields"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), billingRequestTimeout)
	defer cancel()

	res, err := bc.svc.VerifyPayment(ctx, billing.VerifyInput{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
		Caller:    callerFrom(c, ""),
	})
	if err != nil {
		if errors.Is(err, billing.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"valid": false, "reason": "missing fields"})
		}
		log.Errorf("[Billing] verify failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"valid": false, "reason": "internal error"})
	}
	return c.JSON(res)
}

// HandleWebhook ingests a gateway webhook. The raw body is verified as received.
func (bc *BillingController) HandleWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := firstHeaderValue(c, "X-Razorpay-Signature", "X-Signature")
	eventID := firstHeaderValue(c, "X-Razorpay-Event-Id", "X-Event-Id")

	ctx, cancel := context.WithTimeout(c.UserContext(), billingRequestTimeout)
	defer cancel()

	res, err := bc.svc.HandleWebhook(ctx, billing.WebhookInput{
		Body:      rawBody,
		Signature: signature,
		EventID:   eventID,
	})
	if err != nil {
		status := billingErrorStatus(err)
		if errors.Is(err, billing.ErrSignatureInvalid) {
			return c.Status(status).JSON(fiber.Map{"ok": false, "reason": "bad signature"})
		}
		body := fiber.Map{"ok": false, "processed": false}
		if res != nil {
			body["event"] = res.Event
			body["message"] = res.Message
		}
		return c.Status(status).JSON(body)
	}

	body := fiber.Map{
		"ok":        true,
		"event":     res.Event,
		"processed": res.Processed,
		"message":   res.Message,
	}
	if res.Duplicate {
		body["duplicate"] = true
	}
	return c.JSON(body)
}

// HandleMySubscriptions lists the active subscriptions of the signed-in user.
func (bc *BillingController) HandleMySubscriptions(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), billingRequestTimeout)
	defer cancel()

	subs, err := bc.svc.GetActiveSubscriptions(ctx, billing.Identity{UserID: userCtx.UserID, Email: userCtx.Email})
	if err != nil {
		if errors.Is(err, billing.ErrUnauthorized) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}
		log.Errorf("[Billing] listing subscriptions for user %d failed: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "db_error"})
	}

	return c.JSON(fiber.Map{"subscriptions": subscriptionViews(subs)})
}

func subscriptionViews(subs []models.Subscription) []subscriptionView {
	views := make([]subscriptionView, 0, len(subs))
	for _, s := range subs {
		views = append(views, subscriptionView{
			ID:        s.ID,
			PlanID:    s.PlanID,
			PlanName:  s.PlanName,
			Status:    s.Status,
			StartedAt: s.StartedAt,
			ExpiresAt: s.ExpiresAt,
			CreatedAt: s.CreatedAt,
		})
	}
	return views
}

// withWarning copies body and adds the warning field when set.
func withWarning(body map[string]interface{}, warning string) map[string]interface{} {
	if warning == "" {
		return body
	}
	out := make(map[string]interface{}, len(body)+1)
	for k, v := range body {
		out[k] = v
	}
	out["warning"] = warning
	return out
}

func firstHeaderValue(c *fiber.Ctx, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(c.Get(key)); v != "" {
			return v
		}
	}
	return ""
}
