package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PayFox/internal/pkg/billing"
)

// Global billing controller instance
var billingController *BillingController

// InitializeBillingController installs the billing service used by the route adapters
func InitializeBillingController(svc *billing.Service) {
	billingController = NewBillingController(svc)
}

// GetBillingController returns the global billing controller instance
func GetBillingController() *BillingController {
	if billingController == nil {
		panic("billing controller not initialized")
	}
	return billingController
}

// Adapter functions to keep the router free of controller wiring

func HandleCreateOrder(c *fiber.Ctx) error {
	return GetBillingController().HandleCreateOrder(c)
}

func HandleCreateSubscription(c *fiber.Ctx) error {
	return GetBillingController().HandleCreateSubscription(c)
}

func HandleVerifyPayment(c *fiber.Ctx) error {
	return GetBillingController().HandleVerifyPayment(c)
}

// HandleRazorpayWebhook - Adapter for gateway webhooks
func HandleRazorpayWebhook(c *fiber.Ctx) error {
	return GetBillingController().HandleWebhook(c)
}

// HandleMySubscriptions - Adapter for the signed-in user's subscriptions
func HandleMySubscriptions(c *fiber.Ctx) error {
	return GetBillingController().HandleMySubscriptions(c)
}
