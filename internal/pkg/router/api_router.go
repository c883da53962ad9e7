package router

import (
	"strings"
	"time"

	"github.com/ManuelReschke/PayFox/app/controllers"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/ManuelReschke/PayFox/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

const webhookPath = "/api/razorpay/webhook"

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiterConfig()))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	api.Get("/session", controllers.HandleSession)
	api.Get("/plans", controllers.HandlePlans)

	rzp := api.Group("/razorpay")
	rzp.Post("/order", controllers.HandleCreateOrder)
	rzp.Post("/subscription", controllers.HandleCreateSubscription)
	rzp.Post("/verify", controllers.HandleVerifyPayment)
	// signature-verified in the controller, no session required
	rzp.Post("/webhook", controllers.HandleRazorpayWebhook)

	api.Get("/subscriptions/me", middleware.RequireAPISessionAuth, controllers.HandleMySubscriptions)
}

// limiterConfig rate limits API clients per IP. Gateway webhooks are exempt:
// they arrive in bursts from a handful of addresses and must not be dropped.
func limiterConfig() limiter.Config {
	return limiter.Config{
		Max:          env.GetEnvInt("API_RATE_LIMIT", 60),
		Expiration:   1 * time.Minute,
		KeyGenerator: controllers.ClientKey,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), webhookPath)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited"})
		},
	}
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
