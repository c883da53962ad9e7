package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/ManuelReschke/PayFox/internal/pkg/cache"
	"github.com/ManuelReschke/PayFox/internal/pkg/database"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/ManuelReschke/PayFox/internal/pkg/pricing"
	"github.com/ManuelReschke/PayFox/internal/pkg/usercontext"
)

// HandleIndex greets API clients and hands back any flash message left by a redirect.
func HandleIndex(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	return c.JSON(fiber.Map{
		"name":          "PayFox",
		"authenticated": userCtx.IsLoggedIn,
		"flash":         flash.Get(c),
		"docs":          "/docs/api/v1",
		"key_id":        env.GetEnv("RAZORPAY_KEY_ID", ""),
	})
}

// HandlePlans lists the purchasable plans with prices in minor units.
func HandlePlans(c *fiber.Ctx) error {
	type planView struct {
		ID          pricing.PlanID `json:"id"`
		Name        string         `json:"name"`
		Price       int64          `json:"price"`
		AmountMinor int64          `json:"amount"`
		Currency    string         `json:"currency"`
		Recurring   bool           `json:"recurring"`
	}
	plans := pricing.Plans()
	out := make([]planView, 0, len(plans))
	for _, p := range plans {
		out = append(out, planView{
			ID:          p.ID,
			Name:        p.Name,
			Price:       p.Price,
			AmountMinor: p.AmountMinor(),
			Currency:    pricing.DefaultCurrency,
			Recurring:   pricing.ExternalPlanID(p.ID) != "",
		})
	}
	return c.JSON(fiber.Map{"plans": out})
}

// HandleHealth reports database and cache reachability.
func HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := fiber.Map{"database": "ok", "cache": "ok"}
	healthy := true

	if db := database.GetDB(); db == nil {
		status["database"] = "not configured"
		healthy = false
	} else if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		status["database"] = "unreachable"
		healthy = false
	}
	if err := cache.Ping(ctx); err != nil {
		status["cache"] = "unreachable"
		healthy = false
	}

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(status)
	}
	return c.JSON(status)
}
