package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PayFox/app/repository"
)

// Global OAuth controller instance
var oauthController *OAuthController

// InitializeOAuthController initializes the global OAuth controller with repositories
func InitializeOAuthController() {
	oauthController = NewOAuthController(repository.GetGlobalRepositories())
}

// GetOAuthController returns the global OAuth controller instance
func GetOAuthController() *OAuthController {
	if oauthController == nil {
		InitializeOAuthController()
	}
	return oauthController
}

// HandleSession - Adapter for the session summary
func HandleSession(c *fiber.Ctx) error {
	return GetOAuthController().HandleSession(c)
}

// HandleOAuthCallback - Adapter for the provider callback
func HandleOAuthCallback(c *fiber.Ctx) error {
	return GetOAuthController().HandleCallback(c)
}
