package router

import (
	"github.com/ManuelReschke/PayFox/app/controllers"
	"github.com/ManuelReschke/PayFox/internal/pkg/middleware"
	"github.com/ManuelReschke/PayFox/internal/pkg/oauth"
	"github.com/ManuelReschke/PayFox/internal/pkg/session"

	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	// Initialize oauth controller with repositories
	controllers.InitializeOAuthController()

	h.registerPublicRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
