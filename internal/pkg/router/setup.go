package router

import (
	"github.com/gofiber/fiber/v2"
)

// Router registers a group of routes and their middleware on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App) {
	// Install HttpRouter first to initialize the session store, oauth providers,
	// and the global UserContext middleware. API routes depend on that middleware.
	setup(app, NewHttpRouter(), NewApiRouter())
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
