package middleware

import (
	icuser "github.com/ManuelReschke/PayFox/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
)

// RequireAuth ensures a logged-in web session; redirects to the sign-in flow if missing.
func RequireAuth(c *fiber.Ctx) error {
	if !fromProtected(c) {
		return c.Redirect("/auth/google", fiber.StatusSeeOther)
	}
	return c.Next()
}

// RequireAPISessionAuth ensures a logged-in session for API routes and returns JSON 401 instead of redirect.
func RequireAPISessionAuth(c *fiber.Ctx) error {
	if !fromProtected(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}

func fromProtected(c *fiber.Ctx) bool {
	loggedIn, _ := c.Locals(icuser.KeyFromProtected).(bool)
	return loggedIn
}
