package middleware

import (
	"strings"

	"github.com/ManuelReschke/PayFox/internal/pkg/session"
	"github.com/ManuelReschke/PayFox/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware sets up the user context for every request from the app session
func UserContextMiddleware(c *fiber.Ctx) error {
	// Goth keeps its own fiber session on /auth/*; stay out of its way.
	if strings.HasPrefix(c.Path(), "/auth/") {
		return c.Next()
	}

	store := session.GetSessionStore()
	if store == nil {
		setAnonymous(c)
		return c.Next()
	}
	sess, err := store.Get(c)
	if err != nil {
		setAnonymous(c)
		return c.Next()
	}

	userID, ok := sess.Get(usercontext.KeyUserID).(uint)
	if !ok || userID == 0 {
		setAnonymous(c)
		return c.Next()
	}

	username, _ := sess.Get(usercontext.KeyUsername).(string)
	email, _ := sess.Get(usercontext.KeyUserEmail).(string)
	isAdmin, _ := sess.Get(usercontext.KeyIsAdmin).(bool)

	usercontext.SetUserContext(c, usercontext.UserContext{
		UserID:     userID,
		Username:   username,
		Email:      email,
		IsLoggedIn: true,
		IsAdmin:    isAdmin,
	})

	c.Locals(usercontext.KeyFromProtected, true)
	c.Locals(usercontext.KeyUsername, username)
	c.Locals(usercontext.KeyUserID, userID)
	c.Locals(usercontext.KeyIsAdmin, isAdmin)

	return c.Next()
}

func setAnonymous(c *fiber.Ctx) {
	usercontext.SetUserContext(c, usercontext.UserContext{})
	c.Locals(usercontext.KeyFromProtected, false)
	c.Locals(usercontext.KeyIsAdmin, false)
}
