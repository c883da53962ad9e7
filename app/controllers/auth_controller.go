package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/ManuelReschke/PayFox/internal/pkg/session"
	"github.com/ManuelReschke/PayFox/internal/pkg/usercontext"
)

const (
	AUTH_KEY       string = usercontext.AuthKey
	USER_ID        string = usercontext.KeyUserID
	USER_NAME      string = usercontext.KeyUsername
	USER_EMAIL     string = usercontext.KeyUserEmail
	USER_IS_ADMIN  string = usercontext.KeyIsAdmin
	FROM_PROTECTED string = usercontext.KeyFromProtected
)

func HandleAuthLogout(c *fiber.Ctx) error {
	fm := fiber.Map{
		"type": "error",
	}

	store := session.GetSessionStore()
	if store == nil {
		fm["message"] = "logged out (no sess)"

		return flash.WithError(c, fm).Redirect("/")
	}

	sess, err := store.Get(c)
	if err != nil {
		fm["message"] = "logged out (no sess)"

		return flash.WithError(c, fm).Redirect("/")
	}

	err = sess.Destroy()
	if err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)

		return flash.WithError(c, fm).Redirect("/")
	}

	fm = fiber.Map{
		"type":    "success",
		"message": "You have been signed out.",
	}

	c.Locals(FROM_PROTECTED, false)

	return flash.WithSuccess(c, fm).Redirect("/")
}
