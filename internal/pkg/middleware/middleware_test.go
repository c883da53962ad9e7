package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PayFox/internal/pkg/session"
	"github.com/ManuelReschke/PayFox/internal/pkg/usercontext"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	store := session.UseStore(fibersession.New())
	t.Cleanup(func() { session.UseStore(nil) })

	app := fiber.New()
	app.Get("/login-as/:id", func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return err
		}
		id, _ := c.ParamsInt("id")
		sess.Set(usercontext.KeyUserID, uint(id))
		sess.Set(usercontext.KeyUsername, "Buyer")
		sess.Set(usercontext.KeyUserEmail, "buyer@example.com")
		return sess.Save()
	})
	app.Use(UserContextMiddleware)
	app.Get("/me", RequireAPISessionAuth, func(c *fiber.Ctx) error {
		return c.JSON(usercontext.GetUserContext(c))
	})
	app.Get("/page", RequireAuth, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestRequireAPISessionAuthAnonymous(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"error":"unauthorized"`)
}

func TestRequireAuthRedirects(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/page", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/auth/google", resp.Header.Get("Location"))
}

func TestUserContextFromSession(t *testing.T) {
	app := newTestApp(t)

	login, err := app.Test(httptest.NewRequest(http.MethodGet, "/login-as/7", nil))
	require.NoError(t, err)
	cookie := login.Header.Get("Set-Cookie")
	require.NotEmpty(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Cookie", cookie)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"user_id":7`)
	assert.Contains(t, string(body), `"email":"buyer@example.com"`)
	assert.Contains(t, string(body), `"is_logged_in":true`)
}
