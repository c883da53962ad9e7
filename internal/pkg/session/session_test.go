package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionValueRoundTrip(t *testing.T) {
	UseStore(session.New())
	t.Cleanup(func() { UseStore(nil) })

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		if err := SetSessionValue(c, "user_email", "buyer@example.com"); err != nil {
			return err
		}
		return c.SendString(GetSessionValue(c, "user_email"))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Set-Cookie"))
}

func TestSessionValueWithoutStore(t *testing.T) {
	UseStore(nil)

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		assert.Error(t, SetSessionValue(c, "k", "v"))
		return c.SendString(GetSessionValue(c, "k"))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
