package usercontext

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUserContextDefaultsToAnonymous(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		assert.False(t, IsLoggedIn(c))
		assert.Zero(t, GetUserID(c))
		assert.Empty(t, GetEmail(c))
		return nil
	})
	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
}

func TestSetUserContext(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		SetUserContext(c, UserContext{UserID: 7, Username: "Buyer", Email: "buyer@example.com", IsLoggedIn: true})
		assert.True(t, IsLoggedIn(c))
		assert.False(t, GetUserContext(c).IsAdmin)
		assert.Equal(t, uint(7), GetUserID(c))
		assert.Equal(t, "Buyer", GetUsername(c))
		assert.Equal(t, "buyer@example.com", GetEmail(c))
		return nil
	})
	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
}
