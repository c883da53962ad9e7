package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClientIP(t *testing.T) {
	cases := []struct {
		name     string
		headers  map[string]string
		wantIPv4 string
		wantIPv6 string
	}{
		{"cloudflare v4", map[string]string{"CF-Connecting-IP": "198.51.100.7", "X-Forwarded-For": "198.51.100.7, 2001:db8::7"}, "198.51.100.7", "2001:db8::7"},
		{"cloudflare v6", map[string]string{"CF-Connecting-IP": "2001:db8::1", "X-Forwarded-For": "2001:db8::1, 198.51.100.1"}, "198.51.100.1", "2001:db8::1"},
		{"forwarded list", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "203.0.113.5", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			var gotV4, gotV6 string
			app.Get("/", func(c *fiber.Ctx) error {
				gotV4, gotV6 = GetClientIP(c)
				return nil
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			_, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.wantIPv4, gotV4)
			assert.Equal(t, tc.wantIPv6, gotV6)
		})
	}
}
