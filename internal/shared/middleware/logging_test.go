package middleware

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uploadguard/internal/shared/log"
)

func TestRequestIDMiddlewarePropagatesHeader(t *testing.T) {
	app := fiber.New()
	app.Use(RequestIDMiddleware())
	app.Get("/id", func(c *fiber.Ctx) error {
		return c.SendString(log.RequestID(c.UserContext()))
	})

	req := httptest.NewRequest("GET", "/id", nil)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))
}

func TestRequestIDMiddlewareMintsID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestIDMiddleware())
	app.Get("/id", func(c *fiber.Ctx) error { return nil })

	resp, err := app.Test(httptest.NewRequest("GET", "/id", nil))
	require.NoError(t, err)

	assert.Len(t, resp.Header.Get("X-Request-ID"), 36)
}

func TestRecoveryMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(RequestIDMiddleware(), LoggingMiddleware(), RecoveryMiddleware())
	app.Get("/panic", func(c *fiber.Ctx) error { panic("boom") })
	app.Get("/fail", func(c *fiber.Ctx) error { return errors.New("plain failure") })

	resp, err := app.Test(httptest.NewRequest("GET", "/panic", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/fail", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
