package handlers

import (
	"github.com/gofiber/fiber/v2"

	appError "uploadguard/internal/shared/error"
)

// RegisterRoutes wires all HTTP routes to their handlers.
func RegisterRoutes(app *fiber.App, service NotificationService) {
	notificationHandler := NewNotificationHandler(service)
	app.Post("/notifications", notificationHandler.HandleNotification)

	app.Use(func(c *fiber.Ctx) error {
		return appError.ErrHTTPNotFound
	})
}
