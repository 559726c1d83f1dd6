package error

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type CustomError struct {
	Message  string `json:"message"`
	Code     string `json:"code"`
	HTTPCode int    `json:"httpCode"`
	Details  any    `json:"details,omitempty"`
}

func (err *CustomError) Error() string {
	if err.Code != "" {
		return fmt.Sprintf("[%s] %s", err.Code, err.Message)
	}
	return err.Message
}

func (err *CustomError) Is(target error) bool {
	if targetErr, ok := target.(*CustomError); ok {
		return err.Code == targetErr.Code && err.Message == targetErr.Message && err.HTTPCode == targetErr.HTTPCode
	}
	return false
}

func NewCustomError(httpCode int, code, message string, details ...any) *CustomError {
	err := &CustomError{
		HTTPCode: httpCode,
		Code:     code,
		Message:  message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

var (
	ErrUploadValidationFailed = NewCustomError(422, "UPLOAD_3001", "File validation failed")

	ErrInvalidNotification = NewCustomError(400, "EVENT_3001", "Invalid notification payload")
	ErrEmptyNotification   = NewCustomError(400, "EVENT_3002", "Notification payload is empty")

	ErrDatabaseConnectionFailed = NewCustomError(500, "DB_2001", "Failed to connect to database")
	ErrDatabaseMigrationFailed  = NewCustomError(500, "DB_2004", "Database migration failed")

	ErrHTTPNotFound           = NewCustomError(404, "HTTP_404", "Not Found")
	ErrHTTPInternalServer     = NewCustomError(500, "HTTP_500", "Internal Server Error")
	ErrHTTPServiceUnavailable = NewCustomError(503, "HTTP_503", "Service Unavailable")
)

func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		requestID := c.Locals("request_id")

		if customErr, ok := err.(*CustomError); ok {
			response := fiber.Map{
				"error":   customErr.Message,
				"code":    customErr.Code,
				"details": customErr.Details,
			}
			if requestID != nil {
				response["request_id"] = requestID
			}
			return c.Status(customErr.HTTPCode).JSON(response)
		}

		if fiberErr, ok := err.(*fiber.Error); ok {
			response := fiber.Map{
				"error": fiberErr.Message,
			}
			if requestID != nil {
				response["request_id"] = requestID
			}
			return c.Status(fiberErr.Code).JSON(response)
		}

		response := fiber.Map{
			"error": "Internal server error",
		}
		if requestID != nil {
			response["request_id"] = requestID
		}
		return c.Status(fiber.StatusInternalServerError).JSON(response)
	}
}
