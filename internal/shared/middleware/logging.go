package middleware

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	appError "uploadguard/internal/shared/error"
	"uploadguard/internal/shared/log"
)

const requestIDHeader = "X-Request-ID"

type LoggingConfig struct {
	MaxBodyLogSize  int
	SkipPaths       []string
	LogResponseBody bool
}

func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		MaxBodyLogSize:  2048,
		SkipPaths:       []string{"/health"},
		LogResponseBody: true,
	}
}

func convertFastHTTPRequest(c *fiber.Ctx) *http.Request {
	req := &http.Request{
		Method: c.Method(),
		URL: &url.URL{
			Scheme:   c.Protocol(),
			Host:     c.Hostname(),
			Path:     c.Path(),
			RawQuery: string(c.Request().URI().QueryString()),
		},
		Header:     make(http.Header),
		RemoteAddr: c.IP(),
		Host:       c.Hostname(),
	}

	c.Request().Header.VisitAll(func(key, value []byte) {
		req.Header.Set(string(key), string(value))
	})

	return req
}

// RequestIDMiddleware reuses an inbound X-Request-ID or mints one, and
// stores it on both the fiber locals and the user context.
func RequestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Locals("request_id", requestID)
		c.SetUserContext(log.WithRequestID(c.UserContext(), requestID))
		c.Set(requestIDHeader, requestID)

		return c.Next()
	}
}

func LoggingMiddleware(config ...LoggingConfig) fiber.Handler {
	cfg := DefaultLoggingConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	return func(c *fiber.Ctx) error {
		path := c.Path()
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath {
				return c.Next()
			}
		}

		ctx := c.UserContext()
		httpReq := convertFastHTTPRequest(c)
		start := time.Now()

		log.RequestStart(ctx, httpReq, c.Body())

		err := c.Next()

		responseTime := time.Since(start)
		responseStatusCode := c.Response().StatusCode()
		responseSize := len(c.Response().Body())

		if err != nil {
			log.Warnf(ctx, "Request handler error: %v", err)

			switch e := err.(type) {
			case *appError.CustomError:
				responseStatusCode = e.HTTPCode
			case *fiber.Error:
				responseStatusCode = e.Code
			default:
				responseStatusCode = fiber.StatusInternalServerError
			}
		}

		log.RequestEnd(ctx, httpReq, responseStatusCode, responseTime, responseSize)

		if cfg.LogResponseBody && responseSize > 0 && responseSize <= cfg.MaxBodyLogSize {
			log.Debugf(ctx, "Response body: %s", string(c.Response().Body()))
		}

		return err
	}
}

func RecoveryMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.PanicLog(c.UserContext(), convertFastHTTPRequest(c), r)
				err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":      "Internal server error",
					"request_id": c.Locals("request_id"),
				})
			}
		}()

		return c.Next()
	}
}
