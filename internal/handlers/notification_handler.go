package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/hashicorp/go-multierror"

	"uploadguard/internal/domain"
	appError "uploadguard/internal/shared/error"
	logger "uploadguard/internal/shared/log"
)

// NotificationService is the part of the domain the HTTP intake needs.
type NotificationService interface {
	HandleNotification(ctx context.Context, payload []byte) (*domain.BatchReport, error)
}

// NotificationHandler serves the bucket notification webhook.
type NotificationHandler struct {
	service NotificationService
}

// NewNotificationHandler returns a handler backed by service.
func NewNotificationHandler(service NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// HandleNotification is the HTTP adapter for bucket notification webhooks.
// It answers 200 with the batch report when every object was accepted and
// 422 with the report and rejection reasons otherwise.
func (h *NotificationHandler) HandleNotification(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	// The batch must finish even if the caller hangs up.
	ctx = context.WithoutCancel(ctx)

	if h.service == nil {
		logger.Error(ctx, errors.New("service is nil"), "UploadValidationService not initialized")
		return appError.ErrHTTPServiceUnavailable
	}

	payload := c.Body()
	if len(payload) == 0 {
		logger.Warn(ctx, "Empty notification body received")
		return appError.ErrEmptyNotification
	}

	logger.Infof(ctx, "Received bucket notification, body size: %d bytes", len(payload))

	report, err := h.service.HandleNotification(ctx, payload)
	if err == nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "accepted",
			"report": report,
		})
	}

	var customErr *appError.CustomError
	if errors.As(err, &customErr) {
		return customErr
	}

	if report == nil {
		logger.Errorf(ctx, err, "Failed to handle bucket notification")
		return appError.ErrHTTPInternalServer
	}

	return appError.NewCustomError(
		appError.ErrUploadValidationFailed.HTTPCode,
		appError.ErrUploadValidationFailed.Code,
		appError.ErrUploadValidationFailed.Message,
		fiber.Map{
			"report":     report,
			"rejections": rejectionMessages(err),
		},
	)
}

func rejectionMessages(err error) []string {
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(merr.Errors))
	for _, e := range merr.Errors {
		msgs = append(msgs, e.Error())
	}
	return msgs
}
