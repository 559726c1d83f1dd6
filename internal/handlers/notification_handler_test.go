package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uploadguard/internal/domain"
	appError "uploadguard/internal/shared/error"
)

type stubService struct {
	report  *domain.BatchReport
	err     error
	payload string
	ctxDone <-chan struct{}
}

func (s *stubService) HandleNotification(ctx context.Context, payload []byte) (*domain.BatchReport, error) {
	s.payload = string(payload)
	s.ctxDone = ctx.Done()
	return s.report, s.err
}

func newTestApp(service NotificationService) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: appError.ErrorHandler()})
	RegisterRoutes(app, service)
	return app
}

func post(t *testing.T, app *fiber.App, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", "/notifications", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

func TestHandleNotificationAccepted(t *testing.T) {
	svc := &stubService{report: &domain.BatchReport{BatchID: "b-1", Processed: 1, Accepted: 1}}
	app := newTestApp(svc)

	status, body := post(t, app, `{"Records":[]}`)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "accepted", body["status"])
	assert.Equal(t, `{"Records":[]}`, svc.payload)
	assert.Nil(t, svc.ctxDone, "batch context must not be cancellable")
	report := body["report"].(map[string]any)
	assert.Equal(t, "b-1", report["batch_id"])
}

func TestHandleNotificationRejected(t *testing.T) {
	var merr *multierror.Error
	merr = multierror.Append(merr,
		&domain.RejectionError{Key: "document.pdf", Errors: []string{"File extension '.pdf' is not allowed"}},
		&domain.RejectionError{Key: "huge.jpg", Errors: []string{"File size 300.00MB exceeds the 200MB limit"}},
	)
	svc := &stubService{
		report: &domain.BatchReport{BatchID: "b-2", Processed: 2, Rejected: 2},
		err:    merr,
	}
	app := newTestApp(svc)

	status, body := post(t, app, `{"Records":[{}]}`)

	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "UPLOAD_3001", body["code"])
	details := body["details"].(map[string]any)
	assert.Equal(t, []any{
		"File validation failed for document.pdf: File extension '.pdf' is not allowed",
		"File validation failed for huge.jpg: File size 300.00MB exceeds the 200MB limit",
	}, details["rejections"])
}

func TestHandleNotificationInvalidEnvelope(t *testing.T) {
	svc := &stubService{err: appError.NewCustomError(400, appError.ErrInvalidNotification.Code, "notification schema validation failed")}
	app := newTestApp(svc)

	status, body := post(t, app, `{"nope":true}`)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "EVENT_3001", body["code"])
}

func TestHandleNotificationEmptyBody(t *testing.T) {
	svc := &stubService{}
	app := newTestApp(svc)

	status, body := post(t, app, ``)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "EVENT_3002", body["code"])
	assert.Empty(t, svc.payload)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	app := newTestApp(&stubService{})

	resp, err := app.Test(httptest.NewRequest("GET", "/nope", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleNotificationWithoutService(t *testing.T) {
	app := newTestApp(nil)

	status, body := post(t, app, `{"Records":[]}`)

	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "HTTP_503", body["code"])
}
