package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"uploadguard/internal/ports"
	appError "uploadguard/internal/shared/error"
	logger "uploadguard/internal/shared/log"
)

// RejectionError reports one object that failed validation and was
// remediated.
type RejectionError struct {
	Bucket string
	Key    string
	Errors []string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("File validation failed for %s: %s", e.Key, strings.Join(e.Errors, "; "))
}

// ObjectResult is the per-object entry of a BatchReport.
type ObjectResult struct {
	Bucket      string            `json:"bucket"`
	Key         string            `json:"key"`
	SizeBytes   int64             `json:"size_bytes"`
	Outcome     ValidationOutcome `json:"outcome"`
	Removed     bool              `json:"removed"`
	RemoveError string            `json:"remove_error,omitempty"`
}

// BatchReport summarises one processed notification batch.
type BatchReport struct {
	BatchID   string         `json:"batch_id"`
	Processed int            `json:"processed"`
	Accepted  int            `json:"accepted"`
	Rejected  int            `json:"rejected"`
	Skipped   int            `json:"skipped"`
	Results   []ObjectResult `json:"results"`
}

type rejectionEvent struct {
	BatchID    string    `json:"batch_id"`
	Bucket     string    `json:"bucket"`
	ObjectKey  string    `json:"object_key"`
	SizeBytes  int64     `json:"size_bytes"`
	Errors     []string  `json:"errors"`
	Deleted    bool      `json:"deleted"`
	RejectedAt time.Time `json:"rejected_at"`
}

// UploadValidationService runs notification batches through the pipeline
// and removes every object that fails it.
type UploadValidationService struct {
	pipeline       *Pipeline
	remover        ports.ObjectRemover
	validator      ports.NotificationValidator
	publisher      ports.EventPublisher
	rejectionTopic string
	audit          ports.AuditRecorder
	now            func() time.Time
}

type ServiceOption func(*UploadValidationService)

// WithRejectionPublisher publishes an event to topic for every rejected object.
func WithRejectionPublisher(publisher ports.EventPublisher, topic string) ServiceOption {
	return func(s *UploadValidationService) {
		s.publisher = publisher
		s.rejectionTopic = topic
	}
}

// WithAuditRecorder records every verdict.
func WithAuditRecorder(recorder ports.AuditRecorder) ServiceOption {
	return func(s *UploadValidationService) {
		s.audit = recorder
	}
}

// WithNotificationValidator checks raw envelopes before they are parsed.
func WithNotificationValidator(validator ports.NotificationValidator) ServiceOption {
	return func(s *UploadValidationService) {
		s.validator = validator
	}
}

func withClock(now func() time.Time) ServiceOption {
	return func(s *UploadValidationService) {
		s.now = now
	}
}

// NewUploadValidationService constructs a new UploadValidationService.
func NewUploadValidationService(pipeline *Pipeline, remover ports.ObjectRemover, opts ...ServiceOption) (*UploadValidationService, error) {
	if pipeline == nil {
		return nil, errors.New("validation pipeline is required")
	}
	if remover == nil {
		return nil, errors.New("object remover is required")
	}
	s := &UploadValidationService{
		pipeline: pipeline,
		remover:  remover,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// HandleNotification validates and parses a raw S3/MinIO event envelope and
// processes its records as one batch. Envelope problems are returned as
// *appError.CustomError before any object is touched.
func (s *UploadValidationService) HandleNotification(ctx context.Context, payload []byte) (*BatchReport, error) {
	if len(payload) == 0 {
		return nil, appError.ErrEmptyNotification
	}

	if s.validator != nil {
		if err := s.validator.Validate(ctx, payload); err != nil {
			logger.Errorf(ctx, err, "Notification envelope failed schema validation")
			return nil, appError.NewCustomError(
				400,
				appError.ErrInvalidNotification.Code,
				fmt.Sprintf("notification schema validation failed: %v", err),
			)
		}
	}

	notifications, err := ParseNotifications(payload)
	if err != nil {
		logger.Errorf(ctx, err, "Failed to parse notification envelope")
		return nil, appError.NewCustomError(
			400,
			appError.ErrInvalidNotification.Code,
			"failed to parse notification payload",
			err.Error(),
		)
	}

	return s.ProcessBatch(ctx, notifications)
}

// ProcessBatch validates every creation notification in delivery order, one
// at a time. All notifications are processed even after a rejection; the
// returned error aggregates one *RejectionError per rejected object and is
// nil when nothing was rejected. The report is always returned.
func (s *UploadValidationService) ProcessBatch(ctx context.Context, notifications []UploadNotification) (*BatchReport, error) {
	// A started batch runs to completion; reads and deletes ignore cancellation.
	ctx = context.WithoutCancel(ctx)
	batchID := logger.BatchID(ctx)
	if batchID == "" {
		batchID = uuid.NewString()
		ctx = logger.WithBatchID(ctx, batchID)
	}

	logger.Infof(ctx, "Storage validation triggered for %d notification(s)", len(notifications))

	report := &BatchReport{
		BatchID: batchID,
		Results: make([]ObjectResult, 0, len(notifications)),
	}
	var result *multierror.Error

	for _, n := range notifications {
		if !n.IsObjectCreated() {
			logger.Debugf(ctx, "Skipping %s event for %s", n.EventKind, n.ObjectKey)
			report.Skipped++
			continue
		}

		res := s.processObject(ctx, batchID, n)
		report.Processed++
		report.Results = append(report.Results, res)

		if res.Outcome.Accepted {
			report.Accepted++
			continue
		}
		report.Rejected++
		result = multierror.Append(result, &RejectionError{
			Bucket: res.Bucket,
			Key:    res.Key,
			Errors: res.Outcome.Errors,
		})
	}

	if err := result.ErrorOrNil(); err != nil {
		logger.Errorf(ctx, err, "Batch finished with %d rejected of %d processed file(s)", report.Rejected, report.Processed)
		return report, err
	}

	logger.Infof(ctx, "All files processed successfully (%d accepted, %d skipped)", report.Accepted, report.Skipped)
	return report, nil
}

func (s *UploadValidationService) processObject(ctx context.Context, batchID string, n UploadNotification) ObjectResult {
	res := ObjectResult{
		Bucket:    n.BucketID,
		Key:       n.ObjectKey,
		SizeBytes: n.SizeBytes,
	}

	key, err := DecodeObjectKey(n.ObjectKey)
	if err != nil {
		// The raw key is the best guess for the stored name.
		res.Outcome = rejected(fmt.Sprintf("Object key '%s' could not be decoded: %v", n.ObjectKey, err))
	} else {
		res.Key = key
		logger.Infof(ctx, "Processing file: %s, size: %s", key, humanize.IBytes(uint64(n.SizeBytes)))
		res.Outcome = s.pipeline.Validate(ctx, UploadedObject{
			Bucket:    n.BucketID,
			Key:       key,
			SizeBytes: n.SizeBytes,
		})
	}

	if res.Outcome.Accepted {
		if len(res.Outcome.Warnings) > 0 {
			logger.Warnf(ctx, "Validation warnings for %s: %s", res.Key, strings.Join(res.Outcome.Warnings, "; "))
		}
		logger.Infof(ctx, "File %s passed all validation checks", res.Key)
	} else {
		logger.Warnf(ctx, "File validation failed for %s: %s", res.Key, strings.Join(res.Outcome.Errors, "; "))
		s.remediate(ctx, &res)
		s.publishRejection(ctx, batchID, res)
	}

	s.record(ctx, batchID, res)
	return res
}

// remediate issues exactly one delete. Its failure is logged and never
// changes the verdict.
func (s *UploadValidationService) remediate(ctx context.Context, res *ObjectResult) {
	if err := s.remover.Remove(ctx, res.Bucket, res.Key); err != nil {
		logger.Errorf(ctx, err, "Failed to remove invalid file %s", res.Key)
		res.RemoveError = err.Error()
		return
	}
	res.Removed = true
	logger.Infof(ctx, "Removed invalid file: %s", res.Key)
}

func (s *UploadValidationService) publishRejection(ctx context.Context, batchID string, res ObjectResult) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(rejectionEvent{
		BatchID:    batchID,
		Bucket:     res.Bucket,
		ObjectKey:  res.Key,
		SizeBytes:  res.SizeBytes,
		Errors:     res.Outcome.Errors,
		Deleted:    res.Removed,
		RejectedAt: s.now().UTC(),
	})
	if err != nil {
		logger.Errorf(ctx, err, "Failed to serialize rejection event for %s", res.Key)
		return
	}
	if err := s.publisher.Publish(ctx, s.rejectionTopic, []byte(res.Key), payload); err != nil {
		logger.Errorf(ctx, err, "Failed to publish rejection event for %s", res.Key)
	}
}

func (s *UploadValidationService) record(ctx context.Context, batchID string, res ObjectResult) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, ports.ValidationRecord{
		BatchID:     batchID,
		Bucket:      res.Bucket,
		ObjectKey:   res.Key,
		SizeBytes:   res.SizeBytes,
		Accepted:    res.Outcome.Accepted,
		Errors:      res.Outcome.Errors,
		Warnings:    res.Outcome.Warnings,
		Removed:     res.Removed,
		RemoveError: res.RemoveError,
		ValidatedAt: s.now().UTC(),
	})
	if err != nil {
		logger.Errorf(ctx, err, "Failed to record validation result for %s", res.Key)
	}
}
