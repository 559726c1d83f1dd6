package ports

import (
	"context"
	"time"
)

// ObjectReader defines a port for reading a byte window of a stored object.
type ObjectReader interface {
	// ReadRange returns bytes [start, end] inclusive of the object. The
	// result may be shorter than requested when the object is smaller.
	ReadRange(ctx context.Context, bucket, key string, start, end int64) ([]byte, error)
}

// ObjectRemover defines a port for deleting a stored object.
type ObjectRemover interface {
	Remove(ctx context.Context, bucket, key string) error
}

// NotificationValidator checks the shape of an inbound notification
// envelope before any field is trusted.
type NotificationValidator interface {
	Validate(ctx context.Context, payload []byte) error
}

// EventPublisher defines a port for sending events/messages
// (e.g. Kafka).
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// ValidationRecord is one audited verdict.
type ValidationRecord struct {
	BatchID     string
	Bucket      string
	ObjectKey   string
	SizeBytes   int64
	Accepted    bool
	Errors      []string
	Warnings    []string
	Removed     bool
	RemoveError string
	ValidatedAt time.Time
}

// AuditRecorder persists validation verdicts.
type AuditRecorder interface {
	Record(ctx context.Context, record ValidationRecord) error
}
