package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"uploadguard/internal/ports"
)

// UploadValidation is a row of the upload_validations table.
type UploadValidation struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	BatchID     string    `gorm:"column:batch_id;not null"`
	Bucket      string    `gorm:"column:bucket;not null"`
	ObjectKey   string    `gorm:"column:object_key;not null"`
	SizeBytes   int64     `gorm:"column:size_bytes;not null"`
	Accepted    bool      `gorm:"column:accepted;not null"`
	Errors      string    `gorm:"column:errors"`
	Warnings    string    `gorm:"column:warnings"`
	Removed     bool      `gorm:"column:removed;not null"`
	RemoveError string    `gorm:"column:remove_error"`
	ValidatedAt time.Time `gorm:"column:validated_at;not null"`
}

func (UploadValidation) TableName() string {
	return "upload_validations"
}

// GormRecorder implements ports.AuditRecorder on postgres through gorm.
type GormRecorder struct {
	db *gorm.DB
}

func NewGormRecorder(db *gorm.DB) *GormRecorder {
	return &GormRecorder{db: db}
}

func newRow(r ports.ValidationRecord) UploadValidation {
	return UploadValidation{
		ID:          uuid.New(),
		BatchID:     r.BatchID,
		Bucket:      r.Bucket,
		ObjectKey:   r.ObjectKey,
		SizeBytes:   r.SizeBytes,
		Accepted:    r.Accepted,
		Errors:      strings.Join(r.Errors, "; "),
		Warnings:    strings.Join(r.Warnings, "; "),
		Removed:     r.Removed,
		RemoveError: r.RemoveError,
		ValidatedAt: r.ValidatedAt,
	}
}

func (g *GormRecorder) Record(ctx context.Context, record ports.ValidationRecord) error {
	row := newRow(record)
	if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert upload validation: %w", err)
	}
	return nil
}

// NoopRecorder discards records; used when no database is configured.
type NoopRecorder struct{}

func (NoopRecorder) Record(ctx context.Context, record ports.ValidationRecord) error {
	return nil
}
