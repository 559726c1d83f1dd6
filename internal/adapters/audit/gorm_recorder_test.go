package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"uploadguard/internal/ports"
)

func TestNewRowFlattensMessages(t *testing.T) {
	at := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	row := newRow(ports.ValidationRecord{
		BatchID:     "b-1",
		Bucket:      "photos",
		ObjectKey:   "a.pdf",
		SizeBytes:   1024,
		Errors:      []string{"first", "second"},
		Warnings:    nil,
		Removed:     false,
		RemoveError: "access denied",
		ValidatedAt: at,
	})

	assert.NotEqual(t, uuid.Nil, row.ID)
	assert.Equal(t, "first; second", row.Errors)
	assert.Empty(t, row.Warnings)
	assert.Equal(t, "access denied", row.RemoveError)
	assert.Equal(t, at, row.ValidatedAt)
	assert.Equal(t, "upload_validations", row.TableName())
}

func TestNoopRecorder(t *testing.T) {
	assert.NoError(t, NoopRecorder{}.Record(context.Background(), ports.ValidationRecord{}))
}
