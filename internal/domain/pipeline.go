package domain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"uploadguard/internal/ports"
	logger "uploadguard/internal/shared/log"
)

const (
	mebibyte = 1024 * 1024

	// DefaultMaxSizeBytes is the largest accepted upload, 200 MiB.
	DefaultMaxSizeBytes int64 = 200 * mebibyte

	// Bytes 0-11 of the object are enough for every signature we know.
	signatureWindowStart int64 = 0
	signatureWindowEnd   int64 = 11
	minSignatureBytes          = 2
)

var (
	jpegSignature = []byte{0xFF, 0xD8, 0xFF}
	pngSignature  = []byte{0x89, 0x50, 0x4E, 0x47}
)

// DefaultAllowedExtensions is the upload allow-list used when none is configured.
func DefaultAllowedExtensions() []string {
	return []string{".jpg", ".jpeg", ".png"}
}

// PipelineConfig holds the admission limits. Extensions are lower-case and
// include the leading dot.
type PipelineConfig struct {
	MaxSizeBytes      int64
	AllowedExtensions []string
}

// DefaultPipelineConfig is the 200 MiB JPEG/PNG policy.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		MaxSizeBytes:      DefaultMaxSizeBytes,
		AllowedExtensions: DefaultAllowedExtensions(),
	}
}

// UploadedObject is a decoded object awaiting validation.
type UploadedObject struct {
	Bucket    string
	Key       string
	SizeBytes int64
}

// ValidationOutcome is the verdict for one object. Accepted is true iff
// Errors is empty; Warnings may be set either way.
type ValidationOutcome struct {
	Accepted bool     `json:"accepted"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func rejected(errs ...string) ValidationOutcome {
	return ValidationOutcome{Accepted: false, Errors: errs}
}

// Pipeline applies the size, extension and signature checks in order and
// stops at the first failing check.
type Pipeline struct {
	cfg    PipelineConfig
	reader ports.ObjectReader
}

func NewPipeline(cfg PipelineConfig, reader ports.ObjectReader) (*Pipeline, error) {
	if reader == nil {
		return nil, errors.New("object reader is required")
	}
	if cfg.MaxSizeBytes <= 0 {
		return nil, fmt.Errorf("max size must be positive, got %d", cfg.MaxSizeBytes)
	}
	if len(cfg.AllowedExtensions) == 0 {
		return nil, errors.New("at least one allowed extension is required")
	}
	return &Pipeline{
		cfg:    cfg,
		reader: reader,
	}, nil
}

// Validate classifies obj. The only I/O is the ranged read of the signature
// check, which runs only when the size and extension checks pass.
func (p *Pipeline) Validate(ctx context.Context, obj UploadedObject) ValidationOutcome {
	if msg, ok := p.checkSize(obj.SizeBytes); !ok {
		return rejected(msg)
	}
	if msg, ok := p.checkExtension(obj.Key); !ok {
		return rejected(msg)
	}

	outcome := ValidationOutcome{Accepted: true}
	msg, warnings, ok := p.checkSignature(ctx, obj.Bucket, obj.Key)
	outcome.Warnings = warnings
	if !ok {
		outcome.Accepted = false
		outcome.Errors = []string{msg}
	}
	return outcome
}

func (p *Pipeline) checkSize(size int64) (string, bool) {
	if size <= p.cfg.MaxSizeBytes {
		return "", true
	}
	return fmt.Sprintf("File size %.2fMB exceeds the %sMB limit",
		float64(size)/mebibyte,
		strconv.FormatFloat(float64(p.cfg.MaxSizeBytes)/mebibyte, 'f', -1, 64),
	), false
}

// fileExtension returns the lower-cased suffix starting at the last '.',
// or the whole lower-cased key when there is no dot.
func fileExtension(key string) string {
	lower := strings.ToLower(key)
	idx := strings.LastIndex(lower, ".")
	if idx < 0 {
		return lower
	}
	return lower[idx:]
}

func (p *Pipeline) checkExtension(key string) (string, bool) {
	ext := fileExtension(key)
	if slices.Contains(p.cfg.AllowedExtensions, ext) {
		return "", true
	}
	return fmt.Sprintf("File extension '%s' is not allowed. Only these extensions are permitted (%s)",
		ext, strings.Join(p.cfg.AllowedExtensions, ", ")), false
}

// checkSignature sniffs the leading bytes. A failed or too-short read is
// inconclusive: the object passes with a warning.
func (p *Pipeline) checkSignature(ctx context.Context, bucket, key string) (string, []string, bool) {
	header, err := p.reader.ReadRange(ctx, bucket, key, signatureWindowStart, signatureWindowEnd)
	if err != nil {
		logger.Warnf(ctx, "Could not validate content type of %s: %v", key, err)
		return "", []string{"Content type validation skipped due to read error"}, true
	}
	if len(header) < minSignatureBytes {
		return "", []string{"Could not validate content type: file headers are unavailable"}, true
	}

	if bytes.HasPrefix(header, jpegSignature) || bytes.HasPrefix(header, pngSignature) {
		return "", nil, true
	}
	return "File does not appear to be a valid JPEG or PNG image based on file headers", nil, false
}
