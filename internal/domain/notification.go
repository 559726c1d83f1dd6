package domain

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/valyala/fastjson"
)

const objectCreatedPrefix = "ObjectCreated"

// UploadNotification describes one object written to a bucket, as delivered
// by the storage event source. ObjectKey is still transport-encoded.
type UploadNotification struct {
	BucketID  string
	ObjectKey string
	SizeBytes int64
	EventKind string
}

// IsObjectCreated reports whether the notification is a creation event.
// Both AWS ("ObjectCreated:Put") and MinIO ("s3:ObjectCreated:Put") names
// are accepted.
func (n UploadNotification) IsObjectCreated() bool {
	return strings.HasPrefix(strings.TrimPrefix(n.EventKind, "s3:"), objectCreatedPrefix)
}

// DecodeObjectKey turns a notification key into the stored object key:
// '+' becomes a space, then percent escapes are resolved.
func DecodeObjectKey(raw string) (string, error) {
	decoded, err := url.PathUnescape(strings.ReplaceAll(raw, "+", " "))
	if err != nil {
		return "", err
	}
	if !utf8.ValidString(decoded) {
		return "", errors.New("decoded key is not valid UTF-8")
	}
	return decoded, nil
}

// ParseNotifications extracts the notification records of an S3/MinIO event
// envelope ({"Records": [...]}) in delivery order.
func ParseNotifications(payload []byte) ([]UploadNotification, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notification payload: %w", err)
	}

	recordsVal := v.Get("Records")
	if recordsVal == nil {
		return nil, errors.New("notification payload has no Records field")
	}
	records, err := recordsVal.Array()
	if err != nil {
		return nil, fmt.Errorf("notification Records is not an array: %w", err)
	}

	notifications := make([]UploadNotification, 0, len(records))
	for i, r := range records {
		size, err := objectSize(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		notifications = append(notifications, UploadNotification{
			BucketID:  string(r.GetStringBytes("s3", "bucket", "name")),
			ObjectKey: string(r.GetStringBytes("s3", "object", "key")),
			SizeBytes: size,
			EventKind: string(r.GetStringBytes("eventName")),
		})
	}
	return notifications, nil
}

// objectSize reads s3.object.size. Integral exponent forms such as 3.0e8 are
// accepted; a missing, fractional or negative size is an error.
func objectSize(record *fastjson.Value) (int64, error) {
	v := record.Get("s3", "object", "size")
	if v == nil {
		return 0, errors.New("object size is missing")
	}
	size, err := v.Int64()
	if err != nil {
		f, ferr := v.Float64()
		if ferr != nil || f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
			return 0, fmt.Errorf("object size %s is not an integer", v.String())
		}
		size = int64(f)
	}
	if size < 0 {
		return 0, fmt.Errorf("negative object size %d", size)
	}
	return size, nil
}
