package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// MinIOStorage implements ports.ObjectReader and ports.ObjectRemover
// against any S3-compatible endpoint using MinIO.
type MinIOStorage struct {
	client *minio.Client
}

func NewMinIOStorage(cfg MinIOConfig) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init MinIO client: %w", err)
	}

	return &MinIOStorage{client: client}, nil
}

// Ping checks that the endpoint answers with the configured credentials.
func (s *MinIOStorage) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := s.client.ListBuckets(ctx); err != nil {
		return fmt.Errorf("failed to reach object storage: %w", err)
	}
	return nil
}

// ReadRange issues a single ranged GET for bytes [start, end].
func (s *MinIOStorage) ReadRange(ctx context.Context, bucket, key string, start, end int64) ([]byte, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(start, end); err != nil {
		return nil, fmt.Errorf("invalid range %d-%d: %w", start, end, err)
	}

	obj, err := s.client.GetObject(ctx, bucket, key, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s/%s: %w", bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(io.LimitReader(obj, end-start+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

func (s *MinIOStorage) Remove(ctx context.Context, bucket, key string) error {
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s/%s: %w", bucket, key, err)
	}
	return nil
}

// LoggingRemover reports deletes without issuing them. Used for dry runs.
type LoggingRemover struct {
	Log func(ctx context.Context, bucket, key string)
}

func (r LoggingRemover) Remove(ctx context.Context, bucket, key string) error {
	if r.Log != nil {
		r.Log(ctx, bucket, key)
	}
	return nil
}
