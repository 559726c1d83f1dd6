package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"uploadguard/internal/domain"
)

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// Empty disables the audit trail.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	MinIOEndpoint  string `envconfig:"MINIO_ENDPOINT" required:"true"`
	MinIOAccessKey string `envconfig:"MINIO_ACCESS_KEY" required:"true"`
	MinIOSecretKey string `envconfig:"MINIO_SECRET_KEY" required:"true"`
	MinIOUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
	MinIORegion    string `envconfig:"MINIO_REGION"`

	// Empty disables the notification consumer and the rejection publisher.
	KafkaBrokers           string `envconfig:"KAFKA_BROKERS"`
	KafkaNotificationTopic string `envconfig:"KAFKA_NOTIFICATION_TOPIC" default:"storage.object-created"`
	KafkaConsumerGroup     string `envconfig:"KAFKA_CONSUMER_GROUP" default:"uploadguard"`
	KafkaRejectionTopic    string `envconfig:"KAFKA_REJECTION_TOPIC" default:"storage.upload-rejected"`

	UploadMaxBytes          int64    `envconfig:"UPLOAD_MAX_BYTES" default:"209715200"`
	UploadAllowedExtensions []string `envconfig:"UPLOAD_ALLOWED_EXTENSIONS" default:".jpg,.jpeg,.png"`
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		fmt.Printf("Warning: error loading .env file: %v\n", err)
	}

	config := &Config{}

	err = envconfig.Process("", config)
	if err != nil {
		return nil, fmt.Errorf("error processing envconfig: %w", err)
	}

	if config.UploadMaxBytes <= 0 {
		return nil, fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", config.UploadMaxBytes)
	}
	if len(config.PipelineConfig().AllowedExtensions) == 0 {
		return nil, fmt.Errorf("UPLOAD_ALLOWED_EXTENSIONS must name at least one extension")
	}

	return config, nil
}

// PipelineConfig returns the validation limits with extensions lower-cased
// and dot-prefixed.
func (c *Config) PipelineConfig() domain.PipelineConfig {
	exts := make([]string, 0, len(c.UploadAllowedExtensions))
	for _, ext := range c.UploadAllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return domain.PipelineConfig{
		MaxSizeBytes:      c.UploadMaxBytes,
		AllowedExtensions: exts,
	}
}

func (c *Config) KafkaEnabled() bool {
	return strings.TrimSpace(c.KafkaBrokers) != ""
}

func (c *Config) AuditEnabled() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}
