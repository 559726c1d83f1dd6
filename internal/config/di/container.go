package di

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"uploadguard/internal/adapters/audit"
	"uploadguard/internal/adapters/messaging"
	"uploadguard/internal/adapters/storage"
	"uploadguard/internal/adapters/validation"
	"uploadguard/internal/config"
	"uploadguard/internal/domain"
	"uploadguard/internal/ports"
	db "uploadguard/internal/shared/database"
	logger "uploadguard/internal/shared/log"
)

type Container struct {
	Config            *config.Config
	DB                *gorm.DB
	Storage           *storage.MinIOStorage
	Publisher         *messaging.KafkaPublisher
	Consumer          *messaging.KafkaNotificationConsumer
	ValidationService *domain.UploadValidationService
}

// Options adjust how the container is assembled.
type Options struct {
	// DryRun replaces object deletion with a log line.
	DryRun bool
	// SkipConsumer leaves the Kafka notification consumer unbuilt.
	SkipConsumer bool
}

func (c *Container) Shutdown(ctx context.Context) error {
	logger.Info(ctx, "Shutting down container resources...")

	if c.Consumer != nil {
		if err := c.Consumer.Close(); err != nil {
			logger.Error(ctx, err, "Failed to close Kafka consumer")
		}
	}

	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			logger.Error(ctx, err, "Failed to close Kafka publisher")
		}
	}

	if c.DB != nil {
		if err := db.Close(); err != nil {
			logger.Error(ctx, err, "Failed to close database connection")
		}
	}

	logger.Info(ctx, "Container shutdown complete")
	return nil
}

func InitContainer(ctx context.Context, opts Options) (*Container, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	c := &Container{Config: cfg}

	minioStorage, err := storage.NewMinIOStorage(storage.MinIOConfig{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		UseSSL:    cfg.MinIOUseSSL,
		Region:    cfg.MinIORegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO storage: %w", err)
	}
	if err := minioStorage.Ping(ctx); err != nil {
		// Every notification makes its own storage calls, so a cold start is not fatal.
		logger.Warnf(ctx, "Object storage not reachable yet: %v", err)
	}
	c.Storage = minioStorage

	var remover ports.ObjectRemover = minioStorage
	if opts.DryRun {
		remover = storage.LoggingRemover{Log: func(ctx context.Context, bucket, key string) {
			logger.Warnf(ctx, "Dry run: would remove %s/%s", bucket, key)
		}}
	}

	var recorder ports.AuditRecorder = audit.NoopRecorder{}
	if cfg.AuditEnabled() {
		database, err := db.Init(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		c.DB = database

		logger.Info(ctx, "Running database migrations...")
		if err := MigrateDB(database); err != nil {
			_ = c.Shutdown(ctx)
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		logger.Info(ctx, "Database migrations completed successfully")
		recorder = audit.NewGormRecorder(database)
	} else {
		logger.Info(ctx, "DATABASE_URL not set, audit trail disabled")
	}

	schemaValidator, err := validation.NewJSONSchemaValidator()
	if err != nil {
		_ = c.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize schema validator: %w", err)
	}

	pipeline, err := domain.NewPipeline(cfg.PipelineConfig(), minioStorage)
	if err != nil {
		_ = c.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create validation pipeline: %w", err)
	}

	serviceOpts := []domain.ServiceOption{
		domain.WithNotificationValidator(schemaValidator),
		domain.WithAuditRecorder(recorder),
	}

	if cfg.KafkaEnabled() {
		publisher, err := messaging.NewKafkaPublisher(messaging.KafkaConfig{Brokers: cfg.KafkaBrokers})
		if err != nil {
			_ = c.Shutdown(ctx)
			return nil, fmt.Errorf("failed to initialize Kafka publisher: %w", err)
		}
		c.Publisher = publisher
		serviceOpts = append(serviceOpts, domain.WithRejectionPublisher(publisher, cfg.KafkaRejectionTopic))
	} else {
		logger.Info(ctx, "KAFKA_BROKERS not set, Kafka intake and rejection events disabled")
	}

	service, err := domain.NewUploadValidationService(pipeline, remover, serviceOpts...)
	if err != nil {
		_ = c.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create UploadValidationService: %w", err)
	}
	c.ValidationService = service

	if cfg.KafkaEnabled() && !opts.SkipConsumer {
		consumer, err := messaging.NewKafkaNotificationConsumer(messaging.ConsumerConfig{
			KafkaConfig: messaging.KafkaConfig{Brokers: cfg.KafkaBrokers},
			Topic:       cfg.KafkaNotificationTopic,
			GroupID:     cfg.KafkaConsumerGroup,
		}, service)
		if err != nil {
			_ = c.Shutdown(ctx)
			return nil, fmt.Errorf("failed to initialize Kafka consumer: %w", err)
		}
		c.Consumer = consumer
	}

	logger.Infof(ctx, "Validation pipeline ready: max %d bytes, extensions %v", cfg.UploadMaxBytes, cfg.PipelineConfig().AllowedExtensions)
	return c, nil
}
