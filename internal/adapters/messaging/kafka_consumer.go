package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"uploadguard/internal/domain"
	appError "uploadguard/internal/shared/error"
	logger "uploadguard/internal/shared/log"
)

type ConsumerConfig struct {
	KafkaConfig
	Topic   string
	GroupID string
}

// NotificationHandler processes one raw notification envelope.
type NotificationHandler interface {
	HandleNotification(ctx context.Context, payload []byte) (*domain.BatchReport, error)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotificationConsumer reads bucket notifications published by the
// storage event target and hands each message to the handler as one batch.
// Messages are handled strictly one after another.
type KafkaNotificationConsumer struct {
	reader  messageReader
	handler NotificationHandler
}

func NewKafkaNotificationConsumer(cfg ConsumerConfig, handler NotificationHandler) (*KafkaNotificationConsumer, error) {
	brokers := cfg.brokerList()
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("no notification topic configured")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
	})

	return &KafkaNotificationConsumer{reader: reader, handler: handler}, nil
}

// Run consumes until ctx is cancelled or the reader fails.
func (c *KafkaNotificationConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to fetch notification: %w", err)
		}

		c.handle(ctx, msg)

		// Rejected objects are already removed, so every message is committed.
		// Redelivery would only repeat the deletes.
		commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		err = c.reader.CommitMessages(commitCtx, msg)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to commit offset %d: %w", msg.Offset, err)
		}
	}
}

func (c *KafkaNotificationConsumer) handle(ctx context.Context, msg kafka.Message) {
	ctx = logger.WithBatchID(ctx, uuid.NewString())
	logger.Infof(ctx, "Received notification from %s[%d]@%d, %d bytes", msg.Topic, msg.Partition, msg.Offset, len(msg.Value))

	report, err := c.handler.HandleNotification(context.WithoutCancel(ctx), msg.Value)
	if err == nil {
		return
	}

	var customErr *appError.CustomError
	if errors.As(err, &customErr) {
		logger.Errorf(ctx, err, "Dropping malformed notification at offset %d", msg.Offset)
		return
	}
	if report != nil {
		logger.Warnf(ctx, "Notification at offset %d removed %d of %d file(s)", msg.Offset, report.Rejected, report.Processed)
	}
}

func (c *KafkaNotificationConsumer) Close() error {
	return c.reader.Close()
}
