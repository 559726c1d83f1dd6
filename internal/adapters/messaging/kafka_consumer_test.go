package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uploadguard/internal/domain"
	appError "uploadguard/internal/shared/error"
	logger "uploadguard/internal/shared/log"
)

type fakeMessageReader struct {
	messages  []kafka.Message
	committed []int64
	fetchErr  error
	cancel    context.CancelFunc
}

func (f *fakeMessageReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.messages) == 0 {
		if f.fetchErr != nil {
			return kafka.Message{}, f.fetchErr
		}
		f.cancel()
		return kafka.Message{}, ctx.Err()
	}
	msg := f.messages[0]
	f.messages = f.messages[1:]
	return msg, nil
}

func (f *fakeMessageReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeMessageReader) Close() error { return nil }

type recordingHandler struct {
	payloads []string
	batchIDs []string
	detached []bool
	results  []error
}

func (h *recordingHandler) HandleNotification(ctx context.Context, payload []byte) (*domain.BatchReport, error) {
	h.payloads = append(h.payloads, string(payload))
	h.batchIDs = append(h.batchIDs, logger.BatchID(ctx))
	h.detached = append(h.detached, ctx.Done() == nil)
	var err error
	if len(h.results) > 0 {
		err, h.results = h.results[0], h.results[1:]
	}
	return &domain.BatchReport{Processed: 1, Rejected: 1}, err
}

func TestConsumerHandlesAndCommitsInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeMessageReader{
		messages: []kafka.Message{
			{Offset: 10, Value: []byte(`first`)},
			{Offset: 11, Value: []byte(`second`)},
			{Offset: 12, Value: []byte(`third`)},
		},
		cancel: cancel,
	}
	handler := &recordingHandler{results: []error{
		nil,
		&domain.RejectionError{Key: "a.pdf", Errors: []string{"bad"}},
		appError.ErrInvalidNotification,
	}}
	consumer := &KafkaNotificationConsumer{reader: reader, handler: handler}

	err := consumer.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, handler.payloads)
	assert.Equal(t, []int64{10, 11, 12}, reader.committed)
	for _, id := range handler.batchIDs {
		assert.NotEmpty(t, id)
	}
	assert.NotEqual(t, handler.batchIDs[0], handler.batchIDs[1])
	assert.Equal(t, []bool{true, true, true}, handler.detached)
}

func TestConsumerReturnsFetchErrors(t *testing.T) {
	reader := &fakeMessageReader{fetchErr: errors.New("broker unreachable")}
	consumer := &KafkaNotificationConsumer{reader: reader, handler: &recordingHandler{}}

	err := consumer.Run(context.Background())

	assert.ErrorContains(t, err, "broker unreachable")
}

func TestNewKafkaNotificationConsumerRequiresBrokersAndTopic(t *testing.T) {
	_, err := NewKafkaNotificationConsumer(ConsumerConfig{KafkaConfig: KafkaConfig{Brokers: " , "}, Topic: "t"}, &recordingHandler{})
	assert.Error(t, err)

	_, err = NewKafkaNotificationConsumer(ConsumerConfig{KafkaConfig: KafkaConfig{Brokers: "localhost:9092"}}, &recordingHandler{})
	assert.Error(t, err)
}

func TestKafkaConfigBrokerList(t *testing.T) {
	cfg := KafkaConfig{Brokers: "a:9092, b:9092,,"}
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.brokerList())
}
