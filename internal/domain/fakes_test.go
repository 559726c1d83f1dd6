package domain

import (
	"context"
	"sync"

	"uploadguard/internal/ports"
)

type rangeCall struct {
	bucket, key string
	start, end  int64
}

type fakeReader struct {
	mu      sync.Mutex
	headers map[string][]byte
	err     error
	calls   []rangeCall
}

func newFakeReader() *fakeReader {
	return &fakeReader{headers: map[string][]byte{}}
}

func (f *fakeReader) ReadRange(ctx context.Context, bucket, key string, start, end int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rangeCall{bucket: bucket, key: key, start: start, end: end})
	if f.err != nil {
		return nil, f.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data := f.headers[key]
	if int64(len(data)) > end+1 {
		data = data[:end+1]
	}
	return data, nil
}

type fakeRemover struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (f *fakeRemover) Remove(ctx context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, bucket+"/"+key)
	return f.err
}

type published struct {
	topic      string
	key, value []byte
}

type fakePublisher struct {
	err      error
	messages []published
}

func (f *fakePublisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	f.messages = append(f.messages, published{topic: topic, key: key, value: value})
	return f.err
}

type fakeAudit struct {
	err     error
	records []ports.ValidationRecord
}

func (f *fakeAudit) Record(ctx context.Context, record ports.ValidationRecord) error {
	f.records = append(f.records, record)
	return f.err
}
