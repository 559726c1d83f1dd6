package log

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	batchIDKey   ctxKey = "batch_id"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "uploadguard").Logger()

// Init configures the package logger. Unknown levels fall back to info.
func Init(level, format string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "2006-01-02 15:04:05",
		}).With().Timestamp().Str("service", "uploadguard").Logger()
	}
	logger = logger.Level(lvl)

	if err != nil {
		logger.Warn().Str("level", level).Msg("invalid log level, defaulting to info")
	}
}

// WithRequestID stores the HTTP request id used to correlate log lines.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithBatchID stores the notification batch id used to correlate log lines.
func WithBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchIDKey, id)
}

// RequestID returns the request id carried by ctx, if any.
func RequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// BatchID returns the batch id carried by ctx, if any.
func BatchID(ctx context.Context) string {
	return stringValue(ctx, batchIDKey)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

func withContext(ctx context.Context, e *zerolog.Event) *zerolog.Event {
	if id := RequestID(ctx); id != "" {
		e = e.Str("request_id", id)
	}
	if id := BatchID(ctx); id != "" {
		e = e.Str("batch_id", id)
	}
	return e
}

func Debugf(ctx context.Context, format string, args ...any) {
	withContext(ctx, logger.Debug()).Msgf(format, args...)
}

func Info(ctx context.Context, msg string) {
	withContext(ctx, logger.Info()).Msg(msg)
}

func Infof(ctx context.Context, format string, args ...any) {
	withContext(ctx, logger.Info()).Msgf(format, args...)
}

func Warn(ctx context.Context, msg string) {
	withContext(ctx, logger.Warn()).Msg(msg)
}

func Warnf(ctx context.Context, format string, args ...any) {
	withContext(ctx, logger.Warn()).Msgf(format, args...)
}

func Error(ctx context.Context, err error, msg string) {
	withContext(ctx, logger.Error()).Err(err).Msg(msg)
}

func Errorf(ctx context.Context, err error, format string, args ...any) {
	withContext(ctx, logger.Error()).Err(err).Msgf(format, args...)
}

// ErrorWithStack logs err together with the current goroutine stack.
func ErrorWithStack(ctx context.Context, err error, msg string) {
	withContext(ctx, logger.Error()).Err(err).Str("stack", string(debug.Stack())).Msg(msg)
}

func Fatal(ctx context.Context, err error, msg string) {
	withContext(ctx, logger.Fatal()).Err(err).Msg(msg)
}

func RequestStart(ctx context.Context, req *http.Request, body []byte) {
	e := withContext(ctx, logger.Info()).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("remote_addr", req.RemoteAddr).
		Int("body_size", len(body))
	if q := req.URL.RawQuery; q != "" {
		e = e.Str("query", q)
	}
	e.Msg("request started")
}

func RequestEnd(ctx context.Context, req *http.Request, status int, elapsed time.Duration, size int) {
	var e *zerolog.Event
	switch {
	case status >= 500:
		e = logger.Error()
	case status >= 400:
		e = logger.Warn()
	default:
		e = logger.Info()
	}
	withContext(ctx, e).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", status).
		Dur("elapsed", elapsed).
		Int("response_size", size).
		Msg("request completed")
}

func PanicLog(ctx context.Context, req *http.Request, recovered any) {
	withContext(ctx, logger.Error()).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("panic", fmt.Sprintf("%v", recovered)).
		Str("stack", string(debug.Stack())).
		Msg("panic recovered")
}
