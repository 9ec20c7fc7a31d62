package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"FinGenius/pkg/logger"
)

// ConsumerHook defines lifecycle hooks around message handling.
// Returning a non-nil error from BeforeHandle skips the handler and triggers
// error processing (OnError, DLQ and offset commit).
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error)
	AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
	OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
}

// NoopHook does nothing.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	return ctx, km, data, nil
}

func (NoopHook) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {}

func (NoopHook) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {}

// HookFuncs implements ConsumerHook from plain functions; nil functions are no-ops.
type HookFuncs struct {
	Before func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error)
	After  func(context.Context, string, kafka.Message, []byte, error)
	Err    func(context.Context, string, kafka.Message, []byte, error)
}

func (h HookFuncs) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	if h.Before == nil {
		return ctx, km, data, nil
	}
	return h.Before(ctx, topic, km, data)
}

func (h HookFuncs) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	if h.After != nil {
		h.After(ctx, topic, km, data, err)
	}
}

func (h HookFuncs) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	if h.Err != nil {
		h.Err(ctx, topic, km, data, err)
	}
}

type ctxKey string

const (
	ctxStartTime ctxKey = "kafka_hook_start_time"
	ctxTraceID   ctxKey = "kafka_hook_trace_id"

	traceHeader = "trace_id"
)

// WithTraceID attaches a correlation id that Publish forwards as a header.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxTraceID, traceID)
}

// TraceIDFromContext returns the correlation id, if any.
func TraceIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxTraceID).(string)
	return v
}

// ExtractTraceID reads the correlation id header.
func ExtractTraceID(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == traceHeader && len(h.Value) > 0 {
			return string(h.Value)
		}
	}
	return ""
}

func traceHeaders(ctx context.Context) []kafka.Header {
	if id := TraceIDFromContext(ctx); id != "" {
		return []kafka.Header{{Key: traceHeader, Value: []byte(id)}}
	}
	return nil
}

// TraceHook restores the producer's trace id into the handler context and
// logs slow or failed handling.
func TraceHook(l *logger.Logger, slow time.Duration) ConsumerHook {
	return HookFuncs{
		Before: func(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			ctx = WithTraceID(ctx, ExtractTraceID(km))
			return context.WithValue(ctx, ctxStartTime, time.Now()), km, data, nil
		},
		After: func(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
			start, ok := ctx.Value(ctxStartTime).(time.Time)
			if !ok || err != nil {
				return
			}
			if d := time.Since(start); slow > 0 && d > slow {
				l.Warn("slow kafka handler",
					logger.String("topic", topic),
					logger.String("trace_id", TraceIDFromContext(ctx)),
					logger.Duration("elapsed_ms", d))
			}
		},
		Err: func(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
			l.Warn("kafka handler attempt failed",
				logger.String("topic", topic),
				logger.String("trace_id", TraceIDFromContext(ctx)),
				logger.Int64("offset", km.Offset),
				logger.Error(err))
		},
	}
}
