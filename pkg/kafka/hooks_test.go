package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"

	"FinGenius/pkg/logger"
)

func TestTraceIDRoundTrip(t *testing.T) {
	ctx := WithTraceID(context.Background(), "batch-42")
	headers := traceHeaders(ctx)
	if len(headers) != 1 {
		t.Fatalf("expected one header, got %d", len(headers))
	}

	hook := TraceHook(logger.NewNop(), 0)
	hctx, _, _, err := hook.BeforeHandle(context.Background(), "t", kafka.Message{Headers: headers}, nil)
	if err != nil {
		t.Fatalf("before: %v", err)
	}
	if got := TraceIDFromContext(hctx); got != "batch-42" {
		t.Fatalf("trace id = %q", got)
	}
	hook.AfterHandle(hctx, "t", kafka.Message{}, nil, nil)

	if traceHeaders(context.Background()) != nil {
		t.Fatal("no trace id must produce no headers")
	}
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt <= 6; attempt++ {
		d := backoffWithJitter(0, 0, attempt)
		if d <= 0 {
			t.Fatalf("attempt %d produced non-positive backoff %v", attempt, d)
		}
	}
}
