package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"FinGenius/internal/domain/models"
	domrepo "FinGenius/internal/domain/repository"
	"FinGenius/internal/services/notify"
	pkgkafka "FinGenius/pkg/kafka"
)

// Deliverer sends an already-built notification event.
type Deliverer interface {
	Deliver(ctx context.Context, ev models.NotificationEvent) error
}

// NotificationHandler consumes notification events from Kafka and hands them
// to the channel senders.
type NotificationHandler struct {
	topic   string
	router  Deliverer
	metrics domrepo.Metrics
}

func NewNotificationHandler(topic string, router Deliverer, metrics domrepo.Metrics) *NotificationHandler {
	return &NotificationHandler{topic: topic, router: router, metrics: metrics}
}

func (h *NotificationHandler) Topic() string { return h.topic }

// Handle returns an error only for failures worth retrying. Events for
// unknown users or users without an open in-app session are dropped.
func (h *NotificationHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.NotificationEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode notification event: %w", err)
	}
	if ev.UserID == "" || ev.Message == "" {
		h.metrics.RecordError("consumer_invalid_event")
		return fmt.Errorf("notification event %q missing user or message", ev.ID)
	}

	err := h.router.Deliver(ctx, ev)
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, notify.ErrNotConnected) {
		return nil
	}
	if err != nil {
		h.metrics.RecordError("consumer_deliver")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*NotificationHandler)(nil)
