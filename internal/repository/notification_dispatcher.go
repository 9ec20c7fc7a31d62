package repository

import (
	"context"
	"fmt"
	"time"

	"FinGenius/internal/domain/models"
	"FinGenius/internal/domain/repository"

	"github.com/google/uuid"
)

// EventPublisher is the subset of pkg/kafka.Producer the dispatcher needs.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaDispatcher hands notifications to the Kafka topic consumed by the
// notification handler. Events are keyed by user id so one user's messages
// stay ordered.
type KafkaDispatcher struct {
	producer EventPublisher
	topic    string
	now      func() time.Time
}

func NewKafkaDispatcher(producer EventPublisher, topic string) *KafkaDispatcher {
	return &KafkaDispatcher{producer: producer, topic: topic, now: time.Now}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, userID, message string, channel models.Channel) error {
	ev := models.NotificationEvent{
		ID:      uuid.NewString(),
		UserID:  userID,
		Channel: channel,
		Message: message,
		SentAt:  d.now().UTC(),
	}
	if err := d.producer.Publish(ctx, d.topic, []byte(userID), ev); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

var _ repository.Dispatcher = (*KafkaDispatcher)(nil)
