package notify

import (
	"context"
	"errors"
	"fmt"

	"FinGenius/internal/domain/models"
)

// Publisher is satisfied by pkg/amqp.Client.
type Publisher interface {
	PublishJSON(ctx context.Context, v interface{}) error
}

// SMSMessage is what the SMS gateway consumes from the queue.
type SMSMessage struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	To     string `json:"to"`
	Body   string `json:"body"`
}

// SMSSender hands text messages to the gateway over RabbitMQ.
type SMSSender struct {
	pub Publisher
}

func NewSMSSender(pub Publisher) *SMSSender { return &SMSSender{pub: pub} }

func (s *SMSSender) Channel() models.Channel { return models.ChannelSMS }

func (s *SMSSender) Send(ctx context.Context, u *models.User, ev models.NotificationEvent) error {
	if u.Phone == "" {
		return errors.New("user has no phone number")
	}
	msg := SMSMessage{ID: ev.ID, UserID: u.ID, To: u.Phone, Body: ev.Message}
	if err := s.pub.PublishJSON(ctx, msg); err != nil {
		return fmt.Errorf("enqueue sms: %w", err)
	}
	return nil
}
