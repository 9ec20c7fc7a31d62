package models

import "time"

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelInApp Channel = "in_app"
)

func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelSMS || c == ChannelInApp
}

// NotificationEvent is the message carried from the pipeline to the senders.
type NotificationEvent struct {
	ID      string    `json:"id"`
	UserID  string    `json:"user_id"`
	Channel Channel   `json:"channel"`
	Subject string    `json:"subject,omitempty"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

type User struct {
	ID            string
	Email         string
	Phone         string
	RiskTolerance string
	DailySummary  bool
}
