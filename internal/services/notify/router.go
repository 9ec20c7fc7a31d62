package notify

import (
	"context"
	"fmt"
	"time"

	"FinGenius/internal/domain/models"
	"FinGenius/internal/domain/repository"
	applogger "FinGenius/pkg/logger"

	"github.com/google/uuid"
)

// Sender delivers one notification over one channel.
type Sender interface {
	Channel() models.Channel
	Send(ctx context.Context, u *models.User, ev models.NotificationEvent) error
}

// UserLookup resolves contact details for a user id.
type UserLookup interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// Router picks a Sender by channel. It is also a Dispatcher, which is how
// notifications are delivered inline when Kafka is disabled.
type Router struct {
	senders        map[models.Channel]Sender
	users          UserLookup
	defaultChannel models.Channel
	metrics        repository.Metrics
	l              *applogger.Logger
}

func NewRouter(users UserLookup, defaultChannel models.Channel, metrics repository.Metrics, l *applogger.Logger, senders ...Sender) *Router {
	if l == nil {
		l = applogger.NewNop()
	}
	r := &Router{
		senders:        make(map[models.Channel]Sender, len(senders)),
		users:          users,
		defaultChannel: defaultChannel,
		metrics:        metrics,
		l:              l.With(applogger.String("component", "notify")),
	}
	for _, s := range senders {
		r.senders[s.Channel()] = s
	}
	return r
}

func (r *Router) DefaultChannel() models.Channel { return r.defaultChannel }

// Dispatch builds an event and delivers it immediately.
func (r *Router) Dispatch(ctx context.Context, userID, message string, channel models.Channel) error {
	return r.Deliver(ctx, models.NotificationEvent{
		ID:      uuid.NewString(),
		UserID:  userID,
		Channel: channel,
		Message: message,
		SentAt:  time.Now().UTC(),
	})
}

// Deliver sends ev through the sender registered for its channel. An empty
// channel means the default one.
func (r *Router) Deliver(ctx context.Context, ev models.NotificationEvent) error {
	if ev.Channel == "" {
		ev.Channel = r.defaultChannel
	}
	s, ok := r.senders[ev.Channel]
	if !ok {
		r.record(ev.Channel, "unsupported")
		return fmt.Errorf("no sender for channel %q", ev.Channel)
	}

	u, err := r.users.GetUser(ctx, ev.UserID)
	if err != nil {
		r.record(ev.Channel, "error")
		return fmt.Errorf("lookup user %s: %w", ev.UserID, err)
	}
	if ev.Subject == "" {
		ev.Subject = DefaultSubject
	}

	if err := s.Send(ctx, u, ev); err != nil {
		r.record(ev.Channel, "error")
		r.l.Warn("notification delivery failed",
			applogger.UserID(ev.UserID),
			applogger.String("channel", string(ev.Channel)),
			applogger.Error(err),
		)
		return fmt.Errorf("send %s notification: %w", ev.Channel, err)
	}

	r.record(ev.Channel, "sent")
	r.l.Info("notification sent",
		applogger.UserID(ev.UserID),
		applogger.String("channel", string(ev.Channel)),
		applogger.String("event_id", ev.ID),
	)
	return nil
}

func (r *Router) record(ch models.Channel, result string) {
	if r.metrics != nil {
		r.metrics.RecordNotification(string(ch), result)
	}
}

const DefaultSubject = "FinGenius notification"

var _ repository.Dispatcher = (*Router)(nil)
