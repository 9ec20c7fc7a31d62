package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"FinGenius/internal/domain/models"
	"FinGenius/pkg/metrics"

	"github.com/gorilla/websocket"
)

type fakeUsers map[string]*models.User

func (f fakeUsers) GetUser(_ context.Context, id string) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, models.ErrNotFound
}

type recordingSender struct {
	ch   models.Channel
	got  []models.NotificationEvent
	fail error
}

func (s *recordingSender) Channel() models.Channel { return s.ch }

func (s *recordingSender) Send(_ context.Context, _ *models.User, ev models.NotificationEvent) error {
	s.got = append(s.got, ev)
	return s.fail
}

type fakePublisher struct{ msgs []interface{} }

func (p *fakePublisher) PublishJSON(_ context.Context, v interface{}) error {
	p.msgs = append(p.msgs, v)
	return nil
}

func TestRouterDelivers(t *testing.T) {
	users := fakeUsers{"u1": {ID: "u1", Email: "u1@example.com", Phone: "+15550001"}}
	email := &recordingSender{ch: models.ChannelEmail}
	sms := &recordingSender{ch: models.ChannelSMS, fail: errors.New("gateway down")}
	r := NewRouter(users, models.ChannelEmail, metrics.Nop{}, nil, email, sms)

	tests := []struct {
		name    string
		userID  string
		channel models.Channel
		wantErr error
		anyErr  bool
	}{
		{name: "default channel", userID: "u1", channel: ""},
		{name: "explicit email", userID: "u1", channel: models.ChannelEmail},
		{name: "sender failure", userID: "u1", channel: models.ChannelSMS, anyErr: true},
		{name: "no sender", userID: "u1", channel: models.ChannelInApp, anyErr: true},
		{name: "unknown user", userID: "ghost", channel: models.ChannelEmail, wantErr: models.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Dispatch(context.Background(), tt.userID, "hi", tt.channel)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
			case tt.anyErr:
				if err == nil {
					t.Fatal("expected error")
				}
			case err != nil:
				t.Fatal(err)
			}
		})
	}

	if len(email.got) != 2 {
		t.Fatalf("email sender got %d events, want 2", len(email.got))
	}
	if email.got[0].Channel != models.ChannelEmail || email.got[0].Subject != DefaultSubject || email.got[0].ID == "" {
		t.Errorf("unexpected event %+v", email.got[0])
	}
}

func TestSMSSender(t *testing.T) {
	pub := &fakePublisher{}
	s := NewSMSSender(pub)

	ev := models.NotificationEvent{ID: "e1", Message: PendingApprovalMessage(3)}
	if err := s.Send(context.Background(), &models.User{ID: "u1", Phone: "+15550001"}, ev); err != nil {
		t.Fatal(err)
	}
	msg, ok := pub.msgs[0].(SMSMessage)
	if !ok || msg.To != "+15550001" || !strings.Contains(msg.Body, "3 new financial suggestions") {
		t.Errorf("unexpected message %+v", pub.msgs[0])
	}

	if err := s.Send(context.Background(), &models.User{ID: "u2"}, ev); err == nil {
		t.Error("expected error for user without phone")
	}
}

func TestEmailSenderFallsBackToLog(t *testing.T) {
	s := NewEmailSender(MailgunConfig{Domain: "mg.example.com"}, nil)
	if _, ok := s.(*LogSender); !ok {
		t.Fatalf("expected LogSender for incomplete config, got %T", s)
	}
	if s.Channel() != models.ChannelEmail {
		t.Errorf("channel = %s", s.Channel())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubPushesToUserSessions(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r, r.URL.Query().Get("user"))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=u1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return hub.Connections("u1") == 1 })

	if err := hub.Send(context.Background(), &models.User{ID: "u2"}, models.NotificationEvent{}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}

	ev := models.NotificationEvent{ID: "e1", UserID: "u1", Channel: models.ChannelInApp, Message: "hello"}
	if err := hub.Send(context.Background(), &models.User{ID: "u1"}, ev); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var got models.NotificationEvent
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "e1" || got.Message != "hello" {
		t.Errorf("unexpected event %+v", got)
	}

	conn.Close()
	waitFor(t, func() bool { return hub.Connections("u1") == 0 })
}
