package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type syncPayload struct {
	UserID string `json:"user_id"`
	Force  bool   `json:"force"`
}

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name    string
		in      interface{}
		want    string
		wantErr bool
	}{
		{"pointer", &syncPayload{UserID: "u1"}, "u1", false},
		{"value", syncPayload{UserID: "u2"}, "u2", false},
		{"map", map[string]interface{}{"user_id": "u3", "force": true}, "u3", false},
		{"raw", json.RawMessage(`{"user_id":"u4"}`), "u4", false},
		{"bad raw", json.RawMessage(`{`), "", true},
		{"unsupported", 42, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePayload[syncPayload](tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.UserID != tt.want {
				t.Fatalf("user id = %q, want %q", got.UserID, tt.want)
			}
		})
	}
}

func TestJobFunc(t *testing.T) {
	boom := errors.New("boom")
	j := JobFunc{JobName: "sync", JobType: "sync_user_accounts", Fn: func(context.Context, interface{}) error { return boom }}
	var _ Job = j
	if j.Name() != "sync" || j.Type() != "sync_user_accounts" {
		t.Fatalf("unexpected identity %s/%s", j.Name(), j.Type())
	}
	if err := j.Handle(context.Background(), nil); !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
}
