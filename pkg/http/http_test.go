package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type forecastRequest struct {
	Description string `json:"description" validate:"required"`
	Steps       int    `json:"steps" default:"30" validate:"gte=1,lte=365"`
}

func newContext(method, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestReadAndValidateRequest(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantSteps int
		wantCode  string
		wantField string
	}{
		{name: "defaults applied", body: `{"description":"coffee"}`, wantSteps: 30},
		{name: "explicit value kept", body: `{"description":"coffee","steps":7}`, wantSteps: 7},
		{name: "missing required", body: `{"steps":7}`, wantCode: "ERR_REQUIRED", wantField: "description"},
		{name: "out of range", body: `{"description":"x","steps":400}`, wantCode: "ERR_LTE", wantField: "steps"},
		{name: "malformed json", body: `{"description":`, wantCode: "ERR_UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newContext(http.MethodPost, tt.body)
			var req forecastRequest
			res := ReadAndValidateRequest(c, &req)

			if tt.wantCode == "" {
				if res != nil {
					t.Fatalf("unexpected validation result: %v", res)
				}
				if req.Steps != tt.wantSteps {
					t.Errorf("steps = %d, want %d", req.Steps, tt.wantSteps)
				}
				return
			}

			errs, ok := res.([]ValidationError)
			if !ok || len(errs) == 0 {
				t.Fatalf("expected validation errors, got %v", res)
			}
			if errs[0].Code != tt.wantCode {
				t.Errorf("code = %s, want %s", errs[0].Code, tt.wantCode)
			}
			if tt.wantField != "" && errs[0].Field != tt.wantField {
				t.Errorf("field = %s, want %s", errs[0].Field, tt.wantField)
			}
		})
	}
}

func TestAppErrorResponseUsesErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFoundError("action not found"), http.StatusNotFound},
		{"conflict", ConflictError("model not trained"), http.StatusConflict},
		{"upstream", BadGatewayError("provider unavailable"), http.StatusBadGateway},
		{"wrapped", errors.Join(errors.New("ctx"), ForbiddenError("not yours")), http.StatusForbidden},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "")
			if err := AppErrorResponse(c, tt.err); err != nil {
				t.Fatal(err)
			}
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			var body APIResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Status != tt.want {
				t.Errorf("body status = %d, want %d", body.Status, tt.want)
			}
		})
	}
}

func TestClientSendAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			if r.Header.Get("Content-Type") != "application/json" {
				w.WriteHeader(http.StatusUnsupportedMediaType)
				return
			}
			var in map[string]string
			_ = json.NewDecoder(r.Body).Decode(&in)
			_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["token"], "q": r.URL.Query().Get("q")})
		case "/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("try later"))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c := NewClient()

	var out map[string]string
	err := c.SendAndParse(context.Background(), &RequestOptions{
		Method:      MethodPost,
		URL:         srv.URL + "/ok",
		QueryParams: map[string][]string{"q": {"1"}},
		Body:        map[string]string{"token": "public-abc"},
	}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if out["echo"] != "public-abc" || out["q"] != "1" {
		t.Errorf("unexpected response %v", out)
	}

	tests := []struct {
		path      string
		temporary bool
	}{
		{"/busy", true},
		{"/bad", false},
	}
	for _, tt := range tests {
		err := c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL + tt.path}, nil)
		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("%s: expected StatusError, got %v", tt.path, err)
		}
		if se.Temporary() != tt.temporary {
			t.Errorf("%s: temporary = %v, want %v", tt.path, se.Temporary(), tt.temporary)
		}
	}
}

func TestNewServerMountsRouteSets(t *testing.T) {
	ping := RoutesFunc(func(e *echo.Echo) {
		e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	})

	tests := []struct {
		name        string
		metricsPath string
		path        string
		want        int
	}{
		{"handler route", "/metrics", "/ping", http.StatusOK},
		{"metrics mounted", "/metrics", "/metrics", http.StatusOK},
		{"metrics disabled", "", "/metrics", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(Handlers{ping, nil}, WithMetricsPath(tt.metricsPath))
			rec := httptest.NewRecorder()
			s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
			}
		})
	}
}

func TestNewServerSkipsCORSForWebhooks(t *testing.T) {
	routes := RoutesFunc(func(e *echo.Echo) {
		ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
		e.POST(WebhookPrefix+"aggregator", ok)
		e.POST("/api/v1/actions", ok)
	})
	s := NewServer(routes, WithCORSOrigins([]string{"http://localhost:3000"}))

	tests := []struct {
		path       string
		wantOrigin string
	}{
		{WebhookPrefix + "aggregator", ""},
		{"/api/v1/actions", "http://localhost:3000"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, tt.path, nil)
		req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
		rec := httptest.NewRecorder()
		s.Echo().ServeHTTP(rec, req)
		if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != tt.wantOrigin {
			t.Errorf("%s: allow-origin = %q, want %q", tt.path, got, tt.wantOrigin)
		}
	}
}
