package api

import (
	"context"
	"net/http"
	"time"

	xhttp "FinGenius/pkg/http"
	"FinGenius/pkg/http/middleware"
	xlogger "FinGenius/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SessionServer upgrades a request into an in-app notification session.
type SessionServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID string) error
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// Router registers every API route on the echo instance.
type Router struct {
	logger     *xlogger.Logger
	auth       middleware.AuthConfig
	automation *AutomationHandler
	accounts   *AccountsHandler
	insights   *InsightsHandler
	sessions   SessionServer
	checks     map[string]HealthCheck
}

func NewRouter(
	logger *xlogger.Logger,
	auth middleware.AuthConfig,
	automation *AutomationHandler,
	accounts *AccountsHandler,
	insights *InsightsHandler,
	sessions SessionServer,
	checks map[string]HealthCheck,
) *Router {
	return &Router{
		logger:     logger,
		auth:       auth,
		automation: automation,
		accounts:   accounts,
		insights:   insights,
		sessions:   sessions,
		checks:     checks,
	}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", r.Health)
	e.POST(xhttp.WebhookPrefix+"aggregator", r.accounts.Webhook)

	g := e.Group("/api/v1", middleware.JWTAuth(r.auth))
	r.automation.register(g)
	r.accounts.register(g)
	r.insights.register(g)
	g.GET("/notifications/ws", r.Notifications)
}

// Notifications holds the connection open until the client leaves.
func (r *Router) Notifications(c echo.Context) error {
	uid := middleware.UserIDFrom(c)
	if err := r.sessions.ServeWS(c.Response(), c.Request(), uid); err != nil {
		r.logger.Warn("websocket upgrade failed", xlogger.UserID(uid), xlogger.Error(err))
	}
	return nil
}

func (r *Router) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{}
	healthy := true
	for name, check := range r.checks {
		if err := check(ctx); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	if !healthy {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, status)
	}
	return xhttp.SuccessResponse(c, status)
}

var _ xhttp.Handler = (*Router)(nil)
