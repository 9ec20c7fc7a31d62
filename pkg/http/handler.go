package http

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler mounts one route set on the server's echo instance.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// RoutesFunc adapts a plain function to Handler.
type RoutesFunc func(e *echo.Echo)

func (f RoutesFunc) RegisterRoutes(e *echo.Echo) { f(e) }

// Handlers mounts its members in order, skipping nil entries.
type Handlers []Handler

func (hs Handlers) RegisterRoutes(e *echo.Echo) {
	for _, h := range hs {
		if h != nil {
			h.RegisterRoutes(e)
		}
	}
}

// metricsRoutes serves the Prometheus registry at path. Empty disables it.
func metricsRoutes(path string) Handler {
	if path == "" {
		return nil
	}
	return RoutesFunc(func(e *echo.Echo) {
		e.GET(path, echo.WrapHandler(promhttp.Handler()))
	})
}
