package middleware

import (
	"time"

	applogger "FinGenius/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs every request at debug level and failed ones at warn.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)

			fields := []applogger.Field{
				applogger.String("method", req.Method),
				applogger.String("route", routeOf(c)),
				applogger.Int("status", c.Response().Status),
				applogger.Duration("duration_ms", time.Since(start)),
				applogger.String("remote_ip", c.RealIP()),
			}
			if uid := UserIDFrom(c); uid != "" {
				fields = append(fields, applogger.UserID(uid))
			}
			if err != nil {
				fields = append(fields, applogger.Error(err))
				l.Warn("http request error", fields...)
				return err
			}
			l.Debug("http request", fields...)
			return nil
		}
	}
}

func routeOf(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return c.Request().URL.Path
}
