package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

type CORSConfig struct {
	// AllowOrigins entries are exact origins, "*", or a subdomain wildcard
	// such as "https://*.fingenius.app".
	AllowOrigins  []string
	AllowMethods  []string
	AllowHeaders  []string
	ExposeHeaders []string
	MaxAge        int // seconds a preflight may be cached
	// SkipPrefixes are paths called server to server, such as webhooks.
	SkipPrefixes []string
}

// CORS answers preflights and decorates browser requests from allowed
// origins. Websocket upgrades pass through untouched; the hub's upgrader
// owns the origin decision for them.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")
	expose := strings.Join(cfg.ExposeHeaders, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if skipCORS(req, cfg.SkipPrefixes) {
				return next(c)
			}

			res := c.Response().Header()
			res.Add(echo.HeaderVary, echo.HeaderOrigin)

			origin := req.Header.Get(echo.HeaderOrigin)
			preflight := req.Method == http.MethodOptions &&
				req.Header.Get(echo.HeaderAccessControlRequestMethod) != ""

			if origin == "" || !originAllowed(cfg.AllowOrigins, origin) {
				if preflight {
					return c.NoContent(http.StatusForbidden)
				}
				return next(c)
			}
			res.Set(echo.HeaderAccessControlAllowOrigin, origin)

			if !preflight {
				if expose != "" {
					res.Set(echo.HeaderAccessControlExposeHeaders, expose)
				}
				return next(c)
			}

			res.Add(echo.HeaderVary, echo.HeaderAccessControlRequestMethod)
			res.Add(echo.HeaderVary, echo.HeaderAccessControlRequestHeaders)
			if methods != "" {
				res.Set(echo.HeaderAccessControlAllowMethods, methods)
			}
			if headers != "" {
				res.Set(echo.HeaderAccessControlAllowHeaders, headers)
			}
			if cfg.MaxAge > 0 {
				res.Set(echo.HeaderAccessControlMaxAge, strconv.Itoa(cfg.MaxAge))
			}
			return c.NoContent(http.StatusNoContent)
		}
	}
}

func skipCORS(r *http.Request, prefixes []string) bool {
	if strings.EqualFold(r.Header.Get(echo.HeaderUpgrade), "websocket") {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(r.URL.Path, p) {
			return true
		}
	}
	return false
}

func originAllowed(allowed []string, origin string) bool {
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
		// https://*.example.com matches https://app.example.com only
		if i := strings.Index(o, "://*."); i >= 0 {
			scheme, suffix := o[:i+3], o[i+4:]
			rest, ok := strings.CutPrefix(origin, scheme)
			if ok && strings.HasSuffix(rest, suffix) && len(rest) > len(suffix) {
				host := rest[:len(rest)-len(suffix)]
				if !strings.Contains(host, "/") {
					return true
				}
			}
		}
	}
	return false
}
