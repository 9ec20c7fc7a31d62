package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const userIDKey = "user_id"

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	Secret string
	Issuer string
}

// Claims carried by FinGenius access tokens. The user id is the subject.
type Claims struct {
	jwt.RegisteredClaims
}

var errMissingToken = errors.New("missing bearer token")

// JWTAuth verifies an HS256 bearer token and stores its subject as the
// request's user id. Tokens are issued elsewhere.
func JWTAuth(cfg AuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c.Request())
			if err != nil {
				return unauthorized(c, err.Error())
			}
			uid, err := ParseToken(cfg, raw)
			if err != nil {
				return unauthorized(c, "invalid token")
			}
			c.Set(userIDKey, uid)
			return next(c)
		}
	}
}

// ParseToken validates raw and returns its subject.
func ParseToken(cfg AuthConfig, raw string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// IssueToken signs a token for userID. Used by tooling and tests.
func IssueToken(cfg AuthConfig, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}

// UserIDFrom returns the authenticated user id, or "" outside JWTAuth.
func UserIDFrom(c echo.Context) string {
	uid, _ := c.Get(userIDKey).(string)
	return uid
}

func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get(echo.HeaderAuthorization)
	if h == "" {
		// browsers cannot set headers on websocket upgrades
		if t := r.URL.Query().Get("access_token"); t != "" {
			return t, nil
		}
		return "", errMissingToken
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errMissingToken
	}
	return token, nil
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, map[string]interface{}{
		"status":  http.StatusUnauthorized,
		"message": http.StatusText(http.StatusUnauthorized),
		"data":    msg,
	})
}
