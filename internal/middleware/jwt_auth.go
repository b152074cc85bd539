package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const accountIDKey = "account_id"

// TokenParser validates a bearer token and returns the account it belongs to.
type TokenParser interface {
	ParseToken(raw string) (uint, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// account id in the context.
func RequireAuth(p TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed Authorization header")
			}
			id, err := p.ParseToken(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}
			setAccount(c, id)
			return next(c)
		}
	}
}

// OptionalAuth resolves the account when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth(p TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearerToken(c.Request()); ok {
				if id, err := p.ParseToken(raw); err == nil {
					setAccount(c, id)
				}
			}
			return next(c)
		}
	}
}

// AccountID returns the authenticated account, or zero for anonymous requests.
func AccountID(c echo.Context) uint {
	id, _ := c.Get(accountIDKey).(uint)
	return id
}

func setAccount(c echo.Context, id uint) {
	c.Set(accountIDKey, id)
	l := LoggerFrom(c).With().Uint("account_id", id).Logger()
	storeLogger(c, &l)
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}
