package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey      = "request_id"
	loggerKey         = "logger"
	RequestIDHeader   = "X-Request-ID"
	maxQueryLogLength = 2048
)

// RequestID reuses the caller's X-Request-ID or generates one, and echoes it back.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(RequestIDHeader)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set(requestIDKey, rid)
			c.Response().Header().Set(RequestIDHeader, rid)
			return next(c)
		}
	}
}

// Logger attaches a request-scoped zerolog logger to the echo context and to
// the request context, then writes one access line when the handler returns.
// 5xx logs at error, 4xx at warn, everything else at info.
func Logger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			l := log.With().
				Str("request_id", GetRequestID(c)).
				Str("method", req.Method).
				Str("path", routePath(c)).
				Str("remote_ip", c.RealIP()).
				Str("user_agent", req.UserAgent()).
				Str("query", truncate(req.URL.RawQuery, maxQueryLogLength)).
				Int64("bytes_in", req.ContentLength).
				Logger()
			storeLogger(c, &l)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			res := c.Response()
			ev := LoggerFrom(c).With().
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Int64("bytes_out", res.Size).
				Logger()
			switch {
			case res.Status >= 500:
				e := ev.Error()
				if err != nil {
					e = e.Err(err)
				}
				e.Msg("request")
			case res.Status >= 400:
				ev.Warn().Msg("request")
			default:
				ev.Info().Msg("request")
			}
			return nil
		}
	}
}

// Recovery turns a panic into a 500 envelope and logs the stack.
func Recovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				LoggerFrom(c).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")
				if c.Response().Committed {
					err = fmt.Errorf("panic: %v", rec)
					return
				}
				err = c.JSON(http.StatusInternalServerError, map[string]string{
					"request_id": GetRequestID(c),
					"code":       "internal_error",
					"message":    "internal server error",
				})
			}()
			return next(c)
		}
	}
}

// LoggerFrom returns the request-scoped logger, or the global one.
func LoggerFrom(c echo.Context) *zerolog.Logger {
	if l, ok := c.Get(loggerKey).(*zerolog.Logger); ok {
		return l
	}
	l := log.Logger
	return &l
}

// GetRequestID returns the id assigned by RequestID, if any.
func GetRequestID(c echo.Context) string {
	if rid, ok := c.Get(requestIDKey).(string); ok {
		return rid
	}
	return c.Response().Header().Get(RequestIDHeader)
}

func storeLogger(c echo.Context, l *zerolog.Logger) {
	c.Set(loggerKey, l)
	req := c.Request()
	c.SetRequest(req.WithContext(l.WithContext(req.Context())))
}

// routePath is the registered route template, or the raw path when nothing matched.
func routePath(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return c.Request().URL.Path
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
