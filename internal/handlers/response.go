package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-community/backend/internal/middleware"
	"github.com/anonto42/nano-community/backend/internal/services"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func fail(c echo.Context, status int, code, msg string) error {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	return c.JSON(status, ErrorResponse{
		RequestID: middleware.GetRequestID(c),
		Code:      code,
		Message:   msg,
	})
}

// serviceError renders err with the status and code it maps to. Internal
// errors are logged and never leak their text.
func serviceError(c echo.Context, err error) error {
	status, code, msg := classify(err)
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().Err(err).Int("status", status).Str("code", code).Msg("api error")
		return c.JSON(status, ErrorResponse{RequestID: middleware.GetRequestID(c), Code: code, Message: msg})
	}
	return fail(c, status, code, msg)
}

func classify(err error) (int, string, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code, codeForStatus(he.Code), fmt.Sprint(he.Message)
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest, ErrCodeBadRequest, err.Error()
	case errors.Is(err, services.ErrUnauthenticated),
		errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidSignature):
		return http.StatusUnauthorized, ErrCodeUnauthorized, err.Error()
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, ErrCodeForbidden, err.Error()
	case errors.Is(err, services.ErrAccountNotFound),
		errors.Is(err, services.ErrPostNotFound),
		errors.Is(err, services.ErrCommentNotFound),
		errors.Is(err, services.ErrStoryNotFound):
		return http.StatusNotFound, ErrCodeNotFound, err.Error()
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, ErrCodeConflict, err.Error()
	case errors.Is(err, services.ErrUpstream):
		return http.StatusBadGateway, ErrCodeUpstream, "upstream service failed"
	case errors.Is(err, services.ErrMediaUnavailable), errors.Is(err, services.ErrIdentityUnavailable):
		return http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error()
	}
	return http.StatusInternalServerError, ErrCodeInternal, "internal server error"
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrCodeBadRequest
	case http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case http.StatusForbidden:
		return ErrCodeForbidden
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusMethodNotAllowed:
		return ErrCodeMethodNotAllowed
	case http.StatusConflict:
		return ErrCodeConflict
	case http.StatusRequestEntityTooLarge:
		return ErrCodeTooLarge
	case http.StatusTooManyRequests:
		return ErrCodeRateLimited
	case http.StatusBadGateway:
		return ErrCodeUpstream
	case http.StatusServiceUnavailable:
		return ErrCodeUnavailable
	}
	if status >= 500 {
		return ErrCodeInternal
	}
	return ErrCodeBadRequest
}

// HTTPErrorHandler renders errors that escape handlers and framework errors
// (unknown route, wrong method, body limit) in the same envelope.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if rerr := serviceError(c, err); rerr != nil {
		middleware.LoggerFrom(c).Error().Err(rerr).Msg("failed to write error response")
	}
}

// bind decodes and validates a request body.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func uintParam(c echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return uint(v), nil
}

func intQuery(c echo.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.QueryParam(name)); err == nil {
		return v
	}
	return def
}

// Auth carries the route-level middleware handlers attach.
type Auth struct {
	Required echo.MiddlewareFunc
	Optional echo.MiddlewareFunc
	Limit    echo.MiddlewareFunc
}

func (a Auth) required() []echo.MiddlewareFunc { return compact(a.Required) }
func (a Auth) optional() []echo.MiddlewareFunc { return compact(a.Optional) }

// write is required auth followed by the per-account rate limit.
func (a Auth) write() []echo.MiddlewareFunc { return compact(a.Required, a.Limit) }

func compact(ms ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(ms))
	for _, m := range ms {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
