package config

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SetupMiddleware installs the security, CORS, compression and body-limit
// middleware configured by cfg.
func SetupMiddleware(e *echo.Echo, cfg Config) {
	hsts := 0
	if cfg.Security.EnableHSTS {
		hsts = int(cfg.Security.HSTSMaxAge.Seconds())
	}
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "0",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         hsts,
		ReferrerPolicy:     "no-referrer",
	}))

	origins := cfg.CORS.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  origins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "Retry-After"},
	}))

	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().Header.Get(echo.HeaderUpgrade) != ""
		},
	}))
}
