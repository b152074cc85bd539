package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-community/backend/internal/billing/kiwify"
)

const maxWebhookBody = 1 << 20

type BillingService interface {
	HandleWebhook(ctx context.Context, body []byte, signature string) (kiwify.Action, error)
}

// WebhookHandler receives payment provider callbacks
type WebhookHandler struct {
	billing BillingService
}

func NewWebhookHandler(billing BillingService) *WebhookHandler {
	return &WebhookHandler{billing: billing}
}

func (h *WebhookHandler) RegisterWebhookRoutes(g *echo.Group) {
	g.POST("/webhooks/kiwify", h.Kiwify)
}

// Kiwify verifies the ?signature= HMAC over the raw body before applying the event
func (h *WebhookHandler) Kiwify(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}
	action, err := h.billing.HandleWebhook(c.Request().Context(), body, c.QueryParam("signature"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true, "action": action.String()})
}
