package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-community/backend/internal/middleware"
	"github.com/anonto42/nano-community/backend/internal/services"
)

type NotificationService interface {
	Inbox(ctx context.Context, recipientID uint) (*services.Inbox, error)
	MarkRead(ctx context.Context, recipientID uint) error
}

// NotificationHandler serves the inbox and the read watermark
type NotificationHandler struct {
	notifications NotificationService
}

func NewNotificationHandler(notifications NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group, a Auth) {
	g.GET("/notifications", h.GetNotifications, a.required()...)
	g.POST("/notifications", h.MarkAllRead, a.write()...)
}

// GetNotifications returns the latest likes, comments and replies with the unread count
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	inbox, err := h.notifications.Inbox(c.Request().Context(), middleware.AccountID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, inbox)
}

// MarkAllRead moves the caller's read watermark to now
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	if err := h.notifications.MarkRead(c.Request().Context(), middleware.AccountID(c)); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
