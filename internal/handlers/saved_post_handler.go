package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-community/backend/internal/middleware"
)

// SavedPostHandler handles bookmark toggles
type SavedPostHandler struct {
	interactions InteractionService
}

func NewSavedPostHandler(interactions InteractionService) *SavedPostHandler {
	return &SavedPostHandler{interactions: interactions}
}

func (h *SavedPostHandler) RegisterSavedPostRoutes(g *echo.Group, a Auth) {
	g.POST("/posts/:postId/save", h.TogglePostSave, a.write()...)
	g.GET("/posts/:postId/save", h.CheckPostSave, a.optional()...)
}

func (h *SavedPostHandler) TogglePostSave(c echo.Context) error {
	state, err := h.interactions.TogglePostSave(c.Request().Context(), middleware.AccountID(c), c.Param("postId"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, state)
}

func (h *SavedPostHandler) CheckPostSave(c echo.Context) error {
	saved := h.interactions.IsPostSaved(c.Request().Context(), middleware.AccountID(c), c.Param("postId"))
	return c.JSON(http.StatusOK, echo.Map{"saved": saved})
}
