package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-community/backend/internal/middleware"
	"github.com/anonto42/nano-community/backend/internal/services"
)

// InteractionService toggles likes and saves.
type InteractionService interface {
	TogglePostLike(ctx context.Context, actorID uint, postID string) (*services.LikeState, error)
	ToggleCommentLike(ctx context.Context, actorID uint, commentID uint) (*services.LikeState, error)
	TogglePostSave(ctx context.Context, actorID uint, postID string) (*services.SaveState, error)
	IsPostLiked(ctx context.Context, actorID uint, postID string) bool
	IsPostSaved(ctx context.Context, actorID uint, postID string) bool
}

// LikeHandler handles like toggles on posts and comments
type LikeHandler struct {
	interactions InteractionService
}

func NewLikeHandler(interactions InteractionService) *LikeHandler {
	return &LikeHandler{interactions: interactions}
}

func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group, a Auth) {
	g.POST("/posts/:postId/like", h.TogglePostLike, a.write()...)
	g.GET("/posts/:postId/like", h.CheckPostLike, a.optional()...)
	g.POST("/comments/:commentId/like", h.ToggleCommentLike, a.write()...)
}

func (h *LikeHandler) TogglePostLike(c echo.Context) error {
	state, err := h.interactions.TogglePostLike(c.Request().Context(), middleware.AccountID(c), c.Param("postId"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, state)
}

// CheckPostLike reports whether the caller likes the post. Anonymous callers never do.
func (h *LikeHandler) CheckPostLike(c echo.Context) error {
	liked := h.interactions.IsPostLiked(c.Request().Context(), middleware.AccountID(c), c.Param("postId"))
	return c.JSON(http.StatusOK, echo.Map{"liked": liked})
}

func (h *LikeHandler) ToggleCommentLike(c echo.Context) error {
	id, err := uintParam(c, "commentId")
	if err != nil {
		return err
	}
	state, err := h.interactions.ToggleCommentLike(c.Request().Context(), middleware.AccountID(c), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, state)
}
