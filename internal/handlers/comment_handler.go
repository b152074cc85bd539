package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-community/backend/internal/middleware"
	"github.com/anonto42/nano-community/backend/internal/models"
)

type CommentService interface {
	Create(ctx context.Context, authorID uint, postID string, req models.CreateCommentRequest) (*models.Comment, error)
	List(ctx context.Context, postID string) ([]models.Comment, error)
	Delete(ctx context.Context, actorID, commentID uint) error
}

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	comments CommentService
}

func NewCommentHandler(comments CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group, a Auth) {
	g.POST("/posts/:postId/comments", h.CreateComment, a.write()...)
	g.GET("/posts/:postId/comments", h.GetCommentsByPostID, a.optional()...)
	g.DELETE("/comments/:commentId", h.DeleteComment, a.write()...)
}

// CreateComment creates a comment, or a reply when parent_id is set
func (h *CommentHandler) CreateComment(c echo.Context) error {
	var req models.CreateCommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	comment, err := h.comments.Create(c.Request().Context(), middleware.AccountID(c), c.Param("postId"), req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, comment)
}

// GetCommentsByPostID lists live comments oldest first
func (h *CommentHandler) GetCommentsByPostID(c echo.Context) error {
	comments, err := h.comments.List(c.Request().Context(), c.Param("postId"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, comments)
}

func (h *CommentHandler) DeleteComment(c echo.Context) error {
	id, err := uintParam(c, "commentId")
	if err != nil {
		return err
	}
	if err := h.comments.Delete(c.Request().Context(), middleware.AccountID(c), id); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
