package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-community/backend/internal/middleware"
	"github.com/anonto42/nano-community/backend/internal/models"
	"github.com/anonto42/nano-community/backend/internal/services"
)

type PostService interface {
	Create(ctx context.Context, authorID uint, req models.CreatePostRequest) (*models.Post, error)
	Get(ctx context.Context, viewerID uint, postID string) (*services.FeedPost, error)
	ByAuthor(ctx context.Context, viewerID, authorID uint, page, limit int) ([]services.FeedPost, error)
	TogglePin(ctx context.Context, actorID uint, postID string) (bool, error)
	Delete(ctx context.Context, actorID uint, postID string) error
}

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	posts PostService
}

func NewPostHandler(posts PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group, a Auth) {
	g.POST("/posts", h.CreatePost, a.write()...)
	g.GET("/posts/:postId", h.GetPost, a.optional()...)
	g.DELETE("/posts/:postId", h.DeletePost, a.write()...)
	g.POST("/posts/:postId/pin", h.TogglePin, a.write()...)
	g.GET("/accounts/:userId/posts", h.GetAccountPosts, a.optional()...)
}

func (h *PostHandler) CreatePost(c echo.Context) error {
	var req models.CreatePostRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	post, err := h.posts.Create(c.Request().Context(), middleware.AccountID(c), req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.posts.Get(c.Request().Context(), middleware.AccountID(c), c.Param("postId"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, post)
}

// GetAccountPosts lists an author's posts, pinned first
func (h *PostHandler) GetAccountPosts(c echo.Context) error {
	authorID, err := uintParam(c, "userId")
	if err != nil {
		return err
	}
	posts, err := h.posts.ByAuthor(c.Request().Context(), middleware.AccountID(c), authorID,
		intQuery(c, "page", 1), intQuery(c, "limit", 10))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, posts)
}

func (h *PostHandler) TogglePin(c echo.Context) error {
	pinned, err := h.posts.TogglePin(c.Request().Context(), middleware.AccountID(c), c.Param("postId"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"pinned": pinned})
}

func (h *PostHandler) DeletePost(c echo.Context) error {
	if err := h.posts.Delete(c.Request().Context(), middleware.AccountID(c), c.Param("postId")); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
