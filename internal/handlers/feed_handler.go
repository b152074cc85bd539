package handlers

import (
	"context"
	"math"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-community/backend/internal/middleware"
	"github.com/anonto42/nano-community/backend/internal/services"
)

type FeedService interface {
	Feed(ctx context.Context, viewerID uint, page, limit int) (*services.FeedPage, error)
}

// FeedHandler handles feed-related HTTP requests
type FeedHandler struct {
	posts FeedService
}

func NewFeedHandler(posts FeedService) *FeedHandler {
	return &FeedHandler{posts: posts}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group, a Auth) {
	g.GET("/feed", h.GetFeed, a.optional()...)
}

// GetFeed returns enriched feed posts for the current viewer, newest first
func (h *FeedHandler) GetFeed(c echo.Context) error {
	page, err := h.posts.Feed(c.Request().Context(), middleware.AccountID(c),
		intQuery(c, "page", 1), intQuery(c, "limit", 10))
	if err != nil {
		return serviceError(c, err)
	}

	totalPages := int(math.Ceil(float64(page.TotalItems) / float64(page.Limit)))
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"posts":   page.Posts,
		"meta": echo.Map{
			"currentPage":     page.Page,
			"totalPages":      totalPages,
			"totalItems":      page.TotalItems,
			"itemsPerPage":    page.Limit,
			"hasNextPage":     page.Page < totalPages,
			"hasPreviousPage": page.Page > 1,
		},
	})
}
