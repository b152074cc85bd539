package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-community/backend/internal/middleware"
	"github.com/anonto42/nano-community/backend/internal/models"
	"github.com/anonto42/nano-community/backend/internal/services"
)

const storyMediaField = "media"

type StoryService interface {
	Create(ctx context.Context, ownerID uint, req models.CreateStoryRequest) (*models.Story, error)
	Upload(ctx context.Context, ownerID uint, up services.StoryUpload, overlay *models.StoryOverlay) (*models.Story, error)
	ListActive(ctx context.Context, ownerID uint) ([]models.Story, error)
	RegisterView(ctx context.Context, viewerID uint, storyID string) error
	Delete(ctx context.Context, ownerID uint, storyID string) error
	Views(ctx context.Context, requesterID, ownerID uint) ([]services.StoryViews, error)
}

// StoryHandler handles story-related HTTP requests
type StoryHandler struct {
	stories StoryService
}

func NewStoryHandler(stories StoryService) *StoryHandler {
	return &StoryHandler{stories: stories}
}

// RegisterStoryRoutes registers story-related routes
func (h *StoryHandler) RegisterStoryRoutes(g *echo.Group, a Auth) {
	g.POST("/stories", h.CreateStory, a.write()...)
	g.POST("/stories/:storyId/view", h.RegisterView, a.write()...)
	g.DELETE("/stories/:storyId", h.DeleteStory, a.write()...)
	g.GET("/accounts/:userId/stories", h.GetAccountStories)
	g.GET("/accounts/:userId/stories/views", h.GetStoryViews, a.required()...)
}

// CreateStory accepts either a multipart upload (field "media", optional
// "overlay" JSON) or a JSON body pointing at already uploaded media.
func (h *StoryHandler) CreateStory(c echo.Context) error {
	ctx := c.Request().Context()
	ownerID := middleware.AccountID(c)

	var (
		story *models.Story
		err   error
	)
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		story, err = h.upload(c, ownerID)
	} else {
		var req models.CreateStoryRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		story, err = h.stories.Create(ctx, ownerID, req)
	}
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "story created",
		"story":   story,
	})
}

func (h *StoryHandler) upload(c echo.Context, ownerID uint) (*models.Story, error) {
	fh, err := c.FormFile(storyMediaField)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "media file is required")
	}

	var overlay *models.StoryOverlay
	if raw := c.FormValue("overlay"); raw != "" {
		overlay = &models.StoryOverlay{}
		if err := json.Unmarshal([]byte(raw), overlay); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "overlay must be a JSON object")
		}
		if err := c.Validate(overlay); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	f, err := fh.Open()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable media file")
	}
	defer f.Close()
	return h.stories.Upload(c.Request().Context(), ownerID, services.StoryUpload{Reader: f, Size: fh.Size}, overlay)
}

// RegisterView marks the story as seen by the caller. Repeats are no-ops.
func (h *StoryHandler) RegisterView(c echo.Context) error {
	if err := h.stories.RegisterView(c.Request().Context(), middleware.AccountID(c), c.Param("storyId")); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *StoryHandler) DeleteStory(c echo.Context) error {
	if err := h.stories.Delete(c.Request().Context(), middleware.AccountID(c), c.Param("storyId")); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetAccountStories lists an account's stories from the last 24 hours, oldest first
func (h *StoryHandler) GetAccountStories(c echo.Context) error {
	ownerID, err := uintParam(c, "userId")
	if err != nil {
		return err
	}
	stories, err := h.stories.ListActive(c.Request().Context(), ownerID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, stories)
}

// GetStoryViews returns per-story viewers. Owner only.
func (h *StoryHandler) GetStoryViews(c echo.Context) error {
	ownerID, err := uintParam(c, "userId")
	if err != nil {
		return err
	}
	views, err := h.stories.Views(c.Request().Context(), middleware.AccountID(c), ownerID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}
