package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/anonto42/nano-community/backend/internal/media"
	"github.com/anonto42/nano-community/backend/internal/models"
	"github.com/anonto42/nano-community/backend/internal/observability"
	"github.com/anonto42/nano-community/backend/internal/repositories"
	"github.com/rs/zerolog"
)

// StoryUpload is a media file received directly from the client.
type StoryUpload struct {
	Reader io.Reader
	Size   int64
}

// StoryViewer is one account that opened a story.
type StoryViewer struct {
	models.AccountCompact
	ViewedAt time.Time `json:"viewed_at"`
}

// StoryViews aggregates the viewers of one story.
type StoryViews struct {
	Story   models.Story  `json:"story"`
	Count   int           `json:"count"`
	Viewers []StoryViewer `json:"viewers"`
}

// StoryService manages 24h stories and their per-viewer views.
type StoryService struct {
	Stories  repositories.StoryRepository
	ViewLog  repositories.StoryViewRepository
	Accounts repositories.AccountRepository
	Media    media.Store
	Limits   media.Limits
	Now      func() time.Time
}

func (s *StoryService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Create registers a story whose media was uploaded out of band.
func (s *StoryService) Create(ctx context.Context, ownerID uint, req models.CreateStoryRequest) (*models.Story, error) {
	if err := resolveAccount(ctx, s.Accounts, ownerID); err != nil {
		return nil, err
	}
	story := &models.Story{
		OwnerID:   ownerID,
		MediaURL:  req.MediaURL,
		MediaType: req.MediaType,
		Overlay:   req.Overlay,
		CreatedAt: s.now(),
	}
	if err := s.Stories.CreateStory(ctx, story); err != nil {
		return nil, err
	}
	return story, nil
}

// Upload validates the media, stores it and registers the story.
func (s *StoryService) Upload(ctx context.Context, ownerID uint, up StoryUpload, overlay *models.StoryOverlay) (*models.Story, error) {
	if err := resolveAccount(ctx, s.Accounts, ownerID); err != nil {
		return nil, err
	}
	detected, body, err := media.Inspect(up.Reader, up.Size, s.Limits)
	if err != nil {
		if errors.Is(err, media.ErrEmpty) || errors.Is(err, media.ErrUnsupportedType) || errors.Is(err, media.ErrTooLarge) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, err
	}
	if s.Media == nil {
		return nil, ErrMediaUnavailable
	}
	url, err := s.Media.Put(ctx, media.ObjectKey(ownerID, detected.Extension), detected.MIME, body)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Uint("owner_id", ownerID).Msg("story media upload failed")
		return nil, fmt.Errorf("%w: media upload", ErrUpstream)
	}

	story := &models.Story{
		OwnerID:   ownerID,
		MediaURL:  url,
		MediaType: detected.Kind,
		Overlay:   overlay,
		CreatedAt: s.now(),
	}
	if err := s.Stories.CreateStory(ctx, story); err != nil {
		return nil, err
	}
	return story, nil
}

// ListActive returns the owner's stories created within the last 24h, oldest first.
func (s *StoryService) ListActive(ctx context.Context, ownerID uint) ([]models.Story, error) {
	if _, err := s.Accounts.GetAccountByID(ctx, ownerID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return s.Stories.GetActiveStoriesByOwner(ctx, ownerID, s.now())
}

// RegisterView records that viewerID opened the story. Repeats and owner views are no-ops.
func (s *StoryService) RegisterView(ctx context.Context, viewerID uint, storyID string) error {
	if err := resolveAccount(ctx, s.Accounts, viewerID); err != nil {
		return err
	}
	story, err := s.activeStory(ctx, storyID)
	if err != nil {
		return err
	}
	if story.OwnerID == viewerID {
		return nil
	}
	_, err = s.ViewLog.RecordView(ctx, &models.StoryView{StoryID: storyID, ViewerID: viewerID, ViewedAt: s.now()})
	return err
}

// Delete removes a story owned by ownerID. Missing and foreign stories look the same.
func (s *StoryService) Delete(ctx context.Context, ownerID uint, storyID string) error {
	story, err := s.Stories.GetStoryByID(ctx, storyID)
	if err != nil {
		return storyErr(err)
	}
	if story.OwnerID != ownerID {
		return ErrStoryNotFound
	}
	if err := s.Stories.DeleteStory(ctx, storyID); err != nil {
		return storyErr(err)
	}
	if err := s.ViewLog.DeleteViews(ctx, []string{storyID}); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("story_id", storyID).Msg("story views cleanup failed")
	}
	return nil
}

// Views aggregates viewers per active story. Only the owner may ask.
func (s *StoryService) Views(ctx context.Context, requesterID, ownerID uint) ([]StoryViews, error) {
	if requesterID == 0 {
		return nil, ErrUnauthenticated
	}
	if requesterID != ownerID {
		return nil, ErrForbidden
	}
	stories, err := s.ListActive(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(stories))
	for i, st := range stories {
		ids[i] = st.ID.Hex()
	}
	views, err := s.ViewLog.GetViewsByStoryIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	viewerIDs := make([]uint, 0, len(views))
	seen := make(map[uint]bool)
	byStory := make(map[string][]models.StoryView)
	for _, v := range views {
		byStory[v.StoryID] = append(byStory[v.StoryID], v)
		if !seen[v.ViewerID] {
			seen[v.ViewerID] = true
			viewerIDs = append(viewerIDs, v.ViewerID)
		}
	}
	viewers, err := s.Accounts.GetAccountsByIDs(ctx, viewerIDs)
	if err != nil {
		return nil, err
	}

	out := make([]StoryViews, len(stories))
	for i, st := range stories {
		rows := byStory[ids[i]]
		agg := StoryViews{Story: st, Count: len(rows), Viewers: make([]StoryViewer, 0, len(rows))}
		for _, v := range rows {
			compact := models.AccountCompact{ID: v.ViewerID}
			if a, ok := viewers[v.ViewerID]; ok {
				compact = a.ToCompact()
			}
			agg.Viewers = append(agg.Viewers, StoryViewer{AccountCompact: compact, ViewedAt: v.ViewedAt})
		}
		out[i] = agg
	}
	return out, nil
}

// Reap deletes expired stories and their views and returns how many stories went.
// Views are swept by age rather than by the ids removed here, since the TTL
// index may already have dropped their stories. A view is only recorded while
// its story is active, so one older than StoryTTL belongs to an expired story.
func (s *StoryService) Reap(ctx context.Context) (int, error) {
	now := s.now()
	ids, err := s.Stories.DeleteExpiredStories(ctx, now)
	if err != nil {
		return 0, err
	}
	observability.StoriesReaped.Add(float64(len(ids)))

	views, err := s.ViewLog.DeleteViewedBefore(ctx, now.Add(-models.StoryTTL))
	if err != nil {
		return len(ids), err
	}
	if views > 0 {
		zerolog.Ctx(ctx).Debug().Int64("views", views).Msg("expired story views removed")
	}
	return len(ids), nil
}

func (s *StoryService) activeStory(ctx context.Context, storyID string) (*models.Story, error) {
	story, err := s.Stories.GetStoryByID(ctx, storyID)
	if err != nil {
		return nil, storyErr(err)
	}
	if !story.ActiveAt(s.now()) {
		return nil, ErrStoryNotFound
	}
	return story, nil
}

func storyErr(err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return ErrStoryNotFound
	case errors.Is(err, repositories.ErrInvalidID):
		return ErrInvalidInput
	}
	return err
}
