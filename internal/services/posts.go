package services

import (
	"context"
	"errors"

	"github.com/anonto42/nano-community/backend/internal/models"
	"github.com/anonto42/nano-community/backend/internal/repositories"
	"github.com/rs/zerolog"
)

// FeedPost is a post enriched with its author and the viewer's flags.
type FeedPost struct {
	models.Post
	Author  models.AccountCompact `json:"author"`
	IsLiked bool                  `json:"is_liked"`
	IsSaved bool                  `json:"is_saved"`
}

// FeedPage is one page of the community feed.
type FeedPage struct {
	Posts      []FeedPost `json:"posts"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalItems int64      `json:"total_items"`
}

// PostService creates, lists, pins and deletes posts.
type PostService struct {
	Posts         repositories.PostRepository
	Accounts      repositories.AccountRepository
	Comments      repositories.CommentRepository
	Likes         repositories.LikeRepository
	Saves         repositories.SavedPostRepository
	Notifications repositories.NotificationRepository
	Interactions  *InteractionService
}

func (s *PostService) Create(ctx context.Context, authorID uint, req models.CreatePostRequest) (*models.Post, error) {
	if err := resolveAccount(ctx, s.Accounts, authorID); err != nil {
		return nil, err
	}
	post := &models.Post{
		AuthorID:   authorID,
		Content:    req.Content,
		ImageURLs:  req.ImageURLs,
		VideoURLs:  req.VideoURLs,
		Category:   req.Category,
		Visibility: req.Visibility,
	}
	if err := s.Posts.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Get returns one post with the viewer's flags. viewerID may be zero.
func (s *PostService) Get(ctx context.Context, viewerID uint, postID string) (*FeedPost, error) {
	post, err := loadPost(ctx, s.Posts, postID)
	if err != nil {
		return nil, err
	}
	enriched, err := s.enrich(ctx, viewerID, []models.Post{*post})
	if err != nil {
		return nil, err
	}
	return &enriched[0], nil
}

// Feed pages through all posts, newest first.
func (s *PostService) Feed(ctx context.Context, viewerID uint, page, limit int) (*FeedPage, error) {
	page, limit = normalizePage(page, limit)
	posts, err := s.Posts.GetAllPosts(ctx, int64((page-1)*limit), int64(limit))
	if err != nil {
		return nil, err
	}
	total, err := s.Posts.CountPosts(ctx)
	if err != nil {
		return nil, err
	}
	enriched, err := s.enrich(ctx, viewerID, posts)
	if err != nil {
		return nil, err
	}
	return &FeedPage{Posts: enriched, Page: page, Limit: limit, TotalItems: total}, nil
}

// ByAuthor lists an author's posts, pinned first.
func (s *PostService) ByAuthor(ctx context.Context, viewerID, authorID uint, page, limit int) ([]FeedPost, error) {
	if _, err := s.Accounts.GetAccountByID(ctx, authorID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	page, limit = normalizePage(page, limit)
	posts, err := s.Posts.GetPostsByAuthor(ctx, authorID, int64((page-1)*limit), int64(limit))
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, viewerID, posts)
}

// TogglePin flips the pinned flag. Only the author may pin.
func (s *PostService) TogglePin(ctx context.Context, actorID uint, postID string) (bool, error) {
	post, err := loadPost(ctx, s.Posts, postID)
	if err != nil {
		return false, err
	}
	if post.AuthorID != actorID {
		return false, ErrForbidden
	}
	pinned := !post.Pinned
	if err := s.Posts.SetPinned(ctx, postID, pinned); err != nil {
		return false, postErr(err)
	}
	return pinned, nil
}

// Delete hard-deletes a post owned by actorID and clears rows that pointed at it.
func (s *PostService) Delete(ctx context.Context, actorID uint, postID string) error {
	post, err := loadPost(ctx, s.Posts, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != actorID {
		return ErrForbidden
	}
	if err := s.Posts.DeletePost(ctx, postID); err != nil {
		return postErr(err)
	}

	lg := zerolog.Ctx(ctx)
	if err := s.Likes.DeleteByTarget(ctx, models.TargetPost, postID); err != nil {
		lg.Warn().Err(err).Str("post_id", postID).Msg("post likes cleanup failed")
	}
	if err := s.Saves.DeleteByPost(ctx, postID); err != nil {
		lg.Warn().Err(err).Str("post_id", postID).Msg("post saves cleanup failed")
	}
	ids, err := s.Comments.SoftDeleteByPost(ctx, postID)
	if err != nil {
		lg.Warn().Err(err).Str("post_id", postID).Msg("post comments cleanup failed")
	}
	commentKeys := make([]string, len(ids))
	for i, id := range ids {
		commentKeys[i] = uintString(id)
	}
	if err := s.Likes.DeleteByTargets(ctx, models.TargetComment, commentKeys); err != nil {
		lg.Warn().Err(err).Str("post_id", postID).Msg("comment likes cleanup failed")
	}
	if err := s.Notifications.DeleteByPost(ctx, postID); err != nil {
		lg.Warn().Err(err).Str("post_id", postID).Msg("post notifications cleanup failed")
	}
	return nil
}

func (s *PostService) enrich(ctx context.Context, viewerID uint, posts []models.Post) ([]FeedPost, error) {
	ids := make([]string, len(posts))
	authorIDs := make([]uint, 0, len(posts))
	seen := make(map[uint]bool)
	for i, p := range posts {
		ids[i] = p.ID.Hex()
		if !seen[p.AuthorID] {
			seen[p.AuthorID] = true
			authorIDs = append(authorIDs, p.AuthorID)
		}
	}
	authors, err := s.Accounts.GetAccountsByIDs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	liked, saved, err := s.Interactions.PostFlags(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	out := make([]FeedPost, len(posts))
	for i, p := range posts {
		fp := FeedPost{Post: p, IsLiked: liked[ids[i]], IsSaved: saved[ids[i]]}
		if a, ok := authors[p.AuthorID]; ok {
			fp.Author = a.ToCompact()
		} else {
			fp.Author = models.AccountCompact{ID: p.AuthorID}
		}
		out[i] = fp
	}
	return out, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}
	return page, limit
}
