package services

import (
	"context"
	"errors"

	"github.com/anonto42/nano-community/backend/internal/models"
	"github.com/anonto42/nano-community/backend/internal/observability"
	"github.com/anonto42/nano-community/backend/internal/repositories"
	"github.com/rs/zerolog"
)

// LikeState is the authoritative state after a like toggle.
type LikeState struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likes_count"`
}

// SaveState is the authoritative state after a save toggle.
type SaveState struct {
	Saved bool `json:"saved"`
}

// InteractionService toggles likes and saves and keeps the target counters in step.
type InteractionService struct {
	Likes    repositories.LikeRepository
	Saves    repositories.SavedPostRepository
	Posts    repositories.PostRepository
	Comments repositories.CommentRepository
	Accounts repositories.AccountRepository
	Notifier Notifier
}

func NewInteractionService(
	likes repositories.LikeRepository,
	saves repositories.SavedPostRepository,
	posts repositories.PostRepository,
	comments repositories.CommentRepository,
	accounts repositories.AccountRepository,
	notifier Notifier,
) *InteractionService {
	return &InteractionService{
		Likes:    likes,
		Saves:    saves,
		Posts:    posts,
		Comments: comments,
		Accounts: accounts,
		Notifier: notifier,
	}
}

// TogglePostLike flips the actor's like on a post.
func (s *InteractionService) TogglePostLike(ctx context.Context, actorID uint, postID string) (*LikeState, error) {
	if err := s.resolveActor(ctx, actorID); err != nil {
		return nil, err
	}
	post, err := loadPost(ctx, s.Posts, postID)
	if err != nil {
		return nil, err
	}
	ev := NotificationEvent{
		RecipientID: post.AuthorID,
		ActorID:     actorID,
		Type:        models.NotificationLike,
		PostID:      postID,
		Preview:     post.Content,
	}

	liked, err := s.Likes.HasLiked(ctx, actorID, models.TargetPost, postID)
	if err != nil {
		return nil, err
	}
	if liked {
		if err := s.Likes.DeleteLike(ctx, actorID, models.TargetPost, postID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				// A concurrent unlike got there first.
				return &LikeState{Liked: false, LikesCount: post.LikesCount}, nil
			}
			return nil, err
		}
		count, err := s.Posts.AddLikes(ctx, postID, -1)
		if err != nil {
			return nil, postErr(err)
		}
		observability.Interactions.WithLabelValues("post_like", "remove").Inc()
		s.notifier().Retract(ctx, ev)
		return &LikeState{Liked: false, LikesCount: count}, nil
	}

	like := &models.Like{UserID: actorID, TargetType: models.TargetPost, TargetID: postID}
	if err := s.Likes.CreateLike(ctx, like); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return &LikeState{Liked: true, LikesCount: post.LikesCount}, nil
		}
		return nil, err
	}
	count, err := s.Posts.AddLikes(ctx, postID, 1)
	if err != nil {
		return nil, postErr(err)
	}
	observability.Interactions.WithLabelValues("post_like", "add").Inc()
	s.notifier().Notify(ctx, ev)
	return &LikeState{Liked: true, LikesCount: count}, nil
}

// ToggleCommentLike flips the actor's like on a live comment.
func (s *InteractionService) ToggleCommentLike(ctx context.Context, actorID uint, commentID uint) (*LikeState, error) {
	if err := s.resolveActor(ctx, actorID); err != nil {
		return nil, err
	}
	comment, err := s.Comments.GetCommentByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	target := uintString(commentID)
	ev := NotificationEvent{
		RecipientID: comment.AuthorID,
		ActorID:     actorID,
		Type:        models.NotificationLike,
		PostID:      comment.PostID,
		CommentID:   target,
		Preview:     comment.Content,
	}

	liked, err := s.Likes.HasLiked(ctx, actorID, models.TargetComment, target)
	if err != nil {
		return nil, err
	}
	if liked {
		if err := s.Likes.DeleteLike(ctx, actorID, models.TargetComment, target); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return &LikeState{Liked: false, LikesCount: comment.LikesCount}, nil
			}
			return nil, err
		}
		count, err := s.Comments.AddLikes(ctx, commentID, -1)
		if err != nil {
			return nil, commentErr(err)
		}
		observability.Interactions.WithLabelValues("comment_like", "remove").Inc()
		s.notifier().Retract(ctx, ev)
		return &LikeState{Liked: false, LikesCount: count}, nil
	}

	like := &models.Like{UserID: actorID, TargetType: models.TargetComment, TargetID: target}
	if err := s.Likes.CreateLike(ctx, like); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return &LikeState{Liked: true, LikesCount: comment.LikesCount}, nil
		}
		return nil, err
	}
	count, err := s.Comments.AddLikes(ctx, commentID, 1)
	if err != nil {
		return nil, commentErr(err)
	}
	observability.Interactions.WithLabelValues("comment_like", "add").Inc()
	s.notifier().Notify(ctx, ev)
	return &LikeState{Liked: true, LikesCount: count}, nil
}

// TogglePostSave flips the actor's bookmark on a post.
func (s *InteractionService) TogglePostSave(ctx context.Context, actorID uint, postID string) (*SaveState, error) {
	if err := s.resolveActor(ctx, actorID); err != nil {
		return nil, err
	}
	if _, err := loadPost(ctx, s.Posts, postID); err != nil {
		return nil, err
	}

	saved, err := s.Saves.IsPostSaved(ctx, actorID, postID)
	if err != nil {
		return nil, err
	}
	if saved {
		if err := s.Saves.UnsavePost(ctx, actorID, postID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
		observability.Interactions.WithLabelValues("post_save", "remove").Inc()
		return &SaveState{Saved: false}, nil
	}
	err = s.Saves.SavePost(ctx, &models.SavedPost{AccountID: actorID, PostID: postID})
	if err != nil && !errors.Is(err, repositories.ErrDuplicate) {
		return nil, err
	}
	observability.Interactions.WithLabelValues("post_save", "add").Inc()
	return &SaveState{Saved: true}, nil
}

// IsPostLiked reports the actor's like on a post. Anonymous callers and lookup
// failures read as not liked.
func (s *InteractionService) IsPostLiked(ctx context.Context, actorID uint, postID string) bool {
	if actorID == 0 {
		return false
	}
	liked, err := s.Likes.HasLiked(ctx, actorID, models.TargetPost, postID)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("post_id", postID).Msg("like status lookup failed")
		return false
	}
	return liked
}

// IsPostSaved mirrors IsPostLiked for bookmarks.
func (s *InteractionService) IsPostSaved(ctx context.Context, actorID uint, postID string) bool {
	if actorID == 0 {
		return false
	}
	saved, err := s.Saves.IsPostSaved(ctx, actorID, postID)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("post_id", postID).Msg("save status lookup failed")
		return false
	}
	return saved
}

// PostFlags returns the liked and saved sets among postIDs for the actor.
func (s *InteractionService) PostFlags(ctx context.Context, actorID uint, postIDs []string) (liked, saved map[string]bool, err error) {
	if actorID == 0 {
		return map[string]bool{}, map[string]bool{}, nil
	}
	liked, err = s.Likes.LikedTargetIDs(ctx, actorID, models.TargetPost, postIDs)
	if err != nil {
		return nil, nil, err
	}
	saved, err = s.Saves.GetSavedPostIDs(ctx, actorID, postIDs)
	if err != nil {
		return nil, nil, err
	}
	return liked, saved, nil
}

func (s *InteractionService) resolveActor(ctx context.Context, actorID uint) error {
	return resolveAccount(ctx, s.Accounts, actorID)
}

func (s *InteractionService) notifier() Notifier {
	if s.Notifier == nil {
		return nopNotifier{}
	}
	return s.Notifier
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, NotificationEvent)  {}
func (nopNotifier) Retract(context.Context, NotificationEvent) {}

func resolveAccount(ctx context.Context, accounts repositories.AccountRepository, id uint) error {
	if id == 0 {
		return ErrUnauthenticated
	}
	if _, err := accounts.GetAccountByID(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	return nil
}

func loadPost(ctx context.Context, posts repositories.PostRepository, id string) (*models.Post, error) {
	post, err := posts.GetPostByID(ctx, id)
	if err != nil {
		return nil, postErr(err)
	}
	return post, nil
}

func postErr(err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return ErrPostNotFound
	case errors.Is(err, repositories.ErrInvalidID):
		return ErrInvalidInput
	}
	return err
}

func commentErr(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrCommentNotFound
	}
	return err
}
