package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/nano-community/backend/internal/models"
	"github.com/anonto42/nano-community/backend/internal/repositories"
	"github.com/rs/zerolog"
)

// CommentService manages comments and one level of replies.
type CommentService struct {
	Comments      repositories.CommentRepository
	Posts         repositories.PostRepository
	Accounts      repositories.AccountRepository
	Likes         repositories.LikeRepository
	Notifications repositories.NotificationRepository
	Notifier      Notifier
}

// Create adds a top-level comment or a reply and notifies the post or parent author.
func (s *CommentService) Create(ctx context.Context, authorID uint, postID string, req models.CreateCommentRequest) (*models.Comment, error) {
	if err := resolveAccount(ctx, s.Accounts, authorID); err != nil {
		return nil, err
	}
	post, err := loadPost(ctx, s.Posts, postID)
	if err != nil {
		return nil, err
	}

	var parent *models.Comment
	if req.ParentID != nil {
		parent, err = s.Comments.GetCommentByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, ErrCommentNotFound
			}
			return nil, err
		}
		if parent.PostID != postID {
			return nil, fmt.Errorf("%w: parent comment belongs to another post", ErrInvalidInput)
		}
		if parent.IsReply() {
			return nil, fmt.Errorf("%w: replies cannot be nested", ErrInvalidInput)
		}
	}

	comment := &models.Comment{
		PostID:   postID,
		AuthorID: authorID,
		ParentID: req.ParentID,
		Content:  req.Content,
	}
	if err := s.Comments.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	lg := zerolog.Ctx(ctx)
	if _, err := s.Posts.AddComments(ctx, postID, 1); err != nil {
		lg.Warn().Err(err).Str("post_id", postID).Msg("comments_count increment failed")
	}
	if parent != nil {
		if _, err := s.Comments.AddReplies(ctx, parent.ID, 1); err != nil {
			lg.Warn().Err(err).Uint("comment_id", parent.ID).Msg("replies_count increment failed")
		}
	}

	s.notifier().Notify(ctx, commentEvent(post, parent, comment))
	return comment, nil
}

// List returns the live comments of a post.
func (s *CommentService) List(ctx context.Context, postID string) ([]models.Comment, error) {
	if _, err := loadPost(ctx, s.Posts, postID); err != nil {
		return nil, err
	}
	return s.Comments.GetCommentsByPostID(ctx, postID)
}

// Delete soft-deletes a comment owned by actorID and rolls back its counters.
func (s *CommentService) Delete(ctx context.Context, actorID, commentID uint) error {
	comment, err := s.Comments.GetCommentByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrCommentNotFound
		}
		return err
	}
	if comment.AuthorID != actorID {
		return ErrForbidden
	}
	if err := s.Comments.SoftDeleteComment(ctx, commentID); err != nil {
		return commentErr(err)
	}

	lg := zerolog.Ctx(ctx)
	if _, err := s.Posts.AddComments(ctx, comment.PostID, -1); err != nil {
		lg.Warn().Err(err).Str("post_id", comment.PostID).Msg("comments_count decrement failed")
	}
	key := uintString(commentID)
	if err := s.Likes.DeleteByTarget(ctx, models.TargetComment, key); err != nil {
		lg.Warn().Err(err).Uint("comment_id", commentID).Msg("comment likes cleanup failed")
	}
	if err := s.Notifications.DeleteByComment(ctx, key); err != nil {
		lg.Warn().Err(err).Uint("comment_id", commentID).Msg("comment notifications cleanup failed")
	}

	var parent *models.Comment
	if comment.ParentID != nil {
		if _, err := s.Comments.AddReplies(ctx, *comment.ParentID, -1); err != nil {
			lg.Warn().Err(err).Uint("comment_id", *comment.ParentID).Msg("replies_count decrement failed")
		}
		parent, err = s.Comments.GetCommentByID(ctx, *comment.ParentID)
		if err != nil {
			// Parent gone: nobody left to retract from.
			return nil
		}
	}

	post, err := s.Posts.GetPostByID(ctx, comment.PostID)
	if err != nil {
		return nil
	}
	s.notifier().Retract(ctx, commentEvent(post, parent, comment))
	return nil
}

func (s *CommentService) notifier() Notifier {
	if s.Notifier == nil {
		return nopNotifier{}
	}
	return s.Notifier
}

// commentEvent addresses a top-level comment to the post author and a reply to the parent author.
func commentEvent(post *models.Post, parent, comment *models.Comment) NotificationEvent {
	ev := NotificationEvent{
		RecipientID: post.AuthorID,
		ActorID:     comment.AuthorID,
		Type:        models.NotificationComment,
		PostID:      comment.PostID,
		CommentID:   uintString(comment.ID),
		Preview:     comment.Content,
	}
	if parent != nil {
		ev.RecipientID = parent.AuthorID
		ev.Type = models.NotificationReply
	}
	return ev
}
