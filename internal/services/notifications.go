package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/anonto42/nano-community/backend/internal/models"
	"github.com/anonto42/nano-community/backend/internal/observability"
	"github.com/anonto42/nano-community/backend/internal/repositories"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// InboxSize caps the notifications returned by one inbox read.
const InboxSize = 30

const previewLength = 100

// NotificationEvent describes an interaction that a recipient should hear about.
type NotificationEvent struct {
	RecipientID uint
	ActorID     uint
	Type        string
	PostID      string
	CommentID   string
	Preview     string
}

func (e NotificationEvent) key() repositories.NotificationKey {
	return repositories.NotificationKey{
		RecipientID: e.RecipientID,
		ActorID:     e.ActorID,
		Type:        e.Type,
		PostID:      e.PostID,
		CommentID:   e.CommentID,
	}
}

// Notifier receives notification events from the ledger and comment flows.
// Implementations must not fail the caller.
type Notifier interface {
	Notify(ctx context.Context, ev NotificationEvent)
	Retract(ctx context.Context, ev NotificationEvent)
}

// Publisher pushes a payload to the live connections of an account.
type Publisher interface {
	Publish(accountID uint, payload []byte)
}

// NotificationItem is one inbox row as returned to the recipient.
type NotificationItem struct {
	models.Notification
	Actor  models.AccountCompact `json:"actor"`
	Unread bool                  `json:"unread"`
}

// Inbox is the recipient's notification page.
type Inbox struct {
	Notifications []NotificationItem `json:"notifications"`
	UnreadCount   int                `json:"unread_count"`
}

// NotificationService upserts, retracts and reads notifications.
type NotificationService struct {
	Repo      repositories.NotificationRepository
	Accounts  repositories.AccountRepository
	Publisher Publisher
	Now       func() time.Time
}

func NewNotificationService(repo repositories.NotificationRepository, accounts repositories.AccountRepository, pub Publisher) *NotificationService {
	return &NotificationService{Repo: repo, Accounts: accounts, Publisher: pub, Now: time.Now}
}

func (s *NotificationService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Notify upserts the notification for ev. Self-notifications are skipped and
// storage errors are logged, never returned.
func (s *NotificationService) Notify(ctx context.Context, ev NotificationEvent) {
	if ev.RecipientID == 0 || ev.RecipientID == ev.ActorID {
		observability.Notifications.WithLabelValues("create", "skip").Inc()
		return
	}
	now := s.now()
	n := &models.Notification{
		RecipientID:    ev.RecipientID,
		ActorID:        ev.ActorID,
		Type:           ev.Type,
		PostID:         ev.PostID,
		CommentID:      ev.CommentID,
		ContentPreview: Preview(ev.Preview),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Repo.Upsert(ctx, n); err != nil {
		observability.Notifications.WithLabelValues("create", "error").Inc()
		zerolog.Ctx(ctx).Error().Err(err).
			Uint("recipient_id", ev.RecipientID).
			Uint("actor_id", ev.ActorID).
			Str("type", ev.Type).
			Msg("notification upsert failed")
		return
	}
	observability.Notifications.WithLabelValues("create", "ok").Inc()
	s.publish(ctx, n)
}

// Retract removes the notification carrying ev's identity. Errors are logged.
func (s *NotificationService) Retract(ctx context.Context, ev NotificationEvent) {
	if ev.RecipientID == 0 || ev.RecipientID == ev.ActorID {
		observability.Notifications.WithLabelValues("remove", "skip").Inc()
		return
	}
	if _, err := s.Repo.Delete(ctx, ev.key()); err != nil {
		observability.Notifications.WithLabelValues("remove", "error").Inc()
		zerolog.Ctx(ctx).Error().Err(err).
			Uint("recipient_id", ev.RecipientID).
			Uint("actor_id", ev.ActorID).
			Str("type", ev.Type).
			Msg("notification remove failed")
		return
	}
	observability.Notifications.WithLabelValues("remove", "ok").Inc()
}

func (s *NotificationService) publish(ctx context.Context, n *models.Notification) {
	if s.Publisher == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{"event": "notification", "notification": n})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("notification payload encode failed")
		return
	}
	s.Publisher.Publish(n.RecipientID, payload)
}

// Inbox merges the recipient's likes, comments and replies, newest first, and
// flags every row created after the account's read watermark as unread.
func (s *NotificationService) Inbox(ctx context.Context, recipientID uint) (*Inbox, error) {
	account, err := s.Accounts.GetAccountByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	sources := []string{models.NotificationLike, models.NotificationComment, models.NotificationReply}
	batches := make([][]models.Notification, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, typ := range sources {
		i, typ := i, typ
		g.Go(func() error {
			rows, err := s.Repo.ListByType(gctx, recipientID, typ, InboxSize)
			if err != nil {
				return err
			}
			batches[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]models.Notification, 0, InboxSize*len(sources))
	for _, b := range batches {
		merged = append(merged, b...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].ID > merged[j].ID
		}
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	if len(merged) > InboxSize {
		merged = merged[:InboxSize]
	}

	actorIDs := make([]uint, 0, len(merged))
	seen := make(map[uint]bool)
	for _, n := range merged {
		if !seen[n.ActorID] {
			seen[n.ActorID] = true
			actorIDs = append(actorIDs, n.ActorID)
		}
	}
	actors, err := s.Accounts.GetAccountsByIDs(ctx, actorIDs)
	if err != nil {
		return nil, err
	}

	inbox := &Inbox{Notifications: make([]NotificationItem, 0, len(merged))}
	for _, n := range merged {
		item := NotificationItem{Notification: n, Unread: IsUnread(n.CreatedAt, account.LastNotificationsReadAt)}
		if a, ok := actors[n.ActorID]; ok {
			item.Actor = a.ToCompact()
		} else {
			item.Actor = models.AccountCompact{ID: n.ActorID}
		}
		if item.Unread {
			inbox.UnreadCount++
		}
		inbox.Notifications = append(inbox.Notifications, item)
	}
	return inbox, nil
}

// MarkRead moves the recipient's watermark to now.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID uint) error {
	if err := s.Accounts.SetNotificationsReadAt(ctx, recipientID, s.now()); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	return nil
}

// IsUnread reports whether a notification created at createdAt is past the watermark.
func IsUnread(createdAt time.Time, watermark *time.Time) bool {
	if watermark == nil {
		return true
	}
	return createdAt.After(*watermark)
}

// Preview trims content to the stored preview length on a rune boundary.
func Preview(content string) string {
	if utf8.RuneCountInString(content) <= previewLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewLength]) + "…"
}

func uintString(id uint) string { return strconv.FormatUint(uint64(id), 10) }
