package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anonto42/nano-community/backend/internal/models"
)

func TestAccountRepository_CreateAndLookup(t *testing.T) {
	db := newTestDB(t, &models.Account{})
	repo := NewPostgresAccountRepository(db)
	ctx := context.Background()

	a := &models.Account{Name: "Ana", Email: "ana@example.com"}
	if err := repo.CreateAccount(ctx, a); err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Plan != models.PlanFree {
		t.Fatalf("expected default plan %q, got %q", models.PlanFree, a.Plan)
	}

	got, err := repo.GetAccountByEmail(ctx, "ana@example.com")
	if err != nil || got.ID != a.ID {
		t.Fatalf("lookup by email: %v %+v", err, got)
	}
	if _, err := repo.GetAccountByID(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	dup := &models.Account{Name: "Other", Email: "ana@example.com"}
	if err := repo.CreateAccount(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	byIDs, err := repo.GetAccountsByIDs(ctx, []uint{a.ID, 4242})
	if err != nil {
		t.Fatalf("by ids: %v", err)
	}
	if len(byIDs) != 1 || byIDs[a.ID].Name != "Ana" {
		t.Fatalf("unexpected batch: %+v", byIDs)
	}
}

func TestAccountRepository_SetNotificationsReadAt(t *testing.T) {
	db := newTestDB(t, &models.Account{})
	repo := NewPostgresAccountRepository(db)
	ctx := context.Background()

	a := &models.Account{Name: "Ana", Email: "ana@example.com"}
	if err := repo.CreateAccount(ctx, a); err != nil {
		t.Fatalf("create: %v", err)
	}
	at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.SetNotificationsReadAt(ctx, a.ID, at); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, _ := repo.GetAccountByID(ctx, a.ID)
	if got.LastNotificationsReadAt == nil || !got.LastNotificationsReadAt.Equal(at) {
		t.Fatalf("watermark not stored: %v", got.LastNotificationsReadAt)
	}
	if err := repo.SetNotificationsReadAt(ctx, 777, at); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLikeRepository_UniquePerTarget(t *testing.T) {
	db := newTestDB(t, &models.Like{})
	repo := NewPostgresLikeRepository(db)
	ctx := context.Background()

	if err := repo.CreateLike(ctx, &models.Like{UserID: 1, TargetType: models.TargetPost, TargetID: "p1"}); err != nil {
		t.Fatalf("first like: %v", err)
	}
	err := repo.CreateLike(ctx, &models.Like{UserID: 1, TargetType: models.TargetPost, TargetID: "p1"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	// Same id on a different target kind is a separate like.
	if err := repo.CreateLike(ctx, &models.Like{UserID: 1, TargetType: models.TargetComment, TargetID: "p1"}); err != nil {
		t.Fatalf("comment like: %v", err)
	}

	liked, err := repo.HasLiked(ctx, 1, models.TargetPost, "p1")
	if err != nil || !liked {
		t.Fatalf("expected liked, got %v %v", liked, err)
	}
	set, err := repo.LikedTargetIDs(ctx, 1, models.TargetPost, []string{"p1", "p2"})
	if err != nil {
		t.Fatalf("liked ids: %v", err)
	}
	if !set["p1"] || set["p2"] {
		t.Fatalf("unexpected set: %v", set)
	}

	if err := repo.DeleteLike(ctx, 1, models.TargetPost, "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteLike(ctx, 1, models.TargetPost, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSavedPostRepository_Toggle(t *testing.T) {
	db := newTestDB(t, &models.SavedPost{})
	repo := NewPostgresSavedPostRepository(db)
	ctx := context.Background()

	if err := repo.SavePost(ctx, &models.SavedPost{AccountID: 3, PostID: "p"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.SavePost(ctx, &models.SavedPost{AccountID: 3, PostID: "p"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	saved, _ := repo.IsPostSaved(ctx, 3, "p")
	if !saved {
		t.Fatalf("expected saved")
	}
	if err := repo.DeleteByPost(ctx, "p"); err != nil {
		t.Fatalf("delete by post: %v", err)
	}
	if err := repo.UnsavePost(ctx, 3, "p"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNotificationRepository_UpsertCollapsesIdentity(t *testing.T) {
	db := newTestDB(t, &models.Notification{})
	repo := NewPostgresNotificationRepository(db)
	ctx := context.Background()

	t1 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	first := &models.Notification{RecipientID: 1, ActorID: 2, Type: models.NotificationLike, PostID: "p", ContentPreview: "old", CreatedAt: t1, UpdatedAt: t1}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("upsert 1: %v", err)
	}
	second := &models.Notification{RecipientID: 1, ActorID: 2, Type: models.NotificationLike, PostID: "p", ContentPreview: "new", CreatedAt: t2, UpdatedAt: t2}
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("upsert 2: %v", err)
	}

	rows, err := repo.ListByType(ctx, 1, models.NotificationLike, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one collapsed row, got %d", len(rows))
	}
	if rows[0].ContentPreview != "new" || !rows[0].CreatedAt.Equal(t2) {
		t.Fatalf("row not refreshed: %+v", rows[0])
	}

	n, err := repo.Delete(ctx, NotificationKey{RecipientID: 1, ActorID: 2, Type: models.NotificationLike, PostID: "p"})
	if err != nil || n != 1 {
		t.Fatalf("delete: n=%d err=%v", n, err)
	}
	n, _ = repo.Delete(ctx, NotificationKey{RecipientID: 1, ActorID: 2, Type: models.NotificationLike, PostID: "p"})
	if n != 0 {
		t.Fatalf("second delete removed %d rows", n)
	}
}

func TestNotificationRepository_ListByTypeNewestFirst(t *testing.T) {
	db := newTestDB(t, &models.Notification{})
	repo := NewPostgresNotificationRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		n := &models.Notification{RecipientID: 1, ActorID: uint(10 + i), Type: models.NotificationComment, PostID: "p", CommentID: "c", CreatedAt: at, UpdatedAt: at}
		if err := repo.Upsert(ctx, n); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}
	rows, err := repo.ListByType(ctx, 1, models.NotificationComment, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 3 || rows[0].ActorID != 14 || rows[2].ActorID != 12 {
		t.Fatalf("unexpected order: %+v", rows)
	}
	likes, _ := repo.ListByType(ctx, 1, models.NotificationLike, 3)
	if len(likes) != 0 {
		t.Fatalf("expected no likes, got %d", len(likes))
	}
}

func TestCommentRepository_CountersFloorAtZero(t *testing.T) {
	db := newTestDB(t, &models.Comment{})
	repo := NewPostgresCommentRepository(db)
	ctx := context.Background()

	c := &models.Comment{PostID: "p", AuthorID: 1, Content: "hi"}
	if err := repo.CreateComment(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	n, err := repo.AddLikes(ctx, c.ID, 1)
	if err != nil || n != 1 {
		t.Fatalf("add: n=%d err=%v", n, err)
	}
	n, _ = repo.AddLikes(ctx, c.ID, -1)
	n, err = repo.AddLikes(ctx, c.ID, -1)
	if err != nil || n != 0 {
		t.Fatalf("expected floor at 0, got n=%d err=%v", n, err)
	}
	if _, err := repo.AddReplies(ctx, 999, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCommentRepository_SoftDeleteHidesComment(t *testing.T) {
	db := newTestDB(t, &models.Comment{})
	repo := NewPostgresCommentRepository(db)
	ctx := context.Background()

	keep := &models.Comment{PostID: "p", AuthorID: 1, Content: "keep"}
	drop := &models.Comment{PostID: "p", AuthorID: 1, Content: "drop"}
	for _, c := range []*models.Comment{keep, drop} {
		if err := repo.CreateComment(ctx, c); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := repo.SoftDeleteComment(ctx, drop.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := repo.GetCommentByID(ctx, drop.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	list, _ := repo.GetCommentsByPostID(ctx, "p")
	if len(list) != 1 || list[0].ID != keep.ID {
		t.Fatalf("unexpected list: %+v", list)
	}
	count, _ := repo.CountByAuthor(ctx, 1)
	if count != 1 {
		t.Fatalf("expected 1 live comment, got %d", count)
	}
}

func TestStoryViewRepository_RecordViewIsIdempotent(t *testing.T) {
	db := newTestDB(t, &models.StoryView{})
	repo := NewPostgresStoryViewRepository(db)
	ctx := context.Background()

	inserted, err := repo.RecordView(ctx, &models.StoryView{StoryID: "s1", ViewerID: 2})
	if err != nil || !inserted {
		t.Fatalf("first view: inserted=%v err=%v", inserted, err)
	}
	inserted, err = repo.RecordView(ctx, &models.StoryView{StoryID: "s1", ViewerID: 2})
	if err != nil || inserted {
		t.Fatalf("repeat view: inserted=%v err=%v", inserted, err)
	}
	if _, err := repo.RecordView(ctx, &models.StoryView{StoryID: "s2", ViewerID: 2}); err != nil {
		t.Fatalf("other story: %v", err)
	}

	views, err := repo.GetViewsByStoryIDs(ctx, []string{"s1"})
	if err != nil || len(views) != 1 {
		t.Fatalf("views: %v %+v", err, views)
	}
	if err := repo.DeleteViews(ctx, []string{"s1", "s2"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	views, _ = repo.GetViewsByStoryIDs(ctx, []string{"s1", "s2"})
	if len(views) != 0 {
		t.Fatalf("expected no views, got %d", len(views))
	}
}

func TestStoryViewRepository_DeleteViewedBefore(t *testing.T) {
	db := newTestDB(t, &models.StoryView{})
	repo := NewPostgresStoryViewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	repo.RecordView(ctx, &models.StoryView{StoryID: "old", ViewerID: 1, ViewedAt: now.Add(-30 * time.Hour)})
	repo.RecordView(ctx, &models.StoryView{StoryID: "new", ViewerID: 1, ViewedAt: now.Add(-time.Hour)})

	n, err := repo.DeleteViewedBefore(ctx, now.Add(-24*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("delete: n=%d err=%v", n, err)
	}
	views, _ := repo.GetViewsByStoryIDs(ctx, []string{"old", "new"})
	if len(views) != 1 || views[0].StoryID != "new" {
		t.Fatalf("expected only the recent view, got %+v", views)
	}
}

func TestCommentRepository_SoftDeleteByPost(t *testing.T) {
	db := newTestDB(t, &models.Comment{})
	repo := NewPostgresCommentRepository(db)
	ctx := context.Background()

	a := &models.Comment{PostID: "p1", AuthorID: 1, Content: "a"}
	b := &models.Comment{PostID: "p1", AuthorID: 2, Content: "b"}
	other := &models.Comment{PostID: "p2", AuthorID: 1, Content: "c"}
	for _, c := range []*models.Comment{a, b, other} {
		if err := repo.CreateComment(ctx, c); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	ids, err := repo.SoftDeleteByPost(ctx, "p1")
	if err != nil || len(ids) != 2 {
		t.Fatalf("soft delete: %v %v", ids, err)
	}
	if left, _ := repo.GetCommentsByPostID(ctx, "p1"); len(left) != 0 {
		t.Fatalf("p1 comments should be hidden, got %d", len(left))
	}
	if left, _ := repo.GetCommentsByPostID(ctx, "p2"); len(left) != 1 {
		t.Fatalf("other posts keep their comments, got %d", len(left))
	}
	if ids, err = repo.SoftDeleteByPost(ctx, "p1"); err != nil || len(ids) != 0 {
		t.Fatalf("second pass should be empty: %v %v", ids, err)
	}
}
