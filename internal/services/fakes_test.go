package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/anonto42/nano-community/backend/internal/billing/kiwify"
	"github.com/anonto42/nano-community/backend/internal/models"
	"github.com/anonto42/nano-community/backend/internal/repositories"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	err = db.AutoMigrate(
		&models.Account{}, &models.Comment{}, &models.Like{},
		&models.SavedPost{}, &models.Notification{}, &models.StoryView{},
	)
	if err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// clock is a settable time source shared by services under test.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *clock { return &clock{t: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// memPosts is an in-memory PostRepository.
type memPosts struct {
	mu    sync.Mutex
	posts map[string]*models.Post
}

func newMemPosts() *memPosts { return &memPosts{posts: map[string]*models.Post{}} }

func (m *memPosts) CreatePost(_ context.Context, p *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = primitive.NewObjectID()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.Visibility == "" {
		p.Visibility = models.VisibilityPublic
	}
	cp := *p
	m.posts[p.ID.Hex()] = &cp
	return nil
}

func (m *memPosts) get(id string) (*models.Post, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, repositories.ErrInvalidID
	}
	p, ok := m.posts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return p, nil
}

func (m *memPosts) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.get(id)
	if err != nil {
		return nil, err
	}
	cp := *p
	return &cp, nil
}

func (m *memPosts) list(filter func(*models.Post) bool, skip, limit int64) []models.Post {
	var out []models.Post
	for _, p := range m.posts {
		if filter(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pinned != out[j].Pinned {
			return out[i].Pinned
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if skip >= int64(len(out)) {
		return []models.Post{}
	}
	out = out[skip:]
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out
}

func (m *memPosts) GetPostsByAuthor(_ context.Context, authorID uint, skip, limit int64) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(p *models.Post) bool { return p.AuthorID == authorID }, skip, limit), nil
}

func (m *memPosts) GetAllPosts(_ context.Context, skip, limit int64) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(*models.Post) bool { return true }, skip, limit), nil
}

func (m *memPosts) CountPosts(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.posts)), nil
}

func (m *memPosts) CountByAuthor(_ context.Context, authorID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.posts {
		if p.AuthorID == authorID {
			n++
		}
	}
	return n, nil
}

func (m *memPosts) SumLikesByAuthor(_ context.Context, authorID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.posts {
		if p.AuthorID == authorID {
			n += p.LikesCount
		}
	}
	return n, nil
}

func (m *memPosts) DeletePost(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.get(id); err != nil {
		return err
	}
	delete(m.posts, id)
	return nil
}

func (m *memPosts) SetPinned(_ context.Context, id string, pinned bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.get(id)
	if err != nil {
		return err
	}
	p.Pinned = pinned
	return nil
}

func floorAdd(v *int64, delta int64) int64 {
	*v += delta
	if *v < 0 {
		*v = 0
	}
	return *v
}

func (m *memPosts) AddLikes(_ context.Context, id string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.get(id)
	if err != nil {
		return 0, err
	}
	return floorAdd(&p.LikesCount, delta), nil
}

func (m *memPosts) AddComments(_ context.Context, id string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.get(id)
	if err != nil {
		return 0, err
	}
	return floorAdd(&p.CommentsCount, delta), nil
}

// memStories is an in-memory StoryRepository with the same expiry rules as the mongo one.
type memStories struct {
	mu      sync.Mutex
	stories map[string]*models.Story
}

func newMemStories() *memStories { return &memStories{stories: map[string]*models.Story{}} }

func (m *memStories) CreateStory(_ context.Context, s *models.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = primitive.NewObjectID()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	s.ExpiresAt = s.CreatedAt.Add(models.StoryTTL)
	cp := *s
	m.stories[s.ID.Hex()] = &cp
	return nil
}

func (m *memStories) GetStoryByID(_ context.Context, id string) (*models.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, repositories.ErrInvalidID
	}
	s, ok := m.stories[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStories) GetActiveStoriesByOwner(_ context.Context, ownerID uint, now time.Time) ([]models.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Story{}
	for _, s := range m.stories {
		if s.OwnerID == ownerID && !s.ExpiresAt.Before(now) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStories) DeleteStory(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stories[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.stories, id)
	return nil
}

func (m *memStories) DeleteExpiredStories(_ context.Context, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, s := range m.stories {
		if s.ExpiresAt.Before(now) {
			ids = append(ids, id)
			delete(m.stories, id)
		}
	}
	return ids, nil
}

// memMedia records uploads and returns a deterministic URL.
type memMedia struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemMedia() *memMedia {
	return &memMedia{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memMedia) Put(_ context.Context, key, contentType string, r io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = buf.Bytes()
	m.types[key] = contentType
	return "https://media.test/" + key, nil
}

// recordingPublisher captures realtime pushes.
type recordingPublisher struct {
	mu   sync.Mutex
	sent map[uint]int
}

func (p *recordingPublisher) Publish(accountID uint, _ []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sent == nil {
		p.sent = map[uint]int{}
	}
	p.sent[accountID]++
}

func (p *recordingPublisher) count(id uint) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent[id]
}

type stubVerifier struct {
	identity *IdentityToken
	err      error
}

func (v stubVerifier) VerifyIDToken(context.Context, string) (*IdentityToken, error) {
	return v.identity, v.err
}

type stubSales struct {
	byWindow func(kiwify.Window) []kiwify.Sale
	calls    int
	err      error
}

func (s *stubSales) ListSales(_ context.Context, w kiwify.Window) ([]kiwify.Sale, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.byWindow(w), nil
}

// env wires every service over one sqlite database and in-memory documents.
type env struct {
	db            *gorm.DB
	clock         *clock
	accounts      repositories.AccountRepository
	comments      repositories.CommentRepository
	notifRepo     repositories.NotificationRepository
	posts         *memPosts
	stories       *memStories
	media         *memMedia
	publisher     *recordingPublisher
	notifications *NotificationService
	interactions  *InteractionService
	postSvc       *PostService
	commentSvc    *CommentService
	storySvc      *StoryService
	accountSvc    *AccountService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := newTestDB(t)
	e := &env{
		db:        db,
		clock:     newClock(time.Now().UTC().Truncate(time.Second)),
		accounts:  repositories.NewPostgresAccountRepository(db),
		comments:  repositories.NewPostgresCommentRepository(db),
		notifRepo: repositories.NewPostgresNotificationRepository(db),
		posts:     newMemPosts(),
		stories:   newMemStories(),
		media:     newMemMedia(),
		publisher: &recordingPublisher{},
	}
	likes := repositories.NewPostgresLikeRepository(db)
	saves := repositories.NewPostgresSavedPostRepository(db)

	e.notifications = NewNotificationService(e.notifRepo, e.accounts, e.publisher)
	e.notifications.Now = e.clock.Now
	e.interactions = NewInteractionService(likes, saves, e.posts, e.comments, e.accounts, e.notifications)
	e.postSvc = &PostService{
		Posts: e.posts, Accounts: e.accounts, Comments: e.comments, Likes: likes, Saves: saves,
		Notifications: e.notifRepo, Interactions: e.interactions,
	}
	e.commentSvc = &CommentService{
		Comments: e.comments, Posts: e.posts, Accounts: e.accounts,
		Likes: likes, Notifications: e.notifRepo, Notifier: e.notifications,
	}
	e.storySvc = &StoryService{
		Stories:  e.stories,
		ViewLog:  repositories.NewPostgresStoryViewRepository(db),
		Accounts: e.accounts,
		Media:    e.media,
		Limits:   testLimits,
		Now:      e.clock.Now,
	}
	e.accountSvc = &AccountService{
		Accounts: e.accounts, Posts: e.posts, Comments: e.comments,
		Secret: []byte("test-secret"), TokenTTL: time.Hour, Now: e.clock.Now,
	}
	return e
}

func (e *env) account(t *testing.T, name string) *models.Account {
	t.Helper()
	a := &models.Account{Name: name, Email: name + "@example.com"}
	if err := e.accounts.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("seed account %s: %v", name, err)
	}
	return a
}

func (e *env) post(t *testing.T, authorID uint, content string) string {
	t.Helper()
	p, err := e.postSvc.Create(context.Background(), authorID, models.CreatePostRequest{Content: content})
	if err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return p.ID.Hex()
}
