package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-community/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StoryRepository defines the interface for story documents
type StoryRepository interface {
	CreateStory(ctx context.Context, story *models.Story) error
	GetStoryByID(ctx context.Context, id string) (*models.Story, error)
	GetActiveStoriesByOwner(ctx context.Context, ownerID uint, now time.Time) ([]models.Story, error)
	DeleteStory(ctx context.Context, id string) error
	DeleteExpiredStories(ctx context.Context, now time.Time) ([]string, error)
}

// StoryViewRepository defines the interface for per-viewer story views
type StoryViewRepository interface {
	RecordView(ctx context.Context, view *models.StoryView) (bool, error)
	GetViewsByStoryIDs(ctx context.Context, storyIDs []string) ([]models.StoryView, error)
	DeleteViews(ctx context.Context, storyIDs []string) error
	DeleteViewedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MongoStoryRepository implements StoryRepository for MongoDB
type MongoStoryRepository struct {
	collection *mongo.Collection
}

func NewMongoStoryRepository(db *mongo.Database) *MongoStoryRepository {
	return &MongoStoryRepository{collection: db.Collection("stories")}
}

// EnsureIndexes creates the owner listing index and a TTL index that lets the
// server drop stories once expires_at has passed.
func (r *MongoStoryRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "expires_at", Value: 1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	})
	return err
}

// CreateStory stores the story with expires_at fixed at creation time.
func (r *MongoStoryRepository) CreateStory(ctx context.Context, story *models.Story) error {
	story.ID = primitive.NewObjectID()
	if story.CreatedAt.IsZero() {
		story.CreatedAt = time.Now().UTC()
	}
	story.ExpiresAt = story.CreatedAt.Add(models.StoryTTL)
	_, err := r.collection.InsertOne(ctx, story)
	return err
}

func (r *MongoStoryRepository) GetStoryByID(ctx context.Context, id string) (*models.Story, error) {
	objID, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var story models.Story
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&story); err != nil {
		return nil, notFound(err)
	}
	return &story, nil
}

// GetActiveStoriesByOwner lists an owner's visible stories in playback order.
func (r *MongoStoryRepository) GetActiveStoriesByOwner(ctx context.Context, ownerID uint, now time.Time) ([]models.Story, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, activeStoriesFilter(ownerID, now), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	stories := []models.Story{}
	if err := cursor.All(ctx, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

// activeStoriesFilter matches stories with created_at >= now-24h, expressed on expires_at.
func activeStoriesFilter(ownerID uint, now time.Time) bson.M {
	return bson.M{
		"owner_id":   ownerID,
		"expires_at": bson.M{"$gte": now},
	}
}

func (r *MongoStoryRepository) DeleteStory(ctx context.Context, id string) error {
	objID, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpiredStories removes stories whose window closed before now and returns their ids.
func (r *MongoStoryRepository) DeleteExpiredStories(ctx context.Context, now time.Time) ([]string, error) {
	filter := bson.M{"expires_at": bson.M{"$lt": now}}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	objIDs := make([]primitive.ObjectID, len(rows))
	ids := make([]string, len(rows))
	for i, row := range rows {
		objIDs[i] = row.ID
		ids[i] = row.ID.Hex()
	}
	if _, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": objIDs}}); err != nil {
		return nil, err
	}
	return ids, nil
}

// PostgresStoryViewRepository implements StoryViewRepository with gorm
type PostgresStoryViewRepository struct {
	db *gorm.DB
}

func NewPostgresStoryViewRepository(db *gorm.DB) *PostgresStoryViewRepository {
	return &PostgresStoryViewRepository{db: db}
}

// RecordView inserts the view unless the viewer already has one on the story.
// It reports whether a row was inserted.
func (r *PostgresStoryViewRepository) RecordView(ctx context.Context, view *models.StoryView) (bool, error) {
	if view.ViewedAt.IsZero() {
		view.ViewedAt = time.Now().UTC()
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "story_id"}, {Name: "viewer_id"}},
		DoNothing: true,
	}).Create(view)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresStoryViewRepository) GetViewsByStoryIDs(ctx context.Context, storyIDs []string) ([]models.StoryView, error) {
	views := []models.StoryView{}
	if len(storyIDs) == 0 {
		return views, nil
	}
	err := r.db.WithContext(ctx).Where("story_id IN ?", storyIDs).
		Order("viewed_at ASC").Find(&views).Error
	return views, err
}

func (r *PostgresStoryViewRepository) DeleteViews(ctx context.Context, storyIDs []string) error {
	if len(storyIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("story_id IN ?", storyIDs).Delete(&models.StoryView{}).Error
}

// DeleteViewedBefore drops views recorded before cutoff and returns how many went.
func (r *PostgresStoryViewRepository) DeleteViewedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("viewed_at < ?", cutoff).Delete(&models.StoryView{})
	return res.RowsAffected, res.Error
}
