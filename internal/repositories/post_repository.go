package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-community/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	GetPostsByAuthor(ctx context.Context, authorID uint, skip, limit int64) ([]models.Post, error)
	GetAllPosts(ctx context.Context, skip, limit int64) ([]models.Post, error)
	CountPosts(ctx context.Context) (int64, error)
	CountByAuthor(ctx context.Context, authorID uint) (int64, error)
	SumLikesByAuthor(ctx context.Context, authorID uint) (int64, error)
	DeletePost(ctx context.Context, id string) error
	SetPinned(ctx context.Context, id string, pinned bool) error
	AddLikes(ctx context.Context, id string, delta int64) (int64, error)
	AddComments(ctx context.Context, id string, delta int64) (int64, error)
}

// MongoPostRepository implements PostRepository for MongoDB
type MongoPostRepository struct {
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection("posts")}
}

// EnsureIndexes creates the indexes listing queries rely on.
func (r *MongoPostRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "author_id", Value: 1}, {Key: "pinned", Value: -1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	return err
}

func (r *MongoPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	now := time.Now().UTC()
	post.ID = primitive.NewObjectID()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Visibility == "" {
		post.Visibility = models.VisibilityPublic
	}
	_, err := r.collection.InsertOne(ctx, post)
	return err
}

func (r *MongoPostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	objID, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var post models.Post
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&post); err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

// GetPostsByAuthor lists an author's posts, pinned ones first.
func (r *MongoPostRepository) GetPostsByAuthor(ctx context.Context, authorID uint, skip, limit int64) ([]models.Post, error) {
	opts := options.Find().SetSkip(skip).SetLimit(limit).
		SetSort(bson.D{{Key: "pinned", Value: -1}, {Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"author_id": authorID}, opts)
}

func (r *MongoPostRepository) GetAllPosts(ctx context.Context, skip, limit int64) ([]models.Post, error) {
	opts := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.D{}, opts)
}

func (r *MongoPostRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]models.Post, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *MongoPostRepository) CountPosts(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.D{})
}

func (r *MongoPostRepository) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"author_id": authorID})
}

// SumLikesByAuthor totals likes_count over an author's posts.
func (r *MongoPostRepository) SumLikesByAuthor(ctx context.Context, authorID uint) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "author_id", Value: authorID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$likes_count"}}},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

func (r *MongoPostRepository) DeletePost(ctx context.Context, id string) error {
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

func (r *MongoPostRepository) SetPinned(ctx context.Context, id string, pinned bool) error {
	objID, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID},
		bson.M{"$set": bson.M{"pinned": pinned, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddLikes adds delta to likes_count, floored at zero, and returns the new value.
func (r *MongoPostRepository) AddLikes(ctx context.Context, id string, delta int64) (int64, error) {
	post, err := r.addCounter(ctx, id, "likes_count", delta)
	if err != nil {
		return 0, err
	}
	return post.LikesCount, nil
}

// AddComments adds delta to comments_count, floored at zero, and returns the new value.
func (r *MongoPostRepository) AddComments(ctx context.Context, id string, delta int64) (int64, error) {
	post, err := r.addCounter(ctx, id, "comments_count", delta)
	if err != nil {
		return 0, err
	}
	return post.CommentsCount, nil
}

// addCounter runs a single pipeline update so the floor is applied by the server.
func (r *MongoPostRepository) addCounter(ctx context.Context, id, field string, delta int64) (*models.Post, error) {
	objID, err := objectID(id)
	if err != nil {
		return nil, err
	}
	update := mongo.Pipeline{{{Key: "$set", Value: bson.D{{Key: field, Value: flooredSum(field, delta)}}}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var post models.Post
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objID}, update, opts).Decode(&post); err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

// flooredSum is the aggregation expression max(0, field + delta).
func flooredSum(field string, delta int64) bson.D {
	current := bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, 0}}}
	return bson.D{{Key: "$max", Value: bson.A{0, bson.D{{Key: "$add", Value: bson.A{current, delta}}}}}}
}
