package repository

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/hungpv1995/blog-api/internal/models"
)

const (
	defaultMongoDatabase = "blog-app"
	mongoCollection      = "blogposts"
)

// mongoPost is the BSON document for a post
type mongoPost struct {
	ID      primitive.ObjectID `bson:"_id"`
	Title   string             `bson:"title"`
	Content string             `bson:"content"`
	Author  *models.Author     `bson:"author,omitempty"`
	Created time.Time          `bson:"created"`
}

func (d *mongoPost) toModel() models.BlogPost {
	return models.BlogPost{
		ID:      d.ID.Hex(),
		Title:   d.Title,
		Content: d.Content,
		Author:  d.Author,
		Created: d.Created.UTC(),
	}
}

// MongoPostStore stores posts in a MongoDB collection
type MongoPostStore struct {
	coll   *mongo.Collection
	client *mongo.Client
}

// NewMongoPostStore wraps an existing collection; the caller keeps ownership of the client
func NewMongoPostStore(coll *mongo.Collection) *MongoPostStore {
	return &MongoPostStore{coll: coll}
}

// OpenMongo connects to MongoDB using the database named in the URI path
func OpenMongo(ctx context.Context, uri string) (*MongoPostStore, error) {
	dbName := defaultMongoDatabase
	if u, err := url.Parse(uri); err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			dbName = name
		}
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to mongodb: %w", ErrStoreUnavailable, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: failed to ping mongodb: %w", ErrStoreUnavailable, err)
	}

	return &MongoPostStore{
		coll:   client.Database(dbName).Collection(mongoCollection),
		client: client,
	}, nil
}

func toMongoPost(post models.BlogPost, id primitive.ObjectID) mongoPost {
	return mongoPost{
		ID:      id,
		Title:   post.Title,
		Content: post.Content,
		Author:  post.Author,
		Created: post.Created,
	}
}

// Create inserts a single post
func (s *MongoPostStore) Create(ctx context.Context, post *models.BlogPost) (*models.BlogPost, error) {
	oid := primitive.NewObjectID()
	newPost := prepareNew(*post, oid.Hex())

	if _, err := s.coll.InsertOne(ctx, toMongoPost(newPost, oid)); err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}
	return &newPost, nil
}

// InsertMany inserts posts with an ordered bulk insert
func (s *MongoPostStore) InsertMany(ctx context.Context, posts []models.BlogPost) ([]models.BlogPost, error) {
	if len(posts) == 0 {
		return []models.BlogPost{}, nil
	}

	created := make([]models.BlogPost, 0, len(posts))
	docs := make([]any, 0, len(posts))
	for _, p := range posts {
		oid := primitive.NewObjectID()
		newPost := prepareNew(p, oid.Hex())
		created = append(created, newPost)
		docs = append(docs, toMongoPost(newPost, oid))
	}

	if _, err := s.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return nil, fmt.Errorf("%w: failed to insert posts: %w", ErrStoreUnavailable, err)
	}
	return created, nil
}

// FindAll returns every post, oldest first
func (s *MongoPostStore) FindAll(ctx context.Context) ([]models.BlogPost, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	var docs []mongoPost
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}

	posts := make([]models.BlogPost, 0, len(docs))
	for i := range docs {
		posts = append(posts, docs[i].toModel())
	}
	return posts, nil
}

// FindOne returns an arbitrary post
func (s *MongoPostStore) FindOne(ctx context.Context) (*models.BlogPost, error) {
	return s.findOne(ctx, bson.D{})
}

// FindByID retrieves a post by its ObjectID hex string
func (s *MongoPostStore) FindByID(ctx context.Context, id string) (*models.BlogPost, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrPostNotFound
	}
	return s.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (s *MongoPostStore) findOne(ctx context.Context, filter bson.D) (*models.BlogPost, error) {
	var doc mongoPost
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	post := doc.toModel()
	return &post, nil
}

// Update applies a partial update with $set
func (s *MongoPostStore) Update(ctx context.Context, id string, update models.PostUpdate) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrPostNotFound
	}
	if update.IsEmpty() {
		_, err := s.FindByID(ctx, id)
		return err
	}

	set := bson.D{}
	if update.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *update.Title})
	}
	if update.Content != nil {
		set = append(set, bson.E{Key: "content", Value: *update.Content})
	}
	if update.Author != nil {
		set = append(set, bson.E{Key: "author", Value: update.Author})
	}

	result, err := s.coll.UpdateByID(ctx, oid, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrPostNotFound
	}
	return nil
}

// Delete removes a post by its ID
func (s *MongoPostStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrPostNotFound
	}

	result, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrPostNotFound
	}
	return nil
}

// Count returns the number of stored posts
func (s *MongoPostStore) Count(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return n, nil
}

// DropDatabase drops the whole database holding the collection
func (s *MongoPostStore) DropDatabase(ctx context.Context) error {
	if err := s.coll.Database().Drop(ctx); err != nil {
		return fmt.Errorf("failed to drop database: %w", err)
	}
	return nil
}

// Ping checks the connection to the primary
func (s *MongoPostStore) Ping(ctx context.Context) error {
	if err := s.coll.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Close disconnects the client if the store opened it
func (s *MongoPostStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
