package repository

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/hungpv1995/blog-api/internal/models"
)

var (
	// ErrPostNotFound is returned when no post has the requested id
	ErrPostNotFound = errors.New("post not found")
	// ErrStoreUnavailable wraps connection and bulk write failures
	ErrStoreUnavailable = errors.New("store unavailable")
)

// PostStore is the set of operations the API and the test harness need
// from a backing store.
type PostStore interface {
	Create(ctx context.Context, post *models.BlogPost) (*models.BlogPost, error)
	InsertMany(ctx context.Context, posts []models.BlogPost) ([]models.BlogPost, error)
	FindAll(ctx context.Context) ([]models.BlogPost, error)
	FindOne(ctx context.Context) (*models.BlogPost, error)
	FindByID(ctx context.Context, id string) (*models.BlogPost, error)
	Update(ctx context.Context, id string, update models.PostUpdate) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	DropDatabase(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Open picks a backend from the connection string scheme.
//
//	mongodb://, mongodb+srv://  MongoDB
//	postgres://, postgresql://  PostgreSQL
//	sqlite://path, sqlite::memory:  SQLite
//	http://, https://           Elasticsearch
func Open(ctx context.Context, rawURL string) (PostStore, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}

	switch u.Scheme {
	case "mongodb", "mongodb+srv":
		return OpenMongo(ctx, rawURL)
	case "postgres", "postgresql":
		return OpenPostgres(ctx, rawURL)
	case "sqlite":
		return OpenSQLite(ctx, sqlitePath(u))
	case "http", "https":
		return OpenElastic(ctx, rawURL)
	default:
		return nil, fmt.Errorf("unsupported database url scheme %q", u.Scheme)
	}
}

func sqlitePath(u *url.URL) string {
	if u.Opaque != "" {
		return u.Opaque
	}
	return u.Host + u.Path
}

// prepareNew assigns an id and creation time to a post about to be inserted
func prepareNew(post models.BlogPost, id string) models.BlogPost {
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	}
	post.ID = id
	post.Created = time.Now().UTC().Truncate(time.Millisecond)
	if post.Author != nil {
		author := *post.Author
		post.Author = &author
	}
	return post
}
