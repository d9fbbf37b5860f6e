// Package seed produces blog posts for seeding a store and clears it again.
package seed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/hungpv1995/blog-api/internal/models"
	"github.com/hungpv1995/blog-api/internal/repository"
)

// Generator produces one valid BlogPost per call
type Generator interface {
	Generate() models.BlogPost
}

// GeneratorFunc adapts a function to Generator
type GeneratorFunc func() models.BlogPost

func (f GeneratorFunc) Generate() models.BlogPost { return f() }

var authorPool = []models.Author{
	{FirstName: "Billy", LastName: "Smith"},
	{FirstName: "Sally", LastName: "Smith"},
	{FirstName: "Wilson", LastName: "Wilters"},
	{FirstName: "Tabernacle", LastName: "Jeff"},
}

const loremIpsum = "Lorem ipsum dolor sit amet, consectetur adipisicing elit, sed do eiusmod tempor " +
	"incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud exercitation " +
	"ullamco laboris nisi ut aliquip ex ea commodo consequat. Duis aute irure dolor in reprehenderit in " +
	"voluptate velit esse cillum dolore eu fugiat nulla pariatur. Excepteur sint occaecat cupidatat non " +
	"proident, sunt in culpa qui officia deserunt mollit anim id est laborum."

// PoolGenerator picks authors from a small fixed pool, numbers a clickbait
// title ("1520 things -- ...", a number from 10 to 20 followed by "20") and
// uses placeholder content.
type PoolGenerator struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
}

// NewPoolGenerator creates a PoolGenerator; seed 0 picks a random seed
func NewPoolGenerator(seed int64) *PoolGenerator {
	return &PoolGenerator{faker: gofakeit.New(seed)}
}

func (g *PoolGenerator) Generate() models.BlogPost {
	g.mu.Lock()
	defer g.mu.Unlock()

	author := authorPool[g.faker.Number(0, len(authorPool)-1)]
	return models.BlogPost{
		Title:   fmt.Sprintf("%d20 things -- you won't believe #4", g.faker.Number(10, 20)),
		Content: loremIpsum,
		Author:  &author,
	}
}

// FakeGenerator fills every field with realistic fake data
type FakeGenerator struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
}

// NewFakeGenerator creates a FakeGenerator; seed 0 picks a random seed
func NewFakeGenerator(seed int64) *FakeGenerator {
	return &FakeGenerator{faker: gofakeit.New(seed)}
}

func (g *FakeGenerator) Generate() models.BlogPost {
	g.mu.Lock()
	defer g.mu.Unlock()

	return models.BlogPost{
		Title:   g.faker.Sentence(6),
		Content: g.faker.Paragraph(2, 4, 12, " "),
		Author: &models.Author{
			FirstName: g.faker.FirstName(),
			LastName:  g.faker.LastName(),
		},
	}
}

// FixtureGenerator cycles through a fixed list of posts
type FixtureGenerator struct {
	mu    sync.Mutex
	posts []models.BlogPost
	next  int
}

// ErrNoFixtures is returned when a FixtureGenerator is given no posts
var ErrNoFixtures = errors.New("fixture generator needs at least one post")

func NewFixtureGenerator(posts ...models.BlogPost) (*FixtureGenerator, error) {
	if len(posts) == 0 {
		return nil, ErrNoFixtures
	}
	return &FixtureGenerator{posts: posts}, nil
}

func (g *FixtureGenerator) Generate() models.BlogPost {
	g.mu.Lock()
	defer g.mu.Unlock()

	post := g.posts[g.next%len(g.posts)]
	g.next++
	if post.Author != nil {
		author := *post.Author
		post.Author = &author
	}
	return post
}

// ByName returns the generator registered under name
func ByName(name string, seed int64) (Generator, error) {
	switch name {
	case "pool":
		return NewPoolGenerator(seed), nil
	case "fake":
		return NewFakeGenerator(seed), nil
	default:
		return nil, fmt.Errorf("unknown generator %q (want pool or fake)", name)
	}
}

// Posts generates n posts
func Posts(gen Generator, n int) []models.BlogPost {
	posts := make([]models.BlogPost, n)
	for i := range posts {
		posts[i] = gen.Generate()
	}
	return posts
}

// Seed inserts n generated posts in one batch
func Seed(ctx context.Context, store repository.PostStore, gen Generator, n int) ([]models.BlogPost, error) {
	created, err := store.InsertMany(ctx, Posts(gen, n))
	if err != nil {
		return nil, fmt.Errorf("failed to seed posts: %w", err)
	}
	return created, nil
}

// TearDown drops all stored posts
func TearDown(ctx context.Context, store repository.PostStore) error {
	if err := store.DropDatabase(ctx); err != nil {
		return fmt.Errorf("failed to tear down store: %w", err)
	}
	return nil
}
