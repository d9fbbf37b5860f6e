package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hungpv1995/blog-api/internal/models"
)

func samplePost(title string) models.BlogPost {
	return models.BlogPost{
		Title:   title,
		Content: "Lorem ipsum dolor sit amet",
		Author:  &models.Author{FirstName: "Billy", LastName: "Smith"},
	}
}

func samplePosts(n int) []models.BlogPost {
	posts := make([]models.BlogPost, n)
	for i := range posts {
		posts[i] = samplePost("post")
	}
	return posts
}

// testPostStore runs the behaviour every backend must share
func testPostStore(t *testing.T, newStore func(t *testing.T) PostStore) {
	t.Run("Should create a post that can be found by id", func(t *testing.T) {
		ctx := t.Context()
		store := newStore(t)

		in := samplePost("hello")
		created, err := store.Create(ctx, &in)
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		assert.False(t, created.Created.IsZero())

		found, err := store.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, "hello", found.Title)
		assert.Equal(t, in.Content, found.Content)
		assert.Equal(t, in.Author, found.Author)
		assert.True(t, created.Created.Equal(found.Created))
	})

	t.Run("Should keep a post without author authorless", func(t *testing.T) {
		ctx := t.Context()
		store := newStore(t)

		created, err := store.Create(ctx, &models.BlogPost{Title: "t", Content: "c"})
		require.NoError(t, err)
		found, err := store.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, found.Author)
	})

	t.Run("Should seed, count and drop", func(t *testing.T) {
		ctx := t.Context()
		store := newStore(t)

		created, err := store.InsertMany(ctx, samplePosts(11))
		require.NoError(t, err)
		require.Len(t, created, 11)

		ids := map[string]bool{}
		for _, p := range created {
			ids[p.ID] = true
		}
		assert.Len(t, ids, 11)

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(11), n)

		all, err := store.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 11)

		require.NoError(t, store.DropDatabase(ctx))
		n, err = store.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("Should find one post when not empty", func(t *testing.T) {
		ctx := t.Context()
		store := newStore(t)

		_, err := store.FindOne(ctx)
		assert.ErrorIs(t, err, ErrPostNotFound)

		_, err = store.InsertMany(ctx, samplePosts(3))
		require.NoError(t, err)
		one, err := store.FindOne(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, one.ID)
	})

	t.Run("Should update fields without touching id or created", func(t *testing.T) {
		ctx := t.Context()
		store := newStore(t)

		in := samplePost("old")
		created, err := store.Create(ctx, &in)
		require.NoError(t, err)

		title, content := "clickbait", "blah blah blah"
		err = store.Update(ctx, created.ID, models.PostUpdate{
			Title:   &title,
			Content: &content,
			Author:  &models.Author{FirstName: "Setven", LastName: "Lewis"},
		})
		require.NoError(t, err)

		found, err := store.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, "clickbait", found.Title)
		assert.Equal(t, "blah blah blah", found.Content)
		assert.Equal(t, "Setven Lewis", found.Author.Name())
		assert.True(t, created.Created.Equal(found.Created))
	})

	t.Run("Should report missing posts", func(t *testing.T) {
		ctx := t.Context()
		store := newStore(t)
		missing := "0123456789abcdef01234567"

		_, err := store.FindByID(ctx, missing)
		assert.ErrorIs(t, err, ErrPostNotFound)

		title := "x"
		assert.ErrorIs(t, store.Update(ctx, missing, models.PostUpdate{Title: &title}), ErrPostNotFound)
		assert.ErrorIs(t, store.Update(ctx, missing, models.PostUpdate{}), ErrPostNotFound)
		assert.ErrorIs(t, store.Delete(ctx, missing), ErrPostNotFound)
	})

	t.Run("Should delete a post", func(t *testing.T) {
		ctx := t.Context()
		store := newStore(t)

		in := samplePost("bye")
		created, err := store.Create(ctx, &in)
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, created.ID))
		_, err = store.FindByID(ctx, created.ID)
		assert.ErrorIs(t, err, ErrPostNotFound)
	})
}
