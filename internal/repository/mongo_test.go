package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/hungpv1995/blog-api/internal/models"
)

func namespace(mt *mtest.T) string {
	return fmt.Sprintf("%s.%s", mt.DB.Name(), mt.Coll.Name())
}

func postDoc(id primitive.ObjectID, title string, created time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "title", Value: title},
		{Key: "content", Value: "content"},
		{Key: "author", Value: bson.D{
			{Key: "firstName", Value: "Wilson"},
			{Key: "lastName", Value: "Wilters"},
		}},
		{Key: "created", Value: primitive.NewDateTimeFromTime(created)},
	}
}

func TestMongoPostStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mt.Run("Should create a post with an ObjectID", func(mt *mtest.T) {
		store := NewMongoPostStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		in := samplePost("hello")
		post, err := store.Create(mt.Context(), &in)
		require.NoError(mt, err)
		_, err = primitive.ObjectIDFromHex(post.ID)
		assert.NoError(mt, err)
		assert.Equal(mt, "hello", post.Title)
		assert.False(mt, post.Created.IsZero())
	})

	mt.Run("Should insert many posts", func(mt *mtest.T) {
		store := NewMongoPostStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		posts, err := store.InsertMany(mt.Context(), samplePosts(10))
		require.NoError(mt, err)
		assert.Len(mt, posts, 10)
	})

	mt.Run("Should abort the batch on a write error", func(mt *mtest.T) {
		store := NewMongoPostStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   3,
			Code:    11000,
			Message: "duplicate key error",
		}))

		_, err := store.InsertMany(mt.Context(), samplePosts(10))
		assert.ErrorIs(mt, err, ErrStoreUnavailable)
	})

	mt.Run("Should find a post by id", func(mt *mtest.T) {
		store := NewMongoPostStore(mt.Coll)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			postDoc(id, "found", created)))

		post, err := store.FindByID(mt.Context(), id.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), post.ID)
		assert.Equal(mt, "found", post.Title)
		assert.Equal(mt, "Wilson Wilters", post.Author.Name())
		assert.True(mt, created.Equal(post.Created))
	})

	mt.Run("Should report a missing post", func(mt *mtest.T) {
		store := NewMongoPostStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		_, err := store.FindByID(mt.Context(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, ErrPostNotFound)
	})

	mt.Run("Should treat malformed ids as missing", func(mt *mtest.T) {
		store := NewMongoPostStore(mt.Coll)

		_, err := store.FindByID(mt.Context(), "not-an-object-id")
		assert.ErrorIs(mt, err, ErrPostNotFound)
		assert.ErrorIs(mt, store.Delete(mt.Context(), "nope"), ErrPostNotFound)
		title := "x"
		assert.ErrorIs(mt, store.Update(mt.Context(), "nope", models.PostUpdate{Title: &title}), ErrPostNotFound)
	})

	mt.Run("Should list all posts", func(mt *mtest.T) {
		store := NewMongoPostStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			postDoc(primitive.NewObjectID(), "a", created),
			postDoc(primitive.NewObjectID(), "b", created.Add(time.Second)),
		))

		posts, err := store.FindAll(mt.Context())
		require.NoError(mt, err)
		require.Len(mt, posts, 2)
		assert.Equal(mt, "a", posts[0].Title)
		assert.Equal(mt, "b", posts[1].Title)
	})

	mt.Run("Should find one post", func(mt *mtest.T) {
		store := NewMongoPostStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			postDoc(primitive.NewObjectID(), "any", created)))

		post, err := store.FindOne(mt.Context())
		require.NoError(mt, err)
		assert.Equal(mt, "any", post.Title)
	})

	mt.Run("Should count documents", func(mt *mtest.T) {
		store := NewMongoPostStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			bson.D{{Key: "n", Value: int32(11)}}))

		n, err := store.Count(mt.Context())
		require.NoError(mt, err)
		assert.Equal(mt, int64(11), n)
	})

	mt.Run("Should update an existing post", func(mt *mtest.T) {
		store := NewMongoPostStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		title := "clickbait"
		err := store.Update(mt.Context(), primitive.NewObjectID().Hex(), models.PostUpdate{
			Title:  &title,
			Author: &models.Author{FirstName: "Setven", LastName: "Lewis"},
		})
		assert.NoError(mt, err)
	})

	mt.Run("Should report updates that match nothing", func(mt *mtest.T) {
		store := NewMongoPostStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		title := "clickbait"
		err := store.Update(mt.Context(), primitive.NewObjectID().Hex(), models.PostUpdate{Title: &title})
		assert.ErrorIs(mt, err, ErrPostNotFound)
	})

	mt.Run("Should delete a post", func(mt *mtest.T) {
		store := NewMongoPostStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		assert.NoError(mt, store.Delete(mt.Context(), primitive.NewObjectID().Hex()))
	})

	mt.Run("Should report deletes that match nothing", func(mt *mtest.T) {
		store := NewMongoPostStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		assert.ErrorIs(mt, store.Delete(mt.Context(), primitive.NewObjectID().Hex()), ErrPostNotFound)
	})

	mt.Run("Should drop the database", func(mt *mtest.T) {
		store := NewMongoPostStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(mt, store.DropDatabase(mt.Context()))
	})
}
