package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlogPost_Serialize(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	t.Run("Should concatenate the author name", func(t *testing.T) {
		post := BlogPost{
			ID:      "abc",
			Title:   "title",
			Content: "content",
			Author:  &Author{FirstName: "Billy", LastName: "Smith"},
			Created: created,
		}
		res := post.Serialize()
		assert.Equal(t, "Billy Smith", res.Author)
		assert.Equal(t, "abc", res.ID)
		assert.Equal(t, created, res.Created)
	})

	t.Run("Should render a missing author as empty", func(t *testing.T) {
		post := BlogPost{ID: "abc", Title: "t", Content: "c", Created: created}
		assert.Equal(t, "", post.Serialize().Author)
	})

	t.Run("Should expose exactly the public keys", func(t *testing.T) {
		post := BlogPost{ID: "abc", Title: "t", Content: "c", Created: created}
		data, err := json.Marshal(post.Serialize())
		require.NoError(t, err)

		var fields map[string]any
		require.NoError(t, json.Unmarshal(data, &fields))
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		assert.ElementsMatch(t, []string{"id", "title", "content", "author", "created"}, keys)
	})
}

func TestPostUpdate_Apply(t *testing.T) {
	title := "clickbait"
	post := BlogPost{
		ID:      "abc",
		Title:   "old",
		Content: "old content",
		Author:  &Author{FirstName: "Sally", LastName: "Smith"},
	}

	t.Run("Should leave nil fields untouched", func(t *testing.T) {
		p := post
		PostUpdate{Title: &title}.Apply(&p)
		assert.Equal(t, "clickbait", p.Title)
		assert.Equal(t, "old content", p.Content)
		assert.Equal(t, "Sally Smith", p.Author.Name())
	})

	t.Run("Should copy the author", func(t *testing.T) {
		p := post
		author := &Author{FirstName: "Setven", LastName: "Lewis"}
		PostUpdate{Author: author}.Apply(&p)
		author.FirstName = "changed"
		assert.Equal(t, "Setven Lewis", p.Author.Name())
	})

	t.Run("Should report empty updates", func(t *testing.T) {
		assert.True(t, PostUpdate{}.IsEmpty())
		assert.False(t, PostUpdate{Title: &title}.IsEmpty())
	})
}

func TestUpdatePostRequest_Decode(t *testing.T) {
	t.Run("Should ignore fields that are not updatable", func(t *testing.T) {
		body := `{"id":"1","title":"x","created":"2020-01-01T00:00:00Z","extra":true}`
		var req UpdatePostRequest
		require.NoError(t, json.Unmarshal([]byte(body), &req))
		upd := req.ToUpdate()
		require.NotNil(t, upd.Title)
		assert.Equal(t, "x", *upd.Title)
		assert.Nil(t, upd.Content)
		assert.Nil(t, upd.Author)
	})
}
