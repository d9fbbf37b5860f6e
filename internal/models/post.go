package models

import (
	"strings"
	"time"
)

// Author is the composite author name of a post
type Author struct {
	FirstName string `json:"firstName" bson:"firstName" validate:"required"`
	LastName  string `json:"lastName" bson:"lastName" validate:"required"`
}

// Name returns the display name "First Last"
func (a *Author) Name() string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// BlogPost represents a blog post as stored
type BlogPost struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Author  *Author   `json:"author,omitempty"`
	Created time.Time `json:"created"`
}

// Serialize returns the public representation of the post
func (p *BlogPost) Serialize() PostResponse {
	return PostResponse{
		ID:      p.ID,
		Title:   p.Title,
		Content: p.Content,
		Author:  p.Author.Name(),
		Created: p.Created.UTC(),
	}
}

// PostResponse is the JSON shape returned by the API
type PostResponse struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Author  string    `json:"author"`
	Created time.Time `json:"created"`
}

// CreatePostRequest represents the request body for creating a post
type CreatePostRequest struct {
	Title   string  `json:"title" validate:"required"`
	Content string  `json:"content" validate:"required"`
	Author  *Author `json:"author" validate:"required"`
}

// ToPost converts the request into a post without id or timestamp
func (r *CreatePostRequest) ToPost() BlogPost {
	author := *r.Author
	return BlogPost{
		Title:   r.Title,
		Content: r.Content,
		Author:  &author,
	}
}

// UpdatePostRequest represents the request body for updating a post.
// Only title, content and author are updatable; other fields are ignored.
type UpdatePostRequest struct {
	ID      string  `json:"id" validate:"required"`
	Title   *string `json:"title" validate:"omitnil,min=1"`
	Content *string `json:"content" validate:"omitnil,min=1"`
	Author  *Author `json:"author" validate:"omitnil"`
}

// ToUpdate extracts the updatable fields
func (r *UpdatePostRequest) ToUpdate() PostUpdate {
	return PostUpdate{
		Title:   r.Title,
		Content: r.Content,
		Author:  r.Author,
	}
}

// PostUpdate holds a partial update; nil fields are left unchanged
type PostUpdate struct {
	Title   *string
	Content *string
	Author  *Author
}

// IsEmpty reports whether the update changes nothing
func (u PostUpdate) IsEmpty() bool {
	return u.Title == nil && u.Content == nil && u.Author == nil
}

// Apply applies the update to a post in place
func (u PostUpdate) Apply(post *BlogPost) {
	if u.Title != nil {
		post.Title = *u.Title
	}
	if u.Content != nil {
		post.Content = *u.Content
	}
	if u.Author != nil {
		author := *u.Author
		post.Author = &author
	}
}

// ErrorResponse is the JSON error body
type ErrorResponse struct {
	Message string `json:"message"`
}
