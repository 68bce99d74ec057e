package model

import (
	"time"

	"github.com/google/uuid"
)

// AuthorStatus is the review state of an author application.
type AuthorStatus string

const (
	AuthorPending  AuthorStatus = "PENDING"
	AuthorApproved AuthorStatus = "APPROVED"
	AuthorRejected AuthorStatus = "REJECTED"
)

// PostStatus is the publication state of a blog post.
type PostStatus string

const (
	PostDraft     PostStatus = "DRAFT"
	PostPublished PostStatus = "PUBLISHED"
)

// Author is a user allowed (once approved) to write blog posts.
type Author struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	UserID      uuid.UUID    `json:"userId" db:"user_id"`
	DisplayName string       `json:"displayName" db:"display_name"`
	Bio         string       `json:"bio" db:"bio"`
	Status      AuthorStatus `json:"status" db:"status"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time    `json:"updatedAt" db:"updated_at"`
}

// Post is a blog article.
type Post struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	AuthorID    uuid.UUID  `json:"authorId" db:"author_id"`
	Title       string     `json:"title" db:"title"`
	Slug        string     `json:"slug" db:"slug"`
	Excerpt     string     `json:"excerpt" db:"excerpt"`
	Content     string     `json:"content" db:"content"`
	Tags        []string   `json:"tags" db:"tags"`
	Status      PostStatus `json:"status" db:"status"`
	ViewCount   int        `json:"viewCount" db:"view_count"`
	PublishedAt *time.Time `json:"publishedAt,omitempty" db:"published_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// Comment is a reader's reply to a post.
type Comment struct {
	ID        uuid.UUID `json:"id" db:"id"`
	PostID    uuid.UUID `json:"postId" db:"post_id"`
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// AuthorRequest is the payload for POST /api/blog/authors.
type AuthorRequest struct {
	DisplayName string `json:"displayName"`
	Bio         string `json:"bio"`
}

// PostRequest is the payload for creating or updating a post.
type PostRequest struct {
	Title   string   `json:"title"`
	Excerpt string   `json:"excerpt"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// PostFilter narrows public post listings.
type PostFilter struct {
	Tag      string
	AuthorID *uuid.UUID
	Page
}

// CommentRequest is the payload for POST /api/blog/posts/{id}/comments.
type CommentRequest struct {
	Body string `json:"body"`
}
