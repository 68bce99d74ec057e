package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"poultrymarket/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	authorColumns = `id, user_id, display_name, bio, status, created_at, updated_at`
	postColumns   = `id, author_id, title, slug, excerpt, content, tags, status, view_count, published_at, created_at, updated_at`
)

// blogRepository implements the BlogRepository interface using PostgreSQL.
type blogRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewBlogRepository creates a new PostgreSQL-backed blog repository.
func NewBlogRepository(pool *pgxpool.Pool, logger zerolog.Logger) BlogRepository {
	return &blogRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "blog").Logger(),
	}
}

// CreateAuthor inserts an author application. One per user.
func (r *blogRepository) CreateAuthor(ctx context.Context, a *model.Author) error {
	query := `INSERT INTO authors (` + authorColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query, a.ID, a.UserID, a.DisplayName, a.Bio, a.Status, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.NewDomainError(model.ErrCodeConflict, "You have already applied as an author")
		}
		r.logger.Error().Err(err).Str("user_id", a.UserID.String()).Msg("failed to create author")
		return fmt.Errorf("failed to create author: %w", err)
	}

	return nil
}

// GetAuthor retrieves an author by id.
func (r *blogRepository) GetAuthor(ctx context.Context, id uuid.UUID) (*model.Author, error) {
	return r.getAuthor(ctx, `SELECT `+authorColumns+` FROM authors WHERE id = $1`, id)
}

// GetAuthorByUser retrieves the author profile of a user.
func (r *blogRepository) GetAuthorByUser(ctx context.Context, userID uuid.UUID) (*model.Author, error) {
	return r.getAuthor(ctx, `SELECT `+authorColumns+` FROM authors WHERE user_id = $1`, userID)
}

func (r *blogRepository) getAuthor(ctx context.Context, query string, arg any) (*model.Author, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query author")
		return nil, fmt.Errorf("failed to query author: %w", err)
	}

	a, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Author])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to scan author")
		return nil, fmt.Errorf("failed to scan author: %w", err)
	}

	return a, nil
}

// UpdateAuthorStatus records a review decision.
func (r *blogRepository) UpdateAuthorStatus(ctx context.Context, id uuid.UUID, status model.AuthorStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE authors SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		r.logger.Error().Err(err).Str("author_id", id.String()).Msg("failed to update author status")
		return fmt.Errorf("failed to update author status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrAuthorNotFound
	}

	return nil
}

// SlugsWithPrefix lists slugs that collide with base.
func (r *blogRepository) SlugsWithPrefix(ctx context.Context, base string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT slug FROM blog_posts WHERE slug = $1 OR slug LIKE $1 || '-%'`, base)
	if err != nil {
		r.logger.Error().Err(err).Str("slug", base).Msg("failed to query slugs")
		return nil, fmt.Errorf("failed to query slugs: %w", err)
	}

	slugs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan slugs: %w", err)
	}

	return slugs, nil
}

// CreatePost inserts a post. A slug collision yields a conflict.
func (r *blogRepository) CreatePost(ctx context.Context, p *model.Post) error {
	if p.Tags == nil {
		p.Tags = []string{}
	}

	query := `
		INSERT INTO blog_posts (` + postColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.AuthorID, p.Title, p.Slug, p.Excerpt, p.Content, p.Tags, p.Status,
		p.ViewCount, p.PublishedAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicate
		}
		r.logger.Error().Err(err).Str("slug", p.Slug).Msg("failed to create post")
		return fmt.Errorf("failed to create post: %w", err)
	}

	return nil
}

// GetPost retrieves a post by id.
func (r *blogRepository) GetPost(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	return r.getPost(ctx, `SELECT `+postColumns+` FROM blog_posts WHERE id = $1`, id)
}

// GetPostBySlug retrieves a post by slug.
func (r *blogRepository) GetPostBySlug(ctx context.Context, slug string) (*model.Post, error) {
	return r.getPost(ctx, `SELECT `+postColumns+` FROM blog_posts WHERE slug = $1`, slug)
}

func (r *blogRepository) getPost(ctx context.Context, query string, arg any) (*model.Post, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query post")
		return nil, fmt.Errorf("failed to query post: %w", err)
	}

	p, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Post])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to scan post")
		return nil, fmt.Errorf("failed to scan post: %w", err)
	}

	return p, nil
}

// UpdatePost writes the editable fields and publication state.
func (r *blogRepository) UpdatePost(ctx context.Context, p *model.Post) error {
	p.UpdatedAt = time.Now()
	if p.Tags == nil {
		p.Tags = []string{}
	}

	query := `
		UPDATE blog_posts
		SET title = $2, excerpt = $3, content = $4, tags = $5, status = $6, published_at = $7, updated_at = $8
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, p.ID, p.Title, p.Excerpt, p.Content, p.Tags, p.Status, p.PublishedAt, p.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("post_id", p.ID.String()).Msg("failed to update post")
		return fmt.Errorf("failed to update post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPostNotFound
	}

	return nil
}

// DeletePost removes a post and its comments.
func (r *blogRepository) DeletePost(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM blog_posts WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("post_id", id.String()).Msg("failed to delete post")
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPostNotFound
	}

	return nil
}

// ListPublished returns published posts, most recent first.
func (r *blogRepository) ListPublished(ctx context.Context, filter model.PostFilter) ([]model.Post, error) {
	limit, offset := pageBounds(filter.Page)

	query := `
		SELECT ` + postColumns + `
		FROM blog_posts
		WHERE status = 'PUBLISHED'
		  AND ($1 = '' OR $1 = ANY(tags))
		  AND ($2::uuid IS NULL OR author_id = $2)
		ORDER BY published_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, filter.Tag, filter.AuthorID, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query posts")
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}

	posts, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Post])
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to scan post rows")
		return nil, fmt.Errorf("failed to scan posts: %w", err)
	}

	return posts, nil
}

// IncrementViews bumps a post's view counter.
func (r *blogRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `UPDATE blog_posts SET view_count = view_count + 1 WHERE id = $1`, id); err != nil {
		r.logger.Error().Err(err).Str("post_id", id.String()).Msg("failed to increment views")
		return fmt.Errorf("failed to increment views: %w", err)
	}
	return nil
}

// AddComment stores a comment.
func (r *blogRepository) AddComment(ctx context.Context, c *model.Comment) error {
	query := `INSERT INTO blog_comments (id, post_id, user_id, body, created_at) VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.pool.Exec(ctx, query, c.ID, c.PostID, c.UserID, c.Body, c.CreatedAt); err != nil {
		r.logger.Error().Err(err).Str("post_id", c.PostID.String()).Msg("failed to add comment")
		return fmt.Errorf("failed to add comment: %w", err)
	}

	return nil
}

// ListComments returns a post's comments, oldest first.
func (r *blogRepository) ListComments(ctx context.Context, postID uuid.UUID, page model.Page) ([]model.Comment, error) {
	limit, offset := pageBounds(page)

	query := `
		SELECT id, post_id, user_id, body, created_at
		FROM blog_comments
		WHERE post_id = $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, postID, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Str("post_id", postID.String()).Msg("failed to query comments")
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}

	comments, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Comment])
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to scan comment rows")
		return nil, fmt.Errorf("failed to scan comments: %w", err)
	}

	return comments, nil
}
