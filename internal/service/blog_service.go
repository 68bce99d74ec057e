package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"poultrymarket/internal/model"
	"poultrymarket/internal/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"
)

const (
	maxSlugLength    = 80
	maxCommentLength = 2000
	maxTags          = 10
)

// blogService implements BlogService.
type blogService struct {
	blog     repository.BlogRepository
	notifier Notifier
	logger   zerolog.Logger
}

// NewBlogService creates a new blog service.
func NewBlogService(blogRepo repository.BlogRepository, notifier Notifier, logger zerolog.Logger) BlogService {
	return &blogService{
		blog:     blogRepo,
		notifier: notifier,
		logger:   logger.With().Str("service", "blog").Logger(),
	}
}

// Apply registers the user as an author. Admin applications are approved immediately.
func (s *blogService) Apply(ctx context.Context, user *model.User, req *model.AuthorRequest) (*model.Author, error) {
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		name = user.FullName
	}
	if name == "" {
		return nil, model.Validationf("displayName is required")
	}

	now := time.Now()
	a := &model.Author{
		ID:          uuid.New(),
		UserID:      user.ID,
		DisplayName: name,
		Bio:         strings.TrimSpace(req.Bio),
		Status:      model.AuthorPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if user.IsAdmin() {
		a.Status = model.AuthorApproved
	}

	if err := s.blog.CreateAuthor(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info().Str("author_id", a.ID.String()).Str("status", string(a.Status)).Msg("author application received")
	return a, nil
}

func (s *blogService) MyAuthor(ctx context.Context, user *model.User) (*model.Author, error) {
	a, err := s.blog.GetAuthorByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, model.ErrAuthorNotFound
	}
	return a, nil
}

func (s *blogService) ReviewAuthor(ctx context.Context, admin *model.User, authorID uuid.UUID, approve bool) (*model.Author, error) {
	if !admin.IsAdmin() {
		return nil, model.ErrForbidden
	}

	a, err := s.blog.GetAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, model.ErrAuthorNotFound
	}

	status := model.AuthorRejected
	if approve {
		status = model.AuthorApproved
	}
	if err := s.blog.UpdateAuthorStatus(ctx, authorID, status); err != nil {
		return nil, err
	}
	a.Status = status
	a.UpdatedAt = time.Now()

	s.logger.Info().
		Str("author_id", authorID.String()).
		Str("admin_id", admin.ID.String()).
		Str("status", string(status)).
		Msg("author reviewed")

	s.notifier.Notify(ctx, model.NewNotification(a.UserID, model.NotifyAuthorReviewed, "Author application",
		"Your author application was "+strings.ToLower(string(status))+".",
		map[string]string{"authorId": a.ID.String()}))

	return a, nil
}

func (s *blogService) CreatePost(ctx context.Context, user *model.User, req *model.PostRequest) (*model.Post, error) {
	author, err := s.blog.GetAuthorByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if author == nil || author.Status != model.AuthorApproved {
		return nil, model.ErrForbidden
	}

	p := &model.Post{
		ID:       uuid.New(),
		AuthorID: author.ID,
		Status:   model.PostDraft,
	}
	if err := applyPost(p, req); err != nil {
		return nil, err
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt

	base := Slugify(p.Title)
	for attempt := 0; ; attempt++ {
		taken, err := s.blog.SlugsWithPrefix(ctx, base)
		if err != nil {
			return nil, err
		}
		p.Slug = uniqueSlug(base, taken)

		err = s.blog.CreatePost(ctx, p)
		if err == nil {
			break
		}
		// a concurrent writer took the slug between the lookup and the insert
		if errors.Is(err, model.ErrDuplicate) && attempt == 0 {
			continue
		}
		return nil, err
	}

	s.logger.Info().Str("post_id", p.ID.String()).Str("slug", p.Slug).Msg("post created")
	return p, nil
}

func (s *blogService) UpdatePost(ctx context.Context, user *model.User, id uuid.UUID, req *model.PostRequest) (*model.Post, error) {
	p, err := s.ownedPost(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if err := applyPost(p, req); err != nil {
		return nil, err
	}
	if err := s.blog.UpdatePost(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *blogService) DeletePost(ctx context.Context, user *model.User, id uuid.UUID) error {
	if _, err := s.ownedPost(ctx, user, id); err != nil {
		return err
	}
	if err := s.blog.DeletePost(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("post_id", id.String()).Str("user_id", user.ID.String()).Msg("post deleted")
	return nil
}

// PublishPost is idempotent; republishing keeps the first publication time.
func (s *blogService) PublishPost(ctx context.Context, user *model.User, id uuid.UUID) (*model.Post, error) {
	p, err := s.ownedPost(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if p.Status == model.PostPublished {
		return p, nil
	}

	now := time.Now()
	p.Status = model.PostPublished
	p.PublishedAt = &now
	if err := s.blog.UpdatePost(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info().Str("post_id", p.ID.String()).Str("slug", p.Slug).Msg("post published")
	return p, nil
}

func (s *blogService) ListPosts(ctx context.Context, filter model.PostFilter) ([]model.Post, error) {
	filter.Tag = strings.ToLower(strings.TrimSpace(filter.Tag))
	return s.blog.ListPublished(ctx, filter)
}

func (s *blogService) GetPostBySlug(ctx context.Context, viewer *model.User, postSlug string) (*model.Post, error) {
	p, err := s.blog.GetPostBySlug(ctx, postSlug)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, model.ErrPostNotFound
	}

	if p.Status != model.PostPublished {
		if viewer == nil {
			return nil, model.ErrPostNotFound
		}
		if ok, err := s.canEdit(ctx, viewer, p); err != nil {
			return nil, err
		} else if !ok {
			return nil, model.ErrPostNotFound
		}
		return p, nil
	}

	if err := s.blog.IncrementViews(ctx, p.ID); err != nil {
		s.logger.Warn().Err(err).Str("post_id", p.ID.String()).Msg("failed to count view")
	} else {
		p.ViewCount++
	}
	return p, nil
}

func (s *blogService) AddComment(ctx context.Context, user *model.User, postID uuid.UUID, req *model.CommentRequest) (*model.Comment, error) {
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, model.Validationf("body is required")
	}
	if len([]rune(body)) > maxCommentLength {
		return nil, model.Validationf("body must be at most %d characters", maxCommentLength)
	}

	p, err := s.publishedPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	c := &model.Comment{
		ID:        uuid.New(),
		PostID:    postID,
		UserID:    user.ID,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if err := s.blog.AddComment(ctx, c); err != nil {
		return nil, err
	}

	author, err := s.blog.GetAuthor(ctx, p.AuthorID)
	if err != nil {
		s.logger.Warn().Err(err).Str("post_id", postID.String()).Msg("failed to load post author")
	} else if author != nil && author.UserID != user.ID {
		s.notifier.Notify(ctx, model.NewNotification(author.UserID, model.NotifyNewComment, "New comment",
			fmt.Sprintf("%s commented on \"%s\".", user.FullName, p.Title),
			map[string]string{"postId": postID.String(), "slug": p.Slug, "commentId": c.ID.String()}))
	}

	return c, nil
}

func (s *blogService) ListComments(ctx context.Context, postID uuid.UUID, page model.Page) ([]model.Comment, error) {
	if _, err := s.publishedPost(ctx, postID); err != nil {
		return nil, err
	}
	return s.blog.ListComments(ctx, postID, page)
}

func (s *blogService) publishedPost(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	p, err := s.blog.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || p.Status != model.PostPublished {
		return nil, model.ErrPostNotFound
	}
	return p, nil
}

// ownedPost loads a post the user may edit. Other users' drafts look missing.
func (s *blogService) ownedPost(ctx context.Context, user *model.User, id uuid.UUID) (*model.Post, error) {
	p, err := s.blog.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, model.ErrPostNotFound
	}

	ok, err := s.canEdit(ctx, user, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		if p.Status != model.PostPublished {
			return nil, model.ErrPostNotFound
		}
		return nil, model.ErrForbidden
	}
	return p, nil
}

func (s *blogService) canEdit(ctx context.Context, user *model.User, p *model.Post) (bool, error) {
	if user.IsAdmin() {
		return true, nil
	}
	author, err := s.blog.GetAuthorByUser(ctx, user.ID)
	if err != nil {
		return false, err
	}
	return author != nil && author.ID == p.AuthorID, nil
}

func applyPost(p *model.Post, req *model.PostRequest) error {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return model.Validationf("title is required")
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return model.Validationf("content is required")
	}
	if len(req.Tags) > maxTags {
		return model.Validationf("at most %d tags are allowed", maxTags)
	}

	tags := make([]string, 0, len(req.Tags))
	seen := make(map[string]bool, len(req.Tags))
	for _, t := range req.Tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}

	p.Title = title
	p.Content = content
	p.Excerpt = strings.TrimSpace(req.Excerpt)
	p.Tags = tags
	return nil
}

// Slugify transliterates title to ASCII and hyphenates it, capped at maxSlugLength.
func Slugify(title string) string {
	s := slug.MakeLang(title, "en")
	if len(s) > maxSlugLength {
		s = strings.TrimRight(s[:maxSlugLength], "-_")
	}
	if s == "" {
		return "post"
	}
	return s
}

// uniqueSlug returns base, or base-N with the smallest N >= 2 not in taken.
func uniqueSlug(base string, taken []string) string {
	used := make(map[string]bool, len(taken))
	for _, t := range taken {
		used[t] = true
	}
	if !used[base] {
		return base
	}
	for n := 2; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if !used[candidate] {
			return candidate
		}
	}
}
