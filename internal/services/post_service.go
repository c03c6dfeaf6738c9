package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"tribehub/internal/database"
	"tribehub/internal/models"
)

const maxPostLength = 10000

// postMarkdown renders author markdown into the stored HTML. Raw HTML in the
// source is escaped, not passed through.
var postMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Linkify),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// PostService manages the tenant's community feed. Like and comment counts
// are persisted on the post row so the feed never pays a COUNT per post.
type PostService struct {
	db            *database.DB
	notifications *NotificationService
}

// NewPostService creates a new post service. notifications may be nil.
func NewPostService(db *database.DB, notifications *NotificationService) *PostService {
	return &PostService{db: db, notifications: notifications}
}

// RenderMarkdown converts post markdown to HTML
func RenderMarkdown(content string) (string, error) {
	var buf bytes.Buffer
	if err := postMarkdown.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

// Create publishes a post and notifies the tenant's members
func (s *PostService) Create(ctx context.Context, tenantID, authorID string, req *models.CreatePostRequest) (*models.Post, error) {
	if req.Content == "" {
		return nil, fmt.Errorf("post content is required")
	}
	if len(req.Content) > maxPostLength {
		return nil, fmt.Errorf("post content exceeds %d characters", maxPostLength)
	}

	rendered, err := RenderMarkdown(req.Content)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		AuthorID:    authorID,
		Content:     req.Content,
		ContentHTML: rendered,
		ImageURL:    req.ImageURL,
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO posts (id, tenant_id, author_id, content, content_html, image_url) VALUES (?, ?, ?, ?, ?, ?)",
		post.ID, post.TenantID, post.AuthorID, post.Content, post.ContentHTML, post.ImageURL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	if s.notifications != nil {
		go func() {
			err := s.notifications.NotifyTenant(context.Background(), tenantID, authorID,
				models.NotificationNewPost, "New community post", truncate(req.Content, 140))
			if err != nil {
				log.Printf("⚠️ [POST] Failed to notify members: %v", err)
			}
		}()
	}
	return post, nil
}

// Get retrieves a post with viewer-specific like state
func (s *PostService) Get(ctx context.Context, tenantID, postID, viewerID string) (*models.Post, error) {
	post, err := scanPost(s.db.QueryRowContext(ctx,
		postSelect+" WHERE p.id = ? AND p.tenant_id = ?", viewerID, postID, tenantID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("post not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

// List returns the tenant's feed, newest first, with the viewer's like state
// joined in
func (s *PostService) List(ctx context.Context, tenantID, viewerID string, limit, offset int) ([]models.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		postSelect+" WHERE p.tenant_id = ? ORDER BY p.created_at DESC LIMIT ? OFFSET ?",
		viewerID, tenantID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

// Like records a like and bumps the persisted counter. Liking twice is a
// no-op.
func (s *PostService) Like(ctx context.Context, tenantID, postID, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM posts WHERE id = ? AND tenant_id = ?", postID, tenantID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check post: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("post not found")
	}

	result, err := tx.ExecContext(ctx,
		"INSERT IGNORE INTO post_likes (post_id, user_id) VALUES (?, ?)", postID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to like post: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE posts SET like_count = like_count + 1 WHERE id = ?", postID,
	); err != nil {
		return fmt.Errorf("failed to bump like count: %w", err)
	}
	return tx.Commit()
}

// Unlike removes a like and drops the persisted counter. Unliking a post the
// user never liked is a no-op.
func (s *PostService) Unlike(ctx context.Context, tenantID, postID, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"DELETE FROM post_likes WHERE post_id = ? AND user_id = ?", postID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to unlike post: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE posts SET like_count = GREATEST(like_count - 1, 0) WHERE id = ? AND tenant_id = ?", postID, tenantID,
	); err != nil {
		return fmt.Errorf("failed to drop like count: %w", err)
	}
	return tx.Commit()
}

// AddComment appends a comment and bumps the persisted counter in one
// transaction, then notifies the post author.
func (s *PostService) AddComment(ctx context.Context, tenantID, postID, authorID, content string) (*models.PostComment, error) {
	if content == "" {
		return nil, fmt.Errorf("comment content is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var postAuthor string
	err = tx.QueryRowContext(ctx,
		"SELECT author_id FROM posts WHERE id = ? AND tenant_id = ?", postID, tenantID,
	).Scan(&postAuthor)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("post not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check post: %w", err)
	}

	comment := &models.PostComment{
		ID:       uuid.New().String(),
		PostID:   postID,
		AuthorID: authorID,
		Content:  content,
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO post_comments (id, post_id, author_id, content) VALUES (?, ?, ?, ?)",
		comment.ID, comment.PostID, comment.AuthorID, comment.Content,
	); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE posts SET comment_count = comment_count + 1 WHERE id = ?", postID,
	); err != nil {
		return nil, fmt.Errorf("failed to bump comment count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit comment: %w", err)
	}

	if s.notifications != nil && postAuthor != authorID {
		go func() {
			_, err := s.notifications.Notify(context.Background(), tenantID, postAuthor,
				models.NotificationNewComment, "New comment on your post", truncate(content, 140))
			if err != nil {
				log.Printf("⚠️ [POST] Failed to notify author: %v", err)
			}
		}()
	}
	return comment, nil
}

// ListComments returns a post's comments, oldest first
func (s *PostService) ListComments(ctx context.Context, tenantID, postID string) ([]models.PostComment, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM posts WHERE id = ? AND tenant_id = ?", postID, tenantID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check post: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("post not found")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.post_id, c.author_id, u.name, c.content, c.created_at
		 FROM post_comments c
		 LEFT JOIN users u ON u.id = c.author_id
		 WHERE c.post_id = ? ORDER BY c.created_at`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []models.PostComment{}
	for rows.Next() {
		var c models.PostComment
		var authorName sql.NullString
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &authorName, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.AuthorName = authorName.String
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// Delete removes a post with its likes and comments. Only the author or a
// tenant manager may delete; the handler enforces that.
func (s *PostService) Delete(ctx context.Context, tenantID, postID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "DELETE FROM posts WHERE id = ? AND tenant_id = ?", postID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("post not found")
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM post_likes WHERE post_id = ?", postID); err != nil {
		return fmt.Errorf("failed to delete likes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM post_comments WHERE post_id = ?", postID); err != nil {
		return fmt.Errorf("failed to delete comments: %w", err)
	}
	return tx.Commit()
}

const postSelect = `SELECT p.id, p.tenant_id, p.author_id, u.name, p.content, p.content_html, p.image_url,
  p.like_count, p.comment_count, p.created_at,
  EXISTS(SELECT 1 FROM post_likes pl WHERE pl.post_id = p.id AND pl.user_id = ?)
FROM posts p
LEFT JOIN users u ON u.id = p.author_id`

func scanPost(row rowScanner) (*models.Post, error) {
	var p models.Post
	var authorName, contentHTML, imageURL sql.NullString
	err := row.Scan(&p.ID, &p.TenantID, &p.AuthorID, &authorName, &p.Content, &contentHTML, &imageURL,
		&p.LikeCount, &p.CommentCount, &p.CreatedAt, &p.LikedByMe)
	if err != nil {
		return nil, err
	}
	p.AuthorName = authorName.String
	p.ContentHTML = contentHTML.String
	p.ImageURL = imageURL.String
	return &p, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
