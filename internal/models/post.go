package models

import "time"

// Post is one community feed entry. Content is stored as the author's
// markdown; ContentHTML is the server-rendered version clients display.
type Post struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	AuthorID     string    `json:"author_id"`
	AuthorName   string    `json:"author_name,omitempty"`
	Content      string    `json:"content"`
	ContentHTML  string    `json:"content_html,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
	LikedByMe    bool      `json:"liked_by_me"`
	CreatedAt    time.Time `json:"created_at"`
}

// PostComment is one comment on a community post
type PostComment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreatePostRequest is the payload for POST /api/posts
type CreatePostRequest struct {
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
}
