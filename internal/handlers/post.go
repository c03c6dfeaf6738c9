package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"tribehub/internal/models"
	"tribehub/internal/services"
)

// PostHandler handles community feed endpoints
type PostHandler struct {
	postService     *services.PostService
	activityService *services.ActivityService
}

// NewPostHandler creates a new post handler
func NewPostHandler(postService *services.PostService, activityService *services.ActivityService) *PostHandler {
	return &PostHandler{
		postService:     postService,
		activityService: activityService,
	}
}

// List returns the workspace feed, newest first
// GET /api/posts?limit=25&offset=0
func (h *PostHandler) List(c *fiber.Ctx) error {
	userID, tenantID := locals(c)

	limit, _ := strconv.Atoi(c.Query("limit", "25"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	posts, err := h.postService.List(c.Context(), tenantID, userID, limit, offset)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"posts": posts,
		"count": len(posts),
	})
}

// Create publishes a post. Markdown is rendered server-side with raw HTML
// escaped, and members are notified per their preferences.
// POST /api/posts
func (h *PostHandler) Create(c *fiber.Ctx) error {
	userID, tenantID := locals(c)

	var req models.CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if strings.TrimSpace(req.Content) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Post content is required",
		})
	}

	post, err := h.postService.Create(c.Context(), tenantID, userID, &req)
	if err != nil {
		return serviceError(c, err)
	}

	h.activityService.Record(c.Context(), tenantID, userID, models.ActivityPostCreated, post.ID, "")
	return c.Status(fiber.StatusCreated).JSON(post)
}

// Get returns a single post with the caller's like state
// GET /api/posts/:id
func (h *PostHandler) Get(c *fiber.Ctx) error {
	userID, tenantID := locals(c)
	post, err := h.postService.Get(c.Context(), tenantID, c.Params("id"), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(post)
}

// Like records the caller's like; liking twice is a no-op
// POST /api/posts/:id/like
func (h *PostHandler) Like(c *fiber.Ctx) error {
	userID, tenantID := locals(c)
	if err := h.postService.Like(c.Context(), tenantID, c.Params("id"), userID); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Post liked",
	})
}

// Unlike removes the caller's like; the counter never goes below zero
// DELETE /api/posts/:id/like
func (h *PostHandler) Unlike(c *fiber.Ctx) error {
	userID, tenantID := locals(c)
	if err := h.postService.Unlike(c.Context(), tenantID, c.Params("id"), userID); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Like removed",
	})
}

// AddComment appends a comment and notifies the post author
// POST /api/posts/:id/comments
func (h *PostHandler) AddComment(c *fiber.Ctx) error {
	userID, tenantID := locals(c)

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if strings.TrimSpace(req.Content) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Comment content is required",
		})
	}

	comment, err := h.postService.AddComment(c.Context(), tenantID, c.Params("id"), userID, req.Content)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// ListComments returns a post's comments, oldest first
// GET /api/posts/:id/comments
func (h *PostHandler) ListComments(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	comments, err := h.postService.ListComments(c.Context(), tenantID, c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"comments": comments,
		"count":    len(comments),
	})
}

// Delete removes a post along with its likes and comments
// DELETE /api/posts/:id
func (h *PostHandler) Delete(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	if err := h.postService.Delete(c.Context(), tenantID, c.Params("id")); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Post deleted",
	})
}
