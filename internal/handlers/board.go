package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"tribehub/internal/models"
	"tribehub/internal/services"
	"tribehub/internal/views"
)

// BoardHandler handles kanban column, task and playbook endpoints
type BoardHandler struct {
	boardService    *services.BoardService
	activityService *services.ActivityService
}

// NewBoardHandler creates a new board handler
func NewBoardHandler(boardService *services.BoardService, activityService *services.ActivityService) *BoardHandler {
	return &BoardHandler{
		boardService:    boardService,
		activityService: activityService,
	}
}

// ListColumns returns the workspace's ordered column set
// GET /api/board/columns
func (h *BoardHandler) ListColumns(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	columns, err := h.boardService.ListColumns(c.Context(), tenantID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"columns": columns,
		"count":   len(columns),
	})
}

// CreateColumn appends a custom column to the board
// POST /api/board/columns
func (h *BoardHandler) CreateColumn(c *fiber.Ctx) error {
	_, tenantID := locals(c)

	var req struct {
		Title string `json:"title"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Column title is required",
		})
	}

	column, err := h.boardService.CreateColumn(c.Context(), tenantID, req.Title)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(column)
}

// RenameColumn changes a column's display title, keeping its key stable
// PUT /api/board/columns/:id
func (h *BoardHandler) RenameColumn(c *fiber.Ctx) error {
	_, tenantID := locals(c)

	var req struct {
		Title string `json:"title"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.boardService.RenameColumn(c.Context(), tenantID, c.Params("id"), req.Title); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Column renamed",
	})
}

// DeleteColumn removes an empty custom column
// DELETE /api/board/columns/:id
func (h *BoardHandler) DeleteColumn(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	if err := h.boardService.DeleteColumn(c.Context(), tenantID, c.Params("id")); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Column deleted",
	})
}

// ListTasks returns the workspace's tasks, optionally filtered by status
// GET /api/tasks?status=TODO
func (h *BoardHandler) ListTasks(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	tasks, err := h.boardService.ListTasks(c.Context(), tenantID, c.Query("status"))
	if err != nil {
		return serviceError(c, err)
	}

	tasks = views.Apply(tasks, views.TaskFilter{
		Label:    c.Query("label"),
		Assignee: c.Query("assignee"),
		Overdue:  c.Query("overdue") == "true",
	})

	if key := c.Query("group_by"); key != "" {
		var sequence []string
		if key == views.GroupByStatus {
			if sequence, err = h.boardService.ColumnSequence(c.Context(), tenantID); err != nil {
				return serviceError(c, err)
			}
		}
		order, buckets := views.Group(tasks, key, sequence)
		return c.JSON(fiber.Map{
			"group_by": key,
			"order":    order,
			"groups":   buckets,
			"count":    len(tasks),
		})
	}

	return c.JSON(fiber.Map{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// CreateTask creates a kanban card
// POST /api/tasks
func (h *BoardHandler) CreateTask(c *fiber.Ctx) error {
	userID, tenantID := locals(c)

	var req models.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	task, err := h.boardService.CreateTask(c.Context(), tenantID, &req)
	if err != nil {
		return serviceError(c, err)
	}

	log.Printf("📋 [BOARD] Task %s created in %s", task.ID, tenantID)
	h.activityService.Record(c.Context(), tenantID, userID, models.ActivityTaskCreated, task.ID, task.Title)

	return c.Status(fiber.StatusCreated).JSON(task)
}

// GetTask returns a single task with its playbooks attached
// GET /api/tasks/:id
func (h *BoardHandler) GetTask(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	task, err := h.boardService.GetTask(c.Context(), tenantID, c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(task)
}

// UpdateTask applies a partial update to a task
// PUT /api/tasks/:id
func (h *BoardHandler) UpdateTask(c *fiber.Ctx) error {
	_, tenantID := locals(c)

	var req models.UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	task, err := h.boardService.UpdateTask(c.Context(), tenantID, c.Params("id"), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(task)
}

// MoveTask moves a task either to an explicit status or one clamped step in
// the given direction. A step past either end of the board is a no-op that
// still returns the task.
// POST /api/tasks/:id/move
func (h *BoardHandler) MoveTask(c *fiber.Ctx) error {
	userID, tenantID := locals(c)

	var req models.MoveTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Status == "" && req.Direction == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Either status or direction is required",
		})
	}

	task, err := h.boardService.MoveTask(c.Context(), tenantID, c.Params("id"), &req)
	if err != nil {
		return serviceError(c, err)
	}

	h.activityService.Record(c.Context(), tenantID, userID, models.ActivityTaskMoved, task.ID, task.Status)
	return c.JSON(task)
}

// DeleteTask removes a task and its playbooks
// DELETE /api/tasks/:id
func (h *BoardHandler) DeleteTask(c *fiber.Ctx) error {
	userID, tenantID := locals(c)
	taskID := c.Params("id")

	if err := h.boardService.DeleteTask(c.Context(), tenantID, taskID); err != nil {
		return serviceError(c, err)
	}

	h.activityService.Record(c.Context(), tenantID, userID, models.ActivityTaskDeleted, taskID, "")
	return c.JSON(fiber.Map{
		"message": "Task deleted",
	})
}

// AddComment appends a comment to a task
// POST /api/tasks/:id/comments
func (h *BoardHandler) AddComment(c *fiber.Ctx) error {
	userID, tenantID := locals(c)

	var req struct {
		Body string `json:"body"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if strings.TrimSpace(req.Body) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Comment body is required",
		})
	}

	task, err := h.boardService.AddComment(c.Context(), tenantID, c.Params("id"), userID, req.Body)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

// AddPlaybook attaches a resource link to a task, enriched with a fetched
// link preview when the preview service can reach the URL
// POST /api/tasks/:id/playbooks
func (h *BoardHandler) AddPlaybook(c *fiber.Ctx) error {
	_, tenantID := locals(c)

	var req struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Playbook URL is required",
		})
	}

	playbook, err := h.boardService.AddPlaybook(c.Context(), tenantID, c.Params("id"), req.Title, req.URL)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(playbook)
}

// ListPlaybooks returns a task's attached resource links
// GET /api/tasks/:id/playbooks
func (h *BoardHandler) ListPlaybooks(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	playbooks, err := h.boardService.ListPlaybooks(c.Context(), tenantID, c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"playbooks": playbooks,
		"count":     len(playbooks),
	})
}

// DeletePlaybook removes a resource link
// DELETE /api/playbooks/:id
func (h *BoardHandler) DeletePlaybook(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	if err := h.boardService.DeletePlaybook(c.Context(), tenantID, c.Params("id")); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Playbook deleted",
	})
}
