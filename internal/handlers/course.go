package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"tribehub/internal/models"
	"tribehub/internal/services"
)

// maxLessonDocumentSize caps uploaded lesson PDFs at 20 MB
const maxLessonDocumentSize = 20 * 1024 * 1024

// CourseHandler handles course module, lesson, progress and certificate
// endpoints
type CourseHandler struct {
	courseService      *services.CourseService
	certificateService *services.CertificateService
	activityService    *services.ActivityService
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(courseService *services.CourseService, certificateService *services.CertificateService, activityService *services.ActivityService) *CourseHandler {
	return &CourseHandler{
		courseService:      courseService,
		certificateService: certificateService,
		activityService:    activityService,
	}
}

// ListModules returns the workspace's modules in order, with the caller's
// completion state folded in
// GET /api/modules
func (h *CourseHandler) ListModules(c *fiber.Ctx) error {
	userID, tenantID := locals(c)
	modules, err := h.courseService.ListModules(c.Context(), tenantID, userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"modules": modules,
		"count":   len(modules),
	})
}

// CreateModule appends a module at the end of the course
// POST /api/modules
func (h *CourseHandler) CreateModule(c *fiber.Ctx) error {
	_, tenantID := locals(c)

	var req models.CreateModuleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	module, err := h.courseService.CreateModule(c.Context(), tenantID, &req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(module)
}

// GetModule returns a module with its lessons
// GET /api/modules/:id
func (h *CourseHandler) GetModule(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	module, err := h.courseService.GetModule(c.Context(), tenantID, c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(module)
}

// UpdateModule updates a module's title and description
// PUT /api/modules/:id
func (h *CourseHandler) UpdateModule(c *fiber.Ctx) error {
	_, tenantID := locals(c)

	var req models.CreateModuleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.courseService.UpdateModule(c.Context(), tenantID, c.Params("id"), req.Title, req.Description); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Module updated",
	})
}

// DeleteModule removes a module, its lessons and their progress, closing the
// order_index gap it leaves behind
// DELETE /api/modules/:id
func (h *CourseHandler) DeleteModule(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	if err := h.courseService.DeleteModule(c.Context(), tenantID, c.Params("id")); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Module deleted",
	})
}

// ReorderModules rewrites module order from a full permutation of the
// current module ids. A partial or padded list is rejected.
// PUT /api/modules/reorder
func (h *CourseHandler) ReorderModules(c *fiber.Ctx) error {
	userID, tenantID := locals(c)

	var req models.ReorderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.courseService.ReorderModules(c.Context(), tenantID, &req); err != nil {
		return serviceError(c, err)
	}

	h.activityService.Record(c.Context(), tenantID, userID, models.ActivityModuleReorder, "", "")
	return c.JSON(fiber.Map{
		"message": "Modules reordered",
	})
}

// lessonRequestFromForm decodes the multipart variant of lesson creation:
// a "meta" form field carrying the JSON payload plus an optional "document"
// PDF whose word count drives the duration estimate.
func lessonRequestFromForm(c *fiber.Ctx) (*models.CreateLessonRequest, []byte, error) {
	var req models.CreateLessonRequest
	meta := c.FormValue("meta")
	if meta == "" {
		return nil, nil, fmt.Errorf("missing meta form field")
	}
	if err := json.Unmarshal([]byte(meta), &req); err != nil {
		return nil, nil, fmt.Errorf("invalid meta JSON: %w", err)
	}

	fileHeader, err := c.FormFile("document")
	if err != nil {
		// Document is optional
		return &req, nil, nil
	}
	if fileHeader.Size > maxLessonDocumentSize {
		return nil, nil, fmt.Errorf("document exceeds %d MB limit", maxLessonDocumentSize/(1024*1024))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open uploaded document: %w", err)
	}
	defer file.Close()

	document, err := io.ReadAll(io.LimitReader(file, maxLessonDocumentSize+1))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read uploaded document: %w", err)
	}
	return &req, document, nil
}

// CreateLesson appends a lesson to a module. Accepts either a JSON body or a
// multipart form with a PDF document attached.
// POST /api/modules/:id/lessons
func (h *CourseHandler) CreateLesson(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	moduleID := c.Params("id")

	var (
		req      *models.CreateLessonRequest
		document []byte
	)
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), "multipart/") {
		var err error
		req, document, err = lessonRequestFromForm(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
	} else {
		var body models.CreateLessonRequest
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		req = &body
	}

	lesson, err := h.courseService.CreateLesson(c.Context(), tenantID, moduleID, req, document)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(lesson)
}

// ListLessons returns a module's lessons with the caller's completion state
// GET /api/modules/:id/lessons
func (h *CourseHandler) ListLessons(c *fiber.Ctx) error {
	userID, tenantID := locals(c)
	lessons, err := h.courseService.ListLessons(c.Context(), tenantID, c.Params("id"), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"lessons": lessons,
		"count":   len(lessons),
	})
}

// UpdateLesson updates a lesson's metadata
// PUT /api/lessons/:id
func (h *CourseHandler) UpdateLesson(c *fiber.Ctx) error {
	_, tenantID := locals(c)

	var req models.CreateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.courseService.UpdateLesson(c.Context(), tenantID, c.Params("id"), &req); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Lesson updated",
	})
}

// DeleteLesson removes a lesson, closing the order_index gap
// DELETE /api/lessons/:id
func (h *CourseHandler) DeleteLesson(c *fiber.Ctx) error {
	_, tenantID := locals(c)
	if err := h.courseService.DeleteLesson(c.Context(), tenantID, c.Params("id")); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Lesson deleted",
	})
}

// ReorderLessons rewrites lesson order within a module from a full
// permutation of the current lesson ids
// PUT /api/modules/:id/lessons/reorder
func (h *CourseHandler) ReorderLessons(c *fiber.Ctx) error {
	_, tenantID := locals(c)

	var req models.ReorderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.courseService.ReorderLessons(c.Context(), tenantID, c.Params("id"), &req); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Lessons reordered",
	})
}

// SetProgress marks a lesson complete or incomplete for the caller
// PUT /api/lessons/:id/progress
func (h *CourseHandler) SetProgress(c *fiber.Ctx) error {
	userID, tenantID := locals(c)

	var req struct {
		Completed bool `json:"completed"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.courseService.SetLessonProgress(c.Context(), tenantID, c.Params("id"), userID, req.Completed); err != nil {
		return serviceError(c, err)
	}

	if req.Completed {
		h.activityService.Record(c.Context(), tenantID, userID, models.ActivityLessonDone, c.Params("id"), "")
	}

	percent, err := h.courseService.CompletionPercent(c.Context(), tenantID, userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"completed":          req.Completed,
		"completion_percent": percent,
	})
}

// GetCompletion returns the caller's overall course completion percentage
// GET /api/course/completion
func (h *CourseHandler) GetCompletion(c *fiber.Ctx) error {
	userID, tenantID := locals(c)
	percent, err := h.courseService.CompletionPercent(c.Context(), tenantID, userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"completion_percent": percent,
	})
}

// DownloadCertificate renders the caller's completion certificate as a PDF.
// Requires 100% completion; concurrent renders per user are rejected.
// GET /api/course/certificate
func (h *CourseHandler) DownloadCertificate(c *fiber.Ctx) error {
	userID, tenantID := locals(c)

	pdf, err := h.certificateService.Render(c.Context(), tenantID, userID)
	if err != nil {
		if err.Error() == "render already in progress" {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		log.Printf("⚠️ Certificate render failed for user %s: %v", userID, err)
		return serviceError(c, err)
	}

	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", `attachment; filename="certificate.pdf"`)
	return c.Send(pdf)
}
