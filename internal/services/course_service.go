package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"tribehub/internal/database"
	"tribehub/internal/models"
	"tribehub/internal/utils"
)

// CourseService manages course modules, lessons, and per-user progress
type CourseService struct {
	db          *database.DB
	tierService *TierService
}

// NewCourseService creates a new course service
func NewCourseService(db *database.DB, tierService *TierService) *CourseService {
	return &CourseService{db: db, tierService: tierService}
}

// CountModules returns the tenant's module count, used for plan limit checks
func (s *CourseService) CountModules(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM modules WHERE tenant_id = ?", tenantID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count modules: %w", err)
	}
	return n, nil
}

// CreateModule appends a module at the end of the tenant's course,
// enforcing the module limit
func (s *CourseService) CreateModule(ctx context.Context, tenantID string, req *models.CreateModuleRequest) (*models.Module, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("module title is required")
	}

	count, err := s.CountModules(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !s.tierService.CheckModuleLimit(ctx, tenantID, count) {
		limits := s.tierService.GetLimits(ctx, tenantID)
		tier := s.tierService.GetTenantTier(ctx, tenantID)
		return nil, &PlanLimitError{Resource: "modules", Limit: limits.MaxModules, Current: count, Tier: tier}
	}

	module := &models.Module{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		Title:       req.Title,
		Description: req.Description,
		OrderIndex:  count,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO modules (id, tenant_id, title, description, order_index) VALUES (?, ?, ?, ?, ?)",
		module.ID, module.TenantID, module.Title, module.Description, module.OrderIndex,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create module: %w", err)
	}
	return module, nil
}

// GetModule retrieves a module with its lessons, ordered
func (s *CourseService) GetModule(ctx context.Context, tenantID, moduleID string) (*models.Module, error) {
	var m models.Module
	var description sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, tenant_id, title, description, order_index, created_at, updated_at FROM modules WHERE id = ? AND tenant_id = ?",
		moduleID, tenantID,
	).Scan(&m.ID, &m.TenantID, &m.Title, &description, &m.OrderIndex, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("module not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get module: %w", err)
	}
	m.Description = description.String

	lessons, err := s.ListLessons(ctx, tenantID, moduleID, "")
	if err != nil {
		return nil, err
	}
	m.Lessons = lessons
	return &m, nil
}

// ListModules returns the tenant's modules in order. When userID is set each
// lesson carries that user's completion flag.
func (s *CourseService) ListModules(ctx context.Context, tenantID, userID string) ([]models.Module, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, tenant_id, title, description, order_index, created_at, updated_at FROM modules WHERE tenant_id = ? ORDER BY order_index",
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	defer rows.Close()

	modules := []models.Module{}
	for rows.Next() {
		var m models.Module
		var description sql.NullString
		if err := rows.Scan(&m.ID, &m.TenantID, &m.Title, &description, &m.OrderIndex, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		m.Description = description.String
		modules = append(modules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range modules {
		lessons, err := s.ListLessons(ctx, tenantID, modules[i].ID, userID)
		if err != nil {
			return nil, err
		}
		modules[i].Lessons = lessons
	}
	return modules, nil
}

// UpdateModule changes a module's title and description
func (s *CourseService) UpdateModule(ctx context.Context, tenantID, moduleID, title, description string) error {
	if title == "" {
		return fmt.Errorf("module title is required")
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE modules SET title = ?, description = ? WHERE id = ? AND tenant_id = ?",
		title, description, moduleID, tenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to update module: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("module not found")
	}
	return nil
}

// DeleteModule removes a module, its lessons, and their progress, then
// closes the order_index gap so siblings stay dense 0..n-1.
func (s *CourseService) DeleteModule(ctx context.Context, tenantID, moduleID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var orderIndex int
	err = tx.QueryRowContext(ctx,
		"SELECT order_index FROM modules WHERE id = ? AND tenant_id = ? FOR UPDATE",
		moduleID, tenantID,
	).Scan(&orderIndex)
	if err == sql.ErrNoRows {
		return fmt.Errorf("module not found")
	}
	if err != nil {
		return fmt.Errorf("failed to get module: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM lesson_progress WHERE tenant_id = ? AND lesson_id IN (SELECT id FROM lessons WHERE module_id = ?)",
		tenantID, moduleID,
	); err != nil {
		return fmt.Errorf("failed to delete lesson progress: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM lessons WHERE module_id = ? AND tenant_id = ?", moduleID, tenantID); err != nil {
		return fmt.Errorf("failed to delete lessons: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM modules WHERE id = ? AND tenant_id = ?", moduleID, tenantID); err != nil {
		return fmt.Errorf("failed to delete module: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE modules SET order_index = order_index - 1 WHERE tenant_id = ? AND order_index > ?",
		tenantID, orderIndex,
	); err != nil {
		return fmt.Errorf("failed to compact module order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit module delete: %w", err)
	}

	log.Printf("🗑️ [COURSE] Deleted module %s from tenant %s", moduleID, tenantID)
	return nil
}

// ReorderModules rewrites the tenant's module order in one transaction. The
// request must list exactly the current module ids; anything else is
// rejected so a stale client cannot drop or duplicate a sibling.
func (s *CourseService) ReorderModules(ctx context.Context, tenantID string, req *models.ReorderRequest) error {
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := lockSiblingIDs(ctx, tx,
		"SELECT id FROM modules WHERE tenant_id = ? ORDER BY order_index FOR UPDATE", tenantID)
	if err != nil {
		return fmt.Errorf("failed to lock modules: %w", err)
	}
	if !models.IsPermutationOf(req.IDs, current) {
		return fmt.Errorf("reorder list does not match the current modules")
	}

	for i, id := range req.IDs {
		if _, err := tx.ExecContext(ctx,
			"UPDATE modules SET order_index = ? WHERE id = ? AND tenant_id = ?", i, id, tenantID,
		); err != nil {
			return fmt.Errorf("failed to reorder module %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit module reorder: %w", err)
	}

	if m := GetMetrics(); m != nil {
		m.RecordReorderLatency(time.Since(start).Seconds())
	}
	return nil
}

// CreateLesson appends a lesson at the end of a module. Document lessons
// with an uploaded PDF get their duration auto-detected from the text.
func (s *CourseService) CreateLesson(ctx context.Context, tenantID, moduleID string, req *models.CreateLessonRequest, document []byte) (*models.Lesson, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("lesson title is required")
	}
	lessonType := req.Type
	if lessonType == "" {
		lessonType = models.LessonTypeVideo
	}
	if !models.ValidLessonType(lessonType) {
		return nil, fmt.Errorf("unknown lesson type: %s", lessonType)
	}
	if _, err := s.GetModule(ctx, tenantID, moduleID); err != nil {
		return nil, err
	}

	duration := req.Duration
	if duration == "" && lessonType == models.LessonTypeDocument && len(document) > 0 {
		if meta, err := utils.ExtractPDFText(document); err != nil {
			log.Printf("⚠️ [COURSE] Duration detection failed for lesson %q: %v", req.Title, err)
		} else {
			duration = utils.EstimateReadingDuration(meta.WordCount)
		}
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM lessons WHERE module_id = ?", moduleID,
	).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count lessons: %w", err)
	}

	materials := "[]"
	if req.Materials != nil {
		b, err := json.Marshal(req.Materials)
		if err != nil {
			return nil, fmt.Errorf("failed to encode materials: %w", err)
		}
		materials = string(b)
	}

	lesson := &models.Lesson{
		ID:         uuid.New().String(),
		ModuleID:   moduleID,
		TenantID:   tenantID,
		Title:      req.Title,
		Duration:   duration,
		Type:       lessonType,
		ContentURL: req.ContentURL,
		OrderIndex: count,
		Materials:  req.Materials,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO lessons (id, module_id, tenant_id, title, duration, type, content_url, order_index, materials) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		lesson.ID, lesson.ModuleID, lesson.TenantID, lesson.Title, lesson.Duration, lesson.Type, lesson.ContentURL, lesson.OrderIndex, materials,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create lesson: %w", err)
	}
	return lesson, nil
}

// ListLessons returns a module's lessons in order. When userID is set each
// lesson carries that user's completion flag.
func (s *CourseService) ListLessons(ctx context.Context, tenantID, moduleID, userID string) ([]models.Lesson, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT l.id, l.module_id, l.tenant_id, l.title, l.duration, l.type, l.content_url, l.order_index, l.materials,
		   l.created_at, l.updated_at, COALESCE(p.completed, FALSE)
		 FROM lessons l
		 LEFT JOIN lesson_progress p ON p.lesson_id = l.id AND p.user_id = ?
		 WHERE l.module_id = ? AND l.tenant_id = ?
		 ORDER BY l.order_index`,
		userID, moduleID, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	defer rows.Close()

	lessons := []models.Lesson{}
	for rows.Next() {
		var l models.Lesson
		var duration, contentURL, materials sql.NullString
		if err := rows.Scan(&l.ID, &l.ModuleID, &l.TenantID, &l.Title, &duration, &l.Type, &contentURL, &l.OrderIndex, &materials,
			&l.CreatedAt, &l.UpdatedAt, &l.IsCompleted); err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		l.Duration = duration.String
		l.ContentURL = contentURL.String
		if err := decodeJSONColumn(materials, &l.Materials); err != nil {
			return nil, fmt.Errorf("failed to decode materials: %w", err)
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

// UpdateLesson changes a lesson's editable fields
func (s *CourseService) UpdateLesson(ctx context.Context, tenantID, lessonID string, req *models.CreateLessonRequest) error {
	if req.Title == "" {
		return fmt.Errorf("lesson title is required")
	}
	if req.Type != "" && !models.ValidLessonType(req.Type) {
		return fmt.Errorf("unknown lesson type: %s", req.Type)
	}

	materials := "[]"
	if req.Materials != nil {
		b, err := json.Marshal(req.Materials)
		if err != nil {
			return fmt.Errorf("failed to encode materials: %w", err)
		}
		materials = string(b)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE lessons SET title = ?, duration = ?, type = ?, content_url = ?, materials = ? WHERE id = ? AND tenant_id = ?",
		req.Title, req.Duration, req.Type, req.ContentURL, materials, lessonID, tenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to update lesson: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("lesson not found")
	}
	return nil
}

// DeleteLesson removes a lesson and compacts its module's order
func (s *CourseService) DeleteLesson(ctx context.Context, tenantID, lessonID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var moduleID string
	var orderIndex int
	err = tx.QueryRowContext(ctx,
		"SELECT module_id, order_index FROM lessons WHERE id = ? AND tenant_id = ? FOR UPDATE",
		lessonID, tenantID,
	).Scan(&moduleID, &orderIndex)
	if err == sql.ErrNoRows {
		return fmt.Errorf("lesson not found")
	}
	if err != nil {
		return fmt.Errorf("failed to get lesson: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM lesson_progress WHERE lesson_id = ?", lessonID); err != nil {
		return fmt.Errorf("failed to delete lesson progress: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM lessons WHERE id = ? AND tenant_id = ?", lessonID, tenantID); err != nil {
		return fmt.Errorf("failed to delete lesson: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE lessons SET order_index = order_index - 1 WHERE module_id = ? AND order_index > ?",
		moduleID, orderIndex,
	); err != nil {
		return fmt.Errorf("failed to compact lesson order: %w", err)
	}

	return tx.Commit()
}

// ReorderLessons rewrites a module's lesson order in one transaction, with
// the same exact-permutation rule as module reorder.
func (s *CourseService) ReorderLessons(ctx context.Context, tenantID, moduleID string, req *models.ReorderRequest) error {
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := lockSiblingIDs(ctx, tx,
		"SELECT id FROM lessons WHERE module_id = ? AND tenant_id = ? ORDER BY order_index FOR UPDATE", moduleID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to lock lessons: %w", err)
	}
	if !models.IsPermutationOf(req.IDs, current) {
		return fmt.Errorf("reorder list does not match the module's lessons")
	}

	for i, id := range req.IDs {
		if _, err := tx.ExecContext(ctx,
			"UPDATE lessons SET order_index = ? WHERE id = ? AND module_id = ?", i, id, moduleID,
		); err != nil {
			return fmt.Errorf("failed to reorder lesson %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit lesson reorder: %w", err)
	}

	if m := GetMetrics(); m != nil {
		m.RecordReorderLatency(time.Since(start).Seconds())
	}
	return nil
}

// SetLessonProgress marks a lesson complete or incomplete for a user
func (s *CourseService) SetLessonProgress(ctx context.Context, tenantID, lessonID, userID string, completed bool) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM lessons WHERE id = ? AND tenant_id = ?", lessonID, tenantID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check lesson: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("lesson not found")
	}

	var completedAt interface{}
	if completed {
		completedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO lesson_progress (lesson_id, user_id, tenant_id, completed, completed_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE completed = VALUES(completed), completed_at = VALUES(completed_at)`,
		lessonID, userID, tenantID, completed, completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to set lesson progress: %w", err)
	}
	return nil
}

// CompletionPercent returns the user's course completion as 0-100. A course
// with no lessons counts as 0.
func (s *CourseService) CompletionPercent(ctx context.Context, tenantID, userID string) (int, error) {
	var total, done int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(l.id), COALESCE(SUM(CASE WHEN p.completed THEN 1 ELSE 0 END), 0)
		 FROM lessons l
		 LEFT JOIN lesson_progress p ON p.lesson_id = l.id AND p.user_id = ?
		 WHERE l.tenant_id = ?`,
		userID, tenantID,
	).Scan(&total, &done)
	if err != nil {
		return 0, fmt.Errorf("failed to compute completion: %w", err)
	}
	if total == 0 {
		return 0, nil
	}
	return done * 100 / total, nil
}

func lockSiblingIDs(ctx context.Context, tx *sql.Tx, query string, args ...interface{}) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
