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
)

// BoardService manages kanban columns and tasks for a tenant
type BoardService struct {
	db             *database.DB
	tierService    *TierService
	previewService *PreviewService
}

// NewBoardService creates a new board service. previewService may be nil;
// playbooks are then stored without link previews.
func NewBoardService(db *database.DB, tierService *TierService, previewService *PreviewService) *BoardService {
	return &BoardService{db: db, tierService: tierService, previewService: previewService}
}

// ListColumns returns the tenant's board columns ordered by position
func (s *BoardService) ListColumns(ctx context.Context, tenantID string) ([]models.BoardColumn, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, tenant_id, column_key, title, position, built_in, created_at FROM board_columns WHERE tenant_id = ? ORDER BY position",
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	defer rows.Close()

	columns := []models.BoardColumn{}
	for rows.Next() {
		var c models.BoardColumn
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Key, &c.Title, &c.Position, &c.BuiltIn, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

// ColumnSequence returns the tenant's ordered column keys. Falls back to the
// built-in sequence when the tenant has no columns (pre-seed data).
func (s *BoardService) ColumnSequence(ctx context.Context, tenantID string) ([]string, error) {
	columns, err := s.ListColumns(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return models.DefaultStatusSequence, nil
	}
	keys := make([]string, len(columns))
	for i, c := range columns {
		keys[i] = c.Key
	}
	return keys, nil
}

// CreateColumn adds a custom column at the end of the board
func (s *BoardService) CreateColumn(ctx context.Context, tenantID, title string) (*models.BoardColumn, error) {
	key, err := models.ColumnKeyFromTitle(title)
	if err != nil {
		return nil, err
	}

	var maxPos sql.NullInt64
	if err := s.db.QueryRowContext(ctx,
		"SELECT MAX(position) FROM board_columns WHERE tenant_id = ?", tenantID,
	).Scan(&maxPos); err != nil {
		return nil, fmt.Errorf("failed to find column position: %w", err)
	}

	col := &models.BoardColumn{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Key:       key,
		Title:     title,
		Position:  int(maxPos.Int64) + 1,
		BuiltIn:   false,
		CreatedAt: time.Now(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO board_columns (id, tenant_id, column_key, title, position, built_in) VALUES (?, ?, ?, ?, ?, FALSE)",
		col.ID, col.TenantID, col.Key, col.Title, col.Position,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create column %q: %w", key, err)
	}

	log.Printf("📋 [BOARD] Created column %s (%s) for tenant %s", title, key, tenantID)
	return col, nil
}

// RenameColumn changes a column's title. The key stays stable so existing
// tasks keep their status.
func (s *BoardService) RenameColumn(ctx context.Context, tenantID, columnID, title string) error {
	if title == "" {
		return fmt.Errorf("column title is required")
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE board_columns SET title = ? WHERE id = ? AND tenant_id = ?",
		title, columnID, tenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to rename column: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("column not found")
	}
	return nil
}

// DeleteColumn removes a custom column. Built-in columns and columns that
// still hold tasks cannot be deleted.
func (s *BoardService) DeleteColumn(ctx context.Context, tenantID, columnID string) error {
	var key string
	var builtIn bool
	err := s.db.QueryRowContext(ctx,
		"SELECT column_key, built_in FROM board_columns WHERE id = ? AND tenant_id = ?",
		columnID, tenantID,
	).Scan(&key, &builtIn)
	if err == sql.ErrNoRows {
		return fmt.Errorf("column not found")
	}
	if err != nil {
		return fmt.Errorf("failed to get column: %w", err)
	}
	if builtIn {
		return fmt.Errorf("built-in columns cannot be deleted")
	}

	var taskCount int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tasks WHERE tenant_id = ? AND status = ?", tenantID, key,
	).Scan(&taskCount); err != nil {
		return fmt.Errorf("failed to count column tasks: %w", err)
	}
	if taskCount > 0 {
		return fmt.Errorf("column still holds %d tasks, move them first", taskCount)
	}

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM board_columns WHERE id = ? AND tenant_id = ?", columnID, tenantID,
	); err != nil {
		return fmt.Errorf("failed to delete column: %w", err)
	}
	return nil
}

// validStatus reports whether status is one of the tenant's column keys
func (s *BoardService) validStatus(ctx context.Context, tenantID, status string) (bool, error) {
	sequence, err := s.ColumnSequence(ctx, tenantID)
	if err != nil {
		return false, err
	}
	for _, key := range sequence {
		if key == status {
			return true, nil
		}
	}
	return false, nil
}

// CountTasks returns the tenant's task count, used for plan limit checks
func (s *BoardService) CountTasks(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks WHERE tenant_id = ?", tenantID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}

// CreateTask adds a kanban card, enforcing the tenant's task limit
func (s *BoardService) CreateTask(ctx context.Context, tenantID string, req *models.CreateTaskRequest) (*models.Task, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("task title is required")
	}

	count, err := s.CountTasks(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !s.tierService.CheckTaskLimit(ctx, tenantID, count) {
		limits := s.tierService.GetLimits(ctx, tenantID)
		tier := s.tierService.GetTenantTier(ctx, tenantID)
		return nil, &PlanLimitError{Resource: "tasks", Limit: limits.MaxTasks, Current: count, Tier: tier}
	}

	status := req.Status
	if status == "" {
		status = models.StatusTodo
	}
	ok, err := s.validStatus(ctx, tenantID, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("unknown status: %s", status)
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidPriority(priority) {
		return nil, fmt.Errorf("unknown priority: %s", priority)
	}
	if req.Progress < 0 || req.Progress > 100 {
		return nil, fmt.Errorf("progress must be between 0 and 100")
	}

	task := &models.Task{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		Assignee:    req.Assignee,
		Priority:    priority,
		DueDate:     req.DueDate,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Progress:    req.Progress,
		Labels:      req.Labels,
		Checklist:   req.Checklist,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	labels, checklist, subtasks, comments, err := encodeTaskJSON(task)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, tenant_id, title, description, status, assignee, priority,
		   due_date, start_date, end_date, progress, labels, checklist, subtasks, comments)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.TenantID, task.Title, task.Description, task.Status, task.Assignee, task.Priority,
		task.DueDate, task.StartDate, task.EndDate, task.Progress, labels, checklist, subtasks, comments,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return task, nil
}

// GetTask retrieves a task with its playbooks
func (s *BoardService) GetTask(ctx context.Context, tenantID, taskID string) (*models.Task, error) {
	task, err := s.scanTask(s.db.QueryRowContext(ctx,
		taskSelect+" WHERE id = ? AND tenant_id = ?", taskID, tenantID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	playbooks, err := s.ListPlaybooks(ctx, tenantID, taskID)
	if err != nil {
		return nil, err
	}
	task.Playbooks = playbooks
	return task, nil
}

// ListTasks returns the tenant's tasks, optionally filtered by status
func (s *BoardService) ListTasks(ctx context.Context, tenantID, status string) ([]models.Task, error) {
	query := taskSelect + " WHERE tenant_id = ?"
	args := []interface{}{tenantID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := s.scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// UpdateTask applies a partial update. Nil pointer fields are left unchanged.
func (s *BoardService) UpdateTask(ctx context.Context, tenantID, taskID string, req *models.UpdateTaskRequest) (*models.Task, error) {
	task, err := s.GetTask(ctx, tenantID, taskID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, fmt.Errorf("task title is required")
		}
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != nil {
		ok, err := s.validStatus(ctx, tenantID, *req.Status)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("unknown status: %s", *req.Status)
		}
		task.Status = *req.Status
	}
	if req.Assignee != nil {
		task.Assignee = *req.Assignee
	}
	if req.Priority != nil {
		if !models.ValidPriority(*req.Priority) {
			return nil, fmt.Errorf("unknown priority: %s", *req.Priority)
		}
		task.Priority = *req.Priority
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if req.StartDate != nil {
		task.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		task.EndDate = req.EndDate
	}
	if req.Progress != nil {
		if *req.Progress < 0 || *req.Progress > 100 {
			return nil, fmt.Errorf("progress must be between 0 and 100")
		}
		task.Progress = *req.Progress
	}
	if req.Labels != nil {
		task.Labels = *req.Labels
	}
	if req.Checklist != nil {
		task.Checklist = *req.Checklist
	}
	if req.Subtasks != nil {
		task.Subtasks = *req.Subtasks
	}

	labels, checklist, subtasks, comments, err := encodeTaskJSON(task)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, status = ?, assignee = ?, priority = ?,
		   due_date = ?, start_date = ?, end_date = ?, progress = ?, labels = ?, checklist = ?, subtasks = ?, comments = ?
		 WHERE id = ? AND tenant_id = ?`,
		task.Title, task.Description, task.Status, task.Assignee, task.Priority,
		task.DueDate, task.StartDate, task.EndDate, task.Progress, labels, checklist, subtasks, comments,
		taskID, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	task.UpdatedAt = time.Now()
	return task, nil
}

// MoveTask moves a card either to an explicit status (drop target) or one
// step in a direction. Directional moves clamp at the board edges: moving
// "next" from the last column or "prev" from the first is a no-op, not an
// error.
func (s *BoardService) MoveTask(ctx context.Context, tenantID, taskID string, req *models.MoveTaskRequest) (*models.Task, error) {
	task, err := s.GetTask(ctx, tenantID, taskID)
	if err != nil {
		return nil, err
	}

	var target, kind string
	switch {
	case req.Status != "":
		ok, err := s.validStatus(ctx, tenantID, req.Status)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("unknown status: %s", req.Status)
		}
		target, kind = req.Status, "status"
	case req.Direction == "next" || req.Direction == "prev":
		sequence, err := s.ColumnSequence(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		if req.Direction == "next" {
			target = models.NextStatus(task.Status, sequence)
		} else {
			target = models.PrevStatus(task.Status, sequence)
		}
		kind = req.Direction
	default:
		return nil, fmt.Errorf("move requires a status or a direction of next/prev")
	}

	if target != task.Status {
		_, err = s.db.ExecContext(ctx,
			"UPDATE tasks SET status = ? WHERE id = ? AND tenant_id = ?",
			target, taskID, tenantID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to move task: %w", err)
		}
		task.Status = target
		task.UpdatedAt = time.Now()
	}

	if m := GetMetrics(); m != nil {
		m.RecordTaskMove(kind)
	}
	return task, nil
}

// DeleteTask removes a task and its playbooks
func (s *BoardService) DeleteTask(ctx context.Context, tenantID, taskID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ? AND tenant_id = ?", taskID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("task not found")
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM task_playbooks WHERE task_id = ? AND tenant_id = ?", taskID, tenantID); err != nil {
		return fmt.Errorf("failed to delete task playbooks: %w", err)
	}

	return tx.Commit()
}

// AddComment appends a comment to the task's comment list
func (s *BoardService) AddComment(ctx context.Context, tenantID, taskID, authorID, body string) (*models.Task, error) {
	if body == "" {
		return nil, fmt.Errorf("comment body is required")
	}

	task, err := s.GetTask(ctx, tenantID, taskID)
	if err != nil {
		return nil, err
	}

	task.Comments = append(task.Comments, models.TaskComment{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: time.Now(),
	})

	comments, err := json.Marshal(task.Comments)
	if err != nil {
		return nil, fmt.Errorf("failed to encode comments: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"UPDATE tasks SET comments = ? WHERE id = ? AND tenant_id = ?",
		string(comments), taskID, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	return task, nil
}

// AddPlaybook attaches a resource link to a task. When a preview service is
// configured the link is enriched with a fetched title, snippet, and image;
// preview failures are logged and the playbook is stored bare.
func (s *BoardService) AddPlaybook(ctx context.Context, tenantID, taskID, title, url string) (*models.Playbook, error) {
	if title == "" || url == "" {
		return nil, fmt.Errorf("playbook title and url are required")
	}
	if _, err := s.GetTask(ctx, tenantID, taskID); err != nil {
		return nil, err
	}

	pb := &models.Playbook{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		Title:     title,
		URL:       url,
		CreatedAt: time.Now(),
	}

	if s.previewService != nil {
		preview, err := s.previewService.FetchPreview(ctx, url, tenantID)
		if err != nil {
			log.Printf("⚠️ [BOARD] Preview fetch failed for %s: %v", url, err)
		} else {
			pb.PreviewTitle = preview.Title
			pb.PreviewText = preview.Text
			pb.PreviewImage = preview.Image
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_playbooks (id, task_id, tenant_id, title, url, preview_title, preview_text, preview_image)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		pb.ID, pb.TaskID, tenantID, pb.Title, pb.URL, pb.PreviewTitle, pb.PreviewText, pb.PreviewImage,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add playbook: %w", err)
	}
	return pb, nil
}

// ListPlaybooks returns a task's attached resource links
func (s *BoardService) ListPlaybooks(ctx context.Context, tenantID, taskID string) ([]models.Playbook, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, title, url, preview_title, preview_text, preview_image, created_at
		 FROM task_playbooks WHERE task_id = ? AND tenant_id = ? ORDER BY created_at`,
		taskID, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list playbooks: %w", err)
	}
	defer rows.Close()

	playbooks := []models.Playbook{}
	for rows.Next() {
		var pb models.Playbook
		var pTitle, pText, pImage sql.NullString
		if err := rows.Scan(&pb.ID, &pb.TaskID, &pb.Title, &pb.URL, &pTitle, &pText, &pImage, &pb.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan playbook: %w", err)
		}
		pb.PreviewTitle = pTitle.String
		pb.PreviewText = pText.String
		pb.PreviewImage = pImage.String
		playbooks = append(playbooks, pb)
	}
	return playbooks, rows.Err()
}

// DeletePlaybook removes a resource link from a task
func (s *BoardService) DeletePlaybook(ctx context.Context, tenantID, playbookID string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM task_playbooks WHERE id = ? AND tenant_id = ?", playbookID, tenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete playbook: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("playbook not found")
	}
	return nil
}

const taskSelect = `SELECT id, tenant_id, title, description, status, assignee, priority,
  due_date, start_date, end_date, progress, labels, checklist, subtasks, comments, created_at, updated_at
FROM tasks`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *BoardService) scanTask(row rowScanner) (*models.Task, error) {
	var task models.Task
	var description, assignee, labels, checklist, subtasks, comments sql.NullString
	var dueDate, startDate, endDate sql.NullTime
	err := row.Scan(
		&task.ID, &task.TenantID, &task.Title, &description, &task.Status, &assignee, &task.Priority,
		&dueDate, &startDate, &endDate, &task.Progress, &labels, &checklist, &subtasks, &comments,
		&task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Description = description.String
	task.Assignee = assignee.String
	if dueDate.Valid {
		task.DueDate = &dueDate.Time
	}
	if startDate.Valid {
		task.StartDate = &startDate.Time
	}
	if endDate.Valid {
		task.EndDate = &endDate.Time
	}
	if err := decodeJSONColumn(labels, &task.Labels); err != nil {
		return nil, fmt.Errorf("failed to decode labels: %w", err)
	}
	if err := decodeJSONColumn(checklist, &task.Checklist); err != nil {
		return nil, fmt.Errorf("failed to decode checklist: %w", err)
	}
	if err := decodeJSONColumn(subtasks, &task.Subtasks); err != nil {
		return nil, fmt.Errorf("failed to decode subtasks: %w", err)
	}
	if err := decodeJSONColumn(comments, &task.Comments); err != nil {
		return nil, fmt.Errorf("failed to decode comments: %w", err)
	}
	return &task, nil
}

func encodeTaskJSON(task *models.Task) (labels, checklist, subtasks, comments string, err error) {
	encode := func(v interface{}) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to encode task field: %w", err)
		}
		return string(b), nil
	}
	if labels, err = encode(task.Labels); err != nil {
		return
	}
	if checklist, err = encode(task.Checklist); err != nil {
		return
	}
	if subtasks, err = encode(task.Subtasks); err != nil {
		return
	}
	comments, err = encode(task.Comments)
	return
}

func decodeJSONColumn(col sql.NullString, dest interface{}) error {
	if !col.Valid || col.String == "" || col.String == "null" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), dest)
}
