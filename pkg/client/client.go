// Package client is the Go SDK for the TribeHub platform API. It carries the
// same semantics the web frontend relies on: every request is scoped to the
// selected workspace, and list state can be managed through Collection with
// optimistic local mutations that roll back on remote failure.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"tribehub/internal/models"
)

// Re-exported entity types so SDK consumers never import internal packages.
type (
	Task         = models.Task
	Lead         = models.Lead
	Module       = models.Module
	Lesson       = models.Lesson
	Post         = models.Post
	PostComment  = models.PostComment
	Notification = models.Notification
	Tenant       = models.Tenant
	Invite       = models.Invite
	Transaction  = models.Transaction

	CreateTaskRequest = models.CreateTaskRequest
	UpdateTaskRequest = models.UpdateTaskRequest
	MoveTaskRequest   = models.MoveTaskRequest
	CreateLeadRequest = models.CreateLeadRequest
	UpdateLeadRequest = models.UpdateLeadRequest
	CreatePostRequest = models.CreatePostRequest
	ReorderRequest    = models.ReorderRequest
)

// APIError is a non-2xx response from the platform
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsPlanLimit reports whether the error is a plan limit rejection (HTTP 402)
func IsPlanLimit(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusPaymentRequired
}

// Client is the REST transport. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu        sync.RWMutex
	token     string
	apiKey    string
	tenantID  string
	statePath string
}

// Option configures a Client
type Option func(*Client)

// WithToken sets the JWT bearer token
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithAPIKey authenticates with a programmatic API key instead of a JWT
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithStateFile persists the selected workspace across processes, the CLI
// equivalent of the frontend's stored tenant selection
func WithStateFile(path string) Option {
	return func(c *Client) { c.statePath = path }
}

// New creates a Client for the given base URL, e.g. "https://api.example.com"
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.statePath != "" {
		if data, err := os.ReadFile(c.statePath); err == nil {
			var state clientState
			if json.Unmarshal(data, &state) == nil {
				c.tenantID = state.TenantID
			}
		}
	}
	return c
}

type clientState struct {
	TenantID string `json:"tenant_id"`
}

// SetToken replaces the bearer token, e.g. after a refresh
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// SelectTenant sets the active workspace for all subsequent requests and
// persists the selection when a state file is configured
func (c *Client) SelectTenant(tenantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tenantID = tenantID
	if c.statePath == "" {
		return nil
	}
	data, err := json.Marshal(clientState{TenantID: tenantID})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.statePath), 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	if err := os.WriteFile(c.statePath, data, 0o600); err != nil {
		return fmt.Errorf("failed to persist tenant selection: %w", err)
	}
	return nil
}

// ActiveTenant returns the selected workspace id
func (c *Client) ActiveTenant() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tenantID
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	} else if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.tenantID != "" {
		req.Header.Set("X-Tenant-ID", c.tenantID)
	}
	c.mu.RUnlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: resp.Status}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		var parsed struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &parsed) == nil && parsed.Error != "" {
			apiErr.Message = parsed.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Login authenticates and stores the returned access token on the client
func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", models.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	c.SetToken(resp.AccessToken)
	return &resp, nil
}

// Register creates an account, optionally consuming an invite code, and
// stores the returned access token
func (c *Client) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.AccessToken)
	return &resp, nil
}

// ListTenants returns the workspaces the authenticated user belongs to
func (c *Client) ListTenants(ctx context.Context) ([]Tenant, error) {
	var resp struct {
		Tenants []Tenant `json:"tenants"`
	}
	err := c.do(ctx, http.MethodGet, "/api/tenants", nil, &resp)
	return resp.Tenants, err
}

// CreateTenant provisions a workspace owned by the caller
func (c *Client) CreateTenant(ctx context.Context, name, slug string) (*Tenant, error) {
	var tenant Tenant
	err := c.do(ctx, http.MethodPost, "/api/tenants", models.CreateTenantRequest{Name: name, Slug: slug}, &tenant)
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// AcceptInvite joins the caller to the inviting workspace
func (c *Client) AcceptInvite(ctx context.Context, code string) (*Invite, error) {
	var invite Invite
	err := c.do(ctx, http.MethodPost, "/api/invites/"+code+"/accept", nil, &invite)
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

// ListTasks returns the workspace's tasks, optionally filtered by status
func (c *Client) ListTasks(ctx context.Context, status string) ([]Task, error) {
	path := "/api/tasks"
	if status != "" {
		path += "?status=" + status
	}
	var resp struct {
		Tasks []Task `json:"tasks"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp.Tasks, err
}

// CreateTask creates a kanban card
func (c *Client) CreateTask(ctx context.Context, req *CreateTaskRequest) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask applies a partial update
func (c *Client) UpdateTask(ctx context.Context, taskID string, req *UpdateTaskRequest) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodPut, "/api/tasks/"+taskID, req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// MoveTask moves a task to an explicit status or one clamped step
func (c *Client) MoveTask(ctx context.Context, taskID string, req *MoveTaskRequest) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks/"+taskID+"/move", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask removes a task
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+taskID, nil, nil)
}

// ListLeads returns the workspace's leads, optionally filtered by status
func (c *Client) ListLeads(ctx context.Context, status string) ([]Lead, error) {
	path := "/api/leads"
	if status != "" {
		path += "?status=" + status
	}
	var resp struct {
		Leads []Lead `json:"leads"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp.Leads, err
}

// CreateLead adds a lead; a plan limit rejection satisfies IsPlanLimit
func (c *Client) CreateLead(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	var lead Lead
	if err := c.do(ctx, http.MethodPost, "/api/leads", req, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

// UpdateLead applies a partial update
func (c *Client) UpdateLead(ctx context.Context, leadID string, req *UpdateLeadRequest) (*Lead, error) {
	var lead Lead
	if err := c.do(ctx, http.MethodPut, "/api/leads/"+leadID, req, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

// DeleteLead removes a lead
func (c *Client) DeleteLead(ctx context.Context, leadID string) error {
	return c.do(ctx, http.MethodDelete, "/api/leads/"+leadID, nil, nil)
}

// ListModules returns the course outline with the caller's completion state
func (c *Client) ListModules(ctx context.Context) ([]Module, error) {
	var resp struct {
		Modules []Module `json:"modules"`
	}
	err := c.do(ctx, http.MethodGet, "/api/modules", nil, &resp)
	return resp.Modules, err
}

// ReorderModules persists a full permutation of the module ids
func (c *Client) ReorderModules(ctx context.Context, ids []string) error {
	return c.do(ctx, http.MethodPut, "/api/modules/reorder", ReorderRequest{IDs: ids}, nil)
}

// ReorderLessons persists a full permutation of a module's lesson ids
func (c *Client) ReorderLessons(ctx context.Context, moduleID string, ids []string) error {
	return c.do(ctx, http.MethodPut, "/api/modules/"+moduleID+"/lessons/reorder", ReorderRequest{IDs: ids}, nil)
}

// SetLessonProgress marks a lesson complete or incomplete for the caller
func (c *Client) SetLessonProgress(ctx context.Context, lessonID string, completed bool) error {
	return c.do(ctx, http.MethodPut, "/api/lessons/"+lessonID+"/progress", map[string]bool{"completed": completed}, nil)
}

// ListPosts returns a page of the community feed
func (c *Client) ListPosts(ctx context.Context, limit, offset int) ([]Post, error) {
	path := "/api/posts?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(offset)
	var resp struct {
		Posts []Post `json:"posts"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp.Posts, err
}

// CreatePost publishes a post
func (c *Client) CreatePost(ctx context.Context, req *CreatePostRequest) (*Post, error) {
	var post Post
	if err := c.do(ctx, http.MethodPost, "/api/posts", req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// LikePost records the caller's like
func (c *Client) LikePost(ctx context.Context, postID string) error {
	return c.do(ctx, http.MethodPost, "/api/posts/"+postID+"/like", nil, nil)
}

// UnlikePost removes the caller's like
func (c *Client) UnlikePost(ctx context.Context, postID string) error {
	return c.do(ctx, http.MethodDelete, "/api/posts/"+postID+"/like", nil, nil)
}

// ListNotifications returns the caller's notifications
func (c *Client) ListNotifications(ctx context.Context, unreadOnly bool) ([]Notification, error) {
	path := "/api/notifications"
	if unreadOnly {
		path += "?unread=true"
	}
	var resp struct {
		Notifications []Notification `json:"notifications"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp.Notifications, err
}

// UnreadCount returns the caller's unread badge count
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var resp struct {
		Unread int `json:"unread"`
	}
	err := c.do(ctx, http.MethodGet, "/api/notifications/unread-count", nil, &resp)
	return resp.Unread, err
}

// MarkNotificationRead marks one notification read
func (c *Client) MarkNotificationRead(ctx context.Context, notifID string) error {
	return c.do(ctx, http.MethodPut, "/api/notifications/"+notifID+"/read", nil, nil)
}
