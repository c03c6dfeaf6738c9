package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"tribehub/internal/database"
	"tribehub/internal/models"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// TenantService manages workspaces, membership, and per-tenant settings
type TenantService struct {
	db          *database.DB
	tierService *TierService
}

// NewTenantService creates a new tenant service
func NewTenantService(db *database.DB, tierService *TierService) *TenantService {
	return &TenantService{db: db, tierService: tierService}
}

// Slugify derives a URL slug from a tenant name
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugPattern.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 100 {
		slug = slug[:100]
	}
	return slug
}

// Create provisions a new tenant in one transaction: the tenant row, the
// creator as owner, the built-in board columns, an empty sales config, and a
// free subscription.
func (s *TenantService) Create(ctx context.Context, ownerID string, req *models.CreateTenantRequest) (*models.Tenant, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("tenant name is required")
	}
	slug := req.Slug
	if slug == "" {
		slug = Slugify(req.Name)
	} else {
		slug = Slugify(slug)
	}
	if slug == "" {
		return nil, fmt.Errorf("tenant name %q yields an empty slug", req.Name)
	}

	tenant := &models.Tenant{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Slug:      slug,
		OwnerID:   ownerID,
		Tier:      "free",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO tenants (id, name, slug, owner_id, tier) VALUES (?, ?, ?, ?, ?)",
		tenant.ID, tenant.Name, tenant.Slug, tenant.OwnerID, tenant.Tier,
	)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			return nil, fmt.Errorf("slug %q is already taken", slug)
		}
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO tenant_members (tenant_id, user_id, role) VALUES (?, ?, ?)",
		tenant.ID, ownerID, models.TenantRoleOwner,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add owner: %w", err)
	}

	// Every new board starts with the four built-in columns
	titles := map[string]string{
		models.StatusTodo:       "To Do",
		models.StatusInProgress: "In Progress",
		models.StatusReview:     "Review",
		models.StatusDone:       "Done",
	}
	for i, key := range models.DefaultStatusSequence {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO board_columns (id, tenant_id, column_key, title, position, built_in) VALUES (?, ?, ?, ?, ?, TRUE)",
			uuid.New().String(), tenant.ID, key, titles[key], i,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to seed board columns: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, "INSERT INTO sales_config (tenant_id) VALUES (?)", tenant.ID); err != nil {
		return nil, fmt.Errorf("failed to seed sales config: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "INSERT INTO subscriptions (tenant_id, tier, status) VALUES (?, 'free', 'active')", tenant.ID); err != nil {
		return nil, fmt.Errorf("failed to seed subscription: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit tenant: %w", err)
	}

	log.Printf("🏠 [TENANT] Created %s (%s) for user %s", tenant.Name, tenant.ID, ownerID)
	return tenant, nil
}

// Get retrieves a tenant by ID
func (s *TenantService) Get(ctx context.Context, tenantID string) (*models.Tenant, error) {
	var t models.Tenant
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, slug, owner_id, tier, created_at, updated_at FROM tenants WHERE id = ?",
		tenantID,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.OwnerID, &t.Tier, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tenant not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &t, nil
}

// GetBySlug retrieves a tenant by slug
func (s *TenantService) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	var t models.Tenant
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, slug, owner_id, tier, created_at, updated_at FROM tenants WHERE slug = ?",
		slug,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.OwnerID, &t.Tier, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tenant not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &t, nil
}

// ListForUser returns all tenants the user is a member of
func (s *TenantService) ListForUser(ctx context.Context, userID string) ([]models.Tenant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.name, t.slug, t.owner_id, t.tier, t.created_at, t.updated_at
		 FROM tenants t
		 JOIN tenant_members m ON m.tenant_id = t.id
		 WHERE m.user_id = ?
		 ORDER BY t.created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	tenants := []models.Tenant{}
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.OwnerID, &t.Tier, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// GetMember returns the membership row for a user in a tenant. Tenant
// middleware calls this on every scoped request.
func (s *TenantService) GetMember(ctx context.Context, tenantID, userID string) (*models.TenantMember, error) {
	var m models.TenantMember
	err := s.db.QueryRowContext(ctx,
		"SELECT tenant_id, user_id, role, joined_at FROM tenant_members WHERE tenant_id = ? AND user_id = ?",
		tenantID, userID,
	).Scan(&m.TenantID, &m.UserID, &m.Role, &m.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("not a member of this tenant")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return &m, nil
}

// ListMembers returns the tenant's members with denormalized user info
func (s *TenantService) ListMembers(ctx context.Context, tenantID string) ([]models.TenantMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.tenant_id, m.user_id, m.role, m.joined_at, u.name, u.email
		 FROM tenant_members m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.tenant_id = ?
		 ORDER BY m.joined_at`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []models.TenantMember{}
	for rows.Next() {
		var m models.TenantMember
		if err := rows.Scan(&m.TenantID, &m.UserID, &m.Role, &m.JoinedAt, &m.UserName, &m.UserEmail); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// CountMembers returns the tenant's member count, used for plan limit checks
func (s *TenantService) CountMembers(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tenant_members WHERE tenant_id = ?", tenantID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return n, nil
}

// AddMember inserts a membership row, enforcing the tenant's member limit
func (s *TenantService) AddMember(ctx context.Context, tenantID, userID, role string) error {
	if role != models.TenantRoleAdmin && role != models.TenantRoleMember {
		return fmt.Errorf("invalid role: %s", role)
	}

	count, err := s.CountMembers(ctx, tenantID)
	if err != nil {
		return err
	}
	if !s.tierService.CheckMemberLimit(ctx, tenantID, count) {
		limits := s.tierService.GetLimits(ctx, tenantID)
		tier := s.tierService.GetTenantTier(ctx, tenantID)
		return &PlanLimitError{Resource: "members", Limit: limits.MaxMembers, Current: count, Tier: tier}
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO tenant_members (tenant_id, user_id, role) VALUES (?, ?, ?)",
		tenantID, userID, role,
	)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			return fmt.Errorf("user is already a member")
		}
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// UpdateMemberRole changes a member's role. The owner role cannot be granted
// or revoked here; ownership transfers are out of scope.
func (s *TenantService) UpdateMemberRole(ctx context.Context, tenantID, userID, role string) error {
	if role != models.TenantRoleAdmin && role != models.TenantRoleMember {
		return fmt.Errorf("invalid role: %s", role)
	}

	member, err := s.GetMember(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if member.Role == models.TenantRoleOwner {
		return fmt.Errorf("cannot change the owner's role")
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE tenant_members SET role = ? WHERE tenant_id = ? AND user_id = ?",
		role, tenantID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership row. The owner cannot be removed.
func (s *TenantService) RemoveMember(ctx context.Context, tenantID, userID string) error {
	member, err := s.GetMember(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if member.Role == models.TenantRoleOwner {
		return fmt.Errorf("cannot remove the tenant owner")
	}

	_, err = s.db.ExecContext(ctx,
		"DELETE FROM tenant_members WHERE tenant_id = ? AND user_id = ?",
		tenantID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

// GetSettings returns the tenant's settings, defaults when none are stored
func (s *TenantService) GetSettings(ctx context.Context, tenantID string) (*models.TenantSettings, error) {
	var settings models.TenantSettings
	var brandName, logoURL, accentColor, restoreTab, flags sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT tenant_id, brand_name, logo_url, accent_color, restore_tab, feature_flags, updated_at FROM tenant_settings WHERE tenant_id = ?",
		tenantID,
	).Scan(&settings.TenantID, &brandName, &logoURL, &accentColor, &restoreTab, &flags, &settings.UpdatedAt)
	if err == sql.ErrNoRows {
		return &models.TenantSettings{TenantID: tenantID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	settings.BrandName = brandName.String
	settings.LogoURL = logoURL.String
	settings.AccentColor = accentColor.String
	settings.RestoreTab = restoreTab.String
	if flags.Valid && flags.String != "" {
		if err := json.Unmarshal([]byte(flags.String), &settings.FeatureFlags); err != nil {
			return nil, fmt.Errorf("failed to decode feature flags: %w", err)
		}
	}
	return &settings, nil
}

// UpdateSettings upserts the tenant's settings row
func (s *TenantService) UpdateSettings(ctx context.Context, tenantID string, settings *models.TenantSettings) error {
	flags := "[]"
	if settings.FeatureFlags != nil {
		b, err := json.Marshal(settings.FeatureFlags)
		if err != nil {
			return fmt.Errorf("failed to encode feature flags: %w", err)
		}
		flags = string(b)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenant_settings (tenant_id, brand_name, logo_url, accent_color, restore_tab, feature_flags)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE brand_name = VALUES(brand_name), logo_url = VALUES(logo_url),
		   accent_color = VALUES(accent_color), restore_tab = VALUES(restore_tab), feature_flags = VALUES(feature_flags)`,
		tenantID, settings.BrandName, settings.LogoURL, settings.AccentColor, settings.RestoreTab, flags,
	)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}

// UpdateTier sets the tenant's cached tier column. The subscriptions table is
// the source of truth; this keeps the denormalized column in sync.
func (s *TenantService) UpdateTier(ctx context.Context, tenantID, tier string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE tenants SET tier = ? WHERE id = ?", tier, tenantID)
	if err != nil {
		return fmt.Errorf("failed to update tier: %w", err)
	}
	return nil
}
