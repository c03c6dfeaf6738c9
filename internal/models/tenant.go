package models

import "time"

// Tenant member roles
const (
	TenantRoleOwner  = "owner"
	TenantRoleAdmin  = "admin"
	TenantRoleMember = "member"
)

// Tenant is one isolated community/workspace. Every domain row carries its ID.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	OwnerID   string    `json:"owner_id"`
	Tier      string    `json:"tier"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TenantMember links a user to a tenant with a role
type TenantMember struct {
	TenantID string    `json:"tenant_id"`
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`

	// Denormalized for member lists
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

// CanManage reports whether the member may administer the tenant
// (invite members, edit settings, delete content they don't own).
func (m *TenantMember) CanManage() bool {
	return m.Role == TenantRoleOwner || m.Role == TenantRoleAdmin
}

// TenantSettings holds per-tenant presentation and behavior knobs.
// RestoreTab mirrors the UI's persisted settings-tab selection.
type TenantSettings struct {
	TenantID     string    `json:"tenant_id"`
	BrandName    string    `json:"brand_name,omitempty"`
	LogoURL      string    `json:"logo_url,omitempty"`
	AccentColor  string    `json:"accent_color,omitempty"`
	RestoreTab   string    `json:"restore_tab,omitempty"`
	FeatureFlags []string  `json:"feature_flags,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateTenantRequest is the payload for POST /api/tenants
type CreateTenantRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}
