package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"tribehub/internal/database"
	"tribehub/internal/models"
)

const defaultInviteExpiryDays = 7

// InviteService manages single-use invite codes for joining a tenant
type InviteService struct {
	db            *database.DB
	tenantService *TenantService
}

// NewInviteService creates a new invite service
func NewInviteService(db *database.DB, tenantService *TenantService) *InviteService {
	return &InviteService{db: db, tenantService: tenantService}
}

// Create mints a new invite code for the tenant
func (s *InviteService) Create(ctx context.Context, tenantID, createdBy string, req *models.CreateInviteRequest) (*models.Invite, error) {
	role := req.Role
	if role == "" {
		role = models.TenantRoleMember
	}
	if role != models.TenantRoleAdmin && role != models.TenantRoleMember {
		return nil, fmt.Errorf("invalid invite role: %s", role)
	}

	days := req.ExpiresInDays
	if days <= 0 {
		days = defaultInviteExpiryDays
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate invite code: %w", err)
	}

	invite := &models.Invite{
		Code:      hex.EncodeToString(b),
		TenantID:  tenantID,
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Role:      role,
		CreatedBy: createdBy,
		ExpiresAt: time.Now().Add(time.Duration(days) * 24 * time.Hour),
		CreatedAt: time.Now(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO invites (code, tenant_id, email, role, created_by, expires_at) VALUES (?, ?, ?, ?, ?, ?)",
		invite.Code, invite.TenantID, invite.Email, invite.Role, invite.CreatedBy, invite.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	log.Printf("✉️ [INVITE] Created invite %s for tenant %s (role: %s)", invite.Code[:8], tenantID, role)
	return invite, nil
}

// Get returns an invite with the tenant name joined in, so the landing page
// can show what the user is joining before they sign up.
func (s *InviteService) Get(ctx context.Context, code string) (*models.Invite, error) {
	var inv models.Invite
	var email, acceptedBy sql.NullString
	var acceptedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT i.code, i.tenant_id, t.name, i.email, i.role, i.created_by, i.expires_at, i.accepted_at, i.accepted_by, i.created_at
		 FROM invites i JOIN tenants t ON t.id = i.tenant_id
		 WHERE i.code = ?`,
		code,
	).Scan(&inv.Code, &inv.TenantID, &inv.TenantName, &email, &inv.Role, &inv.CreatedBy, &inv.ExpiresAt, &acceptedAt, &acceptedBy, &inv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("invite not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}

	inv.Email = email.String
	inv.AcceptedBy = acceptedBy.String
	if acceptedAt.Valid {
		inv.AcceptedAt = &acceptedAt.Time
	}
	return &inv, nil
}

// Accept redeems an invite for the user: marks it accepted and adds the user
// to the tenant. Single use, expiry and member limits enforced.
func (s *InviteService) Accept(ctx context.Context, code, userID string) (*models.Invite, error) {
	invite, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if invite.IsAccepted() {
		return nil, fmt.Errorf("invite has already been used")
	}
	if invite.IsExpired(time.Now()) {
		return nil, fmt.Errorf("invite has expired")
	}

	// AddMember enforces the member limit and duplicate membership
	if err := s.tenantService.AddMember(ctx, invite.TenantID, userID, invite.Role); err != nil {
		return nil, err
	}

	// Guard against a concurrent accept: only flip if still unaccepted
	result, err := s.db.ExecContext(ctx,
		"UPDATE invites SET accepted_at = ?, accepted_by = ? WHERE code = ? AND accepted_at IS NULL",
		time.Now(), userID, code,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mark invite accepted: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("invite has already been used")
	}

	log.Printf("✅ [INVITE] User %s joined tenant %s via invite %s", userID, invite.TenantID, code[:8])
	return s.Get(ctx, code)
}

// List returns the tenant's invites, newest first
func (s *InviteService) List(ctx context.Context, tenantID string) ([]models.Invite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, tenant_id, email, role, created_by, expires_at, accepted_at, accepted_by, created_at
		 FROM invites WHERE tenant_id = ? ORDER BY created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	defer rows.Close()

	invites := []models.Invite{}
	for rows.Next() {
		var inv models.Invite
		var email, acceptedBy sql.NullString
		var acceptedAt sql.NullTime
		if err := rows.Scan(&inv.Code, &inv.TenantID, &email, &inv.Role, &inv.CreatedBy, &inv.ExpiresAt, &acceptedAt, &acceptedBy, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		inv.Email = email.String
		inv.AcceptedBy = acceptedBy.String
		if acceptedAt.Valid {
			inv.AcceptedAt = &acceptedAt.Time
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

// Revoke deletes an unaccepted invite
func (s *InviteService) Revoke(ctx context.Context, tenantID, code string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM invites WHERE code = ? AND tenant_id = ? AND accepted_at IS NULL",
		code, tenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke invite: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("invite not found or already accepted")
	}
	return nil
}

// SweepExpired deletes expired unaccepted invites. Called by the scheduler.
func (s *InviteService) SweepExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM invites WHERE expires_at < ? AND accepted_at IS NULL",
		time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep invites: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
