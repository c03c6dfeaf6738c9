package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tribehub/internal/database"
	"tribehub/internal/models"
)

// LeadService manages the tenant's CRM pipeline
type LeadService struct {
	db          *database.DB
	tierService *TierService
}

// NewLeadService creates a new lead service
func NewLeadService(db *database.DB, tierService *TierService) *LeadService {
	return &LeadService{db: db, tierService: tierService}
}

// Count returns the tenant's lead count, used for plan limit checks
func (s *LeadService) Count(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM leads WHERE tenant_id = ?", tenantID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return n, nil
}

// Create adds a lead, enforcing the tenant's lead limit
func (s *LeadService) Create(ctx context.Context, tenantID string, req *models.CreateLeadRequest) (*models.Lead, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("lead name is required")
	}

	count, err := s.Count(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !s.tierService.CheckLeadLimit(ctx, tenantID, count) {
		limits := s.tierService.GetLimits(ctx, tenantID)
		tier := s.tierService.GetTenantTier(ctx, tenantID)
		return nil, &PlanLimitError{Resource: "leads", Limit: limits.MaxLeads, Current: count, Tier: tier}
	}

	status := req.Status
	if status == "" {
		status = models.LeadStatusNew
	}
	if !models.ValidLeadStatus(status) {
		return nil, fmt.Errorf("unknown lead status: %s", status)
	}
	if req.Value < 0 {
		return nil, fmt.Errorf("lead value cannot be negative")
	}

	lead := &models.Lead{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		Name:        req.Name,
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Company:     req.Company,
		Value:       req.Value,
		Status:      status,
		LastContact: req.LastContact,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO leads (id, tenant_id, name, email, company, value, status, last_contact) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		lead.ID, lead.TenantID, lead.Name, lead.Email, lead.Company, lead.Value, lead.Status, lead.LastContact,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}
	return lead, nil
}

// Get retrieves a lead by ID
func (s *LeadService) Get(ctx context.Context, tenantID, leadID string) (*models.Lead, error) {
	lead, err := scanLead(s.db.QueryRowContext(ctx,
		leadSelect+" WHERE id = ? AND tenant_id = ?", leadID, tenantID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("lead not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

// List returns the tenant's leads, optionally filtered by pipeline status
func (s *LeadService) List(ctx context.Context, tenantID, status string) ([]models.Lead, error) {
	query := leadSelect + " WHERE tenant_id = ?"
	args := []interface{}{tenantID}
	if status != "" {
		if !models.ValidLeadStatus(status) {
			return nil, fmt.Errorf("unknown lead status: %s", status)
		}
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	leads := []models.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, *lead)
	}
	return leads, rows.Err()
}

// Update applies a partial update. Nil pointer fields are left unchanged.
// Moving a lead to CONTACTED stamps last_contact when the caller did not
// supply one.
func (s *LeadService) Update(ctx context.Context, tenantID, leadID string, req *models.UpdateLeadRequest) (*models.Lead, error) {
	lead, err := s.Get(ctx, tenantID, leadID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("lead name is required")
		}
		lead.Name = *req.Name
	}
	if req.Email != nil {
		lead.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Company != nil {
		lead.Company = *req.Company
	}
	if req.Value != nil {
		if *req.Value < 0 {
			return nil, fmt.Errorf("lead value cannot be negative")
		}
		lead.Value = *req.Value
	}
	if req.LastContact != nil {
		lead.LastContact = req.LastContact
	}
	if req.Status != nil {
		if !models.ValidLeadStatus(*req.Status) {
			return nil, fmt.Errorf("unknown lead status: %s", *req.Status)
		}
		if *req.Status == models.LeadStatusContacted && lead.Status != models.LeadStatusContacted && req.LastContact == nil {
			now := time.Now()
			lead.LastContact = &now
		}
		lead.Status = *req.Status
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE leads SET name = ?, email = ?, company = ?, value = ?, status = ?, last_contact = ? WHERE id = ? AND tenant_id = ?",
		lead.Name, lead.Email, lead.Company, lead.Value, lead.Status, lead.LastContact, leadID, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}

	lead.UpdatedAt = time.Now()
	return lead, nil
}

// Delete removes a lead
func (s *LeadService) Delete(ctx context.Context, tenantID, leadID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM leads WHERE id = ? AND tenant_id = ?", leadID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("lead not found")
	}
	return nil
}

const leadSelect = "SELECT id, tenant_id, name, email, company, value, status, last_contact, created_at, updated_at FROM leads"

func scanLead(row rowScanner) (*models.Lead, error) {
	var lead models.Lead
	var email, company sql.NullString
	var lastContact sql.NullTime
	err := row.Scan(&lead.ID, &lead.TenantID, &lead.Name, &email, &company, &lead.Value, &lead.Status, &lastContact, &lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		return nil, err
	}
	lead.Email = email.String
	lead.Company = company.String
	if lastContact.Valid {
		lead.LastContact = &lastContact.Time
	}
	return &lead, nil
}
