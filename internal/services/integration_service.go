package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"tribehub/internal/database"
	"tribehub/internal/models"
)

// IntegrationService manages affiliate links and connected external services
type IntegrationService struct {
	db *database.DB
}

// NewIntegrationService creates a new integration service
func NewIntegrationService(db *database.DB) *IntegrationService {
	return &IntegrationService{db: db}
}

// CreateAffiliateLink mints a tracked link with a random short code
func (s *IntegrationService) CreateAffiliateLink(ctx context.Context, tenantID, targetURL string) (*models.AffiliateLink, error) {
	parsed, err := url.Parse(targetURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("target must be an absolute http(s) URL")
	}

	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate link code: %w", err)
	}

	link := &models.AffiliateLink{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Code:      hex.EncodeToString(b),
		TargetURL: targetURL,
		CreatedAt: time.Now(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO affiliate_links (id, tenant_id, code, target_url) VALUES (?, ?, ?, ?)",
		link.ID, link.TenantID, link.Code, link.TargetURL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create affiliate link: %w", err)
	}
	return link, nil
}

// ListAffiliateLinks returns the tenant's tracked links with click counts
func (s *IntegrationService) ListAffiliateLinks(ctx context.Context, tenantID string) ([]models.AffiliateLink, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, tenant_id, code, target_url, clicks, created_at FROM affiliate_links WHERE tenant_id = ? ORDER BY created_at DESC",
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list affiliate links: %w", err)
	}
	defer rows.Close()

	links := []models.AffiliateLink{}
	for rows.Next() {
		var l models.AffiliateLink
		if err := rows.Scan(&l.ID, &l.TenantID, &l.Code, &l.TargetURL, &l.Clicks, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan affiliate link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// ResolveAndCount looks up a link by code, bumps its click counter, and
// returns the redirect target. The public redirect endpoint calls this.
func (s *IntegrationService) ResolveAndCount(ctx context.Context, code string) (string, error) {
	var target string
	err := s.db.QueryRowContext(ctx,
		"SELECT target_url FROM affiliate_links WHERE code = ?", code,
	).Scan(&target)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("link not found")
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve link: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		"UPDATE affiliate_links SET clicks = clicks + 1 WHERE code = ?", code,
	); err != nil {
		return "", fmt.Errorf("failed to count click: %w", err)
	}
	return target, nil
}

// DeleteAffiliateLink removes a tracked link
func (s *IntegrationService) DeleteAffiliateLink(ctx context.Context, tenantID, linkID string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM affiliate_links WHERE id = ? AND tenant_id = ?", linkID, tenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete affiliate link: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("link not found")
	}
	return nil
}

// Connect upserts an integration connection. One row per provider per
// tenant; reconnecting replaces the stored config.
func (s *IntegrationService) Connect(ctx context.Context, tenantID, provider string, config map[string]string) (*models.ConnectedIntegration, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return nil, fmt.Errorf("provider is required")
	}

	configJSON := "{}"
	if config != nil {
		b, err := json.Marshal(config)
		if err != nil {
			return nil, fmt.Errorf("failed to encode config: %w", err)
		}
		configJSON = string(b)
	}

	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO connected_integrations (id, tenant_id, provider, status, config)
		 VALUES (?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE status = VALUES(status), config = VALUES(config)`,
		id, tenantID, provider, models.IntegrationConnected, configJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect integration: %w", err)
	}

	return s.GetIntegration(ctx, tenantID, provider)
}

// GetIntegration returns one provider connection
func (s *IntegrationService) GetIntegration(ctx context.Context, tenantID, provider string) (*models.ConnectedIntegration, error) {
	integ, err := scanIntegration(s.db.QueryRowContext(ctx,
		integrationSelect+" WHERE tenant_id = ? AND provider = ?", tenantID, provider,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("integration not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get integration: %w", err)
	}
	return integ, nil
}

// ListIntegrations returns the tenant's connected services
func (s *IntegrationService) ListIntegrations(ctx context.Context, tenantID string) ([]models.ConnectedIntegration, error) {
	rows, err := s.db.QueryContext(ctx,
		integrationSelect+" WHERE tenant_id = ? ORDER BY provider", tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}
	defer rows.Close()

	integrations := []models.ConnectedIntegration{}
	for rows.Next() {
		integ, err := scanIntegration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan integration: %w", err)
		}
		integrations = append(integrations, *integ)
	}
	return integrations, rows.Err()
}

// SetStatus updates a connection's status, e.g. to error after a failed sync
func (s *IntegrationService) SetStatus(ctx context.Context, tenantID, provider, status string) error {
	if status != models.IntegrationConnected && status != models.IntegrationDisconnected && status != models.IntegrationError {
		return fmt.Errorf("unknown integration status: %s", status)
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE connected_integrations SET status = ? WHERE tenant_id = ? AND provider = ?",
		status, tenantID, provider,
	)
	if err != nil {
		return fmt.Errorf("failed to set integration status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("integration not found")
	}
	return nil
}

// Disconnect removes a provider connection
func (s *IntegrationService) Disconnect(ctx context.Context, tenantID, provider string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM connected_integrations WHERE tenant_id = ? AND provider = ?", tenantID, provider,
	)
	if err != nil {
		return fmt.Errorf("failed to disconnect integration: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("integration not found")
	}
	return nil
}

const integrationSelect = "SELECT id, tenant_id, provider, status, config, created_at, updated_at FROM connected_integrations"

func scanIntegration(row rowScanner) (*models.ConnectedIntegration, error) {
	var integ models.ConnectedIntegration
	var config sql.NullString
	err := row.Scan(&integ.ID, &integ.TenantID, &integ.Provider, &integ.Status, &config, &integ.CreatedAt, &integ.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(config, &integ.Config); err != nil {
		return nil, fmt.Errorf("failed to decode integration config: %w", err)
	}
	return &integ, nil
}
