package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"tribehub/internal/database"
	"tribehub/internal/models"
)

// SalesService manages revenue configuration, the transaction ledger, and
// the computed dashboard
type SalesService struct {
	db *database.DB
}

// NewSalesService creates a new sales service
func NewSalesService(db *database.DB) *SalesService {
	return &SalesService{db: db}
}

// GetConfig returns the tenant's sales configuration, defaults when unset
func (s *SalesService) GetConfig(ctx context.Context, tenantID string) (*models.SalesConfig, error) {
	var cfg models.SalesConfig
	var splits, taxes, overrides sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT tenant_id, platform_fee_pct, splits, custom_taxes, manual_overrides, updated_at FROM sales_config WHERE tenant_id = ?",
		tenantID,
	).Scan(&cfg.TenantID, &cfg.PlatformFeePct, &splits, &taxes, &overrides, &cfg.UpdatedAt)
	if err == sql.ErrNoRows {
		return &models.SalesConfig{TenantID: tenantID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sales config: %w", err)
	}

	if err := decodeJSONColumn(splits, &cfg.Splits); err != nil {
		return nil, fmt.Errorf("failed to decode splits: %w", err)
	}
	if err := decodeJSONColumn(taxes, &cfg.CustomTaxes); err != nil {
		return nil, fmt.Errorf("failed to decode custom taxes: %w", err)
	}
	if err := decodeJSONColumn(overrides, &cfg.ManualOverrides); err != nil {
		return nil, fmt.Errorf("failed to decode overrides: %w", err)
	}
	return &cfg, nil
}

// UpdateConfig upserts the tenant's sales configuration
func (s *SalesService) UpdateConfig(ctx context.Context, tenantID string, cfg *models.SalesConfig) error {
	if cfg.PlatformFeePct < 0 || cfg.PlatformFeePct > 100 {
		return fmt.Errorf("platform fee must be between 0 and 100")
	}
	for label, pct := range cfg.Splits {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("split %q must be between 0 and 100", label)
		}
	}
	for label, pct := range cfg.CustomTaxes {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("tax %q must be between 0 and 100", label)
		}
	}

	encode := func(v interface{}) (string, error) {
		if v == nil {
			return "{}", nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to encode sales config: %w", err)
		}
		return string(b), nil
	}
	splits, err := encode(cfg.Splits)
	if err != nil {
		return err
	}
	taxes, err := encode(cfg.CustomTaxes)
	if err != nil {
		return err
	}
	overrides, err := encode(cfg.ManualOverrides)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sales_config (tenant_id, platform_fee_pct, splits, custom_taxes, manual_overrides)
		 VALUES (?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE platform_fee_pct = VALUES(platform_fee_pct), splits = VALUES(splits),
		   custom_taxes = VALUES(custom_taxes), manual_overrides = VALUES(manual_overrides)`,
		tenantID, cfg.PlatformFeePct, splits, taxes, overrides,
	)
	if err != nil {
		return fmt.Errorf("failed to update sales config: %w", err)
	}
	return nil
}

// AddTransaction records one revenue event
func (s *SalesService) AddTransaction(ctx context.Context, tenantID string, tx *models.Transaction) (*models.Transaction, error) {
	if tx.Amount == 0 {
		return nil, fmt.Errorf("transaction amount is required")
	}
	if tx.Currency == "" {
		tx.Currency = "USD"
	}
	if tx.OccurredAt.IsZero() {
		tx.OccurredAt = time.Now()
	}
	tx.ID = uuid.New().String()
	tx.TenantID = tenantID

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO transactions (id, tenant_id, amount, currency, description, source, occurred_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		tx.ID, tx.TenantID, tx.Amount, tx.Currency, tx.Description, tx.Source, tx.OccurredAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add transaction: %w", err)
	}
	return tx, nil
}

// ListTransactions returns the tenant's transactions in the window, newest
// first. Zero times mean unbounded.
func (s *SalesService) ListTransactions(ctx context.Context, tenantID string, from, to time.Time) ([]models.Transaction, error) {
	query := "SELECT id, tenant_id, amount, currency, description, source, occurred_at FROM transactions WHERE tenant_id = ?"
	args := []interface{}{tenantID}
	if !from.IsZero() {
		query += " AND occurred_at >= ?"
		args = append(args, from)
	}
	if !to.IsZero() {
		query += " AND occurred_at <= ?"
		args = append(args, to)
	}
	query += " ORDER BY occurred_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		var tx models.Transaction
		var description, source sql.NullString
		if err := rows.Scan(&tx.ID, &tx.TenantID, &tx.Amount, &tx.Currency, &description, &source, &tx.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Description = description.String
		tx.Source = source.String
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// Metrics computes the dashboard summary for the window
func (s *SalesService) Metrics(ctx context.Context, tenantID string, from, to time.Time) (*models.SalesMetrics, error) {
	cfg, err := s.GetConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	txs, err := s.ListTransactions(ctx, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	return models.ComputeSalesMetrics(txs, cfg, time.Now()), nil
}

// ExportXLSX renders the tenant's transactions and summary to a spreadsheet
func (s *SalesService) ExportXLSX(ctx context.Context, tenantID string, from, to time.Time) ([]byte, error) {
	txs, err := s.ListTransactions(ctx, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	cfg, err := s.GetConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	metrics := models.ComputeSalesMetrics(txs, cfg, time.Now())

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Transactions"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headers := []string{"Date", "Amount", "Currency", "Description", "Source"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, tx := range txs {
		values := []interface{}{
			tx.OccurredAt.Format("2006-01-02 15:04"),
			tx.Amount,
			tx.Currency,
			tx.Description,
			tx.Source,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("failed to write transaction row: %w", err)
			}
		}
	}

	summary := "Summary"
	if _, err := f.NewSheet(summary); err != nil {
		return nil, fmt.Errorf("failed to add summary sheet: %w", err)
	}
	summaryRows := [][]interface{}{
		{"Gross", metrics.Gross},
		{"Platform fees", metrics.PlatformFees},
		{"Taxes", metrics.Taxes},
		{"Net", metrics.Net},
		{"Transactions", metrics.TransactionCount},
		{"Projected monthly", metrics.ProjectedMonthly},
	}
	for label, amount := range metrics.SplitAmounts {
		summaryRows = append(summaryRows, []interface{}{"Split: " + label, amount})
	}
	for row, pair := range summaryRows {
		for col, v := range pair {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+1)
			if err := f.SetCellValue(summary, cell, v); err != nil {
				return nil, fmt.Errorf("failed to write summary row: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}
