package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"tribehub/internal/database"
	"tribehub/internal/models"
)

const apiKeyPrefix = "th_"

// APIKeyService manages programmatic-access keys. Only the SHA-256 of a key
// is stored; validation hashes the presented key and looks it up.
type APIKeyService struct {
	db *database.DB
}

// NewAPIKeyService creates a new API key service
func NewAPIKeyService(db *database.DB) *APIKeyService {
	return &APIKeyService{db: db}
}

// GenerateKey mints a new plaintext key
func GenerateKey() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return apiKeyPrefix + hex.EncodeToString(b), nil
}

// HashKey returns the hex SHA-256 of a plaintext key
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Create mints a key for the user and returns the one-time plaintext secret
func (s *APIKeyService) Create(ctx context.Context, userID string, req *models.CreateAPIKeyRequest) (*models.CreateAPIKeyResponse, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("key name is required")
	}
	scopes := req.Scopes
	if len(scopes) == 0 {
		scopes = []string{"read:*"}
	}

	secret, err := GenerateKey()
	if err != nil {
		return nil, err
	}

	scopesJSON, err := json.Marshal(scopes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scopes: %w", err)
	}

	key := &models.APIKey{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      req.Name,
		KeyHash:   HashKey(secret),
		KeyPrefix: secret[:len(apiKeyPrefix)+8],
		Scopes:    scopes,
		CreatedAt: time.Now(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO api_keys (id, user_id, name, key_hash, key_prefix, scopes) VALUES (?, ?, ?, ?, ?, ?)",
		key.ID, key.UserID, key.Name, key.KeyHash, key.KeyPrefix, string(scopesJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create api key: %w", err)
	}

	log.Printf("🔐 [APIKEY] Created key %s (%s) for user %s", key.Name, key.KeyPrefix, userID)
	return &models.CreateAPIKeyResponse{Key: key, Secret: secret}, nil
}

// ValidateKey resolves a presented plaintext key to its record. Revoked keys
// never match. last_used_at is stamped in the background.
func (s *APIKeyService) ValidateKey(ctx context.Context, secret string) (*models.APIKey, error) {
	hash := HashKey(secret)

	key, err := s.scanKey(s.db.QueryRowContext(ctx,
		apiKeySelect+" WHERE key_hash = ? AND revoked = FALSE", hash,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("invalid api key")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to validate api key: %w", err)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := s.db.ExecContext(ctx, "UPDATE api_keys SET last_used_at = ? WHERE id = ?", time.Now(), key.ID); err != nil {
			log.Printf("⚠️ [APIKEY] Failed to stamp last_used_at: %v", err)
		}
	}()

	return key, nil
}

// List returns the user's keys, newest first, hashes omitted
func (s *APIKeyService) List(ctx context.Context, userID string) ([]models.APIKey, error) {
	rows, err := s.db.QueryContext(ctx,
		apiKeySelect+" WHERE user_id = ? ORDER BY created_at DESC", userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	keys := []models.APIKey{}
	for rows.Next() {
		key, err := s.scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		key.KeyHash = ""
		keys = append(keys, *key)
	}
	return keys, rows.Err()
}

// Revoke disables a key without deleting its audit trail
func (s *APIKeyService) Revoke(ctx context.Context, userID, keyID string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE api_keys SET revoked = TRUE WHERE id = ? AND user_id = ?", keyID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("api key not found")
	}
	return nil
}

// Delete removes a key entirely
func (s *APIKeyService) Delete(ctx context.Context, userID, keyID string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM api_keys WHERE id = ? AND user_id = ?", keyID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("api key not found")
	}
	return nil
}

const apiKeySelect = "SELECT id, user_id, name, key_hash, key_prefix, scopes, revoked, last_used_at, created_at FROM api_keys"

func (s *APIKeyService) scanKey(row rowScanner) (*models.APIKey, error) {
	var key models.APIKey
	var scopes sql.NullString
	var lastUsed sql.NullTime
	err := row.Scan(&key.ID, &key.UserID, &key.Name, &key.KeyHash, &key.KeyPrefix, &scopes, &key.Revoked, &lastUsed, &key.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(scopes, &key.Scopes); err != nil {
		return nil, fmt.Errorf("failed to decode scopes: %w", err)
	}
	if lastUsed.Valid {
		key.LastUsedAt = &lastUsed.Time
	}
	return &key, nil
}
