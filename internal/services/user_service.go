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

	"github.com/google/uuid"

	"tribehub/internal/database"
	"tribehub/internal/models"
	"tribehub/pkg/auth"
)

// UserService handles account registration, login, and password resets
type UserService struct {
	db      *database.DB
	jwtAuth *auth.LocalJWTAuth
}

// NewUserService creates a new user service
func NewUserService(db *database.DB, jwtAuth *auth.LocalJWTAuth) *UserService {
	return &UserService{db: db, jwtAuth: jwtAuth}
}

// Register creates a new account. The first registered user becomes admin.
func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Name == "" {
		return nil, fmt.Errorf("email and name are required")
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email = ?", email).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists > 0 {
		return nil, fmt.Errorf("email already registered")
	}

	hash, err := s.jwtAuth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// First registered user becomes the instance admin
	role := models.RoleUser
	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err == nil && total == 0 {
		role = models.RoleAdmin
	}

	user := &models.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      req.Name,
		Role:      role,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, name, password_hash, role) VALUES (?, ?, ?, ?, ?)",
		user.ID, user.Email, user.Name, hash, user.Role,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("👤 [USER] Registered %s (%s, role: %s)", user.Email, user.ID, user.Role)
	return user, nil
}

// Authenticate verifies email and password and returns the user
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	var hash string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, name, password_hash, role, created_at, updated_at FROM users WHERE email = ?",
		email,
	).Scan(&user.ID, &user.Email, &user.Name, &hash, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	ok, err := s.jwtAuth.VerifyPassword(hash, password)
	if err != nil || !ok {
		return nil, fmt.Errorf("invalid credentials")
	}

	return &user, nil
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, name, role, created_at, updated_at FROM users WHERE id = ?",
		userID,
	).Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by email
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, name, role, created_at, updated_at FROM users WHERE email = ?",
		email,
	).Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// UpdateProfile updates a user's display name
func (s *UserService) UpdateProfile(ctx context.Context, userID, name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	result, err := s.db.ExecContext(ctx, "UPDATE users SET name = ? WHERE id = ?", name, userID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

// CreatePasswordReset creates a reset token for the email. Always succeeds
// from the caller's view so email enumeration stays impossible; the returned
// token is empty when the account does not exist.
func (s *UserService) CreatePasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return "", nil
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := hex.EncodeToString(b)

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO password_reset_tokens (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, user.ID, time.Now().Add(1*time.Hour),
	)
	if err != nil {
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}

	return token, nil
}

// ConfirmPasswordReset sets a new password if the token is valid and unused
func (s *UserService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if err := auth.ValidatePassword(newPassword); err != nil {
		return err
	}

	var userID string
	var expiresAt time.Time
	var used bool
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, expires_at, used FROM password_reset_tokens WHERE token = ?",
		token,
	).Scan(&userID, &expiresAt, &used)
	if err == sql.ErrNoRows {
		return fmt.Errorf("invalid or expired reset token")
	}
	if err != nil {
		return fmt.Errorf("failed to look up reset token: %w", err)
	}
	if used || time.Now().After(expiresAt) {
		return fmt.Errorf("invalid or expired reset token")
	}

	hash, err := s.jwtAuth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", hash, userID); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE password_reset_tokens SET used = TRUE WHERE token = ?", token); err != nil {
		return fmt.Errorf("failed to mark token used: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit password reset: %w", err)
	}

	log.Printf("🔑 [USER] Password reset completed for user %s", userID)
	return nil
}

// SweepExpiredResetTokens deletes stale reset tokens. Called by the scheduler.
func (s *UserService) SweepExpiredResetTokens(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM password_reset_tokens WHERE expires_at < ? OR used = TRUE",
		time.Now().Add(-24*time.Hour),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep reset tokens: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
