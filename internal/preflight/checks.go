// Package preflight verifies the server's dependencies before it starts
// serving traffic: database connectivity, schema completeness, and the
// environment the optional subsystems need.
package preflight

import (
	"fmt"
	"log"
	"os"
	"os/exec"

	"tribehub/internal/database"
)

// CheckResult is the outcome of one preflight check
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warning"
	Message string
	Error   error
}

// requiredTables is the core schema the platform cannot run without
var requiredTables = []string{
	"users",
	"tenants",
	"tenant_members",
	"tenant_settings",
	"invites",
	"board_columns",
	"tasks",
	"leads",
	"modules",
	"lessons",
	"lesson_progress",
	"posts",
	"notifications",
	"notification_preferences",
	"subscriptions",
	"api_keys",
	"sales_config",
	"transactions",
	"affiliate_links",
	"connected_integrations",
}

// Checker performs pre-flight checks before the server starts
type Checker struct {
	db *database.DB
}

// NewChecker creates a new preflight checker
func NewChecker(db *database.DB) *Checker {
	return &Checker{db: db}
}

// RunAll runs all preflight checks and logs a summary
func (c *Checker) RunAll() []CheckResult {
	log.Println("🔍 Running pre-flight checks...")

	results := []CheckResult{
		c.checkDatabaseConnection(),
		c.checkDatabaseSchema(),
		c.checkEnvironment(),
		c.checkChromium(),
	}

	passed, failed, warnings := 0, 0, 0
	for _, result := range results {
		switch result.Status {
		case "pass":
			log.Printf("   ✅ %s: %s", result.Name, result.Message)
			passed++
		case "fail":
			log.Printf("   ❌ %s: %s", result.Name, result.Message)
			if result.Error != nil {
				log.Printf("      Error: %v", result.Error)
			}
			failed++
		case "warning":
			log.Printf("   ⚠️  %s: %s", result.Name, result.Message)
			warnings++
		}
	}

	log.Printf("📊 Pre-flight summary: %d passed, %d failed, %d warnings", passed, failed, warnings)
	return results
}

// HasFailures reports whether any check failed
func HasFailures(results []CheckResult) bool {
	for _, result := range results {
		if result.Status == "fail" {
			return true
		}
	}
	return false
}

func (c *Checker) checkDatabaseConnection() CheckResult {
	if err := c.db.Ping(); err != nil {
		return CheckResult{
			Name:    "Database Connection",
			Status:  "fail",
			Message: "Cannot connect to database",
			Error:   err,
		}
	}
	return CheckResult{
		Name:    "Database Connection",
		Status:  "pass",
		Message: "Database connection successful",
	}
}

func (c *Checker) checkDatabaseSchema() CheckResult {
	for _, table := range requiredTables {
		var count int
		query := "SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?"
		err := c.db.QueryRow(query, table).Scan(&count)
		if err != nil || count == 0 {
			return CheckResult{
				Name:    "Database Schema",
				Status:  "fail",
				Message: fmt.Sprintf("Required table '%s' not found", table),
				Error:   err,
			}
		}
	}
	return CheckResult{
		Name:    "Database Schema",
		Status:  "pass",
		Message: fmt.Sprintf("All %d required tables exist", len(requiredTables)),
	}
}

func (c *Checker) checkEnvironment() CheckResult {
	if os.Getenv("JWT_SECRET") == "" {
		return CheckResult{
			Name:    "Environment",
			Status:  "fail",
			Message: "JWT_SECRET is not set. Generate with: openssl rand -hex 32",
		}
	}

	var optionalMissing []string
	if os.Getenv("REDIS_URL") == "" {
		optionalMissing = append(optionalMissing, "REDIS_URL (counters fall back to MySQL)")
	}
	if os.Getenv("MONGODB_URI") == "" {
		optionalMissing = append(optionalMissing, "MONGODB_URI (activity feed disabled)")
	}
	if os.Getenv("DODO_API_KEY") == "" {
		optionalMissing = append(optionalMissing, "DODO_API_KEY (billing disabled)")
	}

	if len(optionalMissing) > 0 {
		return CheckResult{
			Name:    "Environment",
			Status:  "warning",
			Message: fmt.Sprintf("Optional features unconfigured: %v", optionalMissing),
		}
	}
	return CheckResult{
		Name:    "Environment",
		Status:  "pass",
		Message: "All environment variables configured",
	}
}

// checkChromium looks for a usable Chrome/Chromium binary. Certificate
// rendering needs one; everything else works without it.
func (c *Checker) checkChromium() CheckResult {
	if custom := os.Getenv("CHROME_BIN"); custom != "" {
		if _, err := os.Stat(custom); err == nil {
			return CheckResult{
				Name:    "Chromium",
				Status:  "pass",
				Message: fmt.Sprintf("Using CHROME_BIN=%s", custom),
			}
		}
		return CheckResult{
			Name:    "Chromium",
			Status:  "warning",
			Message: fmt.Sprintf("CHROME_BIN=%s does not exist (certificate rendering disabled)", os.Getenv("CHROME_BIN")),
		}
	}

	for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if path, err := exec.LookPath(name); err == nil {
			return CheckResult{
				Name:    "Chromium",
				Status:  "pass",
				Message: fmt.Sprintf("Found %s", path),
			}
		}
	}
	return CheckResult{
		Name:    "Chromium",
		Status:  "warning",
		Message: "No Chrome/Chromium binary found (certificate rendering disabled)",
	}
}
