package config

import (
	"os"
	"path/filepath"
	"testing"

	"tribehub/internal/models"
)

func writeTiersFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "tiers.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write tiers file: %v", err)
	}
	return path
}

func TestLoadTiersFromFile(t *testing.T) {
	path := writeTiersFile(t, t.TempDir(), `
tiers:
  free:
    max_leads: 10
    max_members: 2
    max_tasks: 20
    max_modules: 1
  pro:
    max_leads: 500
  max: {}
`)

	tc, err := LoadTiers(path)
	if err != nil {
		t.Fatalf("LoadTiers failed: %v", err)
	}
	defer tc.Close()

	free := tc.Limits(models.TierFree)
	if free.MaxLeads != 10 || free.MaxMembers != 2 {
		t.Errorf("free limits = %+v, want max_leads=10 max_members=2", free)
	}

	pro := tc.Limits(models.TierPro)
	if pro.MaxLeads != 500 {
		t.Errorf("pro max_leads = %d, want 500", pro.MaxLeads)
	}
	if pro.MaxMembers != 0 {
		t.Errorf("pro max_members = %d, want 0 (unlimited)", pro.MaxMembers)
	}

	// max tier is all zeroes: everything allowed
	max := tc.Limits(models.TierMax)
	if !max.Allows(max.MaxLeads, 1_000_000) {
		t.Error("max tier should be unlimited")
	}
}

func TestLoadTiersMissingFileUsesDefaults(t *testing.T) {
	tc, err := LoadTiers(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadTiers failed: %v", err)
	}
	defer tc.Close()

	free := tc.Limits(models.TierFree)
	if free.MaxLeads == 0 {
		t.Error("default free tier should cap leads")
	}
}

func TestLimitsUnknownTierFallsBackToFree(t *testing.T) {
	path := writeTiersFile(t, t.TempDir(), `
tiers:
  free:
    max_leads: 7
`)
	tc, err := LoadTiers(path)
	if err != nil {
		t.Fatalf("LoadTiers failed: %v", err)
	}
	defer tc.Close()

	got := tc.Limits("enterprise")
	if got.MaxLeads != 7 {
		t.Errorf("unknown tier max_leads = %d, want free's 7", got.MaxLeads)
	}
}
