package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"tribehub/internal/models"
)

// TiersConfig maps plan tier names to their limits. Loaded from YAML and
// hot-reloaded when the file changes, so limit bumps don't need a restart.
type TiersConfig struct {
	mu      sync.RWMutex
	limits  map[string]models.TierLimits
	path    string
	watcher *fsnotify.Watcher
}

// defaultTierLimits is used when no tiers file exists.
var defaultTierLimits = map[string]models.TierLimits{
	models.TierFree: {MaxLeads: 50, MaxMembers: 5, MaxTasks: 200, MaxModules: 3},
	models.TierPro:  {MaxLeads: 1000, MaxMembers: 50, MaxTasks: 5000, MaxModules: 25},
	models.TierMax:  {}, // unlimited
}

type tiersFile struct {
	Tiers map[string]models.TierLimits `yaml:"tiers"`
}

// LoadTiers reads the tiers YAML file and starts watching it for changes.
// A missing file is not an error; built-in defaults apply.
func LoadTiers(path string) (*TiersConfig, error) {
	tc := &TiersConfig{
		limits: defaultTierLimits,
		path:   path,
	}

	if err := tc.reload(); err != nil {
		if os.IsNotExist(err) {
			log.Printf("⚠️ Tiers file %s not found, using built-in defaults", path)
		} else {
			return nil, err
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create tiers watcher: %w", err)
	}
	tc.watcher = watcher

	// Watch the directory, not the file: editors replace files on save
	// and a watch on the old inode would go stale.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go tc.watch()

	return tc, nil
}

func (tc *TiersConfig) watch() {
	for {
		select {
		case event, ok := <-tc.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(tc.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := tc.reload(); err != nil {
				log.Printf("⚠️ Failed to reload tiers file: %v", err)
				continue
			}
			log.Printf("🔄 Reloaded tier limits from %s", tc.path)
		case err, ok := <-tc.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️ Tiers watcher error: %v", err)
		}
	}
}

func (tc *TiersConfig) reload() error {
	data, err := os.ReadFile(tc.path)
	if err != nil {
		return err
	}

	var f tiersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse tiers YAML: %w", err)
	}
	if len(f.Tiers) == 0 {
		return fmt.Errorf("tiers file %s has no tiers", tc.path)
	}

	tc.mu.Lock()
	tc.limits = f.Tiers
	tc.mu.Unlock()
	return nil
}

// Limits returns the limits for a tier. Unknown tiers fall back to free.
func (tc *TiersConfig) Limits(tier string) models.TierLimits {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	if l, ok := tc.limits[tier]; ok {
		return l
	}
	return tc.limits[models.TierFree]
}

// Close stops the file watcher.
func (tc *TiersConfig) Close() error {
	if tc.watcher != nil {
		return tc.watcher.Close()
	}
	return nil
}
