// Package config handles loading and saving bundlescope configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config: ~/.config/bsc/config.yaml
//   - State:  ~/.local/state/bsc/ (fallback score databases)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ScoreKeys is the set of assignable review scores, in keybinding order.
// The defaults mirror a review workflow: keep, split, lazy-load, vendored,
// remove.
var ScoreKeys = []string{"keep", "split", "lazy", "vendor", "remove"}

// UIConfig holds UI preference settings.
type UIConfig struct {
	ShowSizes  bool `yaml:"show_sizes,omitempty"`  // Render module sizes in the tree
	FollowRoot bool `yaml:"follow_root,omitempty"` // Select the first row on startup
}

// WatchConfig controls live manifest reloading.
type WatchConfig struct {
	Enabled      bool `yaml:"enabled,omitempty"`
	DebounceMS   int  `yaml:"debounce_ms,omitempty"`
	// ForcePoll skips fsnotify and uses mtime polling. Useful on network
	// filesystems where inotify events are unreliable.
	ForcePoll bool `yaml:"force_poll,omitempty"`
}

// Config is the top-level configuration for bsc.
type Config struct {
	// Manifests are additional stats files loaded alongside the primary one.
	Manifests []string `yaml:"manifests,omitempty"`
	// ScoreDir overrides the directory holding scores.db (normally
	// .bundlescope next to the manifest, or the BSC_DIR env var).
	ScoreDir string      `yaml:"score_dir,omitempty"`
	UI       UIConfig    `yaml:"ui,omitempty"`
	Watch    WatchConfig `yaml:"watch,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		UI: UIConfig{
			ShowSizes:  true,
			FollowRoot: true,
		},
		Watch: WatchConfig{
			Enabled:    true,
			DebounceMS: 250,
		},
	}
}

// ConfigDir returns the XDG config directory for bsc.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "bsc")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "bsc")
}

// StateDir returns the XDG state directory for bsc.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "bsc")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "bsc")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	// Expand ~ in configured paths
	cfg.ScoreDir = expandHome(cfg.ScoreDir)
	for i := range cfg.Manifests {
		cfg.Manifests[i] = expandHome(cfg.Manifests[i])
	}

	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
