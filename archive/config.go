package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full coldtab configuration. Zero values are filled with
// defaults; flags may override individual fields after LoadConfigFile.
type Config struct {
	// DaysIdle is the staleness threshold: a tab qualifies when its last
	// visit is strictly before now − DaysIdle.
	DaysIdle int `yaml:"days_idle"`

	// DebugPort is the browser's remote-debugging port.
	DebugPort int `yaml:"debug_port"`

	// Root is the archive output directory (index.html, archive.db and
	// per-day PDF folders live under it).
	Root string `yaml:"root"`

	// ProfileDir is the browser profile directory containing History.
	ProfileDir string `yaml:"profile_dir"`

	// DryRun reports what would be archived without creating files or
	// closing tabs.
	DryRun bool `yaml:"dry_run"`

	// MaxFilenameLen bounds sanitized PDF stems.
	MaxFilenameLen int `yaml:"max_filename_len"`

	ConnTimeout  time.Duration `yaml:"conn_timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	NavTimeout   time.Duration `yaml:"nav_timeout"`
	SettleDelay  time.Duration `yaml:"settle_delay"`

	Serve ServeConfig `yaml:"serve"`
}

// ServeConfig controls the optional index HTTP server.
type ServeConfig struct {
	Addr string `yaml:"addr"`

	// AuthUser/AuthHash enable Basic Auth when AuthHash (a bcrypt hash)
	// is set.
	AuthUser string `yaml:"auth_user"`
	AuthHash string `yaml:"auth_hash"`
}

func (c *Config) defaults() {
	if c.DaysIdle <= 0 {
		c.DaysIdle = 14
	}
	if c.DebugPort <= 0 {
		c.DebugPort = 9222
	}
	if c.Root == "" {
		c.Root = DefaultRoot()
	}
	if c.ProfileDir == "" {
		c.ProfileDir = DefaultProfileDir()
	}
	if c.MaxFilenameLen <= 0 {
		c.MaxFilenameLen = 80
	}
	if c.ConnTimeout <= 0 {
		c.ConnTimeout = 10 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = time.Second
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 15 * time.Second
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 3 * time.Second
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = ":8087"
	}
	if c.Serve.AuthUser == "" {
		c.Serve.AuthUser = "coldtab"
	}
}

// DefaultRoot returns the per-OS archive directory.
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "TabColdStore"
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(home, "Documents", "TabColdStore")
	}
	return filepath.Join(home, "TabColdStore")
}

// DefaultProfileDir returns the default Chrome profile directory per OS.
func DefaultProfileDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Local", "Google", "Chrome", "User Data", "Default")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default")
	default:
		return filepath.Join(home, ".config", "google-chrome", "Default")
	}
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("archive: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("archive: parse config %s: %w", path, err)
	}
	return &cfg, nil
}
