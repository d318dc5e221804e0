package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for sweep.
type Config struct {
	// Session loop limits and safety gates
	Session SessionConfig `koanf:"session" toml:"session"`

	// Pattern allow and deny lists
	Patterns PatternsConfig `koanf:"patterns" toml:"patterns"`

	// Action throttling
	RateLimiting RateLimitConfig `koanf:"rate_limiting" toml:"rate_limiting"`

	// Per-operation deadlines
	Timeouts TimeoutConfig `koanf:"timeouts" toml:"timeouts"`

	// TODO discovery
	Scan ScanConfig `koanf:"scan" toml:"scan"`

	// Stub body synthesis
	Synthesis SynthesisConfig `koanf:"synthesis" toml:"synthesis"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Logging settings
	Log LogConfig `koanf:"log" toml:"log"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`

	// DataDir holds sessions, replay logs and the scan cache.
	DataDir string `koanf:"data_dir" toml:"data_dir"`
}

// SessionConfig bounds what one autonomous session may do.
type SessionConfig struct {
	MaxActionsPerSession  int     `koanf:"max_actions_per_session" toml:"max_actions_per_session"`
	SessionTimeoutMinutes int     `koanf:"session_timeout_minutes" toml:"session_timeout_minutes"`
	SafetyThreshold       float64 `koanf:"safety_threshold" toml:"safety_threshold"`
	AutoApproveThreshold  float64 `koanf:"auto_approve_threshold" toml:"auto_approve_threshold"`
	EnableGitIntegration  bool    `koanf:"enable_git_integration" toml:"enable_git_integration"`
	EnableBackups         bool    `koanf:"enable_backups" toml:"enable_backups"`
	EnableReplay          bool    `koanf:"enable_replay" toml:"enable_replay"`
	MaxRetries            int     `koanf:"max_retries" toml:"max_retries"`
	RetryDelaySeconds     int     `koanf:"retry_delay_seconds" toml:"retry_delay_seconds"`
	RemoveResolvedTodos   bool    `koanf:"remove_resolved_todos" toml:"remove_resolved_todos"`
	BranchPrefix          string  `koanf:"branch_prefix" toml:"branch_prefix"`
}

// PatternsConfig filters the pattern table per session.
// An empty Enabled list enables every pattern. Confidence overrides the base
// confidence of individual patterns by ID.
type PatternsConfig struct {
	Enabled    []string           `koanf:"enabled" toml:"enabled"`
	Disabled   []string           `koanf:"disabled" toml:"disabled"`
	Confidence map[string]float64 `koanf:"confidence" toml:"confidence"`
}

// RateLimitConfig throttles executed actions.
type RateLimitConfig struct {
	MaxActionsPerMinute int `koanf:"max_actions_per_minute" toml:"max_actions_per_minute"`
	CooldownSeconds     int `koanf:"cooldown_seconds" toml:"cooldown_seconds"`
}

// TimeoutConfig holds per-operation deadlines in seconds.
type TimeoutConfig struct {
	ListSeconds    int `koanf:"list_seconds" toml:"list_seconds"`
	ContextSeconds int `koanf:"context_seconds" toml:"context_seconds"`
	PatternSeconds int `koanf:"pattern_seconds" toml:"pattern_seconds"`
	ActionSeconds  int `koanf:"action_seconds" toml:"action_seconds"`
}

// ScanConfig controls TODO discovery.
type ScanConfig struct {
	FilePatterns []string `koanf:"file_patterns" toml:"file_patterns"`
	MaxFileSize  int64    `koanf:"max_file_size" toml:"max_file_size"`
	ContextLines int      `koanf:"context_lines" toml:"context_lines"`
	Workers      int      `koanf:"workers" toml:"workers"`
}

// SynthesisConfig controls stub implementation.
type SynthesisConfig struct {
	Strategy string `koanf:"strategy" toml:"strategy"` // conservative, balanced, creative
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns"`
	Dirs      []string `koanf:"dirs" toml:"dirs"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level      string `koanf:"level" toml:"level"`
	File       string `koanf:"file" toml:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups" toml:"max_backups"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format"` // text, json, yaml, markdown, toon
	Color  bool   `koanf:"color" toml:"color"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			MaxActionsPerSession:  10,
			SessionTimeoutMinutes: 30,
			SafetyThreshold:       0.7,
			AutoApproveThreshold:  0.7,
			EnableGitIntegration:  false,
			EnableBackups:         true,
			EnableReplay:          false,
			MaxRetries:            3,
			RetryDelaySeconds:     5,
			RemoveResolvedTodos:   false,
			BranchPrefix:          "sweep/",
		},
		RateLimiting: RateLimitConfig{
			MaxActionsPerMinute: 10,
			CooldownSeconds:     1,
		},
		Timeouts: TimeoutConfig{
			ListSeconds:    30,
			ContextSeconds: 10,
			PatternSeconds: 5,
			ActionSeconds:  30,
		},
		Scan: ScanConfig{
			FilePatterns: []string{"**/*.ts", "**/*.tsx", "**/*.js", "**/*.jsx", "**/*.mjs", "**/*.cjs"},
			MaxFileSize:  1 << 20,
			ContextLines: 3,
		},
		Synthesis: SynthesisConfig{
			Strategy: "balanced",
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.min.js",
				"*.d.ts",
				"*.backup-*",
			},
			Dirs: []string{
				"vendor",
				"node_modules",
				".git",
				".sweep",
				"dist",
				"build",
				"coverage",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".sweep/cache",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
		DataDir: ".sweep",
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConfigNames lists the file names searched by LoadOrDefault, in priority order.
var ConfigNames = []string{
	"sweep.toml",
	"sweep.yaml",
	"sweep.yml",
	"sweep.json",
	".sweep.toml",
	".sweep.yaml",
	".sweep.yml",
	".sweep.json",
}

// Find returns the first config file under dir or dir/.sweep, or "".
func Find(dir string) string {
	for _, d := range []string{dir, filepath.Join(dir, ".sweep")} {
		for _, name := range ConfigNames {
			path := filepath.Join(d, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault tries to load config from standard locations under dir or
// returns defaults. A config file that fails to parse is reported.
func LoadOrDefault(dir string) (*Config, string, error) {
	path := Find(dir)
	if path == "" {
		return DefaultConfig(), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// SessionTimeout returns the session deadline as a duration.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.Session.SessionTimeoutMinutes) * time.Minute
}

// RetryDelay returns the fixed back-off between failed iterations.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Session.RetryDelaySeconds) * time.Second
}

// Cooldown returns the pause after each executed action.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.RateLimiting.CooldownSeconds) * time.Second
}

// Timeout converts one of the TimeoutConfig fields to a duration.
func Timeout(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// ShouldExclude checks if a path should be excluded from scanning.
func (c *Config) ShouldExclude(path string) bool {
	sep := string(filepath.Separator)
	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, sep+dir+sep) || strings.HasPrefix(path, dir+sep) {
			return true
		}
	}

	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}
