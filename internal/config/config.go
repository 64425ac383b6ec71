package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// Config holds all configurable gitmind settings.
type Config struct {
	IgnorePatterns    []string `json:"ignore_patterns"`
	GitDebounceMs     int      `json:"git_debounce_ms"`
	ProjectDebounceMs int      `json:"project_debounce_ms"`
	PersistInterval   string   `json:"persist_interval"` // Go duration, e.g. "5m"
	PruneInterval     string   `json:"prune_interval"`
	RetentionDays     int      `json:"retention_days"`
	RecentCommits     int      `json:"recent_commits"`
	ActivityLimit     int      `json:"activity_limit"`
	CacheSize         int      `json:"cache_size"`
	CatalogPath       string   `json:"catalog_path"`  // YAML command catalog, optional
	DatabasePath      string   `json:"database_path"` // override the XDG default
	AIEndpoint        string   `json:"ai_endpoint"`
	AIModel           string   `json:"ai_model"`
	AIKeyEnv          string   `json:"ai_api_key_env"`
	AITimeoutSeconds  int      `json:"ai_timeout_seconds"`
	AIRetries         int      `json:"ai_retries"`
	LogLevel          string   `json:"log_level"`
	OutputFormat      string   `json:"output_format"` // "text" | "json"

	// formatSet records that some config file named output_format.
	formatSet bool
}

const (
	defaultPersistInterval = 5 * time.Minute
	defaultPruneInterval   = 24 * time.Hour
)

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		IgnorePatterns:    []string{".git", "node_modules", "vendor", "dist", "build", "*.log", "*.tmp"},
		GitDebounceMs:     1000,
		ProjectDebounceMs: 2000,
		PersistInterval:   "5m",
		PruneInterval:     "24h",
		RetentionDays:     30,
		RecentCommits:     50,
		ActivityLimit:     100,
		CacheSize:         100,
		AIKeyEnv:          "GITMIND_AI_KEY",
		AITimeoutSeconds:  20,
		AIRetries:         1,
		LogLevel:          "warn",
		OutputFormat:      "text",
	}
}

// LoadGlobal reads ~/.config/gitmind/config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(home, ".config", "gitmind", "config.json")
	return loadFile(path, true)
}

// LoadProject reads .gitmindconfig in dir.
// Returns nil (no error) if the file is absent.
func LoadProject(dir string) (*Config, error) {
	return loadFile(filepath.Join(dir, ".gitmindconfig"), false)
}

// loadFile reads and parses a JSON config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	cfg.formatSet = cfg.OutputFormat != ""
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	apply(&result, global)
	apply(&result, project)
	return result
}

// apply copies every non-zero field of src over dst.
func apply(dst, src *Config) {
	if src == nil {
		return
	}
	if len(src.IgnorePatterns) > 0 {
		dst.IgnorePatterns = src.IgnorePatterns
	}
	setInt(&dst.GitDebounceMs, src.GitDebounceMs)
	setInt(&dst.ProjectDebounceMs, src.ProjectDebounceMs)
	setString(&dst.PersistInterval, src.PersistInterval)
	setString(&dst.PruneInterval, src.PruneInterval)
	setInt(&dst.RetentionDays, src.RetentionDays)
	setInt(&dst.RecentCommits, src.RecentCommits)
	setInt(&dst.ActivityLimit, src.ActivityLimit)
	setInt(&dst.CacheSize, src.CacheSize)
	setString(&dst.CatalogPath, src.CatalogPath)
	setString(&dst.DatabasePath, src.DatabasePath)
	setString(&dst.AIEndpoint, src.AIEndpoint)
	setString(&dst.AIModel, src.AIModel)
	setString(&dst.AIKeyEnv, src.AIKeyEnv)
	setInt(&dst.AITimeoutSeconds, src.AITimeoutSeconds)
	setInt(&dst.AIRetries, src.AIRetries)
	setString(&dst.LogLevel, src.LogLevel)
	setString(&dst.OutputFormat, src.OutputFormat)
	dst.formatSet = dst.formatSet || src.formatSet
}

// OutputFormatSet reports whether a config file chose the output format, as
// opposed to it coming from Defaults.
func (c Config) OutputFormatSet() bool {
	return c.formatSet
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// GitDebounce is the quiet period before a git refresh fires.
func (c Config) GitDebounce() time.Duration {
	return millis(c.GitDebounceMs, time.Second)
}

// ProjectDebounce is the quiet period before a project refresh fires.
func (c Config) ProjectDebounce() time.Duration {
	return millis(c.ProjectDebounceMs, 2*time.Second)
}

// PersistEvery parses PersistInterval, falling back to five minutes.
func (c Config) PersistEvery() time.Duration {
	return duration(c.PersistInterval, defaultPersistInterval)
}

// PruneEvery parses PruneInterval, falling back to one day.
func (c Config) PruneEvery() time.Duration {
	return duration(c.PruneInterval, defaultPruneInterval)
}

// Retention is how long persisted records are kept.
func (c Config) Retention() time.Duration {
	days := c.RetentionDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

// AITimeout is the per-attempt deadline for completion calls.
func (c Config) AITimeout() time.Duration {
	if c.AITimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.AITimeoutSeconds) * time.Second
}

func millis(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
