package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// StateDir is the corpus-relative directory holding config, database and reports.
const StateDir = ".parity"

// DefaultTimeout bounds a single invocation when neither flag nor config sets one.
const DefaultTimeout = 30 * time.Second

// FormatVersion is written to new config files.
const FormatVersion = "1"

// DefaultReportName is the JSON report written when no path is configured.
const DefaultReportName = "report.json"

// Config represents the flat parity configuration kept in <corpus>/.parity/config.json.
// Every field is optional; CLI flags override it.
type Config struct {
	Version         string `json:"version,omitempty"`
	StderrPolicy    string `json:"stderr_policy,omitempty"`    // strict, presence or ignore
	Timeout         string `json:"timeout,omitempty"`          // Go duration, e.g. "30s"
	Jobs            int    `json:"jobs,omitempty"`             // 0 means one per CPU
	SwitchThreshold *int   `json:"switch_threshold,omitempty"` // nil means the default
	ReportPath      string `json:"report_path,omitempty"`      // relative to the corpus
	Reference       string `json:"reference,omitempty"`        // reference binary
	Candidate       string `json:"candidate,omitempty"`        // candidate binary
}

// LoadConfig reads .parity/config.json from the specified corpus directory.
// Returns error if no config found - caller should handle accordingly.
func LoadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, StateDir, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if _, err := cfg.TimeoutDuration(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Load is LoadConfig that treats a missing file as an empty config.
func Load(dir string) (*Config, error) {
	cfg, err := LoadConfig(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	return cfg, err
}

// SaveConfig writes config.json to the corpus state directory.
func SaveConfig(dir string, cfg *Config) error {
	stateDir := filepath.Join(dir, StateDir)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s dir: %w", StateDir, err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(stateDir, "config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// TimeoutDuration parses Timeout, returning DefaultTimeout when unset.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return d, nil
}

// ResolveReportPath returns the configured report path anchored at the corpus
// root, or the default under the state directory.
func (c *Config) ResolveReportPath(dir string) string {
	if c.ReportPath == "" {
		return filepath.Join(dir, StateDir, DefaultReportName)
	}
	if filepath.IsAbs(c.ReportPath) {
		return c.ReportPath
	}
	return filepath.Join(dir, c.ReportPath)
}
