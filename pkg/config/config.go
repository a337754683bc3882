// Package config provides configuration management functionality
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"linehist/pkg/history"
)

const (
	// EnvConfig overrides the configuration file location
	EnvConfig = "LINEHIST_CONFIG"
	// EnvHistoryFile overrides the history file location
	EnvHistoryFile = "LINEHIST_FILE"

	// Unlimited is accepted by MaxSize to disable the size limit
	Unlimited = "unlimited"
)

// Config describes the history file and how it is maintained
type Config struct {
	HistoryFile string `json:"history_file" yaml:"history_file"`
	// MaxSize is a human readable byte size such as "256KiB", or "unlimited".
	MaxSize string `json:"max_size" yaml:"max_size"`
	// MaxEntries bounds the number of entries; a negative value disables the limit.
	MaxEntries    int    `json:"max_entries" yaml:"max_entries"`
	SkipEmpty     bool   `json:"skip_empty" yaml:"skip_empty"`
	SkipDup       bool   `json:"skip_dup" yaml:"skip_dup"`
	Append        bool   `json:"append" yaml:"append"`
	FileMode      string `json:"file_mode" yaml:"file_mode"`
	SaveEveryLine bool   `json:"save_every_line" yaml:"save_every_line"`
	Prompt        string `json:"prompt" yaml:"prompt"`
	LogLevel      string `json:"log_level" yaml:"log_level"`
}

// Default returns the default configuration
func Default() Config {
	return Config{
		HistoryFile:   DefaultHistoryFile(),
		MaxSize:       "1MiB",
		MaxEntries:    1000,
		SkipEmpty:     true,
		SkipDup:       true,
		Append:        true,
		FileMode:      "0600",
		SaveEveryLine: true,
		Prompt:        "> ",
		LogLevel:      "info",
	}
}

// DefaultHistoryFile returns the history file used when none is configured
func DefaultHistoryFile() string {
	if path := os.Getenv(EnvHistoryFile); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".linehist_history"
	}
	return filepath.Join(home, ".linehist_history")
}

// DefaultPath returns the configuration file location
func DefaultPath() string {
	if path := os.Getenv(EnvConfig); path != "" {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "linehist.yaml"
	}
	return filepath.Join(dir, "linehist", "config.yaml")
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.HistoryFile == "" {
		return fmt.Errorf("history file cannot be empty")
	}

	if _, _, err := c.Limits(); err != nil {
		return err
	}

	if _, err := c.Mode(); err != nil {
		return err
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s", c.LogLevel)
}

// Limits returns the configured size and entry limits in the form expected
// by history.New.
func (c Config) Limits() (maxSize, maxEntries int, err error) {
	maxSize, err = ParseSize(c.MaxSize)
	if err != nil {
		return 0, 0, err
	}

	maxEntries = c.MaxEntries
	if maxEntries < 0 {
		maxEntries = history.Unbounded
	}
	return maxSize, maxEntries, nil
}

// Mode returns the permission used when creating the history file
func (c Config) Mode() (os.FileMode, error) {
	if c.FileMode == "" {
		return history.DefaultFileMode, nil
	}
	mode, err := strconv.ParseUint(c.FileMode, 8, 32)
	if err != nil || mode > 0o777 {
		return 0, fmt.Errorf("invalid file mode: %s", c.FileMode)
	}
	return os.FileMode(mode), nil
}

// ParseSize converts a human readable byte size into a history limit.
// An empty string or "unlimited" means no limit.
func ParseSize(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, Unlimited) {
		return history.Unbounded, nil
	}

	size, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid max size %q: %w", s, err)
	}
	if size > uint64(history.Unbounded) {
		return history.Unbounded, nil
	}
	return int(size), nil
}

// FormatSize renders a history limit for display
func FormatSize(n int) string {
	if n == history.Unbounded {
		return Unlimited
	}
	return humanize.IBytes(uint64(n))
}

// Load reads the configuration at path on top of the defaults. YAML is
// used for .yaml and .yml files; anything else is parsed as JSON, with
// comments and trailing commas allowed. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(jsonc.ToJSON(data), &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating the parent directory if needed
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
