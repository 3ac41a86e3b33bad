// Package config loads the agent-history settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/asheshgoplani/agent-history/internal/logging"
)

const (
	// FileName is the settings file inside the data directory.
	FileName = "config.toml"

	// HomeEnv overrides the data directory (~/.agent-history).
	HomeEnv = "AGENT_HISTORY_HOME"

	// ClaudeDirEnv overrides the Claude Code configuration directory.
	ClaudeDirEnv = "CLAUDE_CONFIG_DIR"

	// DebugEnv enables debug logging when set to "1" or "true".
	DebugEnv = "AGENT_HISTORY_DEBUG"
)

// Config is the parsed config.toml.
type Config struct {
	Claude  ClaudeSettings  `toml:"claude"`
	Search  SearchSettings  `toml:"search"`
	Context ContextSettings `toml:"context"`
	Logs    LogSettings     `toml:"logs"`
	Web     WebSettings     `toml:"web"`
	Follow  FollowSettings  `toml:"follow"`
}

// ClaudeSettings locates the transcripts.
type ClaudeSettings struct {
	// ConfigDir is the Claude Code directory holding projects/.
	// Default: ~/.claude
	ConfigDir string `toml:"config_dir"`
}

// SearchSettings are the defaults for search calls.
type SearchSettings struct {
	// MaxContent caps each result's content in characters. Default: 4000
	MaxContent int `toml:"max_content"`

	// MaxTotal caps the characters of a whole page. Default: 40000
	MaxTotal int `toml:"max_total"`

	// Types are the message types searched. Default: assistant, user, summary
	Types []string `toml:"types"`

	// Workers bounds parallel file scans. Default: GOMAXPROCS
	Workers int `toml:"workers"`
}

// ContextSettings are the defaults for context windows.
type ContextSettings struct {
	MaxContent int `toml:"max_content"`
	MaxTotal   int `toml:"max_total"`
}

// LogSettings configures the debug log.
type LogSettings struct {
	// Level is the minimum level: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `toml:"level"`

	// Format is "json" (default) or "text"
	Format string `toml:"format"`

	// MaxMB is the size of debug.log before rotation. Default: 10
	MaxMB int `toml:"max_mb"`

	// Backups is the number of rotated files to keep. Default: 5
	Backups int `toml:"backups"`

	// RetentionDays is how long rotated files are kept. Default: 10
	RetentionDays int `toml:"retention_days"`

	// Compress gzips rotated files. Default: true
	Compress *bool `toml:"compress"`

	// RingBufferMB is the in-memory crash buffer size. Default: 10
	RingBufferMB int `toml:"ring_buffer_mb"`

	// AggregateIntervalSecs is the event summary interval. Default: 30
	AggregateIntervalSecs int `toml:"aggregate_interval_secs"`

	// Pprof starts a pprof server in debug mode.
	Pprof bool `toml:"pprof"`

	// PprofAddr is the pprof listen address. Default: localhost:6060
	PprofAddr string `toml:"pprof_addr"`
}

// WebSettings configures `agent-history serve`.
type WebSettings struct {
	// Listen is the HTTP listen address. Default: 127.0.0.1:8420
	Listen string `toml:"listen"`

	// Token, when set, is required as a bearer token or ?token= parameter.
	Token string `toml:"token"`
}

// FollowSettings configures live follow.
type FollowSettings struct {
	// RescansPerSecond bounds file re-reads. Default: 10
	RescansPerSecond float64 `toml:"rescans_per_second"`
}

// DefaultListen is the serve address when none is configured.
const DefaultListen = "127.0.0.1:8420"

var (
	cache   *Config
	cacheMu sync.RWMutex
)

// Dir returns the agent-history data directory.
func Dir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return expandTilde(dir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".agent-history"), nil
}

// Path returns the path of config.toml.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads config.toml once and returns the cached result afterwards.
// A missing file yields the zero Config. On a parse error the zero Config
// is cached and the error returned so the caller can report it.
func Load() (*Config, error) {
	cacheMu.RLock()
	if cache != nil {
		defer cacheMu.RUnlock()
		return cache, nil
	}
	cacheMu.RUnlock()

	cacheMu.Lock()
	defer cacheMu.Unlock()

	// Double-check after acquiring write lock
	if cache != nil {
		return cache, nil
	}

	path, err := Path()
	if err != nil {
		cache = &Config{}
		return cache, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cache = &Config{}
		return cache, nil
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		cache = &Config{}
		return cache, fmt.Errorf("%s parse error: %w", FileName, err)
	}
	cache = &cfg
	return cache, nil
}

// ClearCache drops the cached config; the next Load reads from disk.
func ClearCache() {
	cacheMu.Lock()
	cache = nil
	cacheMu.Unlock()
}

// ClaudeConfigDir returns the Claude Code directory. Priority:
// CLAUDE_CONFIG_DIR, then [claude] config_dir, then ~/.claude.
func (c *Config) ClaudeConfigDir() string {
	if dir := os.Getenv(ClaudeDirEnv); dir != "" {
		return expandTilde(dir)
	}
	if c != nil && c.Claude.ConfigDir != "" {
		return expandTilde(c.Claude.ConfigDir)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude")
}

// Listen returns the configured serve address.
func (c *Config) Listen() string {
	if c == nil || c.Web.Listen == "" {
		return DefaultListen
	}
	return c.Web.Listen
}

// Debug reports whether AGENT_HISTORY_DEBUG is enabled.
func Debug() bool {
	switch strings.ToLower(os.Getenv(DebugEnv)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// LoggingConfig maps [logs] onto the logging package. Logs go to the data
// directory only in debug mode.
func (c *Config) LoggingConfig(debug bool) logging.Config {
	var logs LogSettings
	if c != nil {
		logs = c.Logs
	}
	compress := true
	if logs.Compress != nil {
		compress = *logs.Compress
	}
	cfg := logging.Config{
		Level:                 logs.Level,
		Format:                logs.Format,
		MaxSizeMB:             logs.MaxMB,
		MaxBackups:            logs.Backups,
		MaxAgeDays:            logs.RetentionDays,
		Compress:              compress,
		RingBufferSize:        logs.RingBufferMB * 1024 * 1024,
		AggregateIntervalSecs: logs.AggregateIntervalSecs,
		PprofEnabled:          logs.Pprof && debug,
		PprofAddr:             logs.PprofAddr,
		Debug:                 debug,
	}
	if debug {
		if dir, err := Dir(); err == nil {
			cfg.LogDir = dir
		}
		if cfg.Level == "" {
			cfg.Level = "debug"
		}
	}
	return cfg
}

// expandTilde expands a leading ~/ to the user's home directory.
func expandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}
