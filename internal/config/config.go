package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Broker contains the AMQP connection and delivery policy.
type Broker struct {
	URL                 string `toml:"url"`
	Queue               string `toml:"queue"`
	Prefetch            int    `toml:"prefetch"`
	MaxDeliveryAttempts int    `toml:"max_delivery_attempts"`
	ReconnectInitialMS  int    `toml:"reconnect_initial_ms"`
	ReconnectMaxSeconds int    `toml:"reconnect_max_seconds"`
	AttemptCacheSize    int    `toml:"attempt_cache_size"`
}

// Surface contains the display surface transport and its origin allow-list.
type Surface struct {
	Bind      string `toml:"bind"`
	DevMode   bool   `toml:"dev_mode"`
	DevOrigin string `toml:"dev_origin"`
	UIDir     string `toml:"ui_dir"`
}

// Notifications contains configuration for ntfy alert forwarding.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Organizer contains the location of the external organizer HTTP service.
type Organizer struct {
	BaseURL        string `toml:"base_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for filepilot.
//
// Configuration sections by subsystem:
//   - Paths: suggestion database and log locations
//   - Broker: AMQP queue subscription and redelivery policy
//   - Surface: display surface HTTP bind and allowed origins
//   - Notifications: ntfy forwarding of suggestion alerts
//   - Organizer: external organizer service used to commit moves
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Broker        Broker        `toml:"broker"`
	Surface       Surface       `toml:"surface"`
	Notifications Notifications `toml:"notifications"`
	Organizer     Organizer     `toml:"organizer"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/filepilot/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("filepilot.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the suggestion database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "suggestions.db")
}

// SocketPath returns the location of the daemon IPC socket.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "filepilot.sock")
}

// LockPath returns the location of the single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "filepilotd.lock")
}

// LogPath returns the daemon log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "filepilot.log")
}

// PackagedUIURL returns the file URL of the packaged display surface entry
// point. This is the only non-development origin the access gate accepts.
func (c *Config) PackagedUIURL() string {
	index := filepath.Join(c.Surface.UIDir, "index.html")
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(index)}
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path
	}
	return u.String()
}

// ReconnectInitial returns the first broker reconnect delay.
func (c *Config) ReconnectInitial() time.Duration {
	return time.Duration(c.Broker.ReconnectInitialMS) * time.Millisecond
}

// ReconnectMax returns the ceiling for broker reconnect delays.
func (c *Config) ReconnectMax() time.Duration {
	return time.Duration(c.Broker.ReconnectMaxSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
