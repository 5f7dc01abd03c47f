package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBroker()
	if err := c.normalizeSurface(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeOrganizer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBroker() {
	if value, ok := os.LookupEnv(brokerURLEnv); ok && strings.TrimSpace(value) != "" {
		c.Broker.URL = value
	}
	c.Broker.URL = strings.TrimSpace(c.Broker.URL)
	if c.Broker.URL == "" {
		c.Broker.URL = defaultBrokerURL
	}
	c.Broker.Queue = strings.TrimSpace(c.Broker.Queue)
	if c.Broker.Queue == "" {
		c.Broker.Queue = defaultQueueName
	}
	if c.Broker.Prefetch <= 0 {
		c.Broker.Prefetch = defaultPrefetch
	}
	if c.Broker.AttemptCacheSize <= 0 {
		c.Broker.AttemptCacheSize = defaultAttemptCacheSize
	}
}

func (c *Config) normalizeSurface() error {
	c.Surface.Bind = strings.TrimSpace(c.Surface.Bind)
	if c.Surface.Bind == "" {
		c.Surface.Bind = defaultSurfaceBind
	}
	c.Surface.DevOrigin = strings.TrimRight(strings.TrimSpace(c.Surface.DevOrigin), "/")
	if c.Surface.DevOrigin == "" {
		c.Surface.DevOrigin = defaultDevOrigin
	}
	if strings.TrimSpace(c.Surface.UIDir) == "" {
		c.Surface.UIDir = defaultUIDir
	}
	var err error
	if c.Surface.UIDir, err = expandPath(c.Surface.UIDir); err != nil {
		return fmt.Errorf("surface.ui_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeOrganizer() {
	if value, ok := os.LookupEnv(organizerURLEnv); ok && strings.TrimSpace(value) != "" {
		c.Organizer.BaseURL = value
	}
	c.Organizer.BaseURL = strings.TrimRight(strings.TrimSpace(c.Organizer.BaseURL), "/")
	if c.Organizer.RequestTimeout <= 0 {
		c.Organizer.RequestTimeout = defaultOrganizerRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
