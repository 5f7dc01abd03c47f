package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBroker(); err != nil {
		return err
	}
	if err := c.validateSurface(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateOrganizer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBroker() error {
	parsed, err := url.Parse(c.Broker.URL)
	if err != nil {
		return fmt.Errorf("broker.url: %w", err)
	}
	if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
		return fmt.Errorf("broker.url must use amqp:// or amqps://, got %q", parsed.Scheme)
	}
	if c.Broker.MaxDeliveryAttempts <= 0 {
		return errors.New("broker.max_delivery_attempts must be positive")
	}
	if err := ensurePositiveMap(map[string]int{
		"broker.reconnect_initial_ms":  c.Broker.ReconnectInitialMS,
		"broker.reconnect_max_seconds": c.Broker.ReconnectMaxSeconds,
	}); err != nil {
		return err
	}
	if c.ReconnectInitial() > c.ReconnectMax() {
		return errors.New("broker.reconnect_initial_ms must not exceed broker.reconnect_max_seconds")
	}
	return nil
}

func (c *Config) validateSurface() error {
	if _, _, err := net.SplitHostPort(c.Surface.Bind); err != nil {
		return fmt.Errorf("surface.bind: %w", err)
	}
	origin, err := url.Parse(c.Surface.DevOrigin)
	if err != nil {
		return fmt.Errorf("surface.dev_origin: %w", err)
	}
	if origin.Scheme != "http" && origin.Scheme != "https" {
		return fmt.Errorf("surface.dev_origin must be an http(s) origin, got %q", c.Surface.DevOrigin)
	}
	if origin.Host == "" {
		return errors.New("surface.dev_origin must include a host")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.NtfyTopic)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be a full URL, got %q", c.Notifications.NtfyTopic)
	}
	return nil
}

func (c *Config) validateOrganizer() error {
	if c.Organizer.BaseURL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Organizer.BaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("organizer.base_url must be an http(s) URL, got %q", c.Organizer.BaseURL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", strings.TrimSpace(key))
		}
	}
	return nil
}
