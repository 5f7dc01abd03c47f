// Package config loads, normalizes, and validates filepilot configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// FILEPILOT_AMQP_URL. The Config type centralizes every knob the daemon and
// CLI need: where the suggestion database lives, how to reach the broker, which
// origins the display surface may load from, and where alerts are forwarded.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
