package testsupport

import (
	"path/filepath"
	"testing"

	"filepilot/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Surface.UIDir = filepath.Join(base, "ui")
	cfgVal.Surface.Bind = "127.0.0.1:0"
	cfgVal.Broker.ReconnectInitialMS = 10
	cfgVal.Broker.ReconnectMaxSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithDevMode enables the development origin on the test config.
func WithDevMode() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Surface.DevMode = true
	}
}

// WithBrokerURL points the consumer at a specific broker.
func WithBrokerURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Broker.URL = url
	}
}

// WithMaxDeliveryAttempts overrides the requeue bound for transient failures.
func WithMaxDeliveryAttempts(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Broker.MaxDeliveryAttempts = n
	}
}

// WithOrganizerURL points the organizer client at a test server.
func WithOrganizerURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Organizer.BaseURL = url
	}
}

// WithNtfyTopic enables ntfy forwarding to the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
