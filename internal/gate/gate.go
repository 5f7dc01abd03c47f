package gate

import (
	"log/slog"
	"net/url"
	"path"
	"strings"

	"filepilot/internal/config"
	"filepilot/internal/logging"
	"filepilot/internal/metrics"
)

// Gate checks caller origins against the fixed allow-list.
type Gate struct {
	devOrigin   *url.URL
	packagedURL string
	packaged    *url.URL
	logger      *slog.Logger
}

// New builds a gate from the surface configuration. The dev origin is only
// allow-listed when dev mode is on.
func New(cfg *config.Config, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = logging.NewNop()
	}
	g := &Gate{
		packagedURL: cfg.PackagedUIURL(),
		logger:      logging.NewComponentLogger(logger, "gate"),
	}
	g.packaged, _ = url.Parse(g.packagedURL)
	if cfg.Surface.DevMode {
		if u, err := url.Parse(strings.TrimSpace(cfg.Surface.DevOrigin)); err == nil && u.Host != "" {
			g.devOrigin = u
		}
	}
	return g
}

// PackagedURL returns the file URL of the packaged UI entry point.
func (g *Gate) PackagedURL() string {
	return g.packagedURL
}

// Allowed reports whether origin is on the allow-list without logging.
func (g *Gate) Allowed(origin string) bool {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || u.Opaque != "" {
		return false
	}
	if g.devOrigin != nil && matchesDevOrigin(u, g.devOrigin) {
		return true
	}
	return g.packaged != nil && matchesPackaged(origin, u, g.packaged)
}

// Authorize returns a *SecurityError for any origin outside the allow-list.
// call names the privileged operation for the audit log.
func (g *Gate) Authorize(call, origin string) error {
	if g.Allowed(origin) {
		return nil
	}
	metrics.GateDenied.WithLabelValues(call).Inc()
	logging.WarnWithContext(g.logger, "privileged call denied", "privileged_call_denied",
		logging.String("call", call),
		logging.Origin(origin),
		logging.String(logging.FieldImpact, "call rejected, store untouched"),
		logging.String(logging.FieldErrorHint, "only the packaged UI or the dev server may call this"),
	)
	return &SecurityError{Origin: origin, Call: call}
}

// The dev server may serve any route, so only scheme and host:port are compared.
func matchesDevOrigin(u, dev *url.URL) bool {
	return strings.EqualFold(u.Scheme, dev.Scheme) && strings.EqualFold(u.Host, dev.Host)
}

// The packaged entry point must match exactly: no query and no fragment.
func matchesPackaged(raw string, u, want *url.URL) bool {
	if !strings.EqualFold(u.Scheme, "file") || u.Host != "" || u.User != nil {
		return false
	}
	if u.RawQuery != "" || u.ForceQuery {
		return false
	}
	if strings.Contains(raw, "#") {
		return false
	}
	if u.Path != path.Clean(u.Path) {
		return false
	}
	return u.Path == want.Path
}
