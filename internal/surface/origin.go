package surface

import (
	"net/http"
	"strings"
)

// SurfaceURLHeader carries the URL the display surface was loaded from.
const SurfaceURLHeader = "X-Surface-URL"

// callerOrigin resolves the identity a request presents to the access gate.
//
// A browser-set Origin decides on its own whenever it names a network origin,
// so a foreign page cannot borrow the packaged identity through the other
// sources. File pages send an opaque Origin and identify themselves with
// SurfaceURLHeader, which a cross-origin page cannot set without a preflight
// this server never grants. EventSource cannot set headers, so only the push
// stream reads the surface query parameter.
func callerOrigin(r *http.Request, allowQuery bool) string {
	if v := strings.TrimSpace(r.Header.Get("Origin")); v != "" && !opaqueOrigin(v) {
		return v
	}
	if v := strings.TrimSpace(r.Header.Get(SurfaceURLHeader)); v != "" {
		return v
	}
	if allowQuery {
		if v := strings.TrimSpace(r.URL.Query().Get("surface")); v != "" {
			return v
		}
	}
	return strings.TrimSpace(r.Header.Get("Referer"))
}

// opaqueOrigin reports Origin values that cannot name a resource: sandboxed
// and file pages.
func opaqueOrigin(v string) bool {
	return v == "null" || strings.HasPrefix(strings.ToLower(v), "file:")
}
