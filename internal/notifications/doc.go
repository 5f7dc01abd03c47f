// Package notifications forwards pipeline alerts to ntfy.
//
// The ntfy topic comes from the [notifications] section of config.toml; when
// it is empty NewService returns a no-op implementation. Callers publish an
// Event with a loosely typed Payload and the service formats the title,
// message and tags, so the dispatcher and the daemon never duplicate HTTP
// glue.
package notifications
